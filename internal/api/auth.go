package api

import (
	"context"
	"net/http"

	"budgetly/internal/core"
)

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User      core.User `json:"user"`
	Token     string    `json:"token"`
	TokenType string    `json:"token_type,omitempty"`
}

func (c *Client) Login(ctx context.Context, creds core.LoginCredentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", "", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, creds core.RegisterCredentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/register", "", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the current token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// LogoutAll revokes every token of the current user.
func (c *Client) LogoutAll(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/logout-all", nil, nil)
}

func (c *Client) Profile(ctx context.Context) (*core.User, error) {
	var out core.User
	if err := c.call(ctx, http.MethodGet, "/api/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, in core.ProfileInput) (*core.User, error) {
	var out core.User
	if err := c.call(ctx, http.MethodPut, "/api/profile", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePassword(ctx context.Context, in core.PasswordInput) error {
	return c.call(ctx, http.MethodPut, "/api/password", in, nil)
}
