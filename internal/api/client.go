// Package api is the typed client of the budgeting REST API. Every response
// is decoded from the {success, message, data, errors} envelope; a 401 on
// any call purges the durable session and raises the process-wide
// unauthorized signal before the error is returned.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"budgetly/internal/events"
	"budgetly/internal/log"
)

// TokenSource yields the current bearer token, or "" when anonymous.
type TokenSource interface {
	Token() string
}

// SessionPurger clears durable session storage on 401.
type SessionPurger interface {
	Clear(ctx context.Context) error
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	purger  SessionPurger
	bus     *events.Bus
	logger  *log.Logger

	mu     sync.RWMutex
	tokens TokenSource
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithSessionPurger(p SessionPurger) Option {
	return func(c *Client) { c.purger = p }
}

func WithBus(b *events.Bus) Option {
	return func(c *Client) { c.bus = b }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme %q: must be http or https", u.Scheme)
	}

	c := &Client{baseURL: u, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Discard()
	}
	c.logger = c.logger.WithComponent(log.ComponentAPI)
	return c, nil
}

// SetTokenSource installs the source consulted by authenticated calls.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

// call issues an authenticated request.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	tok := c.token()
	if tok == "" {
		return ErrNoToken
	}
	return c.do(ctx, method, path, tok, body, out)
}

// do issues a request and decodes the envelope data into out (may be nil).
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.DebugContext(ctx, "API request", log.FieldMethod, method, log.FieldPath, path, log.FieldRequestID, reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "API transport failure", log.FieldMethod, method, log.FieldPath, path, log.FieldError, err)
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(ctx, path)
		return &Error{Status: resp.StatusCode, Message: ErrUnauthorized.Error(), err: ErrUnauthorized}
	}

	return decode(resp.StatusCode, raw, out)
}

func (c *Client) handleUnauthorized(ctx context.Context, path string) {
	c.logger.WarnContext(ctx, "Unauthorized response, clearing session", log.FieldPath, path)
	if c.purger != nil {
		if err := c.purger.Clear(ctx); err != nil {
			c.logger.ErrorContext(ctx, "Failed to clear session storage", log.FieldError, err)
		}
	}
	if c.bus != nil {
		c.bus.Emit(events.Unauthorized)
	}
}

func decode(status int, raw []byte, out any) error {
	ok := status >= 200 && status < 300

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		if !ok {
			return &Error{Status: status, Message: msgRequestFailed}
		}
		return decodeBody(raw, out)
	}

	// Only a boolean success marks an envelope.
	successRaw := bytes.TrimSpace(fields["success"])
	if !bytes.Equal(successRaw, []byte("true")) && !bytes.Equal(successRaw, []byte("false")) {
		if !ok {
			return &Error{Status: status, Message: msgRequestFailed}
		}
		return decodeBody(raw, out)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Success {
		return &Error{Status: status, Message: env.Message, Errors: env.Errors}
	}
	return decodeBody(env.Data, out)
}

func decodeBody(raw []byte, out any) error {
	if out == nil || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
