// Package fakeapitest starts the in-memory API server for tests and hands
// out clients bound to a registered user.
package fakeapitest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"budgetly/internal/api"
	"budgetly/internal/core"
	"budgetly/internal/fakeapi"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Token is a fixed api.TokenSource.
type Token string

func (t Token) Token() string { return string(t) }

type Env struct {
	URL    string
	Clock  *Clock
	Server *fakeapi.Server
	srv    *httptest.Server
}

// Start runs a server whose clock reads 2026-03-15 12:00 UTC.
func Start(t *testing.T) *Env {
	t.Helper()
	clock := NewClock(time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC))
	s := fakeapi.NewServer("", fakeapi.Options{Now: clock.Now})
	srv := httptest.NewServer(s.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = s.Shutdown(context.Background())
	})
	return &Env{URL: srv.URL, Clock: clock, Server: s, srv: srv}
}

// HTTPClient returns a client configured for the test server.
func (e *Env) HTTPClient() *http.Client { return e.srv.Client() }

// Client returns an API client without a token.
func (e *Env) Client(t *testing.T, opts ...api.Option) *api.Client {
	t.Helper()
	opts = append([]api.Option{api.WithHTTPClient(e.srv.Client())}, opts...)
	c, err := api.New(e.URL, opts...)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return c
}

// Register creates a user and returns a client authenticated as them.
func (e *Env) Register(t *testing.T, email string, opts ...api.Option) (*api.Client, *api.AuthResponse) {
	t.Helper()
	c := e.Client(t, opts...)
	resp, err := c.Register(context.Background(), core.RegisterCredentials{
		Name:                 "Test User",
		Email:                email,
		Password:             "password123",
		PasswordConfirmation: "password123",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	c.SetTokenSource(Token(resp.Token))
	return c, resp
}
