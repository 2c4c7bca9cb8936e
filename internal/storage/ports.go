package storage

import (
	"context"
	"errors"

	"budgetly/internal/core"
)

// Keys under which the session is persisted.
const (
	KeyToken = "auth_token"
	KeyUser  = "user_data"
)

var ErrNoToken = errors.New("session token must not be empty")

// Session is what survives a restart: the bearer token and the cached user.
// A session without a token is anonymous regardless of User.
type Session struct {
	Token string
	User  *core.User
}

// SessionStore is the durable "local storage" of the client.
type SessionStore interface {
	// Load returns the persisted session. A missing session is the zero
	// Session, not an error.
	Load(ctx context.Context) (Session, error)
	// Save replaces token and user together.
	Save(ctx context.Context, s Session) error
	// Clear removes token and user together.
	Clear(ctx context.Context) error
}
