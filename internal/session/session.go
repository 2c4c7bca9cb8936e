// Package session holds the authenticated identity: the bearer token, the
// cached user, and their durable copy. It resets to anonymous whenever the
// process-wide unauthorized signal fires.
package session

import (
	"context"
	"errors"
	"sync"

	"budgetly/internal/api"
	"budgetly/internal/core"
	"budgetly/internal/events"
	"budgetly/internal/log"
	"budgetly/internal/state"
	"budgetly/internal/storage"
)

// AuthAPI is the slice of the REST client the session needs.
type AuthAPI interface {
	Login(ctx context.Context, creds core.LoginCredentials) (*api.AuthResponse, error)
	Register(ctx context.Context, creds core.RegisterCredentials) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	Profile(ctx context.Context) (*core.User, error)
	UpdateProfile(ctx context.Context, in core.ProfileInput) (*core.User, error)
	UpdatePassword(ctx context.Context, in core.PasswordInput) error
}

// State is an immutable snapshot of the session.
type State struct {
	User            *core.User
	Token           string
	IsAuthenticated bool
	Phase           state.Phase
	Err             string
}

// IsLoggedIn reports an authenticated session with a loaded user.
func (s State) IsLoggedIn() bool { return s.IsAuthenticated && s.User != nil }

// HasToken reports whether a bearer token is held.
func (s State) HasToken() bool { return s.Token != "" }

type Store struct {
	api     AuthAPI
	durable storage.SessionStore
	bus     *events.Bus
	logger  *log.Logger

	mu    sync.RWMutex
	state State
	obs   state.Observable[State]

	unsubscribe func()
}

func New(client AuthAPI, durable storage.SessionStore, bus *events.Bus, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Store{
		api:     client,
		durable: durable,
		bus:     bus,
		logger:  logger.WithComponent(log.ComponentSession),
	}
	if bus != nil {
		s.unsubscribe = bus.Subscribe(s.onEvent)
	}
	return s
}

// Close detaches the store from the bus.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the bearer token, or "" when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Subscribe registers fn for every state change.
func (s *Store) Subscribe(fn func(State)) func() {
	return s.obs.Subscribe(fn)
}

func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state
	s.mu.Unlock()
	s.obs.Notify(snap)
}

func (s *Store) pending() {
	s.update(func(st *State) {
		st.Phase = state.Pending
		st.Err = ""
	})
}

func (s *Store) reject(ctx context.Context, op string, err error) error {
	msg := api.FormatError(err)
	s.update(func(st *State) {
		st.Phase = state.Rejected
		st.Err = msg
	})
	log.NewStructuredLogger(s.logger).LogRejected(ctx, op, err, nil)
	return err
}

// reset drops identity and token in memory only.
func (s *Store) reset(phase state.Phase) {
	s.update(func(st *State) {
		*st = State{Phase: phase}
	})
}

// Restore seeds the state from durable storage. Without a token the session
// is anonymous regardless of any cached user.
func (s *Store) Restore(ctx context.Context) error {
	sess, err := s.durable.Load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load session from storage", log.FieldError, err)
		return err
	}
	s.update(func(st *State) {
		if sess.Token == "" {
			st.Token = ""
			st.User = nil
			st.IsAuthenticated = false
			return
		}
		st.Token = sess.Token
		st.IsAuthenticated = true
		if sess.User != nil {
			st.User = sess.User
		}
	})
	s.logger.DebugContext(ctx, "Session restored", "authenticated", sess.Token != "")
	return nil
}

func (s *Store) Login(ctx context.Context, creds core.LoginCredentials) error {
	if err := creds.Validate(); err != nil {
		return s.rejectAuth(ctx, log.OpLogin, err)
	}
	s.pending()
	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		return s.rejectAuth(ctx, log.OpLogin, err)
	}
	return s.establish(ctx, log.OpLogin, resp)
}

func (s *Store) Register(ctx context.Context, creds core.RegisterCredentials) error {
	if err := creds.Validate(); err != nil {
		return s.rejectAuth(ctx, log.OpRegister, err)
	}
	s.pending()
	resp, err := s.api.Register(ctx, creds)
	if err != nil {
		return s.rejectAuth(ctx, log.OpRegister, err)
	}
	return s.establish(ctx, log.OpRegister, resp)
}

func (s *Store) rejectAuth(ctx context.Context, op string, err error) error {
	s.update(func(st *State) { st.IsAuthenticated = false })
	return s.reject(ctx, op, err)
}

// establish persists and installs a fresh session. Token and user are
// written together; a failed write fails the login.
func (s *Store) establish(ctx context.Context, op string, resp *api.AuthResponse) error {
	user := resp.User
	if err := s.durable.Save(ctx, storage.Session{Token: resp.Token, User: &user}); err != nil {
		return s.rejectAuth(ctx, op, err)
	}
	s.update(func(st *State) {
		st.Token = resp.Token
		st.User = &user
		st.IsAuthenticated = true
		st.Phase = state.Fulfilled
		st.Err = ""
	})
	s.logger.InfoContext(ctx, "Session started", log.FieldOperation, op, log.FieldUserID, user.ID)
	if s.bus != nil {
		s.bus.Emit(events.SessionStarted)
	}
	return nil
}

// Logout ends the session. The server call is best effort: local state and
// durable storage are cleared whatever it returns.
func (s *Store) Logout(ctx context.Context) error {
	return s.endSession(ctx, log.OpLogout, s.api.Logout)
}

// LogoutAll revokes every session of the user on the server, best effort,
// then clears locally.
func (s *Store) LogoutAll(ctx context.Context) error {
	return s.endSession(ctx, "logout_all", s.api.LogoutAll)
}

func (s *Store) endSession(ctx context.Context, op string, notify func(context.Context) error) error {
	s.update(func(st *State) { st.Phase = state.Pending })

	if s.Token() != "" {
		if err := notify(ctx); err != nil {
			s.logger.WarnContext(ctx, "Server logout failed, clearing locally", log.FieldOperation, op, log.FieldError, err)
		}
	}
	if err := s.durable.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "Failed to clear session storage", log.FieldOperation, op, log.FieldError, err)
	}
	s.reset(state.Fulfilled)
	s.logger.InfoContext(ctx, "Session ended", log.FieldOperation, op)
	if s.bus != nil {
		s.bus.Emit(events.SessionEnded)
	}
	return nil
}

// FetchProfile refreshes the cached user. Without a token the session is
// force-cleared.
func (s *Store) FetchProfile(ctx context.Context) error {
	if s.Token() == "" {
		return s.noToken(ctx, "fetch_profile")
	}
	s.pending()
	user, err := s.api.Profile(ctx)
	if errors.Is(err, api.ErrNoToken) {
		return s.noToken(ctx, "fetch_profile")
	}
	if err != nil {
		return s.reject(ctx, "fetch_profile", err)
	}
	return s.storeUser(ctx, user)
}

func (s *Store) noToken(ctx context.Context, op string) error {
	if err := s.durable.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "Failed to clear session storage", log.FieldError, err)
	}
	s.update(func(st *State) {
		*st = State{Phase: state.Rejected, Err: api.ErrNoToken.Error()}
	})
	s.logger.WarnContext(ctx, "No token available, session cleared", log.FieldOperation, op)
	return api.ErrNoToken
}

func (s *Store) UpdateProfile(ctx context.Context, in core.ProfileInput) error {
	if s.Token() == "" {
		return s.reject(ctx, "update_profile", api.ErrNoToken)
	}
	s.pending()
	user, err := s.api.UpdateProfile(ctx, in)
	if err != nil {
		return s.reject(ctx, "update_profile", err)
	}
	return s.storeUser(ctx, user)
}

func (s *Store) storeUser(ctx context.Context, user *core.User) error {
	tok := s.Token()
	if tok != "" {
		if err := s.durable.Save(ctx, storage.Session{Token: tok, User: user}); err != nil {
			s.logger.WarnContext(ctx, "Failed to persist user", log.FieldError, err)
		}
	}
	s.update(func(st *State) {
		st.User = user
		st.Phase = state.Fulfilled
		st.Err = ""
	})
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, in core.PasswordInput) error {
	if err := in.Validate(); err != nil {
		return s.reject(ctx, "update_password", err)
	}
	if s.Token() == "" {
		return s.reject(ctx, "update_password", api.ErrNoToken)
	}
	s.pending()
	if err := s.api.UpdatePassword(ctx, in); err != nil {
		return s.reject(ctx, "update_password", err)
	}
	s.update(func(st *State) {
		st.Phase = state.Fulfilled
		st.Err = ""
	})
	s.logger.InfoContext(ctx, "Password updated")
	return nil
}

// ClearError drops the last error message.
func (s *Store) ClearError() {
	s.update(func(st *State) { st.Err = "" })
}

func (s *Store) onEvent(e events.Event) {
	ctx := context.Background()
	local := s.bus.IsLocal(e)

	switch e.Kind {
	case events.Unauthorized:
		if !local {
			if err := s.durable.Clear(ctx); err != nil {
				s.logger.Warn("Failed to clear session storage", log.FieldError, err)
			}
		}
		s.logger.Info("Unauthorized signal received, resetting session", log.FieldOrigin, e.Origin)
		s.reset(state.Idle)
	case events.SessionEnded:
		if !local {
			s.logger.Info("Session ended elsewhere", log.FieldOrigin, e.Origin)
			s.reset(state.Idle)
		}
	case events.SessionStarted:
		if !local {
			s.logger.Info("Session started elsewhere, restoring", log.FieldOrigin, e.Origin)
			_ = s.Restore(ctx)
		}
	}
}
