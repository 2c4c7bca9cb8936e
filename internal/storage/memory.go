package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"budgetly/internal/core"
)

// MemoryStore keeps the session in process memory. The user is held in its
// serialized form so Load decodes exactly what a durable store would.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	user  []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Session{Token: m.token}
	if len(m.user) > 0 {
		var u core.User
		if err := json.Unmarshal(m.user, &u); err == nil {
			s.User = &u
		}
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	if s.Token == "" {
		return ErrNoToken
	}
	var raw []byte
	if s.User != nil {
		b, err := json.Marshal(s.User)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		raw = b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = s.Token
	m.user = raw
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.user = nil
	return nil
}
