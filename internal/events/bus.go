// Package events is the process-wide session signal bus. The API client
// publishes Unauthorized on any 401 response; session observers subscribe
// and reset. Delivery is synchronous on the publishing goroutine.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetly/internal/log"
)

// Kind identifies a session signal.
type Kind string

const (
	Unauthorized   Kind = "unauthorized"
	SessionStarted Kind = "session_started"
	SessionEnded   Kind = "session_ended"
)

// Event is one signal. Origin is the id of the bus that first published it,
// so bridged events can be told apart from local ones.
type Event struct {
	Kind      Kind      `json:"kind"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler receives events. Handlers must not block.
type Handler func(Event)

type Bus struct {
	id     string
	logger *log.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
}

func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Discard()
	}
	return &Bus{
		id:     uuid.NewString(),
		logger: logger.WithComponent(log.ComponentEvents),
		subs:   make(map[int]Handler),
	}
}

// ID identifies this process on a bridged bus.
func (b *Bus) ID() string { return b.id }

// IsLocal reports whether e originated on this bus.
func (b *Bus) IsLocal(e Event) bool { return e.Origin == "" || e.Origin == b.id }

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every subscriber. A missing origin or timestamp is
// filled in.
func (b *Bus) Publish(e Event) {
	if e.Origin == "" {
		e.Origin = b.id
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	b.logger.Debug("Publishing event", log.FieldEvent, string(e.Kind), log.FieldOrigin, e.Origin, log.FieldCount, len(handlers))
	for _, h := range handlers {
		h(e)
	}
}

// Emit publishes a local event of the given kind.
func (b *Bus) Emit(kind Kind) {
	b.Publish(Event{Kind: kind})
}
