package cache

import (
	"sync"
	"time"
)

// Expiring is a map whose entries each carry their own deadline. There is
// no size-based eviction: an entry only leaves when it expires or is
// deleted.
type Expiring[T any] struct {
	mu    sync.Mutex
	now   func() time.Time
	items map[string]entry[T]
}

type entry[T any] struct {
	data      T
	expiresAt time.Time
}

// NewExpiring returns an empty cache reading time from now (time.Now when nil).
func NewExpiring[T any](now func() time.Time) *Expiring[T] {
	if now == nil {
		now = time.Now
	}
	return &Expiring[T]{now: now, items: make(map[string]entry[T])}
}

// Get retrieves a live value.
func (c *Expiring[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return e.data, true
}

// Set stores data until expiresAt, replacing any previous entry.
func (c *Expiring[T]) Set(key string, data T, expiresAt time.Time) {
	c.mu.Lock()
	c.items[key] = entry[T]{data: data, expiresAt: expiresAt}
	c.mu.Unlock()
}

func (c *Expiring[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *Expiring[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Size returns the current number of items, expired ones included until
// they are cleaned.
func (c *Expiring[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
