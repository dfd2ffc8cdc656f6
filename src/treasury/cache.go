package treasury

import (
	"sync"
	"time"

	"gateway-dashboard/src/utils"
)

// TTLCache holds one value per key with its capture time. A value is served
// only while now - capturedAt < ttl; after that the next read must refetch.
// The last value is kept past expiry so callers can degrade to it.
// Concurrent refreshes are last-writer-wins.
type TTLCache[T any] struct {
	ttl   time.Duration
	clock utils.Clock

	mu      sync.RWMutex
	entries map[string]cacheEntry[T]
}

type cacheEntry[T any] struct {
	value      T
	capturedAt time.Time
}

// -----------------------------------------------------------------------------

func NewTTLCache[T any](ttl time.Duration, clock utils.Clock) *TTLCache[T] {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &TTLCache[T]{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry[T]),
	}
}

// -----------------------------------------------------------------------------

// Get returns the value for key while it is inside its TTL window.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.clock.Now().Sub(entry.capturedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return entry.value, true
}

// -----------------------------------------------------------------------------

// Last returns the most recent value for key regardless of age.
func (c *TTLCache[T]) Last(key string) (T, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	return entry.value, entry.capturedAt, ok
}

// -----------------------------------------------------------------------------

// Put stores value under key and returns its capture time.
func (c *TTLCache[T]) Put(key string, value T) time.Time {
	now := c.clock.Now()

	c.mu.Lock()
	c.entries[key] = cacheEntry[T]{value: value, capturedAt: now}
	c.mu.Unlock()

	return now
}

// -----------------------------------------------------------------------------

func (c *TTLCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
