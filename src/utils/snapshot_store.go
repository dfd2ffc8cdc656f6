package utils

import (
	"sort"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// SnapshotStore keeps the last-observed state per key across poll cycles.
// With maxEntries == 0 it only ever grows; otherwise Prune evicts the least
// recently seen keys once per cycle.
// -----------------------------------------------------------------------------

type SnapshotStore[T any] struct {
	entries    map[string]snapshotSlot[T]
	maxEntries int
	mu         sync.RWMutex
}

type snapshotSlot[T any] struct {
	value    T
	lastSeen time.Time
}

// -----------------------------------------------------------------------------

func NewSnapshotStore[T any](maxEntries int) *SnapshotStore[T] {
	return &SnapshotStore[T]{
		entries:    make(map[string]snapshotSlot[T]),
		maxEntries: maxEntries,
	}
}

// -----------------------------------------------------------------------------

// Get returns the snapshot for key, if one was recorded
func (s *SnapshotStore[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.entries[key]
	return slot.value, ok
}

// -----------------------------------------------------------------------------

// Put records value for key as seen at seenAt
func (s *SnapshotStore[T]) Put(key string, value T, seenAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = snapshotSlot[T]{value: value, lastSeen: seenAt}
}

// -----------------------------------------------------------------------------

// Prune evicts the least recently seen keys until the store is back within
// its bound and returns how many were evicted. Keys seen at or after cycle
// are never evicted, so the store may stay above the bound while more keys
// are live than it allows.
func (s *SnapshotStore[T]) Prune(cycle time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxEntries <= 0 || len(s.entries) <= s.maxEntries {
		return 0
	}

	type aged struct {
		key      string
		lastSeen time.Time
	}
	stale := make([]aged, 0, len(s.entries))
	for k, slot := range s.entries {
		if slot.lastSeen.Before(cycle) {
			stale = append(stale, aged{key: k, lastSeen: slot.lastSeen})
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		if stale[i].lastSeen.Equal(stale[j].lastSeen) {
			return stale[i].key < stale[j].key
		}
		return stale[i].lastSeen.Before(stale[j].lastSeen)
	})

	evicted := 0
	for _, a := range stale {
		if len(s.entries) <= s.maxEntries {
			break
		}
		delete(s.entries, a.key)
		evicted++
	}
	return evicted
}

// -----------------------------------------------------------------------------

// Len returns the number of tracked keys
func (s *SnapshotStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// -----------------------------------------------------------------------------

// Values returns a copy of every tracked snapshot
func (s *SnapshotStore[T]) Values() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]T, len(s.entries))
	for k, slot := range s.entries {
		out[k] = slot.value
	}
	return out
}
