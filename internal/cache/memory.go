package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/surflog/surf-forecast-service/internal/surfline"
)

// Memory is a concurrency-safe in-process spot cache. A ttl of 0 means
// entries never expire; the real-world spot-name cardinality is small enough
// that unbounded growth is acceptable, but the TTL keeps long-lived processes
// from serving stale provider metadata forever.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	clock   clockwork.Clock
}

type memoryEntry struct {
	ref      surfline.SpotReference
	storedAt time.Time
}

// NewMemory creates a memory cache with the given TTL (0 disables expiry).
func NewMemory(ttl time.Duration) *Memory {
	return newMemoryWithClock(ttl, clockwork.NewRealClock())
}

func newMemoryWithClock(ttl time.Duration, clock clockwork.Clock) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached reference for key, if present and unexpired.
func (m *Memory) Get(_ context.Context, key string) (surfline.SpotReference, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return surfline.SpotReference{}, false
	}
	if m.ttl > 0 && m.clock.Since(e.storedAt) > m.ttl {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return surfline.SpotReference{}, false
	}
	return e.ref, true
}

// Set stores a reference under key. Concurrent inserts of the same key race
// harmlessly to the same value.
func (m *Memory) Set(_ context.Context, key string, ref surfline.SpotReference) {
	m.mu.Lock()
	m.entries[key] = memoryEntry{ref: ref, storedAt: m.clock.Now()}
	m.mu.Unlock()
}
