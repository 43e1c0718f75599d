package session

import (
	"context"
	"sync"
	"time"
)

// Storage is a session-scoped string key/value store, the server-side
// counterpart of the browser's session storage.
type Storage interface {
	// Get returns the value and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type entry struct {
	value   string
	expires time.Time
}

// MemoryStorage keeps values in process memory. With a positive TTL an entry
// expires that long after its last read or write, matching the Redis storage.
type MemoryStorage struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	values map[string]entry
}

// NewMemoryStorage creates an empty in-memory store; ttl <= 0 keeps entries
// until deleted
func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	return &MemoryStorage{
		ttl:    ttl,
		now:    time.Now,
		values: make(map[string]entry),
	}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.values[key]
	if !ok {
		return "", false, nil
	}
	if e.expired(now) {
		delete(m.values, key)
		return "", false, nil
	}

	e.expires = m.expiry(now)
	m.values[key] = e
	return e.value, true, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = entry{value: value, expires: m.expiry(m.now())}
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Prune removes entries expired at now and returns how many were removed
func (m *MemoryStorage) Prune(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.values {
		if e.expired(now) {
			delete(m.values, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included until pruned
func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

func (m *MemoryStorage) expiry(now time.Time) time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(m.ttl)
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}
