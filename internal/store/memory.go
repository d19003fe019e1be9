package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or expired.
	ErrNotFound = errors.New("cache key not found")

	// ErrUnavailable wraps failures of the backing store.
	ErrUnavailable = errors.New("cache store unavailable")
)

// item holds one value with its expiry.
type item struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a concurrency-safe in-memory TTL store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: namespaced cache key
	data map[string]item

	// maxItems caps the number of live keys (0 = unlimited)
	maxItems int

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore. If maxItems is <= 0, it is treated as unlimited.
func NewMemoryStore(maxItems int) *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]item),
		maxItems: maxItems,
		now:      time.Now,
	}
}

// WithClock replaces the store's time source. Intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Get returns the value stored under key along with its remaining TTL.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, remaining, ok := s.live(key)
	if !ok {
		return nil, 0, ErrNotFound
	}
	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, remaining, nil
}

// Set stores value under key, overwriting any previous value and resetting its TTL.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	buf := make([]byte, len(value))
	copy(buf, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = item{value: buf, expiresAt: s.now().Add(ttl)}
	s.evict(key)
	return nil
}

// TTL returns the remaining lifetime of key.
func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, remaining, ok := s.live(key)
	if !ok {
		return 0, ErrNotFound
	}
	return remaining, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// live must be called with s.mu held.
func (s *MemoryStore) live(key string) (item, time.Duration, bool) {
	it, ok := s.data[key]
	if !ok {
		return item{}, 0, false
	}
	remaining := it.expiresAt.Sub(s.now())
	if remaining <= 0 {
		return item{}, 0, false
	}
	return it, remaining, true
}

// evict enforces maxItems, dropping expired keys first and then the entries
// closest to expiry. Must be called with s.mu held for writing.
func (s *MemoryStore) evict(keep string) {
	now := s.now()
	for k, it := range s.data {
		if !it.expiresAt.After(now) {
			delete(s.data, k)
		}
	}
	if s.maxItems <= 0 {
		return
	}
	for len(s.data) > s.maxItems {
		var victim string
		var soonest time.Time
		for k, it := range s.data {
			if k == keep {
				continue
			}
			if victim == "" || it.expiresAt.Before(soonest) {
				victim, soonest = k, it.expiresAt
			}
		}
		if victim == "" {
			return
		}
		delete(s.data, victim)
	}
}
