package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implements Store in process memory. It suits single-node deployments and tests.
type MemoryStore struct {
	mu    sync.Mutex
	items *gocache.Cache
}

// NewMemoryStore builds a MemoryStore that evicts expired entries every cleanup interval.
func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &MemoryStore{items: gocache.New(gocache.NoExpiration, cleanup)}
}

type counter struct {
	value     int64
	expiresAt time.Time
}

// IncrementWithTTL increments a counter whose window starts at the first increment.
func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if raw, ok := s.items.Get(key); ok {
		if c, ok := raw.(counter); ok && c.expiresAt.After(now) {
			c.value++
			s.items.Set(key, c, c.expiresAt.Sub(now))
			return c.value, c.expiresAt.Sub(now), nil
		}
	}

	c := counter{value: 1, expiresAt: now.Add(window)}
	s.items.Set(key, c, window)
	return 1, window, nil
}

// Set stores a copy of value. A non-positive ttl keeps the entry until deleted.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.items.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, ok := s.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	value, ok := raw.([]byte)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Delete removes keys from the store.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.items.Delete(key)
	}
	return nil
}
