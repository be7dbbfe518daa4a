package middleware

import (
	"context"
	"time"

	"github.com/charlesng35/omnikit/internal/cache"
)

const rateKeyPrefix = "ratelimit:"

// RateStore counts hits per key in fixed windows. Increment returns the count so far
// in the current window and the time until it resets.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// RateStoreFunc lets a plain function serve as a RateStore.
type RateStoreFunc func(ctx context.Context, key string, window time.Duration) (int, time.Duration, error)

// Increment calls f.
func (f RateStoreFunc) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	return f(ctx, key, window)
}

// NewMemoryRateStore keeps counters in process memory. Each replica gets its own budget.
func NewMemoryRateStore() RateStore {
	return NewStoreRateStore(cache.NewMemoryStore(time.Minute))
}

// NewStoreRateStore keeps counters in a cache.Store. With the database store every
// replica draws from one budget.
func NewStoreRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return RateStoreFunc(func(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
		count, ttl, err := store.IncrementWithTTL(ctx, rateKeyPrefix+key, window)
		return int(count), ttl, err
	})
}
