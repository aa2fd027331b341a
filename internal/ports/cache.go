package ports

import (
	"context"
	"time"
)

// CounterCache is the derived-counter store. Increment must be a single
// atomic primitive in the backing store, never read-modify-write.
type CounterCache interface {
	Increment(ctx context.Context, key string, delta int64) (int64, error)
	Get(ctx context.Context, key string) (int64, bool, error)
	SetWithTTL(ctx context.Context, key string, value int64, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ActivityRollups maintains the best-effort per-user and per-day activity
// aggregates. Failures here are observability losses, never retried.
type ActivityRollups interface {
	BumpUserDaily(ctx context.Context, userID, day, kind string) error
	BumpGlobalDaily(ctx context.Context, day, kind string) error
}
