package memory

import (
	"context"
	"sync"
	"time"
)

// CounterCache mirrors the redis counter semantics: Increment on a missing
// key starts from zero, Get reports a miss once the entry's TTL has lapsed.
type CounterCache struct {
	mu      sync.Mutex
	values  map[string]int64
	expires map[string]time.Time
	nowFn   func() time.Time

	FailWith error
}

func NewCounterCache() *CounterCache {
	return &CounterCache{
		values:  make(map[string]int64),
		expires: make(map[string]time.Time),
		nowFn:   time.Now,
	}
}

func (c *CounterCache) SetNow(fn func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowFn = fn
}

func (c *CounterCache) expired(key string) bool {
	exp, ok := c.expires[key]
	return ok && !exp.After(c.nowFn())
}

func (c *CounterCache) Increment(_ context.Context, key string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return 0, c.FailWith
	}
	if c.expired(key) {
		delete(c.values, key)
		delete(c.expires, key)
	}
	c.values[key] += delta
	return c.values[key], nil
}

func (c *CounterCache) Get(_ context.Context, key string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return 0, false, c.FailWith
	}
	if c.expired(key) {
		delete(c.values, key)
		delete(c.expires, key)
	}
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *CounterCache) SetWithTTL(_ context.Context, key string, value int64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return c.FailWith
	}
	c.values[key] = value
	c.expires[key] = c.nowFn().Add(ttl)
	return nil
}

func (c *CounterCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return c.FailWith
	}
	delete(c.values, key)
	delete(c.expires, key)
	return nil
}

type rollupKey struct {
	Scope string
	Day   string
	Kind  string
}

type ActivityRollups struct {
	mu   sync.Mutex
	rows map[rollupKey]int64
}

func NewActivityRollups() *ActivityRollups {
	return &ActivityRollups{rows: make(map[rollupKey]int64)}
}

func (r *ActivityRollups) BumpUserDaily(_ context.Context, userID, day, kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[rollupKey{Scope: "user:" + userID, Day: day, Kind: kind}]++
	return nil
}

func (r *ActivityRollups) BumpGlobalDaily(_ context.Context, day, kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[rollupKey{Scope: "global", Day: day, Kind: kind}]++
	return nil
}

func (r *ActivityRollups) UserDaily(userID, day, kind string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[rollupKey{Scope: "user:" + userID, Day: day, Kind: kind}]
}
