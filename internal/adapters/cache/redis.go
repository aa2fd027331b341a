package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/viralforge/interaction-service/internal/ports"
)

func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisCounterCache backs the derived counters with atomic INCRBY. Counter
// keys expire so a stale or drifted value is eventually rebuilt from the
// authoritative store.
type RedisCounterCache struct {
	client     *redis.Client
	counterTTL time.Duration
}

func NewRedisCounterCache(client *redis.Client, counterTTL time.Duration) *RedisCounterCache {
	if counterTTL <= 0 {
		counterTTL = time.Hour
	}
	return &RedisCounterCache{client: client, counterTTL: counterTTL}
}

func (c *RedisCounterCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	value, err := c.client.IncrBy(ctx, key, delta).Result()
	if err != nil {
		return 0, err
	}
	_ = c.client.Expire(ctx, key, c.counterTTL).Err()
	return value, nil
}

func (c *RedisCounterCache) Get(ctx context.Context, key string) (int64, bool, error) {
	value, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (c *RedisCounterCache) SetWithTTL(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.counterTTL
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCounterCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

var _ ports.CounterCache = (*RedisCounterCache)(nil)

// RedisActivityRollups keeps the best-effort daily aggregates as hashes:
// one per user per day, one global per day, each field an event kind.
type RedisActivityRollups struct {
	client    *redis.Client
	userTTL   time.Duration
	globalTTL time.Duration
}

func NewRedisActivityRollups(client *redis.Client) *RedisActivityRollups {
	return &RedisActivityRollups{
		client:    client,
		userTTL:   48 * time.Hour,
		globalTTL: 40 * 24 * time.Hour,
	}
}

func (r *RedisActivityRollups) BumpUserDaily(ctx context.Context, userID, day, kind string) error {
	key := "interaction:activity:" + userID + ":" + day
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HIncrBy(ctx, key, kind, 1)
		p.Expire(ctx, key, r.userTTL)
		return nil
	})
	return err
}

func (r *RedisActivityRollups) BumpGlobalDaily(ctx context.Context, day, kind string) error {
	key := "interaction:daily:" + day
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HIncrBy(ctx, key, kind, 1)
		p.Expire(ctx, key, r.globalTTL)
		return nil
	})
	return err
}

var _ ports.ActivityRollups = (*RedisActivityRollups)(nil)
