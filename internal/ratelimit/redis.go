package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces quote intake counters.
const DefaultRedisPrefix = "rl:quote:"

// RedisStore shares counters across processes using INCR with an expiry set
// on the first hit of each window.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if client == nil {
		panic("ratelimit: redis client required")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	fullKey := s.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		ttl = pipe.PTTL(ctx, fullKey)
		return nil
	}); err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count := incr.Val()
	remaining := ttl.Val()
	now := s.now()

	// First hit of a window, or a key that somehow lost its expiry.
	if count == 1 || remaining < 0 {
		if err := s.client.PExpire(ctx, fullKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return count, now, nil
	}
	return count, now.Add(remaining - window), nil
}
