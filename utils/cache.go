package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = time.Minute

// RedisCache stores rendered payloads in Redis. A nil client turns every call into a miss.
type RedisCache struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRedisCache creates a cache with the given default TTL.
func NewRedisCache(rc *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{rc: rc, ttl: ttl}
}

// Get returns cached bytes for a key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil && Sugar != nil {
			Sugar.Debugf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

// Set stores bytes with the default TTL.
func (c *RedisCache) Set(ctx context.Context, key string, b []byte) {
	if c == nil || c.rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, c.ttl).Err(); err != nil && Sugar != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// InvalidatePrefix deletes keys that match the given prefix using SCAN.
func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) {
	if c == nil || c.rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := c.rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			if Sugar != nil {
				Sugar.Warnf("cache invalidate failed prefix=%s err=%v", prefix, err)
			}
			return
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := c.rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			return
		}
	}
}
