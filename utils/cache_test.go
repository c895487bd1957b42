package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestRedisCacheGetSetInvalidate(t *testing.T) {
	ctx := context.Background()
	mr, rc := newMiniRedis(t)
	c := NewRedisCache(rc, 30*time.Second)

	_, ok := c.Get(ctx, "cache:stats:all:2026-03-02")
	assert.False(t, ok)

	c.Set(ctx, "cache:stats:all:2026-03-02", []byte(`{"a":1}`))
	c.Set(ctx, "cache:stats:all:2026-03-09", []byte(`{"a":2}`))
	c.Set(ctx, "other:key", []byte("x"))

	b, ok := c.Get(ctx, "cache:stats:all:2026-03-02")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(b))
	assert.Equal(t, 30*time.Second, mr.TTL("cache:stats:all:2026-03-02"))

	c.InvalidatePrefix(ctx, "cache:stats:")
	assert.False(t, mr.Exists("cache:stats:all:2026-03-02"))
	assert.False(t, mr.Exists("cache:stats:all:2026-03-09"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisCacheExpires(t *testing.T) {
	ctx := context.Background()
	mr, rc := newMiniRedis(t)
	c := NewRedisCache(rc, time.Second)
	c.Set(ctx, "k", []byte("v"))
	mr.FastForward(2 * time.Second)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCacheNilClientIsNoop(t *testing.T) {
	ctx := context.Background()
	c := NewRedisCache(nil, 0)
	c.Set(ctx, "k", []byte("v"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	c.InvalidatePrefix(ctx, "k")

	var nilCache *RedisCache
	_, ok = nilCache.Get(ctx, "k")
	assert.False(t, ok)
}
