package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "jwt:blacklist:"

// TokenBlacklist remembers revoked tokens until they expire. It prefers Redis and
// falls back to process memory when no client is configured.
type TokenBlacklist struct {
	rc  *redis.Client
	mu  sync.RWMutex
	mem map[string]time.Time
}

// NewTokenBlacklist creates a blacklist; rc may be nil.
func NewTokenBlacklist(rc *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rc: rc, mem: map[string]time.Time{}}
}

// Add revokes token until expiresAt.
func (b *TokenBlacklist) Add(ctx context.Context, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := b.rc.Set(ctx, blacklistPrefix+token, "1", ttl).Err(); err == nil {
			return
		}
	}
	b.mu.Lock()
	b.mem[token] = expiresAt
	b.mu.Unlock()
}

// Contains checks if a token was revoked before natural expiration.
func (b *TokenBlacklist) Contains(ctx context.Context, token string) bool {
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := b.rc.Exists(ctx, blacklistPrefix+token).Result()
		if err == nil && n > 0 {
			return true
		}
		// Redis errors fall through to memory so a flaky cache never locks members out.
	}
	b.mu.RLock()
	exp, ok := b.mem[token]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		b.mu.Lock()
		delete(b.mem, token)
		b.mu.Unlock()
		return false
	}
	return true
}
