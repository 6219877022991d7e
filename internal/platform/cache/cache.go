// Package cache provides a small Redis-backed read cache. A nil *Cache is a
// safe no-op, so callers never branch on whether Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Cache struct {
	rdb *redis.Client
	log *zap.Logger
}

// New connects to Redis and verifies connectivity. An empty addr returns a
// nil cache, which disables caching entirely.
func New(ctx context.Context, addr, password string, log *zap.Logger) (*Cache, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Cache{rdb: rdb, log: log}, nil
}

// GetJSON loads key into v and reports whether it was present. Redis errors
// are treated as misses; the backing store is the source of truth.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.log.Warn("cache: corrupt entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores v under key with the given TTL, best effort.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("cache: marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warn("cache: set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops keys, best effort.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("cache: invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Close releases the underlying connection.
func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
