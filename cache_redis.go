package users

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a UserCache backed by a shared Redis tier, for deployments
// running more than one service instance. Snapshots are stored as JSON
// under a key prefix, with the TTL enforced server-side by Redis.
//
// Cache failures are never allowed to fail a request: every Redis error is
// logged and reported as a miss (Get) or swallowed (Set, Invalidate); the
// store remains the source of truth.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger Logger
}

// NewRedisCache creates a Redis-backed cache with the given TTL. A zero or
// negative TTL falls back to DefaultCacheTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: "users:",
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used for cache failures.
func (c *RedisCache) WithLogger(l Logger) *RedisCache {
	if l != nil {
		c.logger = l
	}
	return c
}

// WithKeyPrefix overrides the key namespace, default "users:".
func (c *RedisCache) WithKeyPrefix(prefix string) *RedisCache {
	c.prefix = prefix
	return c
}

func (c *RedisCache) key(id string) string {
	return c.prefix + id
}

// Get returns the cached user for id, marking it as cache-served.
func (c *RedisCache) Get(ctx context.Context, id string) (*User, bool) {
	payload, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("redis cache read failed for %s: %v", id, err)
		}
		return nil, false
	}

	user := &User{}
	if err := json.Unmarshal(payload, user); err != nil {
		// A snapshot we cannot decode is worse than a miss: drop it.
		c.logger.Warn("redis cache entry for %s corrupt, evicting: %v", id, err)
		c.Invalidate(ctx, id)
		return nil, false
	}

	user.FromCache = true
	return user, true
}

// Set inserts or replaces the entry for id with a fresh TTL.
func (c *RedisCache) Set(ctx context.Context, id string, user *User) {
	if user == nil {
		return
	}

	snapshot := user.Clone()
	snapshot.FromCache = false

	payload, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.Warn("redis cache encode failed for %s: %v", id, err)
		return
	}

	if err := c.client.Set(ctx, c.key(id), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache write failed for %s: %v", id, err)
	}
}

// Invalidate removes the entry for id. Removing a missing key is a no-op.
func (c *RedisCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		c.logger.Warn("redis cache invalidate failed for %s: %v", id, err)
	}
}

var _ UserCache = (*RedisCache)(nil)
