package users

import (
	"context"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how stale a cached user may be served when no
// intervening write invalidated it.
var DefaultCacheTTL = 30 * time.Second

type cacheEntry struct {
	user      *User
	expiresAt time.Time
}

// MemoryCache is the in-process UserCache. Entries are replaced atomically,
// never mutated in place, so concurrent readers observe either the old or
// the new snapshot.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates an in-process cache with the given TTL. A zero or
// negative TTL falls back to DefaultCacheTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock overrides the time source, useful in tests.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	if now != nil {
		c.now = now
	}
	return c
}

// Get returns the cached user for id, marking it as cache-served. An entry
// past its TTL is a miss and gets evicted on the way out.
func (c *MemoryCache) Get(ctx context.Context, id string) (*User, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if c.now().After(entry.expiresAt) {
		c.Invalidate(ctx, id)
		return nil, false
	}

	user := entry.user.Clone()
	user.FromCache = true
	return user, true
}

// Set inserts or replaces the entry for id with a fresh TTL.
func (c *MemoryCache) Set(ctx context.Context, id string, user *User) {
	if user == nil {
		return
	}

	snapshot := user.Clone()
	snapshot.FromCache = false

	c.mu.Lock()
	c.entries[id] = cacheEntry{
		user:      snapshot,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate removes the entry for id. Removing a missing key is a no-op.
func (c *MemoryCache) Invalidate(ctx context.Context, id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Len reports the number of live entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ UserCache = (*MemoryCache)(nil)
