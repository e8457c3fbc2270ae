package users_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser() *users.User {
	now := time.Now()
	return &users.User{
		ID:           uuid.New(),
		Username:     "pepe",
		Email:        "pepe@example.com",
		DisplayName:  "Pepe Rone",
		PasswordHash: "$2a$12$fakehash",
		Activated:    true,
		TokenID:      uuid.NewString(),
		CreatedAt:    &now,
	}
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()

	t.Run("miss on unknown id", func(t *testing.T) {
		cache := users.NewMemoryCache(time.Minute)
		got, ok := cache.Get(ctx, "nope")
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("hit returns a cache-flagged snapshot", func(t *testing.T) {
		cache := users.NewMemoryCache(time.Minute)
		user := newTestUser()

		cache.Set(ctx, user.GetID(), user)

		got, ok := cache.Get(ctx, user.GetID())
		require.True(t, ok)
		assert.True(t, got.FromCache)
		assert.Equal(t, user.Username, got.Username)
		assert.Equal(t, user.TokenID, got.TokenID)
		// the source record is untouched
		assert.False(t, user.FromCache)
	})

	t.Run("mutating a returned snapshot does not leak back", func(t *testing.T) {
		cache := users.NewMemoryCache(time.Minute)
		user := newTestUser()
		cache.Set(ctx, user.GetID(), user)

		first, ok := cache.Get(ctx, user.GetID())
		require.True(t, ok)
		first.Username = "mutated"

		second, ok := cache.Get(ctx, user.GetID())
		require.True(t, ok)
		assert.Equal(t, user.Username, second.Username)
	})

	t.Run("set replaces and refreshes the entry", func(t *testing.T) {
		cache := users.NewMemoryCache(time.Minute)
		user := newTestUser()
		cache.Set(ctx, user.GetID(), user)

		updated := user.Clone()
		updated.Username = "renamed"
		cache.Set(ctx, user.GetID(), updated)

		got, ok := cache.Get(ctx, user.GetID())
		require.True(t, ok)
		assert.Equal(t, "renamed", got.Username)
		assert.Equal(t, 1, cache.Len())
	})
}

func TestMemoryCache_TTL(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("entry expires after the ttl", func(t *testing.T) {
		now := base
		cache := users.NewMemoryCache(30 * time.Second).
			WithClock(func() time.Time { return now })

		user := newTestUser()
		cache.Set(ctx, user.GetID(), user)

		now = base.Add(29 * time.Second)
		_, ok := cache.Get(ctx, user.GetID())
		assert.True(t, ok)

		now = base.Add(31 * time.Second)
		_, ok = cache.Get(ctx, user.GetID())
		assert.False(t, ok)

		// expired entries get evicted on read
		assert.Equal(t, 0, cache.Len())
	})
}

func TestMemoryCache_Invalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the entry", func(t *testing.T) {
		cache := users.NewMemoryCache(time.Minute)
		user := newTestUser()
		cache.Set(ctx, user.GetID(), user)

		cache.Invalidate(ctx, user.GetID())

		_, ok := cache.Get(ctx, user.GetID())
		assert.False(t, ok)
	})

	t.Run("missing key is a no-op", func(t *testing.T) {
		cache := users.NewMemoryCache(time.Minute)
		assert.NotPanics(t, func() {
			cache.Invalidate(ctx, "never-set")
		})
	})
}

func TestMemoryCache_Concurrency(t *testing.T) {
	ctx := context.Background()
	cache := users.NewMemoryCache(time.Minute)
	user := newTestUser()
	id := user.GetID()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			cache.Set(ctx, id, user)
		}()
		go func() {
			defer wg.Done()
			cache.Get(ctx, id)
		}()
		go func() {
			defer wg.Done()
			cache.Invalidate(ctx, id)
		}()
	}
	wg.Wait()
}
