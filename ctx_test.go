package users_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContext(t *testing.T) {
	user := newTestUser()

	ctx := users.WithContext(context.Background(), user)

	got, ok := users.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user.GetID(), got.GetID())

	_, ok = users.FromContext(context.Background())
	assert.False(t, ok)
}

func TestCurrentUser(t *testing.T) {
	user := newTestUser()

	t.Run("reads the middleware local", func(t *testing.T) {
		ctx := &MockContext{}
		ctx.On("Locals", "user").Return(user)

		got, ok := users.CurrentUser(ctx, "")
		require.True(t, ok)
		assert.Equal(t, user.GetID(), got.GetID())
	})

	t.Run("missing local", func(t *testing.T) {
		ctx := &MockContext{}
		ctx.On("Locals", "user").Return(nil)

		_, ok := users.CurrentUser(ctx, "user")
		assert.False(t, ok)

		_, err := users.RequireUser(ctx, "user")
		assert.ErrorIs(t, err, users.ErrUnauthenticated)
	})
}
