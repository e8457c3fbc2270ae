package users_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUser_CanManage(t *testing.T) {
	user := newTestUser()
	other := uuid.New()

	t.Run("users manage themselves", func(t *testing.T) {
		assert.True(t, user.CanManage(user.GetID()))
	})

	t.Run("non-admins cannot manage others", func(t *testing.T) {
		assert.False(t, user.CanManage(other.String()))
	})

	t.Run("admins manage everyone", func(t *testing.T) {
		admin := newTestUser()
		admin.IsAdmin = true
		assert.True(t, admin.CanManage(other.String()))
	})

	t.Run("malformed target id", func(t *testing.T) {
		assert.False(t, user.CanManage("not-a-uuid"))
	})

	t.Run("nil receiver", func(t *testing.T) {
		var nobody *users.User
		assert.False(t, nobody.CanManage(other.String()))
	})
}

func TestUser_Sanitized(t *testing.T) {
	user := newTestUser()

	clean := user.Sanitized()
	assert.Empty(t, clean.PasswordHash)
	assert.Equal(t, user.Username, clean.Username)
	// original keeps its hash
	assert.NotEmpty(t, user.PasswordHash)
}

func TestUser_Clone(t *testing.T) {
	user := newTestUser()
	lastLogin := time.Now()
	user.LastLoginAt = &lastLogin

	clone := user.Clone()
	require := assert.New(t)
	require.Equal(user.ID, clone.ID)

	// timestamps are copied, not shared
	*clone.LastLoginAt = clone.LastLoginAt.Add(time.Hour)
	require.True(user.LastLoginAt.Equal(lastLogin))
}

func TestUserPatch_IsZero(t *testing.T) {
	assert.True(t, users.UserPatch{}.IsZero())

	name := "x"
	assert.False(t, users.UserPatch{Username: &name}.IsZero())

	locked := false
	assert.False(t, users.UserPatch{Locked: &locked}.IsZero())
}
