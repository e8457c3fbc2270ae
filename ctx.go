package users

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// CurrentUser extracts the authenticated User the middleware stored in the
// router context under key. An empty key falls back to "user".
func CurrentUser(ctx router.Context, key string) (*User, bool) {
	if key == "" {
		key = "user"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*User)
	return user, ok
}

// RequireUser is CurrentUser with an error for handlers that cannot run
// without an authenticated caller.
func RequireUser(ctx router.Context, key string) (*User, error) {
	user, ok := CurrentUser(ctx, key)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return user, nil
}
