package users

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Service orchestrates the store and the session cache. It owns the
// consistency policy: every mutation invalidates the user's cache entry
// after the store write and before success is reported, so a cached
// record can only be stale for the TTL window, never past a write.
type Service struct {
	store  UserStore
	cache  UserCache
	logger Logger
}

// NewService creates a Service over the given store and cache.
func NewService(store UserStore, cache UserCache) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: defLogger{},
	}
}

// WithLogger overrides the service logger.
func (s *Service) WithLogger(l Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// Store exposes the underlying store for collaborators that bypass the
// cache on purpose (login identifier resolution, bootstrap).
func (s *Service) Store() UserStore {
	return s.store
}

// Resolve returns the user for id, serving from cache when possible and
// populating the cache on a miss. Records coming out of the cache carry
// FromCache=true.
func (s *Service) Resolve(ctx context.Context, id string) (*User, error) {
	if user, ok := s.cache.Get(ctx, id); ok {
		return user, nil
	}

	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, id, user)
	return user, nil
}

// Invalidate drops the cache entry for id.
func (s *Service) Invalidate(ctx context.Context, id string) {
	s.cache.Invalidate(ctx, id)
}

// Create inserts a new user. Nothing to invalidate: a fresh id cannot be
// cached yet.
func (s *Service) Create(ctx context.Context, user *User) (*User, error) {
	return s.store.Create(ctx, user)
}

// Update applies a property patch and invalidates the cached record.
func (s *Service) Update(ctx context.Context, id string, patch UserPatch) (*User, error) {
	user, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, id)
	return user, nil
}

// ChangePassword hashes and stores a new password, then invalidates the
// cached record.
func (s *Service) ChangePassword(ctx context.Context, id string, newPassword string) (*User, error) {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	user, err := s.store.UpdatePassword(ctx, id, hash)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, id)
	return user, nil
}

// Revoke rotates the user's token_id, making every previously issued token
// permanently unusable, and invalidates the cached record as part of the
// same operation so stale token_ids stop being served immediately.
func (s *Service) Revoke(ctx context.Context, id string) (*User, error) {
	user, err := s.store.RotateTokenID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, id)
	return user, nil
}

// Delete removes the user. The cache entry is dropped even when the store
// delete fails: the invalidation is defensive, not a rollback, and a
// cached record for a half-deleted user is worse than a store error.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	s.cache.Invalidate(ctx, id)
	if err != nil {
		return err
	}
	return nil
}

// List queries the store directly; listings are not cached.
func (s *Service) List(ctx context.Context, q ListQuery) (*UserPage, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	return s.store.List(ctx, q)
}

// RegisterLastLogin stamps the login time and invalidates the cached
// record, since the stored user just changed.
func (s *Service) RegisterLastLogin(ctx context.Context, id string) error {
	if err := s.store.RegisterLastLogin(ctx, id); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register last login")
	}

	s.cache.Invalidate(ctx, id)
	return nil
}
