package users

import (
	"context"
	"time"
)

// DefaultBootstrapRetryInterval is how long the admin bootstrap waits
// between attempts when the store is unavailable.
var DefaultBootstrapRetryInterval = 5 * time.Second

// AdminBootstrap guarantees a usable administrator account exists at
// startup. It retries until it succeeds or its context is canceled, so a
// store that comes up late does not leave the deployment without an
// admin. An existing admin account is never modified: in particular its
// password hash is left alone.
type AdminBootstrap struct {
	store    UserStore
	username string
	password string
	interval time.Duration
	logger   Logger
}

// NewAdminBootstrap creates a bootstrap for the given admin credentials.
func NewAdminBootstrap(store UserStore, username, password string) *AdminBootstrap {
	return &AdminBootstrap{
		store:    store,
		username: username,
		password: password,
		interval: DefaultBootstrapRetryInterval,
		logger:   defLogger{},
	}
}

// WithRetryInterval overrides the wait between failed attempts.
func (b *AdminBootstrap) WithRetryInterval(d time.Duration) *AdminBootstrap {
	if d > 0 {
		b.interval = d
	}
	return b
}

// WithLogger overrides the bootstrap logger.
func (b *AdminBootstrap) WithLogger(l Logger) *AdminBootstrap {
	if l != nil {
		b.logger = l
	}
	return b
}

// Run performs the bootstrap, retrying on failure until the context is
// canceled. It returns the admin user on success.
func (b *AdminBootstrap) Run(ctx context.Context) (*User, error) {
	if b.username == "" {
		return nil, ErrMissingIdentifier
	}

	if b.password == "" {
		return nil, ErrMissingPassword
	}

	hash, err := HashPassword(b.password)
	if err != nil {
		return nil, err
	}

	for {
		user, created, err := b.store.EnsureAdmin(ctx, b.username, hash)
		if err == nil {
			if created {
				b.logger.Info("created admin account %s", b.username)
			} else {
				b.logger.Debug("admin account %s already present", b.username)
			}
			return user, nil
		}

		b.logger.Error("admin bootstrap attempt failed: %v", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.interval):
		}
	}
}
