package users

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface the package needs. Any structured
// logger can be adapted to it.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the runtime options for the auth core.
type Config interface {
	GetSigningKey() string
	// GetTokenExpiration returns the validity window in seconds for issued
	// tokens. Zero means tokens never expire by age.
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetContextKey() string
	GetAdminUsername() string
	GetAdminPassword() string
	GetCacheTTL() time.Duration
	GetBootstrapRetryInterval() time.Duration
}

// UserStore is the authoritative account storage, consumed as an external
// collaborator. Adapters live under repository.
type UserStore interface {
	// FindByIdentifier resolves a user by username, e-mail address, or id.
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, id string, patch UserPatch) (*User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) (*User, error)
	// RotateTokenID replaces the user's token_id with a fresh value,
	// invalidating every previously issued token.
	RotateTokenID(ctx context.Context, id string) (*User, error)
	RegisterLastLogin(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q ListQuery) (*UserPage, error)
	// EnsureAdmin finds or creates the administrator account. The password
	// hash is applied only when the record does not already carry one.
	EnsureAdmin(ctx context.Context, username, passwordHash string) (*User, bool, error)
}

// UserCache is the session cache shielding the store from per-request
// lookups. A miss is a normal outcome, never an error; implementations
// that can fail internally (e.g. Redis) log and report a miss instead.
type UserCache interface {
	Get(ctx context.Context, id string) (*User, bool)
	Set(ctx context.Context, id string, user *User)
	Invalidate(ctx context.Context, id string)
}

// TokenVerifier validates a raw token and returns its claims. It performs
// signature and shape checks only; revocation and expiry are policy
// enforced by the middleware against live user state.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// TokenIssuer signs a token binding a user to its current token_id.
type TokenIssuer interface {
	Sign(userID, tokenID string) (string, error)
}

// TokenService issues and verifies bearer tokens.
type TokenService interface {
	TokenIssuer
	TokenVerifier
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] USERS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] USERS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] USERS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] USERS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
