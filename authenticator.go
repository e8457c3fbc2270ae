package users

import (
	"context"
)

// Authenticator implements the credential login flow: resolve the account
// by identifier, check account state, verify the password, and issue a
// token bound to the account's current token_id.
type Authenticator struct {
	service *Service
	issuer  TokenIssuer
	logger  Logger
}

// NewAuthenticator creates an Authenticator over the given service and
// token issuer.
func NewAuthenticator(service *Service, issuer TokenIssuer) *Authenticator {
	return &Authenticator{
		service: service,
		issuer:  issuer,
		logger:  defLogger{},
	}
}

// WithLogger overrides the authenticator logger.
func (a *Authenticator) WithLogger(l Logger) *Authenticator {
	if l != nil {
		a.logger = l
	}
	return a
}

// Login verifies identifier and password and returns a signed token plus
// the authenticated user. An unknown identifier and a wrong password
// produce the same error, so callers cannot probe which accounts exist.
// Logging in does not rotate the token_id: previously issued tokens for
// the account remain valid.
func (a *Authenticator) Login(ctx context.Context, identifier, password string) (string, *User, error) {
	if identifier == "" {
		return "", nil, ErrMissingIdentifier
	}

	if password == "" {
		return "", nil, ErrMissingPassword
	}

	user, err := a.service.Store().FindByIdentifier(ctx, identifier)
	if err != nil {
		if IsNotFoundError(err) || IsAmbiguousIdentifierError(err) {
			// same failure as a bad password on purpose; the log keeps
			// the real reason
			a.logger.Warn("login identifier resolution failed for %q: %v", identifier, err)
			return "", nil, ErrIncorrectPassword
		}
		return "", nil, err
	}

	// account state gates come before the password check: a locked or
	// unactivated account is rejected even with the right credentials
	if !user.Activated && !user.IsAdmin {
		return "", nil, ErrAccountNotActivated
	}

	if user.Locked {
		return "", nil, ErrAccountLocked
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return "", nil, err
	}

	token, err := a.issuer.Sign(user.GetID(), user.GetTokenID())
	if err != nil {
		return "", nil, err
	}

	// best effort: a failed login stamp should not fail the login
	if err := a.service.RegisterLastLogin(ctx, user.GetID()); err != nil {
		a.logger.Error("failed to register last login for %s: %v", user.GetID(), err)
	}

	return token, user, nil
}
