package users

import (
	goerrors "github.com/goliatone/go-errors"
)

// ErrSigningKeyMissing is fatal at startup: the token secret must be
// configured before any token can be issued.
var ErrSigningKeyMissing = goerrors.New("token secret not set", goerrors.CategoryInternal).
	WithTextCode("SIGNING_KEY_MISSING").
	WithCode(goerrors.CodeInternal)

// ErrMissingIdentifier is returned when a login request has no username,
// e-mail address or id.
var ErrMissingIdentifier = goerrors.New("Missing username or e-mail address", goerrors.CategoryBadInput).
	WithTextCode("MISSING_IDENTIFIER").
	WithCode(goerrors.CodeBadRequest)

// ErrMissingPassword is returned when a login request has no password.
var ErrMissingPassword = goerrors.New("Missing password", goerrors.CategoryBadInput).
	WithTextCode("MISSING_PASSWORD").
	WithCode(goerrors.CodeBadRequest)

// ErrIncorrectPassword covers both a failed hash comparison and an unknown
// identifier. Collapsing the two keeps login responses from leaking which
// accounts exist; the server log still records the real cause.
var ErrIncorrectPassword = goerrors.New("Incorrect password", goerrors.CategoryAuth).
	WithTextCode("INCORRECT_PASSWORD").
	WithCode(goerrors.CodeForbidden)

// ErrAccountLocked is returned when a locked account attempts to log in.
var ErrAccountLocked = goerrors.New("This account is locked", goerrors.CategoryAuth).
	WithTextCode("ACCOUNT_LOCKED").
	WithCode(goerrors.CodeForbidden)

// ErrAccountNotActivated is returned when a non-admin account that has not
// been activated attempts to log in.
var ErrAccountNotActivated = goerrors.New("This user is not activated", goerrors.CategoryAuth).
	WithTextCode("ACCOUNT_NOT_ACTIVATED").
	WithCode(goerrors.CodeForbidden)

// ErrUserNotFound is returned by operations addressed to an id that does
// not exist in the store.
var ErrUserNotFound = goerrors.New("User not found", goerrors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrAmbiguousIdentifier is returned when an identifier matches more than
// one account. With unique username and e-mail constraints this means a
// username colliding with another account's e-mail address.
var ErrAmbiguousIdentifier = goerrors.New("identifier matches multiple users", goerrors.CategoryInternal).
	WithTextCode("AMBIGUOUS_IDENTIFIER").
	WithCode(goerrors.CodeInternal)

// ErrDuplicateUser is returned when a creation or update collides with an
// existing username or e-mail address.
var ErrDuplicateUser = goerrors.New("username or e-mail address already taken", goerrors.CategoryConflict).
	WithTextCode("DUPLICATE_USER").
	WithCode(goerrors.CodeConflict)

// ErrAdminOnly guards the admin-only operations (user creation, deletion).
var ErrAdminOnly = goerrors.New("Only administrators can perform this operation", goerrors.CategoryAuthz).
	WithTextCode("ADMIN_ONLY").
	WithCode(goerrors.CodeForbidden)

// ErrCrossUserModification is returned when a non-admin addresses another
// user's account.
var ErrCrossUserModification = goerrors.New("Unauthorized to modify another user", goerrors.CategoryAuthz).
	WithTextCode("CROSS_USER_MODIFICATION").
	WithCode(goerrors.CodeForbidden)

// ErrUnauthenticated is returned when a protected operation runs without a
// resolved user on the request context.
var ErrUnauthenticated = goerrors.New("no authenticated user on request", goerrors.CategoryAuth).
	WithTextCode("UNAUTHENTICATED").
	WithCode(goerrors.CodeForbidden)

// IsNotFoundError reports whether err marks a missing record.
func IsNotFoundError(err error) bool {
	return goerrors.IsNotFound(err)
}

// IsConflictError reports whether err marks a duplicate username or e-mail.
func IsConflictError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryConflict
}

// IsAmbiguousIdentifierError reports whether err marks an identifier that
// resolved to more than one account.
func IsAmbiguousIdentifierError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == ErrAmbiguousIdentifier.TextCode
}

// IsCredentialError reports whether err should be presented to the caller
// as a plain credential failure.
func IsCredentialError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == ErrIncorrectPassword.TextCode
}
