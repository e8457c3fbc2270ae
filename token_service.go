package users

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidToken is returned when a token fails signature verification or
// is structurally malformed.
var ErrInvalidToken = goerrors.New("Invalid token", goerrors.CategoryAuth).
	WithTextCode("TOKEN_INVALID").
	WithCode(goerrors.CodeForbidden)

// TokenClaims is the payload carried by every issued token: the account it
// belongs to, the revocation marker it was bound to, and when it was
// signed. There is no exp claim; age limits are policy applied by the
// middleware, because the window is configurable at runtime and defaults
// to "never".
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID  string `json:"user_id"`
	TokenID string `json:"token_id"`
}

// GetUserID returns the id of the user the token was issued to.
func (c *TokenClaims) GetUserID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// GetTokenID returns the revocation marker embedded at signing time.
func (c *TokenClaims) GetTokenID() string {
	return c.TokenID
}

// GetIssuedTime returns the signing time, or the zero time when absent.
func (c *TokenClaims) GetIssuedTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// TokenServiceImpl implements TokenService over an HMAC signing key.
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a TokenService. A missing signing key is a
// configuration error and fails here, at startup, not per request.
func NewTokenService(signingKey []byte, issuer string, logger Logger) (*TokenServiceImpl, error) {
	if len(signingKey) == 0 {
		return nil, ErrSigningKeyMissing
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		issuer:     issuer,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// WithClock overrides the time source, useful in tests.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// Sign issues a token over {user_id, token_id, issued_at=now}.
func (ts *TokenServiceImpl) Sign(userID, tokenID string) (string, error) {
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   ts.issuer,
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(ts.now()),
		},
		UserID:  userID,
		TokenID: tokenID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Verify checks the signature and shape of a raw token and returns its
// claims. It deliberately does not check expiration or revocation; both
// depend on state the verifier does not hold.
func (ts *TokenServiceImpl) Verify(tokenString string) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token verify encountered unexpected signing method %v", t.Header["alg"])
			return nil, ErrInvalidToken
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, goerrors.Wrap(err, ErrInvalidToken.Category, ErrInvalidToken.Message).
			WithTextCode(ErrInvalidToken.TextCode).
			WithCode(ErrInvalidToken.Code)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token verify could not decode claims")
		return nil, ErrInvalidToken
	}

	return claims, nil
}

var _ TokenService = (*TokenServiceImpl)(nil)
