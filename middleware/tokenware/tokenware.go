package tokenware

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

var defaultTokenLookup = "header:" + router.HeaderAuthorization

// Every authentication failure maps to the same status so callers cannot
// tell a missing account from a revoked or expired token.
var (
	ErrTokenMissing = goerrors.New("Missing or malformed authentication token", goerrors.CategoryAuth).
			WithTextCode("TOKEN_MISSING").
			WithCode(goerrors.CodeForbidden)

	ErrTokenInvalid = goerrors.New("Invalid authentication token", goerrors.CategoryAuth).
			WithTextCode("TOKEN_INVALID").
			WithCode(goerrors.CodeForbidden)

	ErrTokenRevoked = goerrors.New("Token has been revoked", goerrors.CategoryAuth).
			WithTextCode("TOKEN_REVOKED").
			WithCode(goerrors.CodeForbidden)

	ErrTokenExpired = goerrors.New("Authentication token has expired", goerrors.CategoryAuth).
			WithTextCode("TOKEN_EXPIRED").
			WithCode(goerrors.CodeForbidden)
)

// Claims interface for verified token claims without import cycles.
// This mirrors the TokenClaims type from the users package.
type Claims interface {
	GetUserID() string
	GetTokenID() string
	GetIssuedTime() time.Time
}

// TokenVerifier checks a raw token's signature and shape and returns its
// claims. It does not consult the account record; that is the
// middleware's job.
type TokenVerifier interface {
	Verify(tokenString string) (Claims, error)
}

// User is the slice of the account record the middleware needs to decide
// revocation.
type User interface {
	GetID() string
	GetTokenID() string
}

// UserResolver loads the account behind a set of claims, normally through
// the session cache.
type UserResolver interface {
	Resolve(ctx context.Context, id string) (User, error)
}

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	ContextKey     string
	TokenLookup    string
	AuthScheme     string

	// TokenVerifier is required for signature verification
	TokenVerifier TokenVerifier
	// UserResolver is required; every request re-checks the live account
	UserResolver UserResolver

	// TokenExpiration returns the current validity window in seconds.
	// Zero or negative means tokens never expire by age. It is read per
	// request so the window can change at runtime without re-issuing
	// tokens.
	TokenExpiration func() int

	// ContextEnricher is an optional function to propagate the resolved
	// user to the standard Go context. If provided, it is called after
	// all token checks pass.
	ContextEnricher func(c context.Context, user User) context.Context

	// Clock overrides time.Now for expiry checks.
	Clock func() time.Time
}

func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.TokenVerifier.Verify(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, ErrTokenInvalid)
			}

			user, err := cfg.UserResolver.Resolve(ctx.Context(), claims.GetUserID())
			if err != nil {
				if goerrors.IsNotFound(err) {
					// an unknown user id looks exactly like a bad token
					return cfg.ErrorHandler(ctx, ErrTokenInvalid)
				}
				// a store failure is not an authentication verdict
				return cfg.ErrorHandler(ctx, err)
			}

			if claims.GetTokenID() != user.GetTokenID() {
				return cfg.ErrorHandler(ctx, ErrTokenRevoked)
			}

			if window := cfg.TokenExpiration(); window > 0 {
				age := cfg.Clock().Sub(claims.GetIssuedTime())
				if age > time.Duration(window)*time.Second {
					return cfg.ErrorHandler(ctx, ErrTokenExpired)
				}
			}

			ctx.Locals(cfg.ContextKey, user)

			// if a context enricher we use it to propagate the user to the standard context
			if cfg.ContextEnricher != nil {
				stdCtx := ctx.Context()
				ctx.SetContext(cfg.ContextEnricher(stdCtx, user))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			var richErr *goerrors.Error
			if !goerrors.As(err, &richErr) {
				richErr = ErrTokenInvalid
			}
			if richErr.Category != goerrors.CategoryAuth {
				// store trouble, not a bad credential
				return c.JSON(router.StatusInternalServerError, map[string]any{
					"error": "Internal server error",
				})
			}
			return c.JSON(router.StatusForbidden, map[string]any{
				"error": richErr.Message,
			})
		}
	}

	if cfg.TokenVerifier == nil {
		panic("USERS: token middleware configuration: TokenVerifier is required.")
	}

	if cfg.UserResolver == nil {
		panic("USERS: token middleware configuration: UserResolver is required.")
	}

	if cfg.TokenExpiration == nil {
		cfg.TokenExpiration = func() int { return 0 }
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		//header:Authorization
		parts := strings.Split(strings.TrimSpace(rootPart), ":")

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, tokenFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

type TokenExtractor func(c router.Context) (string, error)

// tokenFromHeader returns a function that extracts token from the request header.
func tokenFromHeader(header string, authScheme string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			return "", ErrTokenMissing
		}
		authScheme = strings.TrimSpace(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrTokenMissing
	}
}

// tokenFromQuery returns a function that extracts token from the query string.
func tokenFromQuery(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

// tokenFromParam returns a function that extracts token from the url param string.
func tokenFromParam(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts token from the named cookie.
func tokenFromCookie(name string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}
