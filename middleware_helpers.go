package users

import (
	"context"

	"github.com/goliatone/go-users/middleware/tokenware"
)

// The middleware package mirrors our interfaces locally to avoid an
// import cycle; these adapters bridge the two sides.

type verifierAdapter struct {
	verifier TokenVerifier
}

func (a verifierAdapter) Verify(tokenString string) (tokenware.Claims, error) {
	claims, err := a.verifier.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

type resolverAdapter struct {
	service *Service
}

func (a resolverAdapter) Resolve(ctx context.Context, id string) (tokenware.User, error) {
	user, err := a.service.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// TokenwareVerifier adapts a TokenVerifier for tokenware.Config.
func TokenwareVerifier(v TokenVerifier) tokenware.TokenVerifier {
	return verifierAdapter{verifier: v}
}

// TokenwareResolver adapts a Service for tokenware.Config.
func TokenwareResolver(s *Service) tokenware.UserResolver {
	return resolverAdapter{service: s}
}

// Protected builds the authentication middleware from a Config plus the
// wired token service and user service.
func Protected(cfg Config, verifier TokenVerifier, service *Service) tokenware.Config {
	return tokenware.Config{
		TokenVerifier:   TokenwareVerifier(verifier),
		UserResolver:    TokenwareResolver(service),
		ContextKey:      cfg.GetContextKey(),
		TokenLookup:     cfg.GetTokenLookup(),
		AuthScheme:      cfg.GetAuthScheme(),
		TokenExpiration: cfg.GetTokenExpiration,
		ContextEnricher: func(c context.Context, u tokenware.User) context.Context {
			if user, ok := u.(*User); ok {
				return WithContext(c, user)
			}
			return c
		},
	}
}
