package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goAuthGate "github.com/MrEthical07/goAuthGate"
	"github.com/MrEthical07/goAuthGate/jwt"
)

type claimsContextKey struct{}

// Validator is the subset of *goAuthGate.Engine the guards need.
type Validator interface {
	ValidateAccess(ctx context.Context, token string) (*jwt.Claims, error)
}

// ClaimsFromContext returns the claims stored by a guard.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return claims, ok
}

// WithClaims stores claims on ctx.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// RequireAccess rejects requests without a valid, unrevoked access token.
func RequireAccess(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, status := authorize(r.Context(), v, r.Header.Get("Authorization"))
			if status != http.StatusOK {
				http.Error(w, http.StatusText(status), status)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRoles is RequireAccess plus a check that the token carries at
// least one of roles.
func RequireRoles(v Validator, roles ...string) func(http.Handler) http.Handler {
	guard := RequireAccess(v)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := ClaimsFromContext(r.Context())
			if !hasAnyRole(claims, roles) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func authorize(ctx context.Context, v Validator, header string) (*jwt.Claims, int) {
	if v == nil {
		return nil, http.StatusUnauthorized
	}

	token, ok := bearerToken(header)
	if !ok {
		return nil, http.StatusUnauthorized
	}

	claims, err := v.ValidateAccess(ctx, token)
	switch {
	case errors.Is(err, goAuthGate.ErrStateUnavailable):
		return nil, http.StatusServiceUnavailable
	case err != nil:
		return nil, http.StatusUnauthorized
	}
	return claims, http.StatusOK
}

func hasAnyRole(claims *jwt.Claims, roles []string) bool {
	if claims == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, have := range claims.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
