package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/couchcryptid/temperature-relay/internal/adapter/httpadapter"
	"github.com/couchcryptid/temperature-relay/internal/domain"
)

// Validator verifies a bearer token.
type Validator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

type contextKeyClaims struct{}

// ClaimsFrom returns the claims stored by RequireAuth, or nil.
func ClaimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(contextKeyClaims{}).(*Claims)
	return c
}

// RequireAuth rejects requests without a valid bearer token with 401.
func RequireAuth(validator Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(r.Context(), "unauthorized access - missing token", "path", r.URL.Path)
				httpadapter.WriteError(w, domain.NewError(domain.KindAuth, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token", "path", r.URL.Path, "error", err)
				httpadapter.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyClaims{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects authenticated non-admin callers with 403. It must run
// after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFrom(r.Context())
		if claims == nil {
			httpadapter.WriteError(w, domain.NewError(domain.KindAuth, "authentication required"))
			return
		}
		if !claims.IsAdmin() {
			httpadapter.WriteError(w, domain.NewError(domain.KindForbidden, "admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
