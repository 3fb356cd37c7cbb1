package middleware

import (
	"net/http"
	"strings"

	pkgauth "github.com/denizkaplan/lunera-backend/pkg/auth"
	"github.com/denizkaplan/lunera-backend/pkg/config"
	"github.com/denizkaplan/lunera-backend/pkg/logger"
)

// OptionalAuth seeds the context with claims when a valid bearer token is
// present and passes the request through anonymously otherwise. Checkout
// accepts guests, so a missing or invalid token is not an error here.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "ignoring invalid bearer token on guest-capable route")
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithRole(ctx, string(claims.Role))
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
