// File: internal/middleware/auth.go
package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/lexserve/go-lexserve/internal/auth"
	"github.com/lexserve/go-lexserve/internal/domain"
)

// NewJWTMiddleware creates middleware that validates the token from the
// auth_token cookie or, mainly for non-browser clients and socket dialers,
// the Authorization bearer header.
func NewJWTMiddleware(secretKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				log.Printf("[AuthMiddleware] Missing credentials for %s %s", r.Method, r.URL.Path)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := auth.ValidateToken(tokenString, secretKey)
			if err != nil {
				log.Printf("[AuthMiddleware] Invalid token: %v", err)
				// Clear invalid cookie
				http.SetCookie(w, &http.Cookie{
					Name:     "auth_token",
					Value:    "",
					Path:     "/",
					Expires:  time.Unix(0, 0),
					HttpOnly: true,
					Secure:   true,
					SameSite: http.SameSiteLaxMode,
				})
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityIDKey, identity.ID)
			ctx = context.WithValue(ctx, IdentityRoleKey, identity.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated identity the JWT middleware
// stored for this request.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(IdentityIDKey).(uint)
	if !ok {
		return domain.Identity{}, false
	}
	role, ok := ctx.Value(IdentityRoleKey).(string)
	if !ok {
		return domain.Identity{}, false
	}

	identity := domain.Identity{ID: id, Role: role}
	return identity, identity.IsValid()
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("auth_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
