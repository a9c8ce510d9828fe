package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/youpai/platform/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// UserIDKey is the context key for the authenticated user's ID.
const UserIDKey contextKey = "userID"

// UserStatusKey is the context key for the authenticated user's account status.
const UserStatusKey contextKey = "userStatus"

// UserIsAdminKey is the context key for the authenticated user's admin flag.
const UserIsAdminKey contextKey = "userIsAdmin"

// UserID extracts the authenticated user's ID from the request context.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// RequireAuth returns middleware that validates a Bearer JWT and injects
// user claims into the request context.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "authorization header required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				response.Unauthorized(w, "invalid token claims")
				return
			}

			userID, _ := claims["sub"].(string)
			status, _ := claims["status"].(string)
			isAdmin, _ := claims["admin"].(bool)

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, UserStatusKey, status)
			ctx = context.WithValue(ctx, UserIsAdminKey, isAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountSource reports the current persisted status of an account.
type AccountSource interface {
	AccountStatus(ctx context.Context, userID string) (status string, isAdmin bool, err error)
}

// RequireCurrentStatus returns middleware that rejects requests whose
// account is not currently in one of the allowed statuses. The status is
// read from the database on every request, not from the token: session
// tokens live for weeks, and a status frozen into a claim would keep a
// demoted account passing (and a freshly confirmed one failing) until
// re-login. Admins pass regardless of status.
// Must be mounted after RequireAuth.
func RequireCurrentStatus(src AccountSource, allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]bool, len(allowed))
	for _, s := range allowed {
		set[s] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserID(r.Context())
			if userID == "" {
				response.Unauthorized(w, "unauthorized")
				return
			}
			status, isAdmin, err := src.AccountStatus(r.Context(), userID)
			if err != nil {
				response.Unauthorized(w, "account not found")
				return
			}
			if !isAdmin && !set[status] {
				response.Forbidden(w, "account status does not permit this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin returns middleware that rejects non-admin users.
// Must be mounted after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAdmin, _ := r.Context().Value(UserIsAdminKey).(bool); !isAdmin {
			response.Forbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
