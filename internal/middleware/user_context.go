// internal/middleware/user_context.go
package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/jwtauth/v5"

	"github.com/evn/grubana/config"
	"github.com/evn/grubana/internal/pkg/response"
	"github.com/evn/grubana/internal/services/auth"
)

// GetOwnerIDFromContext возвращает owner id из контекста.
func GetOwnerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(config.UserIDKey).(string)
	return id, ok && id != ""
}

// GetRoleFromContext returns the role claim, if any.
func GetRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(config.RoleKey).(string)
	return role
}

// WithOwnerID is used by tests and internal callers that bypass JWT.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, config.UserIDKey, ownerID)
}

// AddOwnerIDToContext извлекает user_id и role из JWT и кладёт в контекст.
// Owner ids are opaque strings; numeric claims are accepted for old tokens.
func AddOwnerIDToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, _ := jwtauth.FromContext(r.Context())
			if claims == nil {
				next.ServeHTTP(w, r)
				return
			}

			var ownerID string
			switch v := claims["user_id"].(type) {
			case string:
				ownerID = v
			case float64:
				ownerID = strconv.FormatInt(int64(v), 10)
			}

			ctx := r.Context()
			if ownerID != "" {
				ctx = context.WithValue(ctx, config.UserIDKey, ownerID)
			}
			if role, ok := claims["role"].(string); ok {
				ctx = context.WithValue(ctx, config.RoleKey, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOwner rejects authenticated tokens that carry no owner id.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetOwnerIDFromContext(r.Context()); !ok {
			response.RespondWithError(w, http.StatusUnauthorized, "Token has no user_id")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SuperadminOnly пропускает только пользователей с ролью "superadmin".
func SuperadminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRoleFromContext(r.Context()) != auth.RoleSuperadmin {
			response.RespondWithError(w, http.StatusForbidden, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}
