package middleware

import (
	"net/http"

	"github.com/campusbook/scheduling-engine/pkg/auth"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"go.uber.org/zap"
)

// RequirePermission is a middleware that checks if the user has a specific permission
func RequirePermission(permission string, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Get claims from context
			claims, ok := r.Context().Value("claims").(*auth.JWTClaims)
			if !ok {
				log.Warn("No claims found in context for permission check")
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			// Check if user has the required permission
			if !hasPermission(claims.Permissions, permission) {
				log.Warn("Permission denied",
					zap.String("user_id", claims.UserID.String()),
					zap.String("username", claims.Username),
					zap.String("required_permission", permission),
				)
				respondError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyRole is a middleware that checks if the user has any of the specified roles
func RequireAnyRole(roles []string, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Get claims from context
			claims, ok := r.Context().Value("claims").(*auth.JWTClaims)
			if !ok {
				log.Warn("No claims found in context for role check")
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			// Check if user has any of the required roles
			hasAny := false
			for _, role := range roles {
				if hasRole(claims.Roles, role) {
					hasAny = true
					break
				}
			}

			if !hasAny {
				log.Warn("Role check failed - no matching roles",
					zap.String("user_id", claims.UserID.String()),
					zap.String("username", claims.Username),
					zap.Strings("required_roles", roles),
				)
				respondError(w, http.StatusForbidden, "Insufficient privileges")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasPermission(userPermissions []string, required string) bool {
	for _, perm := range userPermissions {
		if perm == required {
			return true
		}
	}
	return false
}

func hasRole(userRoles []string, required string) bool {
	for _, role := range userRoles {
		if role == required {
			return true
		}
	}
	return false
}
