package middleware

import (
	"net/http"

	"vinyl-store/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the caller is an administrator
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]domain.PrincipalKind{domain.PrincipalAdministrator}, logger)
}

// RequireRole middleware ensures the caller is one of the allowed kinds
func RequireRole(allowed []domain.PrincipalKind, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFrom(r.Context())

			for _, kind := range allowed {
				if principal.Kind() == kind {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("Principal not authorized",
				zap.String("role", principal.Role()),
				zap.String("path", r.URL.Path),
			)
			RespondWithError(w, http.StatusForbidden, "Acceso denegado. No tienes permisos para realizar esta acción")
		})
	}
}
