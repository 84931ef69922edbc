package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"vinyl-store/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal stores the authenticated caller in ctx
func WithPrincipal(ctx context.Context, principal domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFrom returns the caller resolved by AuthMiddleware, or an
// anonymous principal.
func PrincipalFrom(ctx context.Context) domain.Principal {
	principal, ok := ctx.Value(principalKey).(domain.Principal)
	if !ok {
		return domain.Anonymous()
	}
	return principal
}

// AuthMiddleware validates JWT tokens and resolves the principal
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "Lo sentimos, primero debes proporcionar un token")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "Formato del token no válido")
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})

			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "El token ha expirado")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "Token no válido")
				}
				return
			}

			if !token.Valid {
				logger.Debug("Invalid token")
				RespondWithError(w, http.StatusUnauthorized, "Token no válido")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				logger.Error("Failed to extract claims from token")
				RespondWithError(w, http.StatusUnauthorized, "Token no válido")
				return
			}

			userID, _ := claims["user_id"].(string)
			role, _ := claims["role"].(string)
			principal, err := domain.PrincipalFromClaims(userID, role)
			if err != nil {
				logger.Warn("Token claims do not resolve to a principal",
					zap.String("role", role),
					zap.Error(err),
				)
				RespondWithError(w, http.StatusUnauthorized, "Token no válido")
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", principal.ID().String()),
				zap.String("role", principal.Role()),
			)

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
