package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vinyl-store/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func capturePrincipal(dst *domain.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*dst = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func decodeMsg(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Msg
}

func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(method, "/api/"+pathSuffix, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidTokensResolvePrincipal(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("signed claims round-trip into the request principal", prop.ForAll(
		func(role string) bool {
			id := uuid.New()
			tokenString := signToken(t, testSecret, jwt.MapClaims{
				"user_id": id.String(),
				"role":    role,
				"exp":     time.Now().Add(time.Hour).Unix(),
			})

			var got domain.Principal
			handler := AuthMiddleware(testSecret, zap.NewNop())(capturePrincipal(&got))

			req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
			req.Header.Set("Authorization", "Bearer "+tokenString)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusOK && got.ID() == id && got.Role() == role
		},
		gen.OneConstOf(domain.RoleCustomer, domain.RoleAdmin),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthMiddleware_RejectsExpiredToken(t *testing.T) {
	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    domain.RoleCustomer,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for expired tokens")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "El token ha expirado", decodeMsg(t, w))
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	validClaims := func(role string) jwt.MapClaims {
		return jwt.MapClaims{
			"user_id": uuid.NewString(),
			"role":    role,
			"exp":     time.Now().Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", validClaims(domain.RoleCustomer))},
		{"unknown role", "Bearer " + signToken(t, testSecret, validClaims("courier"))},
		{"bad subject", "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"user_id": "42",
			"role":    domain.RoleCustomer,
			"exp":     time.Now().Add(time.Hour).Unix(),
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestPrincipalFrom_DefaultsToAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, PrincipalFrom(req.Context()).IsAnonymous())
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name      string
		principal domain.Principal
		want      int
	}{
		{"administrator passes", domain.AdministratorPrincipal(uuid.New()), http.StatusOK},
		{"customer is forbidden", domain.CustomerPrincipal(uuid.New()), http.StatusForbidden},
		{"anonymous is forbidden", domain.Anonymous(), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdmin(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
			req = req.WithContext(WithPrincipal(req.Context(), tt.principal))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRole_AllowsAnyListedKind(t *testing.T) {
	allowed := []domain.PrincipalKind{domain.PrincipalCustomer, domain.PrincipalAdministrator}
	handler := RequireRole(allowed, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, principal := range []domain.Principal{
		domain.CustomerPrincipal(uuid.New()),
		domain.AdministratorPrincipal(uuid.New()),
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req = req.WithContext(WithPrincipal(req.Context(), principal))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, principal.Role())
	}
}
