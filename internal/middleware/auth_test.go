package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AlionaVr/Bank-cards-REST/internal/config"
	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	userID := uuid.New()

	var got models.Principal
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		got, _ = PrincipalFrom(r.Context())
	})
	protected := AuthMiddleware(cfg)(next)

	t.Run("valid token resolves principal", func(t *testing.T) {
		called = false
		token := signToken(t, "test-secret", jwt.MapClaims{
			"sub":  userID.String(),
			"role": "ADMIN",
			"exp":  jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		req := httptest.NewRequest("GET", "/cards", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		require.True(t, called)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, models.RoleAdmin, got.Role)
	})

	t.Run("missing header", func(t *testing.T) {
		called = false
		req := httptest.NewRequest("GET", "/cards", nil)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		called = false
		token := signToken(t, "other-secret", jwt.MapClaims{
			"sub": userID.String(),
			"exp": jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		req := httptest.NewRequest("GET", "/cards", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		called = false
		token := signToken(t, "test-secret", jwt.MapClaims{
			"sub": userID.String(),
			"exp": jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		})

		req := httptest.NewRequest("GET", "/cards", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
