// internal/server/middleware_test.go
package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forgeqa/testforge/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, secret, issuer string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": issuer,
		"sub": "authoring-ui",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, Secret: testSecret, Issuer: "testforge"}
	wrapped := authMiddleware(cfg, zap.NewNop())(okHandler())

	t.Run("accepts a valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tests/1", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "testforge"))

		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tests/1", nil)
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tests/1", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "wrong-secret-wrong-secret-wrong!", "testforge"))

		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects the wrong issuer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tests/1", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "someone-else"))

		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("passes everything through when disabled", func(t *testing.T) {
		open := authMiddleware(config.AuthConfig{Enabled: false}, zap.NewNop())(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/tests/1", nil)
		rec := httptest.NewRecorder()
		open.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCreateLimitMiddleware(t *testing.T) {
	cfg := config.ServerConfig{CreateRatePerSecond: 1, CreateBurst: 2}
	wrapped := createLimitMiddleware(cfg, zap.NewNop())(okHandler())

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	// Burst of two passes, the rest are throttled.
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])
}
