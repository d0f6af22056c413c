// internal/server/middleware.go
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/forgeqa/testforge/internal/config"
)

// authMiddleware validates HS256 bearer tokens on every request it wraps.
// Routes that should stay public are registered outside the group that
// carries this middleware.
func authMiddleware(cfg config.AuthConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	log := logger.Named("auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				respondWithError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(cfg.Secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(cfg.Issuer))

			if err != nil || !token.Valid {
				log.Debug("Rejected bearer token.", zap.Error(err))
				respondWithError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// createLimitMiddleware throttles session creation. Each session holds a
// real browser page, so creation cannot be allowed to burst unboundedly.
func createLimitMiddleware(cfg config.ServerConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(cfg.CreateRatePerSecond), cfg.CreateBurst)
	log := logger.Named("rate_limit")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("Session creation rate limit hit.", zap.String("remote_addr", r.RemoteAddr))
				respondWithError(w, http.StatusTooManyRequests, "session creation rate limit exceeded, retry later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
