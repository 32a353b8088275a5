package gateway

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// authMiddleware validates Bearer token or Basic auth credentials using
// constant-time comparison. Failed attempts count against the "auth"
// bucket; once it is full every request is refused with 429 until the
// window slides.
func authMiddleware(cfg AuthConfig, limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && limiter.Exhausted(bucketAuth) {
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			if authorized(cfg, r) {
				next.ServeHTTP(w, r)
				return
			}

			if limiter != nil {
				_ = limiter.Allow(bucketAuth)
			}
			logger.Warn("gateway: auth failure",
				"remote_addr", r.RemoteAddr,
				"method", r.Method,
				"path", r.URL.Path,
			)
			writeError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func authorized(cfg AuthConfig, r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return false
	}

	if cfg.BearerToken != "" {
		if after, ok := strings.CutPrefix(auth, "Bearer "); ok && constantTimeEqual(after, cfg.BearerToken) {
			return true
		}
	}

	if cfg.BasicUser != "" && cfg.BasicPass != "" {
		user, pass, ok := r.BasicAuth()
		if ok && constantTimeEqual(user, cfg.BasicUser) && constantTimeEqual(pass, cfg.BasicPass) {
			return true
		}
	}
	return false
}

// constantTimeEqual compares two strings in constant time.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
