package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds request-level rate limiting configuration. This sits
// in front of the whole auth surface and caps raw request volume per IP; the
// failed-login limiter in the service layer is a separate mechanism with its
// own window.
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultAuthRateLimit caps auth endpoints at 30 requests per minute per IP,
// loose enough for token refresh loops but a ceiling on credential stuffing.
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limit_exceeded","message":"Too many requests"}`))
		}),
	)
}
