package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
	// TrustProxy keys clients by X-Forwarded-For / X-Real-IP instead of the
	// socket address. Enable only behind a proxy that overwrites them.
	TrustProxy bool
}

// StandardRateLimit applies to the public status endpoints.
var StandardRateLimit = RateLimitConfig{
	RequestLimit: 120,
	WindowLength: time.Minute,
}

// RateLimitByIP limits requests per client address. A negative limit
// disables limiting and zero values fall back to StandardRateLimit.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RequestLimit < 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.RequestLimit == 0 {
		cfg.RequestLimit = StandardRateLimit.RequestLimit
	}
	if cfg.WindowLength <= 0 {
		cfg.WindowLength = StandardRateLimit.WindowLength
	}
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Seconds()))

	keyFunc := httprate.KeyByIP
	if cfg.TrustProxy {
		keyFunc = httprate.KeyByRealIP
	}

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", retryAfter)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":     "Rate limit exceeded",
				"requestId": GetRequestID(r.Context()),
			})
		}),
	)
}
