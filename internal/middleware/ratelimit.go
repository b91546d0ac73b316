package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"wl-portal/internal/metrics"
	"wl-portal/internal/ratelimit"
)

// RateLimiter rejects clients that exceed the configured request rate
type RateLimiter struct {
	enabled bool
	store   ratelimit.Store
	metrics *metrics.Metrics
}

// NewRateLimiter creates a new rate limiter backed by store
func NewRateLimiter(enabled bool, store ratelimit.Store, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{enabled: enabled, store: store, metrics: m}
}

// Limit rate limits requests by client IP. A store failure lets the request through.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.enabled || rl.store == nil {
			next.ServeHTTP(w, r)
			return
		}

		d, err := rl.store.Allow(r.Context(), ClientIP(r))
		if err != nil {
			slog.Warn("Rate limit store unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !d.Allowed {
			rl.metrics.IncRateLimited()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			respondWithError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}
