package middleware

import (
	"context"
	"net/http"
)

// Allower decides whether a client may proceed.
type Allower interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimit rejects requests over the limiter's budget with 429. keyFn
// derives the client key from the request.
func RateLimit(limiter Allower, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), keyFn(r)) {
				writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again shortly.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
