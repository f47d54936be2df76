package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// PublicRateLimiter throttles unauthenticated endpoints by client IP.
func PublicRateLimiter(requestsPerSecond int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerSecond, time.Second)
}

// AuthRateLimiter throttles authenticated endpoints by account.
func AuthRateLimiter(requestsPerSecond int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerSecond,
		time.Second,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if accountID := AccountIDFromContext(r.Context()); accountID != "" {
				return accountID, nil
			}
			return httprate.KeyByIP(r)
		}),
	)
}
