package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sportsbro/sportsbro/internal/auth"
)

// Middleware returns an HTTP middleware that enforces rate limits using the
// provided Limiter. It expects an authenticated user in the request context
// (set by auth.Authenticator.RequireUser); the user's ID is the bucket key.
// Requests without a user pass through untouched.
//
// Rate-limit headers are always set on the response:
//
//	X-RateLimit-Limit     maximum requests allowed in the window
//	X-RateLimit-Remaining tokens remaining in the current window
//	X-RateLimit-Reset     Unix timestamp when the bucket is fully replenished
//
// When the limit is exceeded the middleware responds with HTTP 429 and the
// standard JSON error envelope. onReject, if non-nil, is called with scope.
func Middleware(limiter *Limiter, scope string, onReject func(scope string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := auth.UserFromContext(r.Context())
			if u == nil {
				next.ServeHTTP(w, r)
				return
			}

			limit, remaining, resetAt := limiter.Status(u.ID)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !limiter.Allow(u.ID) {
				if onReject != nil {
					onReject(scope)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"message": "Rate limit exceeded. Try again later.",
					"error":   map[string]string{"code": "rate_limited"},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
