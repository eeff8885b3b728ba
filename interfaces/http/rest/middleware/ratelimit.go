package middleware

import (
	"net/http"

	"familytree/pkg/auth"
	pkgerrors "familytree/pkg/errors"

	"go.uber.org/zap"
)

// RateLimit rejects callers that exceed limiter. Authenticated callers are
// keyed by user ID, anonymous ones by client IP. Limiter errors are logged
// and never block a request the limiter allowed.
func RateLimit(limiter auth.RateLimiter, perSecond float64, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + getClientIP(r)
			if user, err := auth.GetUserFromContext(r.Context()); err == nil {
				key = "user:" + user.UserID
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("Rate limiter error", zap.String("key", key), zap.Error(err))
			}
			if !allowed {
				w.Header().Set("Retry-After", "1")
				errs.Handle(w, r, pkgerrors.NewRateLimitError(perSecond, "second"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
