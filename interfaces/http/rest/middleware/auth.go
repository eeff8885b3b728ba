package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"familytree/pkg/auth"
	pkgerrors "familytree/pkg/errors"

	"go.uber.org/zap"
)

// Authenticate validates the bearer token of every request and attaches the
// caller to the request context. A nil validator disables authentication.
func Authenticate(validator *auth.JWTValidator, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, err := extractToken(r)
			if err != nil {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError(err.Error()))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Debug("Rejected token",
					zap.String("path", r.URL.Path),
					zap.String("clientIP", getClientIP(r)),
					zap.Error(err))
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError(tokenMessage(err)))
				return
			}

			user := &auth.UserContext{
				UserID: claims.UserID(),
				Email:  claims.Email,
				Roles:  claims.Roles,
			}
			next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), user)))
		})
	}
}

// extractToken pulls the token out of an "Authorization: Bearer <token>" header
func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", auth.ErrMissingToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

func tokenMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrMissingToken):
		return "Missing authentication token"
	default:
		return "Invalid token"
	}
}

// getClientIP returns the caller address. RealIP runs first, so RemoteAddr
// already reflects X-Forwarded-For when a proxy set it.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
