package auth

import (
	"context"
	"errors"
	"slices"
)

type contextKey struct{}

// UserContext is the authenticated caller attached to a request
type UserContext struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the user carries role
func (u *UserContext) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// ErrNoUser is returned when the context carries no authenticated user
var ErrNoUser = errors.New("no authenticated user in context")

// SetUserInContext attaches the user to ctx
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// GetUserFromContext returns the user attached by SetUserInContext
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(contextKey{}).(*UserContext)
	if !ok || user == nil {
		return nil, ErrNoUser
	}
	return user, nil
}
