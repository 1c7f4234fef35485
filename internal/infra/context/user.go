package context

import (
	"context"

	"github.com/mkrupp/taskapp/internal/domain"
)

const (
	contextKeyUser  = contextKey("user")
	contextKeyToken = contextKey("token")
)

// UserFromContext extracts the authenticated user from the context.
// Returns the user and true if present, or nil and false if not present.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(contextKeyUser).(*domain.User)

	return user, ok && user != nil
}

// TokenFromContext extracts the raw session token the request was authenticated with.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(contextKeyToken).(string)

	return token, ok
}

// WithSession creates a new context carrying the authenticated user and the
// session token that resolved to it.
func WithSession(ctx context.Context, user *domain.User, token string) context.Context {
	ctx = context.WithValue(ctx, contextKeyUser, user)

	return context.WithValue(ctx, contextKeyToken, token)
}
