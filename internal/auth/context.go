package auth

import (
	"context"

	"github.com/Kvnbbg/cfa/internal/store"
)

type userContextKey struct{}

// ContextWithUser attaches the authenticated user to the context. The value
// lives for one request only; the gate sets it after token verification.
func ContextWithUser(ctx context.Context, u *store.User) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext extracts the authenticated user from the context.
func UserFromContext(ctx context.Context) (*store.User, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(userContextKey{}).(*store.User)
	if !ok || u == nil {
		return nil, false
	}
	return u, true
}

// UserIDFromContext returns the authenticated user's ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return u.ID, true
}
