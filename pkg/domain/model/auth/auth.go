// Package auth carries the authenticated caller through request contexts
package auth

import (
	"context"
	"errors"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
)

var ErrNoUser = errors.New("no authenticated user in context")

type ctxUserKey struct{}

// ContextWithUser returns a context carrying the authenticated user
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, user)
}

// UserFromContext returns the authenticated user, or ErrNoUser when the request was
// not authenticated.
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(ctxUserKey{}).(*model.User)
	if !ok || user == nil {
		return nil, ErrNoUser
	}
	return user, nil
}
