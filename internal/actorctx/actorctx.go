// Package actorctx carries the authenticated principal on a context.Context so
// code below the HTTP layer can log and attribute work to it.
package actorctx

import (
	"context"

	"github.com/vmarkevych/storefront/internal/domain/user"
)

type ctxKey struct{}

type Actor struct {
	UserID string
	Role   user.Role
}

func With(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func From(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)

	return a, ok && a.UserID != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	a, ok := From(ctx)
	return a.UserID, ok
}
