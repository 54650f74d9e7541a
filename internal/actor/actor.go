package actor

import (
	"context"
	"strings"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
	RoleSystem   = "system"
)

// Actor is the authenticated principal acting on a request.
type Actor struct {
	UserID int64
	Email  string
	Role   string
}

func (a Actor) IsAdmin() bool {
	return strings.EqualFold(a.Role, RoleAdmin)
}

func (a Actor) IsSystem() bool {
	return strings.EqualFold(a.Role, RoleSystem)
}

// System returns the principal used by background jobs.
func System() Actor {
	return Actor{Role: RoleSystem}
}

type contextKey struct{}

// WithActor stores the actor on the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the actor on the context, if any.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(contextKey{}).(Actor)
	return a, ok
}
