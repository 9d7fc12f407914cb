package shared

import (
	"context"
	"strings"
)

// Actor identifies the caller behind a mutating operation.
type Actor struct {
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	CompanyID string `json:"companyId"`
}

// Valid reports whether the actor carries an identity and a role.
func (a Actor) Valid() bool {
	return strings.TrimSpace(a.UserID) != "" && strings.TrimSpace(a.Role) != ""
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context. Mutating services read it back
// with ActorFromContext; there is no process-wide current actor.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// WithoutActor returns a context that shadows any actor set by a parent.
func WithoutActor(ctx context.Context) context.Context {
	return context.WithValue(ctx, actorContextKey{}, nil)
}

// ActorFromContext extracts the actor. It fails with ErrActorRequired when none is set.
func ActorFromContext(ctx context.Context) (Actor, error) {
	if ctx == nil {
		return Actor{}, ErrActorRequired
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || !actor.Valid() {
		return Actor{}, ErrActorRequired
	}
	return actor, nil
}

// EnsureCompany verifies the actor operates on the given tenant.
func EnsureCompany(actor Actor, companyID string) error {
	if companyID == "" || actor.CompanyID == "" {
		return nil
	}
	if actor.CompanyID != companyID {
		return ErrCompanyMismatch
	}
	return nil
}
