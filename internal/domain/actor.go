package domain

import "context"

// Role is the privilege level of the caller.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

// Actor identifies who performs an operation.
type Actor struct {
	UserID int64
	Role   Role
}

func (a Actor) IsManager() bool { return a.Role == RoleManager }

type actorContextKey struct{}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored in ctx, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// RequireManager fails with a Forbidden error unless ctx carries a manager.
func RequireManager(ctx context.Context) (Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || !actor.IsManager() {
		return Actor{}, Forbidden("manager privileges required")
	}
	return actor, nil
}
