package authz

import "context"

type contextKey struct{}

func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// ActorFromContext returns the actor stored by the authentication middleware.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(*Actor)
	return actor, ok && actor != nil
}
