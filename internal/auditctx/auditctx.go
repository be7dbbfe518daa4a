// Package auditctx carries who is behind a request down to the services that
// write audit entries.
package auditctx

import "context"

// Actor describes the caller. Before authentication only the request fields are set.
type Actor struct {
	UserID    string
	Username  string
	IPAddress string
	UserAgent string
	RequestID string
}

type ctxKey struct{}

// WithActor returns a derived context carrying actor. A nil ctx is treated as Background.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, actor)
}

// WithIdentity records the authenticated user on top of whatever actor ctx already carries.
func WithIdentity(ctx context.Context, userID, username string) context.Context {
	actor, _ := FromContext(ctx)
	actor.UserID = userID
	actor.Username = username
	return WithActor(ctx, actor)
}

// FromContext returns the actor stored in ctx, if any.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(ctxKey{}).(Actor)
	return actor, ok
}

// Authenticated reports whether the actor has signed in.
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}
