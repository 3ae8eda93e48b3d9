// Package actor carries the authenticated workspace member through request
// contexts. Handlers consume role booleans only; role assignment itself is
// the member module's business.
package actor

import "context"

// Role is a workspace permission level.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleEditor || r == RoleViewer
}

// Actor is the authenticated member attached to a request.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsOwner() bool  { return a.Role == RoleOwner }
func (a Actor) IsEditor() bool { return a.Role == RoleEditor || a.Role == RoleOwner }
func (a Actor) IsViewer() bool { return a.Role.Valid() }

type contextKey struct{}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext extracts the actor, if any, from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(contextKey{}).(Actor)
	return a, ok
}
