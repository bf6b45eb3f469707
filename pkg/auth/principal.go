package auth

import "context"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID   string
	Role Role
}

type principalKey struct{}

// WithPrincipal stores p in ctx. Called by the auth middleware.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.ID != ""
}
