package shared

import "context"

// Principal identifies the authenticated caller of a request. Identity is
// established upstream; the ledger only records who performed an action.
type Principal struct {
	UserID     int64
	Username   string
	Role       string
	LocationID *int64
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context. ok is false for
// unauthenticated requests.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
