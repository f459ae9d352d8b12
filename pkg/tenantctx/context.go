// Package tenantctx carries the authenticated caller's identity through
// request contexts.
package tenantctx

import "context"

type claimsKey struct{}

// Claims is the authenticated subject attached by the auth middleware.
type Claims struct {
	UserID   string
	Role     string
	TenantID string
}

// WithClaims returns a context carrying the caller's claims.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromContext returns the caller's claims, if present.
func FromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}
