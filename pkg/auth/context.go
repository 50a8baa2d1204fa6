package auth

import "context"

type claimsKey struct{}

// WithClaims stores verified claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromCtx returns the claims stored by the auth middleware, if any.
func FromCtx(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}

// UserIDFromCtx returns the authenticated user id, or 0.
func UserIDFromCtx(ctx context.Context) uint {
	if c, ok := FromCtx(ctx); ok {
		return c.UserID
	}
	return 0
}
