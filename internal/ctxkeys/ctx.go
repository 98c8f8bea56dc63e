package ctxkeys

import (
	"context"

	"github.com/tisu1989/auth-project/internal/auth"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	ClaimsKey contextKey = "claims"
)

// Claims returns the session claims of the authenticated caller, or nil.
func Claims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims
}

func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
