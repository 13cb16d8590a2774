package middleware

import (
	"context"

	"github.com/veritrace/veritrace-backend/pkg/types"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// PrincipalFromContext returns the authenticated caller identity, or the
// zero principal when the request is unauthenticated.
func PrincipalFromContext(ctx context.Context) types.Principal {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxPrincipal).(types.Principal); ok {
		return v
	}
	return ""
}

// WithPrincipal injects the caller identity into the context.
func WithPrincipal(ctx context.Context, principal types.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, principal)
}
