package middleware

import (
	"context"

	"github.com/perkgate/perkgate-backend/internal/identity"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// IdentityFromContext returns the resolved caller identity, or nil when the
// request never passed through the identity middleware.
func IdentityFromContext(ctx context.Context) *identity.Identity {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxIdentity).(*identity.Identity); ok {
		return v
	}
	return nil
}

// WithIdentity injects the resolved identity into the context.
func WithIdentity(ctx context.Context, ident *identity.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, ident)
}
