package auth

import (
	"context"

	"github.com/harborvet/vetpms/internal/access"
)

type ctxKey string

const principalKey ctxKey = "vetpms.principal"

// WithPrincipal stores the resolved principal in context.
func WithPrincipal(ctx context.Context, p *access.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the principal if present.
func PrincipalFromContext(ctx context.Context) (*access.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*access.Principal)
	return p, ok && p != nil
}
