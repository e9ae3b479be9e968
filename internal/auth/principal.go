package auth

import (
	"context"

	"github.com/heygw44/snapstock/internal/models"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID int64
	Role   models.Role
}

// Authority is the single capability granted to the principal.
func (p Principal) Authority() string {
	return p.Role.Authority()
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached by WithPrincipal, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
