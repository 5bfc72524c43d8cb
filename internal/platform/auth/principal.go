package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID         uuid.UUID
	Username       string
	Staff          bool
	TokenID        string
	TokenExpiresAt time.Time
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext returns the authenticated caller, or nil for
// anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(PrincipalKey).(*Principal)
	return p
}

// UserIDFromContext returns the caller's user id as a string, or "" for
// anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.UserID.String()
	}
	return ""
}
