// Package auth provides the caller identity carried through request contexts.
//
// Identity is established upstream by the external identity provider and
// arrives as trusted headers; this package only stores and reads it. It is
// imported by both middleware and handler packages without import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Role is the caller's portal.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleKasir      Role = "kasir"
)

// ParseRole returns the Role for s and whether it is known.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleSuperadmin, RoleAdmin, RoleKasir:
		return r, true
	}
	return "", false
}

// IsTenantScoped reports whether the role acts on behalf of one company.
func (r Role) IsTenantScoped() bool {
	return r == RoleAdmin || r == RoleKasir
}

// Principal is the authenticated caller.
type Principal struct {
	UserID    string
	Role      Role
	CompanyID uuid.UUID // uuid.Nil for superadmins
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const principalContextKey contextKey = "principal"

// GetPrincipal retrieves the caller from the context, or nil.
func GetPrincipal(ctx context.Context) *Principal {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// GetPrincipalFromRequest is GetPrincipal on the request's context.
func GetPrincipalFromRequest(r *http.Request) *Principal {
	return GetPrincipal(r.Context())
}

// SetPrincipal stores the caller in the context.
func SetPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
