// Package middleware contains HTTP middleware for the kasir back-office API.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using Stack.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/kasir/internal/auth"
	"github.com/DukeRupert/kasir/internal/handler"
	"github.com/google/uuid"
)

// Identity headers set by the upstream identity provider. The gateway in
// front of this service strips any client-supplied copies.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderCompanyID = "X-Company-ID"
)

// PrincipalMiddleware resolves the caller from identity headers.
type PrincipalMiddleware struct {
	logger *slog.Logger
}

// NewPrincipalMiddleware creates a new principal middleware.
func NewPrincipalMiddleware(logger *slog.Logger) *PrincipalMiddleware {
	return &PrincipalMiddleware{logger: logger}
}

// WithPrincipal attaches the caller to the request context when the identity
// headers are present and well formed. It never rejects; use RequireRole.
func (m *PrincipalMiddleware) WithPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFromHeaders(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.SetPrincipal(r.Context(), p)))
	})
}

// RequireRole returns middleware that admits only callers holding one of
// roles. Missing identity is 401; a known caller with the wrong role is 403.
func (m *PrincipalMiddleware) RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.GetPrincipalFromRequest(r)
			if p == nil {
				handler.UnauthorizedResponse(w, r, m.logger)
				return
			}
			if !allowed[p.Role] {
				m.logger.Warn("role not permitted",
					"user_id", p.UserID,
					"role", p.Role,
					"path", r.URL.Path,
				)
				handler.ForbiddenResponse(w, r, m.logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// principalFromHeaders parses the identity headers. Tenant-scoped roles must
// carry a company ID; a superadmin's company header is ignored.
func principalFromHeaders(r *http.Request) (*auth.Principal, bool) {
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if userID == "" {
		return nil, false
	}
	role, ok := auth.ParseRole(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
	if !ok {
		return nil, false
	}

	p := &auth.Principal{UserID: userID, Role: role}
	if role.IsTenantScoped() {
		id, err := uuid.Parse(strings.TrimSpace(r.Header.Get(HeaderCompanyID)))
		if err != nil || id == uuid.Nil {
			return nil, false
		}
		p.CompanyID = id
	}
	return p, true
}

// Stack composes multiple middleware functions into a single middleware.
// Middleware are applied in order: the first one listed is the outermost.
//
// Example:
//
//	stack := Stack(loggingMw.Handler, principalMw.WithPrincipal, principalMw.RequireRole(auth.RoleAdmin))
//	mux.Handle("GET /api/admin/quota", stack(quotaHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
