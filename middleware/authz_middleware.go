package middleware

import (
	"net/http"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/services"
	"github.com/Ashwin12159/Control-Plane/utils"
	"go.uber.org/zap"
)

// PermissionChecker evaluates the session principal on the fast path
type PermissionChecker interface {
	Authorize(p *models.Principal, permission string) error
	RequireSuperAdmin(p *models.Principal) error
}

// AuthzMiddleware guards routes that are not gateway operations
type AuthzMiddleware struct {
	checker PermissionChecker
	logger  *zap.Logger
}

// NewAuthzMiddleware creates a new AuthzMiddleware
func NewAuthzMiddleware(checker PermissionChecker, logger *zap.Logger) *AuthzMiddleware {
	return &AuthzMiddleware{
		checker: checker,
		logger:  logger,
	}
}

// RequirePermission requires the session principal to hold a permission.
// Must run after RequireAuth.
func (m *AuthzMiddleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.guard(w, r, next, func(p *models.Principal) error {
				return m.checker.Authorize(p, permission)
			})
		})
	}
}

// RequireSuperAdmin requires the literal super admin role.
// Must run after RequireAuth.
func (m *AuthzMiddleware) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.guard(w, r, next, m.checker.RequireSuperAdmin)
	})
}

func (m *AuthzMiddleware) guard(w http.ResponseWriter, r *http.Request, next http.Handler, check func(*models.Principal) error) {
	ctx := r.Context()
	requestID := GetRequestIDFromContext(ctx)

	principal := GetPrincipalFromContext(ctx)
	if principal == nil {
		m.logger.Error("principal not found in context",
			zap.String("request_id", requestID))
		_ = utils.WriteUnauthorized(w, "Unauthorized")
		return
	}

	if err := check(principal); err != nil {
		m.logger.Warn("route access denied",
			zap.String("request_id", requestID),
			zap.String("sub", principal.ID),
			zap.String("path", r.URL.Path))
		_ = utils.WriteForbidden(w, services.GetErrorMessage(err))
		return
	}

	next.ServeHTTP(w, r)
}
