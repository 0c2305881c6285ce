package authz

import (
	"fmt"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/services"
	"go.uber.org/zap"
)

// UnmappedPolicy decides how operations missing from the permission table are treated
type UnmappedPolicy string

const (
	UnmappedDeny  UnmappedPolicy = "deny"
	UnmappedAllow UnmappedPolicy = "allow"
)

// DeniedMessage is the client-facing reason for a missing permission
func DeniedMessage(permission string) string {
	return fmt.Sprintf("You do not have permission to access: %s", permission)
}

// DefaultOperationPermissions maps each protected operation to the single permission it requires
func DefaultOperationPermissions() map[string]string {
	return map[string]string{
		"push-queue":                  models.PermissionRabbitMQ,
		"broadcast-exchange":          models.PermissionRabbitMQ,
		"check-sync":                  models.PermissionCheckSync,
		"numbers-not-in-bifrost":      models.PermissionNumbersNotInBifrost,
		"numbers-not-in-number-cache": models.PermissionNumbersNotInCache,
		"generate-signed-url":         models.PermissionGenerateSignedURL,
		"get-call-details":            models.PermissionCallDetails,
		"list-practices":              models.PermissionListPractices,
		"get-complete-call-details":   models.PermissionExportCallDetails,
	}
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed    bool
	Permission string
	Reason     string
}

// Err converts a denial into a forbidden domain error
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return services.NewForbiddenError(d.Reason).WithDetail("permission", d.Permission)
}

// Engine evaluates principals carried by a live session.
// It never performs I/O; directory lookups live in DirectoryAuthorizer.
type Engine struct {
	operations map[string]string
	unmapped   UnmappedPolicy
	logger     *zap.Logger
}

// NewEngine creates an engine over an operation→permission table
func NewEngine(operations map[string]string, unmapped UnmappedPolicy, logger *zap.Logger) *Engine {
	if operations == nil {
		operations = DefaultOperationPermissions()
	}
	if unmapped != UnmappedAllow {
		unmapped = UnmappedDeny
	}
	table := make(map[string]string, len(operations))
	for op, perm := range operations {
		table[op] = perm
	}
	return &Engine{
		operations: table,
		unmapped:   unmapped,
		logger:     logger,
	}
}

// Check applies the role/permission rule: super admins pass every check,
// everyone else needs the permission in their explicit set.
func Check(p *models.Principal, permission string) Decision {
	if p == nil {
		return Decision{Permission: permission, Reason: DeniedMessage(permission)}
	}
	if p.IsSuperAdmin() || p.HasPermission(permission) {
		return Decision{Allowed: true, Permission: permission}
	}
	return Decision{Permission: permission, Reason: DeniedMessage(permission)}
}

// Authorize checks a permission against the session principal
func (e *Engine) Authorize(p *models.Principal, permission string) error {
	decision := Check(p, permission)
	if !decision.Allowed {
		e.logger.Info("authorization denied",
			zap.String("principal", principalID(p)),
			zap.String("permission", permission))
	}
	return decision.Err()
}

// RequiredPermission returns the permission mapped to an operation
func (e *Engine) RequiredPermission(operation string) (string, bool) {
	perm, ok := e.operations[operation]
	return perm, ok
}

// AuthorizeOperation resolves the operation's permission and checks it.
// Unmapped operations follow the configured policy.
func (e *Engine) AuthorizeOperation(p *models.Principal, operation string) error {
	perm, ok := e.RequiredPermission(operation)
	if !ok {
		if e.unmapped == UnmappedAllow {
			e.logger.Warn("operation has no permission mapping, allowing",
				zap.String("operation", operation),
				zap.String("principal", principalID(p)))
			return nil
		}
		e.logger.Warn("operation has no permission mapping, denying",
			zap.String("operation", operation),
			zap.String("principal", principalID(p)))
		return services.NewForbiddenError(DeniedMessage(operation)).WithDetail("operation", operation)
	}
	return e.Authorize(p, perm)
}

// RequireSuperAdmin checks the literal super admin role.
// No permission assignment can satisfy it.
func (e *Engine) RequireSuperAdmin(p *models.Principal) error {
	if p.IsSuperAdmin() {
		return nil
	}
	e.logger.Info("super admin required",
		zap.String("principal", principalID(p)))
	return services.ErrSuperAdminRequired
}

// UnmappedPolicy returns the policy applied to unmapped operations
func (e *Engine) UnmappedPolicy() UnmappedPolicy {
	return e.unmapped
}

func principalID(p *models.Principal) string {
	if p == nil {
		return ""
	}
	return p.ID
}
