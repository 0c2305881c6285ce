package models

import "sort"

// Role is a coarse role carried by a principal
type Role string

const (
	RoleUser       Role = "user"
	RoleSuperAdmin Role = "super_admin"
)

// Permission names granted to roles
const (
	PermissionRabbitMQ            = "rabbitmq"
	PermissionCheckSync           = "check-sync"
	PermissionNumbersNotInBifrost = "numbers-not-in-bifrost"
	PermissionNumbersNotInCache   = "numbers-not-in-cache"
	PermissionGenerateSignedURL   = "generate-signed-url"
	PermissionCallDetails         = "call-details"
	PermissionListPractices       = "list-practices"
	PermissionExportCallDetails   = "export-call-details"
)

// Principal is the authenticated actor on whose behalf a call is made.
// It is produced by the session or the identity directory and never mutated.
type Principal struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"name"`
	Email       string          `json:"email"`
	Role        Role            `json:"role"`
	Permissions map[string]bool `json:"-"`
}

// NewPrincipal creates a principal with the given permission names
func NewPrincipal(id, displayName, email string, role Role, permissions ...string) *Principal {
	p := &Principal{
		ID:          id,
		DisplayName: displayName,
		Email:       email,
		Role:        role,
		Permissions: make(map[string]bool, len(permissions)),
	}
	for _, perm := range permissions {
		if perm != "" {
			p.Permissions[perm] = true
		}
	}
	return p
}

// IsSuperAdmin returns true if the principal has the super admin role
func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

// HasPermission reports whether the permission is in the explicit set
func (p *Principal) HasPermission(permission string) bool {
	if p == nil {
		return false
	}
	return p.Permissions[permission]
}

// PermissionList returns the explicit permissions sorted by name
func (p *Principal) PermissionList() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Permissions))
	for perm := range p.Permissions {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}

// Identifier returns the value recorded in audit logs
func (p *Principal) Identifier() string {
	if p == nil {
		return ""
	}
	if p.Email != "" {
		return p.Email
	}
	return p.ID
}
