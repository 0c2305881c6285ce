package repositories

import (
	"context"

	"github.com/Ashwin12159/Control-Plane/models"
)

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// List retrieves a filtered page of audit logs and the total match count
	List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, int, error)
}

// UserRepository reads the identity directory (users, roles, permissions)
type UserRepository interface {
	// GetByUUID retrieves a user by external uuid
	GetByUUID(ctx context.Context, uuid string) (*models.User, error)

	// GetByID retrieves a user by numeric id
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetPrincipal resolves a principal id (uuid, then numeric id)
	GetPrincipal(ctx context.Context, principalID string) (*models.Principal, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Users     UserRepository
	AuditLogs AuditRepository
}
