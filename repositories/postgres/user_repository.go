package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/repositories"
	"github.com/Ashwin12159/Control-Plane/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userSelect = `
	SELECT u.id, u.uuid, u.username, u.email, COALESCE(r.name, '')
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id
`

const permissionsQuery = `
	SELECT p.name
	FROM users u
	JOIN role_permissions rp ON rp.role_id = u.role_id
	JOIN permissions p ON p.id = rp.permission_id
	WHERE u.id = $1 AND p.is_active = true
	ORDER BY p.name
`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUUID retrieves a user by external uuid
func (r *UserRepository) GetByUUID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, userSelect+" WHERE u.uuid = $1", id)
}

// GetByID retrieves a user by numeric id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, userSelect+" WHERE u.id = $1", id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, userSelect+" WHERE u.email = $1", email)
}

// GetPrincipal resolves a principal id. Ids that parse as a uuid are
// looked up by uuid first; numeric ids fall back to the primary key.
func (r *UserRepository) GetPrincipal(ctx context.Context, principalID string) (*models.Principal, error) {
	if _, err := uuid.Parse(principalID); err == nil {
		user, err := r.GetByUUID(ctx, principalID)
		if err == nil {
			return user.ToPrincipal(), nil
		}
		if !services.IsNotFoundError(err) {
			return nil, err
		}
	}

	numericID, err := strconv.ParseInt(principalID, 10, 64)
	if err != nil {
		return nil, services.ErrUserNotFound
	}
	user, err := r.GetByID(ctx, numericID)
	if err != nil {
		return nil, err
	}
	return user.ToPrincipal(), nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	var userUUID sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&userUUID,
		&user.Username,
		&user.Email,
		&user.RoleName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.UUID = userUUID.String

	perms, err := r.activePermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Permissions = perms

	r.logger.Debug("user loaded from directory",
		zap.Int64("id", user.ID),
		zap.String("role", user.RoleName),
		zap.Int("permissions", len(perms)))
	return user, nil
}

func (r *UserRepository) activePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, permissionsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	defer rows.Close()

	perms := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permissions: %w", err)
	}
	return perms, nil
}
