package authz

import (
	"context"
	"fmt"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/services"
	"go.uber.org/zap"
)

// IdentityDirectory loads principals from the persisted user/role/permission store
type IdentityDirectory interface {
	GetPrincipal(ctx context.Context, principalID string) (*models.Principal, error)
}

// DirectoryAuthorizer evaluates principals looked up from the identity directory.
// It blocks on the directory and is meant for offline and administrative
// callers without a live session; the HTTP request path only holds an Engine.
type DirectoryAuthorizer struct {
	engine    *Engine
	directory IdentityDirectory
	logger    *zap.Logger
}

// NewDirectoryAuthorizer creates a directory-backed authorizer
func NewDirectoryAuthorizer(engine *Engine, directory IdentityDirectory, logger *zap.Logger) *DirectoryAuthorizer {
	return &DirectoryAuthorizer{
		engine:    engine,
		directory: directory,
		logger:    logger,
	}
}

// Authorize loads the principal and checks the permission.
// Unknown principals are denied.
func (a *DirectoryAuthorizer) Authorize(ctx context.Context, principalID, permission string) (Decision, error) {
	p, err := a.lookup(ctx, principalID)
	if err != nil {
		if services.IsNotFoundError(err) {
			return Decision{Permission: permission, Reason: DeniedMessage(permission)}, nil
		}
		return Decision{}, err
	}
	return Check(p, permission), nil
}

// AuthorizeOperation resolves the operation's permission and checks it
func (a *DirectoryAuthorizer) AuthorizeOperation(ctx context.Context, principalID, operation string) (Decision, error) {
	perm, ok := a.engine.RequiredPermission(operation)
	if !ok {
		if a.engine.UnmappedPolicy() == UnmappedAllow {
			return Decision{Allowed: true}, nil
		}
		return Decision{Permission: operation, Reason: DeniedMessage(operation)}, nil
	}
	return a.Authorize(ctx, principalID, perm)
}

// Principal returns the directory view of a principal
func (a *DirectoryAuthorizer) Principal(ctx context.Context, principalID string) (*models.Principal, error) {
	return a.lookup(ctx, principalID)
}

func (a *DirectoryAuthorizer) lookup(ctx context.Context, principalID string) (*models.Principal, error) {
	if principalID == "" {
		return nil, services.NewValidationError("principal id is required")
	}
	p, err := a.directory.GetPrincipal(ctx, principalID)
	if err != nil {
		if services.IsNotFoundError(err) {
			a.logger.Info("principal not found in directory", zap.String("principal", principalID))
			return nil, err
		}
		return nil, services.WrapInternal(fmt.Sprintf("failed to load principal %s", principalID), err)
	}
	return p, nil
}
