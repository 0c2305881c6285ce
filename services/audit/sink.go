package audit

import (
	"context"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/repositories"
)

// Sink is a destination for audit records
type Sink interface {
	Name() string
	Write(ctx context.Context, log *models.AuditLog) error
}

// RepositorySink writes audit records to the audit store
type RepositorySink struct {
	repo repositories.AuditRepository
}

// NewRepositorySink wraps an audit repository
func NewRepositorySink(repo repositories.AuditRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Name() string { return "postgres" }

func (s *RepositorySink) Write(ctx context.Context, log *models.AuditLog) error {
	return s.repo.Insert(ctx, log)
}
