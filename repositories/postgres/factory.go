package postgres

import (
	"context"

	"github.com/Ashwin12159/Control-Plane/config"
	"github.com/Ashwin12159/Control-Plane/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db      *DB
	auditDB *DB // Optional: separate DB for audit logs
	logger  *zap.Logger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	f := &RepositoryFactory{db: db, logger: logger}

	if cfg.AuditDatabase != nil {
		auditDB, err := NewDB(*cfg.AuditDatabase, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		f.auditDB = auditDB
	}

	return f, nil
}

// NewRepositoryFactoryFromDB builds a factory over existing pools
func NewRepositoryFactoryFromDB(db, auditDB *DB, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, auditDB: auditDB, logger: logger}
}

// InitSchema initializes the main schema and, when separate, the audit schema
func (f *RepositoryFactory) InitSchema(ctx context.Context) error {
	if err := f.db.InitSchema(ctx); err != nil {
		return err
	}
	if f.auditDB != nil {
		return f.auditDB.InitAuditSchema(ctx)
	}
	return nil
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Users:     NewUserRepository(f.db, f.logger),
		AuditLogs: NewAuditRepository(f.AuditDB(), f.auditDB == nil, f.logger),
	}
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// AuditDB returns the pool audit logs are written to
func (f *RepositoryFactory) AuditDB() *DB {
	if f.auditDB != nil {
		return f.auditDB
	}
	return f.db
}

// HealthCheck checks every pool
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if err := f.db.HealthCheck(ctx); err != nil {
		return err
	}
	if f.auditDB != nil {
		return f.auditDB.HealthCheck(ctx)
	}
	return nil
}

// Close closes the database connection(s)
func (f *RepositoryFactory) Close() error {
	if f.auditDB != nil {
		_ = f.auditDB.Close()
	}
	return f.db.Close()
}
