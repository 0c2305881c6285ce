package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ashwin12159/Control-Plane/config"
	"github.com/Ashwin12159/Control-Plane/middleware"
	"github.com/Ashwin12159/Control-Plane/repositories"
	"github.com/Ashwin12159/Control-Plane/repositories/postgres"
	"github.com/Ashwin12159/Control-Plane/services/audit"
	"github.com/Ashwin12159/Control-Plane/services/authz"
	"github.com/Ashwin12159/Control-Plane/services/backend"
	"github.com/Ashwin12159/Control-Plane/services/cache"
	"github.com/Ashwin12159/Control-Plane/services/credentials"
	"github.com/Ashwin12159/Control-Plane/services/gateway"
	"github.com/Ashwin12159/Control-Plane/services/region"
	"github.com/Ashwin12159/Control-Plane/session"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	AuditLogs repositories.AuditRepository

	// Core services
	Regions  *region.Registry
	Issuer   *credentials.Issuer
	Authz    *authz.Engine
	Cache    *cache.ResponseCache
	Backends *backend.ClientRegistry
	Audit    *audit.AuditService
	Gateway  *gateway.Gateway

	// HTTP session handling
	Sessions        *session.Validator
	AuthMiddleware  *middleware.AuthMiddleware
	AuthzMiddleware *middleware.AuthzMiddleware

	kafkaSink   *audit.KafkaSink
	cacheMemory *cache.MemoryStore

	stopWorkers context.CancelFunc
	workers     sync.WaitGroup
}

// NewDependencies connects to the database and wires every service
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesFromFactory(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesFromFactory wires every service over an existing repository factory
func NewDependenciesFromFactory(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if err := factory.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	deps.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	deps.initRepositories()

	if err := deps.initRegions(cfg); err != nil {
		return nil, fmt.Errorf("failed to load regions: %w", err)
	}

	deps.initAuthz(cfg)
	deps.initCache(ctx, cfg)

	if err := deps.initBackends(cfg); err != nil {
		deps.closeCache()
		return nil, fmt.Errorf("failed to initialize backend clients: %w", err)
	}

	if err := deps.initAudit(cfg); err != nil {
		deps.closeCache()
		_ = deps.Backends.Close()
		return nil, fmt.Errorf("failed to initialize audit: %w", err)
	}

	deps.initSessions(cfg)
	deps.initGateway(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()
	d.Users = repos.Users
	d.AuditLogs = repos.AuditLogs
	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initRegions(cfg *config.Config) error {
	registry, err := region.Load(region.LoadOptions{
		File:         cfg.Regions.File,
		EnvPrefix:    cfg.Regions.EnvPrefix,
		SecretPrefix: cfg.Credentials.SecretPrefix,
	})
	if err != nil {
		return err
	}
	d.Regions = registry
	d.Logger.Info("regions loaded", zap.Strings("regions", registry.Codes()))
	return nil
}

func (d *Dependencies) initAuthz(cfg *config.Config) {
	d.Authz = authz.NewEngine(authz.DefaultOperationPermissions(),
		authz.UnmappedPolicy(cfg.Authz.UnmappedPolicy), d.Logger)
	d.Issuer = credentials.NewIssuer(credentials.EnvSecrets{}, cfg.Credentials.TTL, d.Logger)
}

// initCache puts redis first with an in-process store behind it.
// Redis stays primary even when it is down at startup; the memory store
// serves each operation that redis fails.
func (d *Dependencies) initCache(ctx context.Context, cfg *config.Config) {
	memory := cache.NewMemoryStore(cfg.Cache.MemoryMaxItems)
	d.cacheMemory = memory
	if !cfg.Cache.RedisEnabled {
		d.Cache = cache.New(memory, nil, cfg.Cache.OpTimeout, d.Logger)
		d.Logger.Info("response cache using in-memory store")
		return
	}

	client := cache.NewRedisClient(cache.RedisOptions{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
		TLS:      cfg.Cache.RedisTLS,
	})
	d.Cache = cache.New(cache.NewStore(ctx, client, d.Logger), memory, cfg.Cache.OpTimeout, d.Logger)
	d.Logger.Info("response cache using redis", zap.String("addr", cfg.Cache.RedisAddr))
}

func (d *Dependencies) initBackends(cfg *config.Config) error {
	registry, err := backend.NewClientRegistry(backend.TransportConfig{
		Insecure:   cfg.Backend.Insecure,
		CAFile:     cfg.Backend.CAFile,
		ServerName: cfg.Backend.ServerName,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.Backends = registry
	return nil
}

func (d *Dependencies) initAudit(cfg *config.Config) error {
	var extra []audit.Sink
	if len(cfg.Audit.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(audit.KafkaConfig{
			Brokers: cfg.Audit.KafkaBrokers,
			Topic:   cfg.Audit.KafkaTopic,
		})
		if err != nil {
			return err
		}
		d.kafkaSink = sink
		extra = append(extra, sink)
		d.Logger.Info("audit mirror enabled", zap.String("topic", cfg.Audit.KafkaTopic))
	}

	d.Audit = audit.NewAuditService(d.AuditLogs, d.Logger, audit.Config{
		BufferSize:   cfg.Audit.BufferSize,
		WorkerCount:  cfg.Audit.WorkerCount,
		WriteTimeout: cfg.Audit.WriteTimeout,
	}, extra...)
	return nil
}

func (d *Dependencies) initSessions(cfg *config.Config) {
	if cfg.Session.Secret == "" {
		d.Logger.Warn("session secret not configured, protected routes will reject every request")
	}
	d.Sessions = session.NewValidator(session.Config{
		Secret: cfg.Session.Secret,
		Issuer: cfg.Session.Issuer,
	})
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Sessions, d.Logger)
	d.AuthzMiddleware = middleware.NewAuthzMiddleware(d.Authz, d.Logger)
}

func (d *Dependencies) initGateway(cfg *config.Config) {
	d.Gateway = gateway.NewGateway(
		gateway.NewCatalog(cfg.Cache.CallDetailsTTL),
		d.Authz,
		d.Cache,
		d.Regions,
		d.Issuer,
		backend.NewGRPCDispatcher(d.Backends, d.Logger),
		d.Audit,
		cfg.EffectiveDispatchTimeout(),
		d.Logger,
	)
	d.Logger.Info("gateway initialized",
		zap.Int("operations", len(d.Gateway.Catalog().List())),
		zap.Duration("dispatch_timeout", d.Gateway.DispatchTimeout()))
}

// Start launches background workers
func (d *Dependencies) Start() error {
	if d.cacheMemory != nil && d.stopWorkers == nil {
		interval := time.Minute
		if d.Config != nil && d.Config.Cache.CleanupInterval > 0 {
			interval = d.Config.Cache.CleanupInterval
		}
		ctx, cancel := context.WithCancel(context.Background())
		d.stopWorkers = cancel
		d.workers.Add(1)
		go func() {
			defer d.workers.Done()
			d.cacheMemory.StartCleanupWorker(ctx, interval)
		}()
	}

	if d.Audit == nil {
		return nil
	}
	return d.Audit.Start()
}

func (d *Dependencies) stopBackgroundWorkers() {
	if d.stopWorkers == nil {
		return
	}
	d.stopWorkers()
	d.workers.Wait()
	d.stopWorkers = nil
}

func (d *Dependencies) closeCache() {
	if d.Cache != nil {
		_ = d.Cache.Close()
	}
}

// Close gracefully shuts down all dependencies. Pending audit entries are
// drained first so they reach the store before its pool closes.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	d.stopBackgroundWorkers()

	if d.Audit != nil && d.Audit.GetStats().Started {
		timeout := d.Config.Audit.StopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining < timeout {
				timeout = remaining
			}
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
		stats := d.Audit.GetStats()
		d.Logger.Info("audit service stopped",
			zap.Uint64("dropped", stats.Dropped),
			zap.Uint64("failed", stats.Failed))
	}

	if d.kafkaSink != nil {
		if err := d.kafkaSink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit mirror: %w", err))
		}
	}

	if d.Backends != nil {
		if err := d.Backends.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close backend clients: %w", err))
		}
	}

	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
