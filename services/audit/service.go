package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/repositories"
	"github.com/Ashwin12159/Control-Plane/services"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log *models.AuditLog
}

// AuditService records audit events asynchronously and serves listings
type AuditService struct {
	auditRepo    repositories.AuditRepository
	sinks        []Sink
	logger       *zap.Logger
	eventChan    chan *AuditEvent
	workerCount  int
	bufferSize   int
	writeTimeout time.Duration
	wg           sync.WaitGroup
	started      bool
	stopped      bool
	mu           sync.Mutex
	dropped      atomic.Uint64
	failed       atomic.Uint64
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize   int           // Size of the event buffer channel
	WorkerCount  int           // Number of concurrent workers
	WriteTimeout time.Duration // Bound on each sink write
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:   10000,
		WorkerCount:  5,
		WriteTimeout: 5 * time.Second,
	}
}

// NewAuditService creates a new AuditService. The repository, when set,
// is both the primary sink and the source for listings.
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config, extra ...Sink) *AuditService {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	sinks := make([]Sink, 0, len(extra)+1)
	if auditRepo != nil {
		sinks = append(sinks, NewRepositorySink(auditRepo))
	}
	for _, s := range extra {
		if s != nil {
			sinks = append(sinks, s)
		}
	}

	return &AuditService{
		auditRepo:    auditRepo,
		sinks:        sinks,
		logger:       logger,
		eventChan:    make(chan *AuditEvent, config.BufferSize),
		workerCount:  config.WorkerCount,
		bufferSize:   config.BufferSize,
		writeTimeout: config.WriteTimeout,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize),
		zap.Int("sinks", len(s.sinks)))

	return nil
}

// Stop gracefully stops the audit service.
// Pending events are drained until the timeout elapses.
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not running")
	}
	s.stopped = true
	close(s.eventChan)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record builds an audit entry for a completed call and queues it.
// It never blocks and never fails: write problems are logged only.
func (s *AuditService) Record(ctx context.Context, action models.AuditAction, region string, principal *models.Principal, correlationID string, payload interface{}) {
	log := models.NewAuditLog(action, region).
		WithPrincipal(principal).
		WithRequestID(correlationID).
		WithPayload(payload)

	if redacted, kinds := RedactPayload(log.Payload); len(kinds) > 0 {
		log.Payload = redacted
		s.logger.Debug("secrets masked in audit payload",
			zap.String("action", string(action)),
			zap.String("correlation_id", correlationID),
			zap.Any("kinds", kinds))
	}

	if err := s.LogEvent(&AuditEvent{Log: log}); err != nil {
		s.logger.Warn("audit record not queued",
			zap.String("action", string(action)),
			zap.String("region", region),
			zap.String("correlation_id", correlationID),
			zap.Error(err))
	}
}

// LogEvent queues an event without blocking
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		s.dropped.Add(1)
		return services.WrapInternal("audit service not running", services.ErrAuditFailed)
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.dropped.Add(1)
		return services.WrapInternal("audit event buffer full", services.ErrAuditFailed)
	}
}

// worker processes events from the channel
func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		s.processEvent(id, event)
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent fans an event out to every sink, each under its own deadline
func (s *AuditService) processEvent(workerID int, event *AuditEvent) {
	for _, sink := range s.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		err := sink.Write(ctx, event.Log)
		cancel()
		if err != nil {
			s.failed.Add(1)
			s.logger.Error("failed to write audit event",
				zap.Int("worker_id", workerID),
				zap.String("sink", sink.Name()),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)),
				zap.String("region", event.Log.Region),
				zap.String("request_id", event.Log.RequestID))
		}
	}
}

// List returns a page of audit logs. Out-of-range paging values are
// replaced by their defaults.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) (*models.AuditLogPage, error) {
	if s.auditRepo == nil {
		return nil, services.NewConfigurationError("audit store not configured", nil)
	}
	filter = NormalizeFilter(filter)

	logs, total, err := s.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, services.WrapInternal("failed to fetch audit logs", err)
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	return &models.AuditLogPage{
		Data:       logs,
		Pagination: models.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// NormalizeFilter applies listing defaults and bounds
func NormalizeFilter(f models.AuditLogFilter) models.AuditLogFilter {
	if f.Page < 1 {
		f.Page = defaultPage
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.SortBy != "username" {
		f.SortBy = "createdAt"
	}
	if strings.ToLower(f.SortOrder) == "asc" {
		f.SortOrder = "asc"
	} else {
		f.SortOrder = "desc"
	}
	f.SearchUsername = strings.TrimSpace(f.SearchUsername)
	f.Region = strings.TrimSpace(f.Region)
	f.Action = strings.TrimSpace(f.Action)
	return f
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
		Dropped:       s.dropped.Load(),
		Failed:        s.failed.Load(),
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
	Dropped       uint64
	Failed        uint64
}
