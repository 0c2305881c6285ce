package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Ashwin12159/Control-Plane/services/cache"
	"github.com/Ashwin12159/Control-Plane/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Cache     *cache.Stats      `json:"cache,omitempty"`
}

// CacheChecker reports cache reachability and in-process store usage
type CacheChecker interface {
	Ping(ctx context.Context) error
	MemoryStats() (cache.Stats, bool)
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     *sql.DB
	cache  CacheChecker
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. cache may be nil.
func NewHealthHandler(db *sql.DB, cache CacheChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz.
// Liveness only: always 200 while the process serves requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz.
// The database gates readiness. An unreachable cache is reported as
// degraded because calls fall back to the in-process store.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true
	var cacheStats *cache.Stats

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		ready = false
	} else {
		checks["database"] = "healthy"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.Warn("cache health check failed", zap.Error(err))
			checks["cache"] = "degraded"
		} else {
			checks["cache"] = "healthy"
		}
		if stats, ok := h.cache.MemoryStats(); ok {
			cacheStats = &stats
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !ready {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Cache:     cacheStats,
	}

	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	if err := h.db.PingContext(ctx); err != nil {
		return err
	}
	var result int
	return h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}
