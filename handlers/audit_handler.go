package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/utils"
	"go.uber.org/zap"
)

// AuditLister lists recorded audit entries
type AuditLister interface {
	List(ctx context.Context, filter models.AuditLogFilter) (*models.AuditLogPage, error)
}

// AuditHandler serves the audit log listing
type AuditHandler struct {
	audit  AuditLister
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit AuditLister, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logger,
	}
}

// HandleListAuditLogs handles GET /api/audit-logs.
// Access is restricted to super admins by the router.
func (h *AuditHandler) HandleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.AuditLogFilter{
		Page:           queryInt(q.Get("page")),
		Limit:          queryInt(q.Get("limit")),
		SortBy:         q.Get("sortBy"),
		SortOrder:      q.Get("sortOrder"),
		SearchUsername: q.Get("searchUsername"),
		Region:         q.Get("filterRegion"),
		Action:         q.Get("filterAction"),
	}

	page, err := h.audit.List(r.Context(), filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, page); err != nil {
		h.logger.Error("failed to write audit logs response", zap.Error(err))
	}
}

// queryInt parses a paging parameter; invalid values become zero and
// are replaced by defaults downstream
func queryInt(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
