package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Ashwin12159/Control-Plane/middleware"
	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/services/gateway"
	"github.com/Ashwin12159/Control-Plane/utils"
	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"
)

// maxBodyBytes bounds operation request bodies
const maxBodyBytes = 1 << 20

// GatewayService runs operations against regional backends
type GatewayService interface {
	Execute(ctx context.Context, env gateway.CallEnvelope, principal *models.Principal) (*gateway.Result, error)
	Catalog() *gateway.Catalog
}

// PermissionLookup names the permission an operation requires
type PermissionLookup interface {
	RequiredPermission(operation string) (string, bool)
}

// OperationInfo describes one operation in the catalog listing
type OperationInfo struct {
	Name       string             `json:"name"`
	Permission string             `json:"permission,omitempty"`
	Cacheable  bool               `json:"cacheable"`
	ReadOnly   bool               `json:"readOnly"`
	Schema     *jsonschema.Schema `json:"schema"`
}

// GatewayHandler exposes gateway operations over HTTP
type GatewayHandler struct {
	gateway     GatewayService
	permissions PermissionLookup
	logger      *zap.Logger
}

// NewGatewayHandler creates a new GatewayHandler
func NewGatewayHandler(gw GatewayService, permissions PermissionLookup, logger *zap.Logger) *GatewayHandler {
	return &GatewayHandler{
		gateway:     gw,
		permissions: permissions,
		logger:      logger,
	}
}

// HandleOperation handles POST /api/v1/{region}/{operation}.
// Read-only operations are also routed here for GET.
func (h *GatewayHandler) HandleOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operation := chi.URLParam(r, "operation")
	region := chi.URLParam(r, "region")

	if r.Method == http.MethodGet {
		op, ok := h.gateway.Catalog().Lookup(operation)
		if ok && !op.ReadOnly {
			w.Header().Set("Allow", http.MethodPost)
			_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Operation requires POST: "+operation)
			return
		}
	}

	var payload json.RawMessage
	if r.Body != nil && r.Method != http.MethodGet {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid request body")
			return
		}
		payload = body
	}

	env := gateway.CallEnvelope{
		Operation:     operation,
		Region:        region,
		Payload:       payload,
		CorrelationID: middleware.GetCorrelationIDFromContext(ctx),
		ClientIP:      middleware.GetClientIPFromContext(ctx),
	}

	result, err := h.gateway.Execute(ctx, env, middleware.GetPrincipalFromContext(ctx))
	if err != nil {
		h.logger.Debug("operation failed",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("correlation_id", env.CorrelationID),
			zap.String("operation", operation),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	if result.Cached {
		w.Header().Set("X-Cache", "HIT")
	}
	if err := utils.WriteOK(w, result.Response); err != nil {
		h.logger.Error("failed to write operation response", zap.Error(err))
	}
}

// HandleListOperations handles GET /api/v1/operations
func (h *GatewayHandler) HandleListOperations(w http.ResponseWriter, r *http.Request) {
	ops := h.gateway.Catalog().List()
	out := make([]OperationInfo, 0, len(ops))
	for _, op := range ops {
		info := OperationInfo{
			Name:      op.Name,
			Cacheable: op.Cacheable(),
			ReadOnly:  op.ReadOnly,
			Schema:    op.Schema(),
		}
		if h.permissions != nil {
			info.Permission, _ = h.permissions.RequiredPermission(op.Name)
		}
		out = append(out, info)
	}

	if err := utils.WriteOK(w, out); err != nil {
		h.logger.Error("failed to write operations response", zap.Error(err))
	}
}
