package handlers

import (
	"net/http"

	"github.com/Ashwin12159/Control-Plane/models"
	"github.com/Ashwin12159/Control-Plane/utils"
	"go.uber.org/zap"
)

// RegionLister lists configured regions
type RegionLister interface {
	Summaries() []models.RegionSummary
}

// RegionHandler serves the public region table
type RegionHandler struct {
	regions RegionLister
	logger  *zap.Logger
}

// NewRegionHandler creates a new RegionHandler
func NewRegionHandler(regions RegionLister, logger *zap.Logger) *RegionHandler {
	return &RegionHandler{regions: regions, logger: logger}
}

// HandleListRegions handles GET /api/regions
func (h *RegionHandler) HandleListRegions(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteOK(w, h.regions.Summaries()); err != nil {
		h.logger.Error("failed to write regions response", zap.Error(err))
	}
}
