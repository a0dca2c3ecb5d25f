package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/staffhub/shift-engine/internal/services"
)

// PerformanceCommands is implemented by services.PerformanceService
type PerformanceCommands interface {
	RecordPerformance(ctx context.Context, p models.Principal, shiftID, workerID uuid.UUID, in *models.PerformanceInput) (*services.PerformanceResult, error)
	ListPerformance(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*services.PerformanceResult, error)
}

// PerformanceHandler exposes staff reviews
type PerformanceHandler struct {
	performance PerformanceCommands
	trail       auditTrail
	logger      *logrus.Logger
}

// NewPerformanceHandler creates a new performance handler. audit may be nil.
func NewPerformanceHandler(performance PerformanceCommands, audit AuditLogger, logger *logrus.Logger) *PerformanceHandler {
	return &PerformanceHandler{
		performance: performance,
		trail:       auditTrail{audit: audit, logger: logger},
		logger:      logger,
	}
}

// RecordPerformance stores a review of a worker on a completed shift
// POST /api/v1/shifts/:id/assignments/:worker_id/performance
func (h *PerformanceHandler) RecordPerformance(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	workerID, ok := uuidParam(c, "worker_id")
	if !ok {
		return
	}
	var in models.PerformanceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.performance.RecordPerformance(c.Request.Context(), p, shiftID, workerID, &in)
	if err != nil {
		respondFault(c, h.logger, "record_performance", err)
		return
	}
	if !res.OK() {
		h.trail.rejection(c, p, "record_performance", &shiftID, res.Decision)
		respondDecision(c, res.Decision)
		return
	}
	h.trail.success(c, p, services.AuditPerformanceLogged, shiftID, map[string]interface{}{
		"worker_id": workerID,
		"status":    res.Record.Status,
	})
	c.JSON(http.StatusCreated, res.Record)
}

// ListPerformance returns the reviews of a shift
// GET /api/v1/shifts/:id/performance
func (h *PerformanceHandler) ListPerformance(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	res, err := h.performance.ListPerformance(c.Request.Context(), p, shiftID)
	if err != nil {
		respondFault(c, h.logger, "list_performance", err)
		return
	}
	if !res.OK() {
		respondDecision(c, res.Decision)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": res.Records})
}
