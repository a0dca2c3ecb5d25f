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

// UsageReporter is implemented by services.UsageService
type UsageReporter interface {
	AgencyUsage(ctx context.Context, p models.Principal, agencyID uuid.UUID) (*services.UsageResult, error)
}

// UsageHandler reports monthly shift usage against the plan limit
type UsageHandler struct {
	usage  UsageReporter
	logger *logrus.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usage UsageReporter, logger *logrus.Logger) *UsageHandler {
	return &UsageHandler{usage: usage, logger: logger}
}

// GetUsage returns the caller's agency usage. Superusers pass ?agency_id=.
// GET /api/v1/agency/usage
func (h *UsageHandler) GetUsage(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var agencyID uuid.UUID
	switch raw := c.Query("agency_id"); {
	case raw != "":
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "Invalid agency_id")
			return
		}
		agencyID = id
	case p.AgencyID != nil:
		agencyID = *p.AgencyID
	default:
		badRequest(c, "agency_id is required")
		return
	}

	res, err := h.usage.AgencyUsage(c.Request.Context(), p, agencyID)
	if err != nil {
		respondFault(c, h.logger, "agency_usage", err)
		return
	}
	if !res.OK() {
		respondDecision(c, res.Decision)
		return
	}
	c.JSON(http.StatusOK, res.Usage)
}
