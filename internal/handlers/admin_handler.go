package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/services"
)

// JobRunner is implemented by services.CronService
type JobRunner interface {
	RunAutoAssignNow(ctx context.Context) (*services.AutoAssignReport, error)
	GetJobStatus() map[string]interface{}
}

// AdminHandler handles superuser operations on background jobs
type AdminHandler struct {
	jobs   JobRunner
	logger *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(jobs JobRunner, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{jobs: jobs, logger: logger}
}

// GetJobStatus handles GET /api/v1/admin/jobs
func (h *AdminHandler) GetJobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.GetJobStatus())
}

// RunAutoAssign handles POST /api/v1/admin/jobs/auto-assign
func (h *AdminHandler) RunAutoAssign(c *gin.Context) {
	report, err := h.jobs.RunAutoAssignNow(c.Request.Context())
	if err != nil {
		respondFault(c, h.logger, "run_auto_assign", err)
		return
	}
	c.JSON(http.StatusOK, report)
}
