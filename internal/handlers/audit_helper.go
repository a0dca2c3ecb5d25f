package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/staffhub/shift-engine/internal/services"
	"github.com/staffhub/shift-engine/internal/utils"
)

// AuditLogger records lifecycle events. Implemented by services.AuditService.
type AuditLogger interface {
	LogShiftEvent(ctx context.Context, p models.Principal, action string, shiftID uuid.UUID, ipAddress, userAgent string, details map[string]interface{}) error
	LogRejection(ctx context.Context, p models.Principal, command string, shiftID *uuid.UUID, d services.Decision, ipAddress, userAgent string) error
}

// auditTrail writes audit rows without ever failing the request. A nil
// logger disables auditing.
type auditTrail struct {
	audit  AuditLogger
	logger *logrus.Logger
}

func (a auditTrail) logAuditError(operation string, err error) {
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"operation": operation,
			"error":     err.Error(),
		}).Warn("Audit write failed")
	}
}

func (a auditTrail) success(c *gin.Context, p models.Principal, action string, shiftID uuid.UUID, details map[string]interface{}) {
	if a.audit == nil {
		return
	}
	err := a.audit.LogShiftEvent(c.Request.Context(), p, action, shiftID, utils.ClientIP(c), utils.UserAgent(c), details)
	a.logAuditError(action, err)
}

// rejection records refusals caused by role or plan, not ordinary conflicts
func (a auditTrail) rejection(c *gin.Context, p models.Principal, command string, shiftID *uuid.UUID, d services.Decision) {
	if a.audit == nil {
		return
	}
	switch d.Outcome.Category() {
	case services.CategoryDenied, services.CategoryLimit:
	default:
		return
	}
	err := a.audit.LogRejection(c.Request.Context(), p, command, shiftID, d, utils.ClientIP(c), utils.UserAgent(c))
	a.logAuditError(command, err)
}
