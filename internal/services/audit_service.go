package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/shift-engine/internal/database"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/staffhub/shift-engine/internal/utils"
)

// Audit actions
const (
	AuditShiftCreated       = "shift_created"
	AuditShiftUpdated       = "shift_updated"
	AuditShiftDeleted       = "shift_deleted"
	AuditShiftCancelled     = "shift_cancelled"
	AuditShiftBooked        = "shift_booked"
	AuditShiftUnbooked      = "shift_unbooked"
	AuditWorkerAssigned     = "worker_assigned"
	AuditWorkerUnassigned   = "worker_unassigned"
	AuditShiftCompleted     = "shift_completed"
	AuditPerformanceLogged  = "performance_recorded"
	AuditPermissionRejected = "permission_rejected"
)

// AuditService handles audit logging of shift lifecycle events
type AuditService struct {
	db database.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB) *AuditService {
	return &AuditService{
		db: db,
	}
}

// AuditEvent represents a lifecycle event to be logged
type AuditEvent struct {
	UserID     *uuid.UUID     // nil for system jobs
	Action     string         // e.g. "shift_booked", "worker_assigned"
	EntityType string         // "shift" or "assignment"
	EntityID   *uuid.UUID     // ID of the affected entity (can be nil)
	IPAddress  string         // Client IP address
	UserAgent  string         // Client user agent
	Details    models.JSONMap // Additional details as JSONB
}

// LogShiftEvent logs a successful lifecycle command against a shift
func (s *AuditService) LogShiftEvent(ctx context.Context, p models.Principal, action string, shiftID uuid.UUID, ipAddress, userAgent string, details map[string]interface{}) error {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["role"] = p.Role
	details["device_info"] = utils.ParseUserAgent(userAgent)
	if p.AgencyID != nil {
		details["agency_id"] = *p.AgencyID
	}

	return s.logEvent(ctx, AuditEvent{
		UserID:     actorID(p),
		Action:     action,
		EntityType: "shift",
		EntityID:   &shiftID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogRejection logs a command refused for lack of permission or entitlement
func (s *AuditService) LogRejection(ctx context.Context, p models.Principal, command string, shiftID *uuid.UUID, d Decision, ipAddress, userAgent string) error {
	return s.logEvent(ctx, AuditEvent{
		UserID:     actorID(p),
		Action:     AuditPermissionRejected,
		EntityType: "shift",
		EntityID:   shiftID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: models.JSONMap{
			"command":     command,
			"outcome":     d.Outcome,
			"reason":      d.Reason,
			"role":        p.Role,
			"device_info": utils.ParseUserAgent(userAgent),
		},
	})
}

func actorID(p models.Principal) *uuid.UUID {
	if p.UserID == uuid.Nil {
		return nil
	}
	id := p.UserID
	return &id
}

// logEvent is the internal method that writes to the audit_logs table
func (s *AuditService) logEvent(ctx context.Context, event AuditEvent) error {
	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err := s.db.ExecContext(ctx,
		query,
		event.UserID,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.IPAddress,
		event.UserAgent,
		event.Details,
	)

	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
