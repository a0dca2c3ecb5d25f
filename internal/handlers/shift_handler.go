package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/staffhub/shift-engine/internal/services"
	"github.com/staffhub/shift-engine/pkg/geo"
)

// ShiftCommands is the lifecycle surface the handler drives.
// Implemented by services.ShiftLifecycleService.
type ShiftCommands interface {
	GetShift(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*services.ShiftResult, error)
	CreateShift(ctx context.Context, p models.Principal, draft *models.ShiftDraft) (*services.ShiftResult, error)
	UpdateShift(ctx context.Context, p models.Principal, shiftID uuid.UUID, draft *models.ShiftDraft) (*services.ShiftResult, error)
	DeleteShift(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*services.ShiftResult, error)
	CancelShift(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*services.ShiftResult, error)
	BookShift(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*services.AssignmentResult, error)
	UnbookShift(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*services.ShiftResult, error)
	AssignWorker(ctx context.Context, p models.Principal, shiftID, workerID uuid.UUID) (*services.AssignmentResult, error)
	UnassignWorker(ctx context.Context, p models.Principal, shiftID, workerID uuid.UUID) (*services.ShiftResult, error)
	CompleteShift(ctx context.Context, p models.Principal, in services.CompleteInput) (*services.CompletionResult, error)
}

// RecurringCommands creates shift series. Implemented by services.RecurringShiftService.
type RecurringCommands interface {
	CreateRecurringShifts(ctx context.Context, p models.Principal, draft *models.ShiftDraft, rule string) (*services.RecurringResult, error)
}

// ShiftHandler exposes the shift lifecycle over HTTP
type ShiftHandler struct {
	shifts    ShiftCommands
	recurring RecurringCommands
	trail     auditTrail
	logger    *logrus.Logger
}

// NewShiftHandler creates a new shift handler. audit may be nil.
func NewShiftHandler(shifts ShiftCommands, recurring RecurringCommands, audit AuditLogger, logger *logrus.Logger) *ShiftHandler {
	return &ShiftHandler{
		shifts:    shifts,
		recurring: recurring,
		trail:     auditTrail{audit: audit, logger: logger},
		logger:    logger,
	}
}

type assignRequest struct {
	WorkerID uuid.UUID `json:"worker_id" binding:"required"`
}

type completeRequest struct {
	Latitude         *float64                 `json:"latitude"`
	Longitude        *float64                 `json:"longitude"`
	Signature        string                   `json:"signature"`
	AttendanceStatus *models.AttendanceStatus `json:"attendance_status"`
}

type recurringRequest struct {
	models.ShiftDraft
	RRule string `json:"rrule" binding:"required"`
}

// finish writes either the rejection or the success body and audits both
func (h *ShiftHandler) finish(c *gin.Context, p models.Principal, command, action string, shiftID *uuid.UUID, d services.Decision, status int, body interface{}) {
	if !d.OK() {
		h.trail.rejection(c, p, command, shiftID, d)
		respondDecision(c, d)
		return
	}
	if shiftID != nil && action != "" {
		h.trail.success(c, p, action, *shiftID, nil)
	}
	c.JSON(status, body)
}

// GetShift returns a shift with its assignments
// GET /api/v1/shifts/:id
func (h *ShiftHandler) GetShift(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	res, err := h.shifts.GetShift(c.Request.Context(), p, shiftID)
	if err != nil {
		respondFault(c, h.logger, "get_shift", err)
		return
	}
	if !res.OK() {
		respondDecision(c, res.Decision)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shift": res.Shift, "assignments": res.Assignments})
}

// CreateShift creates a shift
// POST /api/v1/shifts
func (h *ShiftHandler) CreateShift(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var draft models.ShiftDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.shifts.CreateShift(c.Request.Context(), p, &draft)
	if err != nil {
		respondFault(c, h.logger, "create_shift", err)
		return
	}
	var shiftID *uuid.UUID
	if res.Shift != nil {
		shiftID = &res.Shift.ID
	}
	h.finish(c, p, "create_shift", services.AuditShiftCreated, shiftID, res.Decision, http.StatusCreated, res.Shift)
}

// CreateRecurringShifts creates one shift per occurrence of an RRULE
// POST /api/v1/shifts/recurring
func (h *ShiftHandler) CreateRecurringShifts(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req recurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.recurring.CreateRecurringShifts(c.Request.Context(), p, &req.ShiftDraft, req.RRule)
	if err != nil {
		respondFault(c, h.logger, "create_recurring_shifts", err)
		return
	}
	if !res.OK() {
		h.trail.rejection(c, p, "create_recurring_shifts", nil, res.Decision)
		respondDecision(c, res.Decision)
		return
	}
	for _, shift := range res.Shifts {
		h.trail.success(c, p, services.AuditShiftCreated, shift.ID, map[string]interface{}{"rrule": req.RRule})
	}
	c.JSON(http.StatusCreated, gin.H{"shifts": res.Shifts, "stopped": res.Stopped})
}

// UpdateShift replaces a shift's editable fields
// PUT /api/v1/shifts/:id
func (h *ShiftHandler) UpdateShift(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var draft models.ShiftDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.shifts.UpdateShift(c.Request.Context(), p, shiftID, &draft)
	if err != nil {
		respondFault(c, h.logger, "update_shift", err)
		return
	}
	h.finish(c, p, "update_shift", services.AuditShiftUpdated, &shiftID, res.Decision, http.StatusOK, res.Shift)
}

// DeleteShift removes a shift that has not completed
// DELETE /api/v1/shifts/:id
func (h *ShiftHandler) DeleteShift(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	res, err := h.shifts.DeleteShift(c.Request.Context(), p, shiftID)
	if err != nil {
		respondFault(c, h.logger, "delete_shift", err)
		return
	}
	h.finish(c, p, "delete_shift", services.AuditShiftDeleted, &shiftID, res.Decision, http.StatusOK,
		gin.H{"message": "Shift deleted"})
}

// CancelShift cancels a shift and releases its workers
// POST /api/v1/shifts/:id/cancel
func (h *ShiftHandler) CancelShift(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	res, err := h.shifts.CancelShift(c.Request.Context(), p, shiftID)
	if err != nil {
		respondFault(c, h.logger, "cancel_shift", err)
		return
	}
	h.finish(c, p, "cancel_shift", services.AuditShiftCancelled, &shiftID, res.Decision, http.StatusOK, res.Shift)
}

// BookShift books the caller onto a shift
// POST /api/v1/shifts/:id/book
func (h *ShiftHandler) BookShift(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	res, err := h.shifts.BookShift(c.Request.Context(), p, shiftID)
	if err != nil {
		respondFault(c, h.logger, "book_shift", err)
		return
	}
	h.finish(c, p, "book_shift", services.AuditShiftBooked, &shiftID, res.Decision, http.StatusCreated,
		gin.H{"assignment": res.Assignment, "distance_miles": res.DistanceMiles})
}

// UnbookShift removes the caller's own booking
// DELETE /api/v1/shifts/:id/book
func (h *ShiftHandler) UnbookShift(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	res, err := h.shifts.UnbookShift(c.Request.Context(), p, shiftID)
	if err != nil {
		respondFault(c, h.logger, "unbook_shift", err)
		return
	}
	h.finish(c, p, "unbook_shift", services.AuditShiftUnbooked, &shiftID, res.Decision, http.StatusOK,
		gin.H{"message": "Booking removed"})
}

// AssignWorker assigns a worker to a shift
// POST /api/v1/shifts/:id/assignments
func (h *ShiftHandler) AssignWorker(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.shifts.AssignWorker(c.Request.Context(), p, shiftID, req.WorkerID)
	if err != nil {
		respondFault(c, h.logger, "assign_worker", err)
		return
	}
	h.finish(c, p, "assign_worker", services.AuditWorkerAssigned, &shiftID, res.Decision, http.StatusCreated,
		gin.H{"assignment": res.Assignment})
}

// UnassignWorker removes a worker's assignment
// DELETE /api/v1/shifts/:id/assignments/:worker_id
func (h *ShiftHandler) UnassignWorker(c *gin.Context) {
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

	res, err := h.shifts.UnassignWorker(c.Request.Context(), p, shiftID, workerID)
	if err != nil {
		respondFault(c, h.logger, "unassign_worker", err)
		return
	}
	h.finish(c, p, "unassign_worker", services.AuditWorkerUnassigned, &shiftID, res.Decision, http.StatusOK,
		gin.H{"message": "Worker unassigned"})
}

// CompleteShift completes the caller's own assignment
// POST /api/v1/shifts/:id/complete
func (h *ShiftHandler) CompleteShift(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	h.complete(c, p, p.UserID)
}

// CompleteForWorker completes a worker's assignment on their behalf
// POST /api/v1/shifts/:id/assignments/:worker_id/complete
func (h *ShiftHandler) CompleteForWorker(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	workerID, ok := uuidParam(c, "worker_id")
	if !ok {
		return
	}
	h.complete(c, p, workerID)
}

func (h *ShiftHandler) complete(c *gin.Context, p models.Principal, workerID uuid.UUID) {
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.shifts.CompleteShift(c.Request.Context(), p, services.CompleteInput{
		ShiftID:          shiftID,
		WorkerID:         workerID,
		Location:         geo.NewPoint(req.Latitude, req.Longitude),
		Signature:        req.Signature,
		AttendanceStatus: req.AttendanceStatus,
	})
	if err != nil {
		respondFault(c, h.logger, "complete_shift", err)
		return
	}
	if !res.OK() {
		h.trail.rejection(c, p, "complete_shift", &shiftID, res.Decision)
		respondDecision(c, res.Decision)
		return
	}
	h.trail.success(c, p, services.AuditShiftCompleted, shiftID, map[string]interface{}{
		"worker_id":       workerID,
		"shift_completed": res.ShiftCompleted,
	})
	c.JSON(http.StatusOK, gin.H{"assignment": res.Assignment, "shift_completed": res.ShiftCompleted})
}
