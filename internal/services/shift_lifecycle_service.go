package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/database"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/staffhub/shift-engine/pkg/geo"
)

// ShiftLifecycleConfig holds the scheduling rules the lifecycle enforces
type ShiftLifecycleConfig struct {
	Location              *time.Location // calendar used for "today" and billing months
	CompletionRadiusMiles float64
	MaxSignatureBytes     int
}

// DefaultShiftLifecycleConfig returns the production rules
func DefaultShiftLifecycleConfig() ShiftLifecycleConfig {
	return ShiftLifecycleConfig{
		Location:              time.UTC,
		CompletionRadiusMiles: 0.5,
		MaxSignatureBytes:     2 << 20,
	}
}

// ShiftResult is the outcome of a shift-level command
type ShiftResult struct {
	Decision
	Shift       *models.Shift            `json:"shift,omitempty"`
	Assignments []models.ShiftAssignment `json:"assignments,omitempty"`
}

// AssignmentResult is the outcome of a book or assign command
type AssignmentResult struct {
	Decision
	Assignment    *models.ShiftAssignment `json:"assignment,omitempty"`
	DistanceMiles *float64                `json:"distance_miles,omitempty"`
}

// CompletionResult is the outcome of a completion
type CompletionResult struct {
	Decision
	Assignment     *models.ShiftAssignment `json:"assignment,omitempty"`
	ShiftCompleted bool                    `json:"shift_completed"`
}

// CompleteInput carries the evidence a worker submits when completing a shift
type CompleteInput struct {
	ShiftID          uuid.UUID
	WorkerID         uuid.UUID
	Location         *geo.Point
	Signature        string // optional data URL
	AttendanceStatus *models.AttendanceStatus
}

// ShiftLifecycleService moves shifts and their assignments through creation,
// booking, assignment, completion and cancellation
type ShiftLifecycleService struct {
	shifts   ShiftStore
	workers  WorkerStore
	notifier *NotificationDispatcher
	validate *validator.Validate
	cfg      ShiftLifecycleConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewShiftLifecycleService creates a new lifecycle service
func NewShiftLifecycleService(
	shifts ShiftStore,
	workers WorkerStore,
	notifier *NotificationDispatcher,
	cfg ShiftLifecycleConfig,
	logger *logrus.Logger,
) *ShiftLifecycleService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ShiftLifecycleService{
		shifts:   shifts,
		workers:  workers,
		notifier: notifier,
		validate: NewValidator(),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

const (
	reasonShiftNotFound  = "Shift not found"
	reasonWorkerNotFound = "Worker not found"
)

func (s *ShiftLifecycleService) loadShift(ctx context.Context, id uuid.UUID) (*models.Shift, Decision, error) {
	shift, err := s.shifts.GetShift(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, reject(OutcomeNotFound, reasonShiftNotFound), nil
		}
		return nil, Decision{}, err
	}
	return shift, allow(), nil
}

// closedDecision rejects any assignment change on a terminal shift
func closedDecision(shift *models.Shift) Decision {
	switch {
	case shift.IsCompleted:
		return reject(OutcomeAlreadyCompleted, "This shift has already been completed")
	case shift.IsCancelled():
		return reject(OutcomeShiftCancelled, "This shift has been cancelled")
	}
	return allow()
}

func findAssignment(assignments []models.ShiftAssignment, workerID uuid.UUID) *models.ShiftAssignment {
	for i := range assignments {
		if assignments[i].WorkerID == workerID {
			return &assignments[i]
		}
	}
	return nil
}

// txOutcome turns a transaction error into a decision where it encodes one
func txOutcome(err error, duplicate Outcome) (Decision, error) {
	switch {
	case err == nil:
		return allow(), nil
	case errors.Is(err, database.ErrNotFound):
		return reject(OutcomeNotFound, reasonShiftNotFound), nil
	case errors.Is(err, database.ErrDuplicateAssignment):
		return reject(duplicate, "The worker is already assigned to this shift"), nil
	}
	return Decision{}, err
}

// GetShift returns a shift and its assignments to anyone inside the owning agency
func (s *ShiftLifecycleService) GetShift(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*ShiftResult, error) {
	shift, d, err := s.loadShift(ctx, shiftID)
	if err != nil || !d.OK() {
		return &ShiftResult{Decision: d}, err
	}

	d = All(
		Require(func() bool { return p.IsSuperuser() || p.InAgency(shift.AgencyID) },
			OutcomeDenied, "You can only view shifts posted by your agency"),
		requireFeature(p, models.FeatureShiftManagement, s.now()),
	)
	if !d.OK() {
		return &ShiftResult{Decision: d}, nil
	}

	assignments, err := s.shifts.ListAssignments(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	return &ShiftResult{Decision: d, Shift: shift, Assignments: assignments}, nil
}

// CreateShift posts a new shift for the principal's agency. Superusers must
// name the agency in the draft.
func (s *ShiftLifecycleService) CreateShift(ctx context.Context, p models.Principal, draft *models.ShiftDraft) (*ShiftResult, error) {
	now := s.now()

	d := All(
		Require(func() bool { return CanCreateShift(p) },
			OutcomeDenied, "Only agency managers can create shifts"),
		requireFeature(p, models.FeatureShiftManagement, now),
	)
	if !d.OK() {
		return &ShiftResult{Decision: d}, nil
	}

	var agencyID uuid.UUID
	switch {
	case p.IsSuperuser() && draft.AgencyID == nil:
		return &ShiftResult{Decision: invalid(map[string]string{"agency_id": "is required"})}, nil
	case p.IsSuperuser():
		agencyID = *draft.AgencyID
	case draft.AgencyID != nil && !p.InAgency(draft.AgencyID):
		return &ShiftResult{Decision: reject(OutcomeDenied, "You can only create shifts for your own agency")}, nil
	default:
		agencyID = *p.AgencyID
	}

	shift := &models.Shift{
		AgencyID:  &agencyID,
		Status:    models.ShiftStatusAvailable,
		CreatedBy: p.UserID,
	}
	if fields := s.applyDraft(shift, draft, true, now); fields != nil {
		return &ShiftResult{Decision: invalid(fields)}, nil
	}

	err := s.shifts.InAgencyTx(ctx, agencyID, func(tx database.AgencyTx) error {
		created, err := tx.CountShiftsCreatedSince(BillingPeriodStart(now, s.cfg.Location))
		if err != nil {
			return err
		}
		if !CanCreateMoreShifts(p, p.Subscription, created, now) {
			d = reject(OutcomeLimitReached,
				"You have reached the monthly shift limit of your plan. Upgrade your plan to create more shifts.")
			return nil
		}
		return tx.InsertShift(shift)
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &ShiftResult{Decision: reject(OutcomeNotFound, "Agency not found")}, nil
		}
		return nil, err
	}
	if !d.OK() {
		return &ShiftResult{Decision: d}, nil
	}

	s.logger.WithFields(logrus.Fields{
		"shift_id":   shift.ID,
		"shift_code": shift.ShiftCode,
		"agency_id":  agencyID,
		"user_id":    p.UserID,
	}).Info("Shift created")

	s.notifyAgencyAdmins(ctx, shift, "New Shift Created",
		fmt.Sprintf("A new shift '%s' has been created.", shift.Name))

	return &ShiftResult{Decision: allow(), Shift: shift}, nil
}

// UpdateShift replaces the editable fields of an open shift
func (s *ShiftLifecycleService) UpdateShift(ctx context.Context, p models.Principal, shiftID uuid.UUID, draft *models.ShiftDraft) (*ShiftResult, error) {
	now := s.now()
	shift, d, err := s.loadShift(ctx, shiftID)
	if err != nil || !d.OK() {
		return &ShiftResult{Decision: d}, err
	}

	d = All(
		Require(func() bool { return CanManageAgencyShift(p, shift) },
			OutcomeDenied, "You can only edit shifts posted by your agency"),
		requireFeature(p, models.FeatureShiftManagement, now),
		Require(func() bool { return draft.AgencyID == nil || shift.AgencyID == nil || *draft.AgencyID == *shift.AgencyID },
			OutcomeValidationFailed, "The agency of a shift cannot be changed"),
	)
	if !d.OK() {
		return &ShiftResult{Decision: d}, nil
	}

	var updated models.Shift
	err = s.shifts.InShiftTx(ctx, shiftID, func(tx database.ShiftTx) error {
		locked := tx.Shift()
		if d = closedDecision(locked); !d.OK() {
			return nil
		}

		updated = *locked
		dateChanged := draft.ShiftDate != locked.ShiftDate.Format(dateLayout)
		if fields := s.applyDraft(&updated, draft, dateChanged, now); fields != nil {
			d = invalid(fields)
			return nil
		}

		assignments, err := tx.Assignments()
		if err != nil {
			return err
		}
		if updated.Capacity < len(assignments) {
			d = invalid(map[string]string{
				"capacity": fmt.Sprintf("cannot be below the %d workers already assigned", len(assignments)),
			})
			return nil
		}
		updated.Status = updated.StatusFor(len(assignments))
		return tx.UpdateShift(&updated)
	})
	if d, err := txOutcome(err, OutcomeAlreadyAssigned); err != nil || !d.OK() {
		return &ShiftResult{Decision: d}, err
	}
	if !d.OK() {
		return &ShiftResult{Decision: d}, nil
	}

	s.logger.WithFields(logrus.Fields{"shift_id": shiftID, "user_id": p.UserID}).Info("Shift updated")
	s.notifyAgencyAdmins(ctx, &updated, "Shift Updated",
		fmt.Sprintf("The shift '%s' has been updated.", updated.Name))

	return &ShiftResult{Decision: allow(), Shift: &updated}, nil
}

// DeleteShift removes a shift that has not been completed, along with its assignments
func (s *ShiftLifecycleService) DeleteShift(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*ShiftResult, error) {
	return s.removeShift(ctx, p, shiftID, false)
}

// CancelShift closes a shift that has not been completed. Its assignments are
// released and the shift accepts no further assignment changes.
func (s *ShiftLifecycleService) CancelShift(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*ShiftResult, error) {
	return s.removeShift(ctx, p, shiftID, true)
}

func (s *ShiftLifecycleService) removeShift(ctx context.Context, p models.Principal, shiftID uuid.UUID, cancel bool) (*ShiftResult, error) {
	shift, d, err := s.loadShift(ctx, shiftID)
	if err != nil || !d.OK() {
		return &ShiftResult{Decision: d}, err
	}

	d = All(
		Require(func() bool { return CanManageAgencyShift(p, shift) },
			OutcomeDenied, "You can only manage shifts posted by your agency"),
		requireFeature(p, models.FeatureShiftManagement, s.now()),
	)
	if !d.OK() {
		return &ShiftResult{Decision: d}, nil
	}

	var released []models.ShiftAssignment
	var final models.Shift
	err = s.shifts.InShiftTx(ctx, shiftID, func(tx database.ShiftTx) error {
		locked := tx.Shift()
		if locked.IsCompleted || (cancel && locked.IsCancelled()) {
			d = closedDecision(locked)
			return nil
		}

		assignments, err := tx.Assignments()
		if err != nil {
			return err
		}
		for _, a := range assignments {
			if a.IsCompleted() {
				d = reject(OutcomeAlreadyCompleted, "A shift with completed assignments cannot be removed")
				return nil
			}
		}
		final = *locked

		if !cancel {
			released = assignments
			return tx.DeleteShift()
		}

		for _, a := range assignments {
			if err := tx.DeleteAssignment(a.ID); err != nil {
				return err
			}
		}
		released = assignments
		final.Status = models.ShiftStatusCancelled
		return tx.UpdateShift(&final)
	})
	if d, err := txOutcome(err, OutcomeAlreadyAssigned); err != nil || !d.OK() {
		return &ShiftResult{Decision: d}, err
	}
	if !d.OK() {
		return &ShiftResult{Decision: d}, nil
	}

	fields := logrus.Fields{"shift_id": shiftID, "user_id": p.UserID, "released": len(released)}
	workerIDs := make([]uuid.UUID, 0, len(released))
	for _, a := range released {
		workerIDs = append(workerIDs, a.WorkerID)
	}

	if cancel {
		s.logger.WithFields(fields).Info("Shift cancelled")
		s.notifier.SendAll(ctx, workerIDs, "Shift Cancelled",
			fmt.Sprintf("The shift '%s' has been cancelled.", final.Name), shiftURL(shiftID))
		return &ShiftResult{Decision: allow(), Shift: &final}, nil
	}

	s.logger.WithFields(fields).Info("Shift deleted")
	s.notifyAgencyAdmins(ctx, &final, "Shift Deleted",
		fmt.Sprintf("The shift '%s' has been deleted.", final.Name))
	s.notifier.SendAll(ctx, workerIDs, "Shift Unassignment",
		fmt.Sprintf("You have been unassigned from shift '%s'.", final.Name), "")
	return &ShiftResult{Decision: allow(), Shift: &final}, nil
}

// BookShift assigns the principal to the shift. Non-superusers must be within
// their travel radius of the shift.
func (s *ShiftLifecycleService) BookShift(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*AssignmentResult, error) {
	shift, d, err := s.loadShift(ctx, shiftID)
	if err != nil || !d.OK() {
		return &AssignmentResult{Decision: d}, err
	}

	d = All(
		Require(func() bool { return CanBookShift(p, shift) },
			OutcomeDenied, "You can only book shifts posted by your agency"),
		requireFeature(p, models.FeatureShiftManagement, s.now()),
	)
	if !d.OK() {
		return &AssignmentResult{Decision: d}, nil
	}

	var distance *float64
	proximity := func(locked *models.Shift) Decision {
		if p.IsSuperuser() {
			return allow()
		}
		if p.TravelRadius == nil || math.IsNaN(*p.TravelRadius) || *p.TravelRadius < 0 {
			return reject(OutcomeLocationMissing, "Set your travel radius in your profile before booking shifts")
		}
		miles, ok := geo.Distance(p.Location, locked.Location(), geo.Miles)
		if !ok {
			return reject(OutcomeLocationMissing, "Your location or the shift location is not set, so proximity cannot be verified")
		}
		distance = &miles
		if !geo.Within(p.Location, locked.Location(), *p.TravelRadius, geo.Miles) {
			return reject(OutcomeTooFar, fmt.Sprintf(
				"This shift is %.2f miles away, beyond your travel radius of %.1f miles", miles, *p.TravelRadius))
		}
		return allow()
	}

	result, err := s.attach(ctx, shiftID, p.UserID, nil, OutcomeAlreadyBooked, proximity)
	if err != nil || !result.OK() {
		return result, err
	}
	result.DistanceMiles = distance

	s.logger.WithFields(logrus.Fields{"shift_id": shiftID, "worker_id": p.UserID}).Info("Shift booked")
	s.notifier.Send(ctx, p.UserID, "Shift Assignment",
		fmt.Sprintf("You have been assigned to shift '%s'.", shift.Name), shiftURL(shiftID))
	return result, nil
}

// AssignWorker assigns a worker of the shift's agency. No proximity check applies.
func (s *ShiftLifecycleService) AssignWorker(ctx context.Context, p models.Principal, shiftID, workerID uuid.UUID) (*AssignmentResult, error) {
	shift, d, err := s.loadShift(ctx, shiftID)
	if err != nil || !d.OK() {
		return &AssignmentResult{Decision: d}, err
	}

	d = All(
		Require(func() bool { return CanManageAgencyShift(p, shift) },
			OutcomeDenied, "Only managers of this shift's agency can assign workers"),
		requireFeature(p, models.FeatureShiftManagement, s.now()),
	)
	if !d.OK() {
		return &AssignmentResult{Decision: d}, nil
	}

	if d, err := s.checkWorker(ctx, shift, workerID); err != nil || !d.OK() {
		return &AssignmentResult{Decision: d}, err
	}

	var assignedBy *uuid.UUID
	if p.UserID != uuid.Nil {
		assignedBy = &p.UserID
	}
	result, err := s.attach(ctx, shiftID, workerID, assignedBy, OutcomeAlreadyAssigned, nil)
	if err != nil || !result.OK() {
		return result, err
	}

	s.logger.WithFields(logrus.Fields{
		"shift_id":  shiftID,
		"worker_id": workerID,
		"user_id":   p.UserID,
	}).Info("Worker assigned to shift")
	s.notifier.Send(ctx, workerID, "Shift Assignment",
		fmt.Sprintf("You have been assigned to shift '%s'.", shift.Name), shiftURL(shiftID))
	return result, nil
}

// checkWorker verifies the worker exists, is active and works for the shift's agency
func (s *ShiftLifecycleService) checkWorker(ctx context.Context, shift *models.Shift, workerID uuid.UUID) (Decision, error) {
	worker, err := s.workers.GetWorker(ctx, workerID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return reject(OutcomeNotFound, reasonWorkerNotFound), nil
		}
		return Decision{}, err
	}
	if shift.AgencyID != nil && (worker.AgencyID == nil || *worker.AgencyID != *shift.AgencyID) {
		return reject(OutcomeDenied, "The worker does not belong to this shift's agency"), nil
	}
	if !worker.IsActive {
		return invalid(map[string]string{"worker_id": "is not an active worker"}), nil
	}
	return allow(), nil
}

// attach inserts an assignment under the shift's row lock. Closed, duplicate
// and full checks run against the locked state so concurrent callers cannot
// exceed capacity.
func (s *ShiftLifecycleService) attach(
	ctx context.Context,
	shiftID, workerID uuid.UUID,
	assignedBy *uuid.UUID,
	duplicate Outcome,
	extra func(*models.Shift) Decision,
) (*AssignmentResult, error) {
	d := allow()
	var assignment *models.ShiftAssignment

	err := s.shifts.InShiftTx(ctx, shiftID, func(tx database.ShiftTx) error {
		locked := tx.Shift()
		if d = closedDecision(locked); !d.OK() {
			return nil
		}

		assignments, err := tx.Assignments()
		if err != nil {
			return err
		}
		if IsUserAssigned(assignments, workerID) {
			d = reject(duplicate, "The worker is already assigned to this shift")
			return nil
		}
		if IsFull(locked, len(assignments)) {
			d = reject(OutcomeFull, "This shift is fully booked")
			return nil
		}
		if extra != nil {
			if d = extra(locked); !d.OK() {
				return nil
			}
		}

		assignment = &models.ShiftAssignment{
			ShiftID:    shiftID,
			WorkerID:   workerID,
			AssignedBy: assignedBy,
			AssignedAt: s.now(),
		}
		if err := tx.InsertAssignment(assignment); err != nil {
			return err
		}
		return s.syncStatus(tx, len(assignments)+1)
	})
	if td, err := txOutcome(err, duplicate); err != nil || !td.OK() {
		return &AssignmentResult{Decision: td}, err
	}
	if !d.OK() {
		return &AssignmentResult{Decision: d}, nil
	}
	return &AssignmentResult{Decision: allow(), Assignment: assignment}, nil
}

// syncStatus stores the available/booked status implied by the assignment count
func (s *ShiftLifecycleService) syncStatus(tx database.ShiftTx, active int) error {
	locked := tx.Shift()
	status := locked.StatusFor(active)
	if status == locked.Status {
		return nil
	}
	updated := *locked
	updated.Status = status
	return tx.UpdateShift(&updated)
}

// closeIfAllComplete completes the locked shift when it still has
// assignments and every one of them carries a completion time. Otherwise it
// resyncs the open/booked status. sigRef becomes the shift's signature when
// it has none.
func (s *ShiftLifecycleService) closeIfAllComplete(tx database.ShiftTx, assignments []models.ShiftAssignment, now time.Time, sigRef *string) (bool, error) {
	if len(assignments) == 0 {
		return false, s.syncStatus(tx, 0)
	}
	for i := range assignments {
		if !assignments[i].IsCompleted() {
			return false, s.syncStatus(tx, len(assignments))
		}
	}

	updated := *tx.Shift()
	updated.IsCompleted = true
	updated.CompletionTime = &now
	updated.Status = models.ShiftStatusCompleted
	if sigRef != nil && updated.SignatureRef == nil {
		updated.SignatureRef = sigRef
	}
	return true, tx.UpdateShift(&updated)
}

// UnbookShift removes the principal's own assignment
func (s *ShiftLifecycleService) UnbookShift(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*ShiftResult, error) {
	return s.UnassignWorker(ctx, p, shiftID, p.UserID)
}

// UnassignWorker removes a worker's assignment before the shift completes.
// Staff may only remove themselves.
func (s *ShiftLifecycleService) UnassignWorker(ctx context.Context, p models.Principal, shiftID, workerID uuid.UUID) (*ShiftResult, error) {
	shift, d, err := s.loadShift(ctx, shiftID)
	if err != nil || !d.OK() {
		return &ShiftResult{Decision: d}, err
	}

	d = All(
		Require(func() bool { return CanUnassign(p, shift, workerID) },
			OutcomeDenied, "You can only remove yourself from a shift"),
		requireFeature(p, models.FeatureShiftManagement, s.now()),
	)
	if !d.OK() {
		return &ShiftResult{Decision: d}, nil
	}

	shiftCompleted := false
	err = s.shifts.InShiftTx(ctx, shiftID, func(tx database.ShiftTx) error {
		if d = closedDecision(tx.Shift()); !d.OK() {
			return nil
		}
		assignments, err := tx.Assignments()
		if err != nil {
			return err
		}
		a := findAssignment(assignments, workerID)
		if a == nil {
			d = reject(OutcomeNotBooked, "The worker is not assigned to this shift")
			return nil
		}
		if a.IsCompleted() {
			d = reject(OutcomeAlreadyCompleted, "A completed assignment cannot be removed")
			return nil
		}
		if err := tx.DeleteAssignment(a.ID); err != nil {
			return err
		}

		remaining := make([]models.ShiftAssignment, 0, len(assignments)-1)
		for _, other := range assignments {
			if other.ID != a.ID {
				remaining = append(remaining, other)
			}
		}
		shiftCompleted, err = s.closeIfAllComplete(tx, remaining, s.now(), nil)
		return err
	})
	if td, err := txOutcome(err, OutcomeAlreadyAssigned); err != nil || !td.OK() {
		return &ShiftResult{Decision: td}, err
	}
	if !d.OK() {
		return &ShiftResult{Decision: d}, nil
	}

	s.logger.WithFields(logrus.Fields{
		"shift_id":        shiftID,
		"worker_id":       workerID,
		"user_id":         p.UserID,
		"shift_completed": shiftCompleted,
	}).Info("Worker unassigned from shift")
	s.notifier.Send(ctx, workerID, "Shift Unassignment",
		fmt.Sprintf("You have been unassigned from shift '%s'.", shift.Name), shiftURL(shiftID))
	return &ShiftResult{Decision: allow()}, nil
}

// CompleteShift records a worker's completion. Managers completing for a
// worker who never booked create the assignment. The shift itself completes
// once every assignment has.
func (s *ShiftLifecycleService) CompleteShift(ctx context.Context, p models.Principal, in CompleteInput) (*CompletionResult, error) {
	now := s.now()
	shift, d, err := s.loadShift(ctx, in.ShiftID)
	if err != nil || !d.OK() {
		return &CompletionResult{Decision: d}, err
	}

	d = All(
		Require(func() bool { return CanCompleteShift(p, shift, in.WorkerID) },
			OutcomeDenied, "You can only complete your own shifts"),
		requireFeature(p, models.FeatureShiftManagement, now),
	)
	if !d.OK() {
		return &CompletionResult{Decision: d}, nil
	}

	if in.AttendanceStatus != nil && !in.AttendanceStatus.Valid() {
		return &CompletionResult{Decision: invalid(map[string]string{
			"attendance_status": "must be one of: attended late no_show",
		})}, nil
	}
	if shift.ShiftDate.After(calendarDay(now, s.cfg.Location)) {
		return &CompletionResult{Decision: reject(OutcomeValidationFailed,
			"Cannot complete a shift scheduled in the future")}, nil
	}

	var sig *Signature
	if in.Signature != "" {
		if sig, err = DecodeSignature(in.Signature, s.cfg.MaxSignatureBytes); err != nil {
			return &CompletionResult{Decision: reject(OutcomeInvalidSignature, "Invalid signature data: "+err.Error())}, nil
		}
	}

	var distance float64
	if !p.IsSuperuser() {
		var ok bool
		distance, ok = geo.Distance(in.Location, shift.Location(), geo.Miles)
		if !ok {
			return &CompletionResult{Decision: reject(OutcomeLocationMissing,
				"Location is required to complete this shift")}, nil
		}
		if distance > s.cfg.CompletionRadiusMiles {
			return &CompletionResult{Decision: reject(OutcomeTooFar,
				fmt.Sprintf("You are too far from the shift location (%.2f miles)", distance))}, nil
		}
	}

	onBehalf := p.UserID != in.WorkerID
	if onBehalf {
		if d, err := s.checkWorker(ctx, shift, in.WorkerID); err != nil || !d.OK() {
			return &CompletionResult{Decision: d}, err
		}
	}

	var completed *models.ShiftAssignment
	shiftCompleted := false
	err = s.shifts.InShiftTx(ctx, in.ShiftID, func(tx database.ShiftTx) error {
		locked := tx.Shift()
		if d = closedDecision(locked); !d.OK() {
			return nil
		}

		assignments, err := tx.Assignments()
		if err != nil {
			return err
		}
		a := findAssignment(assignments, in.WorkerID)
		switch {
		case a != nil && a.IsCompleted():
			d = reject(OutcomeAlreadyCompleted, "This shift has already been completed")
			return nil
		case a == nil && !onBehalf:
			d = reject(OutcomeNotBooked, "You are not assigned to this shift")
			return nil
		case a == nil:
			if IsFull(locked, len(assignments)) {
				d = reject(OutcomeFull, "This shift is fully booked")
				return nil
			}
			a = &models.ShiftAssignment{
				ShiftID:    in.ShiftID,
				WorkerID:   in.WorkerID,
				AssignedBy: &p.UserID,
				AssignedAt: now,
			}
			if err := tx.InsertAssignment(a); err != nil {
				return err
			}
			assignments = append(assignments, *a)
			a = &assignments[len(assignments)-1]
		}

		if sig != nil {
			if err := tx.SaveSignature(sig.Ref, sig.ContentType, sig.Data); err != nil {
				return err
			}
			a.SignatureRef = &sig.Ref
		}
		if in.Location != nil {
			a.CompletionLatitude = &in.Location.Latitude
			a.CompletionLongitude = &in.Location.Longitude
		}
		a.AttendanceStatus = in.AttendanceStatus
		a.CompletionTime = &now
		if err := tx.CompleteAssignment(a); err != nil {
			return err
		}
		completed = a

		var sigRef *string
		if sig != nil {
			sigRef = &sig.Ref
		}
		shiftCompleted, err = s.closeIfAllComplete(tx, assignments, now, sigRef)
		return err
	})
	if td, err := txOutcome(err, OutcomeAlreadyCompleted); err != nil || !td.OK() {
		return &CompletionResult{Decision: td}, err
	}
	if !d.OK() {
		return &CompletionResult{Decision: d}, nil
	}

	s.logger.WithFields(logrus.Fields{
		"shift_id":        in.ShiftID,
		"worker_id":       in.WorkerID,
		"user_id":         p.UserID,
		"distance_miles":  distance,
		"shift_completed": shiftCompleted,
	}).Info("Shift completed")

	return &CompletionResult{Decision: allow(), Assignment: completed, ShiftCompleted: shiftCompleted}, nil
}

// notifyAgencyAdmins tells each owner and manager of the shift's agency once
func (s *ShiftLifecycleService) notifyAgencyAdmins(ctx context.Context, shift *models.Shift, subject, message string) {
	if shift.AgencyID == nil {
		return
	}
	admins, err := s.workers.ListAgencyAdmins(ctx, *shift.AgencyID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"agency_id": *shift.AgencyID,
			"error":     err.Error(),
		}).Warn("Failed to load agency managers for notification")
		return
	}
	s.notifier.SendAll(ctx, admins, subject, message, shiftURL(shift.ID))
}
