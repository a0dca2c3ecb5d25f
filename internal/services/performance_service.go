package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/database"
	"github.com/staffhub/shift-engine/internal/models"
)

var maxRating = decimal.NewFromInt(5)

// PerformanceStore persists performance reviews.
// Implemented by database.PerformanceRepository.
type PerformanceStore interface {
	Create(ctx context.Context, p *models.StaffPerformance) error
	ListForShift(ctx context.Context, shiftID uuid.UUID) ([]models.StaffPerformance, error)
}

// PerformanceResult is the outcome of recording or listing reviews
type PerformanceResult struct {
	Decision
	Record  *models.StaffPerformance  `json:"record,omitempty"`
	Records []models.StaffPerformance `json:"records,omitempty"`
}

// PerformanceService lets managers review staff on completed shifts
type PerformanceService struct {
	shifts   ShiftStore
	records  PerformanceStore
	validate *validator.Validate
	logger   *logrus.Logger
	now      func() time.Time
}

// NewPerformanceService creates a new performance service
func NewPerformanceService(shifts ShiftStore, records PerformanceStore, logger *logrus.Logger) *PerformanceService {
	return &PerformanceService{
		shifts:   shifts,
		records:  records,
		validate: NewValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *PerformanceService) authorize(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*models.Shift, Decision, error) {
	shift, err := s.shifts.GetShift(ctx, shiftID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, reject(OutcomeNotFound, reasonShiftNotFound), nil
		}
		return nil, Decision{}, err
	}
	d := All(
		Require(func() bool { return CanManageAgencyShift(p, shift) },
			OutcomeDenied, "Only managers of this shift's agency can review staff"),
		requireFeature(p, models.FeatureStaffPerformance, s.now()),
	)
	return shift, d, nil
}

// RecordPerformance stores one review of a worker on a completed shift
func (s *PerformanceService) RecordPerformance(ctx context.Context, p models.Principal, shiftID, workerID uuid.UUID, in *models.PerformanceInput) (*PerformanceResult, error) {
	shift, d, err := s.authorize(ctx, p, shiftID)
	if err != nil {
		return nil, err
	}
	if !d.OK() {
		return &PerformanceResult{Decision: d}, nil
	}

	fields := map[string]string{}
	if err := s.validate.Struct(in); err != nil {
		fields = fieldErrors(err)
	}
	if in.Rating.IsNegative() || in.Rating.GreaterThan(maxRating) {
		fields["rating"] = "must be between 0 and 5"
	}
	if len(fields) > 0 {
		return &PerformanceResult{Decision: Decision{
			Outcome: OutcomeValidationFailed,
			Reason:  "The submitted review is invalid",
			Fields:  fields,
		}}, nil
	}

	if !shift.IsCompleted {
		return &PerformanceResult{Decision: reject(OutcomeValidationFailed,
			"Performance can only be recorded for completed shifts")}, nil
	}

	assignments, err := s.shifts.ListAssignments(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if !IsUserAssigned(assignments, workerID) {
		return &PerformanceResult{Decision: reject(OutcomeNotBooked, "The worker was not assigned to this shift")}, nil
	}

	record := &models.StaffPerformance{
		ShiftID:       shiftID,
		WorkerID:      workerID,
		WellnessScore: in.WellnessScore,
		Rating:        in.Rating.Round(2),
		Status:        in.Status,
		Comments:      in.Comments,
		RecordedBy:    p.UserID,
	}
	if err := s.records.Create(ctx, record); err != nil {
		if errors.Is(err, database.ErrDuplicatePerformance) {
			return &PerformanceResult{Decision: reject(OutcomeAlreadyRecorded,
				"A review for this worker on this shift already exists")}, nil
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"shift_id":  shiftID,
		"worker_id": workerID,
		"status":    record.Status,
	}).Info("Performance recorded")

	return &PerformanceResult{Decision: allow(), Record: record}, nil
}

// ListPerformance returns the reviews of a shift
func (s *PerformanceService) ListPerformance(ctx context.Context, p models.Principal, shiftID uuid.UUID) (*PerformanceResult, error) {
	_, d, err := s.authorize(ctx, p, shiftID)
	if err != nil {
		return nil, err
	}
	if !d.OK() {
		return &PerformanceResult{Decision: d}, nil
	}
	records, err := s.records.ListForShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	return &PerformanceResult{Decision: allow(), Records: records}, nil
}
