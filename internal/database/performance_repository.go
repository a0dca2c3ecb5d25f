package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/staffhub/shift-engine/internal/models"
)

// PerformanceRepository stores staff performance reviews
type PerformanceRepository struct {
	db DB
}

// NewPerformanceRepository creates a new performance repository
func NewPerformanceRepository(db DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

// Create inserts a review. A second review of the same worker on the same
// shift returns ErrDuplicatePerformance.
func (r *PerformanceRepository) Create(ctx context.Context, p *models.StaffPerformance) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO staff_performance (id, shift_id, worker_id, wellness_score, rating, status, comments, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at`
	err := r.db.QueryRowxContext(ctx, query,
		p.ID, p.ShiftID, p.WorkerID, p.WellnessScore, p.Rating, p.Status, p.Comments, p.RecordedBy,
	).Scan(&p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "staff_performance_worker_shift_key") {
			return ErrDuplicatePerformance
		}
		return fmt.Errorf("failed to create performance record: %w", err)
	}
	return nil
}

// ListForShift returns the reviews recorded for a shift
func (r *PerformanceRepository) ListForShift(ctx context.Context, shiftID uuid.UUID) ([]models.StaffPerformance, error) {
	records := []models.StaffPerformance{}
	query := `
		SELECT id, shift_id, worker_id, wellness_score, rating, status, comments, recorded_by, created_at
		FROM staff_performance
		WHERE shift_id = $1
		ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &records, query, shiftID); err != nil {
		return nil, fmt.Errorf("failed to list performance records: %w", err)
	}
	return records, nil
}
