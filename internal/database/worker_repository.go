package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/staffhub/shift-engine/internal/models"
)

// WorkerRepository reads worker profiles and agency membership
type WorkerRepository struct {
	db DB
}

// NewWorkerRepository creates a new worker repository
func NewWorkerRepository(db DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

// GetWorker returns the profile of a user
func (r *WorkerRepository) GetWorker(ctx context.Context, userID uuid.UUID) (*models.WorkerProfile, error) {
	var worker models.WorkerProfile
	query := `
		SELECT user_id, agency_id, role, full_name, latitude, longitude, travel_radius, is_active, created_at
		FROM worker_profiles
		WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &worker, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", notFound(err))
	}
	return &worker, nil
}

// ListAgencyAdmins returns the user IDs of an agency's owners and managers
func (r *WorkerRepository) ListAgencyAdmins(ctx context.Context, agencyID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	query := `
		SELECT user_id
		FROM worker_profiles
		WHERE agency_id = $1
		  AND role IN ('agency_owner', 'agency_manager')
		  AND is_active = TRUE
		ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &ids, query, agencyID); err != nil {
		return nil, fmt.Errorf("failed to list agency admins: %w", err)
	}
	return ids, nil
}

// ListStaffCandidates returns active staff of an agency with a configured location
// and radius, along with how many assignments each already holds
func (r *WorkerRepository) ListStaffCandidates(ctx context.Context, agencyID uuid.UUID) ([]models.AgencyStaffCandidate, error) {
	candidates := []models.AgencyStaffCandidate{}
	query := `
		SELECT w.user_id, w.agency_id, w.role, w.full_name, w.latitude, w.longitude,
		       w.travel_radius, w.is_active, w.created_at,
		       COUNT(a.id) AS assignment_count
		FROM worker_profiles w
		LEFT JOIN shift_assignments a ON a.worker_id = w.user_id
		WHERE w.agency_id = $1
		  AND w.role = 'agency_staff'
		  AND w.is_active = TRUE
		  AND w.latitude IS NOT NULL
		  AND w.longitude IS NOT NULL
		  AND w.travel_radius IS NOT NULL
		GROUP BY w.user_id
		ORDER BY assignment_count, w.created_at`
	if err := r.db.SelectContext(ctx, &candidates, query, agencyID); err != nil {
		return nil, fmt.Errorf("failed to list staff candidates: %w", err)
	}
	return candidates, nil
}
