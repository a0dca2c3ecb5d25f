package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/shift-engine/internal/database"
	"github.com/staffhub/shift-engine/internal/models"
)

// ShiftStore is the shift persistence the lifecycle runs on.
// Implemented by database.ShiftRepository.
type ShiftStore interface {
	GetShift(ctx context.Context, id uuid.UUID) (*models.Shift, error)
	ListAssignments(ctx context.Context, shiftID uuid.UUID) ([]models.ShiftAssignment, error)
	CountShiftsCreatedSince(ctx context.Context, agencyID uuid.UUID, since time.Time) (int, error)
	ListUnassignedShifts(ctx context.Context, fromDate time.Time, limit int) ([]models.Shift, error)
	InShiftTx(ctx context.Context, shiftID uuid.UUID, fn func(tx database.ShiftTx) error) error
	InAgencyTx(ctx context.Context, agencyID uuid.UUID, fn func(tx database.AgencyTx) error) error
}

// WorkerStore reads worker profiles and agency membership.
// Implemented by database.WorkerRepository.
type WorkerStore interface {
	GetWorker(ctx context.Context, userID uuid.UUID) (*models.WorkerProfile, error)
	ListAgencyAdmins(ctx context.Context, agencyID uuid.UUID) ([]uuid.UUID, error)
	ListStaffCandidates(ctx context.Context, agencyID uuid.UUID) ([]models.AgencyStaffCandidate, error)
}
