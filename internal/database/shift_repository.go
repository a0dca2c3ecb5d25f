package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/staffhub/shift-engine/internal/utils"
)

const shiftColumns = `
	id, shift_code, name, shift_type, agency_id, shift_date, start_time, end_time,
	end_date, is_overnight, duration_hours, capacity, hourly_rate, notes,
	postcode, address_line1, address_line2, city, county, country,
	latitude, longitude, status, is_completed, completion_time, signature_ref,
	created_by, created_at, updated_at`

const assignmentColumns = `
	id, shift_id, worker_id, assigned_by, assigned_at, attendance_status,
	completion_latitude, completion_longitude, completion_time, signature_ref`

// ShiftTx is a transaction holding the row lock of one shift.
// Every assignment change for the shift happens inside one of these.
type ShiftTx interface {
	Shift() *models.Shift
	Assignments() ([]models.ShiftAssignment, error)
	InsertAssignment(a *models.ShiftAssignment) error
	DeleteAssignment(id uuid.UUID) error
	CompleteAssignment(a *models.ShiftAssignment) error
	SaveSignature(ref, contentType string, data []byte) error
	UpdateShift(shift *models.Shift) error
	DeleteShift() error
}

// AgencyTx is a transaction holding the row lock of one agency, used to
// serialize shift creation against the monthly limit
type AgencyTx interface {
	CountShiftsCreatedSince(since time.Time) (int, error)
	InsertShift(shift *models.Shift) error
}

// ShiftRepository handles shift and assignment persistence
type ShiftRepository struct {
	db DB
}

// NewShiftRepository creates a new shift repository
func NewShiftRepository(db DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// GetShift returns a shift by ID
func (r *ShiftRepository) GetShift(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1`
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, fmt.Errorf("failed to get shift: %w", notFound(err))
	}
	return &shift, nil
}

// ListAssignments returns every assignment of a shift ordered by assignment time
func (r *ShiftRepository) ListAssignments(ctx context.Context, shiftID uuid.UUID) ([]models.ShiftAssignment, error) {
	assignments := []models.ShiftAssignment{}
	query := `SELECT ` + assignmentColumns + ` FROM shift_assignments WHERE shift_id = $1 ORDER BY assigned_at`
	if err := r.db.SelectContext(ctx, &assignments, query, shiftID); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

// CountShiftsCreatedSince counts shifts an agency created on or after since
func (r *ShiftRepository) CountShiftsCreatedSince(ctx context.Context, agencyID uuid.UUID, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM shifts WHERE agency_id = $1 AND created_at >= $2`
	if err := r.db.GetContext(ctx, &count, query, agencyID, since); err != nil {
		return 0, fmt.Errorf("failed to count shifts: %w", err)
	}
	return count, nil
}

// ListUnassignedShifts returns open, located shifts on or after fromDate that have no assignments
func (r *ShiftRepository) ListUnassignedShifts(ctx context.Context, fromDate time.Time, limit int) ([]models.Shift, error) {
	shifts := []models.Shift{}
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts s
		WHERE s.status = 'available'
		  AND s.is_completed = FALSE
		  AND s.agency_id IS NOT NULL
		  AND s.latitude IS NOT NULL
		  AND s.longitude IS NOT NULL
		  AND s.shift_date >= $1
		  AND NOT EXISTS (SELECT 1 FROM shift_assignments a WHERE a.shift_id = s.id)
		ORDER BY s.shift_date, s.start_time
		LIMIT $2`
	if err := r.db.SelectContext(ctx, &shifts, query, fromDate, limit); err != nil {
		return nil, fmt.Errorf("failed to list unassigned shifts: %w", err)
	}
	return shifts, nil
}

// InShiftTx locks the shift row (SELECT ... FOR UPDATE) and runs fn inside the
// same transaction. Concurrent callers for the same shift are serialized.
func (r *ShiftRepository) InShiftTx(ctx context.Context, shiftID uuid.UUID, fn func(tx ShiftTx) error) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var shift models.Shift
		query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &shift, query, shiftID); err != nil {
			return fmt.Errorf("failed to lock shift: %w", notFound(err))
		}
		return fn(&shiftTx{ctx: ctx, tx: tx, shift: &shift})
	})
}

// InAgencyTx locks the agency row and runs fn inside the same transaction
func (r *ShiftRepository) InAgencyTx(ctx context.Context, agencyID uuid.UUID, fn func(tx AgencyTx) error) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var id uuid.UUID
		if err := tx.GetContext(ctx, &id, `SELECT id FROM agencies WHERE id = $1 FOR UPDATE`, agencyID); err != nil {
			return fmt.Errorf("failed to lock agency: %w", notFound(err))
		}
		return fn(&agencyTx{ctx: ctx, tx: tx, agencyID: agencyID})
	})
}

type shiftTx struct {
	ctx   context.Context
	tx    *sqlx.Tx
	shift *models.Shift
}

func (t *shiftTx) Shift() *models.Shift {
	return t.shift
}

func (t *shiftTx) Assignments() ([]models.ShiftAssignment, error) {
	assignments := []models.ShiftAssignment{}
	query := `SELECT ` + assignmentColumns + ` FROM shift_assignments WHERE shift_id = $1 ORDER BY assigned_at`
	if err := t.tx.SelectContext(t.ctx, &assignments, query, t.shift.ID); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (t *shiftTx) InsertAssignment(a *models.ShiftAssignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	query := `
		INSERT INTO shift_assignments (id, shift_id, worker_id, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := t.tx.ExecContext(t.ctx, query, a.ID, a.ShiftID, a.WorkerID, a.AssignedBy, a.AssignedAt)
	if err != nil {
		if isUniqueViolation(err, "shift_assignments_shift_worker_key") {
			return ErrDuplicateAssignment
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (t *shiftTx) DeleteAssignment(id uuid.UUID) error {
	result, err := t.tx.ExecContext(t.ctx, `DELETE FROM shift_assignments WHERE id = $1 AND shift_id = $2`, id, t.shift.ID)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteAssignment writes the completion fields. The completion_time guard
// keeps a first completion from ever being overwritten.
func (t *shiftTx) CompleteAssignment(a *models.ShiftAssignment) error {
	query := `
		UPDATE shift_assignments
		SET attendance_status = $2, completion_latitude = $3, completion_longitude = $4,
		    completion_time = $5, signature_ref = $6
		WHERE id = $1 AND completion_time IS NULL`
	result, err := t.tx.ExecContext(t.ctx, query,
		a.ID, a.AttendanceStatus, a.CompletionLatitude, a.CompletionLongitude,
		a.CompletionTime, a.SignatureRef,
	)
	if err != nil {
		return fmt.Errorf("failed to complete assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("assignment %s already completed or missing", a.ID)
	}
	return nil
}

func (t *shiftTx) SaveSignature(ref, contentType string, data []byte) error {
	query := `INSERT INTO signature_artifacts (ref, content_type, data, created_at) VALUES ($1, $2, $3, NOW())`
	if _, err := t.tx.ExecContext(t.ctx, query, ref, contentType, data); err != nil {
		return fmt.Errorf("failed to store signature: %w", err)
	}
	return nil
}

// UpdateShift persists every mutable column. The agency and creation fields
// are never rewritten and a completed row is never reopened.
func (t *shiftTx) UpdateShift(shift *models.Shift) error {
	query := `
		UPDATE shifts SET
			name = $2, shift_type = $3, shift_date = $4, start_time = $5, end_time = $6,
			end_date = $7, is_overnight = $8, duration_hours = $9, capacity = $10,
			hourly_rate = $11, notes = $12, postcode = $13, address_line1 = $14,
			address_line2 = $15, city = $16, county = $17, country = $18,
			latitude = $19, longitude = $20, status = $21,
			is_completed = is_completed OR $22, completion_time = COALESCE(completion_time, $23),
			signature_ref = COALESCE(signature_ref, $24), updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := t.tx.QueryRowxContext(t.ctx, query,
		shift.ID, shift.Name, shift.ShiftType, shift.ShiftDate, shift.StartTime, shift.EndTime,
		shift.EndDate, shift.IsOvernight, shift.DurationHours, shift.Capacity,
		shift.HourlyRate, shift.Notes, shift.Postcode, shift.AddressLine1,
		shift.AddressLine2, shift.City, shift.County, shift.Country,
		shift.Latitude, shift.Longitude, shift.Status,
		shift.IsCompleted, shift.CompletionTime, shift.SignatureRef,
	).Scan(&shift.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update shift: %w", notFound(err))
	}
	t.shift = shift
	return nil
}

func (t *shiftTx) DeleteShift() error {
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM shift_assignments WHERE shift_id = $1`, t.shift.ID); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM shifts WHERE id = $1`, t.shift.ID); err != nil {
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	return nil
}

type agencyTx struct {
	ctx      context.Context
	tx       *sqlx.Tx
	agencyID uuid.UUID
}

func (t *agencyTx) CountShiftsCreatedSince(since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM shifts WHERE agency_id = $1 AND created_at >= $2`
	if err := t.tx.GetContext(t.ctx, &count, query, t.agencyID, since); err != nil {
		return 0, fmt.Errorf("failed to count shifts: %w", err)
	}
	return count, nil
}

// InsertShift assigns an ID and a unique shift code, then inserts the row
func (t *agencyTx) InsertShift(shift *models.Shift) error {
	code, err := t.generateShiftCode()
	if err != nil {
		return err
	}
	shift.ID = uuid.New()
	shift.ShiftCode = code

	query := `
		INSERT INTO shifts (
			id, shift_code, name, shift_type, agency_id, shift_date, start_time, end_time,
			end_date, is_overnight, duration_hours, capacity, hourly_rate, notes,
			postcode, address_line1, address_line2, city, county, country,
			latitude, longitude, status, is_completed, created_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, FALSE, $24
		) RETURNING created_at, updated_at`
	err = t.tx.QueryRowxContext(t.ctx, query,
		shift.ID, shift.ShiftCode, shift.Name, shift.ShiftType, shift.AgencyID,
		shift.ShiftDate, shift.StartTime, shift.EndTime, shift.EndDate, shift.IsOvernight,
		shift.DurationHours, shift.Capacity, shift.HourlyRate, shift.Notes,
		shift.Postcode, shift.AddressLine1, shift.AddressLine2, shift.City, shift.County, shift.Country,
		shift.Latitude, shift.Longitude, shift.Status, shift.CreatedBy,
	).Scan(&shift.CreatedAt, &shift.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create shift: %w", err)
	}
	return nil
}

// generateShiftCode generates a unique shift code
// Format: SHIFT-XXXXXXXX (8 upper-case hex chars)
func (t *agencyTx) generateShiftCode() (string, error) {
	for attempts := 0; attempts < 10; attempts++ {
		code, err := utils.NewShiftCode()
		if err != nil {
			return "", err
		}

		var count int
		if err := t.tx.GetContext(t.ctx, &count, `SELECT COUNT(*) FROM shifts WHERE shift_code = $1`, code); err != nil {
			return "", fmt.Errorf("failed to check shift code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique shift code after 10 attempts")
}
