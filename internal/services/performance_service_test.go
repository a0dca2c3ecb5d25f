package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/staffhub/shift-engine/internal/database"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryPerformance struct {
	mu      sync.Mutex
	records []models.StaffPerformance
}

func (m *memoryPerformance) Create(_ context.Context, p *models.StaffPerformance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ShiftID == p.ShiftID && r.WorkerID == p.WorkerID {
			return database.ErrDuplicatePerformance
		}
	}
	p.ID = uuid.New()
	m.records = append(m.records, *p)
	return nil
}

func (m *memoryPerformance) ListForShift(_ context.Context, shiftID uuid.UUID) ([]models.StaffPerformance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.StaffPerformance{}
	for _, r := range m.records {
		if r.ShiftID == shiftID {
			out = append(out, r)
		}
	}
	return out, nil
}

func goodReview() *models.PerformanceInput {
	return &models.PerformanceInput{
		WellnessScore: 80,
		Rating:        decimal.RequireFromString("4.5"),
		Status:        models.PerformanceGood,
		Comments:      "Reliable and on time",
	}
}

func TestRecordPerformance(t *testing.T) {
	f := newLifecycleFixture(t)
	f.manager.Subscription = activeSubscription(f.agencyID, nil, models.FeatureStaffPerformance)
	records := &memoryPerformance{}
	svc := NewPerformanceService(f.store, records, quietLogger())
	svc.now = func() time.Time { return testNow }

	worker := f.member(models.RoleAgencyStaff)
	shift := f.openShift(1)
	f.store.addAssignment(models.ShiftAssignment{ShiftID: shift.ID, WorkerID: worker.UserID})

	res, err := svc.RecordPerformance(context.Background(), f.manager, shift.ID, worker.UserID, goodReview())
	require.NoError(t, err)
	assert.Equal(t, OutcomeValidationFailed, res.Outcome, "shift not completed yet")

	f.store.mu.Lock()
	f.store.shifts[shift.ID].IsCompleted = true
	f.store.mu.Unlock()

	res, err = svc.RecordPerformance(context.Background(), f.manager, shift.ID, worker.UserID, goodReview())
	require.NoError(t, err)
	require.True(t, res.OK(), res.Reason)
	assert.Equal(t, f.manager.UserID, res.Record.RecordedBy)
	assert.True(t, decimal.RequireFromString("4.5").Equal(res.Record.Rating))

	res, err = svc.RecordPerformance(context.Background(), f.manager, shift.ID, worker.UserID, goodReview())
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyRecorded, res.Outcome)

	res, err = svc.RecordPerformance(context.Background(), f.manager, shift.ID, uuid.New(), goodReview())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotBooked, res.Outcome)

	list, err := svc.ListPerformance(context.Background(), f.manager, shift.ID)
	require.NoError(t, err)
	require.True(t, list.OK())
	assert.Len(t, list.Records, 1)
}

func TestRecordPerformance_Rejections(t *testing.T) {
	f := newLifecycleFixture(t)
	records := &memoryPerformance{}
	svc := NewPerformanceService(f.store, records, quietLogger())
	svc.now = func() time.Time { return testNow }

	worker := f.member(models.RoleAgencyStaff)
	shift := f.openShift(1)

	res, err := svc.RecordPerformance(context.Background(), f.manager, shift.ID, worker.UserID, goodReview())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFeatureUnavailable, res.Outcome)

	res, err = svc.RecordPerformance(context.Background(), worker, shift.ID, worker.UserID, goodReview())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDenied, res.Outcome)

	res, err = svc.RecordPerformance(context.Background(), f.manager, uuid.New(), worker.UserID, goodReview())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)

	f.manager.Subscription = activeSubscription(f.agencyID, nil, models.FeatureStaffPerformance)
	bad := goodReview()
	bad.Rating = decimal.RequireFromString("5.5")
	bad.Status = "brilliant"
	res, err = svc.RecordPerformance(context.Background(), f.manager, shift.ID, worker.UserID, bad)
	require.NoError(t, err)
	assert.Equal(t, OutcomeValidationFailed, res.Outcome)
	assert.Contains(t, res.Fields, "rating")
	assert.Contains(t, res.Fields, "status")
	assert.Empty(t, records.records)
}
