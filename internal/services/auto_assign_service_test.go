package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(lat, lon, radius float64, assignments int) models.AgencyStaffCandidate {
	return models.AgencyStaffCandidate{
		WorkerProfile: models.WorkerProfile{
			UserID:       uuid.New(),
			Role:         string(models.RoleAgencyStaff),
			IsActive:     true,
			Latitude:     &lat,
			Longitude:    &lon,
			TravelRadius: &radius,
		},
		AssignmentCount: assignments,
	}
}

// subscriptions serves the fixture agency's snapshot
func (f *lifecycleFixture) subscriptions() *countingSource {
	return &countingSource{snapshots: map[uuid.UUID]*models.SubscriptionSnapshot{f.agencyID: f.sub}}
}

func TestPickCandidate(t *testing.T) {
	lat, lon := shiftLat, shiftLon
	shift := &models.Shift{Latitude: &lat, Longitude: &lon}

	near := candidate(51.5200, -0.1400, 5, 3)
	nearIdle := candidate(51.5200, -0.1400, 5, 0)
	farther := candidate(51.5400, -0.1000, 10, 0)
	outOfRange := candidate(53.4808, -2.2426, 5, 0)

	pick := pickCandidate(shift, []models.AgencyStaffCandidate{farther, near, outOfRange, nearIdle})
	require.NotNil(t, pick)
	assert.Equal(t, nearIdle.UserID, pick.UserID)

	inactive := candidate(51.5200, -0.1400, 5, 0)
	inactive.IsActive = false
	noRadius := candidate(51.5200, -0.1400, 5, 0)
	noRadius.TravelRadius = nil
	assert.Nil(t, pickCandidate(shift, []models.AgencyStaffCandidate{inactive, noRadius, outOfRange}))

	assert.Nil(t, pickCandidate(&models.Shift{}, []models.AgencyStaffCandidate{near}))
}

func TestAutoAssignService_Run(t *testing.T) {
	f := newLifecycleFixture(t)
	first := f.openShift(1)
	second := f.openShift(2)

	agencyID := f.agencyID
	lat, lon, radius := 51.5200, -0.1400, 5.0
	workerID := uuid.New()
	f.store.addWorker(&models.WorkerProfile{
		UserID: workerID, AgencyID: &agencyID, Role: string(models.RoleAgencyStaff), IsActive: true,
		Latitude: &lat, Longitude: &lon, TravelRadius: &radius,
	})

	// yesterday's shift is not scanned
	past := f.openShift(1)
	f.store.mu.Lock()
	f.store.shifts[past.ID].ShiftDate = calendarDay(testNow, time.UTC).AddDate(0, 0, -1)
	f.store.mu.Unlock()

	svc := NewAutoAssignService(f.store, f.store, f.subscriptions(), f.svc, time.UTC, quietLogger())
	svc.now = func() time.Time { return testNow }

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Assigned)
	assert.Zero(t, report.Failed)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		assignments := f.store.assignmentsOf(id)
		require.Len(t, assignments, 1)
		assert.Equal(t, workerID, assignments[0].WorkerID)
	}
	assert.Equal(t, models.ShiftStatusBooked, f.store.shift(first.ID).Status)
	assert.Empty(t, f.store.assignmentsOf(past.ID))

	report, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
}

func TestAutoAssignService_SkipsWithoutCandidates(t *testing.T) {
	f := newLifecycleFixture(t)
	f.openShift(1)

	svc := NewAutoAssignService(f.store, f.store, f.subscriptions(), f.svc, time.UTC, quietLogger())
	svc.now = func() time.Time { return testNow }

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Assigned)
}

func TestAutoAssignService_SkipsAgenciesWithoutShiftManagement(t *testing.T) {
	expired := activeSubscription(uuid.Nil, nil)
	expired.PeriodEnd = testNow.Add(-time.Hour)
	noFeature := activeSubscription(uuid.Nil, nil)
	noFeature.Plan.Features = models.FeatureFlags{}

	tests := []struct {
		name     string
		snapshot *models.SubscriptionSnapshot
	}{
		{"no subscription", nil},
		{"expired subscription", expired},
		{"plan without shift management", noFeature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLifecycleFixture(t)
			shift := f.openShift(1)
			agencyID := f.agencyID
			lat, lon, radius := 51.5200, -0.1400, 5.0
			f.store.addWorker(&models.WorkerProfile{
				UserID: uuid.New(), AgencyID: &agencyID, Role: string(models.RoleAgencyStaff), IsActive: true,
				Latitude: &lat, Longitude: &lon, TravelRadius: &radius,
			})

			source := &countingSource{snapshots: map[uuid.UUID]*models.SubscriptionSnapshot{f.agencyID: tt.snapshot}}
			svc := NewAutoAssignService(f.store, f.store, source, f.svc, time.UTC, quietLogger())
			svc.now = func() time.Time { return testNow }

			report, err := svc.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, report.Scanned)
			assert.Equal(t, 1, report.Skipped)
			assert.Zero(t, report.Assigned)
			assert.Empty(t, f.store.assignmentsOf(shift.ID))
		})
	}
}

func TestAutoAssignService_SubscriptionError(t *testing.T) {
	f := newLifecycleFixture(t)
	f.openShift(1)

	source := &countingSource{err: assert.AnError}
	svc := NewAutoAssignService(f.store, f.store, source, f.svc, time.UTC, quietLogger())
	svc.now = func() time.Time { return testNow }

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
