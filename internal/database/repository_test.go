package database

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkerRepository(db)
	ctx := context.Background()
	agencyID, userID := uuid.New(), uuid.New()

	t.Run("GetWorker", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM worker_profiles WHERE user_id = \$1`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{
				"user_id", "agency_id", "role", "full_name", "latitude", "longitude",
				"travel_radius", "is_active", "created_at",
			}).AddRow(userID.String(), agencyID.String(), "agency_staff", "Ada Lovelace",
				51.52, -0.14, 5.0, true, time.Now()))

		worker, err := repo.GetWorker(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", worker.FullName)
		require.NotNil(t, worker.Location())
		assert.Equal(t, 5.0, *worker.TravelRadius)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetWorker Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM worker_profiles`).
			WithArgs(userID).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetWorker(ctx, userID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListAgencyAdmins", func(t *testing.T) {
		owner, manager := uuid.New(), uuid.New()
		mock.ExpectQuery(`SELECT user_id FROM worker_profiles`).
			WithArgs(agencyID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(owner.String()).AddRow(manager.String()))

		ids, err := repo.ListAgencyAdmins(ctx, agencyID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{owner, manager}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSubscriptionRepository_CurrentSubscription(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	agencyID := uuid.New()

	t.Run("No Subscription", func(t *testing.T) {
		mock.ExpectQuery(`FROM subscriptions s`).
			WithArgs(agencyID).
			WillReturnError(sql.ErrNoRows)

		sub, err := repo.CurrentSubscription(ctx, agencyID)
		require.NoError(t, err)
		assert.Nil(t, sub)
	})

	t.Run("Success", func(t *testing.T) {
		start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`FROM subscriptions s`).
			WithArgs(agencyID).
			WillReturnRows(sqlmock.NewRows([]string{
				"agency_id", "is_active", "current_period_start", "current_period_end",
				"plan_id", "plan_name", "feature_flags", "shift_limit", "max_staff_members",
			}).AddRow(agencyID.String(), true, start, start.AddDate(0, 1, 0),
				uuid.New().String(), "Basic", []byte(`{"shift_management": true}`), 50, nil))

		sub, err := repo.CurrentSubscription(ctx, agencyID)
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, "Basic", sub.Plan.Name)
		assert.True(t, sub.HasFlag(models.FeatureShiftManagement))
		assert.False(t, sub.HasFlag(models.FeatureStaffPerformance))
		require.NotNil(t, sub.Plan.ShiftLimit)
		assert.Equal(t, 50, *sub.Plan.ShiftLimit)
		assert.Nil(t, sub.Plan.MaxStaffMembers)
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`FROM subscriptions s`).
			WithArgs(agencyID).
			WillReturnError(fmt.Errorf("connection refused"))

		_, err := repo.CurrentSubscription(ctx, agencyID)
		assert.ErrorContains(t, err, "failed to get subscription")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformanceRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPerformanceRepository(db)
	record := &models.StaffPerformance{
		ShiftID:    uuid.New(),
		WorkerID:   uuid.New(),
		Rating:     decimal.RequireFromString("4.5"),
		Status:     models.PerformanceGood,
		RecordedBy: uuid.New(),
	}

	mock.ExpectQuery(`INSERT INTO staff_performance`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	require.NoError(t, repo.Create(context.Background(), record))
	assert.NotEqual(t, uuid.Nil, record.ID)

	mock.ExpectQuery(`INSERT INTO staff_performance`).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "staff_performance_worker_shift_key"})
	again := *record
	again.ID = uuid.Nil
	assert.ErrorIs(t, repo.Create(context.Background(), &again), ErrDuplicatePerformance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(sqlmock.AnyArg(), userID, "Shift Assignment", "You have been assigned", "/shifts/1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	n := &models.Notification{UserID: userID, Subject: "Shift Assignment", Message: "You have been assigned", URL: "/shifts/1"}
	require.NoError(t, repo.Create(ctx, n))
	assert.NotEqual(t, uuid.Nil, n.ID)

	mock.ExpectExec(`UPDATE notifications SET read = TRUE`).
		WithArgs(n.ID, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkRead(ctx, n.ID, userID), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearShiftData(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`TRUNCATE TABLE audit_logs, notifications, staff_performance, signature_artifacts, shift_assignments, shifts RESTART IDENTITY CASCADE`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, ClearShiftData(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
