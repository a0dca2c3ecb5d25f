package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/shift-engine/internal/models"
)

// SubscriptionRepository reads agency subscriptions. It never writes them;
// billing sync owns the subscriptions table.
type SubscriptionRepository struct {
	db DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

type subscriptionRow struct {
	AgencyID        uuid.UUID           `db:"agency_id"`
	IsActive        bool                `db:"is_active"`
	PeriodStart     time.Time           `db:"current_period_start"`
	PeriodEnd       time.Time           `db:"current_period_end"`
	PlanID          uuid.UUID           `db:"plan_id"`
	PlanName        string              `db:"plan_name"`
	FeatureFlags    models.FeatureFlags `db:"feature_flags"`
	ShiftLimit      *int                `db:"shift_limit"`
	MaxStaffMembers *int                `db:"max_staff_members"`
}

// CurrentSubscription returns the agency's most recent subscription, or nil when it has none
func (r *SubscriptionRepository) CurrentSubscription(ctx context.Context, agencyID uuid.UUID) (*models.SubscriptionSnapshot, error) {
	var row subscriptionRow
	query := `
		SELECT s.agency_id, s.is_active, s.current_period_start, s.current_period_end,
		       p.id AS plan_id, p.name AS plan_name, p.feature_flags, p.shift_limit, p.max_staff_members
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.agency_id = $1
		ORDER BY s.current_period_end DESC
		LIMIT 1`
	if err := r.db.GetContext(ctx, &row, query, agencyID); err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &models.SubscriptionSnapshot{
		AgencyID:    row.AgencyID,
		IsActive:    row.IsActive,
		PeriodStart: row.PeriodStart,
		PeriodEnd:   row.PeriodEnd,
		Plan: models.Plan{
			ID:              row.PlanID,
			Name:            row.PlanName,
			Features:        row.FeatureFlags,
			ShiftLimit:      row.ShiftLimit,
			MaxStaffMembers: row.MaxStaffMembers,
		},
	}, nil
}

// ListActiveAgencyIDs returns agencies with an active, unexpired subscription
func (r *SubscriptionRepository) ListActiveAgencyIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	query := `
		SELECT DISTINCT agency_id
		FROM subscriptions
		WHERE is_active = TRUE AND current_period_end > $1`
	if err := r.db.SelectContext(ctx, &ids, query, now); err != nil {
		return nil, fmt.Errorf("failed to list active agencies: %w", err)
	}
	return ids, nil
}
