package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan feature flags
const (
	FeatureShiftManagement    = "shift_management"
	FeatureStaffPerformance   = "staff_performance"
	FeatureNotifications      = "notifications_enabled"
	FeatureAdvancedReporting  = "advanced_reporting"
	FeaturePrioritySupport    = "priority_support"
	FeatureCustomIntegrations = "custom_integrations"
)

// Plan is a subscription tier
type Plan struct {
	ID              uuid.UUID    `json:"id" db:"plan_id"`
	Name            string       `json:"name" db:"plan_name"`
	Features        FeatureFlags `json:"features" db:"feature_flags"`
	ShiftLimit      *int         `json:"shift_limit,omitempty" db:"shift_limit"`
	MaxStaffMembers *int         `json:"max_staff_members,omitempty" db:"max_staff_members"`
}

// SubscriptionSnapshot is a read-only view of an agency's current subscription
type SubscriptionSnapshot struct {
	AgencyID    uuid.UUID `json:"agency_id" db:"agency_id"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	PeriodStart time.Time `json:"current_period_start" db:"current_period_start"`
	PeriodEnd   time.Time `json:"current_period_end" db:"current_period_end"`
	Plan        Plan      `json:"plan" db:"-"`
}

// IsCurrent reports whether the subscription is active and unexpired at now
func (s *SubscriptionSnapshot) IsCurrent(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.IsActive && s.PeriodEnd.After(now)
}

// HasFlag reports whether the plan carries the named feature
func (s *SubscriptionSnapshot) HasFlag(feature string) bool {
	if s == nil {
		return false
	}
	return s.Plan.Features[feature]
}
