package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/shift-engine/internal/models"
)

// CanCreateShift reports whether the principal may post new shifts
func CanCreateShift(p models.Principal) bool {
	if p.IsSuperuser() {
		return true
	}
	return p.Role.IsAgencyAdmin() && p.AgencyID != nil
}

// CanManageAgencyShift reports whether the principal administers the shift's agency
func CanManageAgencyShift(p models.Principal, shift *models.Shift) bool {
	if p.IsSuperuser() {
		return true
	}
	return p.Role.IsAgencyAdmin() && p.InAgency(shift.AgencyID)
}

// CanBookShift reports whether the principal may self-book the shift
func CanBookShift(p models.Principal, shift *models.Shift) bool {
	if p.IsSuperuser() {
		return true
	}
	return p.Role == models.RoleAgencyStaff && p.InAgency(shift.AgencyID)
}

// CanCompleteShift reports whether the principal may complete workerID's assignment.
// Workers complete their own; agency admins complete on behalf of their staff.
func CanCompleteShift(p models.Principal, shift *models.Shift, workerID uuid.UUID) bool {
	return actsForWorker(p, shift, workerID)
}

// CanUnassign reports whether the principal may remove workerID from the shift.
// Staff may only remove themselves.
func CanUnassign(p models.Principal, shift *models.Shift, workerID uuid.UUID) bool {
	return actsForWorker(p, shift, workerID)
}

func actsForWorker(p models.Principal, shift *models.Shift, workerID uuid.UUID) bool {
	if p.IsSuperuser() {
		return true
	}
	if p.Role == models.RoleUnauthenticated {
		return false
	}
	if p.UserID == workerID {
		return true
	}
	return p.Role.IsAgencyAdmin() && p.InAgency(shift.AgencyID)
}

// HasFeature reports whether the principal's plan grants the named feature at now
func HasFeature(p models.Principal, feature string, now time.Time) bool {
	if p.IsSuperuser() {
		return true
	}
	return p.Subscription.IsCurrent(now) && p.Subscription.HasFlag(feature)
}

// Check is one link of a permission chain
type Check func() Decision

// Require builds a Check that rejects with outcome when pred is false.
// pred is only evaluated if every earlier check in the chain passed.
func Require(pred func() bool, outcome Outcome, reason string) Check {
	return func() Decision {
		if pred() {
			return allow()
		}
		return reject(outcome, reason)
	}
}

// All evaluates checks in order and returns the first rejection
func All(checks ...Check) Decision {
	for _, check := range checks {
		if d := check(); !d.OK() {
			return d
		}
	}
	return allow()
}

func requireFeature(p models.Principal, feature string, now time.Time) Check {
	return Require(func() bool { return HasFeature(p, feature, now) },
		OutcomeFeatureUnavailable,
		"Your subscription plan does not include this feature. Upgrade your plan to continue.")
}
