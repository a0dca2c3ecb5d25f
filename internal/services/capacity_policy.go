package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/shift-engine/internal/models"
)

// IsFull reports whether the shift has no free slot for another worker
func IsFull(shift *models.Shift, activeAssignments int) bool {
	return activeAssignments >= shift.Capacity
}

// IsUserAssigned reports whether workerID already holds one of the assignments
func IsUserAssigned(assignments []models.ShiftAssignment, workerID uuid.UUID) bool {
	for _, a := range assignments {
		if a.WorkerID == workerID {
			return true
		}
	}
	return false
}

// CanCreateMoreShifts reports whether another shift fits within the plan's monthly limit.
// Superusers are never limited. Without a current subscription nothing may be created;
// a plan without a limit is unlimited. Exactly limit shifts are allowed per month.
func CanCreateMoreShifts(p models.Principal, sub *models.SubscriptionSnapshot, createdThisPeriod int, now time.Time) bool {
	if p.IsSuperuser() {
		return true
	}
	if !sub.IsCurrent(now) {
		return false
	}
	if sub.Plan.ShiftLimit == nil {
		return true
	}
	return createdThisPeriod < *sub.Plan.ShiftLimit
}

// BillingPeriodStart returns midnight on the first day of now's month in loc
func BillingPeriodStart(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}
