package services

import (
	"context"
	"fmt"
	"time"

	"github.com/staffhub/shift-engine/internal/models"
	"github.com/teambition/rrule-go"
)

// RecurringResult lists the shifts created from a recurrence rule. When
// creation stopped early, Stopped carries the outcome that stopped it.
type RecurringResult struct {
	Decision
	Shifts  []*models.Shift `json:"shifts,omitempty"`
	Stopped *Decision       `json:"stopped,omitempty"`
}

// RecurringShiftService creates one shift per date of an RRULE
type RecurringShiftService struct {
	lifecycle      *ShiftLifecycleService
	maxOccurrences int
}

// NewRecurringShiftService creates a new recurring shift service
func NewRecurringShiftService(lifecycle *ShiftLifecycleService, maxOccurrences int) *RecurringShiftService {
	if maxOccurrences <= 0 {
		maxOccurrences = 31
	}
	return &RecurringShiftService{lifecycle: lifecycle, maxOccurrences: maxOccurrences}
}

// Occurrences expands rule from the draft's shift date, looking at most one year ahead
func (s *RecurringShiftService) Occurrences(shiftDate, rule string) ([]time.Time, map[string]string) {
	start, err := time.Parse(dateLayout, shiftDate)
	if err != nil {
		return nil, map[string]string{"shift_date": "must be a date in YYYY-MM-DD format"}
	}

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, map[string]string{"rrule": fmt.Sprintf("is not a valid recurrence rule: %v", err)}
	}
	r.DTStart(start)

	dates := r.Between(start, start.AddDate(1, 0, 0), true)
	switch {
	case len(dates) == 0:
		return nil, map[string]string{"rrule": "produces no dates"}
	case len(dates) > s.maxOccurrences:
		return nil, map[string]string{"rrule": fmt.Sprintf("produces more than %d dates", s.maxOccurrences)}
	}
	return dates, nil
}

// CreateRecurringShifts creates the draft on every date of the rule through the
// normal creation path. Creation stops at the first rejected occurrence.
func (s *RecurringShiftService) CreateRecurringShifts(ctx context.Context, p models.Principal, draft *models.ShiftDraft, rule string) (*RecurringResult, error) {
	dates, fields := s.Occurrences(draft.ShiftDate, rule)
	if fields != nil {
		return &RecurringResult{Decision: invalid(fields)}, nil
	}

	created := make([]*models.Shift, 0, len(dates))
	for _, date := range dates {
		occurrence := *draft
		occurrence.ShiftDate = date.Format(dateLayout)
		occurrence.EndDate = nil

		res, err := s.lifecycle.CreateShift(ctx, p, &occurrence)
		if err != nil {
			return nil, err
		}
		if !res.OK() {
			if len(created) == 0 {
				return &RecurringResult{Decision: res.Decision}, nil
			}
			stopped := res.Decision
			return &RecurringResult{Decision: allow(), Shifts: created, Stopped: &stopped}, nil
		}
		created = append(created, res.Shift)
	}

	return &RecurringResult{Decision: allow(), Shifts: created}, nil
}
