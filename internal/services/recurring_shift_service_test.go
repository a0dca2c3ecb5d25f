package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOccurrences(t *testing.T) {
	svc := NewRecurringShiftService(nil, 5)

	dates, fields := svc.Occurrences("2026-03-11", "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=4")
	require.Nil(t, fields)
	require.Len(t, dates, 4)
	assert.Equal(t, "2026-03-11", dates[0].Format(dateLayout))
	assert.Equal(t, "2026-03-16", dates[1].Format(dateLayout))
	assert.Equal(t, "2026-03-18", dates[2].Format(dateLayout))
	assert.Equal(t, "2026-03-23", dates[3].Format(dateLayout))

	tests := []struct {
		name  string
		date  string
		rule  string
		field string
	}{
		{"bad date", "11/03/2026", "FREQ=DAILY;COUNT=2", "shift_date"},
		{"bad rule", "2026-03-11", "FREQ=SOMETIMES", "rrule"},
		{"too many", "2026-03-11", "FREQ=DAILY;COUNT=6", "rrule"},
		{"unbounded daily", "2026-03-11", "FREQ=DAILY", "rrule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, fields := svc.Occurrences(tt.date, tt.rule)
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestCreateRecurringShifts(t *testing.T) {
	f := newLifecycleFixture(t)
	svc := NewRecurringShiftService(f.svc, 0)

	res, err := svc.CreateRecurringShifts(context.Background(), f.manager, validDraft(), "FREQ=DAILY;COUNT=3")
	require.NoError(t, err)
	require.True(t, res.OK(), res.Reason)
	require.Len(t, res.Shifts, 3)
	assert.Nil(t, res.Stopped)
	for i, shift := range res.Shifts {
		assert.Equal(t, time.Date(2026, 3, 11+i, 0, 0, 0, 0, time.UTC), shift.ShiftDate)
	}
}

func TestCreateRecurringShifts_StopsAtLimit(t *testing.T) {
	f := newLifecycleFixture(t)
	limit := 2
	f.manager.Subscription = activeSubscription(f.agencyID, &limit)
	svc := NewRecurringShiftService(f.svc, 0)

	res, err := svc.CreateRecurringShifts(context.Background(), f.manager, validDraft(), "FREQ=DAILY;COUNT=3")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Len(t, res.Shifts, 2)
	require.NotNil(t, res.Stopped)
	assert.Equal(t, OutcomeLimitReached, res.Stopped.Outcome)
}

func TestCreateRecurringShifts_FirstRejectionIsTheResult(t *testing.T) {
	f := newLifecycleFixture(t)
	svc := NewRecurringShiftService(f.svc, 0)
	staff := f.member("agency_staff")

	res, err := svc.CreateRecurringShifts(context.Background(), staff, validDraft(), "FREQ=DAILY;COUNT=3")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDenied, res.Outcome)
	assert.Empty(t, res.Shifts)
}
