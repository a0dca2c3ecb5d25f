package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/staffhub/shift-engine/pkg/geo"
)

// ShiftStatus is the persisted status of a shift
type ShiftStatus string

const (
	ShiftStatusPending   ShiftStatus = "pending"
	ShiftStatusAvailable ShiftStatus = "available"
	ShiftStatusBooked    ShiftStatus = "booked"
	ShiftStatusCompleted ShiftStatus = "completed"
	ShiftStatusCancelled ShiftStatus = "cancelled"
)

// ShiftType categorises a shift
type ShiftType string

const (
	ShiftTypeRegular     ShiftType = "regular"
	ShiftTypeMorning     ShiftType = "morning_shift"
	ShiftTypeDay         ShiftType = "day_shift"
	ShiftTypeNight       ShiftType = "night_shift"
	ShiftTypeBankHoliday ShiftType = "bank_holiday"
	ShiftTypeEmergency   ShiftType = "emergency_shift"
	ShiftTypeOvertime    ShiftType = "overtime"
)

// Shift is a bookable work slot
type Shift struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	ShiftCode      string          `json:"shift_code" db:"shift_code"`
	Name           string          `json:"name" db:"name"`
	ShiftType      ShiftType       `json:"shift_type" db:"shift_type"`
	AgencyID       *uuid.UUID      `json:"agency_id,omitempty" db:"agency_id"`
	ShiftDate      time.Time       `json:"shift_date" db:"shift_date"`
	StartTime      string          `json:"start_time" db:"start_time"`
	EndTime        string          `json:"end_time" db:"end_time"`
	EndDate        *time.Time      `json:"end_date,omitempty" db:"end_date"`
	IsOvernight    bool            `json:"is_overnight" db:"is_overnight"`
	DurationHours  float64         `json:"duration_hours" db:"duration_hours"`
	Capacity       int             `json:"capacity" db:"capacity"`
	HourlyRate     decimal.Decimal `json:"hourly_rate" db:"hourly_rate"`
	Notes          string          `json:"notes" db:"notes"`
	Postcode       string          `json:"postcode" db:"postcode"`
	AddressLine1   string          `json:"address_line1" db:"address_line1"`
	AddressLine2   string          `json:"address_line2" db:"address_line2"`
	City           string          `json:"city" db:"city"`
	County         string          `json:"county" db:"county"`
	Country        string          `json:"country" db:"country"`
	Latitude       *float64        `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64        `json:"longitude,omitempty" db:"longitude"`
	Status         ShiftStatus     `json:"status" db:"status"`
	IsCompleted    bool            `json:"is_completed" db:"is_completed"`
	CompletionTime *time.Time      `json:"completion_time,omitempty" db:"completion_time"`
	SignatureRef   *string         `json:"signature_ref,omitempty" db:"signature_ref"`
	CreatedBy      uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Location returns the shift's coordinates, or nil when they are not set
func (s *Shift) Location() *geo.Point {
	return geo.NewPoint(s.Latitude, s.Longitude)
}

// IsCancelled reports whether the shift has been cancelled
func (s *Shift) IsCancelled() bool {
	return s.Status == ShiftStatusCancelled
}

// IsClosed reports whether the shift no longer accepts assignment changes
func (s *Shift) IsClosed() bool {
	return s.IsCompleted || s.IsCancelled()
}

// StatusFor derives the open/booked status from the number of active assignments.
// Closed shifts keep their terminal status.
func (s *Shift) StatusFor(active int) ShiftStatus {
	if s.IsCompleted {
		return ShiftStatusCompleted
	}
	if s.IsCancelled() {
		return ShiftStatusCancelled
	}
	if active >= s.Capacity {
		return ShiftStatusBooked
	}
	return ShiftStatusAvailable
}

// ShiftDraft is the caller-supplied content of a new or edited shift
type ShiftDraft struct {
	Name         string          `json:"name" validate:"required,max=255"`
	ShiftType    ShiftType       `json:"shift_type" validate:"omitempty,oneof=regular morning_shift day_shift night_shift bank_holiday emergency_shift overtime"`
	AgencyID     *uuid.UUID      `json:"agency_id,omitempty"`
	ShiftDate    string          `json:"shift_date" validate:"required,datetime=2006-01-02"`
	StartTime    string          `json:"start_time" validate:"required"`
	EndTime      string          `json:"end_time" validate:"required"`
	EndDate      *string         `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Capacity     int             `json:"capacity" validate:"gt=0"`
	HourlyRate   decimal.Decimal `json:"hourly_rate"`
	Notes        string          `json:"notes" validate:"max=2000"`
	Postcode     string          `json:"postcode" validate:"omitempty,uk_postcode"`
	AddressLine1 string          `json:"address_line1" validate:"max=255"`
	AddressLine2 string          `json:"address_line2" validate:"max=255"`
	City         string          `json:"city" validate:"max=100"`
	County       string          `json:"county" validate:"max=100"`
	Country      string          `json:"country" validate:"max=100"`
	Latitude     *float64        `json:"latitude,omitempty" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude    *float64        `json:"longitude,omitempty" validate:"required_with=Latitude,omitempty,longitude"`
}

// AgencyUsage reports how many shifts an agency created in the current billing month
type AgencyUsage struct {
	AgencyID      uuid.UUID `json:"agency_id"`
	PeriodStart   time.Time `json:"period_start"`
	ShiftsCreated int       `json:"shifts_created"`
	ShiftLimit    *int      `json:"shift_limit,omitempty"`
	CanCreateMore bool      `json:"can_create_more"`
}
