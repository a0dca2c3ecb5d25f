package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PerformanceStatus is the manager's overall verdict
type PerformanceStatus string

const (
	PerformanceExcellent PerformanceStatus = "excellent"
	PerformanceGood      PerformanceStatus = "good"
	PerformanceAverage   PerformanceStatus = "average"
	PerformancePoor      PerformanceStatus = "poor"
)

// StaffPerformance is a manager's review of one worker on one shift
type StaffPerformance struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	ShiftID       uuid.UUID         `json:"shift_id" db:"shift_id"`
	WorkerID      uuid.UUID         `json:"worker_id" db:"worker_id"`
	WellnessScore int               `json:"wellness_score" db:"wellness_score"`
	Rating        decimal.Decimal   `json:"rating" db:"rating"`
	Status        PerformanceStatus `json:"status" db:"status"`
	Comments      string            `json:"comments" db:"comments"`
	RecordedBy    uuid.UUID         `json:"recorded_by" db:"recorded_by"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}

// PerformanceInput is the body of a performance review
type PerformanceInput struct {
	WellnessScore int               `json:"wellness_score" validate:"min=0,max=100"`
	Rating        decimal.Decimal   `json:"rating"`
	Status        PerformanceStatus `json:"status" validate:"required,oneof=excellent good average poor"`
	Comments      string            `json:"comments" validate:"max=2000"`
}
