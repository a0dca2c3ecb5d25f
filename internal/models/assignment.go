package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/shift-engine/pkg/geo"
)

// AttendanceStatus is recorded when an assignment is completed
type AttendanceStatus string

const (
	AttendanceAttended AttendanceStatus = "attended"
	AttendanceLate     AttendanceStatus = "late"
	AttendanceNoShow   AttendanceStatus = "no_show"
)

// Valid reports whether the status is one of the known values
func (a AttendanceStatus) Valid() bool {
	switch a {
	case AttendanceAttended, AttendanceLate, AttendanceNoShow:
		return true
	}
	return false
}

// ShiftAssignment binds one worker to one shift
type ShiftAssignment struct {
	ID                  uuid.UUID         `json:"id" db:"id"`
	ShiftID             uuid.UUID         `json:"shift_id" db:"shift_id"`
	WorkerID            uuid.UUID         `json:"worker_id" db:"worker_id"`
	AssignedBy          *uuid.UUID        `json:"assigned_by,omitempty" db:"assigned_by"`
	AssignedAt          time.Time         `json:"assigned_at" db:"assigned_at"`
	AttendanceStatus    *AttendanceStatus `json:"attendance_status,omitempty" db:"attendance_status"`
	CompletionLatitude  *float64          `json:"completion_latitude,omitempty" db:"completion_latitude"`
	CompletionLongitude *float64          `json:"completion_longitude,omitempty" db:"completion_longitude"`
	CompletionTime      *time.Time        `json:"completion_time,omitempty" db:"completion_time"`
	SignatureRef        *string           `json:"signature_ref,omitempty" db:"signature_ref"`
}

// IsCompleted reports whether the worker has completed this assignment
func (a *ShiftAssignment) IsCompleted() bool {
	return a.CompletionTime != nil
}

// CompletionLocation returns where the assignment was completed
func (a *ShiftAssignment) CompletionLocation() *geo.Point {
	return geo.NewPoint(a.CompletionLatitude, a.CompletionLongitude)
}
