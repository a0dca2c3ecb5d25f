package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/shift-engine/pkg/geo"
)

// WorkerProfile holds the location data a worker configured on their profile
type WorkerProfile struct {
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	AgencyID     *uuid.UUID `json:"agency_id,omitempty" db:"agency_id"`
	Role         string     `json:"role" db:"role"`
	FullName     string     `json:"full_name" db:"full_name"`
	Latitude     *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64   `json:"longitude,omitempty" db:"longitude"`
	TravelRadius *float64   `json:"travel_radius,omitempty" db:"travel_radius"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Location returns the worker's home coordinates, or nil when unset
func (w *WorkerProfile) Location() *geo.Point {
	return geo.NewPoint(w.Latitude, w.Longitude)
}

// AgencyStaffCandidate is a staff member considered by the auto-assign job
type AgencyStaffCandidate struct {
	WorkerProfile
	AssignmentCount int `json:"assignment_count" db:"assignment_count"`
}
