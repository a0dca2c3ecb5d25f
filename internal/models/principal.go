package models

import (
	"github.com/google/uuid"
	"github.com/staffhub/shift-engine/pkg/geo"
)

// Role is the closed set of roles a caller can act under
type Role string

const (
	RoleSuperuser       Role = "superuser"
	RoleAgencyOwner     Role = "agency_owner"
	RoleAgencyManager   Role = "agency_manager"
	RoleAgencyStaff     Role = "agency_staff"
	RoleUnauthenticated Role = "unauthenticated"
)

// ParseRole maps a claim value onto a Role. Unknown values resolve to RoleUnauthenticated.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSuperuser, RoleAgencyOwner, RoleAgencyManager, RoleAgencyStaff:
		return Role(s)
	default:
		return RoleUnauthenticated
	}
}

// IsAgencyAdmin reports whether the role manages an agency (owner or manager)
func (r Role) IsAgencyAdmin() bool {
	return r == RoleAgencyOwner || r == RoleAgencyManager
}

// Principal is the resolved identity of one request. It is built once by the
// middleware and passed by value; nothing downstream modifies it.
type Principal struct {
	UserID       uuid.UUID             `json:"user_id"`
	Role         Role                  `json:"role"`
	AgencyID     *uuid.UUID            `json:"agency_id,omitempty"`
	Subscription *SubscriptionSnapshot `json:"subscription,omitempty"`
	Location     *geo.Point            `json:"location,omitempty"`
	TravelRadius *float64              `json:"travel_radius,omitempty"` // miles
}

// IsSuperuser reports whether the principal bypasses agency and plan checks
func (p Principal) IsSuperuser() bool {
	return p.Role == RoleSuperuser
}

// InAgency reports whether the principal is bound to the given agency
func (p Principal) InAgency(agencyID *uuid.UUID) bool {
	if p.AgencyID == nil || agencyID == nil {
		return false
	}
	return *p.AgencyID == *agencyID
}

// SystemPrincipal is used by background jobs that act outside any request
func SystemPrincipal() Principal {
	return Principal{Role: RoleSuperuser}
}
