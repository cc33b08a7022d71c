package model

import "strings"

type Role string

const (
	RoleClient   Role = "client"
	RoleMerchant Role = "merchant"
)

// ParseRole maps identity-provider role names onto the two booking roles.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "client", "customer":
		return RoleClient, true
	case "merchant", "owner", "admin", "staff":
		return RoleMerchant, true
	default:
		return "", false
	}
}

// Counterparty is the role expected to resolve a request made by r.
func (r Role) Counterparty() Role {
	if r == RoleClient {
		return RoleMerchant
	}
	return RoleClient
}

// Actor is the authenticated caller. BusinessID is set for merchants only.
type Actor struct {
	ID         string
	Role       Role
	BusinessID string
}

// CanAccess reports whether the actor is a party to the appointment.
func (a Actor) CanAccess(appt Appointment) bool {
	switch a.Role {
	case RoleClient:
		return a.ID != "" && a.ID == appt.ClientID
	case RoleMerchant:
		return a.BusinessID != "" && a.BusinessID == appt.BusinessID
	default:
		return false
	}
}
