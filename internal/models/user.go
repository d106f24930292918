package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of dashboard roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// ParseRole accepts the configured role names, including the legacy
// "super admin" and "barber" labels.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin", "super admin", "superadmin":
		return RoleAdmin, nil
	case "staff", "barber", "user":
		return RoleStaff, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Identity is the signed-in user of a session.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanManage is the single permission rule for booking actions: admins manage
// everything, staff only bookings assigned to themselves.
func CanManage(id Identity, b Booking) bool {
	if id.IsAdmin() {
		return true
	}
	return id.Username != "" && b.AssignedTo(id.Username)
}

// Credential is one row of the static login table.
type Credential struct {
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password" validate:"required"`
	Role     string `yaml:"role"`
}
