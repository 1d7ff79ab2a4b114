package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of actor roles. The zero value is not a valid role.
type Role string

const (
	RoleCitizen     Role = "citizen"
	RoleAgencyAdmin Role = "agency_admin"
	RoleSystemAdmin Role = "system_admin"
)

// Roles lists every role in ascending privilege order.
func Roles() []Role {
	return []Role{RoleCitizen, RoleAgencyAdmin, RoleSystemAdmin}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleAgencyAdmin, RoleSystemAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole normalizes and validates a role name.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}
