package staff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is derived from a profile's position. The zero value is not a valid role.
type Role int

const (
	RoleUnknown Role = iota
	RoleClinician
	RoleDirector
	RoleSuperAdmin
)

var Roles = []Role{RoleClinician, RoleDirector, RoleSuperAdmin}

func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "clinician":
		return RoleClinician, nil
	case "director":
		return RoleDirector, nil
	case "super-admin", "superadmin", "super_admin":
		return RoleSuperAdmin, nil
	}
	return RoleUnknown, fmt.Errorf("unknown role %q", value)
}

func (r Role) String() string {
	switch r {
	case RoleClinician:
		return "clinician"
	case RoleDirector:
		return "director"
	case RoleSuperAdmin:
		return "super-admin"
	case RoleUnknown:
		return "unknown"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Reviewable reports whether profiles of this role receive KPI reviews and scores.
func (r Role) Reviewable() bool {
	switch r {
	case RoleClinician, RoleDirector:
		return true
	case RoleSuperAdmin, RoleUnknown:
		return false
	}
	return false
}

// Supervises reports whether a profile of this role may appear as the supervisor in an assignment.
func (r Role) Supervises() bool {
	switch r {
	case RoleDirector:
		return true
	case RoleClinician, RoleSuperAdmin, RoleUnknown:
		return false
	}
	return false
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
