package auth

import "kpireview/internal/domain/staff"

const (
	PermKPIRead      = "kpis.read"
	PermKPIWrite     = "kpis.write"
	PermStaffRead    = "staff.read"
	PermStaffWrite   = "staff.write"
	PermHierarchy    = "hierarchy.read"
	PermAssign       = "hierarchy.assign"
	PermReviewRead   = "reviews.read"
	PermReviewWrite  = "reviews.write"
	PermScoresRead   = "scores.read"
	PermScoresTeam   = "scores.team"
	PermGroupsManage = "groups.manage"
	PermAuditRead    = "audit.read"
	PermSystemAdmin  = "admin.system"
)

var DefaultPermissions = []string{
	PermKPIRead,
	PermKPIWrite,
	PermStaffRead,
	PermStaffWrite,
	PermHierarchy,
	PermAssign,
	PermReviewRead,
	PermReviewWrite,
	PermScoresRead,
	PermScoresTeam,
	PermGroupsManage,
	PermAuditRead,
	PermSystemAdmin,
}

// RolePermissions is the static grant table. Record-level checks (a director
// only reviews their own subordinates) happen in the handlers.
var RolePermissions = map[staff.Role][]string{
	staff.RoleClinician: {
		PermKPIRead,
		PermReviewRead,
		PermScoresRead,
	},
	staff.RoleDirector: {
		PermKPIRead,
		PermKPIWrite,
		PermStaffRead,
		PermHierarchy,
		PermReviewRead,
		PermReviewWrite,
		PermScoresRead,
		PermScoresTeam,
		PermGroupsManage,
	},
	staff.RoleSuperAdmin: DefaultPermissions,
}

func Allowed(role staff.Role, permission string) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
