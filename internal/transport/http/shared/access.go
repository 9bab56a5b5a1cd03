package shared

import (
	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/hierarchy"
	"kpireview/internal/domain/staff"
)

// CanView reports whether user may see reviews and scores of staffID: their
// own, anyone for super-admins, and staff a director oversees through the
// supervision chain.
func CanView(user auth.UserContext, resolver *hierarchy.Resolver, staffID string) bool {
	if user.Role == staff.RoleSuperAdmin || user.UserID == staffID {
		return true
	}
	return user.Role == staff.RoleDirector && resolver.Oversees(user.UserID, staffID)
}
