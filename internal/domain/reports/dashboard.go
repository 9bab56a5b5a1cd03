package reports

import (
	"kpireview/internal/domain/hierarchy"
	"kpireview/internal/domain/period"
	"kpireview/internal/domain/review"
	"kpireview/internal/domain/scoring"
	"kpireview/internal/domain/staff"
)

// Dashboard is the per-role summary shown after login.
type Dashboard struct {
	Role                 staff.Role `json:"role"`
	Period               string     `json:"period"`
	OwnScore             *int       `json:"ownScore,omitempty"`
	TeamSize             int        `json:"teamSize"`
	TeamAverage          int        `json:"teamAverage"`
	ReviewsThisPeriod    int        `json:"reviewsThisPeriod"`
	PendingApprovals     int        `json:"pendingApprovals"`
	UnassignedClinicians int        `json:"unassignedClinicians"`
	UnassignedDirectors  int        `json:"unassignedDirectors"`
}

// Scorer is the part of the scoring engine the dashboard needs.
type Scorer interface {
	Score(staffID string, p period.Period) int
	Team(members []staff.Profile, p period.Period) []scoring.MemberScore
}

func BuildDashboard(user staff.Profile, p period.Period, profiles []staff.Profile, items []review.Item, resolver *hierarchy.Resolver, scores Scorer) Dashboard {
	d := Dashboard{Role: user.Role, Period: p.Key()}
	switch user.Role {
	case staff.RoleClinician:
		own := scores.Score(user.ID, p)
		d.OwnScore = &own
		d.ReviewsThisPeriod = countReviews(items, p, func(it review.Item) bool { return it.StaffID == user.ID })
	case staff.RoleDirector:
		own := scores.Score(user.ID, p)
		d.OwnScore = &own
		team := append(resolver.AssignedClinicians(user.ID), resolver.AssignedDirectors(user.ID)...)
		d.TeamSize = len(team)
		d.TeamAverage = average(scores.Team(team, p))
		d.ReviewsThisPeriod = countReviews(items, p, func(it review.Item) bool { return it.DirectorID == user.ID })
	case staff.RoleSuperAdmin:
		for _, prof := range profiles {
			if !prof.Accept {
				d.PendingApprovals++
			}
		}
		d.UnassignedClinicians = len(resolver.UnassignedClinicians())
		d.UnassignedDirectors = len(resolver.UnassignedDirectors())
		d.ReviewsThisPeriod = countReviews(items, p, func(review.Item) bool { return true })
	case staff.RoleUnknown:
	}
	return d
}

func countReviews(items []review.Item, p period.Period, match func(review.Item) bool) int {
	n := 0
	for _, it := range items {
		if p.Contains(it.ReviewedAt) && match(it) {
			n++
		}
	}
	return n
}

// average is the mean over members that have at least one review.
func average(scores []scoring.MemberScore) int {
	sum, n := 0, 0
	for _, s := range scores {
		if s.Reviewed == 0 {
			continue
		}
		sum += s.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return (sum + n/2) / n
}
