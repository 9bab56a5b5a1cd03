package staff

import "time"

type Position struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type Profile struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	Handle       string    `json:"handle"`
	PositionID   string    `json:"positionId"`
	PositionName string    `json:"positionName"`
	Role         Role      `json:"role"`
	Accept       bool      `json:"accept"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Eligible reports whether the profile takes part in scoring and review queries.
func (p Profile) Eligible() bool {
	return p.Accept && p.Role.Reviewable()
}

type Filter struct {
	ApprovedOnly bool
	Role         Role
}

func (f Filter) Match(p Profile) bool {
	if f.ApprovedOnly && !p.Accept {
		return false
	}
	if f.Role != RoleUnknown && p.Role != f.Role {
		return false
	}
	return true
}

type Registration struct {
	DisplayName string
	Handle      string
	Password    string
	PositionID  string
}

// Index maps profile ids to profiles.
func Index(profiles []Profile) map[string]Profile {
	out := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out
}
