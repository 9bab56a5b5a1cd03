package hierarchy

import (
	"sort"

	"kpireview/internal/domain/staff"
)

// Resolver answers supervision queries over one snapshot of profiles and
// assignments. It is immutable once built.
type Resolver struct {
	profiles  map[string]staff.Profile
	clinician ClinicianSupervision
	director  DirectorSupervision
}

// NewResolver splits the assignment rows into the two supervision relations.
// Rows whose subordinate is missing, unapproved or not reviewable are ignored.
// When a subordinate has several rows the earliest one wins.
func NewResolver(profiles []staff.Profile, assignments []Assignment) *Resolver {
	r := &Resolver{
		profiles:  staff.Index(profiles),
		clinician: ClinicianSupervision{},
		director:  DirectorSupervision{},
	}
	for _, a := range assignments {
		sub, ok := r.profiles[a.SubordinateID]
		if !ok || !sub.Accept {
			continue
		}
		switch sub.Role {
		case staff.RoleClinician:
			if _, seen := r.clinician[a.SubordinateID]; !seen {
				r.clinician[a.SubordinateID] = a.SupervisorID
			}
		case staff.RoleDirector:
			if _, seen := r.director[a.SubordinateID]; !seen {
				r.director[a.SubordinateID] = a.SupervisorID
			}
		case staff.RoleSuperAdmin, staff.RoleUnknown:
		}
	}
	return r
}

func (r *Resolver) Clinicians() ClinicianSupervision { return r.clinician }

func (r *Resolver) Directors() DirectorSupervision { return r.director }

func (r *Resolver) AssignedClinicians(directorID string) []staff.Profile {
	return r.collect(r.clinician, directorID)
}

func (r *Resolver) AssignedDirectors(directorID string) []staff.Profile {
	return r.collect(r.director, directorID)
}

func (r *Resolver) UnassignedClinicians() []staff.Profile {
	return r.unassigned(staff.RoleClinician, r.clinician)
}

func (r *Resolver) UnassignedDirectors() []staff.Profile {
	return r.unassigned(staff.RoleDirector, r.director)
}

// DirectorOf returns the supervisor of any reviewable staff member.
func (r *Resolver) DirectorOf(staffID string) (staff.Profile, bool) {
	p, ok := r.profiles[staffID]
	if !ok {
		return staff.Profile{}, false
	}
	switch p.Role {
	case staff.RoleClinician:
		return r.lookup(r.clinician[staffID])
	case staff.RoleDirector:
		return r.lookup(r.director[staffID])
	case staff.RoleSuperAdmin, staff.RoleUnknown:
	}
	return staff.Profile{}, false
}

func (r *Resolver) SupervisorOfDirector(directorID string) (staff.Profile, bool) {
	return r.lookup(r.director[directorID])
}

// Chain returns the supervisors above a director, nearest first. It stops at
// the first repeated id.
func (r *Resolver) Chain(directorID string) []staff.Profile {
	var out []staff.Profile
	seen := map[string]bool{directorID: true}
	cur := directorID
	for {
		next, ok := r.director[cur]
		if !ok || seen[next] {
			return out
		}
		seen[next] = true
		if p, ok := r.profiles[next]; ok {
			out = append(out, p)
		}
		cur = next
	}
}

// WouldCycle reports whether making supervisorID the supervisor of
// subordinateID closes a loop in the director relation.
func (r *Resolver) WouldCycle(subordinateID, supervisorID string) bool {
	if subordinateID == supervisorID {
		return true
	}
	seen := map[string]bool{}
	cur := supervisorID
	for !seen[cur] {
		seen[cur] = true
		next, ok := r.director[cur]
		if !ok {
			return false
		}
		if next == subordinateID {
			return true
		}
		cur = next
	}
	return false
}

// Reviews reports whether reviewerID may record reviews for staffID.
func (r *Resolver) Reviews(reviewerID, staffID string) bool {
	sup, ok := r.DirectorOf(staffID)
	return ok && sup.ID == reviewerID
}

// Oversees reports whether viewerID is the supervisor of staffID or sits
// anywhere above that supervisor in the director chain.
func (r *Resolver) Oversees(viewerID, staffID string) bool {
	sup, ok := r.DirectorOf(staffID)
	if !ok {
		return false
	}
	if sup.ID == viewerID {
		return true
	}
	for _, p := range r.Chain(sup.ID) {
		if p.ID == viewerID {
			return true
		}
	}
	return false
}

func (r *Resolver) lookup(id string) (staff.Profile, bool) {
	if id == "" {
		return staff.Profile{}, false
	}
	p, ok := r.profiles[id]
	return p, ok
}

func (r *Resolver) collect(rel map[string]string, supervisorID string) []staff.Profile {
	var out []staff.Profile
	for sub, sup := range rel {
		if sup == supervisorID {
			out = append(out, r.profiles[sub])
		}
	}
	sortProfiles(out)
	return out
}

func (r *Resolver) unassigned(role staff.Role, rel map[string]string) []staff.Profile {
	var out []staff.Profile
	for id, p := range r.profiles {
		if !p.Accept || p.Role != role {
			continue
		}
		if _, ok := rel[id]; !ok {
			out = append(out, p)
		}
	}
	sortProfiles(out)
	return out
}

func sortProfiles(ps []staff.Profile) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].DisplayName == ps[j].DisplayName {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].DisplayName < ps[j].DisplayName
	})
}
