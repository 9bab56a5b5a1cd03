package entitystore

import (
	"kpireview/internal/domain/hierarchy"
	"kpireview/internal/domain/kpi"
	"kpireview/internal/domain/review"
	"kpireview/internal/domain/staff"
)

// Snapshot is an immutable view of all four collections at one version.
// Callers must not modify the returned slices.
type Snapshot struct {
	version     uint64
	kpis        []kpi.KPI
	profiles    []staff.Profile
	assignments []hierarchy.Assignment
	items       []review.Item
}

func (s *Snapshot) Version() uint64 { return s.version }
func (s *Snapshot) KPIs() []kpi.KPI { return s.kpis }
func (s *Snapshot) Profiles() []staff.Profile { return s.profiles }
func (s *Snapshot) Assignments() []hierarchy.Assignment { return s.assignments }
func (s *Snapshot) ReviewItems() []review.Item { return s.items }

// Resolver builds a hierarchy resolver over this snapshot.
func (s *Snapshot) Resolver() *hierarchy.Resolver {
	return hierarchy.NewResolver(s.profiles, s.assignments)
}
