package scoring

import (
	"sort"
	"sync"

	"kpireview/internal/domain/kpi"
	"kpireview/internal/domain/period"
	"kpireview/internal/domain/review"
	"kpireview/internal/domain/staff"
)

// Source is a consistent view of the cached collections.
type Source interface {
	Version() uint64
	KPIs() []kpi.KPI
	Profiles() []staff.Profile
	ReviewItems() []review.Item
}

type memoKey struct {
	staffID string
	period  string
	start   int64
}

// Engine memoizes scores per (staff, period). The memo is dropped when the
// source version moves or Invalidate is called.
type Engine struct {
	source func() Source

	mu      sync.Mutex
	built   bool
	version uint64
	in      Inputs
	byStaff map[string][]review.Item
	memo    map[memoKey]int
}

func NewEngine(source func() Source) *Engine {
	return &Engine{source: source}
}

func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.built = false
	e.memo = nil
	e.mu.Unlock()
}

// sync must be called with mu held.
func (e *Engine) sync() {
	src := e.source()
	v := src.Version()
	if e.built && v == e.version {
		return
	}
	e.in = NewInputs(src.Profiles(), src.KPIs(), src.ReviewItems())
	e.byStaff = make(map[string][]review.Item)
	for _, it := range e.in.Items {
		e.byStaff[it.StaffID] = append(e.byStaff[it.StaffID], it)
	}
	e.memo = make(map[memoKey]int)
	e.version = v
	e.built = true
}

func (e *Engine) Score(staffID string, p period.Period) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync()
	return e.scoreLocked(staffID, p)
}

func (e *Engine) scoreLocked(staffID string, p period.Period) int {
	key := memoKey{staffID: staffID, period: p.Key(), start: p.Start.UnixNano()}
	if v, ok := e.memo[key]; ok {
		return v
	}
	v := breakdown(e.in, staffID, p, e.byStaff[staffID]).Score
	e.memo[key] = v
	return v
}

func (e *Engine) Breakdown(staffID string, p period.Period) Breakdown {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync()
	return breakdown(e.in, staffID, p, e.byStaff[staffID])
}

type Point struct {
	Period period.Period `json:"period"`
	Key    string        `json:"key"`
	Score  int           `json:"score"`
}

// Trend scores the staff member over periods, in the order given.
func (e *Engine) Trend(staffID string, periods []period.Period) []Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync()
	out := make([]Point, 0, len(periods))
	for _, p := range periods {
		out = append(out, Point{Period: p, Key: p.Key(), Score: e.scoreLocked(staffID, p)})
	}
	return out
}

type MemberScore struct {
	Profile  staff.Profile `json:"profile"`
	Score    int           `json:"score"`
	Reviewed int           `json:"reviewed"`
}

// Team scores each member for p, highest score first.
func (e *Engine) Team(members []staff.Profile, p period.Period) []MemberScore {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync()
	out := make([]MemberScore, 0, len(members))
	for _, m := range members {
		b := breakdown(e.in, m.ID, p, e.byStaff[m.ID])
		out = append(out, MemberScore{Profile: m, Score: b.Score, Reviewed: len(b.Rows)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Profile.DisplayName < out[j].Profile.DisplayName
	})
	return out
}
