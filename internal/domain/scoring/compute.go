// Package scoring turns review items into weighted percentage scores.
package scoring

import (
	"math"
	"sort"
	"time"

	"kpireview/internal/domain/kpi"
	"kpireview/internal/domain/period"
	"kpireview/internal/domain/review"
	"kpireview/internal/domain/staff"
)

// Inputs is an indexed view of the collections a score depends on.
// KPIs must include removed KPIs.
type Inputs struct {
	Profiles map[string]staff.Profile
	KPIs     map[string]kpi.KPI
	Items    []review.Item
}

func NewInputs(profiles []staff.Profile, kpis []kpi.KPI, items []review.Item) Inputs {
	return Inputs{Profiles: staff.Index(profiles), KPIs: kpi.Index(kpis), Items: items}
}

// Compute returns round(100*earned/possible) over the staff member's items in
// p, or 0 when nothing is possible or the profile is missing, unapproved or
// not reviewable.
func Compute(in Inputs, staffID string, p period.Period) int {
	b := breakdown(in, staffID, p, in.Items)
	return b.Score
}

type Row struct {
	ItemID     string    `json:"itemId"`
	KPIID      string    `json:"kpiId"`
	Title      string    `json:"title"`
	Floor      string    `json:"floor,omitempty"`
	Weight     int       `json:"weight"`
	Met        bool      `json:"met"`
	Earned     int       `json:"earned"`
	Removed    bool      `json:"removed"`
	Notes      string    `json:"notes,omitempty"`
	Plan       string    `json:"plan,omitempty"`
	FileURL    string    `json:"fileUrl,omitempty"`
	ReviewedAt time.Time `json:"reviewedAt"`
}

type Breakdown struct {
	StaffID  string        `json:"staffId"`
	Period   period.Period `json:"period"`
	Rows     []Row         `json:"rows"`
	Earned   int           `json:"earned"`
	Possible int           `json:"possible"`
	Score    int           `json:"score"`
}

func breakdown(in Inputs, staffID string, p period.Period, items []review.Item) Breakdown {
	b := Breakdown{StaffID: staffID, Period: p, Rows: []Row{}}
	prof, ok := in.Profiles[staffID]
	if !ok || !prof.Eligible() {
		return b
	}
	for _, it := range items {
		if it.StaffID != staffID || !p.Contains(it.ReviewedAt) {
			continue
		}
		row, ok := resolve(in.KPIs, it)
		if !ok {
			continue
		}
		b.Possible += row.Weight
		b.Earned += row.Earned
		b.Rows = append(b.Rows, row)
	}
	sort.SliceStable(b.Rows, func(i, j int) bool {
		if b.Rows[i].Floor != b.Rows[j].Floor {
			return b.Rows[i].Floor < b.Rows[j].Floor
		}
		return b.Rows[i].Title < b.Rows[j].Title
	})
	b.Score = percent(b.Earned, b.Possible)
	return b
}

// resolve finds the weight for an item: the KPI's current weight, or the
// weight recorded on the item when the KPI row no longer exists.
func resolve(kpis map[string]kpi.KPI, it review.Item) (Row, bool) {
	row := Row{
		ItemID:     it.ID,
		KPIID:      it.KPIID,
		Met:        it.Met,
		Notes:      it.Notes,
		Plan:       it.Plan,
		FileURL:    it.FileURL,
		ReviewedAt: it.ReviewedAt,
	}
	if k, ok := kpis[it.KPIID]; ok {
		row.Title, row.Floor, row.Weight, row.Removed = k.Title, k.Floor, k.Weight, k.Removed
	} else {
		row.Weight, row.Removed = it.KPIWeight, true
	}
	if row.Weight <= 0 {
		return Row{}, false
	}
	if it.Met {
		row.Earned = row.Weight
	}
	return row, true
}

func percent(earned, possible int) int {
	if possible <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(earned) / float64(possible)))
}
