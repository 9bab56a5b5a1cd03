package kpi

import "time"

type KPI struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Weight      int       `json:"weight"`
	Floor       string    `json:"floor"`
	Removed     bool      `json:"removed"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Details struct {
	Title       string
	Description string
	Weight      int
	Floor       string
}

// Index maps ids to KPIs, removed ones included.
func Index(kpis []KPI) map[string]KPI {
	out := make(map[string]KPI, len(kpis))
	for _, k := range kpis {
		out[k.ID] = k
	}
	return out
}

// Active filters out soft-deleted KPIs.
func Active(kpis []KPI) []KPI {
	out := make([]KPI, 0, len(kpis))
	for _, k := range kpis {
		if !k.Removed {
			out = append(out, k)
		}
	}
	return out
}
