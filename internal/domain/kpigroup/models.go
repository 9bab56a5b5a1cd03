package kpigroup

// Group is the set of KPI ids a director filed under one title.
type Group struct {
	Title      string   `json:"title"`
	DirectorID string   `json:"directorId"`
	KPIIDs     []string `json:"kpiIds"`
}
