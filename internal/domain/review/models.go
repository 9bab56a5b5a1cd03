package review

import (
	"time"

	"kpireview/internal/domain/period"
)

// Item is one KPI evaluation of one staff member.
type Item struct {
	ID         string    `json:"id"`
	StaffID    string    `json:"staffId"`
	KPIID      string    `json:"kpiId"`
	DirectorID string    `json:"directorId,omitempty"`
	Met        bool      `json:"met"`
	Notes      string    `json:"notes,omitempty"`
	Plan       string    `json:"plan,omitempty"`
	Score      int       `json:"score"`
	KPIWeight  int       `json:"kpiWeight"`
	ReviewedAt time.Time `json:"reviewedAt"`
	FileURL    string    `json:"fileUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Attachment is a buffered upload. Size is the declared size before buffering.
type Attachment struct {
	Name string
	Size int64
	Data []byte
}

// Submission is the reviewer-supplied part of a review item.
type Submission struct {
	DirectorID string
	Met        bool
	Notes      string
	Plan       string
	ReviewedAt time.Time
	File       *Attachment
}

type Filter struct {
	StaffID    string
	KPIID      string
	DirectorID string
	Period     *period.Period
}

func (f Filter) Match(it Item) bool {
	if f.StaffID != "" && it.StaffID != f.StaffID {
		return false
	}
	if f.KPIID != "" && it.KPIID != f.KPIID {
		return false
	}
	if f.DirectorID != "" && it.DirectorID != f.DirectorID {
		return false
	}
	if f.Period != nil && !f.Period.Contains(it.ReviewedAt) {
		return false
	}
	return true
}

// scoreFor applies the met rule: full weight when met, zero otherwise.
func scoreFor(met bool, weight int) int {
	if met {
		return weight
	}
	return 0
}
