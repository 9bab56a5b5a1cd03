package shared

import (
	"strconv"
	"time"

	"kpireview/internal/domain/period"
)

// PeriodParam reads ?period= (a month or week key); when absent it defaults
// to the period of ?kind= containing now.
func (v *Validator) PeriodParam(key, kind string, now time.Time, loc *time.Location) (period.Period, bool) {
	if key != "" {
		p, err := period.Parse(key, loc)
		if err != nil {
			v.Add("period", "must look like 2025-03 or 2025-W07")
			return period.Period{}, false
		}
		return p, true
	}
	k := period.KindMonth
	if kind != "" {
		k = period.Kind(kind)
	}
	p, err := period.Of(k, now.In(loc))
	if err != nil {
		v.Add("kind", "must be month or week")
		return period.Period{}, false
	}
	return p, true
}

// IntParam parses an optional integer query value within [lo, hi].
func (v *Validator) IntParam(field, raw string, fallback, lo, hi int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		v.Add(field, "must be an integer between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi))
		return fallback
	}
	return n
}
