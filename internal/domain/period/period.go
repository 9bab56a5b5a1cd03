package period

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindMonth Kind = "month"
	KindWeek  Kind = "week"
)

var ErrInvalidKey = errors.New("invalid period key")

// Period is a half-open time range [Start, End).
type Period struct {
	Kind  Kind      `json:"kind"`
	Year  int       `json:"year"`
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func Month(year int, month time.Month, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Period{
		Kind:  KindMonth,
		Year:  year,
		Index: int(month),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

func Week(year, week int, loc *time.Location) Period {
	start := WeekStart(year, week, loc)
	return Period{
		Kind:  KindWeek,
		Year:  year,
		Index: week,
		Start: start,
		End:   start.AddDate(0, 0, 7),
	}
}

func MonthOf(t time.Time) Period {
	return Month(t.Year(), t.Month(), t.Location())
}

func WeekContaining(t time.Time) Period {
	year, week := WeekOf(t)
	return Week(year, week, t.Location())
}

// Of returns the period of the given kind that contains t.
func Of(kind Kind, t time.Time) (Period, error) {
	switch kind {
	case KindMonth:
		return MonthOf(t), nil
	case KindWeek:
		return WeekContaining(t), nil
	}
	return Period{}, fmt.Errorf("unknown period kind %q", kind)
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

func (p Period) Key() string {
	if p.Kind == KindWeek {
		return fmt.Sprintf("%04d-W%02d", p.Year, p.Index)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Index)
}

func (p Period) String() string {
	return p.Key()
}

func (p Period) Previous() Period {
	loc := p.Start.Location()
	if p.Kind == KindWeek {
		return WeekContaining(p.Start.AddDate(0, 0, -1).In(loc))
	}
	prev := p.Start.AddDate(0, -1, 0)
	return Month(prev.Year(), prev.Month(), loc)
}

// Recent returns the n periods of the given kind ending with the one containing now, oldest first.
func Recent(kind Kind, now time.Time, n int) ([]Period, error) {
	if n <= 0 {
		return nil, nil
	}
	current, err := Of(kind, now)
	if err != nil {
		return nil, err
	}
	out := make([]Period, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = current
		current = current.Previous()
	}
	return out, nil
}

// Parse accepts "YYYY-MM" for months and "YYYY-Www" for weeks.
func Parse(key string, loc *time.Location) (Period, error) {
	key = strings.TrimSpace(key)
	if loc == nil {
		loc = time.UTC
	}
	if yearPart, weekPart, ok := strings.Cut(key, "-W"); ok {
		year, err := strconv.Atoi(yearPart)
		if err != nil || len(yearPart) != 4 {
			return Period{}, ErrInvalidKey
		}
		week, err := strconv.Atoi(weekPart)
		if err != nil || week < 1 || week > WeeksInYear(year, loc) {
			return Period{}, ErrInvalidKey
		}
		return Week(year, week, loc), nil
	}
	yearPart, monthPart, ok := strings.Cut(key, "-")
	if !ok || len(yearPart) != 4 {
		return Period{}, ErrInvalidKey
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return Period{}, ErrInvalidKey
	}
	month, err := strconv.Atoi(monthPart)
	if err != nil || month < 1 || month > 12 {
		return Period{}, ErrInvalidKey
	}
	return Month(year, time.Month(month), loc), nil
}
