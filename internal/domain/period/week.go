package period

import "time"

// FirstMonday returns the start of week 1: the first Monday on or after Jan 1.
// With Sunday as weekday 0 the offset is (8 - weekday) mod 7, so a Monday
// Jan 1 opens week 1 itself and a Sunday Jan 1 pushes it to Jan 2.
func FirstMonday(year int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	offset := (8 - int(jan1.Weekday())) % 7
	return jan1.AddDate(0, 0, offset)
}

func WeekStart(year, week int, loc *time.Location) time.Time {
	return FirstMonday(year, loc).AddDate(0, 0, 7*(week-1))
}

// WeekOf returns the week-numbering year and week of t. Days before the first
// Monday of a year belong to the last week of the previous year.
func WeekOf(t time.Time) (int, int) {
	loc := t.Location()
	year := t.Year()
	first := FirstMonday(year, loc)
	if civilDays(first, t) < 0 {
		year--
		first = FirstMonday(year, loc)
	}
	return year, civilDays(first, t)/7 + 1
}

func WeeksInYear(year int, loc *time.Location) int {
	return civilDays(FirstMonday(year, loc), FirstMonday(year+1, loc)) / 7
}

// civilDays counts calendar days from a to b, ignoring clock time and DST shifts.
func civilDays(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
