package calendar

import "time"

// Week is seven consecutive days starting on a Monday.
type Week [7]Date

// WeeksInYear lays out the year as Monday-first weeks. The first week starts
// on the Monday on or before January 1 and the last week ends on the Sunday on
// or after December 31, so edge weeks carry days of the neighbouring years.
func WeeksInYear(year int) []Week {
	first := NewDate(year, time.January, 1)
	last := NewDate(year, time.December, 31)

	// Weekday: Sunday=0 ... Saturday=6; shift so Monday=0.
	offset := (int(first.Weekday()) + 6) % 7
	current := first.AddDays(-offset)

	var weeks []Week
	for current.BeforeOrEqual(last) {
		var w Week
		for i := range w {
			w[i] = current
			current = current.AddDays(1)
		}
		weeks = append(weeks, w)
	}
	return weeks
}

// Contains reports whether any day of the week falls in year.
func (w Week) Contains(year int) bool {
	for _, d := range w {
		if d.Year == year {
			return true
		}
	}
	return false
}
