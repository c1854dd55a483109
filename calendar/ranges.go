package calendar

import (
	"slices"
)

// =============================================================================
// RANGE - Inclusive span of calendar days
// =============================================================================

// Range is the inclusive span [Start, End].
type Range struct {
	Start Date `json:"startDate"`
	End   Date `json:"endDate"`
}

// NewRange builds a range; it does not validate ordering.
func NewRange(start, end Date) Range { return Range{Start: start, End: end} }

// Valid reports whether both ends are set and Start <= End.
func (r Range) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.Start.BeforeOrEqual(r.End)
}

// Len returns the number of days in the range, 0 for an inverted range.
func (r Range) Len() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return DaysBetween(r.Start, r.End) + 1
}

// Days enumerates every date in the range.
func (r Range) Days() []Date {
	days := make([]Date, 0, r.Len())
	for current := r.Start; current.BeforeOrEqual(r.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (r Range) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// =============================================================================
// DAY SET - What a calendar toggles
// =============================================================================

// DaySet is an unordered set of dates.
type DaySet map[Date]struct{}

func NewDaySet(days ...Date) DaySet {
	s := make(DaySet, len(days))
	for _, d := range days {
		s.Add(d)
	}
	return s
}

func (s DaySet) Add(d Date)           { s[d] = struct{}{} }
func (s DaySet) Remove(d Date)        { delete(s, d) }
func (s DaySet) Has(d Date) bool      { _, ok := s[d]; return ok }
func (s DaySet) Len() int             { return len(s) }
func (s DaySet) Equal(o DaySet) bool  { return len(s) == len(o) && s.subsetOf(o) }

// Toggle flips membership of d and reports whether d is now selected.
func (s DaySet) Toggle(d Date) bool {
	if s.Has(d) {
		s.Remove(d)
		return false
	}
	s.Add(d)
	return true
}

// Sorted returns the dates in ascending order.
func (s DaySet) Sorted() []Date {
	days := make([]Date, 0, len(s))
	for d := range s {
		days = append(days, d)
	}
	slices.SortFunc(days, Date.Compare)
	return days
}

func (s DaySet) subsetOf(o DaySet) bool {
	for d := range s {
		if !o.Has(d) {
			return false
		}
	}
	return true
}

// =============================================================================
// CODEC - Day set <-> minimal ranges
// =============================================================================

// ToRanges merges a set of days into the minimal list of contiguous ranges,
// sorted by start. Output ranges are disjoint and never touch.
func ToRanges(days DaySet) []Range {
	return RangesOf(days.Sorted())
}

// RangesOf is ToRanges for a slice. Order does not matter and duplicates
// collapse, so any permutation of the same days gives the same ranges.
func RangesOf(days []Date) []Range {
	if len(days) == 0 {
		return []Range{}
	}

	sorted := slices.Clone(days)
	slices.SortFunc(sorted, Date.Compare)
	sorted = slices.Compact(sorted)

	ranges := make([]Range, 0, 1)
	current := Range{Start: sorted[0], End: sorted[0]}
	for _, d := range sorted[1:] {
		if DaysBetween(current.End, d) == 1 {
			current.End = d
			continue
		}
		ranges = append(ranges, current)
		current = Range{Start: d, End: d}
	}
	return append(ranges, current)
}

// ToDays expands ranges into the union of their days. Overlapping or
// unordered input simply unions; inverted ranges contribute nothing.
func ToDays(ranges []Range) DaySet {
	days := make(DaySet)
	for _, r := range ranges {
		for _, d := range r.Days() {
			days.Add(d)
		}
	}
	return days
}
