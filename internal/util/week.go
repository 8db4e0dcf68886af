package util

import "time"

// Week is one Monday-to-Friday window of a reporting month. DaysInMonth holds
// only the subset of the five weekdays that actually fall inside the month, so
// a boundary week contributes only its in-month days to report totals.
type Week struct {
	Start       time.Time
	End         time.Time
	DaysInMonth []time.Time
}

// Contains reports whether d falls inside the week window [Start, End].
func (w Week) Contains(d time.Time) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// MondayOnOrBefore returns the Monday on or before d.
func MondayOnOrBefore(d time.Time) time.Time {
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// WeekWindowFor returns the Monday-start/Friday-end week window owning d.
func WeekWindowFor(d time.Time) (start, end time.Time) {
	start = MondayOnOrBefore(d)
	return start, start.AddDate(0, 0, 4)
}

// IsValidWeeklyAnchor reports whether d may anchor a weekly submission.
// Mondays always qualify. The first day of a month also qualifies even when it
// is not a Monday: an employment that starts mid-month must still anchor its
// leading partial week without retroactive Monday alignment. This is explicit
// policy, not a validation gap.
func IsValidWeeklyAnchor(d time.Time) bool {
	if d.Weekday() == time.Monday {
		return true
	}
	return d.Day() == 1
}

// BusinessDaysBetween counts weekdays (Monday through Friday) in [start, end]
// inclusive. Returns 0 when end precedes start.
func BusinessDaysBetween(start, end time.Time) int {
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

// WeeksOfMonth partitions [monthStart, monthEnd] into Monday-Friday weeks,
// beginning at the Monday on or before monthStart to capture a leading partial
// week and stepping by seven days until past monthEnd. The DaysInMonth sets of
// the result partition the month's weekdays exactly.
func WeeksOfMonth(monthStart, monthEnd time.Time) []Week {
	var weeks []Week
	for start := MondayOnOrBefore(monthStart); !start.After(monthEnd); start = start.AddDate(0, 0, 7) {
		end := start.AddDate(0, 0, 4)
		var days []time.Time
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !d.Before(monthStart) && !d.After(monthEnd) {
				days = append(days, d)
			}
		}
		weeks = append(weeks, Week{Start: start, End: end, DaysInMonth: days})
	}
	return weeks
}

// Date builds a UTC date with no time-of-day component.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the first and last day of d's month.
func MonthBounds(d time.Time) (start, end time.Time) {
	start = Date(d.Year(), d.Month(), 1)
	end = start.AddDate(0, 1, -1)
	return start, end
}

// MonthsBetween returns the number of whole calendar months from the month of
// a to the month of b, ignoring day-of-month. Negative when b's month precedes
// a's.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// Overlap clips [aStart, aEnd] to [bStart, bEnd]. ok is false when the ranges
// do not intersect.
func Overlap(aStart, aEnd, bStart, bEnd time.Time) (start, end time.Time, ok bool) {
	start = aStart
	if start.Before(bStart) {
		start = bStart
	}
	end = aEnd
	if end.After(bEnd) {
		end = bEnd
	}
	return start, end, !end.Before(start)
}
