package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical date format used for entry dates throughout the
// system. Entry dates carry no time-of-day component.
const DateLayout = "2006-01-02"

// FullDayHours is the number of hours that counts as one full working or leave
// day. A non-working entry of exactly this many hours is treated as one leave
// day by the ledger.
var FullDayHours = decimal.NewFromInt(8)

// Entry is a single dated hour record, either work or leave depending on which
// collection it lives in. Entries are value types: an update replaces the whole
// entry for a date, except through the explicit field-level merge.
type Entry struct {
	Date        time.Time       `json:"date"`
	Project     string          `json:"project,omitempty"`
	Hours       decimal.Decimal `json:"hours"`
	Description string          `json:"description,omitempty"`
}

// DateKey returns the entry date in DateLayout, used as the merge key.
func (e Entry) DateKey() string { return e.Date.Format(DateLayout) }

// EntryPatch is a partial entry used by the field-level merge endpoint. Nil
// fields leave the existing entry's value untouched.
type EntryPatch struct {
	Date        time.Time        `json:"date"`
	Project     *string          `json:"project,omitempty"`
	Hours       *decimal.Decimal `json:"hours,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// EntryList is an ordered collection of entries for one week. Order is
// insertion order, never sorted.
type EntryList []Entry

// MergeByDate merges incoming entries into the list: an incoming entry replaces
// any existing entry sharing its date, and entries for new dates are appended.
func (l EntryList) MergeByDate(incoming []Entry) EntryList {
	if len(incoming) == 0 {
		return l
	}
	dates := make(map[string]struct{}, len(incoming))
	for _, e := range incoming {
		dates[e.DateKey()] = struct{}{}
	}
	merged := l.RemoveDates(dates)
	return append(merged, incoming...)
}

// MergeByField applies partial updates: for a patch matching an existing
// entry's date, only the patch's non-nil fields overwrite that entry; patches
// for unmatched dates are appended as new entries.
func (l EntryList) MergeByField(patches []EntryPatch) EntryList {
	merged := make(EntryList, len(l))
	copy(merged, l)
	for _, p := range patches {
		key := p.Date.Format(DateLayout)
		matched := false
		for i := range merged {
			if merged[i].DateKey() != key {
				continue
			}
			if p.Project != nil {
				merged[i].Project = *p.Project
			}
			if p.Hours != nil {
				merged[i].Hours = *p.Hours
			}
			if p.Description != nil {
				merged[i].Description = *p.Description
			}
			matched = true
			break
		}
		if !matched {
			e := Entry{Date: p.Date}
			if p.Project != nil {
				e.Project = *p.Project
			}
			if p.Hours != nil {
				e.Hours = *p.Hours
			}
			if p.Description != nil {
				e.Description = *p.Description
			}
			merged = append(merged, e)
		}
	}
	return merged
}

// CancelledLeaves returns the full-day entries whose dates appear in
// newWorkingDates. Those are leave days implicitly cancelled by the employee
// recording work on the same date.
func (l EntryList) CancelledLeaves(newWorkingDates map[string]struct{}) []Entry {
	var cancelled []Entry
	for _, e := range l {
		if _, ok := newWorkingDates[e.DateKey()]; ok && e.Hours.Equal(FullDayHours) {
			cancelled = append(cancelled, e)
		}
	}
	return cancelled
}

// RemoveDates returns a copy of the list without entries for the given dates.
func (l EntryList) RemoveDates(dates map[string]struct{}) EntryList {
	kept := make(EntryList, 0, len(l))
	for _, e := range l {
		if _, ok := dates[e.DateKey()]; !ok {
			kept = append(kept, e)
		}
	}
	return kept
}

// DateSet returns the set of date keys covered by the given entries.
func DateSet(entries []Entry) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[e.DateKey()] = struct{}{}
	}
	return set
}

// TotalHours sums the hours of every entry in the list.
func (l EntryList) TotalHours() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l {
		total = total.Add(e.Hours)
	}
	return total
}

// HoursWithin sums the hours of entries whose dates fall inside [from, to].
func (l EntryList) HoursWithin(from, to time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, e := range l {
		if !e.Date.Before(from) && !e.Date.After(to) {
			total = total.Add(e.Hours)
		}
	}
	return total
}

// Within returns the entries whose dates fall inside [from, to], in order.
func (l EntryList) Within(from, to time.Time) EntryList {
	kept := make(EntryList, 0, len(l))
	for _, e := range l {
		if !e.Date.Before(from) && !e.Date.After(to) {
			kept = append(kept, e)
		}
	}
	return kept
}

// ValidateEntriesWithin collects an OutOfRangeEntryError-style field error for
// every entry whose date lies outside [weekStart, weekEnd], and rejects
// negative hours. The field parameter names the request collection being
// validated.
func ValidateEntriesWithin(v *ValidationErrors, field string, entries []Entry, weekStart, weekEnd time.Time) {
	for _, e := range entries {
		if e.Date.Before(weekStart) || e.Date.After(weekEnd) {
			oor := &OutOfRangeEntryError{
				Date:      e.DateKey(),
				WeekStart: weekStart.Format(DateLayout),
				WeekEnd:   weekEnd.Format(DateLayout),
			}
			v.Add(field, "%s", oor.Error())
		}
		if e.Hours.IsNegative() {
			v.Add(field, "entry %s has negative hours", e.DateKey())
		}
	}
}
