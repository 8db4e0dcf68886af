package service

import (
	"time"

	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/mulyahr/timesheet-backend/internal/util"
	"github.com/shopspring/decimal"
)

// TargetHours returns the expected business-hours target for a span of
// business days, at eight hours per day.
func TargetHours(businessDays int) decimal.Decimal {
	return domain.FullDayHours.Mul(decimal.NewFromInt(int64(businessDays)))
}

// EffectiveHours returns the utilization numerator. Leave hours count toward
// the target only for employment types with full paid-leave entitlement; for
// everyone else utilization reflects actual work alone.
func EffectiveHours(workingHours, leaveHours decimal.Decimal, fullEntitlement bool) decimal.Decimal {
	if fullEntitlement {
		return workingHours.Add(leaveHours)
	}
	return workingHours
}

// Percentage returns effective over target as a percentage. A zero target
// yields zero. There is no upper clamp: overtime legitimately exceeds 100.
func Percentage(effective, target decimal.Decimal) float64 {
	if target.IsZero() {
		return 0
	}
	pct, _ := effective.Div(target).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// WeekPercentage computes the whole-week utilization for a record against the
// Monday-Friday target of its own week. This is the basis used at submission
// time.
func WeekPercentage(ts *domain.Timesheet, fullEntitlement bool) float64 {
	target := TargetHours(util.BusinessDaysBetween(ts.WeekStart, ts.WeekEnd))
	effective := EffectiveHours(ts.Working.TotalHours(), ts.NonWorking.TotalHours(), fullEntitlement)
	return Percentage(effective, target)
}

// WeekPercentageWithUnpaid is WeekPercentage with leave days the ledger could
// not cover removed from the numerator. Excess leave never blocks a
// submission, but it does not count toward the target either.
func WeekPercentageWithUnpaid(ts *domain.Timesheet, fullEntitlement bool, unpaidDays int) float64 {
	target := TargetHours(util.BusinessDaysBetween(ts.WeekStart, ts.WeekEnd))
	effective := EffectiveHours(ts.Working.TotalHours(), ts.NonWorking.TotalHours(), fullEntitlement)
	if fullEntitlement && unpaidDays > 0 {
		effective = effective.Sub(domain.FullDayHours.Mul(decimal.NewFromInt(int64(unpaidDays))))
		if effective.IsNegative() {
			effective = decimal.Zero
		}
	}
	return Percentage(effective, target)
}

// ProportionalPercentage computes utilization for the part of a record's week
// that overlaps [monthStart, monthEnd]. Only in-month days count toward the
// target and toward the worked and leave hours, so a week straddling a month
// boundary is judged against a clipped target rather than a full one.
func ProportionalPercentage(ts *domain.Timesheet, monthStart, monthEnd time.Time, fullEntitlement bool) float64 {
	start, end, ok := util.Overlap(ts.WeekStart, ts.WeekEnd, monthStart, monthEnd)
	if !ok {
		return 0
	}
	target := TargetHours(util.BusinessDaysBetween(start, end))
	effective := EffectiveHours(ts.Working.HoursWithin(start, end), ts.NonWorking.HoursWithin(start, end), fullEntitlement)
	return Percentage(effective, target)
}
