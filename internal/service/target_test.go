package service

import (
	"testing"

	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/mulyahr/timesheet-backend/internal/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func weekRecord(working, leave []domain.Entry) *domain.Timesheet {
	return &domain.Timesheet{
		WeekStart:  util.Date(2024, 6, 3),
		WeekEnd:    util.Date(2024, 6, 7),
		Working:    working,
		NonWorking: leave,
	}
}

func hours(d, h int) domain.Entry {
	return domain.Entry{Date: util.Date(2024, 6, d), Hours: decimal.NewFromInt(int64(h))}
}

func TestTargetHours(t *testing.T) {
	assert.Equal(t, "40", TargetHours(5).String())
	assert.Equal(t, "8", TargetHours(1).String())
	assert.Equal(t, "0", TargetHours(0).String())
}

func TestPercentage_ZeroTargetYieldsZero(t *testing.T) {
	assert.Equal(t, 0.0, Percentage(decimal.NewFromInt(8), decimal.Zero))
}

func TestPercentage_NoUpperClamp(t *testing.T) {
	// 48 effective over a 40-hour target: overtime reads above 100
	pct := Percentage(decimal.NewFromInt(48), decimal.NewFromInt(40))
	assert.InDelta(t, 120.0, pct, 0.001)
}

func TestWeekPercentage_FullEntitlementCountsLeave(t *testing.T) {
	ts := weekRecord(
		[]domain.Entry{hours(3, 8), hours(4, 8), hours(5, 8), hours(6, 8)},
		[]domain.Entry{hours(7, 8)},
	)

	assert.InDelta(t, 100.0, WeekPercentage(ts, true), 0.001)
	// Without entitlement the leave day does not count toward the target
	assert.InDelta(t, 80.0, WeekPercentage(ts, false), 0.001)
}

func TestWeekPercentageWithUnpaid_SubtractsUncoveredLeave(t *testing.T) {
	// Four work days plus one leave day the ledger could not cover: the
	// uncovered day drops out of the numerator.
	ts := weekRecord(
		[]domain.Entry{hours(3, 8), hours(4, 8), hours(5, 8), hours(6, 8)},
		[]domain.Entry{hours(7, 8)},
	)

	assert.InDelta(t, 80.0, WeekPercentageWithUnpaid(ts, true, 1), 0.001)
	// No unpaid days behaves exactly like WeekPercentage
	assert.InDelta(t, 100.0, WeekPercentageWithUnpaid(ts, true, 0), 0.001)
	// Without entitlement leave never counted, so there is nothing to subtract
	assert.InDelta(t, 80.0, WeekPercentageWithUnpaid(ts, false, 1), 0.001)
}

func TestWeekPercentageWithUnpaid_FloorsAtZero(t *testing.T) {
	ts := weekRecord(nil, []domain.Entry{hours(3, 8)})
	assert.Equal(t, 0.0, WeekPercentageWithUnpaid(ts, true, 2))
}

func TestWeekPercentage_SingleDayRecord(t *testing.T) {
	ts := &domain.Timesheet{
		WeekStart: util.Date(2024, 6, 5),
		WeekEnd:   util.Date(2024, 6, 5),
		Working:   []domain.Entry{hours(5, 6)},
	}
	assert.InDelta(t, 75.0, WeekPercentage(ts, true), 0.001)
}

func TestProportionalPercentage_ClipsToMonth(t *testing.T) {
	// Week of May 27 to May 31 2024 is fully inside May; judged against June
	// it contributes nothing.
	ts := &domain.Timesheet{
		WeekStart: util.Date(2024, 5, 27),
		WeekEnd:   util.Date(2024, 5, 31),
		Working: []domain.Entry{
			{Date: util.Date(2024, 5, 30), Hours: decimal.NewFromInt(8)},
			{Date: util.Date(2024, 5, 31), Hours: decimal.NewFromInt(8)},
		},
	}

	// Within May the clipped target is the full week
	pct := ProportionalPercentage(ts, util.Date(2024, 5, 1), util.Date(2024, 5, 31), true)
	assert.InDelta(t, 40.0, pct, 0.001)

	// No overlap with June
	assert.Equal(t, 0.0, ProportionalPercentage(ts, util.Date(2024, 6, 1), util.Date(2024, 6, 30), true))
}

func TestProportionalPercentage_BoundaryWeek(t *testing.T) {
	// Week of July 29 to August 2 2024: three July days, two August days.
	ts := &domain.Timesheet{
		WeekStart: util.Date(2024, 7, 29),
		WeekEnd:   util.Date(2024, 8, 2),
		Working: []domain.Entry{
			{Date: util.Date(2024, 7, 29), Hours: decimal.NewFromInt(8)},
			{Date: util.Date(2024, 7, 30), Hours: decimal.NewFromInt(8)},
			{Date: util.Date(2024, 7, 31), Hours: decimal.NewFromInt(4)},
			{Date: util.Date(2024, 8, 1), Hours: decimal.NewFromInt(8)},
		},
	}

	// July overlap: 20 of 24 target hours
	julyPct := ProportionalPercentage(ts, util.Date(2024, 7, 1), util.Date(2024, 7, 31), true)
	assert.InDelta(t, 100.0*20.0/24.0, julyPct, 0.001)

	// August overlap: 8 of 16 target hours
	augPct := ProportionalPercentage(ts, util.Date(2024, 8, 1), util.Date(2024, 8, 31), true)
	assert.InDelta(t, 50.0, augPct, 0.001)
}
