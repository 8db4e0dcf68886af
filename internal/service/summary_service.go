package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/mulyahr/timesheet-backend/internal/util"
	"github.com/rs/zerolog/log"
)

// SummaryService builds the reporting views: the cross-employee monthly
// utilization report and the per-employee month drill-down. Apart from the
// month-end recomputation it never mutates timesheets or the leave ledger.
type SummaryService struct {
	timesheets domain.TimesheetRepository
	leave      *LeaveService
	directory  domain.DirectoryClient
	placements domain.PlacementClient
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(timesheets domain.TimesheetRepository, leave *LeaveService, directory domain.DirectoryClient, placements domain.PlacementClient) *SummaryService {
	return &SummaryService{timesheets: timesheets, leave: leave, directory: directory, placements: placements}
}

// WeekColumn is one week's cell in the monthly report. Hours cover only the
// days of the week that fall inside the reporting month.
type WeekColumn struct {
	WeekStart string        `json:"weekStart"`
	WeekEnd   string        `json:"weekEnd"`
	Hours     float64       `json:"hours"`
	Status    domain.Status `json:"status"`
}

// EmployeeMonthSummary is one employee's row in the monthly report.
type EmployeeMonthSummary struct {
	EmployeeID      string        `json:"employeeId"`
	EmployeeName    string        `json:"employeeName,omitempty"`
	Weeks           []WeekColumn  `json:"weeks"`
	TotalHours      float64       `json:"totalHours"`
	Status          domain.Status `json:"status"`
	AvailableLeaves int           `json:"availableLeaves"`
	TakenLeaves     int           `json:"takenLeaves"`
}

// MonthlyReport builds the utilization report for every employee with at least
// one record whose week starts inside the extended month window. The window is
// extended back to the Monday on or before the month's first day so a leading
// partial week is counted in the month that contains its weekdays.
//
// The row status is the least-progressed status among the employee's weeks:
// one draft week keeps the whole month at DRAFT regardless of how many weeks
// are already approved. Weeks without a record read as NO_TIMESHEET and do not
// influence the rollup.
func (s *SummaryService) MonthlyReport(ctx context.Context, monthStart time.Time) ([]EmployeeMonthSummary, error) {
	if monthStart.Day() != 1 {
		var v domain.ValidationErrors
		v.Add("month", "must be the first day of the month")
		return nil, &v
	}
	monthEnd := monthStart.AddDate(0, 1, -1)
	extendedStart := util.MondayOnOrBefore(monthStart)

	records, err := s.timesheets.ListByWeekStartBetween(ctx, extendedStart, monthEnd)
	if err != nil {
		return nil, err
	}

	byEmployee := make(map[string][]*domain.Timesheet)
	for _, ts := range records {
		byEmployee[ts.EmployeeID] = append(byEmployee[ts.EmployeeID], ts)
	}
	employeeIDs := make([]string, 0, len(byEmployee))
	for id := range byEmployee {
		employeeIDs = append(employeeIDs, id)
	}
	sort.Strings(employeeIDs)

	balances, err := s.leave.Snapshot(ctx, employeeIDs)
	if err != nil {
		// The report is still useful without leave columns.
		log.Warn().Err(err).Msg("leave snapshot failed, reporting without leave columns")
		balances = map[string]*domain.LeaveBalance{}
	}

	weeks := util.WeeksOfMonth(monthStart, monthEnd)
	summaries := make([]EmployeeMonthSummary, 0, len(employeeIDs))
	for _, employeeID := range employeeIDs {
		summaries = append(summaries, s.summarize(ctx, employeeID, byEmployee[employeeID], weeks, balances[employeeID]))
	}
	return summaries, nil
}

func (s *SummaryService) summarize(ctx context.Context, employeeID string, records []*domain.Timesheet, weeks []util.Week, balance *domain.LeaveBalance) EmployeeMonthSummary {
	byWeekStart := make(map[string]*domain.Timesheet, len(records))
	for _, ts := range records {
		byWeekStart[ts.WeekStart.Format(domain.DateLayout)] = ts
	}

	// A missing ledger row is created lazily on first consumption, so absence
	// does not mean "not entitled"; only an explicit sentinel row does.
	entitled := balance == nil || balance.Entitled()

	summary := EmployeeMonthSummary{
		EmployeeID:      employeeID,
		Status:          domain.StatusNoTimesheet,
		AvailableLeaves: domain.NotEntitledSentinel,
	}
	if balance != nil {
		summary.EmployeeName = balance.EmployeeName
		summary.AvailableLeaves = balance.Available
		summary.TakenLeaves = balance.Taken
	}
	if summary.EmployeeName == "" {
		if emp, err := s.directory.GetEmployeeByID(ctx, employeeID); err == nil {
			summary.EmployeeName = emp.Name
		}
	}

	total := 0.0
	bestPriority := domain.StatusPriority(domain.StatusNoTimesheet)
	for _, week := range weeks {
		col := WeekColumn{
			WeekStart: week.Start.Format(domain.DateLayout),
			WeekEnd:   week.End.Format(domain.DateLayout),
			Status:    domain.StatusNoTimesheet,
		}
		if ts, ok := byWeekStart[col.WeekStart]; ok && len(week.DaysInMonth) > 0 {
			from := week.DaysInMonth[0]
			to := week.DaysInMonth[len(week.DaysInMonth)-1]
			hours := ts.Working.HoursWithin(from, to)
			// Paid leave reads as worked time for full-time employees unless
			// the ledger explicitly marks them not entitled.
			if entitled && domain.IsFullTimeType(ts.EmploymentType) {
				hours = hours.Add(ts.NonWorking.HoursWithin(from, to))
			}
			col.Hours, _ = hours.Float64()
			col.Status = ts.Status
			if p := domain.StatusPriority(ts.Status); p < bestPriority {
				bestPriority = p
				summary.Status = ts.Status
			}
		}
		total += col.Hours
		summary.Weeks = append(summary.Weeks, col)
	}
	summary.TotalHours = math.Round(total*100) / 100
	return summary
}

// MonthRecordView is one record in the per-employee month view, with its
// entries clipped to the month and its utilization computed proportionally
// against the in-month business days only.
type MonthRecordView struct {
	TimesheetID  string           `json:"timesheetId"`
	WeekStart    string           `json:"weekStart"`
	WeekEnd      string           `json:"weekEnd"`
	Status       domain.Status    `json:"status"`
	Working      domain.EntryList `json:"workingEntries"`
	NonWorking   domain.EntryList `json:"nonWorkingEntries"`
	WorkingHours float64          `json:"workingHours"`
	LeaveHours   float64          `json:"leaveHours"`
	Percentage   float64          `json:"percentageOfTarget"`
}

// EmployeeMonthView is the per-employee month drill-down.
type EmployeeMonthView struct {
	EmployeeID        string            `json:"employeeId"`
	MonthStart        string            `json:"monthStart"`
	MonthEnd          string            `json:"monthEnd"`
	Timesheets        []MonthRecordView `json:"timesheets"`
	TotalWorkingHours float64           `json:"totalWorkingHours"`
	TotalLeaveHours   float64           `json:"totalLeaveHours"`
}

// EmployeeMonth returns every record of the employee overlapping the month,
// clipped to the month's bounds. A week straddling a month boundary shows only
// its in-month entries here; the full week remains visible on the record
// itself.
func (s *SummaryService) EmployeeMonth(ctx context.Context, employeeID string, monthStart time.Time) (*EmployeeMonthView, error) {
	if monthStart.Day() != 1 {
		var v domain.ValidationErrors
		v.Add("month", "must be the first day of the month")
		return nil, &v
	}
	monthEnd := monthStart.AddDate(0, 1, -1)

	records, err := s.timesheets.ListOverlappingMonth(ctx, employeeID, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	view := &EmployeeMonthView{
		EmployeeID: employeeID,
		MonthStart: monthStart.Format(domain.DateLayout),
		MonthEnd:   monthEnd.Format(domain.DateLayout),
	}
	totalWork := 0.0
	totalLeave := 0.0
	for _, ts := range records {
		from, to, ok := util.Overlap(ts.WeekStart, ts.WeekEnd, monthStart, monthEnd)
		if !ok {
			continue
		}
		fullEntitlement := domain.IsFullTimeType(ts.EmploymentType)
		work, _ := ts.Working.HoursWithin(from, to).Float64()
		leave, _ := ts.NonWorking.HoursWithin(from, to).Float64()
		view.Timesheets = append(view.Timesheets, MonthRecordView{
			TimesheetID:  ts.ID,
			WeekStart:    ts.WeekStart.Format(domain.DateLayout),
			WeekEnd:      ts.WeekEnd.Format(domain.DateLayout),
			Status:       ts.Status,
			Working:      ts.Working.Within(from, to),
			NonWorking:   ts.NonWorking.Within(from, to),
			WorkingHours: work,
			LeaveHours:   leave,
			Percentage:   ProportionalPercentage(ts, monthStart, monthEnd, fullEntitlement),
		})
		totalWork += work
		totalLeave += leave
	}
	view.TotalWorkingHours = math.Round(totalWork*100) / 100
	view.TotalLeaveHours = math.Round(totalLeave*100) / 100
	return view, nil
}

// RecomputeMonthEnd runs the month-end leave recomputation for every employee
// with a record in the month. Each employee's joining date and employment type
// come from their placement; when the placement cannot be resolved the
// employment type stored on the employee's records stands in and the accrual
// window is anchored at the month itself. Intended to be invoked by an
// operator at month close.
func (s *SummaryService) RecomputeMonthEnd(ctx context.Context, monthStart time.Time, actor string) (int, error) {
	if monthStart.Day() != 1 {
		var v domain.ValidationErrors
		v.Add("month", "must be the first day of the month")
		return 0, &v
	}
	monthEnd := monthStart.AddDate(0, 1, -1)
	extendedStart := util.MondayOnOrBefore(monthStart)

	records, err := s.timesheets.ListByWeekStartBetween(ctx, extendedStart, monthEnd)
	if err != nil {
		return 0, err
	}

	recordTypes := make(map[string]string)
	for _, ts := range records {
		if _, ok := recordTypes[ts.EmployeeID]; !ok {
			recordTypes[ts.EmployeeID] = ts.EmploymentType
		}
	}

	ids := make([]string, 0, len(recordTypes))
	for id := range recordTypes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	balances, err := s.leave.Snapshot(ctx, ids)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, id := range ids {
		name := ""
		if b, ok := balances[id]; ok {
			name = b.EmployeeName
		}
		if name == "" {
			if emp, err := s.directory.GetEmployeeByID(ctx, id); err == nil {
				name = emp.Name
			}
		}

		class := classifyEmployee(ctx, s.directory, s.placements, id)
		employmentType := class.EmploymentType
		if strings.EqualFold(employmentType, "Unknown") {
			employmentType = recordTypes[id]
		}
		joining := class.JoiningDate
		if joining.IsZero() {
			// Without a resolvable placement the accrual window is anchored
			// at the month itself, yielding the single current-month unit.
			joining = monthStart
		}

		if _, err := s.leave.RecomputeMonth(ctx, id, name, employmentType, joining, monthStart, monthEnd, actor); err != nil {
			log.Error().Err(err).Str("employee_id", id).Msg("month-end leave recomputation failed")
			continue
		}
		n++
	}
	return n, nil
}
