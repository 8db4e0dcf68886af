package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// NotEntitledSentinel is the persisted value of LeaveBalance.Available for
// employment types without paid-leave entitlement. It distinguishes
// "explicitly no entitlement" from "entitled but balance currently zero".
// Consume and refund never modify a sentinel-valued Available.
const NotEntitledSentinel = -1

// LeaveBalance is the per-employee leave ledger row: units accrued and
// available, units taken, and who last touched it.
type LeaveBalance struct {
	EmployeeID   string    `json:"employeeId"`
	EmployeeName string    `json:"employeeName,omitempty"`
	Available    int       `json:"availableLeaves"`
	Taken        int       `json:"takenLeaves"`
	UpdatedBy    string    `json:"updatedBy,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Entitled reports whether the employee accrues paid leave.
func (b *LeaveBalance) Entitled() bool { return b.Available >= 0 }

// Balance is available minus taken, floored at zero. Non-entitled employees
// always read zero: all their leave is implicitly unpaid.
func (b *LeaveBalance) Balance() int {
	if !b.Entitled() {
		return 0
	}
	if bal := b.Available - b.Taken; bal > 0 {
		return bal
	}
	return 0
}

// CarryForwardSnapshot holds the leave-day balance computed at a month end,
// propagated as the next month's accrual baseline. One row per employee,
// overwritten on each recomputation.
type CarryForwardSnapshot struct {
	EmployeeID string    `json:"employeeId"`
	Days       int       `json:"days"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// HoursToLeaveDays converts leave hours to whole leave days, rounding half
// away from zero. This is the single conversion point; the historical system
// rounded inconsistently (round in some call sites, ceil in others) and the
// round rule is the documented policy here.
func HoursToLeaveDays(hours decimal.Decimal) int {
	return int(hours.Div(FullDayHours).Round(0).IntPart())
}

// LeaveBalanceRepository persists leave ledger rows, keyed by employee.
type LeaveBalanceRepository interface {
	Get(ctx context.Context, employeeID string) (*LeaveBalance, error)
	ListByEmployeeIDs(ctx context.Context, employeeIDs []string) ([]*LeaveBalance, error)
	Save(ctx context.Context, balance *LeaveBalance) error
}

// CarryForwardRepository persists month-end carry-forward snapshots.
type CarryForwardRepository interface {
	Get(ctx context.Context, employeeID string) (*CarryForwardSnapshot, error)
	Save(ctx context.Context, snapshot *CarryForwardSnapshot) error
}
