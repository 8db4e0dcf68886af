package service

import (
	"context"
	"errors"
	"time"

	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/mulyahr/timesheet-backend/internal/util"
	"github.com/rs/zerolog/log"
)

// LeaveService owns the per-employee leave ledger: accrual initialization,
// consumption, refunds, and the month-end carry-forward recomputation.
//
// Accrual policy: the new-employee initializer seeds the balance once at
// joining (one unit per remaining month of the calendar year). From then on
// the month-end carry-forward recomputation is the authoritative baseline and
// overwrites the available units. The two formulas never run against the same
// month, which keeps the historical system's dueling variants from mixing.
type LeaveService struct {
	balances domain.LeaveBalanceRepository
	carry    domain.CarryForwardRepository
}

// NewLeaveService creates a new LeaveService.
func NewLeaveService(balances domain.LeaveBalanceRepository, carry domain.CarryForwardRepository) *LeaveService {
	return &LeaveService{balances: balances, carry: carry}
}

// Initialize seeds the leave balance for a new employee. Entitlement-bearing
// employment types get one unit per remaining month of the calendar year,
// joining month inclusive; all other types are persisted with the not-entitled
// sentinel. An existing row is returned untouched.
func (s *LeaveService) Initialize(ctx context.Context, employeeID, employeeName, employmentType string, joiningDate time.Time, updatedBy string) (*domain.LeaveBalance, error) {
	existing, err := s.balances.Get(ctx, employeeID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrLeaveBalanceNotFound) {
		return nil, err
	}

	available := domain.NotEntitledSentinel
	if domain.IsFullTimeType(employmentType) {
		available = 12 - int(joiningDate.Month()) + 1
	}
	balance := &domain.LeaveBalance{
		EmployeeID:   employeeID,
		EmployeeName: employeeName,
		Available:    available,
		Taken:        0,
		UpdatedBy:    updatedBy,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.balances.Save(ctx, balance); err != nil {
		return nil, err
	}
	log.Info().
		Str("employee_id", employeeID).
		Int("available", available).
		Msg("initialized leave balance")
	return balance, nil
}

// Consume records days of leave taken. Insufficient balance is not an error:
// the shortfall is reported as unpaid days, logged, and the submission
// proceeds. For non-entitled employees taken units still accumulate but the
// sentinel available value is left untouched, so every such day is unpaid.
// A missing ledger row is created lazily.
func (s *LeaveService) Consume(ctx context.Context, employeeID string, days int, fullEntitlement bool, actor string) (*domain.LeaveBalance, int, error) {
	if days <= 0 {
		balance, err := s.balances.Get(ctx, employeeID)
		if errors.Is(err, domain.ErrLeaveBalanceNotFound) {
			return nil, 0, nil
		}
		return balance, 0, err
	}

	balance, err := s.balances.Get(ctx, employeeID)
	if errors.Is(err, domain.ErrLeaveBalanceNotFound) {
		available := domain.NotEntitledSentinel
		if fullEntitlement {
			available = 0
		}
		balance = &domain.LeaveBalance{EmployeeID: employeeID, Available: available}
	} else if err != nil {
		return nil, 0, err
	}

	unpaid := 0
	balance.Taken += days
	if balance.Entitled() {
		if days > balance.Available {
			unpaid = days - balance.Available
		}
		balance.Available -= days
		if balance.Available < 0 {
			balance.Available = 0
		}
	} else {
		unpaid = days
	}
	balance.UpdatedBy = actor
	balance.UpdatedAt = time.Now().UTC()

	if err := s.balances.Save(ctx, balance); err != nil {
		return nil, 0, err
	}
	if unpaid > 0 {
		log.Warn().
			Str("employee_id", employeeID).
			Int("requested", days).
			Int("unpaid", unpaid).
			Msg("leave exceeds available balance, excess treated as unpaid")
	}
	return balance, unpaid, nil
}

// Refund returns cancelled leave days to the ledger: available grows and taken
// shrinks by the same amount, floored at zero. Refunds apply only to
// entitlement-bearing employees; for everyone else, and for employees with no
// ledger row, this is a no-op.
func (s *LeaveService) Refund(ctx context.Context, employeeID string, days int, actor string) (*domain.LeaveBalance, error) {
	if days <= 0 {
		return nil, nil
	}
	balance, err := s.balances.Get(ctx, employeeID)
	if errors.Is(err, domain.ErrLeaveBalanceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !balance.Entitled() {
		return balance, nil
	}

	balance.Available += days
	balance.Taken -= days
	if balance.Taken < 0 {
		balance.Taken = 0
	}
	balance.UpdatedBy = actor
	balance.UpdatedAt = time.Now().UTC()

	if err := s.balances.Save(ctx, balance); err != nil {
		return nil, err
	}
	log.Info().
		Str("employee_id", employeeID).
		Int("refunded", days).
		Msg("refunded cancelled leave days")
	return balance, nil
}

// CarryForwardBaseline computes the accrual baseline for the month starting at
// monthStart: full months elapsed from the joining month to the start of the
// prior month, minus units consumed through the end of the prior month,
// floored at zero, plus one unit when the employee is still employed at the
// current month's end.
func CarryForwardBaseline(joiningDate, monthStart, monthEnd time.Time, consumed int) int {
	if joiningDate.IsZero() || joiningDate.After(monthStart) {
		return 0
	}
	priorMonthStart := util.Date(monthStart.Year(), monthStart.Month(), 1).AddDate(0, -1, 0)
	accrued := util.MonthsBetween(joiningDate, priorMonthStart)
	if accrued < 0 {
		accrued = 0
	}
	baseline := accrued - consumed
	if baseline < 0 {
		baseline = 0
	}
	if !joiningDate.After(monthEnd) {
		baseline++
	}
	return baseline
}

// RecomputeMonth runs the month-end carry-forward recomputation for one
// employee: the baseline becomes the new available units, and the remaining
// balance is snapshotted into the carry-forward row for the next month. The
// snapshot is persisted once per month end, never re-derived on read.
// Non-entitled employees keep their sentinel and a zero snapshot.
func (s *LeaveService) RecomputeMonth(ctx context.Context, employeeID, employeeName, employmentType string, joiningDate, monthStart, monthEnd time.Time, updatedBy string) (*domain.LeaveBalance, error) {
	balance, err := s.balances.Get(ctx, employeeID)
	if errors.Is(err, domain.ErrLeaveBalanceNotFound) {
		balance = &domain.LeaveBalance{EmployeeID: employeeID, EmployeeName: employeeName, Available: domain.NotEntitledSentinel}
	} else if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if domain.IsFullTimeType(employmentType) {
		balance.Available = CarryForwardBaseline(joiningDate, monthStart, monthEnd, balance.Taken)
	} else {
		balance.Available = domain.NotEntitledSentinel
	}
	balance.EmployeeName = employeeName
	balance.UpdatedBy = updatedBy
	balance.UpdatedAt = now

	if err := s.balances.Save(ctx, balance); err != nil {
		return nil, err
	}
	if err := s.carry.Save(ctx, &domain.CarryForwardSnapshot{
		EmployeeID: employeeID,
		Days:       balance.Balance(),
		UpdatedAt:  now,
	}); err != nil {
		return nil, err
	}
	log.Info().
		Str("employee_id", employeeID).
		Int("available", balance.Available).
		Int("carry_forward", balance.Balance()).
		Msg("recomputed month-end leave carry-forward")
	return balance, nil
}

// Balance returns the employee's current ledger row.
func (s *LeaveService) Balance(ctx context.Context, employeeID string) (*domain.LeaveBalance, error) {
	return s.balances.Get(ctx, employeeID)
}

// Snapshot returns leave balances for many employees at once, for read-only
// reporting. Employees without a row are simply absent from the result.
func (s *LeaveService) Snapshot(ctx context.Context, employeeIDs []string) (map[string]*domain.LeaveBalance, error) {
	rows, err := s.balances.ListByEmployeeIDs(ctx, employeeIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.LeaveBalance, len(rows))
	for _, b := range rows {
		out[b.EmployeeID] = b
	}
	return out, nil
}
