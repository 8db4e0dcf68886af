package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mulyahr/timesheet-backend/internal/domain"
)

// LeaveRepo is the Postgres implementation of domain.LeaveBalanceRepository.
// One row per employee, written with an upsert so consume, refund, and
// recomputation all share a single save path.
type LeaveRepo struct {
	pool *pgxpool.Pool
}

// NewLeaveRepo creates a new LeaveRepo.
func NewLeaveRepo(pool *pgxpool.Pool) *LeaveRepo {
	return &LeaveRepo{pool: pool}
}

// Get returns the ledger row for one employee.
func (r *LeaveRepo) Get(ctx context.Context, employeeID string) (*domain.LeaveBalance, error) {
	db := conn(ctx, r.pool)
	var b domain.LeaveBalance
	err := db.QueryRow(ctx, `
		SELECT employee_id, COALESCE(employee_name, ''), available, taken, COALESCE(updated_by, ''), updated_at
		FROM leave_balance WHERE employee_id = $1`, employeeID,
	).Scan(&b.EmployeeID, &b.EmployeeName, &b.Available, &b.Taken, &b.UpdatedBy, &b.UpdatedAt)
	if err != nil {
		return nil, notFound(err, fmt.Errorf("%w: employee %s", domain.ErrLeaveBalanceNotFound, employeeID))
	}
	return &b, nil
}

// ListByEmployeeIDs returns the ledger rows for the given employees. Employees
// without a row are simply absent from the result.
func (r *LeaveRepo) ListByEmployeeIDs(ctx context.Context, employeeIDs []string) ([]*domain.LeaveBalance, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}
	db := conn(ctx, r.pool)
	rows, err := db.Query(ctx, `
		SELECT employee_id, COALESCE(employee_name, ''), available, taken, COALESCE(updated_by, ''), updated_at
		FROM leave_balance WHERE employee_id = ANY($1)`, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("list leave balances: %w", err)
	}
	defer rows.Close()

	var out []*domain.LeaveBalance
	for rows.Next() {
		var b domain.LeaveBalance
		if err := rows.Scan(&b.EmployeeID, &b.EmployeeName, &b.Available, &b.Taken, &b.UpdatedBy, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan leave balance: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// Save upserts the ledger row.
func (r *LeaveRepo) Save(ctx context.Context, balance *domain.LeaveBalance) error {
	db := conn(ctx, r.pool)
	_, err := db.Exec(ctx, `
		INSERT INTO leave_balance (employee_id, employee_name, available, taken, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (employee_id) DO UPDATE
		SET employee_name = EXCLUDED.employee_name,
			available = EXCLUDED.available,
			taken = EXCLUDED.taken,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`,
		balance.EmployeeID, nullable(balance.EmployeeName), balance.Available,
		balance.Taken, nullable(balance.UpdatedBy), balance.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save leave balance: %w", err)
	}
	return nil
}

var _ domain.LeaveBalanceRepository = (*LeaveRepo)(nil)
