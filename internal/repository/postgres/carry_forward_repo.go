package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mulyahr/timesheet-backend/internal/domain"
)

// CarryForwardRepo is the Postgres implementation of
// domain.CarryForwardRepository. One snapshot row per employee, overwritten at
// each month-end recomputation.
type CarryForwardRepo struct {
	pool *pgxpool.Pool
}

// NewCarryForwardRepo creates a new CarryForwardRepo.
func NewCarryForwardRepo(pool *pgxpool.Pool) *CarryForwardRepo {
	return &CarryForwardRepo{pool: pool}
}

// Get returns the employee's carry-forward snapshot.
func (r *CarryForwardRepo) Get(ctx context.Context, employeeID string) (*domain.CarryForwardSnapshot, error) {
	db := conn(ctx, r.pool)
	var s domain.CarryForwardSnapshot
	err := db.QueryRow(ctx, `
		SELECT employee_id, days, updated_at FROM carry_forward WHERE employee_id = $1`, employeeID,
	).Scan(&s.EmployeeID, &s.Days, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err, fmt.Errorf("%w: carry-forward for employee %s", domain.ErrNotFound, employeeID))
	}
	return &s, nil
}

// Save upserts the snapshot row.
func (r *CarryForwardRepo) Save(ctx context.Context, snapshot *domain.CarryForwardSnapshot) error {
	db := conn(ctx, r.pool)
	_, err := db.Exec(ctx, `
		INSERT INTO carry_forward (employee_id, days, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (employee_id) DO UPDATE
		SET days = EXCLUDED.days, updated_at = EXCLUDED.updated_at`,
		snapshot.EmployeeID, snapshot.Days, snapshot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save carry-forward snapshot: %w", err)
	}
	return nil
}

var _ domain.CarryForwardRepository = (*CarryForwardRepo)(nil)
