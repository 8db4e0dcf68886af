package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	entryKindWorking    = "WORKING"
	entryKindNonWorking = "NON_WORKING"
)

// TimesheetRepo is the Postgres implementation of domain.TimesheetRepository.
// Entry collections live in the timesheet_entries child table; the parent row
// carries a version column for optimistic concurrency.
type TimesheetRepo struct {
	pool *pgxpool.Pool
}

// NewTimesheetRepo creates a new TimesheetRepo.
func NewTimesheetRepo(pool *pgxpool.Pool) *TimesheetRepo {
	return &TimesheetRepo{pool: pool}
}

const timesheetColumns = `id, employee_id, kind, anchor_date, week_start, week_end,
	employment_type, percentage, status, approved_by, approved_at,
	rejection_reason, notes, version, created_at, updated_at`

// Create inserts a new record with its entries. A concurrent insert for the
// same (employee, week start) surfaces as ErrAlreadyExists through the unique
// constraint.
func (r *TimesheetRepo) Create(ctx context.Context, ts *domain.Timesheet) error {
	db := conn(ctx, r.pool)

	now := time.Now().UTC()
	ts.Version = 1
	ts.CreatedAt = now
	ts.UpdatedAt = now

	_, err := db.Exec(ctx, `
		INSERT INTO timesheets (`+timesheetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		ts.ID, ts.EmployeeID, ts.Kind, ts.AnchorDate, ts.WeekStart, ts.WeekEnd,
		ts.EmploymentType, ts.Percentage, ts.Status, nullable(ts.ApprovedBy), ts.ApprovedAt,
		nullable(ts.RejectionReason), nullable(ts.Notes), ts.Version, ts.CreatedAt, ts.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: timesheet for employee %s week %s",
				domain.ErrAlreadyExists, ts.EmployeeID, ts.WeekStart.Format(domain.DateLayout))
		}
		return fmt.Errorf("insert timesheet: %w", err)
	}
	return r.replaceEntries(ctx, db, ts)
}

// Update rewrites the record and its entries, guarded by the version loaded
// with the record. A stale version means another writer got there first and
// surfaces as ErrConflict.
func (r *TimesheetRepo) Update(ctx context.Context, ts *domain.Timesheet) error {
	db := conn(ctx, r.pool)

	ts.UpdatedAt = time.Now().UTC()
	tag, err := db.Exec(ctx, `
		UPDATE timesheets
		SET kind = $2, anchor_date = $3, week_start = $4, week_end = $5,
			employment_type = $6, percentage = $7, status = $8, approved_by = $9,
			approved_at = $10, rejection_reason = $11, notes = $12,
			version = version + 1, updated_at = $13
		WHERE id = $1 AND version = $14`,
		ts.ID, ts.Kind, ts.AnchorDate, ts.WeekStart, ts.WeekEnd,
		ts.EmploymentType, ts.Percentage, ts.Status, nullable(ts.ApprovedBy),
		ts.ApprovedAt, nullable(ts.RejectionReason), nullable(ts.Notes),
		ts.UpdatedAt, ts.Version,
	)
	if err != nil {
		return fmt.Errorf("update timesheet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or the version moved underneath us.
		var exists bool
		if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM timesheets WHERE id = $1)`, ts.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check timesheet existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", domain.ErrTimesheetNotFound, ts.ID)
		}
		return fmt.Errorf("%w: timesheet %s", domain.ErrConflict, ts.ID)
	}
	ts.Version++
	return r.replaceEntries(ctx, db, ts)
}

// GetByID loads one record with its entries.
func (r *TimesheetRepo) GetByID(ctx context.Context, id string) (*domain.Timesheet, error) {
	db := conn(ctx, r.pool)
	ts, err := scanTimesheet(db.QueryRow(ctx, `
		SELECT `+timesheetColumns+` FROM timesheets WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Errorf("%w: %s", domain.ErrTimesheetNotFound, id))
	}
	if err := r.loadEntries(ctx, db, []*domain.Timesheet{ts}); err != nil {
		return nil, err
	}
	return ts, nil
}

// GetByEmployeeWeek loads the single record for an employee and week start.
func (r *TimesheetRepo) GetByEmployeeWeek(ctx context.Context, employeeID string, weekStart time.Time) (*domain.Timesheet, error) {
	db := conn(ctx, r.pool)
	ts, err := scanTimesheet(db.QueryRow(ctx, `
		SELECT `+timesheetColumns+` FROM timesheets
		WHERE employee_id = $1 AND week_start = $2`, employeeID, weekStart))
	if err != nil {
		return nil, notFound(err, fmt.Errorf("%w: employee %s week %s",
			domain.ErrTimesheetNotFound, employeeID, weekStart.Format(domain.DateLayout)))
	}
	if err := r.loadEntries(ctx, db, []*domain.Timesheet{ts}); err != nil {
		return nil, err
	}
	return ts, nil
}

// ListByEmployee returns all of an employee's records, newest week first.
func (r *TimesheetRepo) ListByEmployee(ctx context.Context, employeeID string) ([]*domain.Timesheet, error) {
	return r.list(ctx, `
		SELECT `+timesheetColumns+` FROM timesheets
		WHERE employee_id = $1 ORDER BY week_start DESC`, employeeID)
}

// ListByStatus returns all records in a status, oldest week first so approvers
// work through the backlog in order.
func (r *TimesheetRepo) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Timesheet, error) {
	return r.list(ctx, `
		SELECT `+timesheetColumns+` FROM timesheets
		WHERE status = $1 ORDER BY week_start ASC, employee_id ASC`, status)
}

// ListOverlappingMonth returns an employee's records whose week window
// intersects [monthStart, monthEnd].
func (r *TimesheetRepo) ListOverlappingMonth(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]*domain.Timesheet, error) {
	return r.list(ctx, `
		SELECT `+timesheetColumns+` FROM timesheets
		WHERE employee_id = $1 AND week_start <= $3 AND week_end >= $2
		ORDER BY week_start ASC`, employeeID, monthStart, monthEnd)
}

// ListByWeekStartBetween returns every record, across employees, whose week
// starts inside [from, to].
func (r *TimesheetRepo) ListByWeekStartBetween(ctx context.Context, from, to time.Time) ([]*domain.Timesheet, error) {
	return r.list(ctx, `
		SELECT `+timesheetColumns+` FROM timesheets
		WHERE week_start BETWEEN $1 AND $2
		ORDER BY employee_id ASC, week_start ASC`, from, to)
}

// NextSequence returns the next value of the timesheet identifier sequence.
func (r *TimesheetRepo) NextSequence(ctx context.Context) (int, error) {
	db := conn(ctx, r.pool)
	var seq int
	if err := db.QueryRow(ctx, `SELECT nextval('timesheet_id_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next timesheet sequence: %w", err)
	}
	return seq, nil
}

func (r *TimesheetRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Timesheet, error) {
	db := conn(ctx, r.pool)
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list timesheets: %w", err)
	}
	defer rows.Close()

	var out []*domain.Timesheet
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timesheet: %w", err)
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list timesheets: %w", err)
	}
	if err := r.loadEntries(ctx, db, out); err != nil {
		return nil, err
	}
	return out, nil
}

// replaceEntries rewrites the child rows wholesale. Entry collections are
// small (one week) and arrive fully merged, so delete-and-insert is simpler
// than diffing.
func (r *TimesheetRepo) replaceEntries(ctx context.Context, db dbtx, ts *domain.Timesheet) error {
	if _, err := db.Exec(ctx, `DELETE FROM timesheet_entries WHERE timesheet_id = $1`, ts.ID); err != nil {
		return fmt.Errorf("clear timesheet entries: %w", err)
	}
	insert := func(kind string, entries domain.EntryList) error {
		for i, e := range entries {
			_, err := db.Exec(ctx, `
				INSERT INTO timesheet_entries (timesheet_id, kind, entry_date, project, hours, description, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				ts.ID, kind, e.Date, nullable(e.Project), e.Hours, nullable(e.Description), i)
			if err != nil {
				return fmt.Errorf("insert timesheet entry: %w", err)
			}
		}
		return nil
	}
	if err := insert(entryKindWorking, ts.Working); err != nil {
		return err
	}
	return insert(entryKindNonWorking, ts.NonWorking)
}

// loadEntries fills the entry collections for a batch of records in one query.
func (r *TimesheetRepo) loadEntries(ctx context.Context, db dbtx, records []*domain.Timesheet) error {
	if len(records) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Timesheet, len(records))
	ids := make([]string, 0, len(records))
	for _, ts := range records {
		byID[ts.ID] = ts
		ids = append(ids, ts.ID)
	}

	rows, err := db.Query(ctx, `
		SELECT timesheet_id, kind, entry_date, COALESCE(project, ''), hours, COALESCE(description, '')
		FROM timesheet_entries
		WHERE timesheet_id = ANY($1)
		ORDER BY timesheet_id, kind, position`, ids)
	if err != nil {
		return fmt.Errorf("load timesheet entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			timesheetID string
			kind        string
			entry       domain.Entry
			hours       decimal.Decimal
		)
		if err := rows.Scan(&timesheetID, &kind, &entry.Date, &entry.Project, &hours, &entry.Description); err != nil {
			return fmt.Errorf("scan timesheet entry: %w", err)
		}
		entry.Hours = hours
		ts := byID[timesheetID]
		if ts == nil {
			continue
		}
		if kind == entryKindWorking {
			ts.Working = append(ts.Working, entry)
		} else {
			ts.NonWorking = append(ts.NonWorking, entry)
		}
	}
	return rows.Err()
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTimesheet(row rowScanner) (*domain.Timesheet, error) {
	var (
		ts              domain.Timesheet
		approvedBy      *string
		rejectionReason *string
		notes           *string
	)
	err := row.Scan(
		&ts.ID, &ts.EmployeeID, &ts.Kind, &ts.AnchorDate, &ts.WeekStart, &ts.WeekEnd,
		&ts.EmploymentType, &ts.Percentage, &ts.Status, &approvedBy, &ts.ApprovedAt,
		&rejectionReason, &notes, &ts.Version, &ts.CreatedAt, &ts.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if approvedBy != nil {
		ts.ApprovedBy = *approvedBy
	}
	if rejectionReason != nil {
		ts.RejectionReason = *rejectionReason
	}
	if notes != nil {
		ts.Notes = *notes
	}
	return &ts, nil
}

// nullable maps an empty string to NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ domain.TimesheetRepository = (*TimesheetRepo)(nil)
