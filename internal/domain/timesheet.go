package domain

import (
	"context"
	"fmt"
	"time"
)

// Status is the lifecycle state of a timesheet record. The set is closed:
// unknown strings are rejected at the boundary by ParseStatus.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"

	// StatusNoTimesheet is a report-only pseudo status for weeks without a
	// record. It is never persisted on a timesheet row.
	StatusNoTimesheet Status = "NO_TIMESHEET"
)

// statusTransitions is the closed transition table. A rejected timesheet may
// be resubmitted after correction; an approved one is terminal.
var statusTransitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusRejected:        {StatusPendingApproval},
	StatusApproved:        {},
}

// ParseStatus validates a status string at the boundary.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Mutable reports whether the record's entries may still be edited by its
// owner. Rejected records stay editable so the employee can correct and
// resubmit them.
func (s Status) Mutable() bool {
	return s == StatusDraft || s == StatusRejected
}

// StatusPriority orders statuses for monthly aggregation: the least-progressed
// status present dominates the rollup. Unknown statuses sort last.
func StatusPriority(s Status) int {
	switch s {
	case StatusDraft:
		return 1
	case StatusPendingApproval:
		return 2
	case StatusRejected:
		return 3
	case StatusApproved:
		return 4
	}
	return int(^uint(0) >> 1)
}

// RecordKind distinguishes daily from weekly timesheet cadence.
type RecordKind string

const (
	RecordDaily  RecordKind = "DAILY"
	RecordWeekly RecordKind = "WEEKLY"
)

// TimesheetIDPrefix prefixes every human-readable timesheet identifier.
const TimesheetIDPrefix = "TMST"

// FormatTimesheetID renders a sequence number as a timesheet identifier,
// e.g. 42 -> "TMST00000042".
func FormatTimesheetID(seq int) string {
	return fmt.Sprintf("%s%08d", TimesheetIDPrefix, seq)
}

// Timesheet is one employee's record for one week: the merged entry
// collections, the utilization percentage, and the approval lifecycle.
// At most one record exists per (employee, week start).
type Timesheet struct {
	ID              string     `json:"timesheetId"`
	EmployeeID      string     `json:"employeeId"`
	Kind            RecordKind `json:"recordKind"`
	AnchorDate      time.Time  `json:"anchorDate"`
	WeekStart       time.Time  `json:"weekStart"`
	WeekEnd         time.Time  `json:"weekEnd"`
	EmploymentType  string     `json:"employmentType"`
	Working         EntryList  `json:"workingEntries"`
	NonWorking      EntryList  `json:"nonWorkingEntries"`
	Percentage      float64    `json:"percentageOfTarget"`
	Status          Status     `json:"status"`
	ApprovedBy      string     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Version         int64      `json:"-"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Transition moves the record to next, enforcing the transition table.
func (t *Timesheet) Transition(next Status) error {
	if !t.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}
	t.Status = next
	return nil
}

// TimesheetRepository persists timesheet records. Update applies optimistic
// concurrency: it fails with ErrConflict when the stored version no longer
// matches the loaded one.
type TimesheetRepository interface {
	Create(ctx context.Context, ts *Timesheet) error
	Update(ctx context.Context, ts *Timesheet) error
	GetByID(ctx context.Context, id string) (*Timesheet, error)
	GetByEmployeeWeek(ctx context.Context, employeeID string, weekStart time.Time) (*Timesheet, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*Timesheet, error)
	ListByStatus(ctx context.Context, status Status) ([]*Timesheet, error)
	ListOverlappingMonth(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]*Timesheet, error)
	ListByWeekStartBetween(ctx context.Context, from, to time.Time) ([]*Timesheet, error)
	NextSequence(ctx context.Context) (int, error)
}

// Transactor runs fn inside a single database transaction. Repository calls
// made with the ctx passed to fn join that transaction, so a timesheet save
// and the leave mutations it triggers commit or roll back together.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
