package notify

import (
	"context"
	"time"

	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// LogNotifier implements domain.Notifier by writing structured log events.
// Mail or chat delivery can replace it behind the same interface; the workflow
// never depends on delivery succeeding.
type LogNotifier struct{}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) ApprovalRequested(ctx context.Context, ts *domain.Timesheet, approverEmail, approverName, employeeName, otp string) {
	log.Info().
		Str("timesheet_id", ts.ID).
		Str("employee", employeeName).
		Str("approver", approverName).
		Str("approver_email", approverEmail).
		Str("week_start", ts.WeekStart.Format(domain.DateLayout)).
		Str("otp", otp).
		Msg("approval requested")
}

func (n *LogNotifier) TimesheetApproved(ctx context.Context, email, employeeName string, weekStart, weekEnd time.Time) {
	log.Info().
		Str("email", email).
		Str("employee", employeeName).
		Str("week_start", weekStart.Format(domain.DateLayout)).
		Str("week_end", weekEnd.Format(domain.DateLayout)).
		Msg("timesheet approved notification")
}

func (n *LogNotifier) TimesheetRejected(ctx context.Context, email, employeeName string, weekStart, weekEnd time.Time, reason string) {
	log.Info().
		Str("email", email).
		Str("employee", employeeName).
		Str("week_start", weekStart.Format(domain.DateLayout)).
		Str("week_end", weekEnd.Format(domain.DateLayout)).
		Str("reason", reason).
		Msg("timesheet rejected notification")
}

func (n *LogNotifier) MonthApproved(ctx context.Context, email, employeeName string, monthStart, monthEnd time.Time) {
	log.Info().
		Str("email", email).
		Str("employee", employeeName).
		Str("month_start", monthStart.Format(domain.DateLayout)).
		Msg("month approved notification")
}

func (n *LogNotifier) MonthRejected(ctx context.Context, email, employeeName string, monthStart, monthEnd time.Time, reason string) {
	log.Info().
		Str("email", email).
		Str("employee", employeeName).
		Str("month_start", monthStart.Format(domain.DateLayout)).
		Str("reason", reason).
		Msg("month rejected notification")
}

var _ domain.Notifier = (*LogNotifier)(nil)
