package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/mulyahr/timesheet-backend/internal/util"
	"github.com/mulyahr/timesheet-backend/internal/websocket"
	"github.com/rs/zerolog/log"
)

// maxSaveRetries bounds optimistic-concurrency retries on a single record.
const maxSaveRetries = 3

// TimesheetService owns the week-record lifecycle: merging submissions into
// per-week records, the approval state machine, and the leave-ledger side
// effects of entry changes. A timesheet save and the ledger mutations it
// triggers always ride in one transaction.
type TimesheetService struct {
	timesheets domain.TimesheetRepository
	leave      *LeaveService
	directory  domain.DirectoryClient
	placements domain.PlacementClient
	notifier   domain.Notifier
	otp        *OTPService
	events     websocket.EventPublisher
	tx         domain.Transactor
}

// NewTimesheetService creates a new TimesheetService.
func NewTimesheetService(
	timesheets domain.TimesheetRepository,
	leave *LeaveService,
	directory domain.DirectoryClient,
	placements domain.PlacementClient,
	notifier domain.Notifier,
	otp *OTPService,
	events websocket.EventPublisher,
	tx domain.Transactor,
) *TimesheetService {
	return &TimesheetService{
		timesheets: timesheets,
		leave:      leave,
		directory:  directory,
		placements: placements,
		notifier:   notifier,
		otp:        otp,
		events:     events,
		tx:         tx,
	}
}

// SubmitRequest carries one submission of entries for the week owning Date.
type SubmitRequest struct {
	Date       time.Time
	Working    []domain.Entry
	NonWorking []domain.Entry
	Notes      string
}

// Classify resolves the employee's employment profile from the placement
// service. A lookup failure degrades to the weekly/unknown default so a
// submission is never blocked by the upstream being down.
func (s *TimesheetService) Classify(ctx context.Context, employeeID string) domain.Classification {
	return classifyEmployee(ctx, s.directory, s.placements, employeeID)
}

// SubmitEntries merges a submission into the employee's record for the week
// owning req.Date, creating the record on first submission. Existing entries
// for re-submitted dates are replaced; full-day leave entries displaced by new
// work entries are cancelled and refunded; the net change in leave days is
// consumed from or refunded to the ledger in the same transaction as the save.
func (s *TimesheetService) SubmitEntries(ctx context.Context, employeeID string, req SubmitRequest) (*domain.Timesheet, error) {
	var v domain.ValidationErrors
	if len(req.Notes) > domain.MaxNotesLength {
		v.Add("notes", "must not exceed %d characters", domain.MaxNotesLength)
	}

	if _, err := s.directory.GetEmployeeByID(ctx, employeeID); err != nil {
		if errors.Is(err, domain.ErrEmployeeNotFound) || errors.Is(err, domain.ErrNotFound) {
			v.Add("employeeId", "employee not found: %s", employeeID)
			return nil, &v
		}
		// Identity service being down must not block the submission.
		log.Warn().Err(err).Str("employee_id", employeeID).Msg("directory lookup failed, continuing")
	}

	class := s.Classify(ctx, employeeID)

	var weekStart, weekEnd time.Time
	if class.Cadence == domain.RecordDaily {
		weekStart, weekEnd = req.Date, req.Date
	} else {
		if !util.IsValidWeeklyAnchor(req.Date) {
			v.Add("date", "weekly timesheets must start on a Monday, or on the month's first day for a leading partial week")
		}
		weekStart, weekEnd = util.WeekWindowFor(req.Date)
	}
	domain.ValidateEntriesWithin(&v, "workingEntries", req.Working, weekStart, weekEnd)
	domain.ValidateEntriesWithin(&v, "nonWorkingEntries", req.NonWorking, weekStart, weekEnd)
	if v.HasErrors() {
		return nil, &v
	}

	var saved *domain.Timesheet
	err := s.withRetry(func() error {
		return s.tx.InTx(ctx, func(ctx context.Context) error {
			ts, err := s.timesheets.GetByEmployeeWeek(ctx, employeeID, weekStart)
			created := false
			switch {
			case errors.Is(err, domain.ErrTimesheetNotFound):
				seq, seqErr := s.timesheets.NextSequence(ctx)
				if seqErr != nil {
					return seqErr
				}
				ts = &domain.Timesheet{
					ID:             domain.FormatTimesheetID(seq),
					EmployeeID:     employeeID,
					Kind:           class.Cadence,
					AnchorDate:     req.Date,
					WeekStart:      weekStart,
					WeekEnd:        weekEnd,
					EmploymentType: class.EmploymentType,
					Status:         domain.StatusDraft,
				}
				created = true
				log.Info().
					Str("timesheet_id", ts.ID).
					Str("employee_id", employeeID).
					Str("week_start", weekStart.Format(domain.DateLayout)).
					Msg("creating timesheet for new week")
			case err != nil:
				return err
			}

			if !ts.Status.Mutable() {
				return fmt.Errorf("%w: entries cannot be modified while %s", domain.ErrInvalidTransition, ts.Status)
			}

			newWorkingDates := domain.DateSet(req.Working)
			leaveDaysBefore := domain.HoursToLeaveDays(ts.NonWorking.HoursWithin(ts.WeekStart, ts.WeekEnd))
			cancelled := ts.NonWorking.CancelledLeaves(newWorkingDates)
			ts.NonWorking = ts.NonWorking.RemoveDates(newWorkingDates)
			ts.Working = ts.Working.MergeByDate(req.Working)
			ts.NonWorking = ts.NonWorking.MergeByDate(req.NonWorking)
			leaveDaysAfter := domain.HoursToLeaveDays(ts.NonWorking.HoursWithin(ts.WeekStart, ts.WeekEnd))

			if len(cancelled) > 0 {
				log.Info().
					Str("timesheet_id", ts.ID).
					Int("cancelled", len(cancelled)).
					Msg("work entries cancelled existing leave days")
			}
			unpaidDays := 0
			if net := leaveDaysAfter - leaveDaysBefore; net > 0 {
				_, unpaid, err := s.leave.Consume(ctx, employeeID, net, class.FullTime(), employeeID)
				if err != nil {
					return err
				}
				unpaidDays = unpaid
			} else if net < 0 {
				if _, err := s.leave.Refund(ctx, employeeID, -net, employeeID); err != nil {
					return err
				}
			}

			ts.Percentage = WeekPercentageWithUnpaid(ts, class.FullTime(), unpaidDays)
			if req.Notes != "" {
				ts.Notes = req.Notes
			}

			if created {
				if err := s.timesheets.Create(ctx, ts); err != nil {
					return err
				}
			} else if err := s.timesheets.Update(ctx, ts); err != nil {
				return err
			}

			saved = ts
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(employeeID, websocket.TimesheetUpdated(saved))
	return saved, nil
}

// MergeEntryFields applies partial, field-level entry updates to a record the
// employee owns. Only non-nil patch fields overwrite the matched entry;
// patches for new dates append. The utilization percentage is recomputed on
// the whole-week basis.
func (s *TimesheetService) MergeEntryFields(ctx context.Context, id, employeeID string, working, nonWorking []domain.EntryPatch) (*domain.Timesheet, error) {
	class := s.Classify(ctx, employeeID)

	var saved *domain.Timesheet
	err := s.withRetry(func() error {
		return s.tx.InTx(ctx, func(ctx context.Context) error {
			ts, err := s.timesheets.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if ts.EmployeeID != employeeID {
				return fmt.Errorf("%w: timesheet %s does not belong to employee %s", domain.ErrUnauthorized, id, employeeID)
			}
			if !ts.Status.Mutable() {
				return fmt.Errorf("%w: entries cannot be modified while %s", domain.ErrInvalidTransition, ts.Status)
			}

			leaveDaysBefore := domain.HoursToLeaveDays(ts.NonWorking.HoursWithin(ts.WeekStart, ts.WeekEnd))
			ts.Working = ts.Working.MergeByField(working)
			ts.NonWorking = ts.NonWorking.MergeByField(nonWorking)

			var v domain.ValidationErrors
			domain.ValidateEntriesWithin(&v, "workingEntries", ts.Working, ts.WeekStart, ts.WeekEnd)
			domain.ValidateEntriesWithin(&v, "nonWorkingEntries", ts.NonWorking, ts.WeekStart, ts.WeekEnd)
			if v.HasErrors() {
				return &v
			}
			leaveDaysAfter := domain.HoursToLeaveDays(ts.NonWorking.HoursWithin(ts.WeekStart, ts.WeekEnd))

			unpaidDays := 0
			if net := leaveDaysAfter - leaveDaysBefore; net > 0 {
				_, unpaid, err := s.leave.Consume(ctx, employeeID, net, class.FullTime(), employeeID)
				if err != nil {
					return err
				}
				unpaidDays = unpaid
			} else if net < 0 {
				if _, err := s.leave.Refund(ctx, employeeID, -net, employeeID); err != nil {
					return err
				}
			}

			ts.Percentage = WeekPercentageWithUnpaid(ts, class.FullTime(), unpaidDays)
			if err := s.timesheets.Update(ctx, ts); err != nil {
				return err
			}

			saved = ts
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(employeeID, websocket.TimesheetUpdated(saved))
	return saved, nil
}

// SubmitForApproval moves a record the employee owns into PENDING_APPROVAL
// and requests review. The approval notification is best effort: a directory
// outage is logged, not surfaced, because the status change itself does not
// depend on it.
func (s *TimesheetService) SubmitForApproval(ctx context.Context, id, employeeID string) (*domain.Timesheet, error) {
	var saved *domain.Timesheet
	err := s.withRetry(func() error {
		ts, err := s.timesheets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if ts.EmployeeID != employeeID {
			return fmt.Errorf("%w: timesheet %s does not belong to employee %s", domain.ErrUnauthorized, id, employeeID)
		}
		if err := ts.Transition(domain.StatusPendingApproval); err != nil {
			return err
		}
		if err := s.timesheets.Update(ctx, ts); err != nil {
			return err
		}
		saved = ts
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.requestApproval(ctx, saved)
	s.events.Publish(saved.EmployeeID, websocket.TimesheetSubmitted(saved))
	return saved, nil
}

// Approve transitions a pending record to APPROVED. The actor must hold the
// approver role; when an approval code was issued it must match.
func (s *TimesheetService) Approve(ctx context.Context, id, approverID, otpCode string) (*domain.Timesheet, error) {
	approver, err := s.verifyApprover(ctx, approverID)
	if err != nil {
		return nil, err
	}
	if otpCode != "" && !s.otp.Validate(id, otpCode) {
		return nil, fmt.Errorf("%w: invalid or expired approval code", domain.ErrUnauthorized)
	}

	var saved *domain.Timesheet
	err = s.withRetry(func() error {
		ts, err := s.timesheets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := ts.Transition(domain.StatusApproved); err != nil {
			return err
		}
		now := time.Now().UTC()
		ts.ApprovedBy = approver.Name
		ts.ApprovedAt = &now
		if err := s.timesheets.Update(ctx, ts); err != nil {
			return err
		}
		saved = ts
		return nil
	})
	if err != nil {
		return nil, err
	}

	if email, name := s.employeeContact(ctx, saved.EmployeeID); email != "" {
		s.notifier.TimesheetApproved(ctx, email, name, saved.WeekStart, saved.WeekEnd)
	}
	s.events.Publish(saved.EmployeeID, websocket.TimesheetApproved(saved))
	return saved, nil
}

// Reject transitions a pending record to REJECTED with a required reason. The
// record stays editable so the employee can correct and resubmit it.
func (s *TimesheetService) Reject(ctx context.Context, id, approverID, reason string) (*domain.Timesheet, error) {
	if reason == "" {
		var v domain.ValidationErrors
		v.Add("reason", "rejection reason is required")
		return nil, &v
	}
	approver, err := s.verifyApprover(ctx, approverID)
	if err != nil {
		return nil, err
	}

	var saved *domain.Timesheet
	err = s.withRetry(func() error {
		ts, err := s.timesheets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := ts.Transition(domain.StatusRejected); err != nil {
			return err
		}
		now := time.Now().UTC()
		ts.ApprovedBy = approver.Name
		ts.ApprovedAt = &now
		ts.RejectionReason = reason
		if err := s.timesheets.Update(ctx, ts); err != nil {
			return err
		}
		saved = ts
		return nil
	})
	if err != nil {
		return nil, err
	}

	if email, name := s.employeeContact(ctx, saved.EmployeeID); email != "" {
		s.notifier.TimesheetRejected(ctx, email, name, saved.WeekStart, saved.WeekEnd, reason)
	}
	s.events.Publish(saved.EmployeeID, websocket.TimesheetRejected(saved))
	return saved, nil
}

// SubmitMonth submits every record of the employee overlapping the month that
// is still in a submittable state. Records already pending or approved are
// left alone.
func (s *TimesheetService) SubmitMonth(ctx context.Context, employeeID string, monthStart time.Time) ([]*domain.Timesheet, error) {
	if monthStart.Day() != 1 {
		var v domain.ValidationErrors
		v.Add("monthStart", "must be the first day of the month")
		return nil, &v
	}
	monthEnd := monthStart.AddDate(0, 1, -1)

	records, err := s.timesheets.ListOverlappingMonth(ctx, employeeID, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no timesheets overlap month %s", domain.ErrTimesheetNotFound, monthStart.Format(domain.DateLayout))
	}

	var submitted []*domain.Timesheet
	for _, ts := range records {
		if !ts.Status.CanTransition(domain.StatusPendingApproval) {
			log.Debug().Str("timesheet_id", ts.ID).Str("status", string(ts.Status)).
				Msg("skipping record not in submittable state")
			continue
		}
		ts.Status = domain.StatusPendingApproval
		if err := s.timesheets.Update(ctx, ts); err != nil {
			return nil, err
		}
		s.requestApproval(ctx, ts)
		s.events.Publish(ts.EmployeeID, websocket.TimesheetSubmitted(ts))
		submitted = append(submitted, ts)
	}
	return submitted, nil
}

// ApproveMonth approves every pending record of the employee overlapping
// [monthStart, monthEnd] and sends a single consolidated notification.
func (s *TimesheetService) ApproveMonth(ctx context.Context, employeeID string, monthStart, monthEnd time.Time, approverID string) ([]*domain.Timesheet, error) {
	approver, err := s.verifyApprover(ctx, approverID)
	if err != nil {
		return nil, err
	}
	records, err := s.timesheets.ListOverlappingMonth(ctx, employeeID, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no timesheets overlap the month", domain.ErrTimesheetNotFound)
	}

	now := time.Now().UTC()
	var approved []*domain.Timesheet
	for _, ts := range records {
		if !ts.Status.CanTransition(domain.StatusApproved) {
			continue
		}
		ts.Status = domain.StatusApproved
		ts.ApprovedBy = approver.Name
		ts.ApprovedAt = &now
		if err := s.timesheets.Update(ctx, ts); err != nil {
			return nil, err
		}
		s.events.Publish(ts.EmployeeID, websocket.TimesheetApproved(ts))
		approved = append(approved, ts)
	}

	if email, name := s.employeeContact(ctx, employeeID); email != "" && len(approved) > 0 {
		s.notifier.MonthApproved(ctx, email, name, monthStart, monthEnd)
	}
	return approved, nil
}

// RejectMonth rejects every pending record of the employee overlapping
// [monthStart, monthEnd] with one shared reason.
func (s *TimesheetService) RejectMonth(ctx context.Context, employeeID string, monthStart, monthEnd time.Time, approverID, reason string) ([]*domain.Timesheet, error) {
	if reason == "" {
		var v domain.ValidationErrors
		v.Add("reason", "rejection reason is required")
		return nil, &v
	}
	approver, err := s.verifyApprover(ctx, approverID)
	if err != nil {
		return nil, err
	}
	records, err := s.timesheets.ListOverlappingMonth(ctx, employeeID, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no timesheets overlap the month", domain.ErrTimesheetNotFound)
	}

	now := time.Now().UTC()
	var rejected []*domain.Timesheet
	for _, ts := range records {
		if !ts.Status.CanTransition(domain.StatusRejected) {
			continue
		}
		ts.Status = domain.StatusRejected
		ts.ApprovedBy = approver.Name
		ts.ApprovedAt = &now
		ts.RejectionReason = reason
		if err := s.timesheets.Update(ctx, ts); err != nil {
			return nil, err
		}
		s.events.Publish(ts.EmployeeID, websocket.TimesheetRejected(ts))
		rejected = append(rejected, ts)
	}

	if email, name := s.employeeContact(ctx, employeeID); email != "" && len(rejected) > 0 {
		s.notifier.MonthRejected(ctx, email, name, monthStart, monthEnd, reason)
	}
	return rejected, nil
}

// GetByID returns one record.
func (s *TimesheetService) GetByID(ctx context.Context, id string) (*domain.Timesheet, error) {
	return s.timesheets.GetByID(ctx, id)
}

// ListByEmployee returns all of an employee's records.
func (s *TimesheetService) ListByEmployee(ctx context.Context, employeeID string) ([]*domain.Timesheet, error) {
	return s.timesheets.ListByEmployee(ctx, employeeID)
}

// ListByStatus returns all records in a given status, for approver queues.
func (s *TimesheetService) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Timesheet, error) {
	return s.timesheets.ListByStatus(ctx, status)
}

// verifyApprover resolves the actor and checks the approver role. The
// operation strictly requires the actor's identity, so unlike submissions a
// directory outage here is surfaced.
func (s *TimesheetService) verifyApprover(ctx context.Context, approverID string) (*domain.Employee, error) {
	emp, err := s.directory.GetEmployeeByID(ctx, approverID)
	if err != nil {
		if errors.Is(err, domain.ErrEmployeeNotFound) || errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: approver %s not found", domain.ErrUnauthorized, approverID)
		}
		return nil, fmt.Errorf("%w: cannot verify approver identity: %v", domain.ErrUpstreamUnavailable, err)
	}
	if emp.Role != domain.ApproverRole {
		return nil, fmt.Errorf("%w: %s does not hold the %s role", domain.ErrForbidden, approverID, domain.ApproverRole)
	}
	return emp, nil
}

// requestApproval issues an approval code and notifies the first approver on
// record. Failures are logged only; the status change has already happened.
func (s *TimesheetService) requestApproval(ctx context.Context, ts *domain.Timesheet) {
	approvers, err := s.directory.GetEmployeesByRole(ctx, domain.ApproverRole)
	if err != nil || len(approvers) == 0 {
		log.Warn().Err(err).Str("timesheet_id", ts.ID).
			Msg("no approver could be resolved, skipping approval notification")
		return
	}
	approver := approvers[0]
	_, employeeName := s.employeeContact(ctx, ts.EmployeeID)
	code := s.otp.Generate(ts.ID)
	s.notifier.ApprovalRequested(ctx, ts, approver.Email, approver.Name, employeeName, code)
}

// employeeContact resolves an employee's email and display name, degrading to
// empty/"Unknown" when the directory cannot answer.
func (s *TimesheetService) employeeContact(ctx context.Context, employeeID string) (email, name string) {
	name = "Unknown"
	emp, err := s.directory.GetEmployeeByID(ctx, employeeID)
	if err == nil {
		name = emp.Name
		email = emp.Email
	}
	if email == "" {
		if e, err := s.directory.GetEmployeeEmail(ctx, employeeID); err == nil {
			email = e
		}
	}
	return email, name
}

// withRetry reruns fn on optimistic-concurrency conflicts, reloading fresh
// state each attempt.
func (s *TimesheetService) withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		err = fn()
		if err == nil || !(errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrAlreadyExists)) {
			return err
		}
		log.Debug().Err(err).Int("attempt", attempt+1).Msg("retrying after concurrent modification")
	}
	return err
}
