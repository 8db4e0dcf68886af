package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/mulyahr/timesheet-backend/internal/testutil"
	"github.com/mulyahr/timesheet-backend/internal/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timesheetFixture struct {
	svc        *TimesheetService
	repo       *testutil.MockTimesheetRepo
	balances   *testutil.MockLeaveRepo
	directory  *testutil.MockDirectoryClient
	placements *testutil.MockPlacementClient
	notifier   *testutil.MockNotifier
	events     *testutil.CapturingPublisher
}

// newTimesheetFixture wires the service against in-memory collaborators and
// seeds one full-time weekly employee plus one approver.
func newTimesheetFixture(t *testing.T) *timesheetFixture {
	t.Helper()
	f := &timesheetFixture{
		repo:       testutil.NewMockTimesheetRepo(),
		balances:   testutil.NewMockLeaveRepo(),
		directory:  testutil.NewMockDirectoryClient(),
		placements: testutil.NewMockPlacementClient(),
		notifier:   testutil.NewMockNotifier(),
		events:     &testutil.CapturingPublisher{},
	}
	otp := NewOTPService()
	t.Cleanup(otp.Stop)
	leave := NewLeaveService(f.balances, testutil.NewMockCarryForwardRepo())
	f.svc = NewTimesheetService(f.repo, leave, f.directory, f.placements, f.notifier, otp, f.events, testutil.MockTransactor{})

	f.directory.Add(domain.Employee{ID: "emp-1", Name: "Asha Rao", Email: "asha@example.com", Role: "EMPLOYEE"})
	f.directory.Add(domain.Employee{ID: "acct-1", Name: "Ben Accounts", Email: "ben@example.com", Role: domain.ApproverRole})
	f.placements.Placements["asha@example.com"] = []domain.Placement{
		{EmploymentType: "Full-time", WorkingCadence: "WEEKLY", ClientName: "Acme"},
	}
	f.balances.Balances["emp-1"] = &domain.LeaveBalance{EmployeeID: "emp-1", EmployeeName: "Asha Rao", Available: 10}
	return f
}

func workEntry(d, h int) domain.Entry {
	return domain.Entry{Date: util.Date(2024, 6, d), Project: "acme", Hours: decimal.NewFromInt(int64(h))}
}

func leaveEntry(d, h int) domain.Entry {
	return domain.Entry{Date: util.Date(2024, 6, d), Hours: decimal.NewFromInt(int64(h)), Description: "leave"}
}

func TestSubmitEntries_FirstSubmissionCreatesWeekRecord(t *testing.T) {
	f := newTimesheetFixture(t)

	ts, err := f.svc.SubmitEntries(context.Background(), "emp-1", SubmitRequest{
		Date:    util.Date(2024, 6, 3),
		Working: []domain.Entry{workEntry(3, 8), workEntry(4, 8)},
		Notes:   "sprint week",
	})

	require.NoError(t, err)
	assert.Equal(t, "TMST00000001", ts.ID)
	assert.Equal(t, domain.StatusDraft, ts.Status)
	assert.Equal(t, util.Date(2024, 6, 3), ts.WeekStart)
	assert.Equal(t, util.Date(2024, 6, 7), ts.WeekEnd)
	assert.Equal(t, domain.RecordWeekly, ts.Kind)
	assert.Equal(t, "sprint week", ts.Notes)
	// 16 of 40 target hours
	assert.InDelta(t, 40.0, ts.Percentage, 0.001)
	assert.Equal(t, []string{"timesheet.updated"}, f.events.Types())
}

func TestSubmitEntries_DailyCadenceUsesSingleDayWindow(t *testing.T) {
	f := newTimesheetFixture(t)
	f.placements.Placements["asha@example.com"] = []domain.Placement{
		{EmploymentType: "Full-time", WorkingCadence: "DAILY"},
	}

	// A Wednesday is a fine anchor for a daily record
	ts, err := f.svc.SubmitEntries(context.Background(), "emp-1", SubmitRequest{
		Date:    util.Date(2024, 6, 5),
		Working: []domain.Entry{workEntry(5, 8)},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RecordDaily, ts.Kind)
	assert.Equal(t, util.Date(2024, 6, 5), ts.WeekStart)
	assert.Equal(t, util.Date(2024, 6, 5), ts.WeekEnd)
	assert.InDelta(t, 100.0, ts.Percentage, 0.001)
}

func TestSubmitEntries_ResubmissionReplacesSameDates(t *testing.T) {
	f := newTimesheetFixture(t)
	_, err := f.svc.SubmitEntries(context.Background(), "emp-1", SubmitRequest{
		Date:    util.Date(2024, 6, 3),
		Working: []domain.Entry{workEntry(3, 8), workEntry(4, 8)},
	})
	require.NoError(t, err)

	ts, err := f.svc.SubmitEntries(context.Background(), "emp-1", SubmitRequest{
		Date:    util.Date(2024, 6, 3),
		Working: []domain.Entry{workEntry(4, 4), workEntry(5, 8)},
	})

	require.NoError(t, err)
	// Same record, not a new one
	assert.Equal(t, "TMST00000001", ts.ID)
	require.Len(t, ts.Working, 3)
	byDate := map[string]domain.Entry{}
	for _, e := range ts.Working {
		byDate[e.DateKey()] = e
	}
	assert.Equal(t, "8", byDate["2024-06-03"].Hours.String())
	assert.Equal(t, "4", byDate["2024-06-04"].Hours.String())
	assert.Equal(t, "8", byDate["2024-06-05"].Hours.String())
}

func TestSubmitEntries_LeaveDaysConsumeLedgerUnits(t *testing.T) {
	f := newTimesheetFixture(t)

	ts, err := f.svc.SubmitEntries(context.Background(), "emp-1", SubmitRequest{
		Date:       util.Date(2024, 6, 3),
		Working:    []domain.Entry{workEntry(3, 8), workEntry(4, 8), workEntry(5, 8)},
		NonWorking: []domain.Entry{leaveEntry(6, 8), leaveEntry(7, 8)},
	})

	require.NoError(t, err)
	require.Len(t, ts.NonWorking, 2)
	stored := f.balances.Balances["emp-1"]
	assert.Equal(t, 8, stored.Available)
	assert.Equal(t, 2, stored.Taken)
}

func TestSubmitEntries_HalfDayLeavesRoundToLedgerUnits(t *testing.T) {
	f := newTimesheetFixture(t)

	_, err := f.svc.SubmitEntries(context.Background(), "emp-1", SubmitRequest{
		Date:       util.Date(2024, 6, 3),
		Working:    []domain.Entry{workEntry(3, 8), workEntry(4, 8), workEntry(5, 8)},
		NonWorking: []domain.Entry{leaveEntry(6, 4), leaveEntry(7, 4)},
	})

	require.NoError(t, err)
	// Two half days make one leave unit
	stored := f.balances.Balances["emp-1"]
	assert.Equal(t, 9, stored.Available)
	assert.Equal(t, 1, stored.Taken)
}

func TestSubmitEntries_WorkCancelsLeaveAndRefunds(t *testing.T) {
	f := newTimesheetFixture(t)
	_, err := f.svc.SubmitEntries(context.Background(), "emp-1", SubmitRequest{
		Date:       util.Date(2024, 6, 3),
		NonWorking: []domain.Entry{leaveEntry(6, 8), leaveEntry(7, 8)},
	})
	require.NoError(t, err)
	require.Equal(t, 8, f.balances.Balances["emp-1"].Available)

	// Working on one of the leave days displaces that leave entry
	ts, err := f.svc.SubmitEntries(context.Background(), "emp-1", SubmitRequest{
		Date:    util.Date(2024, 6, 3),
		Working: []domain.Entry{workEntry(6, 8)},
	})

	require.NoError(t, err)
	require.Len(t, ts.NonWorking, 1)
	assert.Equal(t, "2024-06-07", ts.NonWorking[0].DateKey())
	stored := f.balances.Balances["emp-1"]
	assert.Equal(t, 9, stored.Available)
	assert.Equal(t, 1, stored.Taken)
}

func TestSubmitEntries_ImmutableStatusRefused(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000007", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status: domain.StatusPendingApproval, Version: 1,
	})

	_, err := f.svc.SubmitEntries(context.Background(), "emp-1", SubmitRequest{
		Date:    util.Date(2024, 6, 3),
		Working: []domain.Entry{workEntry(3, 8)},
	})

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSubmitEntries_ValidationProblemsCollected(t *testing.T) {
	f := newTimesheetFixture(t)

	_, err := f.svc.SubmitEntries(context.Background(), "emp-1", SubmitRequest{
		// A Wednesday is not a valid weekly anchor
		Date:    util.Date(2024, 6, 5),
		Working: []domain.Entry{workEntry(10, 8)}, // outside the anchored week either way
	})

	var v *domain.ValidationErrors
	require.ErrorAs(t, err, &v)
	assert.GreaterOrEqual(t, len(v.Fields), 2)
}

func TestSubmitEntries_UnknownEmployeeRefused(t *testing.T) {
	f := newTimesheetFixture(t)

	_, err := f.svc.SubmitEntries(context.Background(), "ghost", SubmitRequest{
		Date:    util.Date(2024, 6, 3),
		Working: []domain.Entry{workEntry(3, 8)},
	})

	var v *domain.ValidationErrors
	assert.ErrorAs(t, err, &v)
}

func TestSubmitEntries_DirectoryOutageDoesNotBlock(t *testing.T) {
	f := newTimesheetFixture(t)
	f.directory.Err = fmt.Errorf("%w: directory timeout", domain.ErrUpstreamUnavailable)

	// Falls back to the weekly default classification and still saves
	ts, err := f.svc.SubmitEntries(context.Background(), "emp-1", SubmitRequest{
		Date:    util.Date(2024, 6, 3),
		Working: []domain.Entry{workEntry(3, 8)},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RecordWeekly, ts.Kind)
}

func TestSubmitEntries_RetriesOnConflict(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000003", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status: domain.StatusDraft, Version: 1,
	})

	calls := 0
	f.repo.UpdateFn = func(ctx context.Context, ts *domain.Timesheet) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("%w: concurrent save", domain.ErrConflict)
		}
		f.repo.UpdateFn = nil
		return f.repo.Update(ctx, ts)
	}

	ts, err := f.svc.SubmitEntries(context.Background(), "emp-1", SubmitRequest{
		Date:    util.Date(2024, 6, 3),
		Working: []domain.Entry{workEntry(3, 8)},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "TMST00000003", ts.ID)
}

func TestMergeEntryFields_PatchesAndRecomputes(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000005", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status:  domain.StatusDraft, Version: 1,
		Working: domain.EntryList{workEntry(3, 8)},
	})

	newHours := decimal.NewFromInt(4)
	ts, err := f.svc.MergeEntryFields(context.Background(), "TMST00000005", "emp-1",
		[]domain.EntryPatch{{Date: util.Date(2024, 6, 3), Hours: &newHours}}, nil)

	require.NoError(t, err)
	require.Len(t, ts.Working, 1)
	assert.Equal(t, "4", ts.Working[0].Hours.String())
	assert.Equal(t, "acme", ts.Working[0].Project)
	assert.InDelta(t, 10.0, ts.Percentage, 0.001)
}

func TestMergeEntryFields_OwnershipEnforced(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000005", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status: domain.StatusDraft, Version: 1,
	})

	_, err := f.svc.MergeEntryFields(context.Background(), "TMST00000005", "someone-else", nil, nil)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSubmitForApproval_RequestsReview(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000002", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status: domain.StatusDraft, Version: 1,
	})

	ts, err := f.svc.SubmitForApproval(context.Background(), "TMST00000002", "emp-1")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, ts.Status)
	assert.Equal(t, []string{"TMST00000002"}, f.notifier.ApprovalRequests)
	assert.Len(t, f.notifier.LastOTP, 6)
	assert.Equal(t, []string{"timesheet.submitted"}, f.events.Types())
}

func TestSubmitForApproval_OwnershipEnforced(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000002", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status: domain.StatusDraft, Version: 1,
	})

	_, err := f.svc.SubmitForApproval(context.Background(), "TMST00000002", "someone-else")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	stored, getErr := f.repo.GetByID(context.Background(), "TMST00000002")
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusDraft, stored.Status)
}

func TestApprove_WithIssuedCode(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000002", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status: domain.StatusDraft, Version: 1,
	})
	_, err := f.svc.SubmitForApproval(context.Background(), "TMST00000002", "emp-1")
	require.NoError(t, err)

	ts, err := f.svc.Approve(context.Background(), "TMST00000002", "acct-1", f.notifier.LastOTP)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, ts.Status)
	assert.Equal(t, "Ben Accounts", ts.ApprovedBy)
	require.NotNil(t, ts.ApprovedAt)
	assert.Equal(t, []string{"asha@example.com"}, f.notifier.Approved)
	assert.Contains(t, f.events.Types(), "timesheet.approved")
}

func TestApprove_WrongCodeRefused(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000002", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status: domain.StatusDraft, Version: 1,
	})
	_, err := f.svc.SubmitForApproval(context.Background(), "TMST00000002", "emp-1")
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), "TMST00000002", "acct-1", "000000")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	// Record untouched
	stored, getErr := f.repo.GetByID(context.Background(), "TMST00000002")
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusPendingApproval, stored.Status)
}

func TestApprove_RoleAndIdentityChecks(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000002", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status: domain.StatusPendingApproval, Version: 1,
	})

	// Ordinary employees cannot approve
	_, err := f.svc.Approve(context.Background(), "TMST00000002", "emp-1", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Unknown actors are unauthorized
	_, err = f.svc.Approve(context.Background(), "TMST00000002", "ghost", "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Unlike submissions, a directory outage blocks approval
	f.directory.Err = fmt.Errorf("connection refused")
	_, err = f.svc.Approve(context.Background(), "TMST00000002", "acct-1", "")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestReject_RequiresReasonAndKeepsRecordEditable(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000002", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status: domain.StatusPendingApproval, Version: 1,
	})

	_, err := f.svc.Reject(context.Background(), "TMST00000002", "acct-1", "")
	var v *domain.ValidationErrors
	require.ErrorAs(t, err, &v)

	ts, err := f.svc.Reject(context.Background(), "TMST00000002", "acct-1", "missing Friday hours")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, ts.Status)
	assert.Equal(t, "missing Friday hours", ts.RejectionReason)
	assert.True(t, ts.Status.Mutable())
	assert.Equal(t, "missing Friday hours", f.notifier.LastRejectionNote)
}

func TestSubmitMonth_SkipsRecordsNotSubmittable(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000010", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status: domain.StatusDraft, Version: 1,
	})
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000011", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 10), WeekEnd: util.Date(2024, 6, 14),
		Status: domain.StatusApproved, Version: 1,
	})

	submitted, err := f.svc.SubmitMonth(context.Background(), "emp-1", util.Date(2024, 6, 1))

	require.NoError(t, err)
	require.Len(t, submitted, 1)
	assert.Equal(t, "TMST00000010", submitted[0].ID)
}

func TestSubmitMonth_RequiresFirstOfMonth(t *testing.T) {
	f := newTimesheetFixture(t)

	_, err := f.svc.SubmitMonth(context.Background(), "emp-1", util.Date(2024, 6, 15))

	var v *domain.ValidationErrors
	assert.ErrorAs(t, err, &v)
}

func TestSubmitMonth_NoRecordsIsNotFound(t *testing.T) {
	f := newTimesheetFixture(t)

	_, err := f.svc.SubmitMonth(context.Background(), "emp-1", util.Date(2024, 6, 1))

	assert.ErrorIs(t, err, domain.ErrTimesheetNotFound)
}

func TestApproveMonth_BulkWithSingleNotification(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000010", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status: domain.StatusPendingApproval, Version: 1,
	})
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000011", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 10), WeekEnd: util.Date(2024, 6, 14),
		Status: domain.StatusPendingApproval, Version: 1,
	})

	approved, err := f.svc.ApproveMonth(context.Background(), "emp-1",
		util.Date(2024, 6, 1), util.Date(2024, 6, 30), "acct-1")

	require.NoError(t, err)
	assert.Len(t, approved, 2)
	// One consolidated email, not one per week
	assert.Equal(t, []string{"asha@example.com"}, f.notifier.MonthApprovals)
	for _, ts := range approved {
		assert.Equal(t, "Ben Accounts", ts.ApprovedBy)
	}
}

func TestRejectMonth_SharedReason(t *testing.T) {
	f := newTimesheetFixture(t)
	f.repo.Add(&domain.Timesheet{
		ID: "TMST00000010", EmployeeID: "emp-1",
		WeekStart: util.Date(2024, 6, 3), WeekEnd: util.Date(2024, 6, 7),
		Status: domain.StatusPendingApproval, Version: 1,
	})

	rejected, err := f.svc.RejectMonth(context.Background(), "emp-1",
		util.Date(2024, 6, 1), util.Date(2024, 6, 30), "acct-1", "client dispute")

	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "client dispute", rejected[0].RejectionReason)
	assert.Equal(t, []string{"asha@example.com"}, f.notifier.MonthRejections)
}
