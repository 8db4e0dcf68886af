package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransition(t *testing.T) {
	assert.True(t, StatusDraft.CanTransition(StatusPendingApproval))
	assert.True(t, StatusPendingApproval.CanTransition(StatusApproved))
	assert.True(t, StatusPendingApproval.CanTransition(StatusRejected))
	// Correction loop: rejected records go back through review
	assert.True(t, StatusRejected.CanTransition(StatusPendingApproval))

	// Approved is terminal
	assert.False(t, StatusApproved.CanTransition(StatusDraft))
	assert.False(t, StatusApproved.CanTransition(StatusPendingApproval))
	// No skipping review
	assert.False(t, StatusDraft.CanTransition(StatusApproved))
	assert.False(t, StatusRejected.CanTransition(StatusApproved))
}

func TestStatus_Mutable(t *testing.T) {
	assert.True(t, StatusDraft.Mutable())
	assert.True(t, StatusRejected.Mutable())
	assert.False(t, StatusPendingApproval.Mutable())
	assert.False(t, StatusApproved.Mutable())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("APPROVED")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s)

	// The report-only pseudo status is not accepted at the boundary
	_, err = ParseStatus("NO_TIMESHEET")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseStatus("draft")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStatusPriority_LeastProgressedWins(t *testing.T) {
	assert.Less(t, StatusPriority(StatusDraft), StatusPriority(StatusPendingApproval))
	assert.Less(t, StatusPriority(StatusPendingApproval), StatusPriority(StatusRejected))
	assert.Less(t, StatusPriority(StatusRejected), StatusPriority(StatusApproved))
	assert.Greater(t, StatusPriority(StatusNoTimesheet), StatusPriority(StatusApproved))
}

func TestTimesheet_Transition(t *testing.T) {
	ts := &Timesheet{Status: StatusDraft}

	require.NoError(t, ts.Transition(StatusPendingApproval))
	assert.Equal(t, StatusPendingApproval, ts.Status)

	err := ts.Transition(StatusDraft)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	// Status unchanged after a refused transition
	assert.Equal(t, StatusPendingApproval, ts.Status)
}

func TestFormatTimesheetID(t *testing.T) {
	assert.Equal(t, "TMST00000042", FormatTimesheetID(42))
	assert.Equal(t, "TMST00000001", FormatTimesheetID(1))
}

func TestLeaveBalance_Balance(t *testing.T) {
	entitled := &LeaveBalance{Available: 5, Taken: 2}
	assert.True(t, entitled.Entitled())
	assert.Equal(t, 3, entitled.Balance())

	overdrawn := &LeaveBalance{Available: 1, Taken: 4}
	assert.Equal(t, 0, overdrawn.Balance())

	notEntitled := &LeaveBalance{Available: NotEntitledSentinel, Taken: 3}
	assert.False(t, notEntitled.Entitled())
	assert.Equal(t, 0, notEntitled.Balance())
}

func TestClassificationFromPlacements(t *testing.T) {
	c := ClassificationFromPlacements([]Placement{
		{EmploymentType: "Full-time", WorkingCadence: "DAILY", ClientName: "Acme"},
		{EmploymentType: "Contract", WorkingCadence: "WEEKLY"},
	})
	// First placement wins
	assert.Equal(t, RecordDaily, c.Cadence)
	assert.True(t, c.FullTime())
	assert.Equal(t, "Acme", c.ClientName)

	// No placements fall back to the weekly, not-entitled default
	d := ClassificationFromPlacements(nil)
	assert.Equal(t, RecordWeekly, d.Cadence)
	assert.False(t, d.FullTime())
}

func TestIsFullTimeType_CaseInsensitive(t *testing.T) {
	assert.True(t, IsFullTimeType("Full-time"))
	assert.True(t, IsFullTimeType("FULL-TIME"))
	assert.False(t, IsFullTimeType("Contract"))
	assert.False(t, IsFullTimeType(""))
}
