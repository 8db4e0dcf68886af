package service

import (
	"context"
	"testing"
	"time"

	"github.com/mulyahr/timesheet-backend/internal/testutil"
	"github.com/mulyahr/timesheet-backend/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLeaveService() (*LeaveService, *testutil.MockLeaveRepo, *testutil.MockCarryForwardRepo) {
	balances := testutil.NewMockLeaveRepo()
	carry := testutil.NewMockCarryForwardRepo()
	return NewLeaveService(balances, carry), balances, carry
}

func TestLeaveService_Initialize_FullTimeAccruesRemainingMonths(t *testing.T) {
	svc, _, _ := newLeaveService()

	// Joining in March leaves ten months of the year, March inclusive
	balance, err := svc.Initialize(context.Background(), "emp-1", "Asha", "Full-time", util.Date(2024, 3, 10), "system")

	require.NoError(t, err)
	assert.Equal(t, 10, balance.Available)
	assert.Equal(t, 0, balance.Taken)
	assert.True(t, balance.Entitled())
}

func TestLeaveService_Initialize_NonEntitledGetsSentinel(t *testing.T) {
	svc, _, _ := newLeaveService()

	balance, err := svc.Initialize(context.Background(), "emp-2", "Ben", "Contract", util.Date(2024, 3, 10), "system")

	require.NoError(t, err)
	assert.False(t, balance.Entitled())
	assert.Equal(t, 0, balance.Balance())
}

func TestLeaveService_Initialize_ExistingRowUntouched(t *testing.T) {
	svc, _, _ := newLeaveService()

	first, err := svc.Initialize(context.Background(), "emp-1", "Asha", "Full-time", util.Date(2024, 1, 15), "system")
	require.NoError(t, err)
	require.Equal(t, 12, first.Available)

	// A second initialization, even with different inputs, changes nothing
	second, err := svc.Initialize(context.Background(), "emp-1", "Asha", "Full-time", util.Date(2024, 6, 1), "system")
	require.NoError(t, err)
	assert.Equal(t, 12, second.Available)
}

func TestLeaveService_Consume_WithinBalance(t *testing.T) {
	svc, _, _ := newLeaveService()
	_, err := svc.Initialize(context.Background(), "emp-1", "Asha", "Full-time", util.Date(2024, 1, 1), "system")
	require.NoError(t, err)

	balance, unpaid, err := svc.Consume(context.Background(), "emp-1", 2, true, "emp-1")

	require.NoError(t, err)
	assert.Equal(t, 0, unpaid)
	assert.Equal(t, 10, balance.Available)
	assert.Equal(t, 2, balance.Taken)
}

func TestLeaveService_Consume_InsufficientBalanceIsSoft(t *testing.T) {
	svc, balances, _ := newLeaveService()
	_, err := svc.Initialize(context.Background(), "emp-1", "Asha", "Full-time", util.Date(2024, 12, 1), "system")
	require.NoError(t, err) // one unit available

	balance, unpaid, err := svc.Consume(context.Background(), "emp-1", 3, true, "emp-1")

	// Shortfall never blocks; the excess is reported as unpaid
	require.NoError(t, err)
	assert.Equal(t, 2, unpaid)
	assert.Equal(t, 0, balance.Available)
	assert.Equal(t, 3, balance.Taken)

	stored, err := balances.Get(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Available)
}

func TestLeaveService_Consume_NonEntitledAllUnpaid(t *testing.T) {
	svc, _, _ := newLeaveService()
	_, err := svc.Initialize(context.Background(), "emp-2", "Ben", "Contract", util.Date(2024, 1, 1), "system")
	require.NoError(t, err)

	balance, unpaid, err := svc.Consume(context.Background(), "emp-2", 2, false, "emp-2")

	require.NoError(t, err)
	assert.Equal(t, 2, unpaid)
	// The sentinel is never decremented; taken still accumulates
	assert.False(t, balance.Entitled())
	assert.Equal(t, 2, balance.Taken)
}

func TestLeaveService_Consume_CreatesRowLazily(t *testing.T) {
	svc, balances, _ := newLeaveService()

	balance, unpaid, err := svc.Consume(context.Background(), "emp-9", 1, true, "emp-9")

	require.NoError(t, err)
	assert.Equal(t, 1, unpaid) // lazily created with zero available
	assert.Equal(t, 1, balance.Taken)
	_, err = balances.Get(context.Background(), "emp-9")
	assert.NoError(t, err)
}

func TestLeaveService_ConsumeThenRefund_IsInverse(t *testing.T) {
	svc, _, _ := newLeaveService()
	initial, err := svc.Initialize(context.Background(), "emp-1", "Asha", "Full-time", util.Date(2024, 1, 1), "system")
	require.NoError(t, err)

	_, _, err = svc.Consume(context.Background(), "emp-1", 3, true, "emp-1")
	require.NoError(t, err)
	after, err := svc.Refund(context.Background(), "emp-1", 3, "emp-1")
	require.NoError(t, err)

	assert.Equal(t, initial.Available, after.Available)
	assert.Equal(t, initial.Taken, after.Taken)
}

func TestLeaveService_Refund_NonEntitledIsNoOp(t *testing.T) {
	svc, _, _ := newLeaveService()
	_, err := svc.Initialize(context.Background(), "emp-2", "Ben", "Contract", util.Date(2024, 1, 1), "system")
	require.NoError(t, err)
	_, _, err = svc.Consume(context.Background(), "emp-2", 2, false, "emp-2")
	require.NoError(t, err)

	balance, err := svc.Refund(context.Background(), "emp-2", 2, "emp-2")

	require.NoError(t, err)
	assert.Equal(t, 2, balance.Taken)
	assert.False(t, balance.Entitled())
}

func TestLeaveService_Refund_MissingRowIsNoOp(t *testing.T) {
	svc, _, _ := newLeaveService()

	balance, err := svc.Refund(context.Background(), "nobody", 2, "system")

	require.NoError(t, err)
	assert.Nil(t, balance)
}

func TestCarryForwardBaseline(t *testing.T) {
	// Joined 2024-03-10; computing June 2024: two full months accrued
	// (March->May), nothing consumed, plus the current-month unit.
	baseline := CarryForwardBaseline(util.Date(2024, 3, 10), util.Date(2024, 6, 1), util.Date(2024, 6, 30), 0)
	assert.Equal(t, 3, baseline)

	// Consumption reduces the carried part but never below zero
	assert.Equal(t, 1, CarryForwardBaseline(util.Date(2024, 3, 10), util.Date(2024, 6, 1), util.Date(2024, 6, 30), 5))

	// Joining after the month start accrues nothing
	assert.Equal(t, 0, CarryForwardBaseline(util.Date(2024, 7, 1), util.Date(2024, 6, 1), util.Date(2024, 6, 30), 0))

	// Unknown joining date accrues nothing
	assert.Equal(t, 0, CarryForwardBaseline(time.Time{}, util.Date(2024, 6, 1), util.Date(2024, 6, 30), 0))
}

func TestLeaveService_RecomputeMonth_FullTime(t *testing.T) {
	svc, balances, carry := newLeaveService()
	_, err := svc.Initialize(context.Background(), "emp-1", "Asha", "Full-time", util.Date(2024, 3, 10), "system")
	require.NoError(t, err)
	_, _, err = svc.Consume(context.Background(), "emp-1", 1, true, "emp-1")
	require.NoError(t, err)

	balance, err := svc.RecomputeMonth(context.Background(), "emp-1", "Asha", "Full-time",
		util.Date(2024, 3, 10), util.Date(2024, 6, 1), util.Date(2024, 6, 30), "month-end")

	require.NoError(t, err)
	// Baseline: 2 accrued - 1 consumed + 1 current = 2
	assert.Equal(t, 2, balance.Available)

	stored, err := balances.Get(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Available)

	snapshot, err := carry.Get(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, balance.Balance(), snapshot.Days)
}

func TestLeaveService_RecomputeMonth_NonEntitledKeepsSentinel(t *testing.T) {
	svc, _, carry := newLeaveService()

	balance, err := svc.RecomputeMonth(context.Background(), "emp-2", "Ben", "Contract",
		util.Date(2024, 1, 1), util.Date(2024, 6, 1), util.Date(2024, 6, 30), "month-end")

	require.NoError(t, err)
	assert.False(t, balance.Entitled())

	snapshot, err := carry.Get(context.Background(), "emp-2")
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.Days)
}
