package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keeperhq/tgov/tx"
)

func TestDeposit(t *testing.T) {
	_, st, members := newCommittee(t, 2)

	ev, err := st.Deposit(&tx.DepositTx{Amount: 10}, members[0].Index, false)
	require.NoError(t, err)
	require.Equal(t, uint64(10), ev.Pool)

	ev, err = st.Deposit(&tx.DepositTx{Amount: 5}, members[1].Index, false)
	require.NoError(t, err)
	require.Equal(t, uint64(15), ev.Pool)
	require.Equal(t, uint64(15), st.PoolBalance())

	_, err = st.Deposit(&tx.DepositTx{Amount: 0}, members[0].Index, false)
	require.Error(t, err)

	retired, _ := genMember(t, 0)
	require.NoError(t, st.AddAccount(retired))
	_, err = st.Deposit(&tx.DepositTx{Amount: 3}, retired.Index, false)
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestWaitingWorkUnitsOrder(t *testing.T) {
	_, st, members := newCommittee(t, 1)
	m := members[0].Index

	for _, capacity := range []uint64{5, 10, 7, 10} {
		require.NoError(t, st.AddWorkUnit(&tx.WorkUnitTx{Capacity: capacity}, m, false))
	}

	units, err := st.WaitingWorkUnits()
	require.NoError(t, err)
	require.Len(t, units, 4)

	// largest capacity first, equal capacities in arrival order
	require.Equal(t, uint64(10), units[0].Capacity)
	require.Equal(t, uint64(10), units[1].Capacity)
	require.Less(t, units[0].Seq, units[1].Seq)
	require.Equal(t, uint64(7), units[2].Capacity)
	require.Equal(t, uint64(5), units[3].Capacity)
}

func TestMatchWorkStrictHeadOrder(t *testing.T) {
	_, st, members := newCommittee(t, 1)
	m := members[0].Index

	_, err := st.Deposit(&tx.DepositTx{Amount: 7}, m, false)
	require.NoError(t, err)
	for _, capacity := range []uint64{5, 10, 7} {
		require.NoError(t, st.AddWorkUnit(&tx.WorkUnitTx{Capacity: capacity}, m, false))
	}

	// the head wants 10, the pool holds 7: nothing behind it may jump the queue
	events, err := st.MatchWork()
	require.NoError(t, err)
	require.Empty(t, events)
	require.Equal(t, uint64(7), st.PoolBalance())

	_, err = st.Deposit(&tx.DepositTx{Amount: 10}, m, false)
	require.NoError(t, err)

	events, err = st.MatchWork()
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, uint64(10), events[0].Capacity)
	require.Equal(t, uint64(7), events[1].Capacity)
	require.Equal(t, uint64(0), st.PoolBalance())

	units, err := st.WaitingWorkUnits()
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, uint64(5), units[0].Capacity)
}

func TestMatchWorkExactDrain(t *testing.T) {
	_, st, members := newCommittee(t, 1)
	m := members[0].Index

	_, err := st.Deposit(&tx.DepositTx{Amount: 6}, m, false)
	require.NoError(t, err)
	require.NoError(t, st.AddWorkUnit(&tx.WorkUnitTx{Capacity: 4}, m, false))
	require.NoError(t, st.AddWorkUnit(&tx.WorkUnitTx{Capacity: 2}, m, false))

	events, err := st.MatchWork()
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Zero(t, st.PoolBalance())
	require.Equal(t, uint64(2), events[0].Pool)
	require.Zero(t, events[1].Pool)
}

func TestWorkQueueSurvivesCommit(t *testing.T) {
	db, st, members := newCommittee(t, 1)
	m := members[0].Index

	require.NoError(t, st.AddWorkUnit(&tx.WorkUnitTx{Capacity: 9}, m, false))
	_, err := st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)

	next := db.NewState()
	units, err := next.WaitingWorkUnits()
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, uint64(9), units[0].Capacity)

	// assignment removes the unit from the persisted queue
	_, err = next.Deposit(&tx.DepositTx{Amount: 9}, m, false)
	require.NoError(t, err)
	events, err := next.MatchWork()
	require.NoError(t, err)
	require.Len(t, events, 1)

	_, err = next.Update()
	require.NoError(t, err)
	_, err = db.SetState(next)
	require.NoError(t, err)

	last := db.NewState()
	units, err = last.WaitingWorkUnits()
	require.NoError(t, err)
	require.Empty(t, units)
}
