package state

import (
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"

	"github.com/keeperhq/tgov/tx"
	"github.com/keeperhq/tgov/types"
)

func newTestDB(t *testing.T) *StateDB {
	t.Helper()
	db, err := NewStateDB(t.TempDir(), cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func genMember(t *testing.T, stake uint64) (*Member, ed25519.PrivKey) {
	t.Helper()
	priv := ed25519.GenPrivKey()
	m := &Member{Stake: stake}
	m.SetPubKey(priv.PubKey().Bytes())
	return m, priv
}

// newCommittee seeds a working state with n trusted members.
func newCommittee(t *testing.T, n int) (*StateDB, *State, []*Member) {
	t.Helper()
	db := newTestDB(t)
	st := db.NewState()
	st.SetChainId("test-chain")
	members := make([]*Member, 0, n)
	for i := 0; i < n; i++ {
		m, _ := genMember(t, 1)
		require.NoError(t, st.AddAccount(m))
		members = append(members, m)
	}
	return db, st, members
}

func TestAddProposalSequentialIds(t *testing.T) {
	_, st, members := newCommittee(t, 3)

	for want := uint64(1); want <= 3; want++ {
		ev, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeBond}, members[0].Index, false)
		require.NoError(t, err)
		require.Equal(t, want, ev.Proposal)
	}
	require.Equal(t, uint64(3), st.ProposalCount())

	p, err := st.GetProposal(2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), p.Id)
	require.Equal(t, st.Header().Height+ProposalExpiryWindow, p.ExpiresAt)
	require.Zero(t, p.VotesFor)
	require.Zero(t, p.VotesAgainst)
}

func TestAddProposalAuthorization(t *testing.T) {
	_, st, _ := newCommittee(t, 1)

	retired, _ := genMember(t, 0)
	require.NoError(t, st.AddAccount(retired))

	_, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeBond}, retired.Index, false)
	require.ErrorIs(t, err, ErrNotAuthorized)

	// failed submissions never consume an id
	require.Zero(t, st.ProposalCount())

	_, err = st.AddProposal(&tx.ProposalTx{Type: types.ProposalType(99)}, st.Header().AccountIdx-2, false)
	require.Error(t, err)
	require.Zero(t, st.ProposalCount())
}

func TestGetProposalInvalidId(t *testing.T) {
	_, st, members := newCommittee(t, 1)

	_, err := st.GetProposal(0)
	require.ErrorIs(t, err, ErrInvalidProposalId)
	_, err = st.GetProposal(1)
	require.ErrorIs(t, err, ErrInvalidProposalId)

	_, err = st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeBond}, members[0].Index, false)
	require.NoError(t, err)
	_, err = st.GetProposal(1)
	require.NoError(t, err)
	_, err = st.GetProposal(2)
	require.ErrorIs(t, err, ErrInvalidProposalId)
}

func TestCastVoteTalliesAndReceipts(t *testing.T) {
	_, st, members := newCommittee(t, 4)

	ev, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeQuorum}, members[0].Index, false)
	require.NoError(t, err)
	id := ev.Proposal

	for i, support := range []bool{true, true, false} {
		vev, err := st.CastVote(&tx.VoteTx{Proposal: id, Support: support}, members[i].Index, false)
		require.NoError(t, err)
		require.Equal(t, support, vev.Support)
	}

	p, err := st.GetProposal(id)
	require.NoError(t, err)
	require.Equal(t, uint64(2), p.VotesFor)
	require.Equal(t, uint64(1), p.VotesAgainst)

	// each tally increment maps to exactly one receipt
	voted := 0
	for _, m := range members {
		rec, err := st.GetReceipt(id, m.Address())
		require.NoError(t, err)
		if rec.HasVoted {
			voted++
		}
	}
	require.Equal(t, int(p.VotesFor+p.VotesAgainst), voted)

	rec, err := st.GetReceipt(id, members[3].Address())
	require.NoError(t, err)
	require.False(t, rec.HasVoted)
}

func TestCastVoteDuplicate(t *testing.T) {
	_, st, members := newCommittee(t, 3)

	ev, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeBond}, members[0].Index, false)
	require.NoError(t, err)

	_, err = st.CastVote(&tx.VoteTx{Proposal: ev.Proposal, Support: true}, members[1].Index, false)
	require.NoError(t, err)
	_, err = st.CastVote(&tx.VoteTx{Proposal: ev.Proposal, Support: false}, members[1].Index, false)
	require.ErrorIs(t, err, ErrAlreadyVoted)

	p, err := st.GetProposal(ev.Proposal)
	require.NoError(t, err)
	require.Equal(t, uint64(1), p.VotesFor)
	require.Zero(t, p.VotesAgainst)
}

func TestCastVoteAuthorization(t *testing.T) {
	_, st, members := newCommittee(t, 2)

	retired, _ := genMember(t, 0)
	require.NoError(t, st.AddAccount(retired))

	ev, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeBond}, members[0].Index, false)
	require.NoError(t, err)

	_, err = st.CastVote(&tx.VoteTx{Proposal: ev.Proposal, Support: true}, retired.Index, false)
	require.ErrorIs(t, err, ErrNotAuthorized)

	_, err = st.CastVote(&tx.VoteTx{Proposal: 42, Support: true}, members[0].Index, false)
	require.ErrorIs(t, err, ErrInvalidProposalId)
}

func TestCastVoteOnCancelled(t *testing.T) {
	_, st, members := newCommittee(t, 3)

	ev, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeKick}, members[0].Index, false)
	require.NoError(t, err)
	require.NoError(t, st.CancelProposal(ev.Proposal))

	// the flag is one-way
	require.Error(t, st.CancelProposal(ev.Proposal))

	_, err = st.CastVote(&tx.VoteTx{Proposal: ev.Proposal, Support: true}, members[1].Index, false)
	require.ErrorIs(t, err, ErrVotingClosed)

	status, err := st.ProposalStatus(ev.Proposal)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStateCancelled, status)
}

func TestMarkExecutedOnce(t *testing.T) {
	_, st, members := newCommittee(t, 3)

	ev, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeBond}, members[0].Index, false)
	require.NoError(t, err)
	require.NoError(t, st.MarkExecuted(ev.Proposal))
	require.Error(t, st.MarkExecuted(ev.Proposal))
}

func TestRetireShrinksCommitteeKeepsVotes(t *testing.T) {
	_, st, members := newCommittee(t, 4)
	require.Equal(t, uint64(4), st.MemberCount())
	require.Equal(t, uint64(3), st.QuorumVotesRequired())

	ev, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeBond}, members[0].Index, false)
	require.NoError(t, err)
	_, err = st.CastVote(&tx.VoteTx{Proposal: ev.Proposal, Support: true}, members[3].Index, false)
	require.NoError(t, err)

	// partial withdrawal is rejected, retire is all or nothing
	_, err = st.Retire(&tx.RetireTx{Amount: 0}, members[3].Index, false)
	require.Error(t, err)

	rev, err := st.Retire(&tx.RetireTx{Amount: 1}, members[3].Index, false)
	require.NoError(t, err)
	require.Equal(t, uint64(1), rev.Amount)
	require.Equal(t, uint64(3), st.MemberCount())
	require.Equal(t, uint64(2), st.QuorumVotesRequired())

	// the cast vote stays on the tally after the voter is gone
	p, err := st.GetProposal(ev.Proposal)
	require.NoError(t, err)
	require.Equal(t, uint64(1), p.VotesFor)

	// and a retired member cannot act again
	_, err = st.Retire(&tx.RetireTx{Amount: 0}, members[3].Index, false)
	require.ErrorIs(t, err, ErrNotAuthorized)
	_, err = st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeBond}, members[3].Index, false)
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestQuorumFloorForSmallCommittee(t *testing.T) {
	_, st, _ := newCommittee(t, 2)
	// the denominator is pinned at the floor even with two members
	require.Equal(t, uint64(2), st.QuorumVotesRequired())
}

func TestBootstrap(t *testing.T) {
	_, st, members := newCommittee(t, 3)
	require.Equal(t, uint64(DefaultQuorumThresholdBps), st.QuorumThresholdBps())

	retired, _ := genMember(t, 0)
	require.NoError(t, st.AddAccount(retired))
	err := st.Bootstrap(&tx.BootstrapTx{ThresholdBps: 6000}, retired.Index, false)
	require.ErrorIs(t, err, ErrNotAuthorized)

	err = st.Bootstrap(&tx.BootstrapTx{ThresholdBps: 200}, members[0].Index, false)
	require.Error(t, err)

	err = st.Bootstrap(&tx.BootstrapTx{ThresholdBps: 6000}, members[0].Index, false)
	require.NoError(t, err)
	require.Equal(t, uint64(6000), st.QuorumThresholdBps())

	err = st.Bootstrap(&tx.BootstrapTx{Seal: true}, members[1].Index, false)
	require.NoError(t, err)
	require.True(t, st.BootstrapSealed())

	err = st.Bootstrap(&tx.BootstrapTx{ThresholdBps: 7000}, members[0].Index, false)
	require.ErrorIs(t, err, ErrSettingsDisabled)
	require.Equal(t, uint64(6000), st.QuorumThresholdBps())
}

func TestApplyGenesisSettings(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()

	require.Error(t, st.ApplyGenesisSettings(&types.GenesisAppState{QuorumThresholdBps: 100}))

	require.NoError(t, st.ApplyGenesisSettings(&types.GenesisAppState{
		QuorumThresholdBps: 7000,
		BootstrapSealed:    true,
	}))
	require.Equal(t, uint64(7000), st.QuorumThresholdBps())
	require.True(t, st.BootstrapSealed())

	// zero threshold keeps the default
	st2 := db.NewState()
	require.NoError(t, st2.ApplyGenesisSettings(&types.GenesisAppState{}))
	require.Equal(t, uint64(DefaultQuorumThresholdBps), st2.QuorumThresholdBps())
}

func TestProposalPersistence(t *testing.T) {
	db, st, members := newCommittee(t, 3)

	ev, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeBond, Payload: []byte{1, 2, 3}}, members[0].Index, false)
	require.NoError(t, err)
	_, err = st.CastVote(&tx.VoteTx{Proposal: ev.Proposal, Support: true}, members[1].Index, false)
	require.NoError(t, err)

	_, err = st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)

	next := db.NewState()
	p, err := next.GetProposal(ev.Proposal)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, p.Payload)
	require.Equal(t, uint64(1), p.VotesFor)

	rec, err := next.GetReceipt(ev.Proposal, members[1].Address())
	require.NoError(t, err)
	require.True(t, rec.HasVoted)
	require.True(t, rec.Supported)

	// height advances once committed
	require.Equal(t, st.Header().Height+1, next.Header().Height)
}

func TestVerify(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()
	st.SetChainId("test-chain")

	m, priv := genMember(t, 1)
	require.NoError(t, st.AddAccount(m))

	btx := &tx.GovTx{
		Version: tx.GovTxVersion1,
		Type:    tx.GovTxTypeDeposit,
		Nonce:   0,
		Member:  m.Index,
		Tx:      &tx.DepositTx{Amount: 5},
	}
	dat, err := btx.SigData([]byte("test-chain"))
	require.NoError(t, err)
	sig, err := priv.Sign(dat)
	require.NoError(t, err)
	btx.Sig = [][]byte{sig}

	ok, err := st.Verify(btx, false)
	require.NoError(t, err)
	require.True(t, ok)

	// nonce gaps only pass when allowed
	btx.Nonce = 7
	dat, err = btx.SigData([]byte("test-chain"))
	require.NoError(t, err)
	sig, err = priv.Sign(dat)
	require.NoError(t, err)
	btx.Sig = [][]byte{sig}
	_, err = st.Verify(btx, false)
	require.ErrorIs(t, err, ErrTxNonceInvalid)
	ok, err = st.Verify(btx, true)
	require.NoError(t, err)
	require.True(t, ok)

	// a signature over different bytes fails
	btx.Nonce = 0
	_, err = st.Verify(btx, false)
	require.ErrorIs(t, err, ErrTxSigInvalid)
}

func TestLapsedProposals(t *testing.T) {
	_, st, members := newCommittee(t, 3)

	ev1, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeBond}, members[0].Index, false)
	require.NoError(t, err)
	ev2, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeKick}, members[1].Index, false)
	require.NoError(t, err)
	_, err = st.CastVote(&tx.VoteTx{Proposal: ev1.Proposal, Support: true}, members[0].Index, false)
	require.NoError(t, err)
	_, err = st.CastVote(&tx.VoteTx{Proposal: ev1.Proposal, Support: true}, members[1].Index, false)
	require.NoError(t, err)

	// inside the window nothing has lapsed, whatever the tally
	lapsed, err := st.LapsedProposals()
	require.NoError(t, err)
	require.Empty(t, lapsed)
	require.Equal(t, types.ProposalStateActive, st.Status(mustProposal(t, st, ev1.Proposal)))

	st.Header().Height += ProposalExpiryWindow + 1
	lapsed, err = st.LapsedProposals()
	require.NoError(t, err)
	require.Len(t, lapsed, 2)
	require.Equal(t, ev1.Proposal, lapsed[0].Id)
	require.Equal(t, ev2.Proposal, lapsed[1].Id)
	require.Equal(t, types.ProposalStateSucceeded, st.Status(lapsed[0]))
	require.Equal(t, types.ProposalStateDefeated, st.Status(lapsed[1]))

	// the cursor only moves forward; nothing is reported twice
	lapsed, err = st.LapsedProposals()
	require.NoError(t, err)
	require.Empty(t, lapsed)
}

func mustProposal(t *testing.T, st *State, id uint64) *types.Proposal {
	t.Helper()
	p, err := st.GetProposal(id)
	require.NoError(t, err)
	return p
}

func TestRetireDropsValidatorPower(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()
	st.SetChainId("test-chain")

	// one bond unit of stake rounds to zero power, so bond at the ratio
	stake := uint64(2000000000)
	members := make([]*Member, 3)
	for i := range members {
		m, _ := genMember(t, stake)
		require.NoError(t, st.AddAccount(m))
		members[i] = m
	}
	_, err := st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)

	st = db.NewState()
	curVals, err := st.Validators()
	require.NoError(t, err)
	require.Len(t, curVals, 3)

	_, err = st.Retire(&tx.RetireTx{Amount: stake}, members[2].Index, false)
	require.NoError(t, err)
	_, err = st.Update()
	require.NoError(t, err)

	updates, err := st.ValidatorsUpdate(curVals)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.Equal(t, int64(0), updates[0].Power)
	require.Equal(t, members[2].PubKey, updates[0].PubKey.GetEd25519())
}

func TestCloneIsolation(t *testing.T) {
	_, st, members := newCommittee(t, 3)

	cl := st.Clone()
	ev, err := cl.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeBond}, members[0].Index, false)
	require.NoError(t, err)
	require.Equal(t, uint64(1), ev.Proposal)

	// the original never saw the clone's writes
	require.Zero(t, st.ProposalCount())
	_, err = st.GetProposal(1)
	require.ErrorIs(t, err, ErrInvalidProposalId)
}
