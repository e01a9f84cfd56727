package handler

import (
	"context"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"

	"github.com/keeperhq/tgov/state"
	"github.com/keeperhq/tgov/tx"
	"github.com/keeperhq/tgov/types"
)

func newTestState(t *testing.T, members int) (*state.State, []uint64) {
	t.Helper()
	db, err := state.NewStateDB(t.TempDir(), cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := db.NewState()
	st.SetChainId("test-chain")
	idxs := make([]uint64, 0, members)
	for i := 0; i < members; i++ {
		m := &state.Member{Stake: 1}
		m.SetPubKey(ed25519.GenPrivKey().PubKey().Bytes())
		require.NoError(t, st.AddAccount(m))
		idxs = append(idxs, m.Index)
	}
	return st, idxs
}

func proposalTx(member uint64) *tx.GovTx {
	return &tx.GovTx{
		Version: tx.GovTxVersion1,
		Type:    tx.GovTxTypeProposal,
		Member:  member,
		Tx:      &tx.ProposalTx{Type: types.ProposalTypeBond},
	}
}

func TestProposalHandlerOnePerBlock(t *testing.T) {
	st, idxs := newTestState(t, 2)
	h := NewProposalTxHandler(cmtlog.NewNopLogger())
	ctx := context.Background()
	h.NewContext(ctx)

	res, err := h.Process(ctx, st, proposalTx(idxs[0]))
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Events, 1)
	require.Equal(t, types.EventProposalAddedType, res.Events[0].Type)

	// same member again in the same block
	_, err = h.Process(ctx, st, proposalTx(idxs[0]))
	require.ErrorIs(t, err, state.ErrOneActionInOneBlock)

	// a different member is fine
	_, err = h.Process(ctx, st, proposalTx(idxs[1]))
	require.NoError(t, err)

	// a fresh block clears the guard
	h.NewContext(ctx)
	_, err = h.Process(ctx, st, proposalTx(idxs[0]))
	require.NoError(t, err)

	require.Equal(t, uint64(3), st.ProposalCount())
}

func TestVoteHandlerDedupesByReceipt(t *testing.T) {
	st, idxs := newTestState(t, 3)
	ph := NewProposalTxHandler(cmtlog.NewNopLogger())
	vh := NewVoteTxHandler(cmtlog.NewNopLogger())
	ctx := context.Background()
	ph.NewContext(ctx)
	vh.NewContext(ctx)

	_, err := ph.Process(ctx, st, proposalTx(idxs[0]))
	require.NoError(t, err)

	voteTx := &tx.GovTx{
		Version: tx.GovTxVersion1,
		Type:    tx.GovTxTypeVote,
		Member:  idxs[1],
		Tx:      &tx.VoteTx{Proposal: 1, Support: true},
	}
	res, err := vh.Process(ctx, st, voteTx)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)

	_, err = vh.Process(ctx, st, voteTx)
	require.ErrorIs(t, err, state.ErrAlreadyVoted)

	// the receipt survives block boundaries, unlike the per-block guard
	vh.NewContext(ctx)
	_, err = vh.Process(ctx, st, voteTx)
	require.ErrorIs(t, err, state.ErrAlreadyVoted)
}

func TestCheckRejectsWithoutMutating(t *testing.T) {
	st, idxs := newTestState(t, 1)
	h := NewBootstrapTxHandler(cmtlog.NewNopLogger())
	ctx := context.Background()

	btx := &tx.GovTx{
		Version: tx.GovTxVersion1,
		Type:    tx.GovTxTypeBootstrap,
		Member:  idxs[0],
		Tx:      &tx.BootstrapTx{ThresholdBps: 100},
	}
	res, err := h.Check(ctx, st, btx)
	require.NoError(t, err)
	require.NotZero(t, res.Code)

	btx.Tx = &tx.BootstrapTx{ThresholdBps: 6000}
	res, err = h.Check(ctx, st, btx)
	require.NoError(t, err)
	require.Zero(t, res.Code)
	// Check never writes
	require.Equal(t, uint64(state.DefaultQuorumThresholdBps), st.QuorumThresholdBps())
}
