package app

import (
	"context"
	"testing"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"

	"github.com/keeperhq/tgov/config"
	"github.com/keeperhq/tgov/state"
	"github.com/keeperhq/tgov/tx"
	"github.com/keeperhq/tgov/types"
)

func newTestApp(t *testing.T) *GovApp {
	t.Helper()
	app, err := NewGovApp(&config.GovAppConfig{Home: t.TempDir()}, cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(app.Stop)
	return app
}

// seedCommittee commits n trusted members and returns them with their keys.
func seedCommittee(t *testing.T, app *GovApp, n int) ([]*state.Member, []ed25519.PrivKey) {
	t.Helper()
	st := app.db.NewState()
	st.SetChainId("test-chain")
	members := make([]*state.Member, n)
	privs := make([]ed25519.PrivKey, n)
	for i := 0; i < n; i++ {
		priv := ed25519.GenPrivKey()
		m := &state.Member{Stake: 1}
		m.SetPubKey(priv.PubKey().Bytes())
		require.NoError(t, st.AddAccount(m))
		members[i] = m
		privs[i] = priv
	}
	_, err := st.Update()
	require.NoError(t, err)
	_, err = app.db.SetState(st)
	require.NoError(t, err)
	return members, privs
}

func signedTx(t *testing.T, priv ed25519.PrivKey, member uint64, nonce uint64, txType tx.GovTxType, payload any) []byte {
	t.Helper()
	btx := &tx.GovTx{
		Version: tx.GovTxVersion1,
		Type:    txType,
		Nonce:   nonce,
		Member:  member,
		Tx:      payload,
	}
	dat, err := btx.SigData([]byte("test-chain"))
	require.NoError(t, err)
	sig, err := priv.Sign(dat)
	require.NoError(t, err)
	btx.Sig = [][]byte{sig}
	raw, err := tx.MarshalGovTx(btx)
	require.NoError(t, err)
	return raw
}

// The working state carries nonce bumps forward inside a block, so the same
// signed tx cannot apply twice even when a proposer includes both copies.
func TestProcessRejectsReplayedTxInOneBlock(t *testing.T) {
	app := newTestApp(t)
	members, privs := seedCommittee(t, app, 1)

	raw := signedTx(t, privs[0], members[0].Index, 0, tx.GovTxTypeDeposit, &tx.DepositTx{Amount: 5})

	st := app.db.NewState()
	_, err := app.process(context.Background(), st, [][]byte{raw, raw})
	require.Error(t, err)

	st = app.db.NewState()
	res, err := app.process(context.Background(), st, [][]byte{raw})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, uint64(5), st.PoolBalance())
}

// PrepareProposal drops the duplicate instead of failing the block.
func TestPrepareProposalDropsReplayedTx(t *testing.T) {
	app := newTestApp(t)
	members, privs := seedCommittee(t, app, 1)

	raw := signedTx(t, privs[0], members[0].Index, 0, tx.GovTxTypeDeposit, &tx.DepositTx{Amount: 5})
	first := signedTx(t, privs[0], members[0].Index, 0, tx.GovTxTypeDeposit, &tx.DepositTx{Amount: 3})
	second := signedTx(t, privs[0], members[0].Index, 1, tx.GovTxTypeDeposit, &tx.DepositTx{Amount: 4})

	res, err := app.PrepareProposal(context.Background(), &abcitypes.RequestPrepareProposal{Txs: [][]byte{raw, raw}})
	require.NoError(t, err)
	require.Len(t, res.Txs, 1)

	// sequential nonces from one signer stay in the block
	res, err = app.PrepareProposal(context.Background(), &abcitypes.RequestPrepareProposal{Txs: [][]byte{first, second}})
	require.NoError(t, err)
	require.Len(t, res.Txs, 2)
}

type recordingExecutor struct {
	ids []uint64
}

func (r *recordingExecutor) OnSucceeded(st *state.State, p *types.Proposal) error {
	r.ids = append(r.ids, p.Id)
	return nil
}

// The executor fires exactly once, in the block where the voting window has
// lapsed with a passing tally, never while voting is still open.
func TestExecutorFiresAfterWindowLapse(t *testing.T) {
	app := newTestApp(t)
	members, _ := seedCommittee(t, app, 3)

	rec := &recordingExecutor{}
	app.exec = rec

	st := app.db.NewState()
	ev, err := st.AddProposal(&tx.ProposalTx{
		Type:    types.ProposalTypeInvite,
		Payload: ed25519.GenPrivKey().PubKey().Bytes(),
	}, members[0].Index, false)
	require.NoError(t, err)
	evBeaten, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeKick}, members[1].Index, false)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = st.CastVote(&tx.VoteTx{Proposal: ev.Proposal, Support: true}, members[i].Index, false)
		require.NoError(t, err)
	}
	_, err = st.CastVote(&tx.VoteTx{Proposal: evBeaten.Proposal, Support: false}, members[2].Index, false)
	require.NoError(t, err)

	// quorum reached but the window is still open
	app.checkSucceeded(st)
	require.Empty(t, rec.ids)

	st.Header().Height += state.ProposalExpiryWindow + 1
	app.checkSucceeded(st)
	require.Equal(t, []uint64{ev.Proposal}, rec.ids)

	// settled proposals are never revisited
	app.checkSucceeded(st)
	require.Equal(t, []uint64{ev.Proposal}, rec.ids)
}
