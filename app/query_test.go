package app

import (
	"context"
	"encoding/json"
	"testing"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"

	"github.com/keeperhq/tgov/tx"
	"github.com/keeperhq/tgov/types"
)

func TestQuorumQuerierReportsProposalCount(t *testing.T) {
	app := newTestApp(t)
	members, _ := seedCommittee(t, app, 3)

	st := app.db.NewState()
	_, err := st.AddProposal(&tx.ProposalTx{Type: types.ProposalTypeBond}, members[0].Index, false)
	require.NoError(t, err)
	_, err = st.Update()
	require.NoError(t, err)
	_, err = app.db.SetState(st)
	require.NoError(t, err)

	q := NewQuorumQuerier(app.db, cmtlog.NewNopLogger())
	res, err := q.Query(context.Background(), &abcitypes.RequestQuery{Path: "/quorum/"})
	require.NoError(t, err)
	require.Zero(t, res.Code)

	var info QuorumInfo
	require.NoError(t, json.Unmarshal(res.Value, &info))
	require.Equal(t, uint64(1), info.ProposalCount)
	require.Equal(t, uint64(3), info.MemberCount)
	require.Equal(t, uint64(2), info.VotesRequired)
	require.False(t, info.BootstrapSealed)
}
