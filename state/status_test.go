package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keeperhq/tgov/types"
)

func TestStatusAt(t *testing.T) {
	const required = 2
	base := types.Proposal{
		Id:        1,
		CreatedAt: 100,
		ExpiresAt: 100 + ProposalExpiryWindow,
	}

	cases := []struct {
		name   string
		mut    func(p *types.Proposal)
		height uint64
		want   types.ProposalState
	}{
		{
			"fresh proposal is active",
			func(p *types.Proposal) {},
			100,
			types.ProposalStateActive,
		},
		{
			"active at the expiry boundary",
			func(p *types.Proposal) { p.VotesFor = 5 },
			100 + ProposalExpiryWindow,
			types.ProposalStateActive,
		},
		{
			"winning tally stays active inside the window",
			func(p *types.Proposal) { p.VotesFor = 10 },
			200,
			types.ProposalStateActive,
		},
		{
			"cancelled wins over everything",
			func(p *types.Proposal) {
				p.Cancelled = true
				p.Executed = true
				p.VotesFor = 10
			},
			100,
			types.ProposalStateCancelled,
		},
		{
			"cancelled after expiry",
			func(p *types.Proposal) {
				p.Cancelled = true
				p.VotesFor = 10
			},
			100 + ProposalExpiryWindow + 1,
			types.ProposalStateCancelled,
		},
		{
			"executed after expiry",
			func(p *types.Proposal) {
				p.Executed = true
				p.VotesFor = 10
			},
			100 + ProposalExpiryWindow + 1,
			types.ProposalStateExecuted,
		},
		{
			"tie defeats after expiry",
			func(p *types.Proposal) {
				p.VotesFor = 3
				p.VotesAgainst = 3
			},
			100 + ProposalExpiryWindow + 1,
			types.ProposalStateDefeated,
		},
		{
			"majority below quorum defeats after expiry",
			func(p *types.Proposal) {
				p.VotesFor = 1
				p.VotesAgainst = 0
			},
			100 + ProposalExpiryWindow + 1,
			types.ProposalStateDefeated,
		},
		{
			"majority at quorum succeeds after expiry",
			func(p *types.Proposal) {
				p.VotesFor = 2
				p.VotesAgainst = 1
			},
			100 + ProposalExpiryWindow + 1,
			types.ProposalStateSucceeded,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mut(&p)
			require.Equal(t, tc.want, StatusAt(&p, tc.height, required))
		})
	}
}

// A derivation is a pure read; asking twice at the same height must give the
// same answer, and no derived state ever yields Expired.
func TestStatusAtNeverExpired(t *testing.T) {
	p := types.Proposal{Id: 1, ExpiresAt: 50}
	for h := uint64(0); h < 120; h += 10 {
		got := StatusAt(&p, h, 2)
		require.Equal(t, got, StatusAt(&p, h, 2))
		require.NotEqual(t, types.ProposalStateExpired, got)
	}
}
