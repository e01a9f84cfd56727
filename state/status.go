package state

import (
	"github.com/keeperhq/tgov/types"
)

// StatusAt derives a proposal's lifecycle state from its stored fields, the
// current height and the votes required to pass. The precedence order is
// load-bearing: a cancelled proposal is Cancelled whatever its tally, and a
// proposal inside its voting window is Active whatever its tally. There is
// deliberately no Expired branch; a proposal past its window that was never
// executed settles as Defeated or Succeeded on tally alone.
func StatusAt(p *types.Proposal, height uint64, votesRequired uint64) types.ProposalState {
	switch {
	case p.Cancelled:
		return types.ProposalStateCancelled
	case height <= p.ExpiresAt:
		return types.ProposalStateActive
	case p.Executed:
		return types.ProposalStateExecuted
	case p.VotesFor <= p.VotesAgainst || p.VotesFor < votesRequired:
		return types.ProposalStateDefeated
	default:
		return types.ProposalStateSucceeded
	}
}
