package state

import (
	"github.com/cometbft/cometbft/crypto/ed25519"

	"github.com/keeperhq/tgov/types"
)

// Executor applies the effect of a succeeded proposal. The governance core
// never invokes executors on its own: it records outcomes and exposes this
// seam for whichever component owns membership and settings mutation.
// Implementations should call MarkExecuted after applying side effects.
type Executor interface {
	OnSucceeded(st *State, p *types.Proposal) error
}

// InviteExecutor validates an invite target before admission. Admission
// itself is owned by the membership collaborator; this only performs the
// duplicate check and stops there.
type InviteExecutor struct{}

func (InviteExecutor) OnSucceeded(st *State, p *types.Proposal) error {
	if p.Type != types.ProposalTypeInvite {
		return nil
	}
	if len(p.Payload) != ed25519.PubKeySize {
		return ErrInvalidTarget
	}
	exists, err := st.existPubkey(p.Payload)
	if err != nil {
		return err
	}
	if exists {
		return ErrAccountAlreadyExists
	}
	return nil
}
