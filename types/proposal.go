package types

// Proposal is the persisted record of one governance action submitted by a
// trusted member. Tallies and the one-way flags are the only fields that
// change after creation.
type Proposal struct {
	Id           uint64       `json:"id"`
	Type         ProposalType `json:"type"`
	Proposer     string       `json:"proposer"`
	Payload      []byte       `json:"payload"`
	CreatedAt    uint64       `json:"created_at"`
	ExpiresAt    uint64       `json:"expires_at"`
	VotesFor     uint64       `json:"votes_for"`
	VotesAgainst uint64       `json:"votes_against"`
	Cancelled    bool         `json:"cancelled"`
	Executed     bool         `json:"executed"`
}

// VoteReceipt records one member's vote on one proposal. HasVoted only ever
// flips false to true; Supported is meaningful once HasVoted is set.
type VoteReceipt struct {
	HasVoted  bool `json:"has_voted"`
	Supported bool `json:"supported"`
}

// WorkUnit is a pending capacity request waiting in the deposit queue.
type WorkUnit struct {
	Seq      uint64 `json:"seq"`
	Owner    string `json:"owner"`
	Capacity uint64 `json:"capacity"`
	Height   uint64 `json:"height"`
}

type ProposalType uint64

const (
	ProposalTypeInvite ProposalType = iota + 1
	ProposalTypeLeave
	ProposalTypeReplace
	ProposalTypeKick
	ProposalTypeBond
	ProposalTypeQuorum
)

func (t ProposalType) Valid() bool {
	return t >= ProposalTypeInvite && t <= ProposalTypeQuorum
}

func (t ProposalType) String() string {
	switch t {
	case ProposalTypeInvite:
		return "invite"
	case ProposalTypeLeave:
		return "leave"
	case ProposalTypeReplace:
		return "replace"
	case ProposalTypeKick:
		return "kick"
	case ProposalTypeBond:
		return "bond"
	case ProposalTypeQuorum:
		return "quorum"
	}
	return "unknown"
}

type ProposalState uint64

const (
	ProposalStateActive ProposalState = iota + 1
	ProposalStateCancelled
	ProposalStateDefeated
	ProposalStateSucceeded
	ProposalStateExecuted
	// ProposalStateExpired is declared for wire compatibility but the status
	// derivation never yields it; a proposal past its window settles as
	// Defeated or Succeeded on tally alone.
	ProposalStateExpired
)

func (s ProposalState) String() string {
	switch s {
	case ProposalStateActive:
		return "active"
	case ProposalStateCancelled:
		return "cancelled"
	case ProposalStateDefeated:
		return "defeated"
	case ProposalStateSucceeded:
		return "succeeded"
	case ProposalStateExecuted:
		return "executed"
	case ProposalStateExpired:
		return "expired"
	}
	return "unknown"
}

// Terminal reports whether no further votes can land on a proposal in this
// state.
func (s ProposalState) Terminal() bool {
	return s != ProposalStateActive
}
