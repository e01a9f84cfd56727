package types

import (
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/stretchr/testify/require"
)

func TestEventProposalAddedRoundTrip(t *testing.T) {
	ev := &EventProposalAdded{
		Proposal: 12,
		Proposer: "A0B1C2",
		Type:     ProposalTypeQuorum,
		Payload:  []byte{0xde, 0xad},
		Height:   400,
	}
	enc := EncodeEventProposalAdded(ev)
	require.Equal(t, EventProposalAddedType, enc.Type)
	got := DecodeEventProposalAdded(enc)
	require.Equal(t, ev, got)
}

func TestEventWorkAssignedRoundTrip(t *testing.T) {
	ev := &EventWorkAssigned{
		Unit:     3,
		Owner:    "A0B1C2",
		Capacity: 70,
		Pool:     30,
		Height:   12,
	}
	got := DecodeEventWorkAssigned(EncodeEventWorkAssigned(ev))
	require.Equal(t, ev, got)
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	ev := abci.Event{
		Type: EventProposalVotedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: "not-a-number"},
		},
	}
	require.Nil(t, DecodeEventProposalVoted(ev))
}
