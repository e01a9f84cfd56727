package types

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	abci "github.com/cometbft/cometbft/abci/types"
)

const (
	EventProposalAddedType   = "proposal_added"
	EventProposalVotedType   = "proposal_voted"
	EventDepositType         = "deposit"
	EventWorkAssignedType    = "work_assigned"
	EventRetireType          = "retire"
	EventUpdateValidatorType = "update_validator"
)

// EventProposalAdded is the audit record emitted when a proposal id is
// allocated. Height doubles as the record timestamp.
type EventProposalAdded struct {
	Proposal uint64       `json:"proposal"`
	Proposer string       `json:"proposer"`
	Type     ProposalType `json:"type"`
	Payload  []byte       `json:"payload"`
	Height   uint64       `json:"height"`
}

func EncodeEventProposalAdded(event *EventProposalAdded) abci.Event {
	return abci.Event{
		Type: EventProposalAddedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "proposer", Value: event.Proposer, Index: true},
			{Key: "type", Value: fmt.Sprintf("%v", uint64(event.Type)), Index: false},
			{Key: "payload", Value: hex.EncodeToString(event.Payload), Index: false},
			{Key: "height", Value: fmt.Sprintf("%v", event.Height), Index: false},
		},
	}
}

func DecodeEventProposalAdded(originEvent abci.Event) *EventProposalAdded {
	event := &EventProposalAdded{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = proposal
		case "proposer":
			event.Proposer = v.Value
		case "type":
			tp, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Type = ProposalType(tp)
		case "payload":
			payload, err := hex.DecodeString(v.Value)
			if err != nil {
				return nil
			}
			event.Payload = payload
		case "height":
			height, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Height = height
		}
	}
	return event
}

type EventProposalVoted struct {
	Proposal uint64 `json:"proposal"`
	Voter    string `json:"voter"`
	Support  bool   `json:"support"`
	Height   uint64 `json:"height"`
}

func EncodeEventProposalVoted(event *EventProposalVoted) abci.Event {
	return abci.Event{
		Type: EventProposalVotedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "voter", Value: event.Voter, Index: true},
			{Key: "support", Value: fmt.Sprintf("%v", event.Support), Index: false},
			{Key: "height", Value: fmt.Sprintf("%v", event.Height), Index: false},
		},
	}
}

func DecodeEventProposalVoted(originEvent abci.Event) *EventProposalVoted {
	event := &EventProposalVoted{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = proposal
		case "voter":
			event.Voter = v.Value
		case "support":
			support, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Support = support
		case "height":
			height, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Height = height
		}
	}
	return event
}

type EventDeposit struct {
	Member string `json:"member"`
	Amount uint64 `json:"amount"`
	Pool   uint64 `json:"pool"`
	Height uint64 `json:"height"`
}

func EncodeEventDeposit(event *EventDeposit) abci.Event {
	return abci.Event{
		Type: EventDepositType,
		Attributes: []abci.EventAttribute{
			{Key: "member", Value: event.Member, Index: true},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "pool", Value: fmt.Sprintf("%v", event.Pool), Index: false},
			{Key: "height", Value: fmt.Sprintf("%v", event.Height), Index: false},
		},
	}
}

func DecodeEventDeposit(originEvent abci.Event) *EventDeposit {
	event := &EventDeposit{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "member":
			event.Member = v.Value
		case "amount":
			amount, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Amount = amount
		case "pool":
			pool, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Pool = pool
		case "height":
			height, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Height = height
		}
	}
	return event
}

type EventWorkAssigned struct {
	Unit     uint64 `json:"unit"`
	Owner    string `json:"owner"`
	Capacity uint64 `json:"capacity"`
	Pool     uint64 `json:"pool"`
	Height   uint64 `json:"height"`
}

func EncodeEventWorkAssigned(event *EventWorkAssigned) abci.Event {
	return abci.Event{
		Type: EventWorkAssignedType,
		Attributes: []abci.EventAttribute{
			{Key: "unit", Value: fmt.Sprintf("%v", event.Unit), Index: true},
			{Key: "owner", Value: event.Owner, Index: true},
			{Key: "capacity", Value: fmt.Sprintf("%v", event.Capacity), Index: false},
			{Key: "pool", Value: fmt.Sprintf("%v", event.Pool), Index: false},
			{Key: "height", Value: fmt.Sprintf("%v", event.Height), Index: false},
		},
	}
}

func DecodeEventWorkAssigned(originEvent abci.Event) *EventWorkAssigned {
	event := &EventWorkAssigned{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "unit":
			unit, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Unit = unit
		case "owner":
			event.Owner = v.Value
		case "capacity":
			capacity, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Capacity = capacity
		case "pool":
			pool, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Pool = pool
		case "height":
			height, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Height = height
		}
	}
	return event
}

type EventRetire struct {
	Member  uint64 `json:"memberIndex"`
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
	Height  uint64 `json:"height"`
}

func EncodeEventRetire(event *EventRetire) abci.Event {
	return abci.Event{
		Type: EventRetireType,
		Attributes: []abci.EventAttribute{
			{Key: "member", Value: fmt.Sprintf("%v", event.Member), Index: true},
			{Key: "addr", Value: event.Address, Index: false},
			{Key: "amount", Value: fmt.Sprintf("%v", event.Amount), Index: false},
			{Key: "height", Value: fmt.Sprintf("%v", event.Height), Index: false},
		},
	}
}

func DecodeEventRetire(originEvent abci.Event) *EventRetire {
	event := &EventRetire{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "member":
			member, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Member = member
		case "addr":
			event.Address = v.Value
		case "amount":
			amount, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Amount = amount
		case "height":
			height, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Height = height
		}
	}
	return event
}

type EventUpdateValidators struct {
	Updates []abci.ValidatorUpdate `json:"updates"`
}

func EncodeEventUpdateValidators(event *EventUpdateValidators) abci.Event {
	pks := make([]string, len(event.Updates))
	powers := make([]string, len(event.Updates))
	for i := range event.Updates {
		ed25519PK := event.Updates[i].PubKey.GetEd25519()
		pks[i] = hex.EncodeToString(ed25519PK)
		powers[i] = fmt.Sprintf("%v", event.Updates[i].Power)
	}
	return abci.Event{
		Type: EventUpdateValidatorType,
		Attributes: []abci.EventAttribute{
			{Key: "pks", Value: strings.Join(pks, ","), Index: false},
			{Key: "powers", Value: strings.Join(powers, ","), Index: false},
		},
	}
}

func DecodeEventUpdateValidators(originEvent abci.Event) *EventUpdateValidators {
	event := &EventUpdateValidators{
		Updates: []abci.ValidatorUpdate{},
	}
	pks := make([]string, 0)
	powers := make([]uint64, 0)
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "pks":
			pks = strings.Split(v.Value, ",")
		case "powers":
			powerStrs := strings.Split(v.Value, ",")
			for _, powerStr := range powerStrs {
				power, err := strconv.ParseUint(powerStr, 10, 64)
				if err != nil {
					return nil
				}
				powers = append(powers, power)
			}
		}
	}
	if len(pks) != len(powers) {
		return nil
	}
	for i := range pks {
		pk, err := hex.DecodeString(pks[i])
		if err != nil {
			return nil
		}
		event.Updates = append(event.Updates, abci.Ed25519ValidatorUpdate(pk, int64(powers[i])))
	}
	return event
}
