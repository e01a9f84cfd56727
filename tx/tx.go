package tx

import (
	"encoding/json"

	"github.com/keeperhq/tgov/types"
)

// GovTx is the signed envelope carried in block txs. Member is the account
// index of the signer; the signature covers the JSON encoding of the
// envelope with the chain id spliced into the Sig slot (see SigData).
type GovTx struct {
	Version uint8     `json:"version"`
	Type    GovTxType `json:"type"`
	Nonce   uint64    `json:"nonce"`
	Member  uint64    `json:"member"`
	Tx      any       `json:"tx"`
	Sig     [][]byte  `json:"sig"`
}

// ProposalTx submits a governance action for a committee vote.
type ProposalTx struct {
	Type    types.ProposalType `json:"type"`
	Payload []byte             `json:"payload"`
}

// VoteTx casts the signer's single vote on an active proposal.
type VoteTx struct {
	Proposal uint64 `json:"proposal"`
	Support  bool   `json:"support"`
}

// DepositTx adds funds to the shared deposit pool.
type DepositTx struct {
	Amount uint64 `json:"amount"`
}

// WorkUnitTx enqueues a capacity request to be filled from the pool.
type WorkUnitTx struct {
	Capacity uint64 `json:"capacity"`
}

// RetireTx withdraws the signer's full bond, leaving the committee.
type RetireTx struct {
	Amount uint64 `json:"amount"`
}

// BootstrapTx sets the quorum threshold directly while the bootstrap switch
// is still open; Seal closes the switch for good.
type BootstrapTx struct {
	ThresholdBps uint64 `json:"threshold_bps"`
	Seal         bool   `json:"seal"`
}

type govTxTmpl[Tx any] struct {
	Version uint8     `json:"version"`
	Type    GovTxType `json:"type"`
	Nonce   uint64    `json:"nonce"`
	Member  uint64    `json:"member"`
	Tx      Tx        `json:"tx"`
	Sig     [][]byte  `json:"sig"`
}

func (tx *GovTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = [][]byte{ext}
	dat, err = json.Marshal(ntx)
	return
}

func parseGovTxType(dat []byte) GovTxType {
	var tx struct {
		Type GovTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return GovTxTypeUnknown
	}
	return tx.Type
}

func unmarshalGovTx[Tx any](dat []byte) (btx *GovTx, err error) {
	var txt govTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	btx = new(GovTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Member = txt.Member
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalGovTx(dat []byte) (btx *GovTx, err error) {
	tp := parseGovTxType(dat)
	switch tp {
	case GovTxTypeProposal:
		return unmarshalGovTx[ProposalTx](dat)
	case GovTxTypeVote:
		return unmarshalGovTx[VoteTx](dat)
	case GovTxTypeDeposit:
		return unmarshalGovTx[DepositTx](dat)
	case GovTxTypeWorkUnit:
		return unmarshalGovTx[WorkUnitTx](dat)
	case GovTxTypeRetire:
		return unmarshalGovTx[RetireTx](dat)
	case GovTxTypeBootstrap:
		return unmarshalGovTx[BootstrapTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalGovTx(btx *GovTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
