package tx

import "errors"

type GovTxType uint8

const (
	GovTxTypeUnknown   GovTxType = 0
	GovTxTypeProposal  GovTxType = 1
	GovTxTypeVote      GovTxType = 2
	GovTxTypeDeposit   GovTxType = 3
	GovTxTypeWorkUnit  GovTxType = 4
	GovTxTypeRetire    GovTxType = 5
	GovTxTypeBootstrap GovTxType = 6
)

const (
	GovTxVersion0 uint8 = 0
	GovTxVersion1 uint8 = 1
)

var (
	ErrInvalidTx         = errors.New("invalid tx")
	ErrUnsupportedTxType = errors.New("unsupported tx type")
	ErrUnmatchedTxType   = errors.New("unmatched tx type")

	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
)
