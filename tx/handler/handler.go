package handler

import (
	"context"

	abcitypes "github.com/cometbft/cometbft/abci/types"

	"github.com/keeperhq/tgov/state"
	"github.com/keeperhq/tgov/tx"
)

// TxHandler is the per-type execution hook. Check runs against the committed
// state without mutating it; Prepare and Process run against the block's
// working state. NewContext resets any per-block bookkeeping.
type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error)
	NewContext(ctx context.Context)
	Prepare(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error)
	Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error)
}
