package handler

import (
	"context"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/keeperhq/tgov/state"
	"github.com/keeperhq/tgov/tx"
	"github.com/keeperhq/tgov/types"
)

type DepositTxHandler struct {
	logger cmtlog.Logger
}

func NewDepositTxHandler(logger cmtlog.Logger) (h *DepositTxHandler) {
	logger = logger.With("module", "depositTx")
	h = &DepositTxHandler{
		logger: logger,
	}
	return
}

func (h *DepositTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	stx := btx.Tx.(*tx.DepositTx)
	_, err1 := st.Deposit(stx, btx.Member, true)
	if err1 != nil {
		h.logger.Info("CheckTx deposit fail", "err", err1)
		res.Code = 1
		res.Log = err1.Error()
	}
	return
}

func (h *DepositTxHandler) NewContext(ctx context.Context) {}

func (h *DepositTxHandler) handle(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	wtx := btx.Tx.(*tx.DepositTx)
	event, err := st.Deposit(wtx, btx.Member, false)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{}
	if event != nil {
		res.Events = []abcitypes.Event{types.EncodeEventDeposit(event)}
	}
	return
}

func (h *DepositTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *DepositTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
