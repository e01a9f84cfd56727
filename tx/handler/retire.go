package handler

import (
	"context"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/keeperhq/tgov/state"
	"github.com/keeperhq/tgov/tx"
	"github.com/keeperhq/tgov/types"
)

type RetireTxHandler struct {
	logger cmtlog.Logger

	memberSet map[uint64]bool
}

func NewRetireTxHandler(logger cmtlog.Logger) (h *RetireTxHandler) {
	logger = logger.With("module", "retireTx")
	h = &RetireTxHandler{
		logger:    logger,
		memberSet: make(map[uint64]bool),
	}
	return
}

func (h *RetireTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	stx := btx.Tx.(*tx.RetireTx)
	_, err1 := st.Retire(stx, btx.Member, true)
	if err1 != nil {
		h.logger.Info("CheckTx retire fail", "err", err1)
		res.Code = 1
		res.Log = err1.Error()
	}
	return
}

func (h *RetireTxHandler) NewContext(ctx context.Context) {
	h.memberSet = make(map[uint64]bool)
}

func (h *RetireTxHandler) handle(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	if h.memberSet[btx.Member] {
		return nil, state.ErrOneActionInOneBlock
	}
	wtx := btx.Tx.(*tx.RetireTx)
	event, err := st.Retire(wtx, btx.Member, false)
	if err != nil {
		return nil, err
	}
	h.memberSet[btx.Member] = true
	res = &abcitypes.ExecTxResult{}
	if event != nil {
		res.Events = []abcitypes.Event{types.EncodeEventRetire(event)}
	}
	return
}

func (h *RetireTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *RetireTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
