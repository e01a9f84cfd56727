package handler

import (
	"context"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/keeperhq/tgov/state"
	"github.com/keeperhq/tgov/tx"
)

type WorkUnitTxHandler struct {
	logger cmtlog.Logger
}

func NewWorkUnitTxHandler(logger cmtlog.Logger) (h *WorkUnitTxHandler) {
	logger = logger.With("module", "workUnitTx")
	h = &WorkUnitTxHandler{
		logger: logger,
	}
	return
}

func (h *WorkUnitTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	stx := btx.Tx.(*tx.WorkUnitTx)
	err1 := st.AddWorkUnit(stx, btx.Member, true)
	if err1 != nil {
		h.logger.Info("CheckTx work unit fail", "err", err1)
		res.Code = 1
		res.Log = err1.Error()
	}
	return
}

func (h *WorkUnitTxHandler) NewContext(ctx context.Context) {}

func (h *WorkUnitTxHandler) handle(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	wtx := btx.Tx.(*tx.WorkUnitTx)
	err = st.AddWorkUnit(wtx, btx.Member, false)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{}
	return
}

func (h *WorkUnitTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *WorkUnitTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
