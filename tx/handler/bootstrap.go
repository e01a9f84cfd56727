package handler

import (
	"context"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/keeperhq/tgov/state"
	"github.com/keeperhq/tgov/tx"
)

type BootstrapTxHandler struct {
	logger cmtlog.Logger
}

func NewBootstrapTxHandler(logger cmtlog.Logger) (h *BootstrapTxHandler) {
	logger = logger.With("module", "bootstrapTx")
	h = &BootstrapTxHandler{
		logger: logger,
	}
	return
}

func (h *BootstrapTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	stx := btx.Tx.(*tx.BootstrapTx)
	err1 := st.Bootstrap(stx, btx.Member, true)
	if err1 != nil {
		h.logger.Info("CheckTx bootstrap fail", "err", err1)
		res.Code = 1
		res.Log = err1.Error()
	}
	return
}

func (h *BootstrapTxHandler) NewContext(ctx context.Context) {}

func (h *BootstrapTxHandler) handle(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	wtx := btx.Tx.(*tx.BootstrapTx)
	err = st.Bootstrap(wtx, btx.Member, false)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{}
	return
}

func (h *BootstrapTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *BootstrapTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
