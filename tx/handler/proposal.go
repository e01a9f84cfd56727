package handler

import (
	"context"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/keeperhq/tgov/state"
	"github.com/keeperhq/tgov/tx"
	"github.com/keeperhq/tgov/types"
)

type ProposalTxHandler struct {
	logger cmtlog.Logger

	memberSet map[uint64]bool
}

func NewProposalTxHandler(logger cmtlog.Logger) (h *ProposalTxHandler) {
	logger = logger.With("module", "proposalTx")
	h = &ProposalTxHandler{
		logger:    logger,
		memberSet: make(map[uint64]bool),
	}
	return
}

func (h *ProposalTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	stx := btx.Tx.(*tx.ProposalTx)
	_, err1 := st.AddProposal(stx, btx.Member, true)
	if err1 != nil {
		h.logger.Info("CheckTx proposal fail", "err", err1)
		res.Code = 1
		res.Log = err1.Error()
	}
	return
}

func (h *ProposalTxHandler) NewContext(ctx context.Context) {
	h.memberSet = make(map[uint64]bool)
}

func (h *ProposalTxHandler) handle(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	if _, ok := h.memberSet[btx.Member]; ok {
		return nil, state.ErrOneActionInOneBlock
	}
	wtx := btx.Tx.(*tx.ProposalTx)
	event, err := st.AddProposal(wtx, btx.Member, false)
	if err != nil {
		return nil, err
	}
	h.memberSet[btx.Member] = true
	res = &abcitypes.ExecTxResult{}
	if event != nil {
		res.Events = []abcitypes.Event{types.EncodeEventProposalAdded(event)}
	}
	return
}

func (h *ProposalTxHandler) Prepare(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *ProposalTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}
