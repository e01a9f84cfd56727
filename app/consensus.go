package app

import (
	"context"
	"errors"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/keeperhq/tgov/state"
	"github.com/keeperhq/tgov/tx"
	"github.com/keeperhq/tgov/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
)

func (app *GovApp) getState(blkHash *common.Hash) (st *state.State) {
	st = app.db.NewState()
	app.st = st
	return
}

// parseTx decodes and verifies an envelope against st. Block execution passes
// the working state, so a tx replayed inside one block fails the nonce check
// once the first copy has bumped the signer's nonce.
func (app *GovApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.GovTx, err error) {
	btx, err = tx.UnmarshalGovTx(txDat)
	if err != nil {
		return
	}
	if btx != nil {
		_, err = st.Verify(btx, allowNonceGap)
	}
	return
}

func (app *GovApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	btx, err := app.parseTx(app.db.State(), check.Tx, true)
	if err != nil {
		app.logger.Error("parse tx fail", "err", err)
		res.Code = 1
		res.Log = err.Error()
		err = nil
		return
	}
	app.logger.Info("check tx", "type", btx.Type)
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Error("unsupported tx", "type", btx.Type)
		res.Code = 1
		res.Log = "unsupported tx"
		return
	}
	st := app.db.State()
	res, err = h.Check(ctx, st, btx)
	if err != nil {
		app.logger.Error("check tx fail", "err", err)
		res.Code = 1
		res.Log = err.Error()
		err = nil
	}

	return
}

func (app *GovApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	app.logger.Info("PrepareProposal")
	st := app.getState(nil)
	for _, h := range app.txHdlrs {
		h.NewContext(ctx)
	}
	txs := make([][]byte, 0)
	for _, stx := range proposal.Txs {
		stTmp := st.Clone()
		btx, err := app.parseTx(stTmp, stx, false)
		if err != nil {
			app.logger.Error("unsupported tx, parse fail", "err", err)
			continue
		}
		h, ok := app.txHdlrs[btx.Type]
		if !ok {
			app.logger.Error("unsupported tx", "type", btx.Type)
			continue
		}
		result, err := h.Prepare(ctx, stTmp, btx)
		if err != nil {
			app.logger.Error("prepare tx fail", "type", btx.Type, "err", err)
			continue
		}
		if result == nil {
			app.logger.Error("prepare tx nil result", "type", btx.Type)
			continue
		}
		if result.Code != 0 {
			app.logger.Error("prepare tx fail", "type", btx.Type, "code", result.Code)
			continue
		}
		st = stTmp
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *GovApp) finalize(ctx context.Context, st *state.State, txs [][]byte) (res []*abcitypes.ExecTxResult, err error) {
	for _, h := range app.txHdlrs {
		h.NewContext(ctx)
	}
	res = make([]*abcitypes.ExecTxResult, len(txs))
	for i, stx := range txs {
		btx, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Error("unexpected tx, parse fail", "err", err)
			return nil, err
		}
		h, ok := app.txHdlrs[btx.Type]
		if !ok {
			app.logger.Error("unexpected tx, no handler", "type", btx.Type)
			err = ErrUnexpectedTxProcess
			return nil, err
		}
		result, err := h.Process(ctx, st, btx)
		if err != nil {
			app.logger.Error("unexpected process tx fail", "type", btx.Type, "err", err)
			err = ErrUnexpectedTxProcess
			return nil, err
		}
		if result == nil {
			app.logger.Error("unexpected process tx nil result", "type", btx.Type)
			err = ErrUnexpectedTxProcess
			return nil, err
		}
		if result.Code != 0 {
			app.logger.Error("unexpected process tx fail", "type", btx.Type, "code", result.Code)
			err = ErrUnexpectedTxProcess
			return nil, err
		}
		res[i] = result
	}
	return
}

func (app *GovApp) process(ctx context.Context, st *state.State, txs [][]byte) (res []*abcitypes.ExecTxResult, err error) {
	for _, h := range app.txHdlrs {
		h.NewContext(ctx)
	}
	res = make([]*abcitypes.ExecTxResult, len(txs))
	for i, stx := range txs {
		btx, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Error("unexpected tx, parse fail", "err", err)
			return nil, err
		}
		h, ok := app.txHdlrs[btx.Type]
		if !ok {
			app.logger.Error("unexpected tx, no handler", "type", btx.Type)
			err = ErrUnexpectedTxProcess
			return nil, err
		}
		result, err := h.Process(ctx, st, btx)
		if err != nil {
			app.logger.Error("unexpected process tx fail", "type", btx.Type, "err", err)
			err = ErrUnexpectedTxProcess
			return nil, err
		}
		if result == nil {
			app.logger.Error("unexpected process tx nil result", "type", btx.Type)
			err = ErrUnexpectedTxProcess
			return nil, err
		}
		if result.Code != 0 {
			app.logger.Error("unexpected process tx fail", "type", btx.Type, "code", result.Code)
			err = ErrUnexpectedTxProcess
			return nil, err
		}
		res[i] = result
	}
	return
}

func (app *GovApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	app.logger.Info("ProcessProposal")
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	if len(proposal.Txs) == 0 {
		res.Status = abcitypes.ResponseProcessProposal_ACCEPT
		return res, nil
	}
	st := app.getState(nil)
	_, err = app.process(ctx, st, proposal.Txs)
	if err != nil {
		app.logger.Error("process fail", "err", err)
		return res, nil
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	app.logger.Info("proposal accepted", "height", proposal.Height)
	return res, nil
}

func (app *GovApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height)
	app.lastBlk.Set(req)
	st := app.getState(nil)
	res, err := app.finalize(ctx, st, req.Txs)
	if err != nil {
		return nil, err
	}
	events := make([]abcitypes.Event, 0)
	assigned, err := st.MatchWork()
	if err != nil {
		app.logger.Error("match work fail", "err", err)
		return nil, err
	}
	for _, ev := range assigned {
		events = append(events, types.EncodeEventWorkAssigned(ev))
	}
	app.checkSucceeded(st)
	curVals, err := st.Validators()
	if err != nil {
		app.logger.Error("get validators fail", "err", err)
		return nil, err
	}
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	updateVals, err := st.ValidatorsUpdate(curVals)
	if err != nil {
		app.logger.Error("state update validators fail", "err", err)
		return nil, err
	}
	if len(updateVals) != 0 {
		events = append(events, types.EncodeEventUpdateValidators(&types.EventUpdateValidators{Updates: updateVals}))
	}
	return &abcitypes.ResponseFinalizeBlock{
		TxResults:        res,
		AppHash:          h.Bytes(),
		ValidatorUpdates: updateVals,
		Events:           events,
	}, nil
}

// checkSucceeded runs the configured executor against proposals whose voting
// window lapsed in this block with a passing tally. A proposal stays Active
// for its whole window no matter the tally, so the outcome is only settled
// once the window closes. Executors validate only; recording an execution
// stays with whichever component owns the effect.
func (app *GovApp) checkSucceeded(st *state.State) {
	lapsed, err := st.LapsedProposals()
	if err != nil {
		app.logger.Error("scan lapsed proposals fail", "err", err)
		return
	}
	for _, p := range lapsed {
		if st.Status(p) != types.ProposalStateSucceeded {
			continue
		}
		if err := app.exec.OnSucceeded(st, p); err != nil {
			app.logger.Info("proposal effect rejected", "proposal", p.Id, "err", err)
		}
	}
}

func (app *GovApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.logger.Info("Commit")
	return &abcitypes.ResponseCommit{}, nil
}
