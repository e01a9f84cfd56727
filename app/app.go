package app

import (
	"context"
	"encoding/json"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"

	"github.com/keeperhq/tgov/config"
	"github.com/keeperhq/tgov/state"
	"github.com/keeperhq/tgov/tx"
	"github.com/keeperhq/tgov/tx/handler"
	"github.com/keeperhq/tgov/types"
)

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
}

var _ abcitypes.Application = &GovApp{}

type GovApp struct {
	cfg    *config.GovAppConfig
	logger cmtlog.Logger

	db       *state.StateDB
	lastBlk  finalizeBlock
	txHdlrs  map[tx.GovTxType]handler.TxHandler
	queriers map[string]Querier
	exec     state.Executor

	st *state.State
}

func NewGovApp(cfg *config.GovAppConfig, logger cmtlog.Logger) (app *GovApp, err error) {
	logger = logger.With("module", "app")

	dir := cfg.Home + "/data"
	db, err := state.NewStateDB(dir, logger)
	if err != nil {
		return nil, err
	}

	app = &GovApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		txHdlrs:  make(map[tx.GovTxType]handler.TxHandler),
		queriers: make(map[string]Querier),
		exec:     state.InviteExecutor{},
	}
	app.registerTxHandler()
	app.registerQuerier()
	return
}

func (app *GovApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
	}
}

func (app *GovApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("gov app stopped")
}

func (app *GovApp) registerTxHandler() {
	app.txHdlrs = map[tx.GovTxType]handler.TxHandler{
		tx.GovTxTypeProposal:  handler.NewProposalTxHandler(app.logger),
		tx.GovTxTypeVote:      handler.NewVoteTxHandler(app.logger),
		tx.GovTxTypeDeposit:   handler.NewDepositTxHandler(app.logger),
		tx.GovTxTypeWorkUnit:  handler.NewWorkUnitTxHandler(app.logger),
		tx.GovTxTypeRetire:    handler.NewRetireTxHandler(app.logger),
		tx.GovTxTypeBootstrap: handler.NewBootstrapTxHandler(app.logger),
	}
}

func (app *GovApp) registerQuerier() {
	app.queriers["/proposals/"] = NewProposalQuerier(app.db, app.logger)
	app.queriers["/receipts/"] = NewReceiptQuerier(app.db, app.logger)
	app.queriers["/members/"] = NewMemberQuerier(app.db, app.logger)
	app.queriers["/quorum/"] = NewQuorumQuerier(app.db, app.logger)
	app.queriers["/pool/"] = NewPoolQuerier(app.db, app.logger)
	app.queriers["/accounts/"] = NewAccountQuerier(app.db, app.logger)
}

func (app *GovApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	for _, v := range chain.Validators {
		var acnt state.Member
		acnt.SetPubKey(v.PubKey.GetEd25519())
		acnt.Stake = uint64(v.Power) * config.GWeiPerPower(0)
		err = st.AddAccount(&acnt)
		if err != nil {
			app.logger.Error("InitChain add account fail", "err", err)
			return nil, err
		}
	}
	if len(chain.AppStateBytes) > 0 {
		var gs types.GenesisAppState
		if err = json.Unmarshal(chain.AppStateBytes, &gs); err != nil {
			app.logger.Error("InitChain parse app state fail", "err", err)
			return nil, err
		}
		if err = st.ApplyGenesisSettings(&gs); err != nil {
			app.logger.Error("InitChain apply settings fail", "err", err)
			return nil, err
		}
	}
	var h common.Hash
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *GovApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *GovApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *GovApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{}, nil
}

func (app *GovApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return nil, nil
}

func (app *GovApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return nil, nil
}

func (app *GovApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return nil, nil
}

func (app *GovApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return nil, nil
}
