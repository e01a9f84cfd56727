package app

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/keeperhq/tgov/state"
	"github.com/keeperhq/tgov/types"
)

func (app *GovApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = 404
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

// ProposalRecord is the query view of a proposal: the stored record plus
// the status derived at the committed height.
type ProposalRecord struct {
	Proposal      *types.Proposal     `json:"proposal"`
	Status        types.ProposalState `json:"status"`
	StatusName    string              `json:"statusName"`
	VotesRequired uint64              `json:"votesRequired"`
}

type ProposalQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewProposalQuerier(db *state.StateDB, logger cmtlog.Logger) (q *ProposalQuerier) {
	q = &ProposalQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *ProposalQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	st := q.db.State()
	id, err := strconv.ParseUint(string(req.Data), 10, 64)
	if err != nil {
		res.Code = 1
		res.Log = err.Error()
		return res, nil
	}
	p, err := st.GetProposal(id)
	if err != nil {
		res.Code = 1
		res.Log = err.Error()
		return res, nil
	}
	status := st.Status(p)
	rec := ProposalRecord{
		Proposal:      p,
		Status:        status,
		StatusName:    status.String(),
		VotesRequired: st.QuorumVotesRequired(),
	}
	res.Value, _ = json.Marshal(rec)
	res.Height = int64(st.Header().Height)
	return
}

type ReceiptQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewReceiptQuerier(db *state.StateDB, logger cmtlog.Logger) (q *ReceiptQuerier) {
	q = &ReceiptQuerier{
		db:     db,
		logger: logger,
	}
	return
}

// Query data is "<proposalId>:<voterAddressHex>".
func (q *ReceiptQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	st := q.db.State()
	parts := strings.SplitN(string(req.Data), ":", 2)
	if len(parts) != 2 {
		res.Code = 1
		res.Log = "expect <proposal>:<voter>"
		return res, nil
	}
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		res.Code = 1
		res.Log = err.Error()
		return res, nil
	}
	if _, err := st.GetProposal(id); err != nil {
		res.Code = 1
		res.Log = err.Error()
		return res, nil
	}
	rec, err := st.GetReceipt(id, strings.ToUpper(parts[1]))
	if err != nil {
		res.Code = 1
		res.Log = err.Error()
		return res, nil
	}
	res.Value, _ = json.Marshal(rec)
	res.Height = int64(st.Header().Height)
	return
}

type MemberQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewMemberQuerier(db *state.StateDB, logger cmtlog.Logger) (q *MemberQuerier) {
	q = &MemberQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *MemberQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	members, height, err := q.db.State().MemberAccounts()
	if err != nil {
		res.Code = 1
		return res, nil
	}
	res.Height = int64(height)
	res.Value, _ = json.Marshal(members)
	return
}

// QuorumInfo reports the committed quorum configuration, the vote threshold
// it implies for the current committee, and the total of proposal ids handed
// out so far.
type QuorumInfo struct {
	ThresholdBps    uint64 `json:"thresholdBps"`
	VotesRequired   uint64 `json:"votesRequired"`
	MemberCount     uint64 `json:"memberCount"`
	ProposalCount   uint64 `json:"proposalCount"`
	BootstrapSealed bool   `json:"bootstrapSealed"`
}

type QuorumQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewQuorumQuerier(db *state.StateDB, logger cmtlog.Logger) (q *QuorumQuerier) {
	q = &QuorumQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *QuorumQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	st := q.db.State()
	info := QuorumInfo{
		ThresholdBps:    st.QuorumThresholdBps(),
		VotesRequired:   st.QuorumVotesRequired(),
		MemberCount:     st.MemberCount(),
		ProposalCount:   st.ProposalCount(),
		BootstrapSealed: st.BootstrapSealed(),
	}
	res.Value, _ = json.Marshal(info)
	res.Height = int64(st.Header().Height)
	return
}

// PoolInfo reports the deposit pool balance and the capacity queue in
// match order.
type PoolInfo struct {
	Balance uint64            `json:"balance"`
	Waiting []*types.WorkUnit `json:"waiting"`
}

type PoolQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewPoolQuerier(db *state.StateDB, logger cmtlog.Logger) (q *PoolQuerier) {
	q = &PoolQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *PoolQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	st := q.db.State()
	waiting, err := st.WaitingWorkUnits()
	if err != nil {
		res.Code = 1
		res.Log = err.Error()
		return res, nil
	}
	info := PoolInfo{
		Balance: st.PoolBalance(),
		Waiting: waiting,
	}
	res.Value, _ = json.Marshal(info)
	res.Height = int64(st.Header().Height)
	return
}

type AccountQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) (q *AccountQuerier) {
	q = &AccountQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *AccountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	var a *state.Member
	var height uint64
	if len(req.Data) == 20 {
		a, height, _ = q.db.GetAccountByAddress(req.Data)
	} else if len(req.Data) <= 8 {
		var idx uint64
		for _, v := range req.Data {
			idx <<= 8
			idx |= uint64(v)
		}
		a, height, _ = q.db.GetAccountByIndex(idx)
	}
	if a != nil {
		res.Value, _ = json.Marshal(a)
		res.Height = int64(height)
	} else {
		res.Code = 1
	}
	return
}
