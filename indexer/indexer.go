package indexer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/cometbft/cometbft/store"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"

	"github.com/keeperhq/tgov/state"
	gov_types "github.com/keeperhq/tgov/types"
)

// ChainIndexer tails committed blocks over RPC and mirrors governance
// events into sqlite for the query service. It is an off-ledger replica;
// the tree stays authoritative.
type ChainIndexer struct {
	logger        cmtlog.Logger
	Url           string
	Height        int64
	db            *gorm.DB
	cli           *comethttp.HTTP
	eventHandlers map[string]eventHandler
	BlockStore    *store.BlockStore
	ChainId       string
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, chainUrl string, bs *store.BlockStore) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath, "url", chainUrl)
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Proposal{}, &Vote{}, &Deposit{}, &Assignment{}, &Retirement{}, &Height{}).Error; err != nil {
		return nil, err
	}
	h := Height{Id: 1}
	if err = db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c := ChainIndexer{
		logger:        logger.With("module", "indexer"),
		Url:           chainUrl,
		Height:        int64(h.Height + 1),
		db:            db,
		cli:           cli,
		eventHandlers: map[string]eventHandler{},
		BlockStore:    bs,
	}

	c.eventHandlers = map[string]eventHandler{
		gov_types.EventProposalAddedType: c.handleEventProposalAdded,
		gov_types.EventProposalVotedType: c.handleEventProposalVoted,
		gov_types.EventDepositType:       c.handleEventDeposit,
		gov_types.EventWorkAssignedType:  c.handleEventWorkAssigned,
		gov_types.EventRetireType:        c.handleEventRetire,
	}
	return &c, nil
}

type eventHandler func(ctx context.Context, event abci.Event, height int64)

func (c *ChainIndexer) handleEvent(ctx context.Context, event abci.Event, height int64) {
	if h, ok := c.eventHandlers[event.Type]; ok {
		h(ctx, event, height)
	}
}

func (c *ChainIndexer) handleEventProposalAdded(ctx context.Context, event abci.Event, height int64) {
	ev := gov_types.DecodeEventProposalAdded(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	proposal := Proposal{
		Id:              ev.Proposal,
		Type:            uint64(ev.Type),
		ProposerAddress: ev.Proposer,
		Payload:         hex.EncodeToString(ev.Payload),
		CreateHeight:    uint64(height),
		ExpireHeight:    ev.Height + state.ProposalExpiryWindow,
		Status:          uint64(gov_types.ProposalStateActive),
	}
	if err := c.db.Save(&proposal).Error; err != nil {
		c.logger.Error("save proposal fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventProposalVoted(ctx context.Context, event abci.Event, height int64) {
	ev := gov_types.DecodeEventProposalVoted(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	vote := Vote{
		Proposal:     ev.Proposal,
		VoterAddress: ev.Voter,
		Support:      ev.Support,
		Height:       uint64(height),
	}
	if err := c.db.Create(&vote).Error; err != nil {
		c.logger.Error("save vote fail", "err", err)
		return
	}
	var proposal Proposal
	if err := c.db.First(&proposal, ev.Proposal).Error; err != nil {
		c.logger.Error("get proposal fail", "err", err)
		return
	}
	if ev.Support {
		proposal.VotesFor += 1
	} else {
		proposal.VotesAgainst += 1
	}
	if rec, err := c.queryProposal(ctx, ev.Proposal); err == nil {
		proposal.Status = uint64(rec.Status)
	}
	if err := c.db.Save(&proposal).Error; err != nil {
		c.logger.Error("save proposal fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventDeposit(ctx context.Context, event abci.Event, height int64) {
	ev := gov_types.DecodeEventDeposit(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	deposit := Deposit{
		MemberAddress: ev.Member,
		Amount:        ev.Amount,
		PoolBalance:   ev.Pool,
		Height:        uint64(height),
	}
	if err := c.db.Create(&deposit).Error; err != nil {
		c.logger.Error("save deposit fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventWorkAssigned(ctx context.Context, event abci.Event, height int64) {
	ev := gov_types.DecodeEventWorkAssigned(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	assignment := Assignment{
		Id:           ev.Unit,
		OwnerAddress: ev.Owner,
		Capacity:     ev.Capacity,
		PoolBalance:  ev.Pool,
		Height:       uint64(height),
	}
	if err := c.db.Save(&assignment).Error; err != nil {
		c.logger.Error("save assignment fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventRetire(ctx context.Context, event abci.Event, height int64) {
	ev := gov_types.DecodeEventRetire(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	retirement := Retirement{
		MemberIndex:   ev.Member,
		MemberAddress: ev.Address,
		Amount:        ev.Amount,
		Height:        uint64(height),
	}
	if err := c.db.Create(&retirement).Error; err != nil {
		c.logger.Error("save retirement fail", "err", err)
	}
}

// refreshStatuses re-derives the status of proposals still marked active.
// Expiry is height-driven so a proposal can lapse without any new event.
func (c *ChainIndexer) refreshStatuses(ctx context.Context) {
	var proposals []Proposal
	err := c.db.Where("status = ?", uint64(gov_types.ProposalStateActive)).Find(&proposals).Error
	if err != nil {
		c.logger.Error("find active proposals fail", "err", err)
		return
	}
	for _, p := range proposals {
		rec, err := c.queryProposal(ctx, p.Id)
		if err != nil {
			continue
		}
		if uint64(rec.Status) != p.Status {
			p.Status = uint64(rec.Status)
			if err := c.db.Save(&p).Error; err != nil {
				c.logger.Error("save proposal fail", "err", err)
			}
		}
	}
}

func (c *ChainIndexer) Start(ctx context.Context) {
	var err error
	ticker := time.NewTicker(time.Second)
	time.Sleep(10 * time.Second)

	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.cli == nil {
				c.cli, err = comethttp.New(c.Url, "/websocket")
				if err != nil {
					c.logger.Error("connect fail", "err", err)
					continue
				}
			}
			b, err := c.cli.Status(context.TODO())
			if err != nil {
				c.logger.Error("get status fail", "err", err)
				if !c.cli.IsRunning() {
					c.cli.Stop()
					c.cli, err = comethttp.New(c.Url, "/websocket")
					if err != nil {
						c.logger.Error("reconnect fail", "err", err)
						continue
					}
				}
				continue
			}
			for b.SyncInfo.LatestBlockHeight > c.Height {
				time.Sleep(time.Millisecond * 100)
				c.logger.Info("indexer syncing", "height", c.Height)
				events, err := c.cli.BlockResults(ctx, &c.Height)
				if err != nil {
					c.logger.Error("get block results fail", "err", err)
					if !c.cli.IsRunning() {
						c.cli.Stop()
						c.cli, err = comethttp.New(c.Url, "/websocket")
						if err != nil {
							c.logger.Error("reconnect fail", "err", err)
							continue
						}
					}
					continue
				}
				for _, res := range events.TxsResults {
					for _, event := range res.Events {
						c.handleEvent(ctx, event, c.Height)
					}
				}
				for _, event := range events.FinalizeBlockEvents {
					c.handleEvent(ctx, event, c.Height)
				}
				if err := c.db.Save(Height{
					Id:     1,
					Height: uint64(c.Height),
				}).Error; err != nil {
					c.logger.Error("save height fail", "err", err)
					continue
				}
				if c.Height%5 == 0 {
					c.refreshStatuses(ctx)
				}
				c.Height++
			}
		}
	}
}

// proposalRecord mirrors the app-side query view.
type proposalRecord struct {
	Proposal      *gov_types.Proposal     `json:"proposal"`
	Status        gov_types.ProposalState `json:"status"`
	StatusName    string                  `json:"statusName"`
	VotesRequired uint64                  `json:"votesRequired"`
}

func (c *ChainIndexer) queryProposal(ctx context.Context, id uint64) (*proposalRecord, error) {
	res, err := c.cli.ABCIQuery(ctx, "/proposals/", []byte(strconv.FormatUint(id, 10)))
	if err != nil {
		c.logger.Error("ABCIQuery fail", "err", err)
		if !c.cli.IsRunning() {
			c.cli.Stop()
			c.cli, err = comethttp.New(c.Url, "/websocket")
			if err != nil {
				c.logger.Error("reconnect fail", "err", err)
				return nil, err
			}
		}
		return nil, err
	}
	if res.Response.Code != 0 {
		return nil, fmt.Errorf("query proposal %d code %d", id, res.Response.Code)
	}
	var rec proposalRecord
	if err := json.Unmarshal(res.Response.Value, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *ChainIndexer) getProposals(page int, pageSize int) ([]Proposal, uint64, error) {
	var proposals []Proposal
	err := c.db.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Proposal{}).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getProposalById(proposalId uint64) (Proposal, error) {
	var proposal Proposal
	err := c.db.Where("id = ?", proposalId).First(&proposal).Error
	if err != nil {
		return Proposal{}, err
	}
	return proposal, nil
}

func (c *ChainIndexer) getProposalsByProposerAddr(proposerAddr string, page int, pageSize int) ([]Proposal, uint64, error) {
	var proposals []Proposal
	err := c.db.Where("proposer_address = ?", proposerAddr).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Proposal{}).Where("proposer_address = ?", proposerAddr).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getVotesByProposal(proposal uint64, page int, pageSize int) ([]Vote, uint64, error) {
	var votes []Vote
	err := c.db.Where("proposal = ?", proposal).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&votes).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Vote{}).Where("proposal = ?", proposal).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func (c *ChainIndexer) getVotesByVoter(voter string, page int, pageSize int) ([]Vote, uint64, error) {
	var votes []Vote
	err := c.db.Where("voter_address = ?", voter).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&votes).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Vote{}).Where("voter_address = ?", voter).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func (c *ChainIndexer) getDeposits(member string, page int, pageSize int) ([]Deposit, uint64, error) {
	q := c.db.Model(&Deposit{})
	if member != "" {
		q = q.Where("member_address = ?", member)
	}
	var deposits []Deposit
	err := q.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&deposits).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = q.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return deposits, total, nil
}

func (c *ChainIndexer) getAssignments(owner string, page int, pageSize int) ([]Assignment, uint64, error) {
	q := c.db.Model(&Assignment{})
	if owner != "" {
		q = q.Where("owner_address = ?", owner)
	}
	var assignments []Assignment
	err := q.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&assignments).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = q.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return assignments, total, nil
}

func (c *ChainIndexer) getRetirements(page int, pageSize int) ([]Retirement, uint64, error) {
	var retirements []Retirement
	err := c.db.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&retirements).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Retirement{}).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return retirements, total, nil
}
