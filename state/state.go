package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"container/heap"

	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"

	abci_types "github.com/cometbft/cometbft/abci/types"
	"github.com/keeperhq/tgov/config"
	"github.com/keeperhq/tgov/tx"
	"github.com/keeperhq/tgov/types"
)

const (
	StartAccountIdx = 65536

	ModifiedFlagNew = 1 << 0
	ModifiedFlagMod = 1 << 1
	ModifiedFlagPK  = 1 << 2

	MaxValidators = 100
)

var (
	ErrNotFound = errors.New("not found")
)

// Every persisted field lives at a key derived from a fixed tag plus the
// record identifier; receipts additionally carry the member address.
var (
	KeyState         = "s"
	KeyAccountIndex  = "i%s"
	KeyAccountBody   = "a%x"
	KeyProposalBody  = "p%v"
	KeyProposalIndex = "pi"
	KeyReceiptBody   = "r%v:%s"
	KeyWorkUnitBody  = "w%020d"
)

var (
	ErrTxMemberNoexists = errors.New("member noexists")
	ErrTxNonceInvalid   = errors.New("nonce invalid")
	ErrTxSigInvalid     = errors.New("signature invalid")

	ErrInvalidProposalId = errors.New("invalid proposal id")
	ErrVotingClosed      = errors.New("voting closed")
	ErrAlreadyVoted      = errors.New("already voted")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrSettingsDisabled  = errors.New("settings disabled")

	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountNoexists      = errors.New("account noexists")
	ErrInvalidTarget        = errors.New("invalid target")
	ErrOneActionInOneBlock  = errors.New("one action in one block")
)

// StateHeader carries the per-block scalars: chain identity, height, hashes
// and the governance settings that are cheaper kept inline than under their
// own keys.
type StateHeader struct {
	ChainId            string `json:"chain_id"`
	Height             uint64 `json:"height"`
	Hash               []byte `json:"hash"`
	RootHash           []byte `json:"root_hash"`
	AccountIdx         uint64 `json:"account_idx"`
	MemberCount        uint64 `json:"member_count"`
	Pool               uint64 `json:"pool"`
	WorkSeq            uint64 `json:"work_seq"`
	QuorumThresholdBps uint64 `json:"quorum_threshold_bps"`
	BootstrapSealed    bool   `json:"bootstrap_sealed"`
	ExpiryCursor       uint64 `json:"expiry_cursor"`
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.Hash = append([]byte(nil), h.Hash...)
	n.RootHash = append([]byte(nil), h.RootHash...)
	return &n
}

// State is one version of the ledger. All mutating entry points run against
// a single State instance per block, so reads and writes of one call never
// interleave with another; a call that fails leaves no writes behind because
// pending changes only reach the tree in Update().
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header     *StateHeader
	validators []abci_types.ValidatorUpdate
	idxs       map[string]uint64
	acnts      map[uint64]*Member

	modifiedAcnts map[uint64]uint32
	proposalCount uint64
	modProposals  map[uint64]*types.Proposal
	modReceipts   map[string]*types.VoteReceipt
	newWorkUnits  map[uint64]*types.WorkUnit
	doneWorkUnits map[uint64]bool
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	s := &State{
		logger:        logger,
		db:            db,
		dbVer:         0,
		header:        new(StateHeader),
		validators:    []abci_types.ValidatorUpdate{},
		idxs:          make(map[string]uint64),
		acnts:         make(map[uint64]*Member),
		modifiedAcnts: make(map[uint64]uint32),
		proposalCount: 0,
		modProposals:  make(map[uint64]*types.Proposal),
		modReceipts:   make(map[string]*types.VoteReceipt),
		newWorkUnits:  make(map[uint64]*types.WorkUnit),
		doneWorkUnits: make(map[uint64]bool),
	}
	s.header.AccountIdx = StartAccountIdx
	return s
}

func (s *State) nextState() *State {
	n := &State{
		logger:        s.logger,
		db:            s.db,
		dbVer:         s.dbVer,
		idxs:          make(map[string]uint64),
		acnts:         make(map[uint64]*Member),
		modifiedAcnts: make(map[uint64]uint32),
		proposalCount: s.proposalCount,
		modProposals:  make(map[uint64]*types.Proposal),
		modReceipts:   make(map[string]*types.VoteReceipt),
		newWorkUnits:  make(map[uint64]*types.WorkUnit),
		doneWorkUnits: make(map[uint64]bool),
	}
	n.header = s.header.Clone()
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func deepCopyMap[K comparable, V any](source map[K]V) map[K]V {
	res := make(map[K]V)
	for k, v := range source {
		switch x := any(v).(type) {
		case *Member:
			res[k] = any(x.Clone()).(V)
		case *types.Proposal:
			p := *x
			p.Payload = append([]byte(nil), x.Payload...)
			res[k] = any(&p).(V)
		case *types.VoteReceipt:
			r := *x
			res[k] = any(&r).(V)
		case *types.WorkUnit:
			w := *x
			res[k] = any(&w).(V)
		default:
			res[k] = v
		}
	}
	return res
}

func deepCopySlice[E any](source []E) []E {
	res := make([]E, len(source))
	if len(source) == 0 {
		return res
	}
	for idx, ele := range source {
		switch e := any(ele).(type) {
		case abci_types.ValidatorUpdate:
			b, _ := e.Marshal()
			eleClone := abci_types.ValidatorUpdate{}
			eleClone.Unmarshal(b)
			res[idx] = any(eleClone).(E)
		default:
			copy(res, source)
			return res
		}
	}
	return res
}

// Clone produces a throwaway working copy; PrepareProposal applies each tx
// to a clone first and only adopts the clone when the tx succeeds.
func (s *State) Clone() *State {
	n := &State{
		logger:        s.logger,
		db:            s.db,
		dbVer:         s.dbVer,
		validators:    deepCopySlice(s.validators),
		idxs:          deepCopyMap(s.idxs),
		acnts:         deepCopyMap(s.acnts),
		modifiedAcnts: deepCopyMap(s.modifiedAcnts),
		proposalCount: s.proposalCount,
		modProposals:  deepCopyMap(s.modProposals),
		modReceipts:   deepCopyMap(s.modReceipts),
		newWorkUnits:  deepCopyMap(s.newWorkUnits),
		doneWorkUnits: deepCopyMap(s.doneWorkUnits),
	}
	n.header = s.header.Clone()
	return n
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyProposalIndex))
	if err != nil {
		if err != leveldb.ErrNotFound {
			return err
		}
	}
	s.proposalCount = new(big.Int).SetBytes(val).Uint64()
	val, err = s.db.Get([]byte(KeyState))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return err
	}
	if val != nil {
		err = json.Unmarshal(val, s.header)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		if s.header.RootHash == nil {
			s.header.RootHash = make([]byte, len(rootHash))
		}
		copy(s.header.RootHash, rootHash)
		if s.header.Hash == nil {
			s.header.Hash = make([]byte, len(h))
		}
		copy(s.header.Hash, h[:])
	}
	return
}

// Update flushes all pending writes of the current block into the working
// tree and returns the resulting app hash. Nothing is durable until save().
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	var val []byte
	val, err = json.Marshal(s.header)
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyState), val)
	if err != nil {
		return
	}

	if len(s.modProposals) != 0 {
		_, err = s.db.Set([]byte(KeyProposalIndex), big.NewInt(int64(s.proposalCount)).Bytes())
		if err != nil {
			return
		}
		ids := make([]uint64, 0, len(s.modProposals))
		for id := range s.modProposals {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			key := fmt.Sprintf(KeyProposalBody, id)
			proposalBz, _ := json.Marshal(s.modProposals[id])
			_, err = s.db.Set([]byte(key), proposalBz)
			if err != nil {
				return
			}
		}
	}

	if len(s.modReceipts) != 0 {
		keys := make([]string, 0, len(s.modReceipts))
		for k := range s.modReceipts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			receiptBz, _ := json.Marshal(s.modReceipts[k])
			_, err = s.db.Set([]byte(k), receiptBz)
			if err != nil {
				return
			}
		}
	}

	if len(s.newWorkUnits) != 0 {
		seqs := make([]uint64, 0, len(s.newWorkUnits))
		for seq := range s.newWorkUnits {
			seqs = append(seqs, seq)
		}
		sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
		for _, seq := range seqs {
			if s.doneWorkUnits[seq] {
				continue
			}
			key := fmt.Sprintf(KeyWorkUnitBody, seq)
			unitBz, _ := json.Marshal(s.newWorkUnits[seq])
			_, err = s.db.Set([]byte(key), unitBz)
			if err != nil {
				return
			}
		}
	}
	if len(s.doneWorkUnits) != 0 {
		seqs := make([]uint64, 0, len(s.doneWorkUnits))
		for seq := range s.doneWorkUnits {
			seqs = append(seqs, seq)
		}
		sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
		for _, seq := range seqs {
			if !s.doneWorkUnits[seq] {
				continue
			}
			if _, ok := s.newWorkUnits[seq]; ok {
				continue
			}
			key := fmt.Sprintf(KeyWorkUnitBody, seq)
			_, _, err = s.db.Remove([]byte(key))
			if err != nil {
				return
			}
		}
	}

	n := len(s.modifiedAcnts)
	if n > 0 {
		idxs := make([]uint64, n)
		i := 0
		for idx := range s.modifiedAcnts {
			idxs[i] = idx
			i += 1
		}
		sort.Slice(idxs, func(i, j int) bool {
			return idxs[i] < idxs[j]
		})
		for _, idx := range idxs {
			flag := s.modifiedAcnts[idx]
			acnt := s.acnts[idx]
			key := fmt.Sprintf(KeyAccountBody, acnt.Index)
			val, err = acnt.Marshal()
			if err != nil {
				return
			}
			_, err = s.db.Set([]byte(key), val)
			if err != nil {
				return
			}
			if (flag&ModifiedFlagNew == ModifiedFlagNew) || (flag&ModifiedFlagPK == ModifiedFlagPK) {
				key = fmt.Sprintf(KeyAccountIndex, acnt.Address())
				val, err = rlp.EncodeToBytes(acnt.Index)
				if err != nil {
					return
				}
				_, err = s.db.Set([]byte(key), val)
				if err != nil {
					return
				}
			}
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.modifiedAcnts = make(map[uint64]uint32)
	s.modProposals = make(map[uint64]*types.Proposal)
	s.modReceipts = make(map[string]*types.VoteReceipt)
	s.newWorkUnits = make(map[uint64]*types.WorkUnit)
	s.doneWorkUnits = make(map[uint64]bool)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}

	s.dbVer = ver
	h = s.calcHash(hash, true)

	return
}

// ProposalCount is the last assigned proposal id and the upper bound for id
// validity checks. It never decreases.
func (s *State) ProposalCount() uint64 {
	return s.proposalCount
}

func (s *State) MemberCount() uint64 {
	return s.header.MemberCount
}

func (s *State) QuorumThresholdBps() uint64 {
	if s.header.QuorumThresholdBps == 0 {
		return DefaultQuorumThresholdBps
	}
	return s.header.QuorumThresholdBps
}

func (s *State) BootstrapSealed() bool {
	return s.header.BootstrapSealed
}

// QuorumVotesRequired is the live pass threshold against the current
// membership count.
func (s *State) QuorumVotesRequired() uint64 {
	return VotesRequired(s.header.MemberCount, s.QuorumThresholdBps())
}

// GetProposal returns the stored record for id, preferring same-block
// pending writes. An id of zero or beyond the allocated range fails with
// ErrInvalidProposalId.
func (s *State) GetProposal(id uint64) (proposal *types.Proposal, err error) {
	if id == 0 || id > s.proposalCount {
		return nil, ErrInvalidProposalId
	}
	if p, ok := s.modProposals[id]; ok {
		cp := *p
		cp.Payload = append([]byte(nil), p.Payload...)
		return &cp, nil
	}
	key := fmt.Sprintf(KeyProposalBody, id)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrNotFound
	}
	proposal = new(types.Proposal)
	err = json.Unmarshal(val, proposal)
	return
}

// Status derives the proposal's lifecycle state at the current height.
func (s *State) Status(p *types.Proposal) types.ProposalState {
	return StatusAt(p, s.header.Height, s.QuorumVotesRequired())
}

// LapsedProposals advances the expiry cursor and returns the proposals whose
// voting window closed since the previous block. Ids are sequential and every
// window has the same length, so proposals lapse in id order and the cursor
// never has to back up; each proposal is returned exactly once.
func (s *State) LapsedProposals() (lapsed []*types.Proposal, err error) {
	for s.header.ExpiryCursor < s.proposalCount {
		p, err := s.GetProposal(s.header.ExpiryCursor + 1)
		if err != nil {
			return nil, err
		}
		if s.header.Height <= p.ExpiresAt {
			break
		}
		s.header.ExpiryCursor += 1
		lapsed = append(lapsed, p)
	}
	return lapsed, nil
}

// ProposalStatus is the id-keyed variant used by the query surface.
func (s *State) ProposalStatus(id uint64) (types.ProposalState, error) {
	p, err := s.GetProposal(id)
	if err != nil {
		return 0, err
	}
	return s.Status(p), nil
}

func receiptKey(id uint64, addr string) string {
	return fmt.Sprintf(KeyReceiptBody, id, addr)
}

// GetReceipt returns the vote receipt for (id, addr). A member who never
// voted gets the zero receipt, not an error.
func (s *State) GetReceipt(id uint64, addr string) (rec *types.VoteReceipt, err error) {
	if id == 0 || id > s.proposalCount {
		return nil, ErrInvalidProposalId
	}
	key := receiptKey(id, addr)
	if r, ok := s.modReceipts[key]; ok {
		cp := *r
		return &cp, nil
	}
	val, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	rec = new(types.VoteReceipt)
	if val == nil {
		return rec, nil
	}
	err = json.Unmarshal(val, rec)
	return
}

func (s *State) GetAccount(idx uint64) (acnt *Member, err error) {
	if idx >= s.header.AccountIdx {
		err = ErrAccountNoexists
		return
	}
	acnt = s.acnts[idx]
	if acnt != nil {
		return
	}
	key := fmt.Sprintf(KeyAccountBody, idx)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	if val == nil {
		err = ErrNotFound
		return
	}
	acnt = new(Member)
	err = acnt.Unmarshal(val)
	if err != nil {
		acnt = nil
		return
	}
	s.acnts[idx] = acnt
	return
}

func (s *State) existPubkey(pubkey []byte) (bool, error) {
	addr := ed25519.PubKey(pubkey).Address()[:]
	saddr := cmtcrypto.Address(addr).String()
	// exist in cache
	if _, ok := s.idxs[saddr]; ok {
		return true, nil
	}
	// exist in db
	key := fmt.Sprintf(KeyAccountIndex, saddr)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if err != leveldb.ErrNotFound {
			return false, err
		}
	}
	if val != nil {
		return true, nil
	}
	// exist in modify
	for _, acc := range s.acnts {
		if bytes.Equal(acc.AddrBytes(), addr) {
			return true, nil
		}
	}
	return false, nil
}

func (s *State) FindAccount(addr []byte) (acnt *Member, err error) {
	saddr := cmtcrypto.Address(addr).String()
	idx, ok := s.idxs[saddr]
	if !ok {
		key := fmt.Sprintf(KeyAccountIndex, saddr)
		val, err := s.db.Get([]byte(key))
		if err != nil {
			if err == leveldb.ErrNotFound {
				return nil, nil
			}
			return nil, err
		}
		if val == nil {
			return nil, nil
		}
		err = rlp.DecodeBytes(val, &idx)
		if err != nil {
			return nil, err
		}
		s.idxs[saddr] = idx
	}
	acnt, err = s.GetAccount(idx)

	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

// ApplyGenesisSettings seeds the quorum threshold and bootstrap switch from
// the genesis app state. Only valid before the first block.
func (s *State) ApplyGenesisSettings(gs *types.GenesisAppState) error {
	if gs.QuorumThresholdBps != 0 {
		if !ValidThresholdBps(gs.QuorumThresholdBps) {
			return fmt.Errorf("genesis quorum threshold %d out of range [%d, %d]",
				gs.QuorumThresholdBps, MinQuorumThresholdBps, MaxQuorumThresholdBps)
		}
		s.header.QuorumThresholdBps = gs.QuorumThresholdBps
	}
	s.header.BootstrapSealed = gs.BootstrapSealed
	return nil
}

func (s *State) AddAccount(acnt *Member) (err error) {
	a, err := s.FindAccount(acnt.AddrBytes())
	if err != nil {
		return err
	}
	if a != nil {
		err = ErrAccountAlreadyExists
		return
	}
	acnt.Index = s.header.AccountIdx
	s.header.AccountIdx += 1
	if acnt.Trusted() {
		s.header.MemberCount += 1
	}
	s.acnts[acnt.Index] = acnt.Clone()
	s.modifiedAcnts[acnt.Index] = ModifiedFlagNew
	return
}

func (s *State) Verify(tx *tx.GovTx, allowNonceGap bool) (succ bool, err error) {
	a, err := s.GetAccount(tx.Member)
	if err != nil {
		return succ, err
	}
	if a == nil {
		err = ErrTxMemberNoexists
		return
	}
	if !(a.Nonce == tx.Nonce || (allowNonceGap && a.Nonce < tx.Nonce)) {
		err = ErrTxNonceInvalid
		return
	}
	dat, err := tx.SigData([]byte(s.header.ChainId))
	if err != nil {
		return succ, err
	}
	succ = a.Verify(dat, tx.Sig)
	if !succ {
		err = ErrTxSigInvalid
	}
	return
}

func (s *State) touch(a *Member) {
	a.Nonce += 1
	v := s.modifiedAcnts[a.Index]
	v |= ModifiedFlagMod
	s.modifiedAcnts[a.Index] = v
	s.acnts[a.Index] = a.Clone()
}

// AddProposal allocates the next proposal id for a trusted member's
// submission and persists the record with zeroed tallies and the expiry
// window. Ids are sequential from 1; no recycling, no gaps.
func (s *State) AddProposal(ptx *tx.ProposalTx, member uint64, checkOnly bool) (event *types.EventProposalAdded, err error) {
	s.logger.Debug("apply proposal", "member", member, "height", s.header.Height)
	a, err := s.GetAccount(member)
	if err != nil {
		return nil, err
	}
	if a == nil {
		err = ErrTxMemberNoexists
		return
	}
	if !a.Trusted() {
		err = ErrNotAuthorized
		return
	}
	if !ptx.Type.Valid() {
		err = fmt.Errorf("unknown proposal type %v", ptx.Type)
		return
	}
	if !checkOnly {
		s.proposalCount += 1
		proposal := types.Proposal{
			Id:        s.proposalCount,
			Type:      ptx.Type,
			Proposer:  a.Address(),
			Payload:   ptx.Payload,
			CreatedAt: s.header.Height,
			ExpiresAt: s.header.Height + ProposalExpiryWindow,
		}
		s.modProposals[proposal.Id] = &proposal

		s.touch(a)

		event = &types.EventProposalAdded{
			Proposal: proposal.Id,
			Proposer: proposal.Proposer,
			Type:     proposal.Type,
			Payload:  proposal.Payload,
			Height:   s.header.Height,
		}
	}
	return
}

// CastVote records a trusted member's single vote on an active proposal.
// Preconditions are checked in order: voting window, membership, prior
// receipt. Tallies only ever increment and each increment maps to exactly
// one receipt.
func (s *State) CastVote(vtx *tx.VoteTx, member uint64, checkOnly bool) (event *types.EventProposalVoted, err error) {
	s.logger.Debug("apply vote", "member", member, "proposal", vtx.Proposal, "height", s.header.Height)
	p, err := s.GetProposal(vtx.Proposal)
	if err != nil {
		return nil, err
	}
	if s.Status(p) != types.ProposalStateActive {
		err = ErrVotingClosed
		return
	}
	a, err := s.GetAccount(member)
	if err != nil {
		return nil, err
	}
	if a == nil || !a.Trusted() {
		err = ErrNotAuthorized
		return
	}
	rec, err := s.GetReceipt(vtx.Proposal, a.Address())
	if err != nil {
		return nil, err
	}
	if rec.HasVoted {
		err = ErrAlreadyVoted
		return
	}
	if !checkOnly {
		s.modReceipts[receiptKey(vtx.Proposal, a.Address())] = &types.VoteReceipt{
			HasVoted:  true,
			Supported: vtx.Support,
		}
		if vtx.Support {
			p.VotesFor += 1
		} else {
			p.VotesAgainst += 1
		}
		s.modProposals[p.Id] = p

		s.touch(a)

		event = &types.EventProposalVoted{
			Proposal: vtx.Proposal,
			Voter:    a.Address(),
			Support:  vtx.Support,
			Height:   s.header.Height,
		}
	}
	return
}

// CancelProposal flips the one-way cancelled flag. There is no un-cancel.
func (s *State) CancelProposal(id uint64) error {
	p, err := s.GetProposal(id)
	if err != nil {
		return err
	}
	if p.Cancelled {
		return fmt.Errorf("proposal %d already cancelled", id)
	}
	p.Cancelled = true
	s.modProposals[p.Id] = p
	return nil
}

// MarkExecuted flips the one-way executed flag. The caller owns the policy
// of when execution is legitimate; the core only guards against doubles.
func (s *State) MarkExecuted(id uint64) error {
	p, err := s.GetProposal(id)
	if err != nil {
		return err
	}
	if p.Executed {
		return fmt.Errorf("proposal %d already executed", id)
	}
	p.Executed = true
	s.modProposals[p.Id] = p
	return nil
}

// Deposit adds a trusted member's funds to the shared pool.
func (s *State) Deposit(dtx *tx.DepositTx, member uint64, checkOnly bool) (event *types.EventDeposit, err error) {
	s.logger.Debug("apply deposit", "member", member, "amount", dtx.Amount, "height", s.header.Height)
	a, err := s.GetAccount(member)
	if err != nil {
		return nil, err
	}
	if a == nil {
		err = ErrTxMemberNoexists
		return
	}
	if !a.Trusted() {
		err = ErrNotAuthorized
		return
	}
	if dtx.Amount == 0 {
		err = fmt.Errorf("deposit amount is zero")
		return
	}
	if !checkOnly {
		s.header.Pool += dtx.Amount

		s.touch(a)

		event = &types.EventDeposit{
			Member: a.Address(),
			Amount: dtx.Amount,
			Pool:   s.header.Pool,
			Height: s.header.Height,
		}
	}
	return
}

// AddWorkUnit enqueues a capacity request to be matched against the pool.
func (s *State) AddWorkUnit(wtx *tx.WorkUnitTx, member uint64, checkOnly bool) (err error) {
	s.logger.Debug("apply work unit", "member", member, "capacity", wtx.Capacity, "height", s.header.Height)
	a, err := s.GetAccount(member)
	if err != nil {
		return err
	}
	if a == nil {
		err = ErrTxMemberNoexists
		return
	}
	if !a.Trusted() {
		err = ErrNotAuthorized
		return
	}
	if wtx.Capacity == 0 {
		err = fmt.Errorf("work unit capacity is zero")
		return
	}
	if !checkOnly {
		s.header.WorkSeq += 1
		unit := &types.WorkUnit{
			Seq:      s.header.WorkSeq,
			Owner:    a.Address(),
			Capacity: wtx.Capacity,
			Height:   s.header.Height,
		}
		s.newWorkUnits[unit.Seq] = unit

		s.touch(a)
	}
	return
}

// Retire withdraws the member's full bond; the committee shrinks by one.
// Votes the member already cast stay on their tallies.
func (s *State) Retire(rtx *tx.RetireTx, member uint64, checkOnly bool) (event *types.EventRetire, err error) {
	s.logger.Debug("apply retire", "member", member, "amount", rtx.Amount, "height", s.header.Height)
	a, err := s.GetAccount(member)
	if err != nil {
		return nil, err
	}
	if a == nil {
		err = ErrTxMemberNoexists
		return
	}
	if !a.Trusted() {
		err = ErrNotAuthorized
		return
	}
	if a.Stake != rtx.Amount {
		err = fmt.Errorf("must withdraw full bond")
		return
	}
	if !checkOnly {
		event = &types.EventRetire{
			Member:  member,
			Address: a.Address(),
			Amount:  rtx.Amount,
			Height:  s.header.Height,
		}
		a.Stake -= rtx.Amount
		s.header.MemberCount -= 1
		s.touch(a)
	}
	return
}

// Bootstrap sets the quorum threshold directly while the one-way switch is
// open, bypassing the proposal flow. Seal closes the switch permanently.
func (s *State) Bootstrap(btx *tx.BootstrapTx, member uint64, checkOnly bool) (err error) {
	s.logger.Debug("apply bootstrap", "member", member, "threshold", btx.ThresholdBps, "seal", btx.Seal)
	a, err := s.GetAccount(member)
	if err != nil {
		return err
	}
	if a == nil {
		err = ErrTxMemberNoexists
		return
	}
	if !a.Trusted() {
		err = ErrNotAuthorized
		return
	}
	if s.header.BootstrapSealed {
		err = ErrSettingsDisabled
		return
	}
	if btx.ThresholdBps != 0 && !ValidThresholdBps(btx.ThresholdBps) {
		err = fmt.Errorf("quorum threshold %d out of range [%d, %d]",
			btx.ThresholdBps, MinQuorumThresholdBps, MaxQuorumThresholdBps)
		return
	}
	if !checkOnly {
		if btx.ThresholdBps != 0 {
			s.header.QuorumThresholdBps = btx.ThresholdBps
		}
		if btx.Seal {
			s.header.BootstrapSealed = true
		}
		s.touch(a)
	}
	return
}

// MemberAccounts returns the current committee accounts backing the
// validator set.
func (s *State) MemberAccounts() (accounts []*Member, height uint64, err error) {
	vals := s.validators
	for _, val := range vals {
		pk := ed25519.PubKey(val.PubKey.GetEd25519()[:])
		addr := pk.Address()[:]
		act, _ := s.FindAccount(addr)
		if act != nil {
			accounts = append(accounts, act)
		}
	}
	height = s.header.Height
	return
}

// Validators recomputes the validator set from committee stakes, largest
// power first, capped at MaxValidators.
func (s *State) Validators() (updateVals map[string]abci_types.ValidatorUpdate, err error) {
	updateVals = make(map[string]abci_types.ValidatorUpdate, 0)
	start := []byte(fmt.Sprintf(KeyAccountBody, ""))
	end := PrefixEndBytes(start)
	aIterator, err := s.db.Iterator(start, end, false)
	if err != nil {
		return nil, err
	}

	valsQueue := &PowerQueue{}
	heap.Init(valsQueue)
	for ; aIterator.Valid(); aIterator.Next() {
		var act Member
		valBytes := aIterator.Value()
		err = act.Unmarshal(valBytes)
		if err != nil {
			return nil, err
		}
		power := config.PowerPerStake(act.Stake, s.header.Height)
		if power > 0 {
			heap.Push(valsQueue, memberWithPower{
				Index:  act.Index,
				Pubkey: act.PubKey,
				Power:  power,
			})
		}
	}

	vals := make([]abci_types.ValidatorUpdate, 0)
	for valsQueue.Len() > 0 && len(vals) < MaxValidators {
		val := heap.Pop(valsQueue).(memberWithPower)
		vals = append(vals, abci_types.Ed25519ValidatorUpdate(val.Pubkey, val.Power))
	}
	s.validators = vals

	for _, val := range vals {
		updateVals[val.PubKey.String()] = val
	}

	return updateVals, nil
}

func (s *State) ValidatorsUpdate(curVals map[string]abci_types.ValidatorUpdate) (updateVals []abci_types.ValidatorUpdate, err error) {
	nextVals, err := s.Validators()
	if err != nil {
		return nil, err
	}

	for key, val := range nextVals {
		if v, ok := curVals[key]; ok {
			if v.Power != val.Power {
				updateVals = append(updateVals, val)
			}
		} else {
			updateVals = append(updateVals, val)
		}
	}

	for key, curVal := range curVals {
		if _, ok := nextVals[key]; !ok {
			curVal.Power = 0
			updateVals = append(updateVals, curVal)
		}
	}
	return
}

type memberWithPower struct {
	Index  uint64
	Pubkey []byte
	Power  int64
}

type PowerQueue []memberWithPower

func (pq PowerQueue) Len() int { return len(pq) }

func (pq PowerQueue) Less(i, j int) bool {
	if pq[i].Power == pq[j].Power {
		return pq[i].Index < pq[j].Index
	}
	return pq[i].Power > pq[j].Power
}

func (pq PowerQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *PowerQueue) Push(x any) {
	item := x.(memberWithPower)
	*pq = append(*pq, item)
}

func (pq *PowerQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	end := make([]byte, len(prefix))
	copy(end, prefix)

	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}

		end = end[:len(end)-1]

		if len(end) == 0 {
			end = nil
			break
		}
	}

	return end
}
