package indexer

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primaryKey" json:"id"`
	Height uint64 `json:"height"`
}

type Proposal struct {
	Id              uint64 `gorm:"primaryKey" json:"id"`
	Type            uint64 `json:"type"`
	ProposerAddress string `json:"proposer_address"`
	Payload         string `json:"payload"`
	CreateHeight    uint64 `json:"create_height"`
	ExpireHeight    uint64 `json:"expire_height"`
	VotesFor        uint64 `json:"votes_for"`
	VotesAgainst    uint64 `json:"votes_against"`
	Status          uint64 `json:"status"`
}

type Vote struct {
	Id           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Proposal     uint64 `json:"proposal"`
	VoterAddress string `json:"voter_address"`
	Support      bool   `json:"support"`
	Height       uint64 `json:"height"`
}

type Deposit struct {
	Id            uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberAddress string `json:"member_address"`
	Amount        uint64 `json:"amount"`
	PoolBalance   uint64 `json:"pool_balance"`
	Height        uint64 `json:"height"`
}

type Assignment struct {
	Id           uint64 `gorm:"primaryKey" json:"id"`
	OwnerAddress string `json:"owner_address"`
	Capacity     uint64 `json:"capacity"`
	PoolBalance  uint64 `json:"pool_balance"`
	Height       uint64 `json:"height"`
}

type Retirement struct {
	Id            uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberIndex   uint64 `json:"member_index"`
	MemberAddress string `json:"member_address"`
	Amount        uint64 `json:"amount"`
	Height        uint64 `json:"height"`
}
