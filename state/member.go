package state

import (
	"encoding/json"

	"github.com/cometbft/cometbft/crypto/ed25519"
)

// Member is a committee account. An account with Stake > 0 is a current
// trusted member; a retired account keeps its index and key but loses all
// governance rights.
type Member struct {
	Index  uint64 `json:"index"`
	PubKey []byte `json:"pubKey"`
	Stake  uint64 `json:"stake"`
	Nonce  uint64 `json:"nonce"`
	Name   string `json:"name"`
}

func (m *Member) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *Member) Unmarshal(dat []byte) error {
	return json.Unmarshal(dat, m)
}

func (m *Member) Clone() *Member {
	n := *m
	n.PubKey = make([]byte, len(m.PubKey))
	copy(n.PubKey, m.PubKey)
	return &n
}

func (m *Member) SetPubKey(pkey []byte) {
	if m.PubKey == nil {
		m.PubKey = make([]byte, len(pkey))
	}
	copy(m.PubKey, pkey)
}

// Trusted reports whether the account currently holds committee rights.
func (m *Member) Trusted() bool {
	return m.Stake > 0
}

func (m *Member) AddrBytes() []byte {
	pk := ed25519.PubKey(m.PubKey[:])
	return pk.Address()[:]
}

func (m *Member) Address() string {
	pk := ed25519.PubKey(m.PubKey[:])
	return pk.Address().String()
}

func (m *Member) Verify(msg []byte, sigs [][]byte) (succ bool) {
	if len(sigs) != 1 {
		return false
	}
	pk := ed25519.PubKey(m.PubKey[:])
	return pk.VerifySignature(msg, sigs[0])
}
