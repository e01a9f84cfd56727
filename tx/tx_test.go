package tx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keeperhq/tgov/types"
)

func TestUnmarshalGovTxDispatch(t *testing.T) {
	cases := []struct {
		name    string
		tp      GovTxType
		payload any
	}{
		{"proposal", GovTxTypeProposal, &ProposalTx{Type: types.ProposalTypeBond, Payload: []byte{1, 2}}},
		{"vote", GovTxTypeVote, &VoteTx{Proposal: 7, Support: true}},
		{"deposit", GovTxTypeDeposit, &DepositTx{Amount: 100}},
		{"work unit", GovTxTypeWorkUnit, &WorkUnitTx{Capacity: 50}},
		{"retire", GovTxTypeRetire, &RetireTx{Amount: 1}},
		{"bootstrap", GovTxTypeBootstrap, &BootstrapTx{ThresholdBps: 6000, Seal: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			btx := &GovTx{
				Version: GovTxVersion1,
				Type:    tc.tp,
				Nonce:   3,
				Member:  65536,
				Tx:      tc.payload,
				Sig:     [][]byte{{0xaa}},
			}
			dat, err := MarshalGovTx(btx)
			require.NoError(t, err)

			got, err := UnmarshalGovTx(dat)
			require.NoError(t, err)
			require.Equal(t, btx.Version, got.Version)
			require.Equal(t, btx.Type, got.Type)
			require.Equal(t, btx.Nonce, got.Nonce)
			require.Equal(t, btx.Member, got.Member)
			require.Equal(t, btx.Sig, got.Sig)
			require.Equal(t, tc.payload, got.Tx)
		})
	}
}

func TestUnmarshalGovTxUnknownType(t *testing.T) {
	btx := &GovTx{Type: GovTxType(42), Tx: &VoteTx{}}
	dat, err := MarshalGovTx(btx)
	require.NoError(t, err)
	_, err = UnmarshalGovTx(dat)
	require.ErrorIs(t, err, ErrUnsupportedTxType)

	_, err = UnmarshalGovTx([]byte(`{"type":0}`))
	require.ErrorIs(t, err, ErrUnsupportedTxType)
}

// SigData pins the signed bytes to the chain id by splicing it into the Sig
// slot, so the same envelope signed for one chain cannot replay on another.
func TestSigDataBindsChainId(t *testing.T) {
	btx := &GovTx{
		Version: GovTxVersion1,
		Type:    GovTxTypeVote,
		Nonce:   1,
		Member:  65536,
		Tx:      &VoteTx{Proposal: 1, Support: true},
		Sig:     [][]byte{{0x01, 0x02}},
	}
	a, err := btx.SigData([]byte("chain-a"))
	require.NoError(t, err)
	b, err := btx.SigData([]byte("chain-b"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	// and the signature field itself does not feed the signed bytes
	btx.Sig = [][]byte{{0xff}}
	a2, err := btx.SigData([]byte("chain-a"))
	require.NoError(t, err)
	require.Equal(t, a, a2)
}
