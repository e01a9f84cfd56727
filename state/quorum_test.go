package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVotesRequired(t *testing.T) {
	cases := []struct {
		name      string
		members   uint64
		threshold uint64
		want      uint64
	}{
		{"empty committee uses floor", 0, 5100, 2},
		{"single member uses floor", 1, 5100, 2},
		{"two members use floor", 2, 5100, 2},
		{"floor committee", 3, 5100, 2},
		{"four members", 4, 5100, 3},
		{"five members", 5, 5100, 3},
		{"ten members", 10, 5100, 6},
		{"exact product rounds up to itself", 10, 9000, 9},
		{"hundred members", 100, 5100, 51},
		{"supermajority", 10, 6700, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, VotesRequired(tc.members, tc.threshold))
		})
	}
}

// The required count must be the smallest integer v such that
// v*QuorumDenom >= threshold*denominator.
func TestVotesRequiredIsCeiling(t *testing.T) {
	for members := uint64(0); members <= 20; members++ {
		for _, bps := range []uint64{5100, 6000, 6700, 7500, 9000} {
			denom := members
			if denom < MinMemberCount {
				denom = MinMemberCount
			}
			v := VotesRequired(members, bps)
			require.GreaterOrEqual(t, v*QuorumDenom, bps*denom)
			require.Less(t, (v-1)*QuorumDenom, bps*denom)
		}
	}
}

func TestValidThresholdBps(t *testing.T) {
	require.False(t, ValidThresholdBps(0))
	require.False(t, ValidThresholdBps(5099))
	require.True(t, ValidThresholdBps(5100))
	require.True(t, ValidThresholdBps(7000))
	require.True(t, ValidThresholdBps(9000))
	require.False(t, ValidThresholdBps(9001))
	require.False(t, ValidThresholdBps(QuorumDenom))
}
