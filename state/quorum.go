package state

const (
	// MinMemberCount is the committee floor size. Below it the quorum
	// denominator stays pinned at the floor, which makes proposals harder to
	// pass for an under-sized committee.
	MinMemberCount = 3

	// QuorumDenom scales quorum thresholds: 5100 means 51%.
	QuorumDenom = 10000

	DefaultQuorumThresholdBps = 5100
	MinQuorumThresholdBps     = 5100
	MaxQuorumThresholdBps     = 9000

	// ProposalExpiryWindow is the voting window in blocks, roughly two weeks
	// at the assumed cadence.
	ProposalExpiryWindow = 92550
)

// VotesRequired returns the supporting votes needed to pass a proposal. The
// denominator never drops below MinMemberCount. The result is the smallest
// integer satisfying votes*QuorumDenom >= thresholdBps*denominator, which is
// exactly the `votesFor >= threshold*count` comparison on unrounded values.
func VotesRequired(memberCount uint64, thresholdBps uint64) uint64 {
	denom := memberCount
	if denom < MinMemberCount {
		denom = MinMemberCount
	}
	return (thresholdBps*denom + QuorumDenom - 1) / QuorumDenom
}

// ValidThresholdBps reports whether a governed threshold lands in the
// [51%, 90%] policy range.
func ValidThresholdBps(bps uint64) bool {
	return bps >= MinQuorumThresholdBps && bps <= MaxQuorumThresholdBps
}
