package main

import (
	"github.com/spf13/cobra"

	"github.com/keeperhq/tgov/tx"
)

type voteArguments struct {
	txArguments
	Proposal uint64
	Against  bool
}

var voteArgs voteArguments

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Cast a vote on an active proposal",
	Long:  ``,
	Run:   voteRun,
}

func init() {
	txFlags(voteCmd, &voteArgs.txArguments)
	voteCmd.Flags().Uint64VarP(&voteArgs.Proposal, "proposal", "p", 0, "proposal id")
	voteCmd.Flags().BoolVarP(&voteArgs.Against, "against", "", false, "vote against instead of for")
}

func voteRun(cmd *cobra.Command, args []string) {
	stx := &tx.VoteTx{
		Proposal: voteArgs.Proposal,
		Support:  !voteArgs.Against,
	}
	signAndSend(&voteArgs.txArguments, tx.GovTxTypeVote, stx)
}
