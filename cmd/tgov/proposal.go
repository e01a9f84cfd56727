package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keeperhq/tgov/tx"
	"github.com/keeperhq/tgov/types"
)

type newProposalArguments struct {
	txArguments
	Type    uint64
	Payload string
}

var newProposalArgs newProposalArguments

var newProposalCmd = &cobra.Command{
	Use:   "newproposal",
	Short: "Submit a proposal for a committee vote",
	Long:  ``,
	Run:   newProposalRun,
}

func init() {
	txFlags(newProposalCmd, &newProposalArgs.txArguments)
	newProposalCmd.Flags().Uint64VarP(&newProposalArgs.Type, "type", "t", uint64(types.ProposalTypeInvite), "proposal type (1=invite 2=leave 3=replace 4=kick 5=bond 6=quorum)")
	newProposalCmd.Flags().StringVarP(&newProposalArgs.Payload, "payload", "p", "", "hex encoded proposal payload")
}

func newProposalRun(cmd *cobra.Command, args []string) {
	payload, err := hex.DecodeString(newProposalArgs.Payload)
	if err != nil {
		fmt.Printf("invalid payload:%v\n", err)
		return
	}
	if !types.ProposalType(newProposalArgs.Type).Valid() {
		fmt.Printf("unknown proposal type:%v\n", newProposalArgs.Type)
		return
	}
	stx := &tx.ProposalTx{
		Type:    types.ProposalType(newProposalArgs.Type),
		Payload: payload,
	}
	signAndSend(&newProposalArgs.txArguments, tx.GovTxTypeProposal, stx)
}
