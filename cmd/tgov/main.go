package main

import (
	"fmt"
	"os"
)

func main() {
	clCmd.AddCommand(accountCmd)
	clCmd.AddCommand(initCmd)
	clCmd.AddCommand(versionCmd)
	clCmd.AddCommand(newProposalCmd)
	clCmd.AddCommand(voteCmd)
	clCmd.AddCommand(depositCmd)
	clCmd.AddCommand(workCmd)
	clCmd.AddCommand(retireCmd)
	clCmd.AddCommand(bootstrapCmd)
	clCmd.AddCommand(quorumCmd)
	clCmd.AddCommand(poolCmd)
	clCmd.AddCommand(proposalQueryCmd)
	clCmd.AddCommand(pubkeyCmd)
	if err := clCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
