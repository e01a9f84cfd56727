package main

import (
	"github.com/spf13/cobra"

	"github.com/keeperhq/tgov/state"
	"github.com/keeperhq/tgov/tx"
)

type bootstrapArguments struct {
	txArguments
	ThresholdBps uint64
	Seal         bool
}

var bootstrapArgs bootstrapArguments

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Set the quorum threshold while the bootstrap path is open",
	Long:  ``,
	Run:   bootstrapRun,
}

func init() {
	txFlags(bootstrapCmd, &bootstrapArgs.txArguments)
	bootstrapCmd.Flags().Uint64VarP(&bootstrapArgs.ThresholdBps, "threshold", "t", state.DefaultQuorumThresholdBps, "quorum threshold in basis points")
	bootstrapCmd.Flags().BoolVarP(&bootstrapArgs.Seal, "seal", "", false, "permanently close the bootstrap settings path")
}

func bootstrapRun(cmd *cobra.Command, args []string) {
	stx := &tx.BootstrapTx{
		ThresholdBps: bootstrapArgs.ThresholdBps,
		Seal:         bootstrapArgs.Seal,
	}
	signAndSend(&bootstrapArgs.txArguments, tx.GovTxTypeBootstrap, stx)
}
