package main

import (
	"github.com/spf13/cobra"

	"github.com/keeperhq/tgov/tx"
)

type retireArguments struct {
	txArguments
	Amount uint64
}

var retireArgs retireArguments

var retireCmd = &cobra.Command{
	Use:   "retire",
	Short: "Withdraw the full bond and leave the committee",
	Long:  ``,
	Run:   retireRun,
}

func init() {
	txFlags(retireCmd, &retireArgs.txArguments)
	retireCmd.Flags().Uint64VarP(&retireArgs.Amount, "amount", "a", 0, "bond amount to withdraw, must equal the full stake")
}

func retireRun(cmd *cobra.Command, args []string) {
	stx := &tx.RetireTx{
		Amount: retireArgs.Amount,
	}
	signAndSend(&retireArgs.txArguments, tx.GovTxTypeRetire, stx)
}
