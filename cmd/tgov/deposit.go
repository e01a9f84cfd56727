package main

import (
	"github.com/spf13/cobra"

	"github.com/keeperhq/tgov/tx"
)

type depositArguments struct {
	txArguments
	Amount uint64
}

var depositArgs depositArguments

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Add funds to the shared deposit pool",
	Long:  ``,
	Run:   depositRun,
}

func init() {
	txFlags(depositCmd, &depositArgs.txArguments)
	depositCmd.Flags().Uint64VarP(&depositArgs.Amount, "amount", "a", 0, "deposit amount")
}

func depositRun(cmd *cobra.Command, args []string) {
	stx := &tx.DepositTx{
		Amount: depositArgs.Amount,
	}
	signAndSend(&depositArgs.txArguments, tx.GovTxTypeDeposit, stx)
}
