package main

import (
	"github.com/spf13/cobra"

	"github.com/keeperhq/tgov/tx"
)

type workArguments struct {
	txArguments
	Capacity uint64
}

var workArgs workArguments

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Enqueue a capacity request against the deposit pool",
	Long:  ``,
	Run:   workRun,
}

func init() {
	txFlags(workCmd, &workArgs.txArguments)
	workCmd.Flags().Uint64VarP(&workArgs.Capacity, "capacity", "c", 0, "requested capacity")
}

func workRun(cmd *cobra.Command, args []string) {
	stx := &tx.WorkUnitTx{
		Capacity: workArgs.Capacity,
	}
	signAndSend(&workArgs.txArguments, tx.GovTxTypeWorkUnit, stx)
}
