package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
)

type queryArguments struct {
	Url      string
	Proposal uint64
}

var queryArgs queryArguments

var quorumCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Show the committed quorum configuration",
	Long:  ``,
	Run:   quorumRun,
}

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Show the deposit pool balance and waiting work units",
	Long:  ``,
	Run:   poolRun,
}

var proposalQueryCmd = &cobra.Command{
	Use:   "proposal",
	Short: "Show a proposal record and its derived status",
	Long:  ``,
	Run:   proposalQueryRun,
}

func init() {
	urlFlag(quorumCmd, &queryArgs.Url)
	urlFlag(poolCmd, &queryArgs.Url)
	urlFlag(proposalQueryCmd, &queryArgs.Url)
	proposalQueryCmd.Flags().Uint64VarP(&queryArgs.Proposal, "proposal", "p", 0, "proposal id")
}

func abciQuery(url string, path string, data []byte) {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		fmt.Printf("new client err:%v\n", err)
		return
	}
	res, err := cli.ABCIQuery(context.Background(), path, data)
	if err != nil {
		fmt.Printf("request err:%v\n", err)
		return
	}
	if res.Response.Code != 0 {
		fmt.Printf("query fail code:%v log:%v\n", res.Response.Code, res.Response.Log)
		return
	}
	fmt.Printf("%s\n", string(res.Response.Value))
}

func quorumRun(cmd *cobra.Command, args []string) {
	abciQuery(queryArgs.Url, "/quorum/", nil)
}

func poolRun(cmd *cobra.Command, args []string) {
	abciQuery(queryArgs.Url, "/pool/", nil)
}

func proposalQueryRun(cmd *cobra.Command, args []string) {
	abciQuery(queryArgs.Url, "/proposals/", []byte(strconv.FormatUint(queryArgs.Proposal, 10)))
}
