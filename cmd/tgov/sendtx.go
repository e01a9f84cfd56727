package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"

	"github.com/keeperhq/tgov/crypto"
	"github.com/keeperhq/tgov/tx"
)

// txArguments are the flags shared by every tx-sending command.
type txArguments struct {
	Url    string
	Index  uint64
	Nonce  uint64
	Skey   string
	NoSend bool
}

func txFlags(cmd *cobra.Command, args *txArguments) {
	urlFlag(cmd, &args.Url)
	cmd.Flags().Uint64VarP(&args.Index, "index", "i", 0, "account index")
	cmd.Flags().Uint64VarP(&args.Nonce, "nonce", "n", 0, "account nonce")
	cmd.Flags().StringVarP(&args.Skey, "skeyPath", "s", "./config/priv_validator_key.json", "private key path")
	cmd.Flags().BoolVarP(&args.NoSend, "nosend", "", false, "not send transaction but print signature")
}

// signAndSend wraps the payload in a GovTx envelope, signs it with the file
// key and broadcasts it. Nonce 0 means fetch the current account nonce first.
func signAndSend(args *txArguments, txType tx.GovTxType, payload any) {
	cli, err := http.New(args.Url, "/websocket")
	if err != nil {
		fmt.Printf("new client err:%v\n", err)
		return
	}
	ctx := context.Background()
	gres, err := cli.Genesis(ctx)
	if err != nil {
		fmt.Printf("get chain genesis err:%v\n", err)
		return
	}
	chainId := gres.Genesis.ChainID
	nonce := args.Nonce
	if nonce == 0 {
		act, err := queryAccount(args.Url, args.Index, "")
		if err != nil {
			return
		}
		nonce = act.Nonce
	}
	btx := tx.GovTx{
		Version: tx.GovTxVersion1,
		Type:    txType,
		Nonce:   nonce,
		Member:  args.Index,
		Tx:      payload,
	}
	dat, err := btx.SigData([]byte(chainId))
	if err != nil {
		fmt.Printf("tx sign data err:%v\n", err)
		return
	}
	println("data signed:", hex.EncodeToString(dat))
	sigs := [][]byte{}
	pv := crypto.LoadFilePV(args.Skey)
	sig, err := pv.Sign(dat)
	if err != nil {
		fmt.Printf("sign tx err:%v\n", err)
		return
	}
	println("pubkey:", hex.EncodeToString(pv.PublicKey()))
	println("address:", pv.Address())
	sigs = append(sigs, sig)
	if args.NoSend {
		fmt.Println("transaction signatures:")
		for _, sig := range sigs {
			fmt.Println(hex.EncodeToString(sig))
		}
		return
	}
	btx.Sig = sigs
	dat, err = tx.MarshalGovTx(&btx)
	if err != nil {
		fmt.Printf("encode tx err:%v\n", err)
		return
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		fmt.Printf("broadcast tx err:%v\n", err)
		return
	}
	dat, _ = json.Marshal(res)
	fmt.Printf("%v\n", string(dat))
}
