package main

import (
	"encoding/json"
	"strconv"

	"gobridgerelay/EVMRPC"
	"gobridgerelay/config"
	"gobridgerelay/nft"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var nftCmd = &cobra.Command{
	Use:   "nft <token id>",
	Short: "Print owner, image and eyes of a Bored Ape",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return errors.Wrapf(err, "%q is not a token id", args[0])
		}
		if cfg.NFT.RPC == "" {
			return errors.New("no Ethereum RPC configured, set nft.rpc or NFT_RPC")
		}
		if !common.IsHexAddress(cfg.NFT.Contract) {
			return errors.Newf("nft contract %q is not a hex address", cfg.NFT.Contract)
		}

		contractABI, err := nft.LoadABI(cfg.NFT.ABIPath)
		if err != nil {
			return err
		}

		ctx, cancel := interruptContext()
		defer cancel()

		client, err := EVMRPC.Dial(ctx, config.ChainConfig{Name: "Ethereum", RPCList: []string{cfg.NFT.RPC}})
		if err != nil {
			return errors.Wrapf(err, "failed to connect to provider at %s", cfg.NFT.RPC)
		}
		defer client.Close()

		info, err := nft.NewFetcher(client.Eth(), common.HexToAddress(cfg.NFT.Contract), contractABI, cfg.NFT.Gateway).GetApeInfo(ctx, id)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	},
}
