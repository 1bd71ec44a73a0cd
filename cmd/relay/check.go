package main

import (
	"fmt"

	"gobridgerelay/EVMRPC"
	"gobridgerelay/config"
	"gobridgerelay/relay"
	"gobridgerelay/types"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Connect to both chains and print their latest block",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := interruptContext()
		defer cancel()

		for _, role := range []types.ChainRole{types.RoleSource, types.RoleDestination} {
			chain := config.Config.Chain(role)
			client, err := EVMRPC.Dial(ctx, chain)
			if err != nil {
				return errors.Mark(err, relay.ErrConnectivity)
			}
			latest, err := client.BlockNumber(ctx)
			client.Close()
			if err != nil {
				return errors.Mark(errors.Wrapf(err, "cannot get latest block of %s", chain.Name), relay.ErrConnectivity)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (chain id %d) via %s: block %d\n", chain.Name, chain.ChainID, client.URL, latest)
		}
		return nil
	},
}
