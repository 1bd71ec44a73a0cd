package main

import (
	"gobridgerelay/config"
	"gobridgerelay/relay"
	"gobridgerelay/types"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [source|destination]",
	Short: "Relay the events of the last blocks of one chain",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := "source"
		if len(args) > 0 {
			role = args[0]
		}
		// reject a bad role before connecting anywhere
		if _, ok := types.ParseChainRole(role); !ok {
			return errors.Mark(errors.Newf("invalid chain %q, expected source or destination", role), relay.ErrInvalidRole)
		}

		ctx, cancel := interruptContext()
		defer cancel()

		ledger, closeLedger, err := openLedger(&config.Config)
		if err != nil {
			return err
		}
		defer closeLedger()

		scanner, closeClients, err := relay.Setup(ctx, &config.Config, ledger)
		if err != nil {
			return err
		}
		defer closeClients()

		n, err := scanner.Scan(ctx, role)
		if err != nil {
			return errors.Wrapf(err, "scan %s relayed %d before failing", role, n)
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "scan %s: %d relayed\n", role, n)
		return nil
	},
}
