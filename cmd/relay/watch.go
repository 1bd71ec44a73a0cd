package main

import (
	"gobridgerelay/config"
	"gobridgerelay/relay"
	"gobridgerelay/types"
	"gobridgerelay/workers"
	"gobridgerelay/workers/handlers"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan both chains periodically and serve the status API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config
		ctx, cancel := interruptContext()
		defer cancel()

		ledger, closeLedger, err := openLedger(cfg)
		if err != nil {
			return err
		}
		defer closeLedger()

		scanner, closeClients, err := relay.Setup(ctx, cfg, ledger)
		if err != nil {
			return err
		}
		defer closeClients()

		api := &handlers.API{Store: ledger, Warden: scanner.Warden()}
		for _, role := range []types.ChainRole{types.RoleSource, types.RoleDestination} {
			client := scanner.Client(role)
			chain := handlers.Chain{Role: role, Name: client.Name(), ChainID: client.ChainID()}
			if br, ok := client.(handlers.BalanceReader); ok {
				chain.Client = br
			}
			api.Chains = append(api.Chains, chain)
		}

		done := make(chan struct{})
		go func() {
			workers.Worker_watch(ctx, scanner, cfg.Relay.WatchInterval)
			close(done)
		}()

		err = workers.Worker_HTTP(ctx, cfg.Server.Listen, api)
		// the HTTP service can fail on its own, stop scanning then too
		cancel()
		<-done
		return err
	},
}
