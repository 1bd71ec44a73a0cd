package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gobridgerelay/config"
	"gobridgerelay/log"
	"gobridgerelay/redis"
	"gobridgerelay/relay"
	"gobridgerelay/types"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay Deposit/Unwrap events between the source and destination chains",
	Long: `relay watches the bridge contracts on two EVM chains. Deposit events on the
source chain are mirrored as wrap() calls on the destination chain, Unwrap events
on the destination chain as withdraw() calls on the source chain.

Examples:
  relay scan source
  relay scan destination
  relay watch
  relay nft 42`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile); err != nil {
			return errors.Mark(err, relay.ErrConfig)
		}
		return log.InitLogger(config.Config.Log.Level, config.Config.Log.Format, config.Config.Log.Dir)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultConfigFile, "config file")
	rootCmd.AddCommand(scanCmd, watchCmd, checkCmd, nftCmd, ipfsCmd)
}

// interruptContext is cancelled on SIGINT/SIGTERM
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type relayLedger interface {
	relay.Ledger
	FindRecordsByStatus(status string) ([]*types.RelayRecord, error)
	GetScannedBlock(chainID int64) (int64, error)
}

// openLedger returns the Redis store when enabled, otherwise an in-process one
func openLedger(cfg *config.Configuration) (relayLedger, func(), error) {
	if !cfg.Server.RedisEnabled {
		return relay.NewMemoryLedger(), func() {}, nil
	}

	store := redis.NewStore(cfg.Server.RedisHost, cfg.Server.RedisPort)
	// without persistence do not continue
	if err := store.Ping(); err != nil {
		store.Close()
		return nil, nil, errors.Mark(errors.Wrap(err, "cannot connect to Redis"), relay.ErrLedger)
	}
	return store, func() { store.Close() }, nil
}
