package relay

import (
	"context"

	"gobridgerelay/EVMRPC"
	"gobridgerelay/config"
	"gobridgerelay/types"

	"github.com/cockroachdb/errors"
)

// Setup loads the contract registry and the signing key, connects to both
// chains and returns a ready Scanner. The returned func closes the connections.
func Setup(ctx context.Context, cfg *config.Configuration, ledger Ledger) (*Scanner, func(), error) {
	contracts, err := config.LoadContracts(cfg.Relay.ContractInfo)
	if err != nil {
		return nil, nil, errors.Mark(err, ErrConfig)
	}

	hexKey := cfg.EVM.PrivateKey
	if hexKey == "" {
		hexKey = contracts.PrivateKey
	}
	key, err := ParsePrivateKey(hexKey)
	if err != nil {
		return nil, nil, err
	}

	source, err := EVMRPC.Dial(ctx, cfg.Chain(types.RoleSource))
	if err != nil {
		return nil, nil, classifyDial(err)
	}
	destination, err := EVMRPC.Dial(ctx, cfg.Chain(types.RoleDestination))
	if err != nil {
		source.Close()
		return nil, nil, classifyDial(err)
	}
	closeAll := func() {
		source.Close()
		destination.Close()
	}

	scanner, err := NewScanner(source, destination, contracts, key, ledger, OptionsFromConfig(cfg))
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return scanner, closeAll, nil
}

// a node on the wrong chain is a configuration problem, anything else is connectivity
func classifyDial(err error) error {
	if errors.Is(err, EVMRPC.ErrChainMismatch) {
		return errors.Mark(err, ErrConfig)
	}
	return errors.Mark(err, ErrConnectivity)
}
