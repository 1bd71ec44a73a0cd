package EVMRPC

import (
	"math/big"

	"gobridgerelay/types"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// DecodeLogs decodes every log, removed (reorged) logs are dropped
func DecodeLogs(handle *types.ContractHandle, kind string, chainID int64, logs []ethtypes.Log) ([]*types.RelayEvent, error) {
	events := make([]*types.RelayEvent, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		ev, err := DecodeLog(handle, kind, chainID, l)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func DecodeLog(handle *types.ContractHandle, kind string, chainID int64, l ethtypes.Log) (*types.RelayEvent, error) {
	fields, ok := types.RelayEventFields[kind]
	if !ok {
		return nil, errors.Newf("unknown relay event kind %q", kind)
	}
	event, ok := handle.ABI.Events[kind]
	if !ok {
		return nil, errors.Newf("%s contract abi has no %s event", handle.Role, kind)
	}
	if len(l.Topics) == 0 || l.Topics[0] != event.ID {
		return nil, errors.Newf("log %s:%d is not a %s event", l.TxHash.Hex(), l.Index, kind)
	}

	values := make(map[string]interface{})
	if len(l.Data) > 0 {
		if err := handle.ABI.UnpackIntoMap(values, kind, l.Data); err != nil {
			return nil, errors.Wrapf(err, "cannot unpack %s data in tx %s", kind, l.TxHash.Hex())
		}
	}
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, l.Topics[1:]); err != nil {
		return nil, errors.Wrapf(err, "cannot parse %s topics in tx %s", kind, l.TxHash.Hex())
	}

	token, ok := values[fields.Token].(common.Address)
	if !ok {
		return nil, errors.Newf("%s in tx %s has no address field %q", kind, l.TxHash.Hex(), fields.Token)
	}
	counterparty, ok := values[fields.Counterparty].(common.Address)
	if !ok {
		return nil, errors.Newf("%s in tx %s has no address field %q", kind, l.TxHash.Hex(), fields.Counterparty)
	}
	amount, ok := values[fields.Amount].(*big.Int)
	if !ok || amount.Sign() < 0 {
		return nil, errors.Newf("%s in tx %s has no unsigned field %q", kind, l.TxHash.Hex(), fields.Amount)
	}

	return &types.RelayEvent{
		Kind:         kind,
		ChainID:      chainID,
		Token:        token,
		Counterparty: counterparty,
		Amount:       amount,
		BlockNumber:  l.BlockNumber,
		TxHash:       l.TxHash,
		LogIndex:     l.Index,
	}, nil
}
