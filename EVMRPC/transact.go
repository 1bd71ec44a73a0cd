package EVMRPC

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"gobridgerelay/types"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

type CallOpts struct {
	ChainID  int64
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
}

// BuildCall packs method(args...) for the target contract and signs it as a
// legacy transaction. Nothing is sent.
func BuildCall(ctx context.Context, key *ecdsa.PrivateKey, target *types.ContractHandle, method string, args []interface{}, opts CallOpts) (*ethtypes.Transaction, error) {
	if _, ok := target.ABI.Methods[method]; !ok {
		return nil, errors.Newf("%s contract abi has no %s method", target.Role, method)
	}
	if opts.GasPrice == nil || opts.GasLimit == 0 {
		return nil, errors.New("gas price and gas limit must be set")
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(opts.ChainID))
	if err != nil {
		return nil, errors.Wrap(err, "error instantiating contract call")
	}
	auth.Context = ctx
	auth.Nonce = new(big.Int).SetUint64(opts.Nonce)
	auth.Value = big.NewInt(0)
	auth.GasLimit = opts.GasLimit
	auth.GasPrice = opts.GasPrice
	auth.NoSend = true

	// all fields are set and NoSend is on, so the contract never touches a backend
	contract := bind.NewBoundContract(target.Address, target.ABI, nil, nil, nil)
	tx, err := contract.Transact(auth, method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "error calling %s method", method)
	}
	return tx, nil
}
