package EVMRPC

import (
	"context"
	"math/big"

	"gobridgerelay/config"
	"gobridgerelay/log"
	"gobridgerelay/types"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrChainMismatch is returned by Dial when the node serves another chain
var ErrChainMismatch = errors.New("node chain id does not match configuration")

// Client is a connection to one EVM chain
type Client struct {
	Chain config.ChainConfig
	URL   string
	eth   *ethclient.Client
}

// Dial connects to the first endpoint of the chain's RPC list that answers eth_chainId
func Dial(ctx context.Context, chain config.ChainConfig) (*Client, error) {
	if len(chain.RPCList) == 0 {
		return nil, errors.Newf("no RPC endpoints configured for %s", chain.Name)
	}

	var lastErr error
	for _, url := range chain.RPCList {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			log.GetLogger().Warn("error connecting to RPC", "url", url, "error", err)
			lastErr = err
			continue
		}

		chainID, err := client.ChainID(ctx)
		if err != nil {
			log.GetLogger().Warn("RPC endpoint is not responding", "url", url, "error", err)
			client.Close()
			lastErr = err
			continue
		}
		if chain.ChainID != 0 && chainID.Int64() != chain.ChainID {
			client.Close()
			return nil, errors.Wrapf(ErrChainMismatch, "%s at %s reports chain id %s, expected %d", chain.Name, url, chainID, chain.ChainID)
		}

		return &Client{Chain: chain, URL: url, eth: client}, nil
	}
	return nil, errors.Wrapf(lastErr, "cannot connect to %s", chain.Name)
}

func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) ChainID() int64 {
	return c.Chain.ChainID
}

func (c *Client) Name() string {
	return c.Chain.Name
}

// Eth exposes the underlying client for read-only contract calls
func (c *Client) Eth() *ethclient.Client {
	return c.eth
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// GetLogs returns the decoded events of one kind emitted by the handle's
// contract in [fromBlock, toBlock], in the order the node returned them
func (c *Client) GetLogs(ctx context.Context, handle *types.ContractHandle, kind string, fromBlock, toBlock uint64) ([]*types.RelayEvent, error) {
	event, ok := handle.ABI.Events[kind]
	if !ok {
		return nil, errors.Newf("%s contract abi has no %s event", handle.Role, kind)
	}

	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{handle.Address},
		Topics:    [][]common.Hash{{event.ID}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "eth_getLogs %s [%d, %d]", kind, fromBlock, toBlock)
	}

	return DecodeLogs(handle, kind, c.ChainID(), logs)
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.eth.PendingNonceAt(ctx, account)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

func (c *Client) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	return c.eth.SendTransaction(ctx, tx)
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, account, blockNumber)
}
