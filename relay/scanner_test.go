package relay_test

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"testing"

	"gobridgerelay/config"
	"gobridgerelay/relay"
	"gobridgerelay/types"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contractInfoJSON = `{
  "source": {
    "address": "0x1111111111111111111111111111111111111111",
    "abi": [
      {"anonymous":false,"inputs":[{"indexed":false,"name":"token","type":"address"},{"indexed":false,"name":"recipient","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"Deposit","type":"event"},
      {"inputs":[{"name":"_token","type":"address"},{"name":"_recipient","type":"address"},{"name":"_amount","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"}
    ]
  },
  "destination": {
    "address": "0x2222222222222222222222222222222222222222",
    "abi": [
      {"anonymous":false,"inputs":[{"indexed":false,"name":"underlying_token","type":"address"},{"indexed":true,"name":"wrapped_token","type":"address"},{"indexed":false,"name":"frm","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"Unwrap","type":"event"},
      {"inputs":[{"name":"_underlying_token","type":"address"},{"name":"_recipient","type":"address"},{"name":"_amount","type":"uint256"}],"name":"wrap","outputs":[],"stateMutability":"nonpayable","type":"function"}
    ]
  }
}`

type logQuery struct {
	kind     string
	from, to uint64
}

type fakeChain struct {
	name     string
	id       int64
	latest   uint64
	blockErr error
	events   []*types.RelayEvent
	logsErr  error
	nonce    uint64
	nonceErr error
	gasPrice *big.Int
	gasErr   error
	// send attempt index -> error
	sendErrs map[int]error

	calls    int
	queries  []logQuery
	attempts int
	sent     []*ethtypes.Transaction
}

func (f *fakeChain) ChainID() int64 { return f.id }
func (f *fakeChain) Name() string   { return f.name }

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	f.calls++
	return f.latest, f.blockErr
}

func (f *fakeChain) GetLogs(ctx context.Context, handle *types.ContractHandle, kind string, fromBlock, toBlock uint64) ([]*types.RelayEvent, error) {
	f.calls++
	f.queries = append(f.queries, logQuery{kind: kind, from: fromBlock, to: toBlock})
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return f.events, nil
}

func (f *fakeChain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.calls++
	return f.nonce, f.nonceErr
}

func (f *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	f.calls++
	if f.gasErr != nil {
		return nil, f.gasErr
	}
	if f.gasPrice == nil {
		return big.NewInt(1_000_000_000), nil
	}
	return f.gasPrice, nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	f.calls++
	attempt := f.attempts
	f.attempts++
	if err := f.sendErrs[attempt]; err != nil {
		return err
	}
	f.sent = append(f.sent, tx)
	return nil
}

type fixture struct {
	source      *fakeChain
	destination *fakeChain
	contracts   *config.Contracts
	key         *ecdsa.PrivateKey
	ledger      *relay.MemoryLedger
	scanner     *relay.Scanner
}

func newFixture(t *testing.T, opts relay.Options) *fixture {
	t.Helper()

	contracts, err := config.ParseContracts([]byte(contractInfoJSON))
	require.NoError(t, err)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	f := &fixture{
		source:      &fakeChain{name: "Avalanche Fuji", id: 43113, latest: 1000},
		destination: &fakeChain{name: "BSC Testnet", id: 97, latest: 2000},
		contracts:   contracts,
		key:         key,
		ledger:      relay.NewMemoryLedger(),
	}
	if opts.Lookback == 0 {
		opts.Lookback = config.DefaultLookback
	}
	f.scanner, err = relay.NewScanner(f.source, f.destination, contracts, key, f.ledger, opts)
	require.NoError(t, err)
	return f
}

func event(kind string, chainID int64, block uint64, index uint, token, counterparty common.Address, amount int64) *types.RelayEvent {
	return &types.RelayEvent{
		Kind:         kind,
		ChainID:      chainID,
		Token:        token,
		Counterparty: counterparty,
		Amount:       big.NewInt(amount),
		BlockNumber:  block,
		TxHash:       common.BigToHash(big.NewInt(int64(block)*100 + int64(index))),
		LogIndex:     index,
	}
}

// decodeCall returns the method name and arguments packed into tx
func decodeCall(t *testing.T, handle *types.ContractHandle, tx *ethtypes.Transaction) (string, []interface{}) {
	t.Helper()
	method, err := handle.ABI.MethodById(tx.Data()[:4])
	require.NoError(t, err)
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	return method.Name, args
}

func TestQueryRange(t *testing.T) {
	tests := []struct {
		latest, lookback uint64
		from, to         uint64
	}{
		{latest: 1000, lookback: 5, from: 995, to: 1000},
		{latest: 5, lookback: 5, from: 0, to: 5},
		{latest: 3, lookback: 5, from: 0, to: 3},
		{latest: 0, lookback: 5, from: 0, to: 0},
		{latest: 10, lookback: 0, from: 10, to: 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%d", tt.latest, tt.lookback), func(t *testing.T) {
			from, to := relay.QueryRange(tt.latest, tt.lookback)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestScanSourceRelaysDepositAsWrap(t *testing.T) {
	f := newFixture(t, relay.Options{})
	token := common.HexToAddress("0xAA")
	recipient := common.HexToAddress("0xBB")
	f.source.events = []*types.RelayEvent{event(types.EventDeposit, 43113, 998, 0, token, recipient, 42)}
	f.destination.nonce = 3

	n, err := f.scanner.Scan(context.Background(), "source")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Equal(t, []logQuery{{kind: types.EventDeposit, from: 995, to: 1000}}, f.source.queries)
	assert.Empty(t, f.source.sent)
	require.Len(t, f.destination.sent, 1)

	tx := f.destination.sent[0]
	dest := f.contracts.Handle(types.RoleDestination)
	require.NotNil(t, tx.To())
	assert.Equal(t, dest.Address, *tx.To())
	assert.Equal(t, uint64(3), tx.Nonce())
	assert.Equal(t, uint64(config.DefaultGasLimit), tx.Gas())
	assert.Equal(t, int64(97), tx.ChainId().Int64())

	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(big.NewInt(97)), tx)
	require.NoError(t, err)
	assert.Equal(t, f.scanner.Warden(), sender)

	method, args := decodeCall(t, dest, tx)
	assert.Equal(t, types.MethodWrap, method)
	require.Len(t, args, 3)
	assert.Equal(t, token, args[0])
	assert.Equal(t, recipient, args[1])
	assert.Equal(t, big.NewInt(42), args[2])
}

func TestScanDestinationRelaysUnwrapAsWithdraw(t *testing.T) {
	f := newFixture(t, relay.Options{})
	underlying := common.HexToAddress("0xCC")
	to := common.HexToAddress("0xDD")
	f.destination.events = []*types.RelayEvent{event(types.EventUnwrap, 97, 1999, 2, underlying, to, 7)}

	n, err := f.scanner.Scan(context.Background(), "destination")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Equal(t, []logQuery{{kind: types.EventUnwrap, from: 1995, to: 2000}}, f.destination.queries)
	assert.Empty(t, f.destination.sent)
	require.Len(t, f.source.sent, 1)

	tx := f.source.sent[0]
	src := f.contracts.Handle(types.RoleSource)
	assert.Equal(t, src.Address, *tx.To())
	assert.Equal(t, int64(43113), tx.ChainId().Int64())

	method, args := decodeCall(t, src, tx)
	assert.Equal(t, types.MethodWithdraw, method)
	assert.Equal(t, []interface{}{underlying, to, big.NewInt(7)}, args)
}

func TestScanClampsRangeToGenesis(t *testing.T) {
	f := newFixture(t, relay.Options{})
	f.source.latest = 3

	n, err := f.scanner.Scan(context.Background(), "source")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []logQuery{{kind: types.EventDeposit, from: 0, to: 3}}, f.source.queries)
}

func TestScanNoEventsIsSuccess(t *testing.T) {
	f := newFixture(t, relay.Options{})

	n, err := f.scanner.Scan(context.Background(), "destination")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Zero(t, f.source.attempts)
	assert.Zero(t, f.destination.attempts)

	height, err := f.ledger.GetScannedBlock(97)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), height)
}

func TestScanLogFetchFailure(t *testing.T) {
	f := newFixture(t, relay.Options{})
	f.destination.logsErr = errors.New("connection refused")

	n, err := f.scanner.Scan(context.Background(), "destination")
	require.Error(t, err)
	assert.True(t, errors.Is(err, relay.ErrQuery))
	assert.Equal(t, 0, n)
	assert.Zero(t, f.source.attempts)
	assert.Zero(t, f.destination.attempts)
}

func TestScanBlockNumberFailure(t *testing.T) {
	f := newFixture(t, relay.Options{})
	f.source.blockErr = errors.New("dial tcp: i/o timeout")

	n, err := f.scanner.Scan(context.Background(), "source")
	require.Error(t, err)
	assert.True(t, errors.Is(err, relay.ErrConnectivity))
	assert.Equal(t, 0, n)
	assert.Empty(t, f.source.queries)
}

func TestScanInvalidRole(t *testing.T) {
	f := newFixture(t, relay.Options{})

	for _, role := range []string{"both", "", "src", "SOURCE", " source", "destination "} {
		n, err := f.scanner.Scan(context.Background(), role)
		require.Error(t, err)
		assert.True(t, errors.Is(err, relay.ErrInvalidRole))
		assert.Equal(t, 0, n)
	}
	assert.Zero(t, f.source.calls)
	assert.Zero(t, f.destination.calls)
}

func threeDeposits() []*types.RelayEvent {
	token := common.HexToAddress("0xAA")
	return []*types.RelayEvent{
		event(types.EventDeposit, 43113, 996, 0, token, common.HexToAddress("0x01"), 1),
		event(types.EventDeposit, 43113, 997, 1, token, common.HexToAddress("0x02"), 2),
		event(types.EventDeposit, 43113, 999, 0, token, common.HexToAddress("0x03"), 3),
	}
}

func TestScanAbortsOnSubmissionFailure(t *testing.T) {
	f := newFixture(t, relay.Options{})
	f.source.events = threeDeposits()
	f.destination.sendErrs = map[int]error{1: errors.New("insufficient funds for gas")}

	n, err := f.scanner.Scan(context.Background(), "source")
	require.Error(t, err)
	assert.True(t, errors.Is(err, relay.ErrSubmission))
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, f.destination.attempts)
	require.Len(t, f.destination.sent, 1)

	failed, err := f.ledger.FindRecordsByStatus(types.RecordStatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "43113:997:1", failed[0].EventKey)
	assert.Contains(t, failed[0].Message, "insufficient funds")

	// the failed event is not marked, the next scan picks it up again
	relayed, err := f.ledger.IsRelayed("43113:997:1")
	require.NoError(t, err)
	assert.False(t, relayed)
}

func TestScanSubmissionStepFailures(t *testing.T) {
	tests := map[string]func(c *fakeChain){
		"nonce":     func(c *fakeChain) { c.nonceErr = errors.New("eth_getTransactionCount: timeout") },
		"gas price": func(c *fakeChain) { c.gasErr = errors.New("eth_gasPrice: timeout") },
		"send":      func(c *fakeChain) { c.sendErrs = map[int]error{0: errors.New("replacement transaction underpriced")} },
	}
	for name, breakChain := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, relay.Options{})
			f.source.events = threeDeposits()[:1]
			breakChain(f.destination)

			n, err := f.scanner.Scan(context.Background(), "source")
			require.Error(t, err)
			assert.True(t, errors.Is(err, relay.ErrSubmission))
			assert.Equal(t, 0, n)
			assert.Empty(t, f.destination.sent)

			failed, err := f.ledger.FindRecordsByStatus(types.RecordStatusFailed)
			require.NoError(t, err)
			require.Len(t, failed, 1)
			assert.Equal(t, "43113:996:0", failed[0].EventKey)
		})
	}
}

func TestScanContinuesOnSubmissionFailure(t *testing.T) {
	f := newFixture(t, relay.Options{ContinueOnFailure: true})
	f.source.events = threeDeposits()
	f.destination.sendErrs = map[int]error{1: errors.New("nonce too low")}

	n, err := f.scanner.Scan(context.Background(), "source")
	require.Error(t, err)
	assert.True(t, errors.Is(err, relay.ErrSubmission))
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, f.destination.attempts)
	require.Len(t, f.destination.sent, 2)

	_, args := decodeCall(t, f.contracts.Handle(types.RoleDestination), f.destination.sent[1])
	assert.Equal(t, common.HexToAddress("0x03"), args[1])
}

func TestScanRelaysInLogOrderWithIncreasingNonces(t *testing.T) {
	f := newFixture(t, relay.Options{})
	f.source.events = threeDeposits()
	f.destination.nonce = 7

	n, err := f.scanner.Scan(context.Background(), "source")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, f.destination.sent, 3)

	dest := f.contracts.Handle(types.RoleDestination)
	for i, tx := range f.destination.sent {
		assert.Equal(t, uint64(7+i), tx.Nonce())
		_, args := decodeCall(t, dest, tx)
		assert.Equal(t, f.source.events[i].Counterparty, args[1])
		assert.Equal(t, f.source.events[i].Amount, args[2])
	}
}

func TestScanSkipsRelayedEvents(t *testing.T) {
	f := newFixture(t, relay.Options{})
	f.source.events = threeDeposits()[:1]

	n, err := f.scanner.Scan(context.Background(), "source")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// same block window again
	n, err = f.scanner.Scan(context.Background(), "source")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, f.destination.sent, 1)

	records, err := f.ledger.FindRecordsByStatus(types.RecordStatusRelayed)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "source", records[0].SourceRole)
	assert.Equal(t, f.destination.sent[0].Hash().Hex(), records[0].DestTxHash)
	assert.Equal(t, "1", records[0].Amount)
}

func TestNewScannerValidation(t *testing.T) {
	contracts, err := config.ParseContracts([]byte(contractInfoJSON))
	require.NoError(t, err)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	src := &fakeChain{name: "src", id: 1}
	dst := &fakeChain{name: "dst", id: 2}

	_, err = relay.NewScanner(src, dst, contracts, nil, nil, relay.Options{})
	assert.True(t, errors.Is(err, relay.ErrConfig))

	_, err = relay.NewScanner(src, dst, nil, key, nil, relay.Options{})
	assert.True(t, errors.Is(err, relay.ErrConfig))

	// swap the roles: the source contract has no Deposit event then
	swapped := &config.Contracts{Handles: map[types.ChainRole]*types.ContractHandle{
		types.RoleSource:      contracts.Handle(types.RoleDestination),
		types.RoleDestination: contracts.Handle(types.RoleSource),
	}}
	_, err = relay.NewScanner(src, dst, swapped, key, nil, relay.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, relay.ErrConfig))
	assert.Contains(t, err.Error(), "has no")
}

func TestParsePrivateKey(t *testing.T) {
	_, err := relay.ParsePrivateKey("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, relay.ErrConfig))

	_, err = relay.ParsePrivateKey("REPLACE_ME_WITH_ENV")
	require.Error(t, err)
	assert.True(t, errors.Is(err, relay.ErrConfig))

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := fmt.Sprintf("0x%x", crypto.FromECDSA(key))
	parsed, err := relay.ParsePrivateKey(hexKey)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(parsed.PublicKey))
}
