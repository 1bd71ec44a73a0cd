package relay

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"gobridgerelay/EVMRPC"
	"gobridgerelay/config"
	"gobridgerelay/log"
	"gobridgerelay/metrics"
	"gobridgerelay/types"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// ChainClient is what a scan needs from one chain, see EVMRPC.Client
type ChainClient interface {
	ChainID() int64
	Name() string
	BlockNumber(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, handle *types.ContractHandle, kind string, fromBlock, toBlock uint64) ([]*types.RelayEvent, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
}

// Ledger remembers which events were relayed
type Ledger interface {
	IsRelayed(eventKey string) (bool, error)
	MarkRelayed(rec *types.RelayRecord) error
	SaveRecord(rec *types.RelayRecord) error
	SetScannedBlock(chainID int64, height uint64) error
}

type Options struct {
	Lookback uint64
	GasLimit uint64
	// keep relaying the remaining events of a scan after a failed submission
	ContinueOnFailure bool
}

func OptionsFromConfig(cfg *config.Configuration) Options {
	return Options{
		Lookback:          cfg.Relay.Lookback,
		GasLimit:          cfg.Relay.GasLimit,
		ContinueOnFailure: cfg.Relay.OnFailure == config.FailureContinue,
	}
}

type Scanner struct {
	clients   map[types.ChainRole]ChainClient
	contracts *config.Contracts
	key       *ecdsa.PrivateKey
	warden    common.Address
	ledger    Ledger
	opts      Options
	log       *log.RelayLogger
}

func NewScanner(source, destination ChainClient, contracts *config.Contracts, key *ecdsa.PrivateKey, ledger Ledger, opts Options) (*Scanner, error) {
	if source == nil || destination == nil {
		return nil, errors.Mark(errors.New("both chain clients are required"), ErrConfig)
	}
	if key == nil {
		return nil, errors.Mark(errors.New("signing key is required"), ErrConfig)
	}
	if err := checkContracts(contracts); err != nil {
		return nil, errors.Mark(err, ErrConfig)
	}
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	if opts.GasLimit == 0 {
		opts.GasLimit = config.DefaultGasLimit
	}

	return &Scanner{
		clients: map[types.ChainRole]ChainClient{
			types.RoleSource:      source,
			types.RoleDestination: destination,
		},
		contracts: contracts,
		key:       key,
		warden:    crypto.PubkeyToAddress(key.PublicKey),
		ledger:    ledger,
		opts:      opts,
		log:       log.GetLogger(),
	}, nil
}

// every route needs its event on its own contract and its method on the opposite one
func checkContracts(contracts *config.Contracts) error {
	if contracts == nil {
		return errors.New("contract registry is not loaded")
	}
	for role, r := range routes {
		opposite := role.Opposite()
		own := contracts.Handle(role)
		target := contracts.Handle(opposite)
		if own == nil || target == nil {
			return errors.Newf("contract registry has no %s or %s contract", role, opposite)
		}
		if _, ok := own.ABI.Events[r.event]; !ok {
			return errors.Newf("%s contract abi has no %s event", role, r.event)
		}
		if _, ok := target.ABI.Methods[r.method]; !ok {
			return errors.Newf("%s contract abi has no %s method", opposite, r.method)
		}
	}
	return nil
}

// ParsePrivateKey decodes the warden key. An empty key is an error, there is no fallback.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.Mark(errors.New("signing key not set, export BRIDGE_PK"), ErrConfig)
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "error instantiating private key"), ErrConfig)
	}
	return key, nil
}

// Warden is the address the mirrored transactions are sent from
func (s *Scanner) Warden() common.Address {
	return s.warden
}

// Client returns the connection to the chain with the given role
func (s *Scanner) Client(role types.ChainRole) ChainClient {
	return s.clients[role]
}

// Scan relays the events of the chain named by role ("source" or
// "destination") found in the last Lookback blocks. It returns the number of
// mirrored transactions submitted.
func (s *Scanner) Scan(ctx context.Context, role string) (int, error) {
	r, ok := types.ParseChainRole(role)
	if !ok {
		s.log.Error("invalid chain", "chain", role)
		return 0, errors.Mark(errors.Newf("invalid chain %q, expected source or destination", role), ErrInvalidRole)
	}

	n, err := s.ScanRole(ctx, r)
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.ScansCounter.WithLabelValues(r.String(), status).Inc()
	return n, err
}

func (s *Scanner) ScanRole(ctx context.Context, role types.ChainRole) (int, error) {
	r, ok := routes[role]
	if !ok {
		return 0, errors.Mark(errors.Newf("invalid chain role %d", int(role)), ErrInvalidRole)
	}
	opposite := role.Opposite()
	own := s.clients[role]
	other := s.clients[opposite]
	ownHandle := s.contracts.Handle(role)
	target := s.contracts.Handle(opposite)
	logger := s.log.WithRole(role.String(), own.Name(), own.ChainID())

	latest, err := own.BlockNumber(ctx)
	if err != nil {
		logger.Error("error getting latest block eth_blockNumber", "error", err.Error())
		return 0, mark(errors.Wrapf(err, "cannot get latest block of %s", own.Name()), ErrConnectivity)
	}
	fromBlock, toBlock := QueryRange(latest, s.opts.Lookback)
	logger.Debug(fmt.Sprintf("Scanning blocks from %d to %d (latest)", fromBlock, toBlock))

	events, err := own.GetLogs(ctx, ownHandle, r.event, fromBlock, toBlock)
	if err != nil {
		logger.Error(fmt.Sprintf("%s get_logs error", r.event), "error", err.Error())
		return 0, mark(errors.Wrapf(err, "cannot get %s logs of %s", r.event, own.Name()), ErrQuery)
	}
	metrics.EventsFoundCounter.WithLabelValues(role.String(), r.event).Add(float64(len(events)))
	s.setScanned(logger, own.ChainID(), role, toBlock)

	if len(events) == 0 {
		logger.Info(fmt.Sprintf("No %ss in last %d blocks", r.event, toBlock-fromBlock+1))
		return 0, nil
	}

	var (
		relayed   int
		failures  error
		lastNonce *uint64
	)
	for _, ev := range events {
		evLog := logger.WithEvent(ev.Kind, ev.Key(), ev.TxHash.Hex())

		done, err := s.ledger.IsRelayed(ev.Key())
		if err != nil {
			evLog.Error("error searching relay ledger", "error", err.Error())
			return relayed, errors.CombineErrors(mark(errors.Wrap(err, "cannot check relay ledger"), ErrLedger), failures)
		}
		if done {
			evLog.Info("event was relayed before, skipping")
			metrics.EventsSkippedCounter.WithLabelValues(role.String()).Inc()
			continue
		}

		evLog.Info(
			fmt.Sprintf("%s detected on %s", ev.Kind, strings.ToUpper(role.String())),
			"amount", ev.Amount.String(),
			"token", ev.Token.Hex(),
			"counterparty", ev.Counterparty.Hex(),
		)

		action := &types.RelayAction{
			Event:   ev,
			Method:  r.method,
			Target:  target,
			ChainID: other.ChainID(),
		}
		rec := newRecord(role, own.ChainID(), action)

		tx, err := s.submit(ctx, other, action, lastNonce)
		if err != nil {
			evLog.Error(fmt.Sprintf("%s() failed", r.method), "error", err.Error())
			metrics.ActionsCounter.WithLabelValues(role.String(), r.method, types.RecordStatusFailed).Inc()

			rec.Status = types.RecordStatusFailed
			rec.Message = err.Error()
			if serr := s.ledger.SaveRecord(rec); serr != nil {
				evLog.Error("cannot save failed relay record", "error", serr.Error())
			}

			failures = errors.CombineErrors(failures, mark(errors.Wrapf(err, "%s for %s", r.method, ev.Key()), ErrSubmission))
			if !s.opts.ContinueOnFailure {
				return relayed, failures
			}
			continue
		}
		nonce := tx.Nonce()
		lastNonce = &nonce
		relayed++
		metrics.ActionsCounter.WithLabelValues(role.String(), r.method, types.RecordStatusRelayed).Inc()
		evLog.Info(fmt.Sprintf("Sent %s() on %s", r.method, strings.ToUpper(opposite.String())), "dest tx", tx.Hash().Hex())

		rec.Status = types.RecordStatusRelayed
		rec.DestTxHash = tx.Hash().Hex()
		if err := s.ledger.MarkRelayed(rec); err != nil {
			// stop here: the next scan would send this event again
			evLog.Error("error saving relayed event, stopping scan", "error", err.Error())
			return relayed, errors.CombineErrors(mark(errors.Wrap(err, "cannot mark event relayed"), ErrLedger), failures)
		}
	}

	return relayed, failures
}

// submit signs the mirrored call and sends it to the opposite chain. Nonces
// stay increasing within one scan even if the node's pending count lags.
func (s *Scanner) submit(ctx context.Context, client ChainClient, action *types.RelayAction, lastNonce *uint64) (*ethtypes.Transaction, error) {
	nonce, err := client.PendingNonceAt(ctx, s.warden)
	if err != nil {
		return nil, errors.Wrap(err, "error getting nonce for wallet")
	}
	if lastNonce != nil && nonce <= *lastNonce {
		nonce = *lastNonce + 1
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error getting suggested gas price")
	}

	tx, err := EVMRPC.BuildCall(ctx, s.key, action.Target, action.Method, action.Args(), EVMRPC.CallOpts{
		ChainID:  action.ChainID,
		Nonce:    nonce,
		GasPrice: gasPrice,
		GasLimit: s.opts.GasLimit,
	})
	if err != nil {
		return nil, err
	}

	if err := client.SendTransaction(ctx, tx); err != nil {
		return nil, errors.Wrapf(err, "error sending %s transaction", action.Method)
	}
	return tx, nil
}

func (s *Scanner) setScanned(logger *log.RelayLogger, chainID int64, role types.ChainRole, height uint64) {
	metrics.ScannedBlockGauge.WithLabelValues(role.String()).Set(float64(height))
	if err := s.ledger.SetScannedBlock(chainID, height); err != nil {
		logger.Warn("cannot store scanned block height", "error", err.Error())
	}
}

func newRecord(role types.ChainRole, chainID int64, action *types.RelayAction) *types.RelayRecord {
	ev := action.Event
	return &types.RelayRecord{
		ID:           uuid.New().String(),
		SourceRole:   role.String(),
		SourceChain:  chainID,
		DestChain:    action.ChainID,
		EventKey:     ev.Key(),
		Kind:         ev.Kind,
		Token:        ev.Token.Hex(),
		Counterparty: ev.Counterparty.Hex(),
		Amount:       ev.Amount.String(),
		SourceTxHash: ev.TxHash.Hex(),
		TsRelayed:    time.Now().Unix(),
	}
}
