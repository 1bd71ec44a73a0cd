package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Source is the chain where Deposit is emitted (Avalanche Fuji by default),
// Destination is the one emitting Unwrap (BSC testnet by default).

type ChainRole int

const (
	RoleSource ChainRole = iota
	RoleDestination
)

func (r ChainRole) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleDestination:
		return "destination"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Opposite returns the chain a relayed event lands on
func (r ChainRole) Opposite() ChainRole {
	if r == RoleSource {
		return RoleDestination
	}
	return RoleSource
}

// ParseChainRole accepts exactly "source" and "destination"
func ParseChainRole(s string) (ChainRole, bool) {
	switch s {
	case "source":
		return RoleSource, true
	case "destination":
		return RoleDestination, true
	}
	return 0, false
}

const (
	EventDeposit = "Deposit"
	EventUnwrap  = "Unwrap"

	MethodWrap     = "wrap"
	MethodWithdraw = "withdraw"
)

// ContractHandle is loaded once from the contract registry file
// and is not modified afterwards
type ContractHandle struct {
	Role    ChainRole
	Address common.Address
	ABI     abi.ABI
}

// RelayEvent is a decoded Deposit or Unwrap log
type RelayEvent struct {
	Kind         string
	ChainID      int64
	Token        common.Address
	Counterparty common.Address // recipient for Deposit, to for Unwrap
	Amount       *big.Int
	BlockNumber  uint64
	TxHash       common.Hash
	LogIndex     uint
}

// Key identifies the event for the replay guard
func (e *RelayEvent) Key() string {
	return fmt.Sprintf("%d:%d:%d", e.ChainID, e.BlockNumber, e.LogIndex)
}

// RelayAction is the mirrored call on the opposite chain
type RelayAction struct {
	Event   *RelayEvent
	Method  string
	Target  *ContractHandle
	ChainID int64
}

// Args are passed to the mirrored method in ABI order: (token, counterparty, amount)
func (a *RelayAction) Args() []interface{} {
	return []interface{}{a.Event.Token, a.Event.Counterparty, a.Event.Amount}
}

const (
	RecordStatusRelayed = "relayed"
	RecordStatusFailed  = "failed"
)

// RelayRecord is the persisted history of one relay attempt
type RelayRecord struct {
	ID           string
	Status       string
	SourceRole   string
	SourceChain  int64
	DestChain    int64
	EventKey     string
	Kind         string
	Token        string
	Counterparty string
	Amount       string // base units, decimal
	SourceTxHash string // transaction which emitted the event
	DestTxHash   string // mirrored transaction sent by the warden
	TsRelayed    int64
	Message      string // submission error, if any
}

// EventFields names the log arguments carrying token, counterparty and amount
type EventFields struct {
	Token        string
	Counterparty string
	Amount       string
}

var RelayEventFields = map[string]EventFields{
	EventDeposit: {Token: "token", Counterparty: "recipient", Amount: "amount"},
	EventUnwrap:  {Token: "underlying_token", Counterparty: "to", Amount: "amount"},
}
