package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"gobridgerelay/types"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type contractEntry struct {
	Address string          `json:"address"`
	ABI     json.RawMessage `json:"abi"`
}

// contract_info.json layout
type contractInfo struct {
	Source      *contractEntry `json:"source"`
	Destination *contractEntry `json:"destination"`
	PrivateKey  string         `json:"private_key,omitempty"`
}

// Contracts is the contract registry: one handle per chain role
type Contracts struct {
	Handles map[types.ChainRole]*types.ContractHandle
	// optional signing key stored next to the contracts, env BRIDGE_PK takes precedence
	PrivateKey string
}

func (c *Contracts) Handle(role types.ChainRole) *types.ContractHandle {
	return c.Handles[role]
}

func LoadContracts(path string) (*Contracts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read contract info %s", path)
	}
	return ParseContracts(data)
}

func ParseContracts(data []byte) (*Contracts, error) {
	var info contractInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal contract info JSON")
	}

	contracts := &Contracts{
		Handles:    make(map[types.ChainRole]*types.ContractHandle, 2),
		PrivateKey: info.PrivateKey,
	}
	for role, entry := range map[types.ChainRole]*contractEntry{
		types.RoleSource:      info.Source,
		types.RoleDestination: info.Destination,
	} {
		handle, err := parseEntry(role, entry)
		if err != nil {
			return nil, err
		}
		contracts.Handles[role] = handle
	}
	return contracts, nil
}

func parseEntry(role types.ChainRole, entry *contractEntry) (*types.ContractHandle, error) {
	if entry == nil {
		return nil, errors.Newf("contract info has no %q entry", role.String())
	}

	if !common.IsHexAddress(entry.Address) {
		return nil, errors.Newf("%s contract address %q is not a hex address", role, entry.Address)
	}
	// all lower or all upper case addresses carry no EIP-55 checksum
	if hex := trimHexPrefix(entry.Address); hasChecksum(hex) {
		if err := ethav.Validate("0x" + hex); err != nil {
			return nil, errors.Wrapf(err, "invalid %s contract address %q", role, entry.Address)
		}
	}
	address := common.HexToAddress(entry.Address)

	if len(entry.ABI) == 0 {
		return nil, errors.Newf("%s contract has no abi", role)
	}
	parsed, err := abi.JSON(bytes.NewReader(entry.ABI))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse %s contract abi", role)
	}

	return &types.ContractHandle{
		Role:    role,
		Address: address,
		ABI:     parsed,
	}, nil
}

func trimHexPrefix(addr string) string {
	return strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
}

func hasChecksum(hex string) bool {
	return hex != strings.ToLower(hex) && hex != strings.ToUpper(hex)
}
