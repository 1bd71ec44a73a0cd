package nft

import (
	"context"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"gobridgerelay/ipfs"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// MaxApeID is the last token of the 10000 ape collection
const MaxApeID = 9999

// ownerOf and tokenURI, enough when no full ABI file is around
const erc721MetadataABI = `[
{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

type ApeInfo struct {
	Owner string `json:"owner"`
	Image string `json:"image"`
	Eyes  string `json:"eyes"`
}

type Fetcher struct {
	contract *bind.BoundContract
	gateway  string
	http     *http.Client
}

// LoadABI reads the contract ABI from path, or falls back to the minimal
// ERC-721 metadata ABI when path does not exist
func LoadABI(path string) (abi.ABI, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return abi.JSON(strings.NewReader(erc721MetadataABI))
	}
	if err != nil {
		return abi.ABI{}, errors.Wrapf(err, "cannot open abi %s", path)
	}
	defer f.Close()

	parsed, err := abi.JSON(f)
	if err != nil {
		return abi.ABI{}, errors.Wrapf(err, "cannot parse abi %s", path)
	}
	return parsed, nil
}

func NewFetcher(caller bind.ContractCaller, address common.Address, contractABI abi.ABI, gateway string) *Fetcher {
	return &Fetcher{
		contract: bind.NewBoundContract(address, contractABI, caller, nil, nil),
		gateway:  gateway,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// GetApeInfo returns the owner of the token and the image and Eyes trait
// from its metadata
func (f *Fetcher) GetApeInfo(ctx context.Context, id int64) (*ApeInfo, error) {
	if id < 0 || id > MaxApeID {
		return nil, errors.Newf("ape id %d must be between 0 and %d", id, MaxApeID)
	}
	opts := &bind.CallOpts{Context: ctx}
	tokenID := big.NewInt(id)

	var out []interface{}
	if err := f.contract.Call(opts, &out, "ownerOf", tokenID); err != nil {
		return nil, errors.Wrapf(err, "ownerOf(%d)", id)
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return nil, errors.Newf("ownerOf(%d) returned %T", id, out[0])
	}

	out = nil
	if err := f.contract.Call(opts, &out, "tokenURI", tokenID); err != nil {
		return nil, errors.Wrapf(err, "tokenURI(%d)", id)
	}
	tokenURI, ok := out[0].(string)
	if !ok {
		return nil, errors.Newf("tokenURI(%d) returned %T", id, out[0])
	}

	metadata, err := ipfs.FetchJSON(ctx, f.http, ipfs.ResolveURI(f.gateway, tokenURI))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot fetch metadata of ape %d", id)
	}

	info := &ApeInfo{Owner: owner.Hex()}
	info.Image, _ = metadata["image"].(string)
	info.Eyes = trait(metadata, "Eyes")
	return info, nil
}

func trait(metadata map[string]interface{}, name string) string {
	attrs, _ := metadata["attributes"].([]interface{})
	for _, a := range attrs {
		attr, ok := a.(map[string]interface{})
		if !ok {
			continue
		}
		if attr["trait_type"] == name {
			value, _ := attr["value"].(string)
			return value
		}
	}
	return ""
}
