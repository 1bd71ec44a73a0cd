package handlers

import (
	"context"
	"math/big"
	"net/http"

	"gobridgerelay/log"
	"gobridgerelay/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"
)

// RelayStore is the read side of the relay ledger
type RelayStore interface {
	FindRecordsByStatus(status string) ([]*types.RelayRecord, error)
	GetScannedBlock(chainID int64) (int64, error)
}

type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type Chain struct {
	Role    types.ChainRole
	Name    string
	ChainID int64
	Client  BalanceReader
}

type API struct {
	Store  RelayStore
	Chains []Chain
	Warden common.Address
}

func (a *API) State(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, &APIStateResponse{
		Status: "ok",
		Warden: a.Warden.Hex(),
	}, http.StatusOK)
}

func (a *API) HealthCheck(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, &APIResponse{
		Status: "ok",
	}, http.StatusOK)
}

// GetRelays lists relay records with the status from the URL
func (a *API) GetRelays(w http.ResponseWriter, r *http.Request) {
	status := chi.URLParam(r, "status")
	if status != types.RecordStatusRelayed && status != types.RecordStatusFailed {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "status",
			Message: "status must be relayed or failed",
		}, http.StatusBadRequest)
		return
	}

	records, err := a.Store.FindRecordsByStatus(status)
	if err != nil {
		log.GetLogger().Error("error listing relay records", "status", status, "error", err)
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "cannot read relay records",
		}, http.StatusInternalServerError)
		return
	}

	responseJSON(w, records, http.StatusOK)
}

func (a *API) GetBlocks(w http.ResponseWriter, r *http.Request) {
	blocks := make([]APIChainBlock, 0, len(a.Chains))
	for _, c := range a.Chains {
		height, err := a.Store.GetScannedBlock(c.ChainID)
		if err != nil {
			log.GetLogger().Error("error getting scanned block", "chain", c.Name, "error", err)
			responseJSON(w, &APIResponse{
				Status:  "error",
				Message: "cannot read scanned blocks",
			}, http.StatusInternalServerError)
			return
		}
		blocks = append(blocks, APIChainBlock{
			Role:         c.Role.String(),
			Name:         c.Name,
			ChainID:      c.ChainID,
			ScannedBlock: height,
		})
	}
	responseJSON(w, blocks, http.StatusOK)
}

// Balance returns the warden's native balance on the chain from the URL,
// gas for the mirrored transactions is paid from it
func (a *API) Balance(w http.ResponseWriter, r *http.Request) {
	role, ok := types.ParseChainRole(chi.URLParam(r, "role"))
	if !ok {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "role",
			Message: "role must be source or destination",
		}, http.StatusBadRequest)
		return
	}

	for _, c := range a.Chains {
		if c.Role != role || c.Client == nil {
			continue
		}
		balance, err := c.Client.BalanceAt(r.Context(), a.Warden, nil)
		if err != nil {
			log.GetLogger().Error("error getting balance", "chain", c.Name, "error", err)
			responseJSON(w, &APIResponse{
				Status:  "error",
				Message: "cannot get balance",
			}, http.StatusInternalServerError)
			return
		}
		responseJSON(w, &APIBalanceResponse{
			Role:    role.String(),
			ChainID: c.ChainID,
			Address: a.Warden.Hex(),
			Balance: balance.String(),
		}, http.StatusOK)
		return
	}

	responseJSON(w, &APIResponse{
		Status:  "error",
		Field:   "role",
		Message: "chain not connected",
	}, http.StatusNotFound)
}
