package handlers

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

type APIStateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Warden  string `json:"warden"`
}

type APIChainBlock struct {
	Role         string `json:"role"`
	Name         string `json:"name"`
	ChainID      int64  `json:"chainId"`
	ScannedBlock int64  `json:"scannedBlock"` // -1 when never scanned
}

type APIBalanceResponse struct {
	Role    string `json:"role"`
	ChainID int64  `json:"chainId"`
	Address string `json:"address"`
	Balance string `json:"balance"` // wei
}
