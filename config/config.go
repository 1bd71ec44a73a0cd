package config

import (
	"time"

	"gobridgerelay/types"
)

type Configuration struct {
	// Server config, used by watch mode
	Server struct {
		Listen       string `yaml:"listen"`
		RedisEnabled bool   `yaml:"redis" envconfig:"REDIS_ENABLED"`
		RedisPort    int    `yaml:"redis_port" envconfig:"REDIS_PORT"`
		RedisHost    string `yaml:"redis_host" envconfig:"REDIS_HOST"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
		Format string `yaml:"format"`
		Dir    string `yaml:"dir"` // empty disables the daily log file
	} `yaml:"log"`
	Relay struct {
		Lookback      uint64        `yaml:"lookback"`
		GasLimit      uint64        `yaml:"gas_limit"`
		OnFailure     string        `yaml:"on_failure"` // abort or continue
		ContractInfo  string        `yaml:"contract_info" envconfig:"CONTRACT_INFO"`
		WatchInterval time.Duration `yaml:"watch_interval"`
	} `yaml:"relay"`
	Chains struct {
		Source      ChainConfig `yaml:"source"`
		Destination ChainConfig `yaml:"destination"`
	} `yaml:"chains"`
	// EVM signing identity (the warden)
	EVM struct {
		// important private stuff, supply through BRIDGE_PK
		PrivateKey string `yaml:"private_key" envconfig:"BRIDGE_PK"`
	} `yaml:"EVM"`
	IPFS struct {
		PinURL    string `yaml:"pin_url"`
		Gateway   string `yaml:"gateway"`
		APIKey    string `yaml:"api_key" envconfig:"PINATA_API_KEY"`
		APISecret string `yaml:"api_secret" envconfig:"PINATA_SECRET_API_KEY"`
	} `yaml:"ipfs"`
	NFT struct {
		RPC      string `yaml:"rpc" envconfig:"NFT_RPC"`
		Contract string `yaml:"contract"`
		ABIPath  string `yaml:"abi_path"`
		Gateway  string `yaml:"gateway"`
	} `yaml:"nft"`
}

// EVM chain config
type ChainConfig struct {
	Name    string   `yaml:"name"`
	ChainID int64    `yaml:"chain_id"`
	RPCList []string `yaml:"rpc"`
}

var Config Configuration

const (
	FailureAbort    = "abort"
	FailureContinue = "continue"
)

const (
	DefaultConfigFile   = "config.yml"
	DefaultContractInfo = "contract_info.json"
	DefaultLookback     = 5
	DefaultGasLimit     = 300000
)

// chains the bridge was deployed on
var DefaultChains = map[string]ChainConfig{
	"source": {
		Name:    "Avalanche Fuji",
		ChainID: 43113,
		RPCList: []string{"https://api.avax-test.network/ext/bc/C/rpc"},
	},
	"destination": {
		Name:    "BSC Testnet",
		ChainID: 97,
		RPCList: []string{"https://data-seed-prebsc-1-s1.binance.org:8545/"},
	},
}

func applyDefaults(cfg *Configuration) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.RedisHost == "" {
		cfg.Server.RedisHost = "127.0.0.1"
	}
	if cfg.Server.RedisPort == 0 {
		cfg.Server.RedisPort = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "INFO"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Relay.Lookback == 0 {
		cfg.Relay.Lookback = DefaultLookback
	}
	if cfg.Relay.GasLimit == 0 {
		cfg.Relay.GasLimit = DefaultGasLimit
	}
	if cfg.Relay.OnFailure == "" {
		cfg.Relay.OnFailure = FailureAbort
	}
	if cfg.Relay.ContractInfo == "" {
		cfg.Relay.ContractInfo = DefaultContractInfo
	}
	if cfg.Relay.WatchInterval == 0 {
		cfg.Relay.WatchInterval = 30 * time.Second
	}
	fillChain(&cfg.Chains.Source, DefaultChains["source"])
	fillChain(&cfg.Chains.Destination, DefaultChains["destination"])
	if cfg.IPFS.PinURL == "" {
		cfg.IPFS.PinURL = "https://api.pinata.cloud/pinning/pinJSONToIPFS"
	}
	if cfg.IPFS.Gateway == "" {
		cfg.IPFS.Gateway = "https://gateway.pinata.cloud"
	}
	if cfg.NFT.Contract == "" {
		// Bored Ape Yacht Club
		cfg.NFT.Contract = "0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D"
	}
	if cfg.NFT.ABIPath == "" {
		cfg.NFT.ABIPath = "ape_abi.json"
	}
	if cfg.NFT.Gateway == "" {
		cfg.NFT.Gateway = "https://ipfs.io"
	}
}

func fillChain(c *ChainConfig, def ChainConfig) {
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.ChainID == 0 {
		c.ChainID = def.ChainID
	}
	if len(c.RPCList) == 0 {
		c.RPCList = def.RPCList
	}
}

// Chain returns the chain config of the given role
func (c *Configuration) Chain(role types.ChainRole) ChainConfig {
	if role == types.RoleDestination {
		return c.Chains.Destination
	}
	return c.Chains.Source
}
