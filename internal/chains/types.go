package chains

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type AllChainsConfig struct {
	Networks map[string]NetworkConfig `json:"networks" yaml:"networks" mapstructure:"networks"`
}

// NetworkConfig describes a network and its RPC endpoints.
type NetworkConfig struct {
	Name       string `json:"name" yaml:"name" mapstructure:"name"`
	ChainID    uint64 `json:"chainId" yaml:"chainId" mapstructure:"chainId"`
	ChainIDHex string `json:"chainIdHex" yaml:"chainIdHex" mapstructure:"chainIdHex"`
	Ticker     string `json:"ticker" yaml:"ticker" mapstructure:"ticker"`
	RPCs       []RPC  `json:"rpcs" yaml:"rpcs" mapstructure:"rpcs"`
	Explorer   string `json:"explorer" yaml:"explorer" mapstructure:"explorer"`
}

type RPC struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	URL  string `json:"url" yaml:"url" mapstructure:"url"`
}

// Normalize lower-cases network keys and copies them into Name.
func (mc *AllChainsConfig) Normalize() {
	if mc == nil {
		return
	}
	out := make(map[string]NetworkConfig, len(mc.Networks))
	for name, n := range mc.Networks {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		n.Name = key
		n.ChainIDHex = strings.ToLower(strings.TrimSpace(n.ChainIDHex))
		out[key] = n
	}
	mc.Networks = out
}

// Client is the slice of *ethclient.Client the wallet uses.
type Client interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	Close()
}

// Dialer opens a Client for an RPC URL.
type Dialer func(ctx context.Context, url string) (Client, error)

type ResolvedChain struct {
	NetworkName string
	ChainID     uint64
	ChainIDHex  string
	Ticker      string
	Explorer    string

	RPCName string
	URL     string
}
