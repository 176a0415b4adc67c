// Package assetstest serves ERC-20 calls for chainstest clients.
package assetstest

import (
	"bytes"
	"math/big"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/wallet-dashboard/internal/assets"
)

var erc20 = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(assets.ERC20ABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// Token is an in-memory ERC-20 contract.
type Token struct {
	Symbol   string
	Name     string
	Decimals uint8

	mu       sync.Mutex
	balances map[common.Address]*big.Int
}

func NewToken(symbol, name string, decimals uint8) *Token {
	return &Token{Symbol: symbol, Name: name, Decimals: decimals, balances: map[common.Address]*big.Int{}}
}

func (t *Token) SetBalance(owner string, amount *big.Int) *Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[common.HexToAddress(owner)] = new(big.Int).Set(amount)
	return t
}

// Handle answers one eth_call; it matches chainstest.CallHandler.
func (t *Token) Handle(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, errors.New("short calldata")
	}
	for name, m := range erc20.Methods {
		if !bytes.Equal(m.ID, data[:4]) {
			continue
		}
		switch name {
		case "balanceOf":
			args, err := m.Inputs.Unpack(data[4:])
			if err != nil {
				return nil, err
			}
			owner := args[0].(common.Address)
			t.mu.Lock()
			bal := t.balances[owner]
			t.mu.Unlock()
			if bal == nil {
				bal = big.NewInt(0)
			}
			return m.Outputs.Pack(bal)
		case "symbol":
			return m.Outputs.Pack(t.Symbol)
		case "name":
			return m.Outputs.Pack(t.Name)
		case "decimals":
			return m.Outputs.Pack(t.Decimals)
		}
	}
	return nil, errors.New("execution reverted")
}
