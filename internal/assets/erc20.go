package assets

import (
	"context"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ERC20ABI covers the read-only calls the wallet makes. balanceOf has the
// same selector on ERC-721, which DetectCollectibles relies on.
const ERC20ABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var erc20ABI = mustParseABI(ERC20ABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ErrNoContract is returned when the token address has no code.
var ErrNoContract = errors.New("no contract code at address")

// ContractCaller is satisfied by *ethclient.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// BalanceOf returns the raw token balance of owner.
func BalanceOf(ctx context.Context, caller ContractCaller, token, owner common.Address) (*big.Int, error) {
	// zero address always holds nothing
	if owner == (common.Address{}) {
		return big.NewInt(0), nil
	}

	out, err := call(ctx, caller, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	bal, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Newf("balanceOf: unexpected result %T", out[0])
	}
	return bal, nil
}

// FetchMetadata reads symbol, decimals and (optionally) name of a token.
func FetchMetadata(ctx context.Context, caller ContractCaller, token common.Address) (Asset, error) {
	out, err := call(ctx, caller, token, "symbol")
	if err != nil {
		return Asset{}, err
	}
	sym, _ := out[0].(string)

	out, err = call(ctx, caller, token, "decimals")
	if err != nil {
		return Asset{}, err
	}
	dec, ok := out[0].(uint8)
	if !ok {
		return Asset{}, errors.Newf("decimals: unexpected result %T", out[0])
	}

	name := ""
	if out, err := call(ctx, caller, token, "name"); err == nil {
		name, _ = out[0].(string)
	}

	return Asset{
		Address:  token.Hex(),
		Symbol:   sym,
		Decimals: dec,
		Name:     name,
	}, nil
}

func call(ctx context.Context, caller ContractCaller, token common.Address, method string, args ...any) ([]any, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}

	res, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, token.Hex())
	}
	if len(res) == 0 {
		return nil, errors.Wrapf(ErrNoContract, "%s %s", method, token.Hex())
	}

	out, err := erc20ABI.Unpack(method, res)
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s", method)
	}
	if len(out) == 0 {
		return nil, errors.Newf("%s: empty result", method)
	}
	return out, nil
}
