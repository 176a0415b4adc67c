package dashboard

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/quantumauth-io/wallet-dashboard/internal/constants"
	"github.com/quantumauth-io/wallet-dashboard/internal/utils"
)

// TokenListPolicy decides which rows make up the asset list once the
// selected account is loaded.
type TokenListPolicy string

const (
	// SyntheticOnly lists only the synthetic asset. The native entry and
	// the engine's token list are suppressed.
	SyntheticOnly TokenListPolicy = "synthetic-only"
	// SyntheticWithNative lists the native entry followed by the synthetic asset.
	SyntheticWithNative TokenListPolicy = "synthetic-with-native"
	// SyntheticNativeAndTokens lists native, synthetic, then the engine tokens.
	SyntheticNativeAndTokens TokenListPolicy = "synthetic-native-and-tokens"
)

// ParseTokenListPolicy accepts the policy names used in configuration.
// An empty string selects SyntheticOnly.
func ParseTokenListPolicy(s string) (TokenListPolicy, error) {
	switch p := TokenListPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return SyntheticOnly, nil
	case SyntheticOnly, SyntheticWithNative, SyntheticNativeAndTokens:
		return p, nil
	default:
		return "", fmt.Errorf("unknown token list policy %q", s)
	}
}

// SyntheticAsset describes the reserved asset injected into the list.
type SyntheticAsset struct {
	Address  string
	Symbol   string
	Name     string
	Decimals uint8
	Image    string

	// Divisor normalizes the fiat value. Non-positive means no scaling.
	Divisor decimal.Decimal
}

// DefaultSyntheticAsset returns the built-in reserved asset.
func DefaultSyntheticAsset() SyntheticAsset {
	return SyntheticAsset{
		Address:  constants.SyntheticContract,
		Symbol:   constants.SyntheticSymbol,
		Name:     constants.SyntheticName,
		Decimals: constants.SyntheticDecimals,
		Image:    constants.SyntheticImage,
		Divisor:  decimal.NewFromInt(constants.FiatNormalizationDivisor),
	}
}

type AggregateOptions struct {
	Synthetic SyntheticAsset
	Policy    TokenListPolicy
}

// Aggregate merges engine state into the render-ready view model.
// It performs no I/O; registering a missing synthetic asset is the
// caller's job (see PendingRegistration).
func Aggregate(in Inputs, opts AggregateOptions) ViewModel {
	account, loaded := lookupAccount(in.Accounts, in.SelectedAddress)

	vm := ViewModel{
		Loaded:  loaded,
		Account: mergeAccount(in, account, loaded),
	}
	if !loaded {
		vm.Assets = in.Tokens
		return vm
	}

	synthetic := syntheticEntry(in, opts.Synthetic)

	switch opts.Policy {
	case SyntheticWithNative:
		vm.Assets = []AssetEntry{nativeEntry(in, account), synthetic}
	case SyntheticNativeAndTokens:
		assets := make([]AssetEntry, 0, len(in.Tokens)+2)
		assets = append(assets, nativeEntry(in, account), synthetic)
		for _, tok := range in.Tokens {
			if strings.EqualFold(tok.Address, synthetic.Address) {
				continue
			}
			assets = append(assets, tok)
		}
		vm.Assets = assets
	default:
		vm.Assets = []AssetEntry{synthetic}
	}
	return vm
}

// PendingRegistration reports whether the synthetic asset must be
// registered with the engine: the account is loaded and the asset is not
// yet part of the engine's token list.
func PendingRegistration(in Inputs, synthetic SyntheticAsset) bool {
	if _, ok := lookupAccount(in.Accounts, in.SelectedAddress); !ok {
		return false
	}
	for _, tok := range in.Tokens {
		if strings.EqualFold(tok.Address, synthetic.Address) {
			return false
		}
	}
	return true
}

// SyntheticFiat computes the synthetic asset's display value:
// units(balance) * rate / divisor, as "$x.xx".
func SyntheticFiat(balance *big.Int, decimals uint8, rate, divisor decimal.Decimal) string {
	units := utils.ToUnits(balance, decimals, constants.RenderDecimals)
	price := rate.Mul(units)
	if divisor.Sign() > 0 {
		price = price.Div(divisor)
	}
	return utils.FiatString(price)
}

func syntheticEntry(in Inputs, s SyntheticAsset) AssetEntry {
	balance := lookupBalance(in.TokenBalances, s.Address)
	return AssetEntry{
		Name:        s.Name,
		Address:     s.Address,
		Symbol:      s.Symbol,
		Decimals:    s.Decimals,
		Balance:     "0",
		BalanceFiat: SyntheticFiat(balance, s.Decimals, in.Conversion.ConversionRate, s.Divisor),
		Image:       s.Image,
	}
}

func nativeEntry(in Inputs, account AccountState) AssetEntry {
	wei := decodeBalance(account.Balance)
	units := utils.ToUnits(wei, constants.NativeDecimals, constants.RenderDecimals)
	return AssetEntry{
		Name:          "Ether",
		Address:       constants.NativeAddr,
		Symbol:        in.Ticker,
		Decimals:      constants.NativeDecimals,
		Balance:       utils.FormatUnitsTrim(wei, constants.NativeDecimals, constants.RenderDecimals),
		BalanceFiat:   weiToFiat(units, in.Conversion),
		IsNativeAsset: true,
	}
}

func weiToFiat(units decimal.Decimal, conv ConversionContext) string {
	value := units.Mul(conv.ConversionRate)
	return fmt.Sprintf("%s %s", value.StringFixed(2), strings.ToUpper(conv.CurrentCurrency))
}

func mergeAccount(in Inputs, account AccountState, loaded bool) AccountView {
	view := AccountView{Address: in.SelectedAddress}
	if id, ok := lookupIdentity(in.Identities, in.SelectedAddress); ok {
		if id.Address != "" {
			view.Address = id.Address
		}
		view.Name = id.Name
		view.Imported = id.Imported
	}
	if loaded {
		view.Balance = account.Balance
		if len(account.Extra) > 0 {
			view.Extra = make(map[string]string, len(account.Extra))
			for k, v := range account.Extra {
				view.Extra[k] = v
			}
		}
	}
	return view
}

func decodeBalance(hex string) *big.Int {
	if hex == "" {
		return new(big.Int)
	}
	v, err := hexutil.DecodeBig(hex)
	if err != nil {
		return new(big.Int)
	}
	return v
}

// Address keys are looked up exactly first, then case-insensitively.

func lookupAccount(m map[string]AccountState, addr string) (AccountState, bool) {
	if addr == "" {
		return AccountState{}, false
	}
	if v, ok := m[addr]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, addr) {
			return v, true
		}
	}
	return AccountState{}, false
}

func lookupIdentity(m map[string]Identity, addr string) (Identity, bool) {
	if v, ok := m[addr]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, addr) {
			return v, true
		}
	}
	return Identity{}, false
}

func lookupBalance(m map[string]*big.Int, addr string) *big.Int {
	if v, ok := m[addr]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, addr) {
			return v
		}
	}
	return nil
}
