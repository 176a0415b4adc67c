// Package dashboard holds the wallet dashboard core: the view-model
// aggregator, the refresh orchestrator, the onboarding overlay controller
// and the shell composing them.
package dashboard

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// AccountState is the engine's per-address account entry.
type AccountState struct {
	// Balance is the native balance as a hex quantity, e.g. "0x0".
	Balance string            `json:"balance"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// Identity is the user-facing metadata of an address.
type Identity struct {
	Address  string `json:"address"`
	Name     string `json:"name,omitempty"`
	Imported bool   `json:"imported,omitempty"`
}

// AssetEntry is one row of the rendered token list.
type AssetEntry struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	Symbol        string `json:"symbol"`
	Decimals      uint8  `json:"decimals"`
	Balance       string `json:"balance"`
	BalanceFiat   string `json:"balanceFiat"`
	Image         string `json:"image,omitempty"`
	IsNativeAsset bool   `json:"isNativeAsset"`
	IsERC721      bool   `json:"isERC721"`
}

type ConversionContext struct {
	ConversionRate  decimal.Decimal `json:"conversionRate"`
	CurrentCurrency string          `json:"currentCurrency"`
}

// Inputs are the state slices merged by Aggregate.
type Inputs struct {
	SelectedAddress string
	Accounts        map[string]AccountState
	Identities      map[string]Identity
	Tokens          []AssetEntry
	TokenBalances   map[string]*big.Int
	Conversion      ConversionContext

	// Ticker is the native currency ticker of the active network.
	Ticker string
}

// AccountView is the shallow merge of address, identity and account state.
type AccountView struct {
	Address  string            `json:"address"`
	Name     string            `json:"name,omitempty"`
	Imported bool              `json:"imported,omitempty"`
	Balance  string            `json:"balance,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

type ViewModel struct {
	// Loaded is false when the selected address has no account entry yet.
	Loaded  bool         `json:"loaded"`
	Account AccountView  `json:"account"`
	Assets  []AssetEntry `json:"assets"`
}

// DashboardState is everything the shell reads from the engine for one
// render pass.
type DashboardState struct {
	Inputs
	WizardStep int
}

// StateReader exposes a consistent snapshot of engine state.
type StateReader interface {
	DashboardState() DashboardState
}
