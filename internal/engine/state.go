package engine

import (
	"maps"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
)

// BackgroundState is everything the engine knows about the wallet.
type BackgroundState struct {
	SelectedAddress string                            `json:"selectedAddress"`
	Accounts        map[string]dashboard.AccountState `json:"accounts"`
	Identities      map[string]dashboard.Identity     `json:"identities"`
	Tokens          []dashboard.AssetEntry            `json:"tokens"`
	TokenBalances   map[string]*big.Int               `json:"tokenBalances"`
	Collectibles    map[string]*big.Int               `json:"collectibles"`
	TokenRates      map[string]decimal.Decimal        `json:"tokenRates"`
	Conversion      dashboard.ConversionContext       `json:"conversion"`
	NativeCurrency  string                            `json:"nativeCurrency"`
	Network         string                            `json:"network"`
	Ticker          string                            `json:"ticker"`
	WizardStep      int                               `json:"wizardStep"`
	HistoryBlock    uint64                            `json:"historyBlock"`
	RatePolling     bool                              `json:"ratePolling"`
}

func (s BackgroundState) clone() BackgroundState {
	out := s
	out.Accounts = make(map[string]dashboard.AccountState, len(s.Accounts))
	for k, a := range s.Accounts {
		a.Extra = maps.Clone(a.Extra)
		out.Accounts[k] = a
	}
	out.Identities = maps.Clone(s.Identities)
	if out.Identities == nil {
		out.Identities = map[string]dashboard.Identity{}
	}
	out.Tokens = append([]dashboard.AssetEntry(nil), s.Tokens...)
	out.TokenBalances = cloneBigMap(s.TokenBalances)
	out.Collectibles = cloneBigMap(s.Collectibles)
	out.TokenRates = maps.Clone(s.TokenRates)
	if out.TokenRates == nil {
		out.TokenRates = map[string]decimal.Decimal{}
	}
	return out
}

func cloneBigMap(in map[string]*big.Int) map[string]*big.Int {
	out := make(map[string]*big.Int, len(in))
	for k, v := range in {
		if v != nil {
			out[k] = new(big.Int).Set(v)
		}
	}
	return out
}

// Store guards the background state. Readers always get a deep copy.
type Store struct {
	mu sync.RWMutex
	st BackgroundState
}

func NewStore() *Store {
	return &Store{st: BackgroundState{}.clone()}
}

// Snapshot returns a consistent copy of the whole state.
func (s *Store) Snapshot() BackgroundState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.clone()
}

// Update applies fn to the state under the write lock.
func (s *Store) Update(fn func(st *BackgroundState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.st)
}

// DashboardState implements dashboard.StateReader.
func (s *Store) DashboardState() dashboard.DashboardState {
	st := s.Snapshot()
	return dashboard.DashboardState{
		Inputs: dashboard.Inputs{
			SelectedAddress: st.SelectedAddress,
			Accounts:        st.Accounts,
			Identities:      st.Identities,
			Tokens:          st.Tokens,
			TokenBalances:   st.TokenBalances,
			Conversion:      st.Conversion,
			Ticker:          st.Ticker,
		},
		WizardStep: st.WizardStep,
	}
}

// AddAccount tracks an address with a zero balance until the next refresh.
// The first account added becomes the selected one.
func (s *Store) AddAccount(address, name string, imported bool) string {
	addr := common.HexToAddress(address).Hex()
	s.Update(func(st *BackgroundState) {
		if _, ok := st.Accounts[addr]; !ok {
			st.Accounts[addr] = dashboard.AccountState{Balance: "0x0"}
		}
		st.Identities[addr] = dashboard.Identity{Address: addr, Name: name, Imported: imported}
		if st.SelectedAddress == "" {
			st.SelectedAddress = addr
		}
	})
	return addr
}

// SelectAddress switches the selected account. Unknown addresses are
// accepted; the dashboard renders them as not loaded.
func (s *Store) SelectAddress(address string) {
	addr := strings.TrimSpace(address)
	if common.IsHexAddress(addr) {
		addr = common.HexToAddress(addr).Hex()
	}
	s.Update(func(st *BackgroundState) { st.SelectedAddress = addr })
}

func (s *Store) SetWizardStep(step int) {
	s.Update(func(st *BackgroundState) { st.WizardStep = step })
}
