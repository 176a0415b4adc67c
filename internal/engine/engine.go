// Package engine owns the wallet background state and implements the
// capability bundle the dashboard drives.
package engine

import (
	"context"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/shopspring/decimal"

	"github.com/quantumauth-io/wallet-dashboard/internal/assets"
	"github.com/quantumauth-io/wallet-dashboard/internal/chains"
	"github.com/quantumauth-io/wallet-dashboard/internal/constants"
	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
	"github.com/quantumauth-io/wallet-dashboard/internal/utils"
)

var ErrNoSelectedAccount = errors.New("no selected account")

// RateSource is implemented by *rates.Client.
type RateSource interface {
	ConversionRate(ctx context.Context, native, currency string) (decimal.Decimal, error)
	TokenRates(ctx context.Context, contracts []string, vsCurrency string) (map[string]decimal.Decimal, error)
}

type Config struct {
	// CurrentCurrency is the fiat currency balances are shown in.
	CurrentCurrency string
	// DetectionList holds candidate token contracts per network.
	DetectionList map[string][]string
	// Collectibles holds ERC-721 contracts per network.
	Collectibles map[string][]string
	// Images maps token addresses to logo URLs.
	Images map[string]string
}

// Engine implements dashboard.Services and dashboard.Settler.
type Engine struct {
	cfg      Config
	store    *Store
	chains   *chains.Service
	registry *assets.Manager
	rates    RateSource

	settleOnce sync.Once
	settled    chan struct{}
}

var (
	_ dashboard.Services = (*Engine)(nil)
	_ dashboard.Settler  = (*Engine)(nil)
)

func New(cfg Config, store *Store, chainService *chains.Service, registry *assets.Manager, rateSource RateSource) *Engine {
	if cfg.CurrentCurrency == "" {
		cfg.CurrentCurrency = "usd"
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		chains:   chainService,
		registry: registry,
		rates:    rateSource,
		settled:  make(chan struct{}),
	}
}

func (e *Engine) Store() *Store { return e.store }

// Settled is closed after the first network selection has finished.
func (e *Engine) Settled() <-chan struct{} { return e.settled }

func (e *Engine) markSettled() {
	e.settleOnce.Do(func() { close(e.settled) })
}

func (e *Engine) SetNativeCurrencyCode(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return errors.New("native currency code is empty")
	}
	e.store.Update(func(st *BackgroundState) {
		st.NativeCurrency = code
		if st.Ticker == "" {
			st.Ticker = code
		}
	})
	return nil
}

// SelectNetwork switches the active chain and reloads the token list of
// the new network. Balances of the previous network are dropped.
func (e *Engine) SelectNetwork(ctx context.Context, network string) error {
	defer e.markSettled()

	if err := e.chains.SwitchChain(ctx, network); err != nil {
		return errors.Wrapf(err, "select network %q", network)
	}
	resolved, err := e.chains.ActiveNetwork()
	if err != nil {
		return err
	}

	tokens := e.tokenEntries(resolved.NetworkName, nil)
	e.store.Update(func(st *BackgroundState) {
		if st.Network != resolved.NetworkName {
			st.TokenBalances = map[string]*big.Int{}
			st.Collectibles = map[string]*big.Int{}
			st.TokenRates = map[string]decimal.Decimal{}
		}
		st.Network = resolved.NetworkName
		st.Ticker = resolved.Ticker
		st.Tokens = tokens
	})
	return nil
}

// RegisterToken adds a token to the registry of the active network.
func (e *Engine) RegisterToken(ctx context.Context, address, symbol string, decimals uint8) error {
	network, err := e.network()
	if err != nil {
		return err
	}

	a := assets.Asset{
		Address:  address,
		Symbol:   symbol,
		Decimals: decimals,
		Name:     symbol,
		Image:    e.image(address),
	}
	added, err := e.registry.AddToken(ctx, network, a)
	if err != nil {
		return errors.Wrapf(err, "register token %s", address)
	}
	if added {
		log.Info("token registered", "network", network, "address", address, "symbol", symbol)
	}

	e.syncTokenList(network)
	return nil
}

// DetectTokens registers detection-list tokens the selected account holds
// and refreshes the balances of every registered token.
func (e *Engine) DetectTokens(ctx context.Context) error {
	network, client, owner, err := e.activeAccount()
	if err != nil {
		return err
	}

	var failed []error
	for _, raw := range e.cfg.DetectionList[network] {
		if !common.IsHexAddress(raw) || e.registry.Contains(network, raw) {
			continue
		}
		token := common.HexToAddress(raw)
		bal, err := assets.BalanceOf(ctx, client, token, owner)
		if err != nil {
			if !errors.Is(err, assets.ErrNoContract) {
				failed = append(failed, err)
			}
			continue
		}
		if bal.Sign() == 0 {
			continue
		}
		meta, err := assets.FetchMetadata(ctx, client, token)
		if err != nil {
			failed = append(failed, err)
			continue
		}
		meta.Image = e.image(meta.Address)
		if _, err := e.registry.AddToken(ctx, network, meta); err != nil {
			failed = append(failed, err)
			continue
		}
		log.Info("token detected", "network", network, "address", meta.Address, "symbol", meta.Symbol)
	}

	balances := map[string]*big.Int{}
	for _, a := range e.registry.ListForNetwork(network) {
		bal, err := assets.BalanceOf(ctx, client, common.HexToAddress(a.Address), owner)
		if err != nil {
			if !errors.Is(err, assets.ErrNoContract) {
				failed = append(failed, err)
			}
			continue
		}
		balances[a.Address] = bal
	}

	tokens := e.tokenEntries(network, balances)
	e.store.Update(func(st *BackgroundState) {
		for k, v := range balances {
			st.TokenBalances[k] = v
		}
		st.Tokens = tokens
	})

	return combine("detect tokens", failed)
}

// DetectCollectibles counts the ERC-721 tokens the selected account owns
// in each configured collection.
func (e *Engine) DetectCollectibles(ctx context.Context) error {
	network, client, owner, err := e.activeAccount()
	if err != nil {
		return err
	}

	var failed []error
	owned := map[string]*big.Int{}
	for _, raw := range e.cfg.Collectibles[network] {
		if !common.IsHexAddress(raw) {
			continue
		}
		contract := common.HexToAddress(raw)
		n, err := assets.BalanceOf(ctx, client, contract, owner)
		if err != nil {
			failed = append(failed, err)
			continue
		}
		owned[contract.Hex()] = n
	}

	e.store.Update(func(st *BackgroundState) {
		for k, v := range owned {
			st.Collectibles[k] = v
		}
	})
	return combine("detect collectibles", failed)
}

// RefreshAccounts reloads the native balance of every tracked account.
func (e *Engine) RefreshAccounts(ctx context.Context) error {
	client, err := e.chains.Active()
	if err != nil {
		return err
	}

	snap := e.store.Snapshot()
	addrs := make([]string, 0, len(snap.Accounts))
	for a := range snap.Accounts {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)

	var failed []error
	balances := make(map[string]string, len(addrs))
	for _, a := range addrs {
		wei, err := client.BalanceAt(ctx, common.HexToAddress(a), nil)
		if err != nil {
			failed = append(failed, errors.Wrapf(err, "balance %s", a))
			continue
		}
		balances[a] = hexutil.EncodeBig(wei)
	}

	e.store.Update(func(st *BackgroundState) {
		for a, bal := range balances {
			acc := st.Accounts[a]
			acc.Balance = bal
			st.Accounts[a] = acc
		}
	})
	return combine("refresh accounts", failed)
}

// StartCurrencyRatePolling fetches the native to fiat conversion rate.
// Later polls are driven by the scheduler.
func (e *Engine) StartCurrencyRatePolling(ctx context.Context) error {
	snap := e.store.Snapshot()
	native := snap.Ticker
	if native == "" {
		native = snap.NativeCurrency
	}
	if native == "" {
		native = constants.DefaultNativeCurrency
	}

	rate, err := e.rates.ConversionRate(ctx, native, e.cfg.CurrentCurrency)
	if err != nil {
		return errors.Wrap(err, "currency rate")
	}

	e.store.Update(func(st *BackgroundState) {
		st.Conversion = dashboard.ConversionContext{
			ConversionRate:  rate,
			CurrentCurrency: strings.ToLower(e.cfg.CurrentCurrency),
		}
		st.RatePolling = true
	})
	return nil
}

// PollTokenRates fetches contract exchange rates (in the native currency)
// for every registered token of the active network.
func (e *Engine) PollTokenRates(ctx context.Context) error {
	network, err := e.network()
	if err != nil {
		return err
	}

	list := e.registry.ListForNetwork(network)
	contracts := make([]string, 0, len(list))
	for _, a := range list {
		contracts = append(contracts, a.Address)
	}
	if len(contracts) == 0 {
		return nil
	}

	snap := e.store.Snapshot()
	got, err := e.rates.TokenRates(ctx, contracts, snap.Ticker)
	if err != nil {
		return errors.Wrap(err, "token rates")
	}

	e.store.Update(func(st *BackgroundState) {
		st.TokenRates = got
	})
	return nil
}

// RefreshTransactionHistory advances the history cursor to the chain head.
func (e *Engine) RefreshTransactionHistory(ctx context.Context) error {
	client, err := e.chains.Active()
	if err != nil {
		return err
	}
	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "latest header")
	}
	if head == nil || head.Number == nil {
		return errors.New("latest header: empty")
	}

	e.store.Update(func(st *BackgroundState) {
		st.HistoryBlock = head.Number.Uint64()
	})
	return nil
}

func (e *Engine) network() (string, error) {
	resolved, err := e.chains.ActiveNetwork()
	if err != nil {
		return "", err
	}
	return resolved.NetworkName, nil
}

func (e *Engine) activeAccount() (string, chains.Client, common.Address, error) {
	network, err := e.network()
	if err != nil {
		return "", nil, common.Address{}, err
	}
	client, err := e.chains.Active()
	if err != nil {
		return "", nil, common.Address{}, err
	}
	selected := e.store.Snapshot().SelectedAddress
	if !common.IsHexAddress(selected) {
		return "", nil, common.Address{}, ErrNoSelectedAccount
	}
	return network, client, common.HexToAddress(selected), nil
}

func (e *Engine) syncTokenList(network string) {
	snap := e.store.Snapshot()
	tokens := e.tokenEntries(network, snap.TokenBalances)
	e.store.Update(func(st *BackgroundState) {
		if st.Network == network || st.Network == "" {
			st.Tokens = tokens
		}
	})
}

// tokenEntries renders the registry of a network as dashboard entries.
func (e *Engine) tokenEntries(network string, balances map[string]*big.Int) []dashboard.AssetEntry {
	list := e.registry.ListForNetwork(network)
	out := make([]dashboard.AssetEntry, 0, len(list))
	for _, a := range list {
		out = append(out, dashboard.AssetEntry{
			Name:     a.Name,
			Address:  a.Address,
			Symbol:   a.Symbol,
			Decimals: a.Decimals,
			Balance:  utils.FormatUnitsTrim(balances[a.Address], a.Decimals, constants.RenderDecimals),
			Image:    a.Image,
		})
	}
	return out
}

func (e *Engine) image(address string) string {
	for k, v := range e.cfg.Images {
		if strings.EqualFold(k, address) {
			return v
		}
	}
	if strings.EqualFold(address, constants.SyntheticContract) {
		return constants.SyntheticImage
	}
	return ""
}

func combine(op string, failed []error) error {
	switch len(failed) {
	case 0:
		return nil
	case 1:
		return errors.Wrap(failed[0], op)
	default:
		return errors.Wrapf(failed[0], "%s: %d calls failed, first", op, len(failed))
	}
}
