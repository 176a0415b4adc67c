package assets

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/wallet-dashboard/internal/constants"
	"github.com/quantumauth-io/wallet-dashboard/internal/securefile"
)

// Manager is the persisted token registry, keyed by network then address.
type Manager struct {
	path string

	mu    sync.RWMutex
	store Store
}

// NewManager uses path, or resolves assets.json with
// securefile.ResolvePath when path is empty.
func NewManager(path string) (*Manager, error) {
	if strings.TrimSpace(path) == "" {
		resolved, err := securefile.ResolvePath(constants.AppName, constants.AssetsFile)
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	return &Manager{
		path:  path,
		store: emptyStore(),
	}, nil
}

func emptyStore() Store {
	return Store{
		Schema:   constants.SchemaV1,
		Networks: map[string]map[string]Asset{},
	}
}

// Path returns the resolved assets.json path.
func (m *Manager) Path() string { return m.path }

// Load reads assets.json into memory. A missing file leaves an empty store.
func (m *Manager) Load(ctx context.Context) error {
	_ = ctx

	s, err := securefile.ReadJSON[Store](m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.mu.Lock()
			m.store = emptyStore()
			m.mu.Unlock()
			return nil
		}
		return errors.Wrap(err, "load assets")
	}

	normalized := emptyStore()
	if s.Schema != 0 {
		normalized.Schema = s.Schema
	}
	for netKey, byAddr := range s.Networks {
		nk := normalizeNetworkKey(netKey)
		if nk == "" {
			continue
		}
		if normalized.Networks[nk] == nil {
			normalized.Networks[nk] = map[string]Asset{}
		}
		for addrKey, asset := range byAddr {
			addr, err := normalizeAddress(addrKey)
			if err != nil {
				log.Warn("skipping invalid asset entry", "network", nk, "address", addrKey, "error", err)
				continue
			}
			asset.Address = addr
			normalized.Networks[nk][addr] = asset
		}
	}

	m.mu.Lock()
	m.store = normalized
	m.mu.Unlock()
	return nil
}

// AddToken registers a token. Adding an address that is already present
// is a no-op and reports added=false.
func (m *Manager) AddToken(ctx context.Context, network string, a Asset) (bool, error) {
	nk := normalizeNetworkKey(network)
	if nk == "" {
		return false, errors.New("network must not be empty")
	}
	addr, err := normalizeAddress(a.Address)
	if err != nil {
		return false, err
	}
	a.Address = addr

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.store.Networks[nk][addr]; ok {
		return false, nil
	}
	if m.store.Networks[nk] == nil {
		m.store.Networks[nk] = map[string]Asset{}
	}
	m.store.Networks[nk][addr] = a

	if err := m.persistLocked(ctx); err != nil {
		delete(m.store.Networks[nk], addr)
		return false, err
	}
	return true, nil
}

func (m *Manager) RemoveToken(ctx context.Context, network, address string) error {
	nk := normalizeNetworkKey(network)
	addr, err := normalizeAddress(address)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byAddr := m.store.Networks[nk]
	if _, ok := byAddr[addr]; !ok {
		return nil
	}
	delete(byAddr, addr)
	if len(byAddr) == 0 {
		delete(m.store.Networks, nk)
	}
	return m.persistLocked(ctx)
}

// Contains reports whether address is registered on network.
func (m *Manager) Contains(network, address string) bool {
	addr, err := normalizeAddress(address)
	if err != nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.store.Networks[normalizeNetworkKey(network)][addr]
	return ok
}

// ListForNetwork returns the registered tokens of a network sorted by symbol.
func (m *Manager) ListForNetwork(network string) []Asset {
	m.mu.RLock()
	byAddr := m.store.Networks[normalizeNetworkKey(network)]
	out := make([]Asset, 0, len(byAddr))
	for _, a := range byAddr {
		out = append(out, a)
	}
	m.mu.RUnlock()

	// stable for UI
	sort.Slice(out, func(i, j int) bool {
		si, sj := strings.ToLower(out[i].Symbol), strings.ToLower(out[j].Symbol)
		if si != sj {
			return si < sj
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// EnsureDefaults fetches metadata for configured default tokens missing
// from the network and persists them. Existing user entries are kept.
func (m *Manager) EnsureDefaults(ctx context.Context, network string, defaultAddrs []string, caller ContractCaller) error {
	nk := normalizeNetworkKey(network)
	if nk == "" {
		return errors.New("network must not be empty")
	}

	for _, raw := range defaultAddrs {
		addr, err := normalizeAddress(raw)
		if err != nil {
			return errors.Wrapf(err, "defaults[%s]", nk)
		}
		if m.Contains(nk, addr) {
			continue
		}

		a, err := FetchMetadata(ctx, caller, common.HexToAddress(addr))
		if err != nil {
			return errors.Wrapf(err, "fetch asset %s[%s]", nk, addr)
		}
		if _, err := m.AddToken(ctx, nk, a); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) persistLocked(ctx context.Context) error {
	_ = ctx
	if err := securefile.WriteJSON(m.path, m.store, constants.FilePerm, constants.DirectoryPerm); err != nil {
		return errors.Wrap(err, "persist assets")
	}
	return nil
}

func normalizeNetworkKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeAddress => checksummed canonical form
func normalizeAddress(addr string) (string, error) {
	a := strings.TrimSpace(addr)
	if a == "" {
		return "", errors.New("empty address")
	}
	if !strings.HasPrefix(a, "0x") && !strings.HasPrefix(a, "0X") {
		a = "0x" + a
	}
	a = strings.ToLower(a)
	if !common.IsHexAddress(a) {
		return "", errors.Newf("invalid address: %q", addr)
	}
	return common.HexToAddress(a).Hex(), nil
}
