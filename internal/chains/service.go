package chains

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

var (
	ErrNoActiveChain  = errors.New("no active chain")
	ErrUnknownNetwork = errors.New("unknown network")
)

type ChainConfig struct {
	Chains           *AllChainsConfig
	PreferredRPCName string
}

type activeChain struct {
	resolved ResolvedChain
	client   Client
}

// Service keeps one client per network and tracks the active one.
type Service struct {
	cfg    ChainConfig
	dial   Dialer
	active atomic.Pointer[activeChain]

	mu               sync.Mutex
	clientsByNetwork map[string]Client
}

type Option func(*Service)

// WithDialer replaces the ethclient dialer.
func WithDialer(d Dialer) Option {
	return func(s *Service) { s.dial = d }
}

func NewService(cfg ChainConfig, opts ...Option) (*Service, error) {
	if cfg.Chains == nil {
		return nil, errors.New("chains config is nil")
	}
	cfg.Chains.Normalize()

	s := &Service{
		cfg:              cfg,
		dial:             dialEthClient,
		clientsByNetwork: make(map[string]Client),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func dialEthClient(ctx context.Context, url string) (Client, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Active returns the client of the active network.
func (s *Service) Active() (Client, error) {
	current := s.active.Load()
	if current == nil {
		return nil, ErrNoActiveChain
	}
	return current.client, nil
}

func (s *Service) ActiveNetwork() (ResolvedChain, error) {
	current := s.active.Load()
	if current == nil {
		return ResolvedChain{}, ErrNoActiveChain
	}
	return current.resolved, nil
}

// Networks lists configured network names.
func (s *Service) Networks() []string {
	out := make([]string, 0, len(s.cfg.Chains.Networks))
	for name := range s.cfg.Chains.Networks {
		out = append(out, name)
	}
	return out
}

// SwitchChain makes networkName the active network, dialing it on first use.
func (s *Service) SwitchChain(ctx context.Context, networkName string) error {
	networkName = strings.TrimSpace(networkName)
	if networkName == "" {
		return errors.New("network name is empty")
	}

	if current := s.active.Load(); current != nil {
		if strings.EqualFold(current.resolved.NetworkName, networkName) {
			return nil
		}
	}

	resolved, err := s.ResolveNetworkByName(networkName)
	if err != nil {
		return err
	}

	client, err := s.ClientForNetwork(ctx, resolved)
	if err != nil {
		return err
	}

	s.active.Store(&activeChain{resolved: resolved, client: client})
	log.Info("active network switched", "network", resolved.NetworkName, "chain_id", resolved.ChainID)
	return nil
}

// ClientForNetwork returns (and caches) the client for a network without
// changing the active chain.
func (s *Service) ClientForNetwork(ctx context.Context, resolved ResolvedChain) (Client, error) {
	cacheKey := strings.ToLower(resolved.NetworkName)

	s.mu.Lock()
	if existing := s.clientsByNetwork[cacheKey]; existing != nil {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	// dial outside the lock
	dialed, err := s.dial(ctx, resolved.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %q", resolved.NetworkName)
	}

	s.mu.Lock()
	if existing := s.clientsByNetwork[cacheKey]; existing != nil {
		s.mu.Unlock()
		dialed.Close()
		return existing, nil
	}
	s.clientsByNetwork[cacheKey] = dialed
	s.mu.Unlock()

	return dialed, nil
}

// Close closes all cached clients (call on shutdown).
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, c := range s.clientsByNetwork {
		if c != nil {
			c.Close()
		}
		delete(s.clientsByNetwork, key)
	}
	s.active.Store(nil)
	return nil
}

func (s *Service) ResolveNetworkByChainIDHex(hexID string) (ResolvedChain, error) {
	want := strings.TrimSpace(strings.ToLower(hexID))
	if want == "" {
		return ResolvedChain{}, errors.New("chainIdHex is empty")
	}
	for name, network := range s.cfg.Chains.Networks {
		if chainIDHex(network) != want {
			continue
		}
		return s.resolve(name, network)
	}
	return ResolvedChain{}, errors.Wrapf(ErrUnknownNetwork, "chainIdHex %q", want)
}

func (s *Service) ResolveNetworkByName(networkName string) (ResolvedChain, error) {
	key := strings.ToLower(strings.TrimSpace(networkName))
	network, ok := s.cfg.Chains.Networks[key]
	if !ok {
		return ResolvedChain{}, errors.Wrapf(ErrUnknownNetwork, "%q", networkName)
	}
	return s.resolve(key, network)
}

func (s *Service) resolve(networkName string, network NetworkConfig) (ResolvedChain, error) {
	// preferred rpc by name, otherwise first
	var selected *RPC
	if preferred := strings.TrimSpace(s.cfg.PreferredRPCName); preferred != "" {
		for i := range network.RPCs {
			if strings.EqualFold(strings.TrimSpace(network.RPCs[i].Name), preferred) {
				selected = &network.RPCs[i]
				break
			}
		}
	}
	if selected == nil {
		if len(network.RPCs) == 0 {
			return ResolvedChain{}, errors.Newf("network %q has no RPCs configured", networkName)
		}
		selected = &network.RPCs[0]
	}
	if strings.TrimSpace(selected.URL) == "" {
		return ResolvedChain{}, errors.Newf("network %q rpc %q url is empty", networkName, selected.Name)
	}

	ticker := network.Ticker
	if ticker == "" {
		ticker = "ETH"
	}

	return ResolvedChain{
		NetworkName: networkName,
		ChainID:     network.ChainID,
		ChainIDHex:  chainIDHex(network),
		Ticker:      ticker,
		Explorer:    explorerFor(network),
		RPCName:     selected.Name,
		URL:         selected.URL,
	}, nil
}
