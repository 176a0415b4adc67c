package main

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/wallet-dashboard/cmd/wallet-dashboard/config"
	"github.com/quantumauth-io/wallet-dashboard/internal/assets"
	"github.com/quantumauth-io/wallet-dashboard/internal/chains"
	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
	"github.com/quantumauth-io/wallet-dashboard/internal/engine"
	"github.com/quantumauth-io/wallet-dashboard/internal/metrics"
	"github.com/quantumauth-io/wallet-dashboard/internal/rates"
)

// app holds the wired dashboard: engine, orchestrator and shell.
type app struct {
	cfg      *config.Config
	chains   *chains.Service
	registry *assets.Manager
	engine   *engine.Engine
	metrics  *metrics.Recorder
	orch     *dashboard.Orchestrator
	shell    *dashboard.Shell
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	chainSvc, err := chains.NewService(chains.ChainConfig{
		Chains:           &cfg.Chains,
		PreferredRPCName: cfg.Wallet.PreferredRPC,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init chain service")
	}
	log.Info("chains configured", "networks", chainSvc.Networks(), "default", cfg.Wallet.DefaultNetwork)

	registry, err := assets.NewManager(cfg.Wallet.AssetsPath)
	if err != nil {
		return nil, errors.Wrap(err, "init asset registry")
	}
	if err = registry.Load(ctx); err != nil {
		return nil, errors.Wrap(err, "load asset registry")
	}
	ensureDefaultAssets(ctx, cfg, chainSvc, registry)

	store := engine.NewStore()
	for _, a := range cfg.Accounts {
		store.AddAccount(a.Address, a.Name, a.Imported)
	}

	eng := engine.New(engine.Config{
		CurrentCurrency: cfg.Wallet.FiatCurrency,
		DetectionList:   cfg.Detection,
		Collectibles:    cfg.Collectibles,
		Images:          cfg.Images,
	}, store, chainSvc, registry, rates.NewClient(cfg.Rates))

	recorder := metrics.NewRecorder()
	orch := dashboard.NewOrchestrator(eng, dashboard.WithObserver(recorder))

	policy, err := dashboard.ParseTokenListPolicy(cfg.Wallet.TokenPolicy)
	if err != nil {
		return nil, err
	}
	shellCfg := dashboard.DefaultShellConfig()
	shellCfg.Aggregate.Policy = policy
	if cfg.Wallet.NativeCurrency != "" {
		shellCfg.NativeCurrency = cfg.Wallet.NativeCurrency
	}
	if cfg.Wallet.DefaultNetwork != "" {
		shellCfg.DefaultNetwork = cfg.Wallet.DefaultNetwork
	}
	if cfg.Wallet.HistorySettleDelay > 0 {
		shellCfg.HistorySettleDelay = cfg.Wallet.HistorySettleDelay
	}

	navbar := dashboard.NavbarFunc(func(opts dashboard.NavbarOptions) {
		log.Info("navbar configured",
			"title", opts.TitleKey,
			"navigation", string(opts.Navigation),
			"theme", opts.Theme.Name,
		)
	})

	return &app{
		cfg:      cfg,
		chains:   chainSvc,
		registry: registry,
		engine:   eng,
		metrics:  recorder,
		orch:     orch,
		shell:    dashboard.NewShell(shellCfg, store, eng, orch, navbar),
	}, nil
}

// ensureDefaultAssets seeds the registry with the configured tokens of the
// default network. Failures are logged; the dashboard starts without them.
func ensureDefaultAssets(ctx context.Context, cfg *config.Config, chainSvc *chains.Service, registry *assets.Manager) {
	network := cfg.Wallet.DefaultNetwork
	addrs := cfg.DefaultAssets[network]
	if len(addrs) == 0 {
		return
	}

	resolved, err := chainSvc.ResolveNetworkByName(network)
	if err != nil {
		log.Warn("default assets skipped", "network", network, "error", err)
		return
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := chainSvc.ClientForNetwork(dialCtx, resolved)
	if err != nil {
		log.Warn("default assets skipped", "network", network, "error", err)
		return
	}
	if err = registry.EnsureDefaults(dialCtx, network, addrs, client); err != nil {
		log.Warn("default assets incomplete", "network", network, "error", err)
	}
}

func (a *app) Close() {
	if err := a.chains.Close(); err != nil {
		log.Error("chain clients close failed", "error", err)
	}
}
