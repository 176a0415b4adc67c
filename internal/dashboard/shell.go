package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/wallet-dashboard/internal/constants"
)

// Navigation is the opaque handle of the hosting navigation entry.
type Navigation string

type Theme struct {
	Name   string            `json:"name"`
	Colors map[string]string `json:"colors,omitempty"`
}

func (t Theme) equal(o Theme) bool {
	if t.Name != o.Name || len(t.Colors) != len(o.Colors) {
		return false
	}
	for k, v := range t.Colors {
		if o.Colors[k] != v {
			return false
		}
	}
	return true
}

// NavbarOptions is emitted to the host whenever the navigation bar has to
// be (re)configured.
type NavbarOptions struct {
	TitleKey   string     `json:"titleKey"`
	Navigation Navigation `json:"navigation"`
	Theme      Theme      `json:"theme"`
}

type NavbarConfigurer interface {
	ConfigureNavbar(opts NavbarOptions)
}

type NavbarFunc func(opts NavbarOptions)

func (f NavbarFunc) ConfigureNavbar(opts NavbarOptions) { f(opts) }

// Screen views.
const (
	ViewWallet   = "wallet"
	ViewLoading  = "loading"
	ViewFallback = "fallback"
)

// Screen is the render output of the dashboard.
type Screen struct {
	View       string        `json:"view"`
	Refreshing bool          `json:"refreshing"`
	Account    *AccountView  `json:"account,omitempty"`
	Assets     []AssetEntry  `json:"assets,omitempty"`
	Overlay    *Overlay      `json:"overlay,omitempty"`
	Navbar     NavbarOptions `json:"navbar"`

	// Fallback names the view that failed when View is ViewFallback.
	Fallback string `json:"fallback,omitempty"`
}

type ShellConfig struct {
	NativeCurrency string
	DefaultNetwork string

	// HistorySettleDelay is how long activation waits before asking for a
	// transaction history refresh when the engine has no settle signal.
	HistorySettleDelay time.Duration

	Aggregate AggregateOptions
}

func DefaultShellConfig() ShellConfig {
	return ShellConfig{
		NativeCurrency:     constants.DefaultNativeCurrency,
		DefaultNetwork:     constants.DefaultNetwork,
		HistorySettleDelay: constants.DefaultHistorySettleDelay,
		Aggregate: AggregateOptions{
			Synthetic: DefaultSyntheticAsset(),
			Policy:    SyntheticOnly,
		},
	}
}

// Shell composes the aggregator, the refresh orchestrator and the
// onboarding controller into the dashboard screen.
type Shell struct {
	cfg      ShellConfig
	state    StateReader
	services Services
	orch     *Orchestrator
	navbar   NavbarConfigurer

	activate sync.Once

	mu          sync.Mutex
	nav         Navigation
	entered     bool
	theme       Theme
	anchor      *Anchor
	registering bool
}

func NewShell(cfg ShellConfig, state StateReader, services Services, orch *Orchestrator, navbar NavbarConfigurer) *Shell {
	if navbar == nil {
		navbar = NavbarFunc(func(NavbarOptions) {})
	}
	return &Shell{
		cfg:      cfg,
		state:    state,
		services: services,
		orch:     orch,
		navbar:   navbar,
	}
}

func (s *Shell) Orchestrator() *Orchestrator { return s.orch }

// Activate runs the first-activation setup exactly once: default native
// currency, default network, then a transaction history refresh once the
// engine state has settled.
func (s *Shell) Activate(ctx context.Context) {
	s.activate.Do(func() {
		if err := s.services.SetNativeCurrencyCode(s.cfg.NativeCurrency); err != nil {
			log.Error("set native currency failed", "currency", s.cfg.NativeCurrency, "error", err)
		}
		if err := s.services.SelectNetwork(ctx, s.cfg.DefaultNetwork); err != nil {
			log.Error("select network failed", "network", s.cfg.DefaultNetwork, "error", err)
		}

		bg := context.WithoutCancel(ctx)
		go func() {
			s.awaitSettle()
			if err := s.services.RefreshTransactionHistory(bg); err != nil {
				log.Warn("transaction history refresh failed", "error", err)
			}
		}()
	})
}

func (s *Shell) awaitSettle() {
	if settler, ok := s.services.(Settler); ok {
		if ch := settler.Settled(); ch != nil {
			<-ch
			return
		}
	}
	if s.cfg.HistorySettleDelay > 0 {
		time.Sleep(s.cfg.HistorySettleDelay)
	}
}

// Enter is called whenever the dashboard becomes the active navigation
// entry. Each new navigation handle configures the navigation bar and
// schedules one prime refresh.
func (s *Shell) Enter(ctx context.Context, nav Navigation) {
	s.mu.Lock()
	if s.entered && s.nav == nav {
		s.mu.Unlock()
		return
	}
	s.entered = true
	s.nav = nav
	opts := s.navbarOptionsLocked()
	s.mu.Unlock()

	s.navbar.ConfigureNavbar(opts)
	s.orch.PrimeOnMount(ctx)
}

// SetTheme re-runs navigation bar configuration when the theme changes.
func (s *Shell) SetTheme(theme Theme) {
	s.mu.Lock()
	if s.theme.equal(theme) {
		s.mu.Unlock()
		return
	}
	s.theme = theme
	entered := s.entered
	opts := s.navbarOptionsLocked()
	s.mu.Unlock()

	if entered {
		s.navbar.ConfigureNavbar(opts)
	}
}

// CaptureAnchor records the rendered position of the account overview.
// A nil anchor clears it (element unmounted).
func (s *Shell) CaptureAnchor(a *Anchor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a == nil {
		s.anchor = nil
		return
	}
	cp := *a
	s.anchor = &cp
}

// OnRefresh is the pull-to-refresh action.
func (s *Shell) OnRefresh(ctx context.Context) *RefreshSession {
	return s.orch.TriggerRefresh(ctx)
}

// Render produces the dashboard screen. A panic while building the view
// model is contained and replaced by the fallback view.
func (s *Shell) Render(ctx context.Context) (screen Screen) {
	s.mu.Lock()
	navbar := s.navbarOptionsLocked()
	var anchor *Anchor
	if s.anchor != nil {
		cp := *s.anchor
		anchor = &cp
	}
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error("dashboard render failed", "view", constants.FallbackViewName, "panic", r)
			screen = Screen{
				View:     ViewFallback,
				Fallback: constants.FallbackViewName,
				Navbar:   navbar,
			}
		}
	}()

	st := s.state.DashboardState()

	screen.Navbar = navbar
	screen.Refreshing = s.orch.InProgress()

	if st.SelectedAddress == "" {
		screen.View = ViewLoading
	} else {
		vm := Aggregate(st.Inputs, s.cfg.Aggregate)
		if PendingRegistration(st.Inputs, s.cfg.Aggregate.Synthetic) {
			s.registerSynthetic(ctx)
		}
		screen.View = ViewWallet
		screen.Account = &vm.Account
		screen.Assets = vm.Assets
	}

	overlay := ResolveOverlay(OnboardingState{CurrentStep: st.WizardStep, Anchor: anchor})
	if overlay.Show || overlay.AwaitingAnchor {
		screen.Overlay = &overlay
	}
	return screen
}

// registerSynthetic fires the registration without waiting for it. At
// most one registration is in flight at a time.
func (s *Shell) registerSynthetic(ctx context.Context) {
	s.mu.Lock()
	if s.registering {
		s.mu.Unlock()
		return
	}
	s.registering = true
	s.mu.Unlock()

	syn := s.cfg.Aggregate.Synthetic
	bg := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			s.mu.Lock()
			s.registering = false
			s.mu.Unlock()
		}()
		if err := s.services.RegisterToken(bg, syn.Address, syn.Symbol, syn.Decimals); err != nil {
			log.Warn("register synthetic asset failed", "address", syn.Address, "error", err)
		}
	}()
}

func (s *Shell) navbarOptionsLocked() NavbarOptions {
	return NavbarOptions{
		TitleKey:   constants.NavbarTitleKey,
		Navigation: s.nav,
		Theme:      s.theme,
	}
}
