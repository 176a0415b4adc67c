package http

import (
	"net/http"

	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
)

// StateControl is the engine-side state the UI may change directly.
type StateControl interface {
	SelectAddress(address string)
	SetWizardStep(step int)
}

type Server struct {
	mux     *http.ServeMux
	shell   *dashboard.Shell
	orch    *dashboard.Orchestrator
	state   StateControl
	version string

	uiAllowedOrigins map[string]struct{}
}

type Options struct {
	Version          string
	UIAllowedOrigins []string
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
	// UI serves the dashboard page on every path no API route claims.
	UI http.Handler
}

func NewServer(shell *dashboard.Shell, state StateControl, opts Options) *Server {
	s := &Server{
		mux:              http.NewServeMux(),
		shell:            shell,
		orch:             shell.Orchestrator(),
		state:            state,
		version:          opts.Version,
		uiAllowedOrigins: make(map[string]struct{}, len(opts.UIAllowedOrigins)),
	}
	for _, o := range opts.UIAllowedOrigins {
		if o = normalizeOrigin(o); o != "" {
			s.uiAllowedOrigins[o] = struct{}{}
		}
	}

	s.mux.HandleFunc("/healthz", s.withLoopbackOnly(requireMethod(http.MethodGet, s.handleHealthHTTP)))

	// render entry point
	s.mux.HandleFunc("/wallet/dashboard", s.withUIGuards("GET", requireMethod(http.MethodGet, s.handleDashboardHTTP)))
	s.mux.HandleFunc("/wallet/theme", s.withUIGuards("POST", requireMethod(http.MethodPost, s.handleThemeHTTP)))
	s.mux.HandleFunc("/wallet/account/select", s.withUIGuards("POST", requireMethod(http.MethodPost, s.handleSelectAccountHTTP)))

	// pull to refresh
	s.mux.HandleFunc("/wallet/refresh", s.withUIGuards("POST", requireMethod(http.MethodPost, s.handleRefreshHTTP)))
	s.mux.HandleFunc("/wallet/refresh/status", s.withUIGuards("GET", requireMethod(http.MethodGet, s.handleRefreshStatusHTTP)))

	// onboarding
	s.mux.HandleFunc("/wallet/onboarding/anchor", s.withUIGuards("POST", requireMethod(http.MethodPost, s.handleAnchorHTTP)))
	s.mux.HandleFunc("/wallet/onboarding/step", s.withUIGuards("POST", requireMethod(http.MethodPost, s.handleStepHTTP)))

	if opts.Metrics != nil {
		s.mux.Handle("/metrics", s.withLoopbackOnly(opts.Metrics.ServeHTTP))
	}
	if opts.UI != nil {
		s.mux.Handle("/", s.withLoopbackOnly(s.withLocalHost(opts.UI.ServeHTTP)))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
