package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
)

func (s *Server) handleHealthHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{OK: true, Version: s.version})
}

// handleDashboardHTTP renders the dashboard. A nav query parameter marks
// the request as a navigation entry, which primes the engine once per
// handle.
func (s *Server) handleDashboardHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if theme := strings.TrimSpace(q.Get(QueryTheme)); theme != "" {
		s.shell.SetTheme(dashboard.Theme{Name: theme})
	}
	if nav := strings.TrimSpace(q.Get(QueryNavigation)); nav != "" {
		s.shell.Enter(r.Context(), dashboard.Navigation(nav))
	}

	writeJSON(w, http.StatusOK, s.shell.Render(r.Context()))
}

func (s *Server) handleThemeHTTP(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	s.shell.SetTheme(dashboard.Theme{Name: strings.TrimSpace(req.Name), Colors: req.Colors})
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleSelectAccountHTTP(w http.ResponseWriter, r *http.Request) {
	var req selectAccountRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if !common.IsHexAddress(strings.TrimSpace(req.Address)) {
		writeError(w, http.StatusBadRequest, InvalidAddressText)
		return
	}
	s.state.SelectAddress(req.Address)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// handleRefreshHTTP starts a refresh session. The orchestrator itself
// allows overlaps; this endpoint refuses a second one while the first is
// running. With wait=true the response is sent once every operation has
// settled.
func (s *Server) handleRefreshHTTP(w http.ResponseWriter, r *http.Request) {
	if s.orch.InProgress() {
		writeError(w, http.StatusConflict, RefreshInProgressText)
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get(QueryWait))

	var session *dashboard.RefreshSession
	if wait {
		session = s.shell.OnRefresh(r.Context())
	} else {
		session = s.orch.StartRefresh(r.Context())
	}
	log.Info("refresh requested", "session", session.ID.String(), "wait", wait)

	status := http.StatusAccepted
	if wait {
		status = http.StatusOK
	}
	writeJSON(w, status, refreshResponse{OK: true, Session: newSessionView(session)})
}

func (s *Server) handleRefreshStatusHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, refreshStatusResponse{
		Refreshing: s.orch.InProgress(),
		Last:       newSessionView(s.orch.Last(dashboard.KindRefresh)),
		LastPrime:  newSessionView(s.orch.Last(dashboard.KindPrime)),
	})
}

func (s *Server) handleAnchorHTTP(w http.ResponseWriter, r *http.Request) {
	var req anchorRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Clear {
		s.shell.CaptureAnchor(nil)
		writeJSON(w, http.StatusOK, okResponse{OK: true})
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		writeError(w, http.StatusBadRequest, InvalidAnchorText)
		return
	}

	s.shell.CaptureAnchor(&dashboard.Anchor{
		Element: req.Element,
		X:       req.X,
		Y:       req.Y,
		Width:   req.Width,
		Height:  req.Height,
	})
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleStepHTTP(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Step < 0 {
		writeError(w, http.StatusBadRequest, InvalidStepText)
		return
	}
	s.state.SetWizardStep(req.Step)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
