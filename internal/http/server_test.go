package http

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
)

const testAddr = "0x00000000000000000000000000000000000000AA"

type stubServices struct {
	mu    sync.Mutex
	gate  chan struct{}
	calls map[string]int
}

func newStubServices() *stubServices {
	return &stubServices{calls: map[string]int{}}
}

func (s *stubServices) op(name string) error {
	s.mu.Lock()
	s.calls[name]++
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return nil
}

func (s *stubServices) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubServices) DetectTokens(context.Context) error { return s.op(dashboard.TaskDetectTokens) }
func (s *stubServices) DetectCollectibles(context.Context) error {
	return s.op(dashboard.TaskDetectCollectibles)
}
func (s *stubServices) RefreshAccounts(context.Context) error {
	return s.op(dashboard.TaskRefreshAccounts)
}
func (s *stubServices) StartCurrencyRatePolling(context.Context) error {
	return s.op(dashboard.TaskCurrencyRatePolling)
}
func (s *stubServices) PollTokenRates(context.Context) error {
	return s.op(dashboard.TaskPollTokenRates)
}
func (s *stubServices) RegisterToken(context.Context, string, string, uint8) error {
	return s.op("register")
}
func (s *stubServices) SetNativeCurrencyCode(string) error { return nil }
func (s *stubServices) SelectNetwork(context.Context, string) error { return nil }
func (s *stubServices) RefreshTransactionHistory(context.Context) error { return nil }

type stubState struct {
	mu       sync.Mutex
	st       dashboard.DashboardState
	selected string
}

func (s *stubState) DashboardState() dashboard.DashboardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

func (s *stubState) SelectAddress(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = address
}

func (s *stubState) SetWizardStep(step int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.WizardStep = step
}

func loadedState() dashboard.DashboardState {
	return dashboard.DashboardState{Inputs: dashboard.Inputs{
		SelectedAddress: testAddr,
		Accounts:        map[string]dashboard.AccountState{testAddr: {Balance: "0x0"}},
		Identities:      map[string]dashboard.Identity{testAddr: {Address: testAddr, Name: "Account 1"}},
		TokenBalances: map[string]*big.Int{
			dashboard.DefaultSyntheticAsset().Address: new(big.Int).Mul(big.NewInt(400_000), big.NewInt(1_000_000)),
		},
		Conversion: dashboard.ConversionContext{ConversionRate: decimal.NewFromInt(2), CurrentCurrency: "usd"},
	}}
}

type testEnv struct {
	server   *Server
	services *stubServices
	state    *stubState
	shell    *dashboard.Shell
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	svc := newStubServices()
	state := &stubState{st: loadedState()}
	orch := dashboard.NewOrchestrator(svc, dashboard.WithIdleScheduler(dashboard.IdleFunc(func(fn func()) { fn() })))
	shell := dashboard.NewShell(dashboard.DefaultShellConfig(), state, svc, orch, nil)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	srv := NewServer(shell, state, Options{
		Version:          "test",
		UIAllowedOrigins: []string{"http://localhost:5173"},
		Metrics:          metrics,
		UI: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>ui</html>"))
		}),
	})
	return &testEnv{server: srv, services: svc, state: state, shell: shell}
}

func (e *testEnv) do(t *testing.T, method, target, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "127.0.0.1:53211"
	req.Host = "127.0.0.1:6137"
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthResponse{OK: true, Version: "test"}, decode[healthResponse](t, rec))

	rec = e.do(t, http.MethodPost, "/healthz", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGuards(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/wallet/dashboard", "", func(r *http.Request) { r.RemoteAddr = "10.0.0.7:4000" })
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/wallet/dashboard", "", func(r *http.Request) { r.Host = "evil.example" })
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/wallet/dashboard", "", func(r *http.Request) { r.Header.Set("Origin", "https://evil.example") })
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/wallet/dashboard", "", func(r *http.Request) { r.Header.Set("Origin", "http://LOCALHOST:5173") })
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = e.do(t, http.MethodOptions, "/wallet/refresh", "", func(r *http.Request) { r.Header.Set("Origin", "http://localhost:5173") })
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "POST,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestDashboard_Render(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/wallet/dashboard?nav=wallet-1&theme=dark", "")
	require.Equal(t, http.StatusOK, rec.Code)

	screen := decode[dashboard.Screen](t, rec)
	assert.Equal(t, dashboard.ViewWallet, screen.View)
	require.NotNil(t, screen.Account)
	assert.Equal(t, "Account 1", screen.Account.Name)
	require.Len(t, screen.Assets, 1)
	assert.Equal(t, "SCOIN", screen.Assets[0].Symbol)
	assert.Equal(t, "$20.00", screen.Assets[0].BalanceFiat)
	assert.Equal(t, "wallet.title", screen.Navbar.TitleKey)
	assert.Equal(t, "dark", screen.Navbar.Theme.Name)
	assert.Equal(t, dashboard.Navigation("wallet-1"), screen.Navbar.Navigation)

	require.Eventually(t, func() bool {
		s := e.shell.Orchestrator().Last(dashboard.KindPrime)
		return s != nil && s.Outstanding() == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, e.services.count(dashboard.TaskDetectTokens))

	// same navigation handle does not prime again
	e.do(t, http.MethodGet, "/wallet/dashboard?nav=wallet-1", "")
	assert.Equal(t, 1, e.services.count(dashboard.TaskDetectTokens))
}

func TestDashboard_Loading(t *testing.T) {
	e := newTestEnv(t)
	e.state.mu.Lock()
	e.state.st = dashboard.DashboardState{}
	e.state.mu.Unlock()

	rec := e.do(t, http.MethodGet, "/wallet/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dashboard.ViewLoading, decode[dashboard.Screen](t, rec).View)
}

func TestRefresh_WaitAndStatus(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/wallet/refresh?wait=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[refreshResponse](t, rec)
	require.NotNil(t, resp.Session)
	assert.Equal(t, dashboard.KindRefresh, resp.Session.Kind)
	assert.Equal(t, 0, resp.Session.Outstanding)
	assert.NotNil(t, resp.Session.FinishedAt)

	rec = e.do(t, http.MethodGet, "/wallet/refresh/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[refreshStatusResponse](t, rec)
	assert.False(t, status.Refreshing)
	require.NotNil(t, status.Last)
	assert.Equal(t, resp.Session.ID, status.Last.ID)
}

func TestRefresh_ConflictWhileInProgress(t *testing.T) {
	e := newTestEnv(t)
	e.services.gate = make(chan struct{})

	rec := e.do(t, http.MethodPost, "/wallet/refresh", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = e.do(t, http.MethodPost, "/wallet/refresh", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodGet, "/wallet/refresh/status", "")
	assert.True(t, decode[refreshStatusResponse](t, rec).Refreshing)

	close(e.services.gate)
	require.Eventually(t, func() bool { return !e.shell.Orchestrator().InProgress() }, time.Second, 5*time.Millisecond)
}

func TestOnboarding_AnchorAndStep(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/wallet/onboarding/step", `{"step":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	screen := decode[dashboard.Screen](t, e.do(t, http.MethodGet, "/wallet/dashboard", ""))
	require.NotNil(t, screen.Overlay)
	assert.True(t, screen.Overlay.AwaitingAnchor)

	rec = e.do(t, http.MethodPost, "/wallet/onboarding/anchor", `{"element":"account-overview","x":0,"y":64,"width":360,"height":180}`)
	require.Equal(t, http.StatusOK, rec.Code)

	screen = decode[dashboard.Screen](t, e.do(t, http.MethodGet, "/wallet/dashboard", ""))
	require.NotNil(t, screen.Overlay)
	assert.True(t, screen.Overlay.Show)
	assert.Equal(t, float64(360), screen.Overlay.Anchor.Width)

	rec = e.do(t, http.MethodPost, "/wallet/onboarding/anchor", `{"clear":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	screen = decode[dashboard.Screen](t, e.do(t, http.MethodGet, "/wallet/dashboard", ""))
	assert.False(t, screen.Overlay.Show)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/wallet/onboarding/anchor", `{"width":0}`).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/wallet/onboarding/anchor", `{"bogus":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/wallet/onboarding/step", `{"step":-1}`).Code)
}

func TestSelectAccountAndTheme(t *testing.T) {
	e := newTestEnv(t)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/wallet/account/select", `{"address":"nope"}`).Code)

	rec := e.do(t, http.MethodPost, "/wallet/account/select", `{"address":"`+testAddr+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testAddr, e.state.selected)

	rec = e.do(t, http.MethodPost, "/wallet/theme", `{"name":"light","colors":{"primary":"#037dd6"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	screen := decode[dashboard.Screen](t, e.do(t, http.MethodGet, "/wallet/dashboard", ""))
	assert.Equal(t, "#037dd6", screen.Navbar.Theme.Colors["primary"])
}

func TestMetricsMounted(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}

func TestUIMounted(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ui")

	rec = e.do(t, http.MethodGet, "/", "", func(r *http.Request) { r.Host = "wallet.example" })
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
