package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

type registration struct {
	Address  string
	Symbol   string
	Decimals uint8
}

// fakeServices records every call. Errors and gates are keyed by task name.
type fakeServices struct {
	mu       sync.Mutex
	calls    map[string]int
	errs     map[string]error
	panics   map[string]bool
	gate     chan struct{}
	regs     []registration
	currency string
	network  string

	historyRefreshed chan struct{}
	settled          chan struct{}
}

func newFakeServices() *fakeServices {
	return &fakeServices{
		calls:            map[string]int{},
		errs:             map[string]error{},
		panics:           map[string]bool{},
		historyRefreshed: make(chan struct{}, 1),
	}
}

func (f *fakeServices) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeServices) registrations() []registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]registration(nil), f.regs...)
}

func (f *fakeServices) op(name string) error {
	f.mu.Lock()
	f.calls[name]++
	err := f.errs[name]
	panics := f.panics[name]
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if panics {
		panic(name + " exploded")
	}
	return err
}

func (f *fakeServices) DetectTokens(context.Context) error { return f.op(TaskDetectTokens) }
func (f *fakeServices) DetectCollectibles(context.Context) error {
	return f.op(TaskDetectCollectibles)
}
func (f *fakeServices) RefreshAccounts(context.Context) error { return f.op(TaskRefreshAccounts) }
func (f *fakeServices) StartCurrencyRatePolling(context.Context) error {
	return f.op(TaskCurrencyRatePolling)
}
func (f *fakeServices) PollTokenRates(context.Context) error { return f.op(TaskPollTokenRates) }

func (f *fakeServices) RegisterToken(_ context.Context, address, symbol string, decimals uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs = append(f.regs, registration{address, symbol, decimals})
	return nil
}

func (f *fakeServices) SetNativeCurrencyCode(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currency = code
	return nil
}

func (f *fakeServices) SelectNetwork(_ context.Context, network string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.network = network
	if network == "" {
		return errors.New("empty network")
	}
	return nil
}

func (f *fakeServices) RefreshTransactionHistory(context.Context) error {
	f.mu.Lock()
	f.calls["history"]++
	f.mu.Unlock()
	select {
	case f.historyRefreshed <- struct{}{}:
	default:
	}
	return nil
}

// settlingServices adds a settle signal to fakeServices.
type settlingServices struct {
	*fakeServices
	ch chan struct{}
}

func (s settlingServices) Settled() <-chan struct{} { return s.ch }

// countingObserver counts observer callbacks.
type countingObserver struct {
	started  atomic.Int32
	settled  atomic.Int32
	failed   atomic.Int32
	finished atomic.Int32
	lastFail atomic.Int32
}

func (c *countingObserver) SessionStarted(string) { c.started.Add(1) }

func (c *countingObserver) TaskSettled(_, _ string, err error, _ time.Duration) {
	c.settled.Add(1)
	if err != nil {
		c.failed.Add(1)
	}
}

func (c *countingObserver) SessionFinished(_ string, _ time.Duration, failed int) {
	c.finished.Add(1)
	c.lastFail.Store(int32(failed))
}

// staticState serves a fixed DashboardState.
type staticState struct {
	mu sync.Mutex
	st DashboardState
}

func (s *staticState) DashboardState() DashboardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

func (s *staticState) set(st DashboardState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = st
}

// panickingState fails while producing state.
type panickingState struct{}

func (panickingState) DashboardState() DashboardState { panic("state store corrupted") }

var inline = IdleFunc(func(fn func()) { fn() })
