package dashboard

import (
	"context"
	"time"
)

// Services is the capability bundle the dashboard consumes from the
// background engine. Every method may be called concurrently.
type Services interface {
	DetectTokens(ctx context.Context) error
	DetectCollectibles(ctx context.Context) error
	RefreshAccounts(ctx context.Context) error
	StartCurrencyRatePolling(ctx context.Context) error
	PollTokenRates(ctx context.Context) error

	// RegisterToken adds a token to the engine's list. Registering a
	// token that is already present is a no-op.
	RegisterToken(ctx context.Context, address, symbol string, decimals uint8) error

	SetNativeCurrencyCode(code string) error
	SelectNetwork(ctx context.Context, network string) error
	RefreshTransactionHistory(ctx context.Context) error
}

// Settler is implemented by engines that can signal when state set up
// during activation has settled.
type Settler interface {
	Settled() <-chan struct{}
}

// IdleScheduler runs work in the next idle slot instead of synchronously.
type IdleScheduler interface {
	Schedule(fn func())
}

// IdleFunc adapts a function to IdleScheduler.
type IdleFunc func(fn func())

func (f IdleFunc) Schedule(fn func()) { f(fn) }

// GoIdle runs scheduled work on its own goroutine.
var GoIdle IdleScheduler = IdleFunc(func(fn func()) { go fn() })

// Observer receives refresh session events. Implementations must be safe
// for concurrent use.
type Observer interface {
	SessionStarted(kind string)
	TaskSettled(kind, task string, err error, took time.Duration)
	SessionFinished(kind string, took time.Duration, failed int)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string)                            {}
func (nopObserver) TaskSettled(string, string, error, time.Duration) {}
func (nopObserver) SessionFinished(string, time.Duration, int)       {}
