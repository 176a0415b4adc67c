package dashboard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"golang.org/x/sync/errgroup"
)

// Session kinds.
const (
	KindRefresh = "refresh"
	KindPrime   = "prime"
)

// Task names as reported to observers and logs.
const (
	TaskDetectTokens        = "detect_tokens"
	TaskDetectCollectibles  = "detect_collectibles"
	TaskRefreshAccounts     = "refresh_accounts"
	TaskCurrencyRatePolling = "currency_rate_polling"
	TaskPollTokenRates      = "poll_token_rates"
)

// RefreshSession tracks one batch of dispatched operations.
type RefreshSession struct {
	ID        uuid.UUID
	Kind      string
	StartedAt time.Time

	outstanding atomic.Int32
	failed      atomic.Int32
	finishedAt  time.Time
	done        chan struct{}
}

func newSession(kind string, tasks int) *RefreshSession {
	s := &RefreshSession{
		ID:        uuid.New(),
		Kind:      kind,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
	s.outstanding.Store(int32(tasks))
	return s
}

// Done is closed once every operation of the session has settled.
func (s *RefreshSession) Done() <-chan struct{} { return s.done }

// Outstanding is the number of operations still running.
func (s *RefreshSession) Outstanding() int { return int(s.outstanding.Load()) }

// Failed is the number of operations that returned an error or panicked.
func (s *RefreshSession) Failed() int { return int(s.failed.Load()) }

// FinishedAt is zero until Done is closed.
func (s *RefreshSession) FinishedAt() time.Time {
	select {
	case <-s.done:
		return s.finishedAt
	default:
		return time.Time{}
	}
}

type task struct {
	name string
	run  func(context.Context) error
}

// Orchestrator fans refresh operations out to the engine services and
// joins them. It does not prevent overlapping sessions; InProgress is
// advisory and callers gate re-entry on it.
type Orchestrator struct {
	services Services
	idle     IdleScheduler
	observer Observer

	refreshing atomic.Int32

	mu   sync.Mutex
	last map[string]*RefreshSession
}

type OrchestratorOption func(*Orchestrator)

func WithIdleScheduler(idle IdleScheduler) OrchestratorOption {
	return func(o *Orchestrator) { o.idle = idle }
}

func WithObserver(obs Observer) OrchestratorOption {
	return func(o *Orchestrator) { o.observer = obs }
}

func NewOrchestrator(services Services, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		services: services,
		idle:     GoIdle,
		observer: nopObserver{},
		last:     make(map[string]*RefreshSession),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// InProgress reports whether a refresh session is running.
func (o *Orchestrator) InProgress() bool {
	return o.refreshing.Load() > 0
}

// Last returns the most recently started session of the given kind.
func (o *Orchestrator) Last(kind string) *RefreshSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last[kind]
}

// TriggerRefresh runs a full refresh session and blocks until every
// operation has settled. Operation failures are logged, never returned.
func (o *Orchestrator) TriggerRefresh(ctx context.Context) *RefreshSession {
	s := o.StartRefresh(ctx)
	<-s.Done()
	return s
}

// StartRefresh marks a refresh in progress, dispatches the full set of
// refresh operations and returns without waiting for them.
func (o *Orchestrator) StartRefresh(ctx context.Context) *RefreshSession {
	o.refreshing.Add(1)
	return o.dispatch(ctx, KindRefresh, o.refreshTasks(), func() {
		o.refreshing.Add(-1)
	})
}

// PrimeOnMount schedules the lightweight refresh for the next idle slot.
// The in-progress flag is not touched.
func (o *Orchestrator) PrimeOnMount(ctx context.Context) {
	o.idle.Schedule(func() {
		o.dispatch(ctx, KindPrime, o.primeTasks(), nil)
	})
}

func (o *Orchestrator) refreshTasks() []task {
	return []task{
		{TaskDetectTokens, o.services.DetectTokens},
		{TaskDetectCollectibles, o.services.DetectCollectibles},
		{TaskRefreshAccounts, o.services.RefreshAccounts},
		{TaskCurrencyRatePolling, o.services.StartCurrencyRatePolling},
		{TaskPollTokenRates, o.services.PollTokenRates},
	}
}

func (o *Orchestrator) primeTasks() []task {
	return []task{
		{TaskDetectTokens, o.services.DetectTokens},
		{TaskDetectCollectibles, o.services.DetectCollectibles},
		{TaskRefreshAccounts, o.services.RefreshAccounts},
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, kind string, tasks []task, settled func()) *RefreshSession {
	session := newSession(kind, len(tasks))

	o.mu.Lock()
	o.last[kind] = session
	o.mu.Unlock()

	o.observer.SessionStarted(kind)

	// operations run to completion even if the caller goes away
	opCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	for _, t := range tasks {
		g.Go(func() error {
			start := time.Now()
			err := runTask(opCtx, t)
			session.outstanding.Add(-1)
			if err != nil {
				session.failed.Add(1)
				log.Warn("refresh operation failed",
					"session", session.ID.String(),
					"kind", kind,
					"task", t.name,
					"error", err,
				)
			}
			o.observer.TaskSettled(kind, t.name, err, time.Since(start))
			return err
		})
	}

	go func() {
		firstErr := g.Wait()
		if settled != nil {
			settled()
		}
		session.finishedAt = time.Now()
		took := session.finishedAt.Sub(session.StartedAt)
		o.observer.SessionFinished(kind, took, session.Failed())
		if firstErr != nil {
			log.Warn("refresh session settled with failures",
				"session", session.ID.String(),
				"kind", kind,
				"failed", session.Failed(),
				"first_error", firstErr,
			)
		} else {
			log.Info("refresh session settled",
				"session", session.ID.String(),
				"kind", kind,
				"took", took.String(),
			)
		}
		close(session.done)
	}()

	return session
}

func runTask(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("%s panicked: %v", t.name, r)
		}
	}()
	if t.run == nil {
		return errors.Newf("%s: not available", t.name)
	}
	if err := t.run(ctx); err != nil {
		return errors.Wrap(err, t.name)
	}
	return nil
}

func (s *RefreshSession) String() string {
	return fmt.Sprintf("%s session %s", s.Kind, s.ID)
}
