// Package scheduler drives periodic background refreshes with cron.
package scheduler

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/robfig/cron/v3"

	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
)

// Config holds six-field cron specs (with seconds). Empty disables a job.
type Config struct {
	Refresh string `mapstructure:"refresh"`
	History string `mapstructure:"history"`
}

// Refresher is the slice of *dashboard.Orchestrator the scheduler needs.
type Refresher interface {
	InProgress() bool
	StartRefresh(ctx context.Context) *dashboard.RefreshSession
}

type HistoryRefresher interface {
	RefreshTransactionHistory(ctx context.Context) error
}

type Scheduler struct {
	Cron    *cron.Cron
	refresh Refresher
	history HistoryRefresher
	ctx     context.Context
}

func New(ctx context.Context, refresh Refresher, history HistoryRefresher) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		refresh: refresh,
		history: history,
		ctx:     ctx,
	}
}

// RegisterAll registers the configured jobs.
func (s *Scheduler) RegisterAll(cfg Config) error {
	if cfg.Refresh != "" {
		if _, err := s.Cron.AddFunc(cfg.Refresh, s.RefreshTick); err != nil {
			return errors.Wrap(err, "register refresh task")
		}
	}
	if cfg.History != "" && s.history != nil {
		if _, err := s.Cron.AddFunc(cfg.History, s.HistoryTick); err != nil {
			return errors.Wrap(err, "register history task")
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started", "jobs", len(s.Cron.Entries()))
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info("scheduler stopped")
}

// RefreshTick starts a refresh session unless one is already running.
// It does not wait for the session to settle.
func (s *Scheduler) RefreshTick() {
	if s.refresh.InProgress() {
		log.Info("scheduled refresh skipped", "reason", "refresh in progress")
		return
	}
	session := s.refresh.StartRefresh(s.ctx)
	log.Info("scheduled refresh started", "session", session.ID.String())
}

func (s *Scheduler) HistoryTick() {
	if err := s.history.RefreshTransactionHistory(s.ctx); err != nil {
		log.Warn("scheduled history refresh failed", "error", err)
	}
}
