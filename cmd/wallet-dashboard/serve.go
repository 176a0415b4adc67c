package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"

	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
	dashboardhttp "github.com/quantumauth-io/wallet-dashboard/internal/http"
	"github.com/quantumauth-io/wallet-dashboard/internal/httpui"
	"github.com/quantumauth-io/wallet-dashboard/internal/scheduler"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var nav string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server and the refresh scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, dashboard.Navigation(nav))
		},
	}
	cmd.Flags().StringVar(&nav, "nav", "wallet", "navigation handle the dashboard is entered with at startup")
	return cmd
}

func runServe(opts *rootOptions, nav dashboard.Navigation) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := opts.load()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.shell.Activate(ctx)
	if nav != "" {
		a.shell.Enter(ctx, nav)
	}

	sched := scheduler.New(ctx, a.orch, a.engine)
	if err = sched.RegisterAll(cfg.Scheduler); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	ui, err := httpui.Handler()
	if err != nil {
		return err
	}

	handler := dashboardhttp.NewServer(a.shell, a.engine.Store(), dashboardhttp.Options{
		Version:          Version,
		UIAllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:          a.metrics.Handler(),
		UI:               ui,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	} else {
		log.Info("HTTP server gracefully stopped")
	}
	return nil
}
