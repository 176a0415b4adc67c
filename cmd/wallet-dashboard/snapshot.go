package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"

	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
)

var errFallback = errors.New("dashboard rendered the fallback view")

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Activate the dashboard once and print the rendered screen as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSnapshot(ctx, opts, refresh, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", true, "run a full refresh before rendering")
	return cmd
}

func runSnapshot(ctx context.Context, opts *rootOptions, refresh bool, out io.Writer) error {
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
	if refresh {
		session := a.orch.TriggerRefresh(ctx)
		log.Info("refresh settled", "session", session.ID.String(), "failed", session.Failed())
	}

	screen := a.shell.Render(ctx)
	if screen.View == dashboard.ViewFallback {
		return errFallback
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(screen)
}
