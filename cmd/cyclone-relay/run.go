package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/cyclone-relay/internal/config"
	"github.com/couchcryptid/cyclone-relay/internal/observability"
	"github.com/spf13/cobra"
)

const pushJob = "cyclone_relay"

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Perform one poll-diff-notify run and exit",
		Long: `Perform a single run: load state, poll the NHC feeds, post broadcast and
digest reports as needed, and save state. Exits non-zero when the run aborts.

Metrics are pushed to PUSHGATEWAY_URL when set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return err
			}
			logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
			metrics := observability.NewMetrics()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger, metrics)
			if err != nil {
				logger.Error("failed to initialize", "error", err)
				return err
			}
			defer a.Close() //nolint:errcheck // logged in Close

			_, runErr := a.relay.Run(ctx)

			if cfg.PushgatewayURL != "" {
				pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := observability.Push(pushCtx, cfg.PushgatewayURL, pushJob, metrics); err != nil {
					logger.Warn("metrics push failed", "error", err)
				}
			}
			return runErr
		},
	}
}
