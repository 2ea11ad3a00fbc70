package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/cyclone-relay/internal/adapter/http"
	"github.com/couchcryptid/cyclone-relay/internal/config"
	"github.com/couchcryptid/cyclone-relay/internal/observability"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run every POLL_INTERVAL and serve health, status and metrics",
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

			srv := httpadapter.NewServer(cfg.HTTPAddr, a.relay, a.relay, metrics.Gatherer(), logger)

			// Start HTTP server.
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
				}
			}()

			// Start relay loop.
			loopDone := make(chan struct{})
			go func() {
				defer close(loopDone)
				if err := a.relay.Serve(ctx, cfg.PollInterval); err != nil {
					logger.Error("relay loop error", "error", err)
				}
			}()

			<-ctx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			select {
			case <-loopDone:
			case <-shutdownCtx.Done():
				logger.Warn("relay loop did not stop before shutdown timeout")
			}
			_ = a.Close()

			logger.Info("shutdown complete")
			return nil
		},
	}
}
