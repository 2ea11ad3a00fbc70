package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/cyclone-relay/internal/adapter/discord"
	kafkaadapter "github.com/couchcryptid/cyclone-relay/internal/adapter/kafka"
	"github.com/couchcryptid/cyclone-relay/internal/adapter/mapbox"
	"github.com/couchcryptid/cyclone-relay/internal/adapter/nhc"
	"github.com/couchcryptid/cyclone-relay/internal/config"
	"github.com/couchcryptid/cyclone-relay/internal/history"
	"github.com/couchcryptid/cyclone-relay/internal/observability"
	"github.com/couchcryptid/cyclone-relay/internal/relay"
	"github.com/couchcryptid/cyclone-relay/internal/store"
	"github.com/jonboulle/clockwork"
)

// app is a fully wired relay plus the resources to release on exit.
type app struct {
	relay   *relay.Relay
	closers []func() error
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*app, error) {
	a := &app{logger: logger}

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	messenger, err := discord.NewClient(cfg.DiscordToken, cfg.DiscordAPIURL, cfg.DiscordTimeout, logger)
	if err != nil {
		return nil, err
	}

	feed := nhc.NewClient(cfg.NHCBaseURL, cfg.NHCBasins, cfg.FeedTimeout, logger)
	deps := relay.Deps{
		Feed:      feed,
		Images:    feed,
		Messenger: messenger,
		State:     st,
	}

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			return nil, err
		}
		deps.Geocoder = cached
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		deps.Publisher = writer
		a.closers = append(a.closers, writer.Close)
		logger.Info("kafka event sink enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	if cfg.HistoryDB != "" {
		ledger, err := history.Open(cfg.HistoryDB)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Recorder = ledger
		a.closers = append(a.closers, ledger.Close)
	}

	a.relay = relay.New(deps, relay.Options{
		BroadcastChannelID:  cfg.DiscordBroadcastChannelID,
		OperatorID:          cfg.DiscordOperatorID,
		DigestHour:          cfg.DigestHour,
		CommandHistoryLimit: cfg.CommandHistoryLimit,
	}, clockwork.NewRealClock(), logger, metrics)
	return a, nil
}

// Close releases the optional collaborators.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("close error", "error", err)
		return err
	}
	return nil
}
