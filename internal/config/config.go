package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	PollInterval    time.Duration

	// Discord configuration.
	DiscordToken              string
	DiscordAPIURL             string
	DiscordTimeout            time.Duration
	DiscordBroadcastChannelID string
	DiscordOperatorID         string
	CommandHistoryLimit       int

	// NHC feed configuration.
	NHCBaseURL  string
	NHCBasins   []string
	FeedTimeout time.Duration
	DigestHour  int

	// Run state persistence.
	StateDriver     string
	StatePath       string
	StateS3Bucket   string
	StateS3Key      string
	StateS3Endpoint string
	StateS3Region   string

	StateS3AccessKeyID     string
	StateS3SecretAccessKey string

	// Optional collaborators; empty disables them.
	HistoryDB      string
	KafkaBrokers   []string
	KafkaTopic     string
	PushgatewayURL string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	pollInterval, err := parsePositiveDuration("POLL_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	discordTimeout, err := parsePositiveDuration("DISCORD_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	digestHour, err := parseIntInRange("DIGEST_HOUR", 8, 0, 23)
	if err != nil {
		return nil, err
	}
	commandLimit, err := parseIntInRange("COMMAND_HISTORY_LIMIT", 50, 1, 100)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		PollInterval:    pollInterval,

		DiscordToken:              os.Getenv("DISCORD_TOKEN"),
		DiscordAPIURL:             os.Getenv("DISCORD_API_URL"),
		DiscordTimeout:            discordTimeout,
		DiscordBroadcastChannelID: os.Getenv("DISCORD_BROADCAST_CHANNEL_ID"),
		DiscordOperatorID:         os.Getenv("DISCORD_OPERATOR_ID"),
		CommandHistoryLimit:       commandLimit,

		NHCBaseURL:  strings.TrimRight(sharedcfg.EnvOrDefault("NHC_BASE_URL", "https://www.nhc.noaa.gov"), "/"),
		NHCBasins:   parseList(sharedcfg.EnvOrDefault("NHC_BASINS", "at,ep")),
		FeedTimeout: feedTimeout,
		DigestHour:  digestHour,

		StateDriver:     sharedcfg.EnvOrDefault("STATE_DRIVER", "fs"),
		StatePath:       sharedcfg.EnvOrDefault("STATE_PATH", "state.json"),
		StateS3Bucket:   os.Getenv("STATE_S3_BUCKET"),
		StateS3Key:      sharedcfg.EnvOrDefault("STATE_S3_KEY", "cyclone-relay/state.json"),
		StateS3Endpoint: os.Getenv("STATE_S3_ENDPOINT"),
		StateS3Region:   sharedcfg.EnvOrDefault("STATE_S3_REGION", "us-east-1"),

		StateS3AccessKeyID:     os.Getenv("STATE_S3_ACCESS_KEY_ID"),
		StateS3SecretAccessKey: os.Getenv("STATE_S3_SECRET_ACCESS_KEY"),

		HistoryDB:      os.Getenv("HISTORY_DB"),
		KafkaBrokers:   brokers,
		KafkaTopic:     sharedcfg.EnvOrDefault("KAFKA_TOPIC", "cyclone-updates"),
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	if c.DiscordBroadcastChannelID == "" {
		return errors.New("DISCORD_BROADCAST_CHANNEL_ID is required")
	}
	if c.DiscordOperatorID == "" {
		return errors.New("DISCORD_OPERATOR_ID is required")
	}
	if len(c.NHCBasins) == 0 {
		return errors.New("NHC_BASINS is required")
	}
	for _, b := range c.NHCBasins {
		if b != "at" && b != "ep" && b != "cp" {
			return fmt.Errorf("NHC_BASINS: unknown basin %q", b)
		}
	}
	switch c.StateDriver {
	case "fs", "memory":
	case "s3":
		if c.StateS3Bucket == "" {
			return errors.New("STATE_DRIVER is s3 but STATE_S3_BUCKET is not set")
		}
		if (c.StateS3AccessKeyID == "") != (c.StateS3SecretAccessKey == "") {
			return errors.New("STATE_S3_ACCESS_KEY_ID and STATE_S3_SECRET_ACCESS_KEY must be set together")
		}
	default:
		return fmt.Errorf("STATE_DRIVER: unknown driver %q", c.StateDriver)
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntInRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
