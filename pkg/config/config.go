// Package config loads service configuration from the environment and
// the technician routing table from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// PublicHost is the externally reachable host the telephony
	// provider connects back to for media streams.
	PublicHost string

	EngineURL    string
	EngineAPIKey string
	EngineModel  string
	Voice        string

	RecordStoreURL    string
	RecordStoreAPIKey string

	// DatabaseURL enables the Postgres call archive when set.
	DatabaseURL string

	RoutingFile string

	VADThreshold      float64
	PrefixPaddingMS   int
	SilenceDurationMS int
	SettleDelay       time.Duration
	HangupDelay       time.Duration

	WSWriteTimeout time.Duration
	WSPingInterval time.Duration

	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("VD_ADDR", ":8080"),
		PublicHost:          strings.TrimSpace(os.Getenv("VD_PUBLIC_HOST")),
		EngineURL:           envOr("VD_ENGINE_URL", "wss://api.openai.com/v1/realtime"),
		EngineAPIKey:        strings.TrimSpace(os.Getenv("VD_ENGINE_API_KEY")),
		EngineModel:         envOr("VD_ENGINE_MODEL", "gpt-4o-realtime-preview"),
		Voice:               envOr("VD_VOICE", "alloy"),
		RecordStoreURL:      strings.TrimSpace(os.Getenv("VD_RECORD_STORE_URL")),
		RecordStoreAPIKey:   strings.TrimSpace(os.Getenv("VD_RECORD_STORE_API_KEY")),
		DatabaseURL:         strings.TrimSpace(os.Getenv("VD_DATABASE_URL")),
		RoutingFile:         envOr("VD_ROUTING_FILE", "routing.yaml"),
		VADThreshold:        envFloat64Or("VD_VAD_THRESHOLD", 0.5),
		PrefixPaddingMS:     envIntOr("VD_VAD_PREFIX_PADDING_MS", 300),
		SilenceDurationMS:   envIntOr("VD_VAD_SILENCE_MS", 600),
		SettleDelay:         envDurationOr("VD_SETTLE_DELAY", 250*time.Millisecond),
		HangupDelay:         envDurationOr("VD_HANGUP_DELAY", 2*time.Second),
		WSWriteTimeout:      envDurationOr("VD_WS_WRITE_TIMEOUT", 5*time.Second),
		WSPingInterval:      envDurationOr("VD_WS_PING_INTERVAL", 20*time.Second),
		ReadHeaderTimeout:   envDurationOr("VD_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("VD_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	if cfg.EngineAPIKey == "" {
		return Config{}, fmt.Errorf("VD_ENGINE_API_KEY must be set")
	}
	if cfg.RecordStoreURL == "" {
		return Config{}, fmt.Errorf("VD_RECORD_STORE_URL must be set")
	}
	if cfg.VADThreshold <= 0 || cfg.VADThreshold >= 1 {
		return Config{}, fmt.Errorf("VD_VAD_THRESHOLD must be in (0,1)")
	}
	if cfg.SilenceDurationMS <= 0 {
		return Config{}, fmt.Errorf("VD_VAD_SILENCE_MS must be > 0")
	}
	if cfg.SettleDelay < 0 {
		return Config{}, fmt.Errorf("VD_SETTLE_DELAY must be >= 0")
	}
	if cfg.HangupDelay <= 0 {
		return Config{}, fmt.Errorf("VD_HANGUP_DELAY must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("VD_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("VD_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
