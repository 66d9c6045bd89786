package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/air-quality-explorer/internal/fetch"
	"github.com/i474232898/air-quality-explorer/internal/monitor"
)

type AppConfig struct {
	Port string

	// BackendBaseURL is prefixed to every backend endpoint.
	BackendBaseURL string
	HTTPTimeout    time.Duration

	// Resilient fetch settings.
	FetchMaxAttempts     int
	FetchInitialInterval time.Duration
	FetchRetryLogical    bool
	BreakerEnabled       bool

	// CacheTTL bounds how long country/station/sensor lists are reused (0 = no cache).
	CacheTTL   time.Duration
	SessionTTL time.Duration

	// Sensors polled in the background and how often.
	Watches      []monitor.Watch
	PollInterval time.Duration

	// In-memory store retention.
	StoreMaxHistory int           // max number of readings per sensor (0 = unlimited)
	StoreMaxAge     time.Duration // max age of readings (0 = unlimited)

	StaticDir      string
	GeocoderAPIKey string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.BackendBaseURL = strings.TrimRight(getenvDefault("BACKEND_BASE_URL", "http://localhost:5000"), "/")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}

	if cfg.FetchMaxAttempts, err = getenvInt("FETCH_MAX_ATTEMPTS", fetch.DefaultMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.FetchMaxAttempts < 1 {
		return nil, fmt.Errorf("invalid FETCH_MAX_ATTEMPTS: %d", cfg.FetchMaxAttempts)
	}
	if cfg.FetchInitialInterval, err = getenvDuration("FETCH_INITIAL_INTERVAL", fetch.DefaultInitialInterval.String()); err != nil {
		return nil, err
	}
	if cfg.FetchInitialInterval < 0 {
		return nil, fmt.Errorf("invalid FETCH_INITIAL_INTERVAL: must not be negative")
	}
	if cfg.FetchRetryLogical, err = getenvBool("FETCH_RETRY_LOGICAL", true); err != nil {
		return nil, err
	}
	if cfg.BreakerEnabled, err = getenvBool("BREAKER_ENABLED", false); err != nil {
		return nil, err
	}

	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "10m"); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getenvDuration("SESSION_TTL", "30m"); err != nil {
		return nil, err
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("invalid SESSION_TTL: must be positive")
	}

	if cfg.Watches, err = parseWatches(os.Getenv("WATCH_SENSORS")); err != nil {
		return nil, err
	}
	// Scheduler interval: default 15 minutes.
	if cfg.PollInterval, err = getenvDuration("POLL_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	// roughly 24h at 15-minute intervals
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 96); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.StaticDir = os.Getenv("STATIC_DIR")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	return cfg, nil
}

// FetchConfig returns the resilient fetch settings.
func (c *AppConfig) FetchConfig() fetch.Config {
	fc := fetch.DefaultConfig(c.BackendBaseURL)
	fc.MaxAttempts = c.FetchMaxAttempts
	fc.InitialInterval = c.FetchInitialInterval
	fc.RetryLogicalFailures = c.FetchRetryLogical
	return fc
}

// parseWatches reads a comma separated list of location:sensor pairs.
func parseWatches(s string) ([]monitor.Watch, error) {
	var watches []monitor.Watch
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		w, err := monitor.ParseWatch(part)
		if err != nil {
			return nil, fmt.Errorf("invalid WATCH_SENSORS: %w", err)
		}
		if seen[w.Key()] {
			continue
		}
		seen[w.Key()] = true
		watches = append(watches, w)
	}
	return watches, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
