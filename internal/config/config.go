package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all service settings, populated from environment variables.
type AppConfig struct {
	// ScrapeToken authenticates against the scraping proxy that fronts
	// Surfline. Required: direct calls from data-center IPs are blocked.
	ScrapeToken string

	// HTTPTimeout is the per-request timeout on outbound provider calls.
	HTTPTimeout time.Duration

	Port      string
	LogLevel  string
	LogFormat string

	// DatabaseURL enables the Postgres session store when set; otherwise
	// sessions are kept in memory.
	DatabaseURL   string
	MigrationsDir string

	// Spot cache backend: "memory" (default) or "redis".
	SpotCacheBackend string
	SpotCacheTTL     time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	// HomeSpots are prefetched on a schedule so the latest-forecast endpoint
	// can answer without a provider round trip.
	HomeSpots        []string
	PrefetchInterval time.Duration

	// Prefetched report retention.
	ReportMaxHistory int
	ReportMaxAge     time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is fine; env vars may come from the deployment.
	_ = godotenv.Load()

	cfg := &AppConfig{
		ScrapeToken:      os.Getenv("SCRAPE_TOKEN"),
		Port:             getenvDefault("PORT", "8080"),
		LogLevel:         getenvDefault("LOG_LEVEL", "info"),
		LogFormat:        getenvDefault("LOG_FORMAT", "json"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		MigrationsDir:    getenvDefault("MIGRATIONS_DIR", "migrations"),
		SpotCacheBackend: getenvDefault("SPOT_CACHE_BACKEND", "memory"),
		RedisAddr:        getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getenvInt("REDIS_DB", 0),
		ReportMaxHistory: getenvInt("REPORT_MAX_HISTORY", 24),
	}

	if cfg.ScrapeToken == "" {
		return nil, fmt.Errorf("SCRAPE_TOKEN is required")
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.SpotCacheTTL, err = getenvDuration("SPOT_CACHE_TTL", "0s"); err != nil {
		return nil, err
	}
	if cfg.PrefetchInterval, err = getenvDuration("PREFETCH_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if cfg.ReportMaxAge, err = getenvDuration("REPORT_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	switch cfg.SpotCacheBackend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("invalid SPOT_CACHE_BACKEND %q: use memory or redis", cfg.SpotCacheBackend)
	}

	if spots := os.Getenv("HOME_SPOTS"); spots != "" {
		for _, s := range strings.Split(spots, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.HomeSpots = append(cfg.HomeSpots, s)
			}
		}
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
