// Package config holds the dashboard settings shared by the server and the
// page scripts.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/breatheroute/aqdash/internal/database"
	"github.com/breatheroute/aqdash/internal/format"
	"github.com/breatheroute/aqdash/internal/page"
)

// Storage backends for flags and notification history.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// ChartColors are the series colours used by dashboard charts.
type ChartColors struct {
	PM25     string `json:"pm25"`
	PM10     string `json:"pm10"`
	Temp     string `json:"temp"`
	Humidity string `json:"humidity"`
}

// DefaultChartColors returns the standard palette.
func DefaultChartColors() ChartColors {
	return ChartColors{
		PM25:     "rgb(255, 99, 132)",
		PM10:     "rgb(54, 162, 235)",
		Temp:     "rgb(255, 205, 86)",
		Humidity: "rgb(75, 192, 192)",
	}
}

// Telemetry configures OpenTelemetry export.
type Telemetry struct {
	Enabled      bool
	OTLPEndpoint string
}

// Config is the full dashboard configuration.
type Config struct {
	APIBaseURL      string
	WebAPIBaseURL   string
	RefreshInterval time.Duration
	ChartColors     ChartColors
	Locale          format.Locale
	Location        *time.Location
	NotificationTTL time.Duration
	ClockInterval   time.Duration

	Port      string
	Env       string
	Storage   string
	Telemetry Telemetry
	Database  database.Config

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// AdminEnabled mounts the feature flag admin endpoints.
	AdminEnabled bool

	// LuchtmeetnetURL overrides the provider base URL; empty uses the default.
	LuchtmeetnetURL string
}

// Public is the configuration exposed to page scripts.
type Public struct {
	APIBaseURL      string      `json:"apiBaseUrl"`
	WebAPIBaseURL   string      `json:"webApiBaseUrl"`
	RefreshInterval int64       `json:"refreshInterval"`
	ChartColors     ChartColors `json:"chartColors"`
}

// Public returns the subset of c that page scripts may read. The refresh
// interval is in milliseconds.
func (c Config) Public() Public {
	return Public{
		APIBaseURL:      c.APIBaseURL,
		WebAPIBaseURL:   c.WebAPIBaseURL,
		RefreshInterval: c.RefreshInterval.Milliseconds(),
		ChartColors:     c.ChartColors,
	}
}

// Formatter returns a formatter for the configured locale and time zone.
func (c Config) Formatter() format.Formatter {
	return format.NewFormatter(c.Locale, c.Location)
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		APIBaseURL:      "/api/v1",
		WebAPIBaseURL:   "/web/api",
		RefreshInterval: 30 * time.Second,
		ChartColors:     DefaultChartColors(),
		Locale:          format.DefaultLocale,
		Location:        time.Local,
		NotificationTTL: page.DefaultNotificationTTL,
		ClockInterval:   page.DefaultClockInterval,
		Port:            "8080",
		Env:             "development",
		Storage:         StorageMemory,
		Telemetry:       Telemetry{OTLPEndpoint: "localhost:4317"},
	}
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables over Default.
func FromEnv() (Config, error) {
	cfg := Default()

	cfg.APIBaseURL = getEnvOrDefault("AQDASH_API_BASE_URL", cfg.APIBaseURL)
	cfg.WebAPIBaseURL = getEnvOrDefault("AQDASH_WEB_API_BASE_URL", cfg.WebAPIBaseURL)
	cfg.Locale = format.ParseLocale(getEnvOrDefault("AQDASH_LOCALE", string(cfg.Locale)))
	cfg.LuchtmeetnetURL = os.Getenv("AQDASH_LUCHTMEETNET_URL")

	if v := os.Getenv("AQDASH_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("AQDASH_REFRESH_INTERVAL: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("AQDASH_REFRESH_INTERVAL must be positive, got %s", d)
		}
		cfg.RefreshInterval = d
	}

	if v := os.Getenv("AQDASH_TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return Config{}, fmt.Errorf("AQDASH_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	cfg.Port = getEnvOrDefault("APP_PORT", cfg.Port)
	cfg.Env = getEnvOrDefault("APP_ENV", cfg.Env)

	switch storage := getEnvOrDefault("AQDASH_STORAGE", cfg.Storage); storage {
	case StorageMemory, StoragePostgres:
		cfg.Storage = storage
	default:
		return Config{}, fmt.Errorf("AQDASH_STORAGE: unknown backend %q", storage)
	}
	if cfg.Storage == StoragePostgres {
		cfg.Database = database.ConfigFromEnv()
	}

	cfg.RequireTLS = os.Getenv("REQUIRE_TLS") == "true"
	cfg.AdminEnabled = os.Getenv("AQDASH_ADMIN_ENABLED") == "true"

	cfg.Telemetry.Enabled = os.Getenv("OTEL_ENABLED") == "true"
	cfg.Telemetry.OTLPEndpoint = getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
