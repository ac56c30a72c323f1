// Package config defines the immutable process configuration for the astro
// weather service. Configuration is loaded once at startup from the
// environment (optionally seeded by a .env file) and validated; any missing
// required value or invalid format fails the process immediately.
package config

import (
	"time"

	"astroweather/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used for credentials to prevent accidental logging.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Components receive only the
// subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"prod" validate:"required,oneof=local dev prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Site         SiteConfig
	Meteoblue    MeteoblueConfig
	CloudWatcher CloudWatcherConfig
	Database     DatabaseConfig
	Notify       NotifyConfig
	Windows      WindowConfig
	Server       ServerConfig
	Archive      ArchiveConfig
}

// SiteConfig identifies the observation site the forecast is fetched for.
type SiteConfig struct {
	Name      string  `envconfig:"SITE_NAME" default:"observatory"`
	Latitude  float64 `envconfig:"SITE_LAT" default:"52.17" validate:"min=-90,max=90"`
	Longitude float64 `envconfig:"SITE_LON" default:"7.25" validate:"min=-180,max=180"`
	// Timezone is passed to the forecast API, which returns local timestamps.
	Timezone string `envconfig:"SITE_TIMEZONE" default:"Europe/Berlin"`
}

// MeteoblueConfig holds the forecast API credentials and polling cadence.
type MeteoblueConfig struct {
	APIKey       SecretString  `envconfig:"METEOBLUE_API_KEY" validate:"required"`
	BaseURL      string        `envconfig:"METEOBLUE_BASE_URL" default:"https://my.meteoblue.com/packages"`
	ForecastDays int           `envconfig:"METEOBLUE_FORECAST_DAYS" default:"7" validate:"min=1,max=7"`
	PollInterval time.Duration `envconfig:"METEOBLUE_POLL_INTERVAL" default:"60m"`
	Timeout      time.Duration `envconfig:"METEOBLUE_TIMEOUT" default:"30s"`
}

// CloudWatcherConfig holds the local sky sensor address and polling cadence.
type CloudWatcherConfig struct {
	Host         string        `envconfig:"CLOUDWATCHER_HOST" validate:"required"`
	Port         int           `envconfig:"CLOUDWATCHER_PORT" default:"80"`
	PollInterval time.Duration `envconfig:"CLOUDWATCHER_POLL_INTERVAL" default:"5m"`
	Timeout      time.Duration `envconfig:"CLOUDWATCHER_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// NotifyConfig holds Pushover credentials and notification thresholds.
// Notifications are disabled when the credentials are empty.
type NotifyConfig struct {
	PushoverToken SecretString `envconfig:"PUSHOVER_TOKEN"`
	PushoverUser  SecretString `envconfig:"PUSHOVER_USER"`
	PushoverURL   string       `envconfig:"PUSHOVER_URL" default:"https://api.pushover.net/1/messages.json"`

	MinScore int `envconfig:"NOTIFY_MIN_SCORE" default:"70" validate:"min=0,max=100"`
	MinHours int `envconfig:"NOTIFY_MIN_HOURS" default:"3" validate:"min=0"`
}

// WindowConfig holds the thresholds for the observation window scan.
type WindowConfig struct {
	MinScore  int  `envconfig:"WINDOW_MIN_SCORE" default:"60" validate:"min=0,max=100"`
	MinHours  int  `envconfig:"WINDOW_MIN_HOURS" default:"2" validate:"min=0"`
	OnlyNight bool `envconfig:"WINDOW_ONLY_NIGHT" default:"true"`
}

// ServerConfig holds the read API listen address.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// ArchiveConfig controls the sensor reading retention job.
type ArchiveConfig struct {
	// Dir is where pruned readings are written as gzipped JSON. Empty
	// disables the maintenance job.
	Dir       string        `envconfig:"ARCHIVE_DIR"`
	Retention time.Duration `envconfig:"ARCHIVE_RETENTION" default:"2160h"` // 90 days
	Interval  time.Duration `envconfig:"ARCHIVE_INTERVAL" default:"24h"`
}

// NotificationsEnabled reports whether Pushover credentials are configured.
func (c NotifyConfig) NotificationsEnabled() bool {
	return c.PushoverToken.Unmask() != "" && c.PushoverUser.Unmask() != ""
}
