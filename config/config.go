// Package config loads dolarwatch settings from an optional YAML file and
// the environment. Nested keys map to environment variables with "." → "_",
// e.g. market.open_hour is MARKET_OPEN_HOUR.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Monitor  MonitorConfig
	Market   MarketConfig
	Source   SourceConfig
	Storage  StorageConfig
	Log      LogConfig
	Supabase SupabaseConfig
	Database DatabaseConfig
	SQLite   SQLiteConfig `mapstructure:"sqlite"`
	Redis    RedisConfig
	Telegram TelegramConfig
	Webhook  WebhookConfig
	Metrics  MetricsConfig
}

// MonitorConfig tunes the tick loop.
type MonitorConfig struct {
	IntervalMinutes    int    `mapstructure:"interval_minutes"`
	ThresholdRaw       string `mapstructure:"threshold"`
	SinkTimeoutSeconds int    `mapstructure:"sink_timeout_seconds"`
	BufferSize         int    `mapstructure:"buffer_size"`

	Threshold decimal.Decimal `mapstructure:"-"`
}

// Interval is the tick period.
func (m MonitorConfig) Interval() time.Duration {
	return time.Duration(m.IntervalMinutes) * time.Minute
}

// SinkTimeout bounds every history sink write.
func (m MonitorConfig) SinkTimeout() time.Duration {
	return time.Duration(m.SinkTimeoutSeconds) * time.Second
}

// MarketConfig defines the monitoring window.
type MarketConfig struct {
	OpenHour     int      `mapstructure:"open_hour"`
	CloseHour    int      `mapstructure:"close_hour"`
	Timezone     string   `mapstructure:"timezone"`
	WeekdaysOnly bool     `mapstructure:"weekdays_only"`
	Holidays     []string `mapstructure:"holidays"`

	Location *time.Location `mapstructure:"-"`
}

// SourceConfig points at the quote provider.
type SourceConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout bounds each provider request.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// StorageConfig holds the local file paths.
type StorageConfig struct {
	SnapshotFile    string `mapstructure:"snapshot_file"`
	DailyOpenFile   string `mapstructure:"daily_open_file"`
	HistoryJSONFile string `mapstructure:"history_json_file"`
	HistoryCSVFile  string `mapstructure:"history_csv_file"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	ErrorFile string `mapstructure:"error_file"`
}

// SupabaseConfig enables the PostgREST sink when URL and APIKey are set.
type SupabaseConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
	Table  string `mapstructure:"table"`
}

// Enabled reports whether the sink is configured.
func (s SupabaseConfig) Enabled() bool { return s.URL != "" && s.APIKey != "" }

// DatabaseConfig enables the direct Postgres sink.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// SQLiteConfig enables the local SQL ledger.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig enables the Redis mirror.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TelegramConfig enables the bot notifier.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID string `mapstructure:"chat_id"`
}

// Enabled reports whether the notifier is configured.
func (t TelegramConfig) Enabled() bool { return t.Token != "" && t.ChatID != "" }

// WebhookConfig enables the webhook notifier.
type WebhookConfig struct {
	URL string `mapstructure:"url"`
}

// MetricsConfig sets the metrics, health and feed listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

var defaults = map[string]any{
	"monitor.interval_minutes":     5,
	"monitor.threshold":            "0.5",
	"monitor.sink_timeout_seconds": 10,
	"monitor.buffer_size":          1000,

	"market.open_hour":     10,
	"market.close_hour":    17,
	"market.timezone":      "America/Argentina/Buenos_Aires",
	"market.weekdays_only": false,
	"market.holidays":      []string{},

	"source.url":             "https://dolarapi.com/v1/dolares",
	"source.timeout_seconds": 10,

	"storage.snapshot_file":     "data/last_rates.json",
	"storage.daily_open_file":   "data/daily_open.json",
	"storage.history_json_file": "data/history.json",
	"storage.history_csv_file":  "data/history.csv",

	"log.level":      "info",
	"log.error_file": "logs/errors.log",

	"supabase.url":     "",
	"supabase.api_key": "",
	"supabase.table":   "cotizaciones",
	"database.url":     "",
	"sqlite.path":      "",
	"redis.addr":       "",
	"redis.password":   "",
	"redis.db":         0,
	"telegram.token":   "",
	"telegram.chat_id": "",
	"webhook.url":      "",
	"metrics.addr":     ":9090",
}

// Load reads configuration from the YAML file at path (skipped when empty)
// and the environment, then validates it.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	m := c.Market
	if m.OpenHour < 0 || m.OpenHour > 23 || m.CloseHour < 0 || m.CloseHour > 23 {
		errs = append(errs, fmt.Errorf("market hours must be in 0..23, got open=%d close=%d", m.OpenHour, m.CloseHour))
	} else if m.OpenHour >= m.CloseHour {
		errs = append(errs, fmt.Errorf("market open hour %d must be before close hour %d", m.OpenHour, m.CloseHour))
	}
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("market timezone %q: %w", m.Timezone, err))
	}
	c.Market.Location = loc
	c.Market.Holidays = splitList(m.Holidays)

	if c.Monitor.IntervalMinutes <= 0 {
		errs = append(errs, fmt.Errorf("monitor interval must be positive, got %d", c.Monitor.IntervalMinutes))
	}
	th, err := decimal.NewFromString(strings.TrimSpace(c.Monitor.ThresholdRaw))
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("monitor threshold %q: %w", c.Monitor.ThresholdRaw, err))
	case th.IsNegative():
		errs = append(errs, fmt.Errorf("monitor threshold must not be negative, got %s", th))
	}
	c.Monitor.Threshold = th

	if c.Source.TimeoutSeconds <= 0 {
		c.Source.TimeoutSeconds = 10
	}
	if c.Monitor.SinkTimeoutSeconds <= 0 {
		c.Monitor.SinkTimeoutSeconds = 10
	}
	if c.Supabase.URL != "" && c.Supabase.APIKey == "" {
		errs = append(errs, errors.New("supabase url set without api key"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// splitList flattens entries that still carry commas, as happens when a
// list comes from a single environment variable.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
