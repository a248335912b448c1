package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Monitor.Interval())
	assert.Equal(t, "0.5", cfg.Monitor.Threshold.String())
	assert.Equal(t, 10, cfg.Market.OpenHour)
	assert.Equal(t, 17, cfg.Market.CloseHour)
	assert.Equal(t, "America/Argentina/Buenos_Aires", cfg.Market.Location.String())
	assert.Equal(t, "https://dolarapi.com/v1/dolares", cfg.Source.URL)
	assert.Equal(t, 10*time.Second, cfg.Source.Timeout())
	assert.Equal(t, "cotizaciones", cfg.Supabase.Table)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.False(t, cfg.Supabase.Enabled())
	assert.False(t, cfg.Telegram.Enabled())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("MONITOR_INTERVAL_MINUTES", "1")
	t.Setenv("MONITOR_THRESHOLD", "0.00001")
	t.Setenv("MARKET_OPEN_HOUR", "11")
	t.Setenv("MARKET_CLOSE_HOUR", "18")
	t.Setenv("MARKET_TIMEZONE", "UTC")
	t.Setenv("MARKET_WEEKDAYS_ONLY", "true")
	t.Setenv("MARKET_HOLIDAYS", "2026-10-12, 2026-11-20")
	t.Setenv("SUPABASE_URL", "https://x.supabase.co")
	t.Setenv("SUPABASE_API_KEY", "k")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100")
	t.Setenv("STORAGE_HISTORY_CSV_FILE", "/tmp/h.csv")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Monitor.Interval())
	assert.Equal(t, "0.00001", cfg.Monitor.Threshold.String())
	assert.Equal(t, 11, cfg.Market.OpenHour)
	assert.Equal(t, 18, cfg.Market.CloseHour)
	assert.True(t, cfg.Market.WeekdaysOnly)
	assert.Equal(t, []string{"2026-10-12", "2026-11-20"}, cfg.Market.Holidays)
	assert.True(t, cfg.Supabase.Enabled())
	assert.True(t, cfg.Telegram.Enabled())
	assert.Equal(t, "/tmp/h.csv", cfg.Storage.HistoryCSVFile)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dolarwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
monitor:
  interval_minutes: 2
  threshold: "1.25"
market:
  open_hour: 9
  close_hour: 16
  holidays: ["2026-12-25"]
sqlite:
  path: data/ledger.db
redis:
  addr: localhost:6379
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Monitor.Interval())
	assert.Equal(t, "1.25", cfg.Monitor.Threshold.String())
	assert.Equal(t, 9, cfg.Market.OpenHour)
	assert.Equal(t, []string{"2026-12-25"}, cfg.Market.Holidays)
	assert.Equal(t, "data/ledger.db", cfg.SQLite.Path)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	// Environment wins over the file.
	t.Setenv("MARKET_OPEN_HOUR", "8")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Market.OpenHour)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"open after close":   {"MARKET_OPEN_HOUR": "18"},
		"hour out of range":  {"MARKET_CLOSE_HOUR": "24"},
		"bad timezone":       {"MARKET_TIMEZONE": "Mars/Olympus"},
		"zero interval":      {"MONITOR_INTERVAL_MINUTES": "0"},
		"bad threshold":      {"MONITOR_THRESHOLD": "medio"},
		"negative threshold": {"MONITOR_THRESHOLD": "-1"},
		"supabase no key":    {"SUPABASE_URL": "https://x.supabase.co"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
