package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "rest", cfg.DataSource.Provider)
	assert.Equal(t, 100, cfg.Screening.LookbackDays)
	assert.Equal(t, []string{"KOSPI", "KOSDAQ"}, cfg.Screening.Markets)
	assert.Equal(t, "shared", cfg.Screening.SnapshotMode)
	assert.Equal(t, map[string]string{"KOSPI": ".KS", "KOSDAQ": ".KQ"}, cfg.DataSource.YahooSuffixes)
	assert.Equal(t, 20, cfg.MABreakout.Window)
	assert.Equal(t, 300e9, cfg.MACapFloor())
	assert.Equal(t, 14, cfg.RSICap.Period)
	assert.Equal(t, 30.0, cfg.RSICap.Threshold)
	assert.Equal(t, 500e9, cfg.RSICapFloor())
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
data_source:
  provider: yahoo
  base_url: https://data.example.com
screening:
  workers: 8
  task_timeout: 45s
  markets: [KOSPI]
  snapshot_mode: per_task
rsi_cap:
  threshold: 25
  cap_floor: 1000000000000
telegram:
  bot_token: file-token
  chat_id: "100"
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("SCREENER_WORKERS", "16")
	t.Setenv("SCREENER_MARKETS", "KOSPI,KOSDAQ,KONEX")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, 16, cfg.Screening.Workers)
	assert.Equal(t, 45*time.Second, cfg.Screening.TaskTimeout)
	assert.Equal(t, []string{"KOSPI", "KOSDAQ", "KONEX"}, cfg.Screening.Markets)
	assert.Equal(t, "per_task", cfg.Screening.SnapshotMode)
	assert.Equal(t, 25.0, cfg.RSICap.Threshold)
	assert.Equal(t, 1e12, cfg.RSICapFloor())
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoadKeepsZeroCapFloors(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
data_source:
  base_url: https://data.example.com
ma_breakout:
  cap_floor: 0
rsi_cap:
  cap_floor: 0
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.NotNil(t, cfg.MABreakout.CapFloor)
	assert.Zero(t, cfg.MACapFloor())
	assert.Zero(t, cfg.RSICapFloor())
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		cfg, err := Load(writeConfig(t, "data_source:\n  base_url: https://data.example.com\n"))
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
		return cfg
	}

	cases := map[string]func(*Config){
		"missing base url":  func(c *Config) { c.DataSource.BaseURL = "" },
		"bad provider":      func(c *Config) { c.DataSource.Provider = "bloomberg" },
		"bad snapshot mode": func(c *Config) { c.Screening.SnapshotMode = "hourly" },
		"threshold too big": func(c *Config) { c.RSICap.Threshold = 120 },
		"bad scan mode":     func(c *Config) { c.MABreakout.ScanMode = "weekly" },
		"half telegram":     func(c *Config) { c.Telegram.BotToken = "token" },
		"bad format":        func(c *Config) { c.Output.Format = "json" },
		"empty market":      func(c *Config) { c.Screening.Markets = []string{""} },
		"bad suffix":        func(c *Config) { c.DataSource.YahooSuffixes = map[string]string{"KOSDAQ": "KQ"} },
		"negative floor":    func(c *Config) { v := -1.0; c.RSICap.CapFloor = &v },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid(t)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("demo needs no base url", func(t *testing.T) {
		cfg := valid(t)
		cfg.DataSource.Provider = "demo"
		cfg.DataSource.BaseURL = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "screening: [unclosed"))
	assert.Error(t, err)
}
