package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider  string `yaml:"provider" validate:"oneof=rest yahoo demo"`
		BaseURL   string `yaml:"base_url" validate:"required_unless=Provider demo"`
		APIKey    string `yaml:"api_key"`
		RateLimit int    `yaml:"rate_limit" validate:"gte=0"`
		// YahooSuffixes maps each market to its Yahoo symbol suffix.
		YahooSuffixes map[string]string `yaml:"yahoo_suffixes" validate:"dive,keys,required,endkeys,startswith=."`
	} `yaml:"data_source"`
	Screening struct {
		Workers          int           `yaml:"workers" validate:"gte=0"`
		TaskTimeout      time.Duration `yaml:"task_timeout" validate:"gte=0"`
		LookbackDays     int           `yaml:"lookback_days" validate:"gt=0"`
		Markets          []string      `yaml:"markets" validate:"min=1,dive,required"`
		SnapshotMode     string        `yaml:"snapshot_mode" validate:"oneof=shared per_task"`
		Currency         string        `yaml:"currency" validate:"required"`
		BusinessDayProbe int           `yaml:"business_day_probe" validate:"gt=0"`
	} `yaml:"screening"`
	MABreakout struct {
		Window             int      `yaml:"window" validate:"gte=2"`
		ScanMode           string   `yaml:"scan_mode" validate:"oneof=historical latest"`
		AlertScanMode      string   `yaml:"alert_scan_mode" validate:"oneof=historical latest"`
		RequireRisingClose bool     `yaml:"require_rising_close"`
		CapFloor           *float64 `yaml:"cap_floor" validate:"omitnil,gte=0"`
	} `yaml:"ma_breakout"`
	RSICap struct {
		Period    int      `yaml:"period" validate:"gte=2"`
		Threshold float64  `yaml:"threshold" validate:"gt=0,lt=100"`
		Direction string   `yaml:"direction" validate:"oneof=below above"`
		CapFloor  *float64 `yaml:"cap_floor" validate:"omitnil,gte=0"`
	} `yaml:"rsi_cap"`
	Output struct {
		Dir    string `yaml:"dir" validate:"required"`
		Format string `yaml:"format" validate:"oneof=csv xlsx"`
	} `yaml:"output"`
	Schedule struct {
		MACron  string `yaml:"ma_cron" validate:"required"`
		RSICron string `yaml:"rsi_cron" validate:"required"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token" validate:"required_with=ChatID"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
		MaxRows  int    `yaml:"max_rows" validate:"gte=0"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Logging struct {
		Level string `yaml:"level" validate:"oneof=debug info warn error"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// envOverrides lists the environment variables that take precedence over the file.
type envOverrides struct {
	TelegramBotToken string   `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string   `envconfig:"TELEGRAM_CHAT_ID"`
	DataBaseURL      string   `envconfig:"SCREENER_BASE_URL"`
	DataAPIKey       string   `envconfig:"SCREENER_API_KEY"`
	Provider         string   `envconfig:"SCREENER_PROVIDER"`
	Workers          *int     `envconfig:"SCREENER_WORKERS"`
	SnapshotMode     string   `envconfig:"SCREENER_SNAPSHOT_MODE"`
	Markets          []string `envconfig:"SCREENER_MARKETS"`
	OutputDir        string   `envconfig:"SCREENER_OUTPUT_DIR"`
	OutputFormat     string   `envconfig:"SCREENER_OUTPUT_FORMAT"`
	CronMA           string   `envconfig:"CRON_MA"`
	CronRSI          string   `envconfig:"CRON_RSI"`
	SQLitePath       string   `envconfig:"SQLITE_PATH"`
	MetricsAddr      string   `envconfig:"METRICS_ADDR"`
	LogLevel         string   `envconfig:"LOG_LEVEL"`
	Proxy            string   `envconfig:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.applyEnv(&env)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(env *envOverrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Telegram.BotToken, env.TelegramBotToken)
	set(&c.Telegram.ChatID, env.TelegramChatID)
	set(&c.DataSource.BaseURL, env.DataBaseURL)
	set(&c.DataSource.APIKey, env.DataAPIKey)
	set(&c.DataSource.Provider, env.Provider)
	set(&c.Screening.SnapshotMode, env.SnapshotMode)
	set(&c.Output.Dir, env.OutputDir)
	set(&c.Output.Format, env.OutputFormat)
	set(&c.Schedule.MACron, env.CronMA)
	set(&c.Schedule.RSICron, env.CronRSI)
	set(&c.Database.SQLitePath, env.SQLitePath)
	set(&c.Metrics.Addr, env.MetricsAddr)
	set(&c.Logging.Level, env.LogLevel)
	set(&c.Proxy, env.Proxy)
	if env.Workers != nil {
		c.Screening.Workers = *env.Workers
	}
	if len(env.Markets) > 0 {
		c.Screening.Markets = env.Markets
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "rest"
	}
	if c.DataSource.RateLimit == 0 {
		c.DataSource.RateLimit = 20
	}
	if len(c.DataSource.YahooSuffixes) == 0 {
		c.DataSource.YahooSuffixes = map[string]string{"KOSPI": ".KS", "KOSDAQ": ".KQ"}
	}
	if c.Screening.LookbackDays == 0 {
		c.Screening.LookbackDays = 100
	}
	if len(c.Screening.Markets) == 0 {
		c.Screening.Markets = []string{"KOSPI", "KOSDAQ"}
	}
	if c.Screening.SnapshotMode == "" {
		c.Screening.SnapshotMode = "shared"
	}
	if c.Screening.Currency == "" {
		c.Screening.Currency = "KRW"
	}
	if c.Screening.BusinessDayProbe == 0 {
		c.Screening.BusinessDayProbe = 10
	}
	if c.MABreakout.Window == 0 {
		c.MABreakout.Window = 20
	}
	if c.MABreakout.ScanMode == "" {
		c.MABreakout.ScanMode = "historical"
	}
	if c.MABreakout.AlertScanMode == "" {
		c.MABreakout.AlertScanMode = "latest"
	}
	if c.MABreakout.CapFloor == nil {
		c.MABreakout.CapFloor = floatPtr(300e9)
	}
	if c.RSICap.Period == 0 {
		c.RSICap.Period = 14
	}
	if c.RSICap.Threshold == 0 {
		c.RSICap.Threshold = 30
	}
	if c.RSICap.Direction == "" {
		c.RSICap.Direction = "below"
	}
	if c.RSICap.CapFloor == nil {
		c.RSICap.CapFloor = floatPtr(500e9)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Output.Format == "" {
		c.Output.Format = "csv"
	}
	if c.Schedule.MACron == "" {
		c.Schedule.MACron = "0 40 15 * * 1-5"
	}
	if c.Schedule.RSICron == "" {
		c.Schedule.RSICron = "0 0 16 * * 1-5"
	}
	if c.Telegram.MaxRows == 0 {
		c.Telegram.MaxRows = 30
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/market_screener.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func floatPtr(v float64) *float64 { return &v }

// MACapFloor returns the breakout screen's capitalization floor. Zero disables the filter.
func (c *Config) MACapFloor() float64 {
	if c.MABreakout.CapFloor == nil {
		return 0
	}
	return *c.MABreakout.CapFloor
}

// RSICapFloor returns the capitalization floor of the RSI screen.
func (c *Config) RSICapFloor() float64 {
	if c.RSICap.CapFloor == nil {
		return 0
	}
	return *c.RSICap.CapFloor
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
