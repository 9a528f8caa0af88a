package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"TrendAdvisor/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr" envconfig:"SERVER_ADDR"`
	} `yaml:"server"`
	Strategy struct {
		Path string `yaml:"path" envconfig:"STRATEGY_PATH"`
	} `yaml:"strategy"`
	Portfolio struct {
		Path string `yaml:"path" envconfig:"PORTFOLIO_PATH"`
	} `yaml:"portfolio"`
	DataSource struct {
		Provider       string `yaml:"provider" envconfig:"DATA_PROVIDER"`
		BaseURL        string `yaml:"base_url" envconfig:"DATA_BASE_URL"`
		APIKey         string `yaml:"api_key" envconfig:"DATA_API_KEY"`
		ExchangeSuffix string `yaml:"exchange_suffix" envconfig:"DATA_EXCHANGE_SUFFIX"`
		HistoryDays    int    `yaml:"history_days" envconfig:"DATA_HISTORY_DAYS"`
	} `yaml:"data_source"`
	Broker struct {
		BaseURL     string `yaml:"base_url" envconfig:"BROKER_BASE_URL"`
		Exchange    string `yaml:"exchange" envconfig:"BROKER_EXCHANGE"`
		SessionFile string `yaml:"session_file" envconfig:"BROKER_SESSION_FILE"`
		AccessToken string `yaml:"access_token" envconfig:"BROKER_ACCESS_TOKEN"`
	} `yaml:"broker"`
	Scan struct {
		Workers       int           `yaml:"workers" envconfig:"SCAN_WORKERS"`
		Deadline      time.Duration `yaml:"deadline" envconfig:"SCAN_DEADLINE"`
		RetryBackoff  time.Duration `yaml:"retry_backoff" envconfig:"SCAN_RETRY_BACKOFF"`
		CacheTTL      time.Duration `yaml:"cache_ttl" envconfig:"SCAN_CACHE_TTL"`
		CloseBandPct  float64       `yaml:"close_band_pct" envconfig:"SCAN_CLOSE_BAND_PCT"`
		MediumBandPct float64       `yaml:"medium_band_pct" envconfig:"SCAN_MEDIUM_BAND_PCT"`
		MaxBand       string        `yaml:"max_band" envconfig:"SCAN_MAX_BAND"`
		UptrendOnly   bool          `yaml:"uptrend_only" envconfig:"SCAN_UPTREND_ONLY"`
		TopK          int           `yaml:"top_k" envconfig:"SCAN_TOP_K"`
		Reference     struct {
			Type   string `yaml:"type" envconfig:"SCAN_REFERENCE_TYPE"`
			Period int    `yaml:"period" envconfig:"SCAN_REFERENCE_PERIOD"`
			Source string `yaml:"source" envconfig:"SCAN_REFERENCE_SOURCE"`
		} `yaml:"reference"`
		Universe []string `yaml:"universe" envconfig:"SCAN_UNIVERSE"`
	} `yaml:"scan"`
	Schedule struct {
		SyncCron   string `yaml:"sync_cron" envconfig:"CRON_SYNC"`
		ScanCron   string `yaml:"scan_cron" envconfig:"CRON_SCAN"`
		ReportCron string `yaml:"report_cron" envconfig:"CRON_REPORT"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token" envconfig:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"TELEGRAM_CHAT_ID"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Strategy.Path == "" {
		c.Strategy.Path = "configs/strategy.json"
	}
	if c.Portfolio.Path == "" {
		c.Portfolio.Path = "data/positions.json"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.ExchangeSuffix == "" && c.DataSource.Provider == "yahoo" {
		c.DataSource.ExchangeSuffix = ".NS"
	}
	if c.DataSource.HistoryDays == 0 {
		c.DataSource.HistoryDays = 400
	}
	if c.Broker.Exchange == "" {
		c.Broker.Exchange = "NSE"
	}
	if c.Broker.SessionFile == "" {
		c.Broker.SessionFile = ".broker_session.json"
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = 5
	}
	if c.Scan.Deadline == 0 {
		c.Scan.Deadline = 20 * time.Second
	}
	if c.Scan.RetryBackoff == 0 {
		c.Scan.RetryBackoff = 500 * time.Millisecond
	}
	if c.Scan.TopK == 0 {
		c.Scan.TopK = 10
	}
	if c.Scan.CacheTTL == 0 {
		c.Scan.CacheTTL = 5 * time.Minute
	}
	if c.Scan.CloseBandPct == 0 {
		c.Scan.CloseBandPct = 2
	}
	if c.Scan.MediumBandPct == 0 {
		c.Scan.MediumBandPct = 5
	}
	if c.Scan.Reference.Type == "" {
		c.Scan.Reference.Type = string(model.IndicatorEMA)
	}
	if c.Scan.Reference.Period == 0 {
		c.Scan.Reference.Period = 200
	}
	if c.Scan.Reference.Source == "" {
		c.Scan.Reference.Source = string(model.SourceClose)
	}
	if c.Schedule.SyncCron == "" {
		c.Schedule.SyncCron = "0 * * * * *"
	}
	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "0 30 9-15 * * 1-5"
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 45 15 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/trend_advisor.db"
	}
}

// ReferenceSpec returns the scanner's reference indicator.
func (c *Config) ReferenceSpec() model.IndicatorSpec {
	return model.IndicatorSpec{
		Type:   model.IndicatorType(c.Scan.Reference.Type),
		Period: c.Scan.Reference.Period,
		Source: model.PriceSource(c.Scan.Reference.Source),
	}.Normalize()
}

// TelegramEnabled reports whether both telegram credentials are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// BrokerEnabled reports whether a broker endpoint is configured.
func (c *Config) BrokerEnabled() bool {
	return c.Broker.BaseURL != ""
}

// Validate checks that all fields are consistent.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "broker":
		if !c.BrokerEnabled() {
			return fmt.Errorf("data_source.provider broker requires broker.base_url")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.DataSource.HistoryDays <= 0 {
		return fmt.Errorf("data_source.history_days must be positive")
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("scan.workers must be positive")
	}
	if c.Scan.Deadline <= 0 {
		return fmt.Errorf("scan.deadline must be positive")
	}
	if c.Scan.CloseBandPct <= 0 || c.Scan.MediumBandPct <= c.Scan.CloseBandPct {
		return fmt.Errorf("scan band cutoffs must satisfy 0 < close_band_pct < medium_band_pct")
	}
	if _, err := model.ParseBand(strings.ToLower(c.Scan.MaxBand)); err != nil {
		return fmt.Errorf("scan.max_band: %w", err)
	}
	if c.Scan.TopK < 0 {
		return fmt.Errorf("scan.top_k must not be negative")
	}
	ref := c.ReferenceSpec()
	if !ref.Type.Valid() || ref.Period <= 0 {
		return fmt.Errorf("scan.reference %s is not a valid indicator", ref.Key())
	}
	if ref.Period >= c.DataSource.HistoryDays {
		return fmt.Errorf("data_source.history_days (%d) must exceed scan.reference.period (%d)", c.DataSource.HistoryDays, ref.Period)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
