// Package config defines the top-level configuration for the trade journal
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TJ_* environment variables.
type Config struct {
	Files      FilesConfig      `toml:"files"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	MarketData MarketDataConfig `toml:"market_data"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Archive    ArchiveConfig    `toml:"archive"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// FilesConfig locates the export and the files the run writes.
type FilesConfig struct {
	DataDir      string `toml:"data_dir"`
	InputName    string `toml:"input_name"`
	OutputPrefix string `toml:"output_prefix"`
	FailedName   string `toml:"failed_name"`
}

// PipelineConfig holds the fee and multiplier tables and the thresholds of
// the cleaning pipeline. Decimal values may be written as TOML strings to
// keep them exact.
type PipelineConfig struct {
	MergeWindow       duration                   `toml:"merge_window"`
	ATRWindow         int                        `toml:"atr_window"`
	ATRRound          int                        `toml:"atr_round"`
	PnLRound          int                        `toml:"pnl_round"`
	MarketOpen        string                     `toml:"market_open"` // "15:04:05"
	RowErrors         string                     `toml:"row_errors"`  // exclude | abort
	Lenient           bool                       `toml:"lenient"`
	Fees              map[string]decimal.Decimal `toml:"fees"`
	Multipliers       []MultiplierConfig         `toml:"multipliers"`
	DefaultMultiplier decimal.Decimal            `toml:"default_multiplier"`
}

// MultiplierConfig maps a symbol prefix to its point value. Entries are
// matched in file order.
type MultiplierConfig struct {
	Prefix string          `toml:"prefix"`
	Value  decimal.Decimal `toml:"value"`
}

// MarketOpenOffset parses MarketOpen as an offset from midnight.
func (p PipelineConfig) MarketOpenOffset() (time.Duration, error) {
	t, err := time.Parse("15:04:05", p.MarketOpen)
	if err != nil {
		return 0, fmt.Errorf("market_open %q: %w", p.MarketOpen, err)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// MarketDataConfig holds the bar source used for volatility context.
type MarketDataConfig struct {
	Enabled          bool     `toml:"enabled"`
	BaseURL          string   `toml:"base_url"`
	Symbol           string   `toml:"symbol"`
	Range            string   `toml:"range"`
	FineInterval     string   `toml:"fine_interval"`
	CoarseInterval   string   `toml:"coarse_interval"`
	Offset           duration `toml:"offset"`
	ExchangeTimezone string   `toml:"exchange_timezone"`
	CacheBars        bool     `toml:"cache_bars"`
	CacheTTL         duration `toml:"cache_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters for the tabular
// journal.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis backs the record
// journal, the bar cache and the publish lock.
type RedisConfig struct {
	Enabled          bool     `toml:"enabled"`
	Addr             string   `toml:"addr"`
	Password         string   `toml:"password"`
	DB               int      `toml:"db"`
	PoolSize         int      `toml:"pool_size"`
	MaxRetries       int      `toml:"max_retries"`
	TLSEnabled       bool     `toml:"tls_enabled"`
	RecordRatePerSec int      `toml:"record_rate_per_sec"`
	LockTTL          duration `toml:"lock_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls cold-storage export of old journal rows.
type ArchiveConfig struct {
	RetentionDays int `toml:"retention_days"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5s", "8h").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s" or "24h".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Files: FilesConfig{
			DataDir:      "Trade-Data",
			InputName:    "trades.csv",
			OutputPrefix: "Cleaned_Trades",
			FailedName:   "failed_trades.csv",
		},
		Pipeline: PipelineConfig{
			MergeWindow: duration{5 * time.Second},
			ATRWindow:   14,
			ATRRound:    1,
			PnLRound:    2,
			MarketOpen:  "17:30:00",
			RowErrors:   "exclude",
			Fees: map[string]decimal.Decimal{
				"NQ":  decimal.RequireFromString("2.365"),
				"MNQ": decimal.RequireFromString("0.785"),
				"MYM": decimal.RequireFromString("1.1"),
			},
			Multipliers: []MultiplierConfig{
				{Prefix: "NQ", Value: decimal.NewFromInt(20)},
				{Prefix: "MNQ", Value: decimal.NewFromInt(2)},
				{Prefix: "MYM", Value: decimal.RequireFromString("0.5")},
			},
			DefaultMultiplier: decimal.NewFromInt(1),
		},
		MarketData: MarketDataConfig{
			Enabled:          true,
			BaseURL:          "https://query1.finance.yahoo.com",
			Symbol:           "MNQ=F",
			Range:            "7d",
			FineInterval:     "1m",
			CoarseInterval:   "5m",
			Offset:           duration{8 * time.Hour},
			ExchangeTimezone: "America/New_York",
			CacheBars:        false,
			CacheTTL:         duration{10 * time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:             "localhost:6379",
			PoolSize:         10,
			MaxRetries:       3,
			RecordRatePerSec: 2,
			LockTTL:          duration{10 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "tradejournal",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			RetentionDays: 180,
		},
		Notify: NotifyConfig{
			Events: []string{"run_complete", "run_failed"},
		},
		Mode:     "clean",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"clean":   true,
	"publish": true,
	"full":    true,
	"archive": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// NeedsSinks reports whether the mode publishes to the journal stores.
func (c *Config) NeedsSinks() bool {
	m := strings.ToLower(c.Mode)
	return m == "publish" || m == "full"
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: clean, publish, full, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Files
	if c.Files.DataDir == "" {
		errs = append(errs, "files: data_dir must not be empty")
	}
	if c.Files.InputName == "" {
		errs = append(errs, "files: input_name must not be empty")
	}
	if c.Files.OutputPrefix == "" {
		errs = append(errs, "files: output_prefix must not be empty")
	}
	if c.Files.FailedName == "" {
		errs = append(errs, "files: failed_name must not be empty")
	}

	errs = append(errs, c.Pipeline.validate()...)

	// Market data
	if c.MarketData.Enabled {
		if c.MarketData.BaseURL == "" || c.MarketData.Symbol == "" || c.MarketData.Range == "" {
			errs = append(errs, "market_data: base_url, symbol and range must be set when enabled")
		}
		if c.MarketData.FineInterval == "" || c.MarketData.CoarseInterval == "" {
			errs = append(errs, "market_data: fine_interval and coarse_interval must be set when enabled")
		}
		if c.MarketData.ExchangeTimezone != "" {
			if _, err := time.LoadLocation(c.MarketData.ExchangeTimezone); err != nil {
				errs = append(errs, fmt.Sprintf("market_data: unknown exchange_timezone %q", c.MarketData.ExchangeTimezone))
			}
		}
		if c.MarketData.CacheBars {
			if !c.Redis.Enabled {
				errs = append(errs, "market_data: cache_bars requires redis.enabled")
			}
			if c.MarketData.CacheTTL.Duration <= 0 {
				errs = append(errs, "market_data: cache_ttl must be > 0 when cache_bars is set")
			}
		}
	}

	if c.NeedsSinks() && !c.Postgres.Enabled && !c.Redis.Enabled {
		errs = append(errs, "mode "+c.Mode+" needs at least one journal sink (postgres.enabled or redis.enabled)")
	}
	if mode == "archive" {
		if !c.Postgres.Enabled || !c.S3.Enabled {
			errs = append(errs, "archive: mode archive requires postgres.enabled and s3.enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if c.Postgres.DSN == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.RecordRatePerSec < 1 {
			errs = append(errs, "redis: record_rate_per_sec must be >= 1")
		}
		if c.Redis.LockTTL.Duration <= 0 {
			errs = append(errs, "redis: lock_ttl must be > 0")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (p PipelineConfig) validate() []string {
	var errs []string
	if p.MergeWindow.Duration < 0 {
		errs = append(errs, "pipeline: merge_window must be >= 0")
	}
	if p.ATRWindow < 1 {
		errs = append(errs, "pipeline: atr_window must be >= 1")
	}
	if p.ATRRound < 0 || p.PnLRound < 0 {
		errs = append(errs, "pipeline: atr_round and pnl_round must be >= 0")
	}
	if _, err := p.MarketOpenOffset(); err != nil {
		errs = append(errs, "pipeline: "+err.Error())
	}
	if p.RowErrors != "exclude" && p.RowErrors != "abort" {
		errs = append(errs, fmt.Sprintf("pipeline: unknown row_errors %q (valid: exclude, abort)", p.RowErrors))
	}
	for sym, fee := range p.Fees {
		if fee.IsNegative() {
			errs = append(errs, fmt.Sprintf("pipeline: fee for %s must be >= 0", sym))
		}
	}
	for i, m := range p.Multipliers {
		if m.Prefix == "" || !m.Value.IsPositive() {
			errs = append(errs, fmt.Sprintf("pipeline: multipliers[%d] needs a prefix and a positive value", i))
		}
	}
	if !p.DefaultMultiplier.IsPositive() {
		errs = append(errs, "pipeline: default_multiplier must be > 0")
	}
	return errs
}
