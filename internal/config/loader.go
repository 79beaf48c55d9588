package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TJ_* environment variable overrides, and returns
// the final Config. An empty path skips the file. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TJ_* environment variables and overwrites
// the corresponding Config fields when a variable is set (i.e. not empty).
// This lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Files ──
	setStr(&cfg.Files.DataDir, "TJ_FILES_DATA_DIR")
	setStr(&cfg.Files.InputName, "TJ_FILES_INPUT_NAME")
	setStr(&cfg.Files.OutputPrefix, "TJ_FILES_OUTPUT_PREFIX")
	setStr(&cfg.Files.FailedName, "TJ_FILES_FAILED_NAME")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.MergeWindow, "TJ_PIPELINE_MERGE_WINDOW")
	setInt(&cfg.Pipeline.ATRWindow, "TJ_PIPELINE_ATR_WINDOW")
	setStr(&cfg.Pipeline.MarketOpen, "TJ_PIPELINE_MARKET_OPEN")
	setStr(&cfg.Pipeline.RowErrors, "TJ_PIPELINE_ROW_ERRORS")
	setBool(&cfg.Pipeline.Lenient, "TJ_PIPELINE_LENIENT")

	// ── Market data ──
	setBool(&cfg.MarketData.Enabled, "TJ_MARKET_DATA_ENABLED")
	setStr(&cfg.MarketData.BaseURL, "TJ_MARKET_DATA_BASE_URL")
	setStr(&cfg.MarketData.Symbol, "TJ_MARKET_DATA_SYMBOL")
	setStr(&cfg.MarketData.Range, "TJ_MARKET_DATA_RANGE")
	setDuration(&cfg.MarketData.Offset, "TJ_MARKET_DATA_OFFSET")
	setStr(&cfg.MarketData.ExchangeTimezone, "TJ_MARKET_DATA_EXCHANGE_TIMEZONE")
	setBool(&cfg.MarketData.CacheBars, "TJ_MARKET_DATA_CACHE_BARS")
	setDuration(&cfg.MarketData.CacheTTL, "TJ_MARKET_DATA_CACHE_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "TJ_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // conventional name; TJ_POSTGRES_DSN wins
	setStr(&cfg.Postgres.DSN, "TJ_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TJ_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TJ_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TJ_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TJ_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TJ_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TJ_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TJ_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TJ_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TJ_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "TJ_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TJ_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TJ_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TJ_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TJ_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TJ_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TJ_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.RecordRatePerSec, "TJ_REDIS_RECORD_RATE_PER_SEC")
	setDuration(&cfg.Redis.LockTTL, "TJ_REDIS_LOCK_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "TJ_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "TJ_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TJ_S3_REGION")
	setStr(&cfg.S3.Bucket, "TJ_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TJ_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TJ_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TJ_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TJ_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setInt(&cfg.Archive.RetentionDays, "TJ_ARCHIVE_RETENTION_DAYS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TJ_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TJ_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TJ_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TJ_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "TJ_MODE")
	setStr(&cfg.LogLevel, "TJ_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
