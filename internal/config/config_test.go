package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.LogLevel = "verbose"
	cfg.Pipeline.RowErrors = "skip"
	cfg.Pipeline.MarketOpen = "5:30pm"
	cfg.Pipeline.ATRWindow = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "unknown log_level", "row_errors", "market_open", "atr_window"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error:\n%v", want, err)
		}
	}
}

func TestValidateModeRequirements(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "publish without sinks", mutate: func(c *Config) { c.Mode = "publish" }, wantErr: "journal sink"},
		{name: "publish with redis", mutate: func(c *Config) { c.Mode = "publish"; c.Redis.Enabled = true }},
		{name: "full with postgres", mutate: func(c *Config) { c.Mode = "full"; c.Postgres.Enabled = true }},
		{name: "archive without s3", mutate: func(c *Config) { c.Mode = "archive"; c.Postgres.Enabled = true }, wantErr: "archive"},
		{name: "archive complete", mutate: func(c *Config) {
			c.Mode = "archive"
			c.Postgres.Enabled = true
			c.S3.Enabled = true
		}},
		{name: "bar cache without redis", mutate: func(c *Config) { c.MarketData.CacheBars = true }, wantErr: "cache_bars"},
		{name: "redis rate zero", mutate: func(c *Config) { c.Redis.Enabled = true; c.Redis.RecordRatePerSec = 0 }, wantErr: "record_rate_per_sec"},
		{name: "negative fee", mutate: func(c *Config) { c.Pipeline.Fees["ES"] = decimal.NewFromInt(-1) }, wantErr: "fee for ES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMarketOpenOffset(t *testing.T) {
	p := Defaults().Pipeline
	got, err := p.MarketOpenOffset()
	if err != nil {
		t.Fatal(err)
	}
	if want := 17*time.Hour + 30*time.Minute; got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "full"

[pipeline]
merge_window = "3s"
default_multiplier = 1

[pipeline.fees]
ES = "2.5"
MNQ = 0.8

[[pipeline.multipliers]]
prefix = "ES"
value = "50"

[postgres]
enabled = true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TJ_LOG_LEVEL", "debug")
	t.Setenv("TJ_POSTGRES_PASSWORD", "hunter2")
	t.Setenv("TJ_REDIS_RECORD_RATE_PER_SEC", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "full" || cfg.LogLevel != "debug" {
		t.Errorf("expected full/debug, got %s/%s", cfg.Mode, cfg.LogLevel)
	}
	if cfg.Pipeline.MergeWindow.Duration != 3*time.Second {
		t.Errorf("expected merge_window 3s, got %v", cfg.Pipeline.MergeWindow.Duration)
	}
	if !cfg.Pipeline.Fees["ES"].Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected ES fee 2.5, got %s", cfg.Pipeline.Fees["ES"])
	}
	if !cfg.Pipeline.Fees["MNQ"].Equal(decimal.RequireFromString("0.8")) {
		t.Errorf("expected MNQ fee 0.8, got %s", cfg.Pipeline.Fees["MNQ"])
	}
	if !cfg.Pipeline.Fees["NQ"].Equal(decimal.RequireFromString("2.365")) {
		t.Errorf("expected default NQ fee to survive, got %s", cfg.Pipeline.Fees["NQ"])
	}
	if len(cfg.Pipeline.Multipliers) != 1 || cfg.Pipeline.Multipliers[0].Prefix != "ES" {
		t.Errorf("expected file multipliers to replace defaults, got %+v", cfg.Pipeline.Multipliers)
	}
	if cfg.Postgres.Password != "hunter2" || cfg.Redis.RecordRatePerSec != 5 {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Postgres, cfg.Redis)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected loaded config to validate, got %v", err)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "secret"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Notify.TelegramToken = "tok"

	out := RedactedConfig(&cfg)
	if out.Postgres.Password != redacted || out.S3.SecretKey != redacted || out.Notify.TelegramToken != redacted {
		t.Errorf("expected secrets redacted, got %+v", out)
	}
	if out.S3.AccessKey != "" {
		t.Errorf("expected empty secret to stay empty")
	}
	if cfg.Postgres.Password != "secret" {
		t.Errorf("original config was modified")
	}

	out.Pipeline.Fees["NQ"] = decimal.Zero
	if cfg.Pipeline.Fees["NQ"].IsZero() {
		t.Errorf("fee map shared with original")
	}
}
