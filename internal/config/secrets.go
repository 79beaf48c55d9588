package config

import "github.com/shopspring/decimal"

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging or printing the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices and maps so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}
	if cfg.Pipeline.Multipliers != nil {
		out.Pipeline.Multipliers = make([]MultiplierConfig, len(cfg.Pipeline.Multipliers))
		copy(out.Pipeline.Multipliers, cfg.Pipeline.Multipliers)
	}
	if cfg.Pipeline.Fees != nil {
		out.Pipeline.Fees = make(map[string]decimal.Decimal, len(cfg.Pipeline.Fees))
		for k, v := range cfg.Pipeline.Fees {
			out.Pipeline.Fees[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
