package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/alanyoungcy/tradejournal/internal/blob/s3"
	"github.com/alanyoungcy/tradejournal/internal/cache/redis"
	"github.com/alanyoungcy/tradejournal/internal/config"
	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/notify"
	"github.com/alanyoungcy/tradejournal/internal/pipeline"
	"github.com/alanyoungcy/tradejournal/internal/platform/yahoo"
	"github.com/alanyoungcy/tradejournal/internal/service"
	"github.com/alanyoungcy/tradejournal/internal/store/postgres"
)

// Dependencies bundles what the modes need. Optional parts are nil when
// their backend is disabled or the mode does not use them.
type Dependencies struct {
	Processor *pipeline.Processor

	Volatility *service.VolatilityService // market data enabled, clean/full
	Publisher  *service.Publisher         // publish/full

	Files    *s3blob.JournalFiles // s3 enabled
	Archiver domain.Archiver      // s3 and postgres enabled
	Audit    domain.AuditStore    // postgres enabled

	Notifier *notify.Notifier
}

func processes(mode string) bool {
	return mode == "clean" || mode == "full"
}

// Wire builds the dependencies for cfg and returns them with a cleanup
// function that releases every opened connection.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	params, err := PipelineParams(cfg.Pipeline)
	if err != nil {
		return fail(err)
	}
	deps := &Dependencies{
		Processor: pipeline.NewProcessor(params, pipeline.RowPolicy(cfg.Pipeline.RowErrors), logger),
	}

	var (
		sinks    []domain.JournalSink
		lock     domain.LockManager
		barCache domain.BarCache
		journal  *postgres.JournalStore
	)

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		journal = postgres.NewJournalStore(pgClient.Pool())
		deps.Audit = postgres.NewAuditStore(pgClient.Pool())
		if cfg.NeedsSinks() {
			sinks = append(sinks, journal)
		}
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		lock = redis.NewLockManager(redisClient)
		if cfg.NeedsSinks() {
			limiter := redis.NewRateLimiter(redisClient)
			sinks = append(sinks, redis.NewRecordStore(redisClient, limiter, cfg.Redis.RecordRatePerSec, logger))
		}
		if cfg.MarketData.CacheBars {
			barCache = redis.NewBarCache(redisClient, cfg.MarketData.CacheTTL.Duration)
		}
	}

	// --- Market data ---
	if cfg.MarketData.Enabled && processes(mode) {
		loc := time.UTC
		if tz := cfg.MarketData.ExchangeTimezone; tz != "" {
			if loc, err = time.LoadLocation(tz); err != nil {
				return fail(fmt.Errorf("wire: exchange timezone: %w", err))
			}
		}
		source := yahoo.NewClient(cfg.MarketData.BaseURL, loc, cfg.MarketData.Offset.Duration)
		deps.Volatility = service.NewVolatilityService(source, barCache, params.ATRWindow, logger)
	}

	if cfg.NeedsSinks() {
		deps.Publisher = service.NewPublisher(sinks, lock, cfg.Redis.LockTTL.Duration, deps.Audit, logger)
	}

	// --- S3 ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		if mode == "archive" {
			if err := s3Client.Health(ctx); err != nil {
				return fail(fmt.Errorf("wire: %w", err))
			}
		}

		logger.Info("s3 connected", slog.String("bucket", s3Client.Bucket()))

		writer := s3blob.NewWriter(s3Client)
		deps.Files = s3blob.NewJournalFiles(writer, s3blob.NewReader(s3Client))
		if journal != nil {
			deps.Archiver = s3blob.NewArchiver(writer, journal, deps.Audit)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender("", cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
