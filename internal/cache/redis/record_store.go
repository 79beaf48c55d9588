package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/redis/go-redis/v9"
)

// recordRateKey is the limiter key shared by every writer of the journal.
const recordRateKey = "journal:records"

// RecordStore implements domain.JournalSink as one document per trade.
// Documents are created one at a time under a shared rate limit.
//
// Key schema:
//
//	journal:trade:{symbol}:{bought} - hash: data (JSON record), created_at
//	journal:trades                  - set of "{symbol}|{bought}" members
type RecordStore struct {
	rdb        *redis.Client
	limiter    domain.RateLimiter
	ratePerSec int
	logger     *slog.Logger
}

// NewRecordStore creates a RecordStore that creates at most ratePerSec
// documents per second.
func NewRecordStore(c *Client, limiter domain.RateLimiter, ratePerSec int, logger *slog.Logger) *RecordStore {
	return &RecordStore{
		rdb:        c.Underlying(),
		limiter:    limiter,
		ratePerSec: ratePerSec,
		logger:     logger.With(slog.String("component", "redis_record_store")),
	}
}

const journalIndexKey = "journal:trades"

func recordKey(k domain.TradeKey) string {
	return "journal:trade:" + k.Symbol + ":" + k.BoughtTime
}

func indexMember(k domain.TradeKey) string {
	return k.Symbol + "|" + k.BoughtTime
}

func parseIndexMember(m string) (domain.TradeKey, bool) {
	sym, bought, ok := strings.Cut(m, "|")
	if !ok || sym == "" || bought == "" {
		return domain.TradeKey{}, false
	}
	return domain.TradeKey{Symbol: sym, BoughtTime: bought}, true
}

// Name implements domain.JournalSink.
func (rs *RecordStore) Name() string { return "redis" }

// ExistingKeys returns every key in the journal index.
func (rs *RecordStore) ExistingKeys(ctx context.Context) (map[domain.TradeKey]struct{}, error) {
	members, err := rs.rdb.SMembers(ctx, journalIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list journal keys: %w", err)
	}
	keys := make(map[domain.TradeKey]struct{}, len(members))
	for _, m := range members {
		k, ok := parseIndexMember(m)
		if !ok {
			rs.logger.Warn("skipping malformed journal index member", slog.String("member", m))
			continue
		}
		keys[k] = struct{}{}
	}
	return keys, nil
}

// Append creates one document per record. A record that fails is logged and
// returned in the failed slice; the rest continue. Cancellation stops the
// run and returns ctx's error.
func (rs *RecordStore) Append(ctx context.Context, records []domain.JournalRecord) ([]domain.JournalRecord, error) {
	var failed []domain.JournalRecord
	for i, rec := range records {
		if err := rs.limiter.Wait(ctx, recordRateKey, rs.ratePerSec, time.Second); err != nil {
			return append(failed, records[i:]...), fmt.Errorf("redis: append records: %w", err)
		}
		if err := rs.put(ctx, rec); err != nil {
			rs.logger.Warn("record not stored",
				slog.String("symbol", rec.Symbol),
				slog.Time("bought_time", rec.BoughtTime),
				slog.String("error", err.Error()),
			)
			failed = append(failed, rec)
		}
	}
	return failed, nil
}

func (rs *RecordStore) put(ctx context.Context, rec domain.JournalRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	k := rec.Key()

	pipe := rs.rdb.TxPipeline()
	pipe.HSet(ctx, recordKey(k), "data", data, "created_at", time.Now().UTC().Format(time.RFC3339))
	pipe.SAdd(ctx, journalIndexKey, indexMember(k))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store record %s: %w", recordKey(k), err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.JournalSink = (*RecordStore)(nil)
