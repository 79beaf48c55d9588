package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// publishLockKey serialises publish runs across processes.
const publishLockKey = "publish"

// SinkResult is the outcome of publishing to one sink.
type SinkResult struct {
	Name      string
	Existing  int // records skipped because the sink already holds their key
	Published int
	Failed    []domain.JournalRecord
	Err       error
}

// PublishResult aggregates every sink.
type PublishResult struct {
	Sinks []SinkResult
	// Failed holds each record that at least one sink could not store, in
	// input order and without repeats.
	Failed []domain.JournalRecord
}

// Published returns sink name -> records written.
func (r *PublishResult) Published() map[string]int {
	out := make(map[string]int, len(r.Sinks))
	for _, s := range r.Sinks {
		out[s.Name] = s.Published
	}
	return out
}

// Publisher appends journal records to every configured sink, skipping
// records whose (symbol, bought time) key a sink already holds.
type Publisher struct {
	sinks   []domain.JournalSink
	lock    domain.LockManager
	lockTTL time.Duration
	audit   domain.AuditStore
	logger  *slog.Logger
}

// NewPublisher creates a Publisher. lock and audit may be nil.
func NewPublisher(
	sinks []domain.JournalSink,
	lock domain.LockManager,
	lockTTL time.Duration,
	audit domain.AuditStore,
	logger *slog.Logger,
) *Publisher {
	return &Publisher{
		sinks:   sinks,
		lock:    lock,
		lockTTL: lockTTL,
		audit:   audit,
		logger:  logger.With(slog.String("component", "publisher")),
	}
}

// Publish fans records out to the sinks concurrently. Sink failures are
// reported in the result; the returned error covers the lock and
// cancellation only.
func (p *Publisher) Publish(ctx context.Context, runID string, records []domain.JournalRecord) (*PublishResult, error) {
	if p.lock != nil {
		unlock, err := p.lock.Acquire(ctx, publishLockKey, p.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("publisher: %w", err)
		}
		defer unlock()
	}

	records = uniqueByKey(records)
	results := make([]SinkResult, len(p.sinks))

	g, gctx := errgroup.WithContext(ctx)
	for i, sink := range p.sinks {
		g.Go(func() error {
			results[i] = p.publishTo(gctx, sink, records)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("publisher: %w", err)
	}

	res := &PublishResult{Sinks: results, Failed: unionFailed(records, results)}
	for _, r := range results {
		attrs := []any{
			slog.String("sink", r.Name),
			slog.Int("existing", r.Existing),
			slog.Int("published", r.Published),
			slog.Int("failed", len(r.Failed)),
		}
		if r.Err != nil {
			p.logger.ErrorContext(ctx, "publisher: sink failed", append(attrs, slog.String("error", r.Err.Error()))...)
			continue
		}
		p.logger.InfoContext(ctx, "publisher: sink done", attrs...)
	}

	if p.audit != nil {
		if err := p.audit.Log(ctx, "journal.published", map[string]any{
			"run_id":    runID,
			"records":   len(records),
			"published": res.Published(),
			"failed":    len(res.Failed),
		}); err != nil {
			p.logger.WarnContext(ctx, "publisher: audit log failed", slog.String("error", err.Error()))
		}
	}
	return res, nil
}

// publishTo dedups records against sink and appends the rest.
func (p *Publisher) publishTo(ctx context.Context, sink domain.JournalSink, records []domain.JournalRecord) SinkResult {
	res := SinkResult{Name: sink.Name()}

	existing, err := sink.ExistingKeys(ctx)
	if err != nil {
		res.Failed = records
		res.Err = fmt.Errorf("existing keys: %w", err)
		return res
	}

	var fresh []domain.JournalRecord
	for _, r := range records {
		if _, ok := existing[r.Key()]; ok {
			res.Existing++
			continue
		}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return res
	}

	failed, err := sink.Append(ctx, fresh)
	if err != nil {
		if failed == nil {
			failed = fresh
		}
		res.Err = fmt.Errorf("append: %w", err)
	}
	res.Failed = failed
	res.Published = len(fresh) - len(failed)
	return res
}

// uniqueByKey drops later records that repeat an earlier key.
func uniqueByKey(records []domain.JournalRecord) []domain.JournalRecord {
	seen := make(map[domain.TradeKey]struct{}, len(records))
	out := make([]domain.JournalRecord, 0, len(records))
	for _, r := range records {
		k := r.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func unionFailed(records []domain.JournalRecord, results []SinkResult) []domain.JournalRecord {
	failedKeys := make(map[domain.TradeKey]struct{})
	for _, r := range results {
		for _, f := range r.Failed {
			failedKeys[f.Key()] = struct{}{}
		}
	}
	var out []domain.JournalRecord
	for _, r := range records {
		if _, ok := failedKeys[r.Key()]; ok {
			out = append(out, r)
		}
	}
	return out
}

