package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(domain.TimestampLayout, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func rec(t *testing.T, symbol, bought string) domain.JournalRecord {
	t.Helper()
	b := at(t, bought)
	return domain.JournalRecord{
		Quantity:   1,
		Symbol:     symbol,
		Side:       domain.SideLong,
		PnL:        decimal.RequireFromString("4.22"),
		Points:     decimal.RequireFromString("2.5"),
		Result:     domain.OutcomeWin,
		BoughtTime: b,
		SoldTime:   b.Add(time.Minute),
	}
}

type fakeSink struct {
	name      string
	existing  map[domain.TradeKey]struct{}
	keysErr   error
	appendErr error
	failOn    map[string]bool // symbols the sink rejects
	appended  []domain.JournalRecord
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) ExistingKeys(context.Context) (map[domain.TradeKey]struct{}, error) {
	if f.keysErr != nil {
		return nil, f.keysErr
	}
	return f.existing, nil
}

func (f *fakeSink) Append(_ context.Context, records []domain.JournalRecord) ([]domain.JournalRecord, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	var failed []domain.JournalRecord
	for _, r := range records {
		if f.failOn[r.Symbol] {
			failed = append(failed, r)
			continue
		}
		f.appended = append(f.appended, r)
	}
	return failed, nil
}

type fakeLock struct {
	err      error
	acquired string
	released bool
}

func (f *fakeLock) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.acquired = key
	return func() { f.released = true }, nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeSource struct {
	mu    sync.Mutex
	bars  map[string][]domain.Bar
	calls []string
	err   error
}

func (f *fakeSource) FetchBars(_ context.Context, q domain.BarQuery) ([]domain.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q.Interval)
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[q.Interval], nil
}

type fakeCache struct {
	mu     sync.Mutex
	stored map[string][]domain.Bar
	getErr error
}

func (f *fakeCache) GetBars(_ context.Context, q domain.BarQuery) ([]domain.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	bars, ok := f.stored[q.Interval]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return bars, nil
}

func (f *fakeCache) SetBars(_ context.Context, q domain.BarQuery, bars []domain.Bar) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[q.Interval] = bars
	return nil
}
