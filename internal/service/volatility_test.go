package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

func bars(t *testing.T, start string, step time.Duration, ranges ...string) []domain.Bar {
	t.Helper()
	ts := at(t, start)
	out := make([]domain.Bar, len(ranges))
	for i, r := range ranges {
		out[i] = domain.Bar{
			Timestamp: ts.Add(time.Duration(i) * step),
			High:      decimal.RequireFromString("100").Add(decimal.RequireFromString(r)),
			Low:       decimal.RequireFromString("100"),
		}
	}
	return out
}

var (
	fineQ   = domain.BarQuery{Symbol: "MNQ=F", Range: "7d", Interval: "1m"}
	coarseQ = domain.BarQuery{Symbol: "MNQ=F", Range: "7d", Interval: "5m"}
)

func TestVolatilitySeries(t *testing.T) {
	src := &fakeSource{bars: map[string][]domain.Bar{
		"1m": bars(t, "2024-12-03 18:00:00", time.Minute, "1", "2", "3"),
		"5m": bars(t, "2024-12-03 18:00:00", 5*time.Minute, "4", "6"),
	}}
	v := NewVolatilityService(src, nil, 2, discardLogger())

	fine, coarse, err := v.Series(context.Background(), fineQ, coarseQ)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fine) != 3 || len(coarse) != 2 {
		t.Fatalf("expected 3 fine and 2 coarse samples, got %d and %d", len(fine), len(coarse))
	}
	if fine[0].Value.Valid {
		t.Error("expected the first fine sample to be null")
	}
	if want := decimal.RequireFromString("2.5"); !fine[2].Value.Decimal.Equal(want) {
		t.Errorf("expected 2.5, got %s", fine[2].Value.Decimal)
	}
	if want := decimal.RequireFromString("5"); !coarse[1].Value.Decimal.Equal(want) {
		t.Errorf("expected 5, got %s", coarse[1].Value.Decimal)
	}
}

func TestVolatilityUsesCache(t *testing.T) {
	cached := bars(t, "2024-12-03 18:00:00", time.Minute, "1", "1")
	src := &fakeSource{bars: map[string][]domain.Bar{
		"5m": bars(t, "2024-12-03 18:00:00", 5*time.Minute, "4", "6"),
	}}
	cache := &fakeCache{stored: map[string][]domain.Bar{"1m": cached}}
	v := NewVolatilityService(src, cache, 2, discardLogger())

	if _, _, err := v.Series(context.Background(), fineQ, coarseQ); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.calls) != 1 || src.calls[0] != "5m" {
		t.Errorf("expected only the 5m series to be fetched, got %v", src.calls)
	}
	if _, ok := cache.stored["5m"]; !ok {
		t.Error("expected the fetched 5m series to be cached")
	}
}

func TestVolatilityCacheErrorFallsBack(t *testing.T) {
	src := &fakeSource{bars: map[string][]domain.Bar{}}
	cache := &fakeCache{stored: map[string][]domain.Bar{}, getErr: errors.New("redis down")}
	v := NewVolatilityService(src, cache, 2, discardLogger())

	if _, _, err := v.Series(context.Background(), fineQ, coarseQ); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.calls) != 2 {
		t.Errorf("expected both series fetched from the source, got %v", src.calls)
	}
}

func TestVolatilitySourceError(t *testing.T) {
	boom := errors.New("boom")
	v := NewVolatilityService(&fakeSource{err: boom}, nil, 2, discardLogger())
	if _, _, err := v.Series(context.Background(), fineQ, coarseQ); !errors.Is(err, boom) {
		t.Errorf("expected source error, got %v", err)
	}
}
