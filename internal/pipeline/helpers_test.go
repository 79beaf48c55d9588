package pipeline

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(n int) *int {
	return &n
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(domain.TimestampLayout, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pricedLong builds a long MNQ fill entered at entry.
func pricedLong(t *testing.T, entry string, qty int, points string, pnl string, duration *int) domain.PricedFill {
	t.Helper()
	ts := at(t, entry)
	p := DefaultParams()
	parsed := dec(pnl)
	return domain.PricedFill{
		NormalizedTrade: domain.NormalizedTrade{
			Symbol:          "MNQ",
			Side:            domain.SideLong,
			Quantity:        qty,
			BuyPrice:        dec("20000"),
			SellPrice:       dec("20000").Add(dec(points)),
			Points:          dec(points),
			BoughtTime:      ts,
			SoldTime:        ts.Add(time.Minute),
			EntryTime:       ts,
			DurationSeconds: duration,
		},
		ParsedPnL:   parsed,
		Outcome:     OutcomeOf(dec(points)),
		AdjustedPnL: p.AdjustedPnL(parsed, "MNQ", qty),
	}
}
