package pipeline

import (
	"time"

	"github.com/shopspring/decimal"
)

// Multiplier maps a canonical symbol prefix to its currency value per point.
type Multiplier struct {
	Prefix string
	Value  decimal.Decimal
}

// Params carries the fixed tables and thresholds of one pipeline run. It is
// passed by value into every stage so a run can override any of them.
type Params struct {
	// Fees holds the per-contract half-turn fee keyed by the first three
	// characters of the canonical symbol. Unknown symbols pay nothing.
	Fees map[string]decimal.Decimal

	// Multipliers are checked in order; the first matching prefix wins.
	Multipliers       []Multiplier
	DefaultMultiplier decimal.Decimal

	// MergeWindow is the largest entry-time gap two fills may have and
	// still be folded into one trade.
	MergeWindow time.Duration

	// MarketOpen is the daily session start as an offset from midnight.
	MarketOpen time.Duration

	ATRWindow int
	ATRPlaces int32
	PnLPlaces int32

	// Lenient replaces malformed PnL with zero and missing durations with
	// the last duration bucket instead of rejecting the row.
	Lenient bool
}

// DefaultParams returns the reference fee table, multipliers and thresholds.
func DefaultParams() Params {
	return Params{
		Fees: map[string]decimal.Decimal{
			"NQ":  decimal.RequireFromString("4.73").Div(decimal.NewFromInt(2)),
			"MNQ": decimal.RequireFromString("1.57").Div(decimal.NewFromInt(2)),
			"MYM": decimal.RequireFromString("2.2").Div(decimal.NewFromInt(2)),
		},
		Multipliers: []Multiplier{
			{Prefix: "NQ", Value: decimal.NewFromInt(20)},
			{Prefix: "MNQ", Value: decimal.NewFromInt(2)},
			{Prefix: "MYM", Value: decimal.RequireFromString("0.5")},
		},
		DefaultMultiplier: decimal.NewFromInt(1),
		MergeWindow:       5 * time.Second,
		MarketOpen:        17*time.Hour + 30*time.Minute,
		ATRWindow:         14,
		ATRPlaces:         1,
		PnLPlaces:         2,
	}
}

// FeePerContract returns the half-turn fee for one contract of symbol.
func (p Params) FeePerContract(symbol string) decimal.Decimal {
	fee, ok := p.Fees[prefix(symbol, 3)]
	if !ok {
		return decimal.Zero
	}
	return fee
}

// MultiplierFor returns the point value of symbol.
func (p Params) MultiplierFor(symbol string) decimal.Decimal {
	for _, m := range p.Multipliers {
		if len(symbol) >= len(m.Prefix) && symbol[:len(m.Prefix)] == m.Prefix {
			return m.Value
		}
	}
	return p.DefaultMultiplier
}

// prefix returns at most the first n bytes of s.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
