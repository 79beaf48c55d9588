package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome classifies a trade by the sign of its points.
type Outcome string

const (
	OutcomeWin       Outcome = "Win"
	OutcomeLoss      Outcome = "Loss"
	OutcomeBreakeven Outcome = "Breakeven"
)

// Duration buckets.
const (
	DurationUpTo30s = "0-30 sec"
	DurationUpTo2m  = "30-120 sec"
	DurationUpTo5m  = "2-5 min"
	DurationOver5m  = "5+ min"
)

// Session buckets, relative to the daily market open.
const (
	SessionFirst30m   = "0-30 min"
	SessionSecond30m  = "30-60 min"
	SessionSecondHour = "1-2 hour"
	SessionLate       = "2+ hour"
)

// MergedTrade is a logical trade that may have absorbed adjacent fills.
type MergedTrade struct {
	NormalizedTrade
	PnL  decimal.Decimal
	Legs int // number of fills folded into this trade
}

// EnrichedTrade is a MergedTrade with its analytical classifications and
// volatility context.
type EnrichedTrade struct {
	MergedTrade
	Outcome          Outcome
	DurationCategory string
	Session          string
	ATRFine          decimal.NullDecimal
	ATRCoarse        decimal.NullDecimal
}

// JournalRecord is the publishable projection of an EnrichedTrade. Its
// fields map one to one onto JournalColumns.
type JournalRecord struct {
	Quantity         int                 `json:"quantity"`
	Symbol           string              `json:"symbol"`
	Side             Side                `json:"side"`
	PnL              decimal.Decimal     `json:"pnl"`
	Points           decimal.Decimal     `json:"pts"`
	Result           Outcome             `json:"result"`
	DurationCategory string              `json:"drt_category"`
	Session          string              `json:"session"`
	ATR1M            decimal.NullDecimal `json:"atr_1m"`
	ATR5M            decimal.NullDecimal `json:"atr_5m"`
	DurationSeconds  *int                `json:"duration"`
	BuyPrice         decimal.Decimal     `json:"buy_price"`
	SellPrice        decimal.Decimal     `json:"sell_price"`
	BoughtTime       time.Time           `json:"bought_time"`
	SoldTime         time.Time           `json:"sold_time"`
}

// JournalColumns is the fixed column order of the published projection.
var JournalColumns = []string{
	"Quantity", "Symbol", "Side", "Pnl", "Pts", "Result", "Drt Category",
	"Session", "ATR 1M", "ATR 5M", "Duration", "Buy Price", "Sell Price",
	"Bought Time", "Sold Time",
}

// TimestampLayout is the round-trippable format used for Bought/Sold Time
// in every published surface.
const TimestampLayout = "2006-01-02 15:04:05"

// TradeKey identifies a journal record for duplicate detection.
type TradeKey struct {
	Symbol     string
	BoughtTime string // TimestampLayout
}

// Key returns the duplicate-detection key of the record.
func (r JournalRecord) Key() TradeKey {
	return TradeKey{Symbol: r.Symbol, BoughtTime: r.BoughtTime.Format(TimestampLayout)}
}
