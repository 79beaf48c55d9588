package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a reconstructed trade.
type Side string

const (
	SideLong  Side = "Long"
	SideShort Side = "Short"
)

// RawFill is one row of the platform's per-fill export. Numeric cells are
// already typed; PnL, timestamps and duration stay as exported text so the
// normalizer owns their parsing policy.
type RawFill struct {
	Row             int // 1-based data row in the source file
	Symbol          string
	BuyFillID       int64
	SellFillID      int64
	Quantity        int
	BuyPrice        decimal.Decimal
	SellPrice       decimal.Decimal
	PnL             string // "$12.50" or "($12.50)"
	BoughtTimestamp string // "01/02/2006 15:04:05"
	SoldTimestamp   string
	Duration        string // "1min 5sec", "42sec" or empty
}

// NormalizedTrade is a RawFill with typed timestamps, canonical symbol and
// derived direction.
type NormalizedTrade struct {
	Row             int
	Symbol          string // contract-month suffix trimmed, e.g. "MNQ"
	Side            Side
	Quantity        int
	BuyPrice        decimal.Decimal
	SellPrice       decimal.Decimal
	Points          decimal.Decimal // SellPrice - BuyPrice
	RawPnL          string
	BoughtTime      time.Time
	SoldTime        time.Time
	EntryTime       time.Time
	DurationSeconds *int // nil when the export carried no parseable duration
}

// PricedFill is a NormalizedTrade with its parsed PnL and per-fill outcome.
type PricedFill struct {
	NormalizedTrade
	ParsedPnL   decimal.Decimal // PnL as exported, before fees
	Outcome     Outcome
	AdjustedPnL decimal.Decimal // ParsedPnL minus fees; zero for Breakeven
}
