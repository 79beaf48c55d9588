package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one price bar from the market-data collaborator. Timestamps are
// naive wall-clock values already shifted by the configured offset.
type Bar struct {
	Timestamp time.Time       `json:"ts"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Missing   bool            `json:"missing,omitempty"` // source had no high or low
}

// ATRSample is one point of a derived range-average series. Value is null
// for samples that precede a full window.
type ATRSample struct {
	Timestamp time.Time
	Value     decimal.NullDecimal
}

// BarQuery selects a bar series from the market-data collaborator.
type BarQuery struct {
	Symbol   string // e.g. "MNQ=F"
	Range    string // lookback window, e.g. "7d"
	Interval string // bar interval, e.g. "1m"
}
