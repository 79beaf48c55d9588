package pipeline

import (
	"sort"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
)

// RangeATR derives the rolling mean of per-bar high-low range over window
// bars. Bars are ordered by timestamp first; the first window-1 samples are
// null, as is every sample whose window holds a missing bar.
func RangeATR(bars []domain.Bar, window int) []domain.ATRSample {
	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := make([]domain.ATRSample, len(sorted))
	if window <= 0 {
		for i, b := range sorted {
			out[i] = domain.ATRSample{Timestamp: b.Timestamp}
		}
		return out
	}

	n := decimal.NewFromInt(int64(window))
	sum := decimal.Zero
	missing := 0
	for i, b := range sorted {
		if b.Missing {
			missing++
		} else {
			sum = sum.Add(b.High.Sub(b.Low))
		}
		if i >= window {
			if old := sorted[i-window]; old.Missing {
				missing--
			} else {
				sum = sum.Sub(old.High.Sub(old.Low))
			}
		}
		out[i] = domain.ATRSample{Timestamp: b.Timestamp}
		if i >= window-1 && missing == 0 {
			out[i].Value = decimal.NullDecimal{Decimal: sum.Div(n), Valid: true}
		}
	}
	return out
}

// asOfIndex holds one series sorted by timestamp for backward lookups.
type asOfIndex []domain.ATRSample

func newAsOfIndex(series []domain.ATRSample) asOfIndex {
	idx := make(asOfIndex, len(series))
	copy(idx, series)
	sort.SliceStable(idx, func(i, j int) bool {
		return idx[i].Timestamp.Before(idx[j].Timestamp)
	})
	return idx
}

// at returns the last sample at or before t. Trades earlier than every
// sample, and samples still inside the warm-up window, yield null.
func (idx asOfIndex) at(t time.Time, places int32) decimal.NullDecimal {
	i := sort.Search(len(idx), func(i int) bool { return idx[i].Timestamp.After(t) })
	if i == 0 {
		return decimal.NullDecimal{}
	}
	v := idx[i-1].Value
	if !v.Valid {
		return v
	}
	return decimal.NullDecimal{Decimal: v.Decimal.RoundBank(places), Valid: true}
}

// AlignVolatility attaches the most recent fine and coarse ATR sample at or
// before each trade's entry time. The two series are joined independently and
// may be passed unsorted.
func AlignVolatility(trades []domain.EnrichedTrade, fine, coarse []domain.ATRSample, places int32) []domain.EnrichedTrade {
	fineIdx := newAsOfIndex(fine)
	coarseIdx := newAsOfIndex(coarse)

	out := make([]domain.EnrichedTrade, len(trades))
	for i, t := range trades {
		t.ATRFine = fineIdx.at(t.EntryTime, places)
		t.ATRCoarse = coarseIdx.at(t.EntryTime, places)
		out[i] = t
	}
	return out
}
