package pipeline

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
)

// DurationCategory buckets a holding duration. A nil duration has no bucket
// and returns domain.ErrMissingDuration.
func DurationCategory(durationSeconds *int) (string, error) {
	if durationSeconds == nil {
		return "", domain.ErrMissingDuration
	}
	switch sec := *durationSeconds; {
	case sec <= 30:
		return domain.DurationUpTo30s, nil
	case sec <= 120:
		return domain.DurationUpTo2m, nil
	case sec <= 300:
		return domain.DurationUpTo5m, nil
	default:
		return domain.DurationOver5m, nil
	}
}

// SessionOf buckets entry by minutes elapsed since the market open on the
// same calendar day. Entries before the open, overnight ones included, land
// in the last bucket.
func SessionOf(entry time.Time, marketOpen time.Duration) string {
	y, m, d := entry.Date()
	openAt := time.Date(y, m, d, 0, 0, 0, 0, entry.Location()).Add(marketOpen)
	minutes := entry.Sub(openAt).Minutes()
	switch {
	case minutes >= 0 && minutes < 30:
		return domain.SessionFirst30m
	case minutes < 60:
		return domain.SessionSecond30m
	case minutes < 120:
		return domain.SessionSecondHour
	default:
		return domain.SessionLate
	}
}

// Classify assigns outcome, duration bucket and session to a merged trade.
// Breakeven trades carry zero PnL. In lenient mode a missing duration maps to
// the last bucket and the error is still returned for reporting.
func (p Params) Classify(t domain.MergedTrade) (domain.EnrichedTrade, error) {
	out := domain.EnrichedTrade{
		MergedTrade: t,
		Outcome:     OutcomeOf(t.Points),
		Session:     SessionOf(t.EntryTime, p.MarketOpen),
	}
	if out.Outcome == domain.OutcomeBreakeven {
		out.PnL = decimal.Zero
	}

	category, err := DurationCategory(t.DurationSeconds)
	if err != nil {
		if !p.Lenient {
			return domain.EnrichedTrade{}, fmt.Errorf("duration category: %w", err)
		}
		category = domain.DurationOver5m
	}
	out.DurationCategory = category
	return out, err
}
