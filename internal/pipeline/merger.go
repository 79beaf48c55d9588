package pipeline

import (
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
)

// mergeState is the fold accumulator of Merge: the open trade, if any, and
// everything already closed. Each step returns a new state.
type mergeState struct {
	pending    domain.MergedTrade
	hasPending bool
	emitted    []domain.MergedTrade
}

// Merge folds fills that belong to one logical position into single trades.
// The input must already be ordered by entry time; Merge does not reorder.
func Merge(fills []domain.PricedFill, p Params) []domain.MergedTrade {
	st := mergeState{emitted: make([]domain.MergedTrade, 0, len(fills))}
	for _, f := range fills {
		st = st.step(f, p)
	}
	return st.flush()
}

func (s mergeState) step(next domain.PricedFill, p Params) mergeState {
	if s.hasPending && CanMerge(s.pending.NormalizedTrade, next.NormalizedTrade, p.MergeWindow) {
		s.pending = absorb(s.pending, next, p)
		return s
	}
	if s.hasPending {
		s.emitted = append(s.emitted, s.pending)
	}
	s.pending = open(next, p)
	s.hasPending = true
	return s
}

func (s mergeState) flush() []domain.MergedTrade {
	if s.hasPending {
		return append(s.emitted, s.pending)
	}
	return s.emitted
}

// CanMerge reports whether next continues the position opened by pending:
// same side, same two-character contract family, entries within window, and
// both stated durations longer than the gap between entries. A missing
// duration never merges.
func CanMerge(pending, next domain.NormalizedTrade, window time.Duration) bool {
	if pending.Side != next.Side {
		return false
	}
	if prefix(pending.Symbol, 2) != prefix(next.Symbol, 2) {
		return false
	}
	gap := next.EntryTime.Sub(pending.EntryTime)
	if gap > window {
		return false
	}
	if pending.DurationSeconds == nil || next.DurationSeconds == nil {
		return false
	}
	return seconds(*pending.DurationSeconds) > gap && seconds(*next.DurationSeconds) > gap
}

func open(f domain.PricedFill, p Params) domain.MergedTrade {
	return domain.MergedTrade{
		NormalizedTrade: f.NormalizedTrade,
		PnL:             p.AdjustedPnL(f.ParsedPnL, f.Symbol, f.Quantity).RoundBank(p.PnLPlaces),
		Legs:            1,
	}
}

// absorb applies one merge step. The fee term is charged on the merged
// quantity plus the absorbed quantity, once per step.
func absorb(pending domain.MergedTrade, next domain.PricedFill, p Params) domain.MergedTrade {
	merged := pending
	merged.Quantity = pending.Quantity + next.Quantity
	merged.Points = decimal.Max(pending.Points, next.Points)
	merged.Legs = pending.Legs + 1

	qty := decimal.NewFromInt(int64(merged.Quantity))
	feeQty := decimal.NewFromInt(int64(merged.Quantity + next.Quantity))
	merged.PnL = qty.Mul(merged.Points).Mul(p.MultiplierFor(pending.Symbol)).
		Sub(feeQty.Mul(p.FeePerContract(pending.Symbol)))
	return merged
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
