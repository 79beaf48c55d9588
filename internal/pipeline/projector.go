package pipeline

import "github.com/alanyoungcy/tradejournal/internal/domain"

// Project renames and rounds an enriched trade into its published shape.
func (p Params) Project(t domain.EnrichedTrade) domain.JournalRecord {
	return domain.JournalRecord{
		Quantity:         t.Quantity,
		Symbol:           t.Symbol,
		Side:             t.Side,
		PnL:              t.PnL.RoundBank(p.PnLPlaces),
		Points:           t.Points,
		Result:           t.Outcome,
		DurationCategory: t.DurationCategory,
		Session:          t.Session,
		ATR1M:            t.ATRFine,
		ATR5M:            t.ATRCoarse,
		DurationSeconds:  t.DurationSeconds,
		BuyPrice:         t.BuyPrice,
		SellPrice:        t.SellPrice,
		BoughtTime:       t.BoughtTime,
		SoldTime:         t.SoldTime,
	}
}

// ProjectAll projects every trade, preserving order.
func (p Params) ProjectAll(trades []domain.EnrichedTrade) []domain.JournalRecord {
	out := make([]domain.JournalRecord, 0, len(trades))
	for _, t := range trades {
		out = append(out, p.Project(t))
	}
	return out
}
