package pipeline

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
)

var pnlCleaner = strings.NewReplacer("$", "", "(", "", ")", "", ",", "")

// ParsePnL reads the export's currency text. Parentheses mark a negative
// amount: "($12.50)" is -12.50.
func ParsePnL(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	v, err := decimal.NewFromString(strings.TrimSpace(pnlCleaner.Replace(trimmed)))
	if err != nil || trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrMalformedPnl, s)
	}
	if strings.Contains(trimmed, "(") {
		v = v.Abs().Neg()
	}
	return v, nil
}

// OutcomeOf classifies points by sign.
func OutcomeOf(points decimal.Decimal) domain.Outcome {
	switch points.Sign() {
	case 1:
		return domain.OutcomeWin
	case -1:
		return domain.OutcomeLoss
	default:
		return domain.OutcomeBreakeven
	}
}

// AdjustedPnL subtracts the per-contract fee of symbol for qty contracts.
func (p Params) AdjustedPnL(parsed decimal.Decimal, symbol string, qty int) decimal.Decimal {
	return parsed.Sub(decimal.NewFromInt(int64(qty)).Mul(p.FeePerContract(symbol)))
}

// Price parses the PnL of a normalized fill, classifies its outcome and
// deducts fees. A Breakeven fill carries zero adjusted PnL. When lenient is
// set a malformed PnL is treated as zero and reported alongside the result.
func (p Params) Price(t domain.NormalizedTrade) (domain.PricedFill, error) {
	parsed, perr := ParsePnL(t.RawPnL)
	if perr != nil && !p.Lenient {
		return domain.PricedFill{}, perr
	}

	outcome := OutcomeOf(t.Points)
	adjusted := p.AdjustedPnL(parsed, t.Symbol, t.Quantity)
	if outcome == domain.OutcomeBreakeven {
		adjusted = decimal.Zero
	}

	return domain.PricedFill{
		NormalizedTrade: t,
		ParsedPnL:       parsed,
		Outcome:         outcome,
		AdjustedPnL:     adjusted,
	}, perr
}
