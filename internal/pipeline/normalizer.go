package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
)

// fillTimeLayout accepts the export's month/day/year timestamps with or
// without zero padding.
const fillTimeLayout = "1/2/2006 15:04:05"

var durationPattern = regexp.MustCompile(`^(?:(\d+)min\s*)?(\d+)sec`)

// Normalize converts one raw export row into a NormalizedTrade. It fails with
// domain.ErrMalformedTimestamp when either timestamp cannot be parsed. An
// unparseable duration is not an error; it yields a nil DurationSeconds.
func Normalize(fill domain.RawFill) (domain.NormalizedTrade, error) {
	bought, err := ParseFillTime(fill.BoughtTimestamp)
	if err != nil {
		return domain.NormalizedTrade{}, fmt.Errorf("bought timestamp: %w", err)
	}
	sold, err := ParseFillTime(fill.SoldTimestamp)
	if err != nil {
		return domain.NormalizedTrade{}, fmt.Errorf("sold timestamp: %w", err)
	}

	side := SideOf(fill.BuyFillID, fill.SellFillID)
	entry := sold
	if side == domain.SideLong {
		entry = bought
	}

	return domain.NormalizedTrade{
		Row:             fill.Row,
		Symbol:          CanonicalSymbol(fill.Symbol),
		Side:            side,
		Quantity:        fill.Quantity,
		BuyPrice:        fill.BuyPrice,
		SellPrice:       fill.SellPrice,
		Points:          PointsOf(fill.BuyPrice, fill.SellPrice),
		RawPnL:          fill.PnL,
		BoughtTime:      bought,
		SoldTime:        sold,
		EntryTime:       entry,
		DurationSeconds: ParseDuration(fill.Duration),
	}, nil
}

// CanonicalSymbol drops the two-character contract-month suffix, so "MNQZ4"
// becomes "MNQ".
func CanonicalSymbol(raw string) string {
	if len(raw) <= 2 {
		return ""
	}
	return raw[:len(raw)-2]
}

// SideOf derives direction from fill ordering: the side whose fill came first
// opened the position.
func SideOf(buyFillID, sellFillID int64) domain.Side {
	if buyFillID < sellFillID {
		return domain.SideLong
	}
	return domain.SideShort
}

// PointsOf returns sell minus buy. For a long trade that is the exit price
// less the entry price; for a short trade it is the entry price less the exit
// price, which is the same difference.
func PointsOf(buy, sell decimal.Decimal) decimal.Decimal {
	return sell.Sub(buy)
}

// ParseFillTime parses an export timestamp as a naive wall-clock time,
// represented in UTC.
func ParseFillTime(s string) (time.Time, error) {
	t, err := time.Parse(fillTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrMalformedTimestamp, s)
	}
	return t, nil
}

// ParseDuration reads "[<m>min ]<s>sec" into total seconds. Anything else,
// including an empty cell, returns nil.
func ParseDuration(s string) *int {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	total := 0
	if m[1] != "" {
		minutes, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		total = minutes * 60
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	total += seconds
	return &total
}
