// Package tradefile reads the broker's per-fill export and reads and writes
// the cleaned journal CSV.
package tradefile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
)

// Export column names. Any other column in the file is ignored.
const (
	colSymbol     = "symbol"
	colBuyFillID  = "buyFillId"
	colSellFillID = "sellFillId"
	colQty        = "qty"
	colBuyPrice   = "buyPrice"
	colSellPrice  = "sellPrice"
	colPnL        = "pnl"
	colBought     = "boughtTimestamp"
	colSold       = "soldTimestamp"
	colDuration   = "duration"
)

var fillColumns = []string{
	colSymbol, colBuyFillID, colSellFillID, colQty, colBuyPrice,
	colSellPrice, colPnL, colBought, colSold, colDuration,
}

// ReadFillsFile opens path and reads it with ReadFills. A missing file
// returns domain.ErrInputNotFound.
func ReadFillsFile(path string) ([]domain.RawFill, []domain.RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("tradefile: %w: %s", domain.ErrInputNotFound, path)
		}
		return nil, nil, fmt.Errorf("tradefile: open %s: %w", path, err)
	}
	defer f.Close()

	return ReadFills(f)
}

// ReadFills parses the per-fill export. The header must carry every export
// column; otherwise domain.ErrMissingColumns is returned and nothing is read.
// Rows whose ids, quantity or prices are not numeric come back as row errors
// wrapping domain.ErrMalformedField. PnL, timestamps and duration are passed
// through as text.
func ReadFills(r io.Reader) ([]domain.RawFill, []domain.RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("tradefile: %w: empty file", domain.ErrMissingColumns)
		}
		return nil, nil, fmt.Errorf("tradefile: read header: %w", err)
	}
	idx, err := indexColumns(header, fillColumns)
	if err != nil {
		return nil, nil, err
	}

	var (
		fills   []domain.RawFill
		rowErrs []domain.RowError
	)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, domain.RowError{Row: row, Stage: "read", Err: err})
			continue
		}
		if blank(record) {
			continue
		}

		fill, err := parseFill(row, cells{idx: idx, record: record})
		if err != nil {
			rowErrs = append(rowErrs, domain.RowError{Row: row, Stage: "read", Err: err})
			continue
		}
		fills = append(fills, fill)
	}

	return fills, rowErrs, nil
}

func parseFill(row int, c cells) (domain.RawFill, error) {
	buyID, err := c.asInt(colBuyFillID)
	if err != nil {
		return domain.RawFill{}, err
	}
	sellID, err := c.asInt(colSellFillID)
	if err != nil {
		return domain.RawFill{}, err
	}
	qty, err := c.asInt(colQty)
	if err != nil {
		return domain.RawFill{}, err
	}
	if qty <= 0 {
		return domain.RawFill{}, fmt.Errorf("%w: %s=%d must be positive", domain.ErrMalformedField, colQty, qty)
	}
	buy, err := c.asDecimal(colBuyPrice)
	if err != nil {
		return domain.RawFill{}, err
	}
	sell, err := c.asDecimal(colSellPrice)
	if err != nil {
		return domain.RawFill{}, err
	}

	return domain.RawFill{
		Row:             row,
		Symbol:          c.get(colSymbol),
		BuyFillID:       buyID,
		SellFillID:      sellID,
		Quantity:        int(qty),
		BuyPrice:        buy,
		SellPrice:       sell,
		PnL:             c.get(colPnL),
		BoughtTimestamp: c.get(colBought),
		SoldTimestamp:   c.get(colSold),
		Duration:        c.get(colDuration),
	}, nil
}

// indexColumns maps each wanted column to its position in header.
func indexColumns(header, want []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	var missing []string
	for _, name := range want {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("tradefile: %w: %s", domain.ErrMissingColumns, strings.Join(missing, ", "))
	}
	return idx, nil
}

// cells reads named columns out of one record.
type cells struct {
	idx    map[string]int
	record []string
}

func (c cells) get(name string) string {
	i, ok := c.idx[name]
	if !ok || i >= len(c.record) {
		return ""
	}
	return strings.TrimSpace(c.record[i])
}

func (c cells) asInt(name string) (int64, error) {
	s := c.get(name)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some exports write integral ids as floats ("12.0").
		d, derr := decimal.NewFromString(s)
		if derr != nil || !d.Equal(d.Truncate(0)) {
			return 0, fmt.Errorf("%w: %s=%q", domain.ErrMalformedField, name, s)
		}
		return d.IntPart(), nil
	}
	return n, nil
}

func (c cells) asDecimal(name string) (decimal.Decimal, error) {
	s := c.get(name)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q", domain.ErrMalformedField, name, s)
	}
	return d, nil
}

func (c cells) asNullDecimal(name string) (decimal.NullDecimal, error) {
	if c.get(name) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := c.asDecimal(name)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
