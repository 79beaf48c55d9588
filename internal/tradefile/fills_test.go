package tradefile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

const sampleExport = `symbol,_priceFormat,_priceFormatType,_tickSize,buyFillId,sellFillId,qty,buyPrice,sellPrice,pnl,boughtTimestamp,soldTimestamp,duration
MNQZ4,-2,0,0.25,101,102,1,21000.25,21002.75,$5.00,12/03/2024 18:00:00,12/03/2024 18:00:40,40sec
NQZ4,-2,0,0.25,205,204,2,21010,21005,($200.00),12/03/2024 19:45:10,12/03/2024 19:40:00,5min 10sec
MYMZ4,-2,0,1,x1,302,1,44000,44000,$0.00,12/03/2024 20:00:00,12/03/2024 20:00:20,
`

func TestReadFills(t *testing.T) {
	fills, rowErrs, err := ReadFills(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("ReadFills: %v", err)
	}
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills, got %d", len(fills))
	}
	if len(rowErrs) != 1 || rowErrs[0].Row != 3 || !errors.Is(&rowErrs[0], domain.ErrMalformedField) {
		t.Fatalf("expected row 3 malformed field, got %v", rowErrs)
	}

	got := fills[1]
	if got.Row != 2 || got.Symbol != "NQZ4" || got.BuyFillID != 205 || got.SellFillID != 204 || got.Quantity != 2 {
		t.Errorf("unexpected fill: %+v", got)
	}
	if got.PnL != "($200.00)" || got.Duration != "5min 10sec" || got.SoldTimestamp != "12/03/2024 19:40:00" {
		t.Errorf("text cells not passed through: %+v", got)
	}
	if got.BuyPrice.String() != "21010" {
		t.Errorf("expected buy price 21010, got %s", got.BuyPrice)
	}
}

func TestReadFillsRejectsNonPositiveQty(t *testing.T) {
	header := "symbol,buyFillId,sellFillId,qty,buyPrice,sellPrice,pnl,boughtTimestamp,soldTimestamp,duration\n"
	tests := []struct {
		name string
		qty  string
	}{
		{name: "zero", qty: "0"},
		{name: "negative", qty: "-2"},
		{name: "negative float", qty: "-1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := header + "MNQZ4,101,102," + tt.qty + ",21000,21001,$2.00,12/03/2024 18:00:00,12/03/2024 18:00:40,40sec\n"
			fills, rowErrs, err := ReadFills(strings.NewReader(input))
			if err != nil {
				t.Fatalf("ReadFills: %v", err)
			}
			if len(fills) != 0 {
				t.Errorf("expected no fills, got %d", len(fills))
			}
			if len(rowErrs) != 1 || rowErrs[0].Row != 1 || !errors.Is(&rowErrs[0], domain.ErrMalformedField) {
				t.Errorf("expected row 1 malformed field, got %v", rowErrs)
			}
		})
	}
}

func TestReadFillsMissingColumns(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "no duration", input: "symbol,buyFillId,sellFillId,qty,buyPrice,sellPrice,pnl,boughtTimestamp,soldTimestamp\n"},
		{name: "wrong case", input: "Symbol,buyFillId,sellFillId,qty,buyPrice,sellPrice,pnl,boughtTimestamp,soldTimestamp,duration\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadFills(strings.NewReader(tt.input))
			if !errors.Is(err, domain.ErrMissingColumns) {
				t.Errorf("expected ErrMissingColumns, got %v", err)
			}
		})
	}
}

func TestReadFillsFile(t *testing.T) {
	dir := t.TempDir()

	_, _, err := ReadFillsFile(filepath.Join(dir, "trades.csv"))
	if !errors.Is(err, domain.ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}

	path := filepath.Join(dir, "trades.csv")
	if err := os.WriteFile(path, []byte("\ufeff"+sampleExport), 0o644); err != nil {
		t.Fatal(err)
	}
	fills, _, err := ReadFillsFile(path)
	if err != nil {
		t.Fatalf("ReadFillsFile: %v", err)
	}
	if len(fills) != 2 || fills[0].Symbol != "MNQZ4" {
		t.Errorf("unexpected fills: %+v", fills)
	}
}
