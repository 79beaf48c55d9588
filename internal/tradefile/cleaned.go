package tradefile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
)

// nameDateLayout is the dd.mm.yyyy form used in cleaned file names.
const nameDateLayout = "02.01.2006"

// CleanedName encodes the inclusive Bought Time date range of records in the
// file name: "<prefix>_<first>-<last>.csv".
func CleanedName(prefix string, records []domain.JournalRecord) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("tradefile: name cleaned file: %w", domain.ErrNoTrades)
	}
	first, last := records[0].BoughtTime, records[0].BoughtTime
	for _, r := range records[1:] {
		if r.BoughtTime.Before(first) {
			first = r.BoughtTime
		}
		if r.BoughtTime.After(last) {
			last = r.BoughtTime
		}
	}
	return fmt.Sprintf("%s_%s-%s.csv", prefix, first.Format(nameDateLayout), last.Format(nameDateLayout)), nil
}

// WriteCleaned writes records with the fixed journal header.
func WriteCleaned(w io.Writer, records []domain.JournalRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.JournalColumns); err != nil {
		return fmt.Errorf("tradefile: write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(recordRow(r)); err != nil {
			return fmt.Errorf("tradefile: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("tradefile: flush: %w", err)
	}
	return nil
}

// EncodeCleaned renders records as CSV bytes.
func EncodeCleaned(records []domain.JournalRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCleaned(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCleanedFile writes records into dir under their dated name and
// returns the full path.
func WriteCleanedFile(dir, prefix string, records []domain.JournalRecord) (string, error) {
	name, err := CleanedName(prefix, records)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := writeFile(path, records); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFailedFile writes records that could not be published, in the cleaned
// layout so the file can be fed back into a publish run.
func WriteFailedFile(path string, records []domain.JournalRecord) error {
	return writeFile(path, records)
}

func writeFile(path string, records []domain.JournalRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tradefile: create %s: %w", path, err)
	}
	if err := WriteCleaned(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("tradefile: close %s: %w", path, err)
	}
	return nil
}

func recordRow(r domain.JournalRecord) []string {
	duration := ""
	if r.DurationSeconds != nil {
		duration = strconv.Itoa(*r.DurationSeconds)
	}
	return []string{
		strconv.Itoa(r.Quantity),
		r.Symbol,
		string(r.Side),
		r.PnL.String(),
		r.Points.String(),
		string(r.Result),
		r.DurationCategory,
		r.Session,
		nullString(r.ATR1M),
		nullString(r.ATR5M),
		duration,
		r.BuyPrice.String(),
		r.SellPrice.String(),
		r.BoughtTime.Format(domain.TimestampLayout),
		r.SoldTime.Format(domain.TimestampLayout),
	}
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// ReadCleanedFile opens path and reads it with ReadCleaned.
func ReadCleanedFile(path string) ([]domain.JournalRecord, []domain.RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("tradefile: %w: %s", domain.ErrInputNotFound, path)
		}
		return nil, nil, fmt.Errorf("tradefile: open %s: %w", path, err)
	}
	defer f.Close()

	return ReadCleaned(f)
}

// ReadCleaned parses a cleaned journal file. Every journal column must be
// present. Rows missing Symbol, Side, Pnl, Bought Time or Sold Time, or
// carrying unparseable values, are returned as row errors.
func ReadCleaned(r io.Reader) ([]domain.JournalRecord, []domain.RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("tradefile: %w: empty file", domain.ErrMissingColumns)
		}
		return nil, nil, fmt.Errorf("tradefile: read header: %w", err)
	}
	idx, err := indexColumns(header, domain.JournalColumns)
	if err != nil {
		return nil, nil, err
	}

	var (
		records []domain.JournalRecord
		rowErrs []domain.RowError
	)
	for row := 1; ; row++ {
		raw, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, domain.RowError{Row: row, Stage: "read", Err: err})
			continue
		}
		if blank(raw) {
			continue
		}
		rec, err := parseRecord(cells{idx: idx, record: raw})
		if err != nil {
			rowErrs = append(rowErrs, domain.RowError{Row: row, Stage: "read", Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

func parseRecord(c cells) (domain.JournalRecord, error) {
	for _, name := range []string{"Symbol", "Side", "Pnl", "Bought Time", "Sold Time"} {
		if c.get(name) == "" {
			return domain.JournalRecord{}, fmt.Errorf("%w: %s is empty", domain.ErrMalformedField, name)
		}
	}

	rec := domain.JournalRecord{
		Symbol:           c.get("Symbol"),
		Side:             domain.Side(c.get("Side")),
		Result:           domain.Outcome(c.get("Result")),
		DurationCategory: c.get("Drt Category"),
		Session:          c.get("Session"),
	}

	qty, err := c.asInt("Quantity")
	if err != nil {
		return domain.JournalRecord{}, err
	}
	rec.Quantity = int(qty)

	amounts := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"Pnl", &rec.PnL}, {"Pts", &rec.Points}, {"Buy Price", &rec.BuyPrice}, {"Sell Price", &rec.SellPrice},
	}
	for _, a := range amounts {
		if *a.dst, err = c.asDecimal(a.name); err != nil {
			return domain.JournalRecord{}, err
		}
	}
	if rec.ATR1M, err = c.asNullDecimal("ATR 1M"); err != nil {
		return domain.JournalRecord{}, err
	}
	if rec.ATR5M, err = c.asNullDecimal("ATR 5M"); err != nil {
		return domain.JournalRecord{}, err
	}
	if c.get("Duration") != "" {
		n, err := c.asInt("Duration")
		if err != nil {
			return domain.JournalRecord{}, err
		}
		d := int(n)
		rec.DurationSeconds = &d
	}

	if rec.BoughtTime, err = parseTimestamp(c, "Bought Time"); err != nil {
		return domain.JournalRecord{}, err
	}
	if rec.SoldTime, err = parseTimestamp(c, "Sold Time"); err != nil {
		return domain.JournalRecord{}, err
	}
	return rec, nil
}

func parseTimestamp(c cells, name string) (time.Time, error) {
	s := c.get(name)
	t, err := time.Parse(domain.TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s=%q", domain.ErrMalformedTimestamp, name, s)
	}
	return t, nil
}

var cleanedNamePattern = regexp.MustCompile(`^(.+)_(\d{2}\.\d{2}\.\d{4})-(\d{2}\.\d{2}\.\d{4})\.csv$`)

// LatestCleaned returns the cleaned file in dir whose name encodes the
// latest end date, breaking ties on the start date.
func LatestCleaned(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("tradefile: list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	best, ok := PickLatestCleaned(names, prefix)
	if !ok {
		return "", fmt.Errorf("tradefile: %w: no %s_*.csv in %s", domain.ErrInputNotFound, prefix, dir)
	}
	return filepath.Join(dir, best), nil
}

// PickLatestCleaned returns the cleaned-file name with the greatest end date,
// ties broken by start date. Names may carry a directory or key prefix.
func PickLatestCleaned(names []string, prefix string) (string, bool) {
	var (
		best             string
		bestEnd, bestBeg time.Time
	)
	for _, name := range names {
		beg, end, ok := parseCleanedName(path.Base(name), prefix)
		if !ok {
			continue
		}
		if best == "" || end.After(bestEnd) || (end.Equal(bestEnd) && beg.After(bestBeg)) {
			best, bestBeg, bestEnd = name, beg, end
		}
	}
	return best, best != ""
}

func parseCleanedName(name, prefix string) (time.Time, time.Time, bool) {
	m := cleanedNamePattern.FindStringSubmatch(name)
	if m == nil || m[1] != prefix {
		return time.Time{}, time.Time{}, false
	}
	beg, err := time.Parse(nameDateLayout, m[2])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(nameDateLayout, m[3])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return beg, end, true
}
