package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// JournalStore is the tabular journal sink backed by the journal_trades
// table.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a JournalStore backed by pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

// Name implements domain.JournalSink.
func (s *JournalStore) Name() string { return "postgres" }

// NUMERIC columns travel as text so decimals round-trip exactly.
const journalSelectCols = `quantity, symbol, side, pnl::text, pts::text, result,
	drt_category, session, atr_1m::text, atr_5m::text, duration_seconds,
	buy_price::text, sell_price::text, bought_time, sold_time`

func scanJournalRow(row pgx.CollectableRow) (domain.JournalRecord, error) {
	var (
		r                   domain.JournalRecord
		side, result        string
		pnl, pts, buy, sell string
		atr1, atr5          *string
	)
	if err := row.Scan(
		&r.Quantity, &r.Symbol, &side, &pnl, &pts, &result,
		&r.DurationCategory, &r.Session, &atr1, &atr5,
		&r.DurationSeconds, &buy, &sell,
		&r.BoughtTime, &r.SoldTime,
	); err != nil {
		return r, err
	}
	r.Side = domain.Side(side)
	r.Result = domain.Outcome(result)

	var err error
	for _, f := range []struct {
		src string
		dst *decimal.Decimal
	}{{pnl, &r.PnL}, {pts, &r.Points}, {buy, &r.BuyPrice}, {sell, &r.SellPrice}} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return r, fmt.Errorf("parse numeric %q: %w", f.src, err)
		}
	}
	if r.ATR1M, err = nullDecimal(atr1); err != nil {
		return r, err
	}
	if r.ATR5M, err = nullDecimal(atr5); err != nil {
		return r, err
	}
	return r, nil
}

func nullDecimal(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse numeric %q: %w", *s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// numericArg renders a nullable decimal as a NUMERIC text parameter.
func numericArg(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

// ExistingKeys returns the (symbol, bought time) key of every stored row.
func (s *JournalStore) ExistingKeys(ctx context.Context) (map[domain.TradeKey]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT symbol, bought_time FROM journal_trades`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query journal keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[domain.TradeKey]struct{})
	for rows.Next() {
		var (
			symbol string
			bought time.Time
		)
		if err := rows.Scan(&symbol, &bought); err != nil {
			return nil, fmt.Errorf("postgres: scan journal key: %w", err)
		}
		keys[domain.TradeKey{Symbol: symbol, BoughtTime: bought.Format(domain.TimestampLayout)}] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: journal keys rows: %w", err)
	}
	return keys, nil
}

// Append inserts records in one batch. The batch runs as a single implicit
// transaction, so on error every record is reported as failed. Rows whose
// key already exists are skipped by the unique constraint.
func (s *JournalStore) Append(ctx context.Context, records []domain.JournalRecord) ([]domain.JournalRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	const query = `
		INSERT INTO journal_trades (
			quantity, symbol, side, pnl, pts, result, drt_category,
			session, atr_1m, atr_5m, duration_seconds,
			buy_price, sell_price, bought_time, sold_time
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15
		) ON CONFLICT ON CONSTRAINT journal_trades_key DO NOTHING`

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query,
			r.Quantity, r.Symbol, string(r.Side), r.PnL.String(), r.Points.String(), string(r.Result),
			r.DurationCategory, r.Session, numericArg(r.ATR1M), numericArg(r.ATR5M), r.DurationSeconds,
			r.BuyPrice.String(), r.SellPrice.String(), r.BoughtTime, r.SoldTime,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range records {
		if _, err := br.Exec(); err != nil {
			return records, fmt.Errorf("postgres: insert journal batch item %d: %w", i, err)
		}
	}
	return nil, nil
}

// ListBefore returns journal rows bought strictly before the cutoff, oldest
// first.
func (s *JournalStore) ListBefore(ctx context.Context, before time.Time) ([]domain.JournalRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+journalSelectCols+` FROM journal_trades
		 WHERE bought_time < $1 ORDER BY bought_time ASC, id ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list journal before %s: %w", before.Format(time.DateOnly), err)
	}
	records, err := pgx.CollectRows(rows, scanJournalRow)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan journal rows: %w", err)
	}
	return records, nil
}
