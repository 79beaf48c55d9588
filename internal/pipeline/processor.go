package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// RowPolicy decides what a rejected row does to the batch.
type RowPolicy string

const (
	// RowPolicyExclude drops the row and reports it in Result.RowErrors.
	RowPolicyExclude RowPolicy = "exclude"
	// RowPolicyAbort fails the whole batch on the first rejected row.
	RowPolicyAbort RowPolicy = "abort"
)

// Result is the outcome of one processing run.
type Result struct {
	Records   []domain.JournalRecord
	RowErrors []domain.RowError // rows excluded from Records
	Recovered []domain.RowError // rows kept with a lenient default
	FillsIn   int
	Merged    int // fills absorbed into an earlier trade
}

// Processor runs the full transform from raw export rows to journal records.
// It does no I/O; volatility series are fetched by the caller.
type Processor struct {
	params Params
	policy RowPolicy
	logger *slog.Logger
}

// NewProcessor creates a new Processor.
func NewProcessor(params Params, policy RowPolicy, logger *slog.Logger) *Processor {
	if policy == "" {
		policy = RowPolicyExclude
	}
	return &Processor{
		params: params,
		policy: policy,
		logger: logger.With(slog.String("component", "processor")),
	}
}

// Process normalizes, prices, orders, merges, classifies, aligns and projects
// the fills. Under RowPolicyAbort the first rejected row is returned as a
// *domain.RowError.
func (p *Processor) Process(fills []domain.RawFill, fine, coarse []domain.ATRSample) (*Result, error) {
	res := &Result{FillsIn: len(fills)}

	priced := make([]domain.PricedFill, 0, len(fills))
	for _, fill := range fills {
		norm, err := Normalize(fill)
		if err != nil {
			if abort := p.reject(res, fill.Row, "normalize", err); abort != nil {
				return nil, abort
			}
			continue
		}

		pf, err := p.params.Price(norm)
		if err != nil {
			if !p.params.Lenient || !errors.Is(err, domain.ErrMalformedPnl) {
				if abort := p.reject(res, fill.Row, "price", err); abort != nil {
					return nil, abort
				}
				continue
			}
			p.keepRow(res, fill.Row, "price", err)
		}
		priced = append(priced, pf)
	}

	sort.SliceStable(priced, func(i, j int) bool {
		return priced[i].EntryTime.Before(priced[j].EntryTime)
	})

	merged := Merge(priced, p.params)
	res.Merged = len(priced) - len(merged)

	enriched := make([]domain.EnrichedTrade, 0, len(merged))
	for _, t := range merged {
		et, err := p.params.Classify(t)
		if err != nil {
			if !p.params.Lenient {
				if abort := p.reject(res, t.Row, "classify", err); abort != nil {
					return nil, abort
				}
				continue
			}
			p.keepRow(res, t.Row, "classify", err)
		}
		enriched = append(enriched, et)
	}

	aligned := AlignVolatility(enriched, fine, coarse, p.params.ATRPlaces)
	res.Records = p.params.ProjectAll(aligned)

	p.logger.Info("fills processed",
		slog.Int("fills_input", res.FillsIn),
		slog.Int("fills_merged", res.Merged),
		slog.Int("trades_output", len(res.Records)),
		slog.Int("rows_rejected", len(res.RowErrors)),
		slog.Int("rows_recovered", len(res.Recovered)),
	)
	return res, nil
}

// reject records a row failure. It returns a non-nil error when the batch
// must stop.
func (p *Processor) reject(res *Result, row int, stage string, err error) error {
	rowErr := domain.RowError{Row: row, Stage: stage, Err: err}
	if p.policy == RowPolicyAbort {
		return fmt.Errorf("pipeline: %w", &rowErr)
	}
	p.logger.Warn("row rejected",
		slog.Int("row", row),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
	res.RowErrors = append(res.RowErrors, rowErr)
	return nil
}

func (p *Processor) keepRow(res *Result, row int, stage string, err error) {
	p.logger.Warn("row kept with default value",
		slog.Int("row", row),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
	res.Recovered = append(res.Recovered, domain.RowError{Row: row, Stage: stage, Err: err})
}
