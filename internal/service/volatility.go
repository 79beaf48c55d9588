package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/pipeline"
)

// VolatilityService fetches the fine and coarse bar series and derives
// their range-average series.
type VolatilityService struct {
	source domain.BarSource
	cache  domain.BarCache
	window int
	logger *slog.Logger
}

// NewVolatilityService creates a VolatilityService. cache may be nil.
func NewVolatilityService(source domain.BarSource, cache domain.BarCache, window int, logger *slog.Logger) *VolatilityService {
	return &VolatilityService{
		source: source,
		cache:  cache,
		window: window,
		logger: logger.With(slog.String("component", "volatility")),
	}
}

// Series returns the ATR series for the fine and coarse queries, fetched
// concurrently.
func (v *VolatilityService) Series(ctx context.Context, fine, coarse domain.BarQuery) ([]domain.ATRSample, []domain.ATRSample, error) {
	var fineATR, coarseATR []domain.ATRSample

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bars, err := v.bars(gctx, fine)
		if err != nil {
			return err
		}
		fineATR = pipeline.RangeATR(bars, v.window)
		return nil
	})
	g.Go(func() error {
		bars, err := v.bars(gctx, coarse)
		if err != nil {
			return err
		}
		coarseATR = pipeline.RangeATR(bars, v.window)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return fineATR, coarseATR, nil
}

// bars reads q through the cache, falling back to the source.
func (v *VolatilityService) bars(ctx context.Context, q domain.BarQuery) ([]domain.Bar, error) {
	if v.cache != nil {
		bars, err := v.cache.GetBars(ctx, q)
		switch {
		case err == nil:
			v.logger.DebugContext(ctx, "volatility: bar cache hit",
				slog.String("interval", q.Interval), slog.Int("bars", len(bars)))
			return bars, nil
		case !errors.Is(err, domain.ErrNotFound):
			v.logger.WarnContext(ctx, "volatility: bar cache read failed",
				slog.String("interval", q.Interval), slog.String("error", err.Error()))
		}
	}

	bars, err := v.source.FetchBars(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("volatility: fetch %s %s bars: %w", q.Symbol, q.Interval, err)
	}
	v.logger.InfoContext(ctx, "volatility: fetched bars",
		slog.String("symbol", q.Symbol),
		slog.String("interval", q.Interval),
		slog.Int("bars", len(bars)),
	)

	if v.cache != nil {
		if err := v.cache.SetBars(ctx, q, bars); err != nil {
			v.logger.WarnContext(ctx, "volatility: bar cache write failed",
				slog.String("interval", q.Interval), slog.String("error", err.Error()))
		}
	}
	return bars, nil
}
