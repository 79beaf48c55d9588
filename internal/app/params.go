package app

import (
	"fmt"
	"maps"

	"github.com/alanyoungcy/tradejournal/internal/config"
	"github.com/alanyoungcy/tradejournal/internal/pipeline"
)

// PipelineParams converts the [pipeline] section into processor parameters.
func PipelineParams(c config.PipelineConfig) (pipeline.Params, error) {
	open, err := c.MarketOpenOffset()
	if err != nil {
		return pipeline.Params{}, fmt.Errorf("app: pipeline params: %w", err)
	}

	mults := make([]pipeline.Multiplier, 0, len(c.Multipliers))
	for _, m := range c.Multipliers {
		mults = append(mults, pipeline.Multiplier{Prefix: m.Prefix, Value: m.Value})
	}

	return pipeline.Params{
		Fees:              maps.Clone(c.Fees),
		Multipliers:       mults,
		DefaultMultiplier: c.DefaultMultiplier,
		MergeWindow:       c.MergeWindow.Duration,
		MarketOpen:        open,
		ATRWindow:         c.ATRWindow,
		ATRPlaces:         int32(c.ATRRound),
		PnLPlaces:         int32(c.PnLRound),
		Lenient:           c.Lenient,
	}, nil
}
