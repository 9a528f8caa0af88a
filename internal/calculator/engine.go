package calculator

import (
	"fmt"

	"TrendAdvisor/internal/model"
)

type computeFunc func([]model.OHLCV, model.IndicatorSpec) (model.Series, error)

var computers = map[model.IndicatorType]computeFunc{
	model.IndicatorEMA:     EMA,
	model.IndicatorSMA:     SMA,
	model.IndicatorRSI:     RSI,
	model.IndicatorHighest: Highest,
	model.IndicatorLowest:  Lowest,
}

// Compute derives the series named by spec from bars. It is a pure function
// and safe to call concurrently.
func Compute(bars []model.OHLCV, spec model.IndicatorSpec) (model.Series, error) {
	spec = spec.Normalize()
	fn, ok := computers[spec.Type]
	if !ok {
		return model.Series{}, fmt.Errorf("unknown indicator type %q", spec.Type)
	}
	return fn(bars, spec)
}

// ComputeAll derives every spec, keyed by IndicatorSpec.Key. The first
// failure is returned.
func ComputeAll(bars []model.OHLCV, specs []model.IndicatorSpec) (map[string]model.Series, error) {
	out := make(map[string]model.Series, len(specs))
	for _, spec := range specs {
		s, err := Compute(bars, spec)
		if err != nil {
			return nil, fmt.Errorf("compute %s: %w", spec.Key(), err)
		}
		out[s.Spec.Key()] = s
	}
	return out, nil
}
