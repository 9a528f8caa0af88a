package calculator

import (
	"math"

	"TrendAdvisor/internal/model"
)

// Highest returns the rolling maximum of the source over the last period bars,
// e.g. HIGHEST(252,high) for the 52-week high.
func Highest(bars []model.OHLCV, spec model.IndicatorSpec) (model.Series, error) {
	return rollingExtreme(bars, spec, math.Max, math.Inf(-1))
}

// Lowest returns the rolling minimum of the source over the last period bars.
func Lowest(bars []model.OHLCV, spec model.IndicatorSpec) (model.Series, error) {
	return rollingExtreme(bars, spec, math.Min, math.Inf(1))
}

func rollingExtreme(bars []model.OHLCV, spec model.IndicatorSpec, pick func(a, b float64) float64, init float64) (model.Series, error) {
	if spec.Period <= 0 {
		return model.Series{}, ErrInvalidPeriod
	}
	p := spec.Period
	if len(bars) < p {
		return model.Series{}, &InsufficientDataError{Spec: spec, Need: p, Have: len(bars)}
	}
	src := extractSource(bars, spec.Source)
	values := make([]float64, 0, len(src)-p+1)
	for end := p; end <= len(src); end++ {
		v := init
		for i := end - p; i < end; i++ {
			v = pick(v, src[i])
		}
		values = append(values, v)
	}
	return model.Series{Spec: spec, Offset: p - 1, Values: values}, nil
}
