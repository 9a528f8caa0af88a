package calculator

import (
	"TrendAdvisor/internal/model"
)

// SMA computes the simple moving average series. The first value sits at
// bar period-1.
func SMA(bars []model.OHLCV, spec model.IndicatorSpec) (model.Series, error) {
	if spec.Period <= 0 {
		return model.Series{}, ErrInvalidPeriod
	}
	if len(bars) < spec.Period {
		return model.Series{}, &InsufficientDataError{Spec: spec, Need: spec.Period, Have: len(bars)}
	}
	src := extractSource(bars, spec.Source)
	p := spec.Period
	values := make([]float64, 0, len(src)-p+1)
	sum := 0.0
	for i, x := range src {
		sum += x
		if i >= p {
			sum -= src[i-p]
		}
		if i >= p-1 {
			values = append(values, sum/float64(p))
		}
	}
	return model.Series{Spec: spec, Offset: p - 1, Values: values}, nil
}

// EMA computes the exponential moving average series with α = 2/(p+1).
// The series is seeded at bar p-1 with the simple average of the first p
// source values; every later value is α·x + (1-α)·prev.
func EMA(bars []model.OHLCV, spec model.IndicatorSpec) (model.Series, error) {
	if spec.Period <= 0 {
		return model.Series{}, ErrInvalidPeriod
	}
	if len(bars) < spec.Period {
		return model.Series{}, &InsufficientDataError{Spec: spec, Need: spec.Period, Have: len(bars)}
	}
	src := extractSource(bars, spec.Source)
	p := spec.Period
	alpha := 2.0 / float64(p+1)

	seed := 0.0
	for i := 0; i < p; i++ {
		seed += src[i]
	}
	ema := seed / float64(p)

	values := make([]float64, 0, len(src)-p+1)
	values = append(values, ema)
	for i := p; i < len(src); i++ {
		ema = alpha*src[i] + (1-alpha)*ema
		values = append(values, ema)
	}
	return model.Series{Spec: spec, Offset: p - 1, Values: values}, nil
}

// LatestEMA returns only the final EMA value.
func LatestEMA(bars []model.OHLCV, period int) (float64, error) {
	s, err := EMA(bars, model.IndicatorSpec{Type: model.IndicatorEMA, Period: period, Source: model.SourceClose})
	if err != nil {
		return 0, err
	}
	v, _ := s.Last()
	return v, nil
}

func extractSource(bars []model.OHLCV, src model.PriceSource) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = src.Value(b)
	}
	return out
}
