package calculator

import (
	"TrendAdvisor/internal/model"
)

// RSI computes the Wilder-smoothed RSI series. It needs period+1 bars; the
// first value sits at bar period.
func RSI(bars []model.OHLCV, spec model.IndicatorSpec) (model.Series, error) {
	if spec.Period <= 0 {
		return model.Series{}, ErrInvalidPeriod
	}
	period := spec.Period
	if len(bars) < period+1 {
		return model.Series{}, &InsufficientDataError{Spec: spec, Need: period + 1, Have: len(bars)}
	}

	src := extractSource(bars, spec.Source)

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := src[i] - src[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	values := make([]float64, 0, len(src)-period)
	values = append(values, toRSI(avgGain, avgLoss))

	for i := period + 1; i < len(src); i++ {
		change := src[i] - src[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		values = append(values, toRSI(avgGain, avgLoss))
	}
	return model.Series{Spec: spec, Offset: period, Values: values}, nil
}

func toRSI(avgGain, avgLoss float64) float64 {
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
