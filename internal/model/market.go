package model

import (
	"sort"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds raw price data for one symbol.
type PriceSeries struct {
	Symbol    string
	DailyBars []OHLCV
	FetchedAt time.Time
}

// Last returns the most recent bar.
func (s *PriceSeries) Last() (OHLCV, bool) {
	if len(s.DailyBars) == 0 {
		return OHLCV{}, false
	}
	return s.DailyBars[len(s.DailyBars)-1], true
}

// NormalizeBars sorts bars chronologically and drops bars sharing a timestamp
// with an earlier one, so the result is strictly increasing in time.
func NormalizeBars(bars []OHLCV) []OHLCV {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	out := bars[:0]
	for i, b := range bars {
		if i > 0 && b.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, b)
	}
	return out
}
