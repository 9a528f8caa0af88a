package scanner

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"TrendAdvisor/internal/calculator"
	"TrendAdvisor/internal/collector"
	"TrendAdvisor/internal/model"
)

// Bands holds the |distancePct| cutoffs between close, medium and far.
type Bands struct {
	ClosePct  float64
	MediumPct float64
}

var DefaultBands = Bands{ClosePct: 2, MediumPct: 5}

// BandOf classifies a distance: |d| < close → close, |d| < medium → medium,
// otherwise far.
func BandOf(distancePct float64, b Bands) model.Band {
	d := math.Abs(distancePct)
	switch {
	case d < b.ClosePct:
		return model.BandClose
	case d < b.MediumPct:
		return model.BandMedium
	}
	return model.BandFar
}

// Options tunes a scan.
type Options struct {
	Reference   model.IndicatorSpec
	HistoryDays int
	Bands       Bands
	MaxBand     model.Band // empty means no limit
	UptrendOnly bool
	TopK        int // 0 means no limit
}

// DefaultOptions scans EMA(200) on close over 400 bars.
func DefaultOptions() Options {
	return Options{
		Reference:   model.IndicatorSpec{Type: model.IndicatorEMA, Period: 200, Source: model.SourceClose},
		HistoryDays: 400,
		Bands:       DefaultBands,
	}
}

// DistancePct returns (price-ref)/ref*100.
func DistancePct(price, ref float64) float64 {
	r := decimal.NewFromFloat(ref)
	if r.IsZero() {
		return 0
	}
	return decimal.NewFromFloat(price).Sub(r).Div(r).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// ScanSymbol fetches history for one symbol and measures how far its latest
// close sits from the reference indicator.
func ScanSymbol(ctx context.Context, f collector.Fetcher, symbol string, opts Options) (model.Candidate, error) {
	bars, err := f.FetchDailyBars(ctx, symbol, opts.HistoryDays)
	if err != nil {
		return model.Candidate{}, err
	}
	series, err := calculator.Compute(bars, opts.Reference)
	if err != nil {
		return model.Candidate{}, err
	}
	ref, _ := series.Last()
	if ref <= 0 {
		return model.Candidate{}, fmt.Errorf("%s: non-positive reference value %.4f", symbol, ref)
	}
	price := bars[len(bars)-1].Close
	d := DistancePct(price, ref)
	return model.Candidate{
		Symbol:       symbol,
		CurrentPrice: price,
		Reference:    ref,
		DistancePct:  d,
		Band:         BandOf(d, opts.Bands),
	}, nil
}

// Keep reports whether c passes the band and trend filters.
func (o Options) Keep(c model.Candidate) bool {
	if o.MaxBand != "" && !c.Band.Within(o.MaxBand) {
		return false
	}
	if o.UptrendOnly && c.DistancePct < 0 {
		return false
	}
	return true
}

// Rank sorts candidates by |distancePct| ascending, ties by symbol.
func Rank(cands []model.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		di, dj := math.Abs(cands[i].DistancePct), math.Abs(cands[j].DistancePct)
		if di != dj {
			return di < dj
		}
		return cands[i].Symbol < cands[j].Symbol
	})
}

// Finalize filters, ranks and truncates to TopK.
func (o Options) Finalize(cands []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, 0, len(cands))
	for _, c := range cands {
		if o.Keep(c) {
			out = append(out, c)
		}
	}
	Rank(out)
	if o.TopK > 0 && len(out) > o.TopK {
		out = out[:o.TopK]
	}
	return out
}
