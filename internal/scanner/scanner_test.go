package scanner

import (
	"context"
	"math"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendAdvisor/internal/collector"
	"TrendAdvisor/internal/model"
)

func flatBars(n int, price float64) []model.OHLCV {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{Time: t0.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price, Volume: 1}
	}
	return bars
}

func candidate(symbol string, price, ref float64) model.Candidate {
	d := DistancePct(price, ref)
	return model.Candidate{Symbol: symbol, CurrentPrice: price, Reference: ref, DistancePct: d, Band: BandOf(d, DefaultBands)}
}

func TestBandOf(t *testing.T) {
	tests := []struct {
		d    float64
		want model.Band
	}{
		{0, model.BandClose},
		{-1, model.BandClose},
		{1.99, model.BandClose},
		{2, model.BandMedium},
		{-4.99, model.BandMedium},
		{5, model.BandFar},
		{-12.5, model.BandFar},
	}
	for _, tt := range tests {
		if got := BandOf(tt.d, DefaultBands); got != tt.want {
			t.Errorf("BandOf(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
	assert.Equal(t, model.BandClose, BandOf(2.5, Bands{ClosePct: 3, MediumPct: 6}))
}

func TestDistancePct(t *testing.T) {
	x := candidate("X", 102, 100)
	assert.Equal(t, 2.0, x.DistancePct)
	assert.Equal(t, model.BandMedium, x.Band)

	y := candidate("Y", 99, 100)
	assert.Equal(t, -1.0, y.DistancePct)
	assert.Equal(t, model.BandClose, y.Band)

	assert.Equal(t, 0.0, DistancePct(100, 100))
	assert.Greater(t, DistancePct(100.0001, 100), 0.0)
	assert.Less(t, DistancePct(99.9999, 100), 0.0)
	assert.Equal(t, 0.0, DistancePct(10, 0))
}

func TestRank(t *testing.T) {
	cands := []model.Candidate{
		candidate("C", 103, 100),
		candidate("B", 99, 100),
		candidate("A", 101, 100),
		candidate("D", 90, 100),
	}
	Rank(cands)
	got := make([]string, len(cands))
	for i, c := range cands {
		got[i] = c.Symbol
	}
	// A and B tie at |1.00|, broken by symbol
	assert.Equal(t, []string{"A", "B", "C", "D"}, got)
}

func TestFinalize(t *testing.T) {
	cands := []model.Candidate{
		candidate("FAR", 110, 100),
		candidate("MID", 97, 100),
		candidate("NEAR", 101, 100),
		candidate("DIP", 99.5, 100),
	}
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"no filters", Options{}, []string{"DIP", "NEAR", "MID", "FAR"}},
		{"max band medium", Options{MaxBand: model.BandMedium}, []string{"DIP", "NEAR", "MID"}},
		{"max band close", Options{MaxBand: model.BandClose}, []string{"DIP", "NEAR"}},
		{"uptrend only", Options{UptrendOnly: true}, []string{"NEAR", "FAR"}},
		{"top k", Options{TopK: 2}, []string{"DIP", "NEAR"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.opts.Finalize(cands)
			got := make([]string, len(out))
			for i, c := range out {
				got[i] = c.Symbol
			}
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Len(t, cands, 4, "input untouched")
}

func TestScanSymbol(t *testing.T) {
	f := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"FLAT":  flatBars(400, 100),
		"SHORT": flatBars(150, 100),
	}}
	c, err := ScanSymbol(context.Background(), f, "FLAT", DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 100, c.Reference, 1e-9)
	assert.InDelta(t, 0, c.DistancePct, 1e-9)
	assert.Equal(t, model.BandClose, c.Band)

	_, err = ScanSymbol(context.Background(), f, "SHORT", DefaultOptions())
	require.Error(t, err)
}

func isSorted(cands []model.Candidate) bool {
	return sort.SliceIsSorted(cands, func(i, j int) bool {
		di, dj := math.Abs(cands[i].DistancePct), math.Abs(cands[j].DistancePct)
		if di != dj {
			return di < dj
		}
		return cands[i].Symbol < cands[j].Symbol
	})
}

func TestOrchestrator_DropsFailingSymbols(t *testing.T) {
	failing := map[string]error{
		"TCS":  &collector.UpstreamProviderError{Provider: "mock", Symbol: "TCS", StatusCode: 503},
		"INFY": &collector.UpstreamProviderError{Provider: "mock", Symbol: "INFY", StatusCode: 429},
		"ITC":  &collector.UpstreamProviderError{Provider: "mock", Symbol: "ITC"},
	}
	f := &collector.MockFetcher{Price: 1000, Errors: failing}
	o := NewOrchestrator(f, DefaultOptions(), 5, 10*time.Second, collector.RetryPolicy{Retries: 1, Backoff: time.Millisecond})

	res, err := o.Run(context.Background(), Nifty50)
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 47)
	assert.False(t, res.Partial)
	assert.Equal(t, 50, res.Scanned)
	assert.Equal(t, []string{"INFY", "ITC", "TCS"}, res.DroppedSymbols())
	assert.True(t, isSorted(res.Candidates))
	for sym := range failing {
		assert.Equal(t, 2, f.Calls(sym), "%s retried once", sym)
	}
}

func TestOrchestrator_InsufficientDataNotRetried(t *testing.T) {
	f := &collector.MockFetcher{Price: 100, Bars: map[string][]model.OHLCV{"NEW": flatBars(30, 100)}}
	o := NewOrchestrator(f, DefaultOptions(), 2, time.Second, collector.RetryPolicy{Retries: 1, Backoff: time.Millisecond})

	res, err := o.Run(context.Background(), []string{"NEW", "OLD", "old "})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "OLD", res.Candidates[0].Symbol)
	assert.Contains(t, res.Dropped["NEW"], "insufficient data")
	assert.Equal(t, 1, f.Calls("NEW"))
}

func TestOrchestrator_AuthFailsRun(t *testing.T) {
	f := &collector.MockFetcher{Price: 100, Errors: map[string]error{
		"SBIN": &collector.AuthenticationError{Provider: "broker", StatusCode: 401},
	}}
	o := NewOrchestrator(f, DefaultOptions(), 3, time.Second, collector.DefaultRetryPolicy)
	res, err := o.Run(context.Background(), Nifty50)
	assert.Nil(t, res)
	assert.True(t, collector.IsAuth(err))
	assert.Equal(t, 1, f.Calls("SBIN"))
}

func TestOrchestrator_DeadlineReturnsPartial(t *testing.T) {
	f := &collector.MockFetcher{Price: 100, Delay: 30 * time.Millisecond}
	o := NewOrchestrator(f, DefaultOptions(), 2, 100*time.Millisecond, collector.DefaultRetryPolicy)

	start := time.Now()
	res, err := o.Run(context.Background(), Nifty50)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, res.Partial)
	assert.Less(t, len(res.Candidates), 50)
	assert.Equal(t, 50, len(res.Candidates)+len(res.Dropped))
	assert.True(t, isSorted(res.Candidates))
}

// gaugeFetcher records the peak number of concurrent fetches.
type gaugeFetcher struct {
	collector.MockFetcher
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (g *gaugeFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return g.MockFetcher.FetchDailyBars(ctx, symbol, days)
}

func TestOrchestrator_BoundedWorkers(t *testing.T) {
	g := &gaugeFetcher{MockFetcher: collector.MockFetcher{Price: 100, Delay: 10 * time.Millisecond}}
	o := NewOrchestrator(g, DefaultOptions(), 3, 10*time.Second, collector.DefaultRetryPolicy)

	res, err := o.Run(context.Background(), Nifty50)
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 50)
	assert.LessOrEqual(t, g.peak.Load(), int32(3))
	assert.Equal(t, int32(3), g.peak.Load(), "all workers used")
}

func TestOrchestrator_EmptyUniverse(t *testing.T) {
	o := NewOrchestrator(&collector.MockFetcher{}, DefaultOptions(), 2, time.Second, collector.DefaultRetryPolicy)
	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, res.Candidates)
	assert.Empty(t, res.Candidates)
}

func TestResolveUniverse(t *testing.T) {
	assert.Equal(t, []string{"TCS", "INFY"}, ResolveUniverse(nil, []string{" tcs", "INFY", "TCS"}))
	assert.Len(t, ResolveUniverse(), 50)
	assert.Len(t, NormalizeUniverse(Nifty50), 50)
}
