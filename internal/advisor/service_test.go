package advisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendAdvisor/internal/collector"
	"TrendAdvisor/internal/model"
	"TrendAdvisor/internal/portfolio"
	"TrendAdvisor/internal/scanner"
	"TrendAdvisor/internal/scanstate"
	"TrendAdvisor/internal/session"
	"TrendAdvisor/internal/strategy"
)

// barsEndingAt is a flat series at 100 whose final bar closes at last.
func barsEndingAt(n int, last float64) []model.OHLCV {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := 100.0
		if i == n-1 {
			c = last
		}
		bars[i] = model.OHLCV{Time: t0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return bars
}

func newTestService(t *testing.T, f *collector.MockFetcher, universe ...string) *Service {
	t.Helper()
	def, err := strategy.NewDefinition("Trend", "close above EMA 20",
		[]model.IndicatorSpec{{Type: model.IndicatorEMA, Period: 20}},
		[]string{"close > EMA(20)"},
		[]string{"close crosses_below EMA(20)"})
	require.NoError(t, err)

	store, err := portfolio.NewStore(filepath.Join(t.TempDir(), "positions.json"))
	require.NoError(t, err)

	opts := scanner.DefaultOptions()
	opts.Reference = model.IndicatorSpec{Type: model.IndicatorEMA, Period: 20, Source: model.SourceClose}
	opts.HistoryDays = 60
	orch := scanner.NewOrchestrator(f, opts, 3, 5*time.Second, collector.RetryPolicy{Retries: 1, Backoff: time.Millisecond})

	svc := New(portfolio.NewClassifier(strategy.NewEngine(def), f, 60, 2), store, orch, universe, nil)
	svc.CacheTTL = time.Minute
	return svc
}

func scanFetcher() *collector.MockFetcher {
	return &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"AAA": barsEndingAt(60, 101),
		"BBB": barsEndingAt(60, 99.5),
		"CCC": barsEndingAt(60, 110),
	}}
}

func symbols(cands []model.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Symbol
	}
	return out
}

func TestTopCandidates(t *testing.T) {
	svc := newTestService(t, scanFetcher(), "AAA", "BBB", "CCC")
	ctx := context.Background()

	all, err := svc.TopCandidates(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"BBB", "AAA", "CCC"}, symbols(all))
	assert.Less(t, all[0].DistancePct, 0.0)
	assert.Equal(t, model.BandFar, all[2].Band)

	top, err := svc.TopCandidates(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"BBB", "AAA"}, symbols(top))

	top, err = svc.TopCandidates(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, top, 3)
}

func TestTopCandidates_NothingInBandIsEmptySlice(t *testing.T) {
	svc := newTestService(t, scanFetcher())
	svc.Orchestrator.Options.MaxBand = model.BandClose
	svc.Universe = []string{"CCC"}

	got, err := svc.TopCandidates(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestScan_CachedWithinTTL(t *testing.T) {
	f := scanFetcher()
	svc := newTestService(t, f, "AAA", "BBB", "CCC")
	ctx := context.Background()

	_, err := svc.TopCandidates(ctx, 0)
	require.NoError(t, err)
	_, err = svc.TopCandidates(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Calls("AAA"))

	_, err = svc.RefreshScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls("AAA"))

	svc.CacheTTL = 0
	_, err = svc.TopCandidates(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Calls("AAA"))
}

func TestScan_ConcurrentRequestsShareOneScan(t *testing.T) {
	f := scanFetcher()
	f.Delay = 50 * time.Millisecond
	svc := newTestService(t, f, "AAA", "BBB", "CCC")

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.TopCandidates(context.Background(), 1)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, f.Calls("AAA"))
	assert.Equal(t, scanstate.Success, svc.Status().State)
}

func TestScan_AuthFailure(t *testing.T) {
	f := scanFetcher()
	f.Errors = map[string]error{"BBB": &collector.AuthenticationError{Provider: "broker", StatusCode: 401}}
	svc := newTestService(t, f, "AAA", "BBB", "CCC")
	svc.Session = session.NewStore(filepath.Join(t.TempDir(), "session.json"), "token")

	_, err := svc.TopCandidates(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, collector.IsAuth(err))
	assert.True(t, svc.Session.Expired())

	st := svc.Status()
	assert.Equal(t, scanstate.Error, st.State)
	assert.NotEmpty(t, st.Message)
	assert.Nil(t, st.Count)
}

func TestSummary(t *testing.T) {
	svc := newTestService(t, scanFetcher(), "AAA", "BBB", "CCC")
	text, err := svc.Summary(context.Background(), 2)
	require.NoError(t, err)
	assert.Contains(t, text, "Top 2 candidates near EMA(20):\n")
	assert.Contains(t, text, "1. BBB at ₹99.50 (")
	assert.Contains(t, text, "2. AAA at ₹101.00 (+")
	assert.NotContains(t, text, "CCC")

	empty := newTestService(t, scanFetcher())
	text, err = empty.Summary(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "No candidates near EMA(20).", text)
}

func TestStatus(t *testing.T) {
	svc := newTestService(t, scanFetcher(), "AAA", "BBB")
	st := svc.Status()
	assert.Equal(t, scanstate.Idle, st.State)
	assert.Nil(t, st.Count)

	_, err := svc.RefreshScan(context.Background())
	require.NoError(t, err)
	st = svc.Status()
	assert.Equal(t, scanstate.Success, st.State)
	require.NotNil(t, st.Count)
	assert.Equal(t, 2, *st.Count)
}

func TestDashboard(t *testing.T) {
	f := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"UP":    barsEndingAt(60, 104),
		"SHORT": barsEndingAt(5, 100),
	}}
	svc := newTestService(t, f)
	require.NoError(t, svc.Store.Replace([]model.Holding{
		{Symbol: "UP", Quantity: 10, AvgCost: 100, CurrentPrice: 104},
		{Symbol: "SHORT", Quantity: 2, AvgCost: 50, CurrentPrice: 55},
	}))

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Len(t, d.Holdings, 2)

	up := d.Holdings[0]
	assert.Equal(t, "UP", up.Symbol)
	assert.Equal(t, model.StrongMatch, up.StrategyMatch)
	assert.Equal(t, 40.0, up.PnL)
	assert.Equal(t, 4.0, up.PnLPct)
	assert.Equal(t, "emerald", up.MatchStyle)
	assert.Empty(t, up.Warning)

	short := d.Holdings[1]
	assert.Equal(t, model.NoMatch, short.StrategyMatch)
	assert.NotEmpty(t, short.Warning)
	assert.Equal(t, 10.0, short.PnLPct)

	assert.Equal(t, "Trend", d.Strategy.Name)
	assert.Equal(t, []ConditionView{{Condition: "close > EMA(20)"}}, d.Strategy.EntryConditions)
	assert.Equal(t, []ConditionView{{Condition: "close crosses_below EMA(20)"}}, d.Strategy.ExitConditions)
	require.Len(t, d.Strategy.Indicators, 1)
	assert.Equal(t, model.SourceClose, d.Strategy.Indicators[0].Source)
}

func TestDashboard_Session(t *testing.T) {
	f := &collector.MockFetcher{Bars: map[string][]model.OHLCV{"UP": barsEndingAt(60, 104)}}
	svc := newTestService(t, f)
	require.NoError(t, svc.Store.Replace([]model.Holding{{Symbol: "UP", Quantity: 1, AvgCost: 100}}))

	svc.Session = session.NewStore(filepath.Join(t.TempDir(), "session.json"), "")
	_, err := svc.Dashboard(context.Background())
	assert.True(t, collector.IsAuth(err), "missing token")

	svc.Session = session.NewStore(filepath.Join(t.TempDir(), "session.json"), "token")
	_, err = svc.Dashboard(context.Background())
	assert.NoError(t, err)

	f.Errors = map[string]error{"UP": &collector.AuthenticationError{Provider: "broker", StatusCode: 403}}
	_, err = svc.Dashboard(context.Background())
	assert.True(t, collector.IsAuth(err))
	assert.True(t, svc.Session.Expired())
}

func TestSyncPortfolio(t *testing.T) {
	f := &collector.MockFetcher{Holdings: []model.Holding{
		{Symbol: "INFY", Quantity: 4, AvgCost: 1500, CurrentPrice: 1550},
	}}
	svc := newTestService(t, f)

	_, err := svc.SyncPortfolio(context.Background())
	assert.ErrorIs(t, err, ErrNoBroker)

	svc.Holdings = f
	svc.Session = session.NewStore(filepath.Join(t.TempDir(), "session.json"), "token")
	n, err := svc.SyncPortfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "INFY", svc.Store.Holdings()[0].Symbol)

	f.Errors = map[string]error{"holdings": &collector.AuthenticationError{Provider: "broker", StatusCode: 401}}
	_, err = svc.SyncPortfolio(context.Background())
	var ae *collector.AuthenticationError
	assert.True(t, errors.As(err, &ae))
	assert.True(t, svc.Session.Expired())
	assert.Len(t, svc.Store.Holdings(), 1, "store kept on failure")
}

func TestDashboard_PicksUpExternalSync(t *testing.T) {
	f := &collector.MockFetcher{Bars: map[string][]model.OHLCV{"UP": barsEndingAt(60, 104)}}
	svc := newTestService(t, f)

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Empty(t, d.Holdings)

	require.NoError(t, portfolio.SaveSnapshot(svc.Store.Path(), &model.PortfolioSnapshot{
		LastUpdated: time.Now(),
		Holdings:    []model.Holding{{Symbol: "UP", Quantity: 3, AvgCost: 100, CurrentPrice: 104}},
	}))
	d, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Len(t, d.Holdings, 1)
	assert.Equal(t, "UP", d.Holdings[0].Symbol)

	require.NoError(t, os.WriteFile(svc.Store.Path(), []byte("{not json"), 0644))
	d, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Len(t, d.Holdings, 1, "last good snapshot kept")
}
