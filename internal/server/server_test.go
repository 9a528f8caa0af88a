package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendAdvisor/internal/advisor"
	"TrendAdvisor/internal/collector"
	"TrendAdvisor/internal/model"
	"TrendAdvisor/internal/portfolio"
	"TrendAdvisor/internal/scanner"
	"TrendAdvisor/internal/session"
	"TrendAdvisor/internal/strategy"
)

func bars(n int, last float64) []model.OHLCV {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.OHLCV, n)
	for i := range out {
		c := 100.0
		if i == n-1 {
			c = last
		}
		out[i] = model.OHLCV{Time: t0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

func newTestServer(t *testing.T, f *collector.MockFetcher, universe ...string) (*advisor.Service, http.Handler) {
	t.Helper()
	def, err := strategy.NewDefinition("Trend", "",
		[]model.IndicatorSpec{{Type: model.IndicatorEMA, Period: 20}},
		[]string{"close > EMA(20)"}, nil)
	require.NoError(t, err)
	store, err := portfolio.NewStore(filepath.Join(t.TempDir(), "positions.json"))
	require.NoError(t, err)

	opts := scanner.DefaultOptions()
	opts.Reference = model.IndicatorSpec{Type: model.IndicatorEMA, Period: 20, Source: model.SourceClose}
	opts.HistoryDays = 60
	orch := scanner.NewOrchestrator(f, opts, 2, 5*time.Second, collector.RetryPolicy{})

	svc := advisor.New(portfolio.NewClassifier(strategy.NewEngine(def), f, 60, 2), store, orch, universe, nil)
	svc.CacheTTL = time.Minute
	return svc, New(svc, 10).Handler()
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestTopCandidates(t *testing.T) {
	f := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"AAA": bars(60, 101),
		"BBB": bars(60, 99.5),
		"CCC": bars(60, 110),
	}}
	_, h := newTestServer(t, f, "AAA", "BBB", "CCC")

	rec := get(h, "/api/v1/advice/top-candidates?topK=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "BBB", got[0]["symbol"])
	for _, key := range []string{"symbol", "currentPrice", "ema200", "distancePct", "band"} {
		assert.Contains(t, got[0], key)
	}

	rec = get(h, "/api/v1/advice/top-candidates")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 3)
}

func TestTopCandidates_BadTopK(t *testing.T) {
	_, h := newTestServer(t, &collector.MockFetcher{Price: 100}, "AAA")
	for _, q := range []string{"abc", "-1", "0", "2.5"} {
		rec := get(h, "/api/v1/advice/top-candidates?topK="+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "topK=%s", q)
	}
}

func TestTopCandidates_EmptyIsArray(t *testing.T) {
	_, h := newTestServer(t, &collector.MockFetcher{Errors: map[string]error{
		"AAA": &collector.UpstreamProviderError{Provider: "mock", Symbol: "AAA", StatusCode: 500},
	}}, "AAA")

	rec := get(h, "/api/v1/advice/top-candidates")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestTopCandidates_AuthIs401(t *testing.T) {
	_, h := newTestServer(t, &collector.MockFetcher{Errors: map[string]error{
		"AAA": &collector.AuthenticationError{Provider: "broker", StatusCode: 401},
	}}, "AAA")

	rec := get(h, "/api/v1/advice/top-candidates")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboard(t *testing.T) {
	f := &collector.MockFetcher{Bars: map[string][]model.OHLCV{"UP": bars(60, 104)}}
	svc, h := newTestServer(t, f)
	require.NoError(t, svc.Store.Replace([]model.Holding{
		{Symbol: "UP", Quantity: 10, AvgCost: 100, CurrentPrice: 104},
		{Symbol: "GONE", Quantity: 1, AvgCost: 10, CurrentPrice: 12},
	}))
	f.Errors = map[string]error{"GONE": &collector.UpstreamProviderError{Provider: "mock", Symbol: "GONE", StatusCode: 404}}

	rec := get(h, "/api/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Performance map[string]float64 `json:"performance"`
		Holdings    []struct {
			Symbol        string  `json:"symbol"`
			PnL           float64 `json:"pnl"`
			PnLPct        float64 `json:"pnlPct"`
			StrategyMatch string  `json:"strategyMatch"`
			Warning       string  `json:"warning"`
		} `json:"holdings"`
		Strategy struct {
			Name            string `json:"name"`
			Indicators      []map[string]any
			EntryConditions []map[string]string `json:"entryConditions"`
			ExitConditions  []map[string]string `json:"exitConditions"`
		} `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, key := range []string{"dailyPct", "weeklyPct", "monthlyPct"} {
		assert.Contains(t, body.Performance, key)
	}
	require.Len(t, body.Holdings, 2)
	assert.Equal(t, "STRONG MATCH", body.Holdings[0].StrategyMatch)
	assert.Equal(t, 40.0, body.Holdings[0].PnL)
	assert.Equal(t, "NO MATCH", body.Holdings[1].StrategyMatch)
	assert.NotEmpty(t, body.Holdings[1].Warning)
	assert.Equal(t, "Trend", body.Strategy.Name)
	assert.Equal(t, "close > EMA(20)", body.Strategy.EntryConditions[0]["condition"])
	assert.NotNil(t, body.Strategy.ExitConditions)
}

func TestDashboard_InvalidSessionIs401(t *testing.T) {
	svc, h := newTestServer(t, &collector.MockFetcher{Price: 100})
	svc.Session = session.NewStore(filepath.Join(t.TempDir(), "session.json"), "your_access_token_here")

	rec := get(h, "/api/dashboard")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSummaryAndStatus(t *testing.T) {
	f := &collector.MockFetcher{Bars: map[string][]model.OHLCV{"AAA": bars(60, 101)}}
	_, h := newTestServer(t, f, "AAA")

	rec := get(h, "/api/v1/advice/scan-status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"idle"`)

	rec = get(h, "/api/v1/advice/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Top 1 candidates near EMA(20):\n1. AAA at ₹101.00"))

	rec = get(h, "/api/v1/advice/scan-status")
	assert.Contains(t, rec.Body.String(), `"state":"success"`)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestHealthzAndMethods(t *testing.T) {
	_, h := newTestServer(t, &collector.MockFetcher{Price: 100})

	rec := get(h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSummaryJSON(t *testing.T) {
	f := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"AAA": bars(60, 101),
		"BBB": bars(60, 99.5),
	}}
	_, h := newTestServer(t, f, "AAA", "BBB")

	rec := get(h, "/api/v1/advice/summary-json")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Summary         string         `json:"summary"`
		TopPick         map[string]any `json:"topPick"`
		TotalCandidates int            `json:"totalCandidates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, strings.HasPrefix(got.Summary, "Top pick is BBB at ₹99.50 ("), got.Summary)
	assert.Equal(t, "BBB", got.TopPick["symbol"])
	assert.Equal(t, 2, got.TotalCandidates)

	_, h = newTestServer(t, f)
	rec = get(h, "/api/v1/advice/summary-json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"summary":"No candidates found","topPick":null,"totalCandidates":0}`, rec.Body.String())
}

func TestPortfolio(t *testing.T) {
	svc, h := newTestServer(t, &collector.MockFetcher{Price: 100})

	rec := get(h, "/api/portfolio")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	require.NoError(t, svc.Store.Replace([]model.Holding{{Symbol: "TCS", Quantity: 2, AvgCost: 3400, CurrentPrice: 3500}}))
	rec = get(h, "/api/portfolio")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap model.PortfolioSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Holdings, 1)
	assert.Equal(t, "TCS", snap.Holdings[0].Symbol)
	assert.False(t, snap.LastUpdated.IsZero())
}
