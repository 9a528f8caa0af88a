package collector

import (
	"context"
	"math"
	"sync"
	"time"

	"TrendAdvisor/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without an entry in Bars get a generated series around Price.
type MockFetcher struct {
	Price    float64
	Bars     map[string][]model.OHLCV
	Errors   map[string]error
	Holdings []model.Holding
	Delay    time.Duration

	mu    sync.Mutex
	calls map[string]int
	// FailFirst makes the first N calls per symbol fail with an upstream error.
	FailFirst int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	n := m.record(symbol)
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if n <= m.FailFirst {
		return nil, &UpstreamProviderError{Provider: m.Name(), Symbol: symbol, StatusCode: 503}
	}
	if bars, ok := m.Bars[symbol]; ok {
		if len(bars) > days {
			bars = bars[len(bars)-days:]
		}
		return bars, nil
	}
	return generateMockBars(symbol, m.Price, days), nil
}

func (m *MockFetcher) FetchHoldings(_ context.Context) ([]model.Holding, error) {
	if err, ok := m.Errors["holdings"]; ok {
		return nil, err
	}
	return m.Holdings, nil
}

// Calls returns how many times symbol was fetched.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

func (m *MockFetcher) record(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	return m.calls[symbol]
}

// generateMockBars builds a gently oscillating series; the phase depends on
// the symbol so different symbols land at different distances from their
// averages.
func generateMockBars(symbol string, basePrice float64, count int) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 1000
	}
	phase := 0.0
	for _, r := range symbol {
		phase += float64(r)
	}
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -count)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.08*math.Sin(float64(i)/40+phase) + float64(i-count/2)*0.0002)
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
