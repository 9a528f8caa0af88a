package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"TrendAdvisor/internal/model"
)

// BrokerClient talks to the broker REST API for daily bars and holdings. It
// implements both Fetcher and HoldingsSource.
type BrokerClient struct {
	BaseURL  string
	Exchange string
	Tokens   TokenSource
	Client   *http.Client
}

// NewBrokerClient creates a new client with optional proxy support.
func NewBrokerClient(baseURL, exchange string, tokens TokenSource, proxyURL string) *BrokerClient {
	return &BrokerClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Exchange: exchange,
		Tokens:   tokens,
		Client:   newHTTPClient(proxyURL),
	}
}

func (b *BrokerClient) Name() string { return "broker" }

// brokerBar is the expected JSON shape of one daily bar.
type brokerBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// brokerHolding is the expected JSON shape of one holding.
type brokerHolding struct {
	TradingSymbol string  `json:"tradingsymbol"`
	Exchange      string  `json:"exchange"`
	Quantity      float64 `json:"quantity"`
	AveragePrice  float64 `json:"average_price"`
	LastPrice     float64 `json:"last_price"`
}

func (b *BrokerClient) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", fmt.Sprint(days))
	if b.Exchange != "" {
		q.Set("exchange", b.Exchange)
	}
	var raw []brokerBar
	if err := b.get(ctx, "/api/v1/bars/daily?"+q.Encode(), symbol, &raw); err != nil {
		return nil, err
	}
	bars := make([]model.OHLCV, len(raw))
	for i, rb := range raw {
		bars[i] = model.OHLCV{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	bars = model.NormalizeBars(bars)
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// FetchHoldings returns the long-term holdings of the logged-in account.
func (b *BrokerClient) FetchHoldings(ctx context.Context) ([]model.Holding, error) {
	var env struct {
		Status string          `json:"status"`
		Data   []brokerHolding `json:"data"`
	}
	if err := b.get(ctx, "/api/v1/portfolio/holdings", "", &env); err != nil {
		return nil, err
	}
	holdings := make([]model.Holding, 0, len(env.Data))
	for _, h := range env.Data {
		holdings = append(holdings, model.Holding{
			Symbol:       h.TradingSymbol,
			Exchange:     h.Exchange,
			Quantity:     h.Quantity,
			AvgCost:      h.AveragePrice,
			CurrentPrice: h.LastPrice,
		})
	}
	return holdings, nil
}

func (b *BrokerClient) get(ctx context.Context, path, symbol string, out any) error {
	token, err := b.Tokens.AccessToken()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return &UpstreamProviderError{Provider: b.Name(), Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return statusError(b.Name(), symbol, resp.StatusCode, body, true)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamProviderError{Provider: b.Name(), Symbol: symbol, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
