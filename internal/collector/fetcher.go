package collector

import (
	"context"

	"TrendAdvisor/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchDailyBars returns up to days daily bars, oldest first.
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	Name() string
}

// HoldingsSource returns the account's current holdings.
type HoldingsSource interface {
	FetchHoldings(ctx context.Context) ([]model.Holding, error)
}

// TokenSource supplies the broker access token.
type TokenSource interface {
	AccessToken() (string, error)
}
