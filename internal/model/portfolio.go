package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one position held in the broker account.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Exchange     string  `json:"exchange,omitempty"`
	Quantity     float64 `json:"quantity"`
	AvgCost      float64 `json:"average_price"`
	CurrentPrice float64 `json:"last_price"`
}

// PnL returns (CurrentPrice - AvgCost) * Quantity rounded to 2 decimals.
func (h Holding) PnL() float64 {
	cur := decimal.NewFromFloat(h.CurrentPrice)
	avg := decimal.NewFromFloat(h.AvgCost)
	return cur.Sub(avg).Mul(decimal.NewFromFloat(h.Quantity)).Round(2).InexactFloat64()
}

// PnLPct returns the percentage gain over AvgCost rounded to 2 decimals, or 0
// when the cost basis is unknown.
func (h Holding) PnLPct() float64 {
	avg := decimal.NewFromFloat(h.AvgCost)
	if avg.IsZero() {
		return 0
	}
	cur := decimal.NewFromFloat(h.CurrentPrice)
	return cur.Sub(avg).Div(avg).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

// PortfolioSnapshot is the persisted live portfolio.
type PortfolioSnapshot struct {
	LastUpdated time.Time `json:"last_updated"`
	Holdings    []Holding `json:"holdings"`
}

// Performance holds portfolio value changes over fixed lookbacks.
type Performance struct {
	DailyPct   float64 `json:"dailyPct"`
	WeeklyPct  float64 `json:"weeklyPct"`
	MonthlyPct float64 `json:"monthlyPct"`
}
