package portfolio

import (
	"github.com/shopspring/decimal"

	"TrendAdvisor/internal/model"
)

// Lookbacks in trading bars.
const (
	DailyBars   = 1
	WeeklyBars  = 5
	MonthlyBars = 21
)

// ComputePerformance returns the change of the portfolio's market value over
// the last 1, 5 and 21 bars. Holdings whose history is shorter than a lookback
// are left out of that lookback only.
func ComputePerformance(holdings []model.Holding, bars map[string][]model.OHLCV) model.Performance {
	return model.Performance{
		DailyPct:   valueChangePct(holdings, bars, DailyBars),
		WeeklyPct:  valueChangePct(holdings, bars, WeeklyBars),
		MonthlyPct: valueChangePct(holdings, bars, MonthlyBars),
	}
}

func valueChangePct(holdings []model.Holding, bars map[string][]model.OHLCV, lookback int) float64 {
	now, then := decimal.Zero, decimal.Zero
	for _, h := range holdings {
		b := bars[h.Symbol]
		if len(b) <= lookback {
			continue
		}
		qty := decimal.NewFromFloat(h.Quantity)
		now = now.Add(qty.Mul(decimal.NewFromFloat(b[len(b)-1].Close)))
		then = then.Add(qty.Mul(decimal.NewFromFloat(b[len(b)-1-lookback].Close)))
	}
	if then.IsZero() {
		return 0
	}
	return now.Sub(then).Div(then).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
