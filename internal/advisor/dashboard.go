package advisor

import (
	"context"

	"TrendAdvisor/internal/model"
	"TrendAdvisor/internal/portfolio"
	"TrendAdvisor/internal/strategy"
)

// Dashboard is the /api/dashboard payload.
type Dashboard struct {
	Performance model.Performance `json:"performance"`
	Holdings    []HoldingView     `json:"holdings"`
	Strategy    StrategyView      `json:"strategy"`
}

// HoldingView is one dashboard row.
type HoldingView struct {
	Symbol        string               `json:"symbol"`
	PnL           float64              `json:"pnl"`
	PnLPct        float64              `json:"pnlPct"`
	StrategyMatch model.Classification `json:"strategyMatch"`
	MatchStyle    string               `json:"matchStyle"`
	Warning       string               `json:"warning,omitempty"`
}

// StrategyView describes the active strategy.
type StrategyView struct {
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Indicators      []model.IndicatorSpec `json:"indicators"`
	EntryConditions []ConditionView       `json:"entryConditions"`
	ExitConditions  []ConditionView       `json:"exitConditions"`
}

type ConditionView struct {
	Condition string `json:"condition"`
}

// Dashboard classifies the portfolio and describes the strategy. Every held
// position appears in the output, degraded ones with a warning.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	rep, err := s.HoldingsReport(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Performance: rep.Performance,
		Holdings:    holdingViews(rep),
		Strategy:    NewStrategyView(s.Definition()),
	}, nil
}

func holdingViews(rep *portfolio.Report) []HoldingView {
	out := make([]HoldingView, 0, len(rep.Holdings))
	for _, ch := range rep.Holdings {
		out = append(out, HoldingView{
			Symbol:        ch.Holding.Symbol,
			PnL:           ch.Holding.PnL(),
			PnLPct:        ch.Holding.PnLPct(),
			StrategyMatch: ch.Classification,
			MatchStyle:    strategy.BadgeFor(ch.Classification).Style,
			Warning:       ch.Warning,
		})
	}
	return out
}

// NewStrategyView flattens a definition for display.
func NewStrategyView(def *strategy.Definition) StrategyView {
	v := StrategyView{
		Name:            def.Name,
		Description:     def.Description,
		Indicators:      append([]model.IndicatorSpec{}, def.Indicators...),
		EntryConditions: conditionViews(def.Entry),
		ExitConditions:  conditionViews(def.Exit),
	}
	return v
}

func conditionViews(conds []strategy.Condition) []ConditionView {
	out := make([]ConditionView, 0, len(conds))
	for _, c := range conds {
		out = append(out, ConditionView{Condition: c.Description()})
	}
	return out
}
