package strategy

import (
	"fmt"
	"time"

	"TrendAdvisor/internal/calculator"
	"TrendAdvisor/internal/model"
)

// RuleResult is the outcome of one rule for display and logging.
type RuleResult struct {
	Condition string `json:"condition"`
	Met       bool   `json:"met"`
}

// Evaluation is the full result of running a strategy over one symbol.
type Evaluation struct {
	Classification model.Classification
	Entry          []RuleResult
	Exit           []RuleResult
	Price          float64
	Indicators     map[string]float64
	AsOf           time.Time
}

// Engine evaluates a loaded Definition against price histories.
type Engine struct {
	def *Definition
}

func NewEngine(def *Definition) *Engine {
	return &Engine{def: def}
}

func (e *Engine) Definition() *Definition { return e.def }

// Evaluate computes the declared indicators, builds the two-bar window and
// classifies the latest bar.
func (e *Engine) Evaluate(bars []model.OHLCV) (*Evaluation, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no price bars")
	}

	// Step a: indicator series
	series, err := calculator.ComputeAll(bars, e.def.Indicators)
	if err != nil {
		return nil, err
	}

	// Step b: window over the last two bars
	last := len(bars) - 1
	w := Window{Current: snapshotAt(bars, series, last)}
	if last > 0 {
		// indicators still warming up are absent from prev; a rule reading
		// one fails with MissingIndicatorError
		prev := snapshotAt(bars, series, last-1)
		w.Previous = &prev
	}

	// Step c: rules
	entry, entryMet, err := e.evalRules(e.def.Entry, w)
	if err != nil {
		return nil, err
	}
	exit, exitMet, err := e.evalRules(e.def.Exit, w)
	if err != nil {
		return nil, err
	}

	// Step d: decision table
	return &Evaluation{
		Classification: Classify(entryMet, exitMet),
		Entry:          entry,
		Exit:           exit,
		Price:          bars[last].Close,
		Indicators:     w.Current.Indicators,
		AsOf:           bars[last].Time,
	}, nil
}

func (e *Engine) evalRules(rules []Condition, w Window) ([]RuleResult, []bool, error) {
	results := make([]RuleResult, 0, len(rules))
	met := make([]bool, 0, len(rules))
	for _, c := range rules {
		ok, err := Evaluate(c, w)
		if err != nil {
			return nil, nil, fmt.Errorf("evaluate %q: %w", c.Description(), err)
		}
		results = append(results, RuleResult{Condition: c.Description(), Met: ok})
		met = append(met, ok)
	}
	return results, met, nil
}

func snapshotAt(bars []model.OHLCV, series map[string]model.Series, i int) Snapshot {
	s := Snapshot{Bar: bars[i], Indicators: make(map[string]float64, len(series))}
	for key, ser := range series {
		if v, ok := ser.At(i); ok {
			s.Indicators[key] = v
		}
	}
	return s
}
