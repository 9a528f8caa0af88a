package strategy

import (
	"errors"
	"fmt"

	"TrendAdvisor/internal/model"
)

// ErrNoPreviousBar is returned when a crossover is evaluated without a
// previous snapshot.
var ErrNoPreviousBar = errors.New("crossover needs a previous bar")

// MissingIndicatorError reports a rule that reads an indicator which is not
// declared by the strategy or has no value at the evaluated bar.
type MissingIndicatorError struct {
	Indicator string
	Condition string
}

func (e *MissingIndicatorError) Error() string {
	if e.Condition == "" {
		return fmt.Sprintf("indicator %s not available", e.Indicator)
	}
	return fmt.Sprintf("condition %q references indicator %s which is not available", e.Condition, e.Indicator)
}

// Snapshot is one bar plus the indicator values defined at it, keyed by
// IndicatorSpec.Key.
type Snapshot struct {
	Bar        model.OHLCV
	Indicators map[string]float64
}

// Window is the two-bar view a rule is evaluated over. Previous is nil when
// only one bar is available.
type Window struct {
	Current  Snapshot
	Previous *Snapshot
}

// Evaluate runs a single rule against the window. It holds no state between
// calls.
func Evaluate(cond Condition, w Window) (bool, error) {
	switch c := cond.(type) {
	case PriceVsIndicator:
		return evalPriceVsIndicator(c, w)
	case IndicatorVsIndicator:
		return evalIndicatorVsIndicator(c, w)
	case Crossover:
		return evalCrossover(c, w)
	case Threshold:
		return evalThreshold(c, w)
	case nil:
		return false, errors.New("nil condition")
	}
	return false, fmt.Errorf("unsupported condition type %T", cond)
}

func evalPriceVsIndicator(c PriceVsIndicator, w Window) (bool, error) {
	ind, err := indicatorValue(w.Current, c.Indicator, c)
	if err != nil {
		return false, err
	}
	return c.Op.compare(c.Field.Value(w.Current.Bar), ind), nil
}

func evalIndicatorVsIndicator(c IndicatorVsIndicator, w Window) (bool, error) {
	left, err := indicatorValue(w.Current, c.Left, c)
	if err != nil {
		return false, err
	}
	right, err := indicatorValue(w.Current, c.Right, c)
	if err != nil {
		return false, err
	}
	return c.Op.compare(left, right), nil
}

func evalCrossover(c Crossover, w Window) (bool, error) {
	if w.Previous == nil {
		return false, ErrNoPreviousBar
	}
	curS, err := operandValue(w.Current, c.Subject, c)
	if err != nil {
		return false, err
	}
	curR, err := operandValue(w.Current, c.Reference, c)
	if err != nil {
		return false, err
	}
	prevS, err := operandValue(*w.Previous, c.Subject, c)
	if err != nil {
		return false, err
	}
	prevR, err := operandValue(*w.Previous, c.Reference, c)
	if err != nil {
		return false, err
	}
	if c.Direction == Below {
		return prevS >= prevR && curS < curR, nil
	}
	return prevS <= prevR && curS > curR, nil
}

func evalThreshold(c Threshold, w Window) (bool, error) {
	v, err := operandValue(w.Current, c.Subject, c)
	if err != nil {
		return false, err
	}
	return c.Op.compare(v, c.Value), nil
}

func operandValue(s Snapshot, o Operand, cond Condition) (float64, error) {
	if o.Indicator != nil {
		return indicatorValue(s, *o.Indicator, cond)
	}
	return o.Field.Value(s.Bar), nil
}

func indicatorValue(s Snapshot, spec model.IndicatorSpec, cond Condition) (float64, error) {
	key := spec.Key()
	v, ok := s.Indicators[key]
	if !ok {
		return 0, &MissingIndicatorError{Indicator: key, Condition: cond.Description()}
	}
	return v, nil
}
