package strategy

import (
	"fmt"
	"strconv"

	"TrendAdvisor/internal/model"
)

// Op is a comparison operator.
type Op string

const (
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
)

func (o Op) compare(a, b float64) bool {
	switch o {
	case OpGreater:
		return a > b
	case OpGreaterEqual:
		return a >= b
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	}
	return false
}

// flip mirrors the operator so that `a op b` == `b op.flip() a`.
func (o Op) flip() Op {
	switch o {
	case OpGreater:
		return OpLess
	case OpGreaterEqual:
		return OpLessEqual
	case OpLess:
		return OpGreater
	case OpLessEqual:
		return OpGreaterEqual
	}
	return o
}

// Operand is either a bar field or an indicator. Indicator wins when set.
type Operand struct {
	Field     model.PriceSource
	Indicator *model.IndicatorSpec
}

func FieldOperand(src model.PriceSource) Operand { return Operand{Field: src} }

func IndicatorOperand(spec model.IndicatorSpec) Operand {
	spec = spec.Normalize()
	return Operand{Indicator: &spec}
}

func (o Operand) IsIndicator() bool { return o.Indicator != nil }

func (o Operand) String() string {
	if o.Indicator != nil {
		return o.Indicator.Key()
	}
	if o.Field == "" {
		return string(model.SourceClose)
	}
	return string(o.Field)
}

// Direction of a crossover.
type Direction int

const (
	Above Direction = iota
	Below
)

func (d Direction) String() string {
	if d == Below {
		return "crosses_below"
	}
	return "crosses_above"
}

// Condition is a single entry or exit rule. The set of implementations is
// closed: PriceVsIndicator, IndicatorVsIndicator, Crossover and Threshold.
type Condition interface {
	Description() string
	// Indicators lists the indicator specs the rule reads.
	Indicators() []model.IndicatorSpec
	condition()
}

// PriceVsIndicator compares a bar field to an indicator, e.g. "close > EMA(200)".
type PriceVsIndicator struct {
	Field     model.PriceSource
	Op        Op
	Indicator model.IndicatorSpec
	Text      string
}

// IndicatorVsIndicator compares two indicators, e.g. "EMA(50) > EMA(200)".
type IndicatorVsIndicator struct {
	Left  model.IndicatorSpec
	Op    Op
	Right model.IndicatorSpec
	Text  string
}

// Crossover is true when Subject moved through Reference between the previous
// and the current bar.
type Crossover struct {
	Subject   Operand
	Reference Operand
	Direction Direction
	Text      string
}

// Threshold compares an operand to a constant, e.g. "volume > 1000000".
type Threshold struct {
	Subject Operand
	Op      Op
	Value   float64
	Text    string
}

func (PriceVsIndicator) condition()     {}
func (IndicatorVsIndicator) condition() {}
func (Crossover) condition()            {}
func (Threshold) condition()            {}

func (c PriceVsIndicator) Description() string {
	if c.Text != "" {
		return c.Text
	}
	return fmt.Sprintf("%s %s %s", FieldOperand(c.Field), c.Op, c.Indicator.Key())
}

func (c IndicatorVsIndicator) Description() string {
	if c.Text != "" {
		return c.Text
	}
	return fmt.Sprintf("%s %s %s", c.Left.Key(), c.Op, c.Right.Key())
}

func (c Crossover) Description() string {
	if c.Text != "" {
		return c.Text
	}
	return fmt.Sprintf("%s %s %s", c.Subject, c.Direction, c.Reference)
}

func (c Threshold) Description() string {
	if c.Text != "" {
		return c.Text
	}
	return fmt.Sprintf("%s %s %s", c.Subject, c.Op, strconv.FormatFloat(c.Value, 'f', -1, 64))
}

func (c PriceVsIndicator) Indicators() []model.IndicatorSpec {
	return []model.IndicatorSpec{c.Indicator}
}

func (c IndicatorVsIndicator) Indicators() []model.IndicatorSpec {
	return []model.IndicatorSpec{c.Left, c.Right}
}

func (c Crossover) Indicators() []model.IndicatorSpec {
	return operandSpecs(c.Subject, c.Reference)
}

func (c Threshold) Indicators() []model.IndicatorSpec {
	return operandSpecs(c.Subject)
}

func operandSpecs(ops ...Operand) []model.IndicatorSpec {
	var out []model.IndicatorSpec
	for _, o := range ops {
		if o.Indicator != nil {
			out = append(out, *o.Indicator)
		}
	}
	return out
}
