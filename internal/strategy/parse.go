package strategy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"TrendAdvisor/internal/model"
)

var (
	ruleRe     = regexp.MustCompile(`^\s*(.+?)\s+(>=|<=|>|<|crosses_above|crosses_below)\s+(.+?)\s*$`)
	callRe     = regexp.MustCompile(`^([A-Za-z]+)\s*\(\s*(\d+)\s*(?:,\s*([A-Za-z]+)\s*)?\)$`)
	underbarRe = regexp.MustCompile(`^([A-Za-z]+)_(\d+)$`)
	spacedOps  = strings.NewReplacer(" crosses above ", " crosses_above ", " crosses below ", " crosses_below ")
)

// ParseCondition turns rule text into a Condition. Accepted forms:
//
//	<operand> >|>=|<|<= <operand|number>
//	<operand> crosses_above|crosses_below <operand>
//
// where an operand is open, high, low, close, price, volume, TYPE(period),
// TYPE(period,source) or TYPE_period. The text is kept as the description.
func ParseCondition(text string) (Condition, error) {
	text = strings.TrimSpace(text)
	m := ruleRe.FindStringSubmatch(spacedOps.Replace(text))
	if m == nil {
		return nil, fmt.Errorf("cannot parse condition %q", text)
	}
	left, err := parseOperand(m[1])
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", text, err)
	}
	op := m[2]

	if op == "crosses_above" || op == "crosses_below" {
		right, err := parseOperand(m[3])
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", text, err)
		}
		dir := Above
		if op == "crosses_below" {
			dir = Below
		}
		return Crossover{Subject: left, Reference: right, Direction: dir, Text: text}, nil
	}

	cmp := Op(op)
	if n, err := strconv.ParseFloat(m[3], 64); err == nil {
		return Threshold{Subject: left, Op: cmp, Value: n, Text: text}, nil
	}
	right, err := parseOperand(m[3])
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", text, err)
	}

	switch {
	case left.IsIndicator() && right.IsIndicator():
		return IndicatorVsIndicator{Left: *left.Indicator, Op: cmp, Right: *right.Indicator, Text: text}, nil
	case right.IsIndicator():
		return PriceVsIndicator{Field: left.Field, Op: cmp, Indicator: *right.Indicator, Text: text}, nil
	case left.IsIndicator():
		return PriceVsIndicator{Field: right.Field, Op: cmp.flip(), Indicator: *left.Indicator, Text: text}, nil
	}
	return nil, fmt.Errorf("condition %q: comparison needs an indicator or a number", text)
}

func parseOperand(s string) (Operand, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Operand{}, fmt.Errorf("empty operand")
	}
	if m := callRe.FindStringSubmatch(s); m != nil {
		return indicatorOperand(m[1], m[2], m[3])
	}
	if m := underbarRe.FindStringSubmatch(s); m != nil {
		return indicatorOperand(m[1], m[2], "")
	}
	if src, ok := model.ParseSource(s); ok {
		return FieldOperand(src), nil
	}
	return Operand{}, fmt.Errorf("unknown operand %q", s)
}

func indicatorOperand(typ, period, source string) (Operand, error) {
	t := model.IndicatorType(strings.ToUpper(typ))
	if !t.Valid() {
		return Operand{}, fmt.Errorf("unknown indicator type %q", typ)
	}
	p, err := strconv.Atoi(period)
	if err != nil || p <= 0 {
		return Operand{}, fmt.Errorf("invalid period %q", period)
	}
	src, ok := model.ParseSource(source)
	if !ok {
		return Operand{}, fmt.Errorf("unknown source %q", source)
	}
	return IndicatorOperand(model.IndicatorSpec{Type: t, Period: p, Source: src}), nil
}
