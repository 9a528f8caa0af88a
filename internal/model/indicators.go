package model

import (
	"fmt"
	"strings"
)

// IndicatorType names a derived series.
type IndicatorType string

const (
	IndicatorEMA     IndicatorType = "EMA"
	IndicatorSMA     IndicatorType = "SMA"
	IndicatorRSI     IndicatorType = "RSI"
	IndicatorHighest IndicatorType = "HIGHEST"
	IndicatorLowest  IndicatorType = "LOWEST"
)

// Valid reports whether t is a known indicator type.
func (t IndicatorType) Valid() bool {
	switch t {
	case IndicatorEMA, IndicatorSMA, IndicatorRSI, IndicatorHighest, IndicatorLowest:
		return true
	}
	return false
}

// PriceSource is the bar field an indicator or condition reads.
type PriceSource string

const (
	SourceOpen   PriceSource = "open"
	SourceHigh   PriceSource = "high"
	SourceLow    PriceSource = "low"
	SourceClose  PriceSource = "close"
	SourceVolume PriceSource = "volume"
)

// ParseSource accepts a field name; "price" is an alias of close.
func ParseSource(s string) (PriceSource, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "close", "price":
		return SourceClose, true
	case "open":
		return SourceOpen, true
	case "high":
		return SourceHigh, true
	case "low":
		return SourceLow, true
	case "volume":
		return SourceVolume, true
	}
	return "", false
}

// Value extracts the field from a bar.
func (s PriceSource) Value(b OHLCV) float64 {
	switch s {
	case SourceOpen:
		return b.Open
	case SourceHigh:
		return b.High
	case SourceLow:
		return b.Low
	case SourceVolume:
		return b.Volume
	default:
		return b.Close
	}
}

// IndicatorSpec identifies a derived series, e.g. {EMA, 200, close}.
type IndicatorSpec struct {
	Type   IndicatorType `yaml:"type" json:"type"`
	Period int           `yaml:"period" json:"period"`
	Source PriceSource   `yaml:"source" json:"source"`
}

// Key is the canonical name used to look the indicator up: "EMA(200)" for
// close-based specs, "EMA(200,high)" otherwise.
func (s IndicatorSpec) Key() string {
	src := s.Source
	if src == "" {
		src = SourceClose
	}
	if src == SourceClose {
		return fmt.Sprintf("%s(%d)", s.Type, s.Period)
	}
	return fmt.Sprintf("%s(%d,%s)", s.Type, s.Period, src)
}

func (s IndicatorSpec) String() string { return s.Key() }

// Normalize upper-cases the type and fills the default source.
func (s IndicatorSpec) Normalize() IndicatorSpec {
	s.Type = IndicatorType(strings.ToUpper(strings.TrimSpace(string(s.Type))))
	if src, ok := ParseSource(string(s.Source)); ok {
		s.Source = src
	}
	return s
}

// Series is an indicator aligned to the bars it was derived from. Values[i]
// belongs to bar Offset+i; bars before Offset have no value.
type Series struct {
	Spec   IndicatorSpec
	Offset int
	Values []float64
}

// Len returns the number of bars the series was aligned to.
func (s Series) Len() int { return s.Offset + len(s.Values) }

// At returns the value at bar index i, if defined.
func (s Series) At(i int) (float64, bool) {
	j := i - s.Offset
	if j < 0 || j >= len(s.Values) {
		return 0, false
	}
	return s.Values[j], true
}

// Last returns the value at the final bar.
func (s Series) Last() (float64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}
