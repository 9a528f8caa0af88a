package model

import (
	"encoding/json"
	"fmt"
)

// Classification is how well a symbol currently satisfies a strategy.
type Classification int

const (
	NoMatch Classification = iota
	PartialMatch
	StrongMatch
)

var classificationLabels = map[Classification]string{
	NoMatch:      "NO MATCH",
	PartialMatch: "PARTIAL MATCH",
	StrongMatch:  "STRONG MATCH",
}

// String returns the display label used by the dashboard.
func (c Classification) String() string {
	if l, ok := classificationLabels[c]; ok {
		return l
	}
	return "UNKNOWN"
}

// Code returns the enum-style name, e.g. STRONG_MATCH.
func (c Classification) Code() string {
	switch c {
	case StrongMatch:
		return "STRONG_MATCH"
	case PartialMatch:
		return "PARTIAL_MATCH"
	default:
		return "NO_MATCH"
	}
}

func (c Classification) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Classification) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for k, v := range classificationLabels {
		if v == s || k.Code() == s {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown classification %q", s)
}

// Band groups candidates by distance from the reference indicator.
type Band string

const (
	BandClose  Band = "close"
	BandMedium Band = "medium"
	BandFar    Band = "far"
)

var bandRank = map[Band]int{BandClose: 0, BandMedium: 1, BandFar: 2}

// Within reports whether b is no further out than max.
func (b Band) Within(max Band) bool {
	return bandRank[b] <= bandRank[max]
}

// ParseBand accepts "", close, medium or far. Empty means no limit.
func ParseBand(s string) (Band, error) {
	switch Band(s) {
	case "":
		return "", nil
	case BandClose, BandMedium, BandFar:
		return Band(s), nil
	}
	return "", fmt.Errorf("unknown band %q", s)
}

// Candidate is a universe symbol ranked by proximity to a reference indicator.
type Candidate struct {
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"currentPrice"`
	Reference    float64 `json:"ema200"`
	DistancePct  float64 `json:"distancePct"`
	Band         Band    `json:"band"`
}
