package strategy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendAdvisor/internal/model"
)

func TestLoadDefinition_JSON(t *testing.T) {
	def, err := LoadDefinition(filepath.Join("testdata", "ema_trend.json"))
	require.NoError(t, err)

	assert.Equal(t, "EMA Trend Pullback", def.Name)
	assert.Equal(t, "1.0.0", def.Version)
	assert.Equal(t, []string{"RELIANCE", "TCS", "INFY"}, def.Universe.Symbols)
	require.Len(t, def.Indicators, 3)
	assert.Equal(t, "EMA(20)", def.Indicators[0].Key())
	require.Len(t, def.Entry, 2)
	require.Len(t, def.Exit, 2)
	assert.IsType(t, Crossover{}, def.Exit[0])
	assert.Len(t, def.Rules(), 4)
}

func TestLoadDefinition_ShippedConfig(t *testing.T) {
	def, err := LoadDefinition(filepath.Join("..", "..", "configs", "strategy.json"))
	require.NoError(t, err)
	assert.Len(t, def.Indicators, 4)
	assert.Len(t, def.Entry, 3)
	assert.IsType(t, Threshold{}, def.Entry[2])
	assert.IsType(t, Crossover{}, def.Exit[0])
	assert.Empty(t, def.Universe.Symbols)
}

func TestLoadDefinition_YAML(t *testing.T) {
	doc := `
technical_strategy:
  name: Golden Cross
  indicators:
    - {type: sma, period: 50}
    - {type: sma, period: 200}
  entry_conditions:
    - SMA(50) crosses_above SMA(200)
  exit_conditions: []
`
	path := filepath.Join(t.TempDir(), "golden.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	def, err := LoadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, model.IndicatorSMA, def.Indicators[0].Type)
	assert.Equal(t, model.SourceClose, def.Indicators[0].Source)
	assert.Empty(t, def.Exit)
}

func TestLoadDefinition_MissingFile(t *testing.T) {
	_, err := LoadDefinition(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestNewDefinition_Validation(t *testing.T) {
	ema := []model.IndicatorSpec{{Type: model.IndicatorEMA, Period: 200}}

	tests := []struct {
		name       string
		defName    string
		indicators []model.IndicatorSpec
		entry      []string
		missing    bool
	}{
		{"empty name", " ", ema, nil, false},
		{"unknown type", "x", []model.IndicatorSpec{{Type: "MACD", Period: 12}}, nil, false},
		{"zero period", "x", []model.IndicatorSpec{{Type: model.IndicatorEMA, Period: 0}}, nil, false},
		{"bad source", "x", []model.IndicatorSpec{{Type: model.IndicatorEMA, Period: 9, Source: "median"}}, nil, false},
		{"bad grammar", "x", ema, []string{"Stop loss hit"}, false},
		{"undeclared indicator", "x", ema, []string{"close > EMA(50)"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDefinition(tt.defName, "", tt.indicators, tt.entry, nil)
			require.Error(t, err)
			assert.True(t, IsDefinitionError(err))
			var mie *MissingIndicatorError
			assert.Equal(t, tt.missing, errors.As(err, &mie))
		})
	}
}

func TestNewDefinition_SourceSpecificKeys(t *testing.T) {
	_, err := NewDefinition("hi", "", []model.IndicatorSpec{{Type: model.IndicatorHighest, Period: 20, Source: model.SourceHigh}},
		[]string{"close > HIGHEST(20,high)"}, nil)
	require.NoError(t, err)

	_, err = NewDefinition("hi", "", []model.IndicatorSpec{{Type: model.IndicatorHighest, Period: 20, Source: model.SourceHigh}},
		[]string{"close > HIGHEST(20)"}, nil)
	assert.Error(t, err)
}
