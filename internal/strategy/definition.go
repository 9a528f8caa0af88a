package strategy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"TrendAdvisor/internal/model"
)

// InvalidDefinitionError reports a malformed strategy definition.
type InvalidDefinitionError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InvalidDefinitionError) Error() string {
	msg := fmt.Sprintf("invalid strategy definition: %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidDefinitionError) Unwrap() error { return e.Err }

// Universe is the optional symbol list shipped with a strategy file.
type Universe struct {
	Name     string   `yaml:"name" json:"name"`
	Exchange string   `yaml:"exchange" json:"exchange"`
	Symbols  []string `yaml:"symbols" json:"symbols"`
}

// Definition is a parsed, validated strategy. It is immutable after loading
// and safe to share between goroutines.
type Definition struct {
	Version     string
	Name        string
	Description string
	Indicators  []model.IndicatorSpec
	Entry       []Condition
	Exit        []Condition
	Universe    Universe
}

type definitionFile struct {
	Version   string   `yaml:"strategy_version"`
	Universe  Universe `yaml:"universe"`
	Technical struct {
		Name        string                `yaml:"name"`
		Description string                `yaml:"description"`
		Indicators  []model.IndicatorSpec `yaml:"indicators"`
		Entry       []string              `yaml:"entry_conditions"`
		Exit        []string              `yaml:"exit_conditions"`
	} `yaml:"technical_strategy"`
}

// LoadDefinition reads a strategy file. YAML and JSON are both accepted.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy file: %w", err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", path, err)
	}
	return def, nil
}

// ParseDefinition decodes and validates a strategy document.
func ParseDefinition(data []byte) (*Definition, error) {
	var f definitionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &InvalidDefinitionError{Field: "document", Reason: "cannot decode", Err: err}
	}
	def, err := NewDefinition(f.Technical.Name, f.Technical.Description, f.Technical.Indicators,
		f.Technical.Entry, f.Technical.Exit)
	if err != nil {
		return nil, err
	}
	def.Version = f.Version
	def.Universe = f.Universe
	return def, nil
}

// NewDefinition builds a Definition from rule text and validates it.
func NewDefinition(name, description string, indicators []model.IndicatorSpec, entry, exit []string) (*Definition, error) {
	def := &Definition{
		Name:        strings.TrimSpace(name),
		Description: description,
	}
	if def.Name == "" {
		return nil, &InvalidDefinitionError{Field: "name", Reason: "must not be empty"}
	}

	for i, spec := range indicators {
		spec = spec.Normalize()
		field := fmt.Sprintf("indicators[%d]", i)
		if !spec.Type.Valid() {
			return nil, &InvalidDefinitionError{Field: field, Reason: fmt.Sprintf("unknown type %q", spec.Type)}
		}
		if spec.Period <= 0 {
			return nil, &InvalidDefinitionError{Field: field, Reason: fmt.Sprintf("period must be positive, got %d", spec.Period)}
		}
		if _, ok := model.ParseSource(string(spec.Source)); !ok {
			return nil, &InvalidDefinitionError{Field: field, Reason: fmt.Sprintf("unknown source %q", spec.Source)}
		}
		def.Indicators = append(def.Indicators, spec)
	}

	var err error
	if def.Entry, err = parseRules("entry_conditions", entry); err != nil {
		return nil, err
	}
	if def.Exit, err = parseRules("exit_conditions", exit); err != nil {
		return nil, err
	}
	if err := def.checkReferences(); err != nil {
		return nil, err
	}
	return def, nil
}

func parseRules(field string, rules []string) ([]Condition, error) {
	out := make([]Condition, 0, len(rules))
	for i, text := range rules {
		c, err := ParseCondition(text)
		if err != nil {
			return nil, &InvalidDefinitionError{Field: fmt.Sprintf("%s[%d]", field, i), Reason: "bad rule", Err: err}
		}
		out = append(out, c)
	}
	return out, nil
}

// checkReferences fails on the first rule reading an undeclared indicator.
func (d *Definition) checkReferences() error {
	declared := make(map[string]bool, len(d.Indicators))
	for _, s := range d.Indicators {
		declared[s.Key()] = true
	}
	for _, c := range d.Rules() {
		for _, s := range c.Indicators() {
			if !declared[s.Key()] {
				return &MissingIndicatorError{Indicator: s.Key(), Condition: c.Description()}
			}
		}
	}
	return nil
}

// Rules returns entry rules followed by exit rules.
func (d *Definition) Rules() []Condition {
	out := make([]Condition, 0, len(d.Entry)+len(d.Exit))
	out = append(out, d.Entry...)
	return append(out, d.Exit...)
}

// IsDefinitionError reports whether err is a load-time strategy error.
func IsDefinitionError(err error) bool {
	var ide *InvalidDefinitionError
	var mie *MissingIndicatorError
	return errors.As(err, &ide) || errors.As(err, &mie)
}
