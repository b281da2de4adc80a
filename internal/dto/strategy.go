package dto

import (
	"encoding/json"
	"fmt"
)

type ParameterType string

const (
	ParamInteger ParameterType = "integer"
	ParamFloat   ParameterType = "float"
	ParamBoolean ParameterType = "boolean"
	ParamString  ParameterType = "string"
)

// IsNumeric reports whether parameters of this type carry min/max/step bounds.
func (t ParameterType) IsNumeric() bool {
	return t == ParamInteger || t == ParamFloat
}

type ParameterDescriptor struct {
	Name     string        `json:"name"`
	Type     ParameterType `json:"type"`
	Default  interface{}   `json:"default"`
	MinValue *float64      `json:"min_value,omitempty"`
	MaxValue *float64      `json:"max_value,omitempty"`
	Step     *float64      `json:"step,omitempty"`
}

// UnmarshalJSON tolerates both `default` and `default_value` keys, preferring
// `default` when both are present. Some backend revisions emit one, some the
// other.
func (p *ParameterDescriptor) UnmarshalJSON(data []byte) error {
	type alias ParameterDescriptor
	aux := struct {
		*alias
		DefaultValue interface{} `json:"default_value"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode parameter descriptor: %w", err)
	}
	if p.Default == nil && aux.DefaultValue != nil {
		p.Default = aux.DefaultValue
	}
	return nil
}

type StrategyDescriptor struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Parameters []ParameterDescriptor `json:"parameters"`
}

// NumericParameters returns the descriptor's numeric parameters in form order.
func (s StrategyDescriptor) NumericParameters() []ParameterDescriptor {
	var out []ParameterDescriptor
	for _, p := range s.Parameters {
		if p.Type.IsNumeric() {
			out = append(out, p)
		}
	}
	return out
}

type StrategiesResponse struct {
	Strategies []StrategyDescriptor `json:"strategies"`
}
