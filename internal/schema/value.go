package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"trading-platform-client/internal/dto"
)

// Value is a typed form reading. Specified is false when the input was empty
// or missing; the run-request builder substitutes the last-known context
// value or the descriptor default.
type Value struct {
	Data      interface{}
	Specified bool
}

// Values maps parameter name to its reading.
type Values map[string]Value

// RangeTriple is a (start, end, step) reading for one numeric parameter.
type RangeTriple struct {
	Start float64
	End   float64
	Step  float64
}

// ValidationError names the parameter whose input failed to parse or whose
// range is inconsistent.
type ValidationError struct {
	Parameter string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Parameter, e.Reason)
}

// Coerce parses input text into the declared parameter type.
func Coerce(text string, t dto.ParameterType) (interface{}, error) {
	text = strings.TrimSpace(text)
	switch t {
	case dto.ParamInteger:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", text)
		}
		return v, nil
	case dto.ParamFloat:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", text)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("not a finite number: %q", text)
		}
		return v, nil
	case dto.ParamBoolean:
		v, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", text)
		}
		return v, nil
	default:
		return text, nil
	}
}

// CoerceAny converts an arbitrary decoded value (typically the product of
// JSON unmarshalling) into the declared parameter type.
func CoerceAny(v interface{}, t dto.ParameterType) (interface{}, error) {
	if v == nil {
		return nil, fmt.Errorf("nil value")
	}
	switch t {
	case dto.ParamInteger:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case float64:
			return int64(math.Round(n)), nil
		case string:
			return Coerce(n, t)
		}
	case dto.ParamFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		case string:
			return Coerce(n, t)
		}
	case dto.ParamBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return Coerce(b, t)
		}
	case dto.ParamString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", v), nil
	}
	return nil, fmt.Errorf("cannot coerce %T to %s", v, t)
}

// FormatValue renders a typed value back into input text.
func FormatValue(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(n, 10)
	case int:
		return strconv.Itoa(n)
	case bool:
		return strconv.FormatBool(n)
	case string:
		return n
	default:
		return fmt.Sprintf("%v", n)
	}
}

// NumericValue extracts a float64 from a typed reading.
func NumericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
