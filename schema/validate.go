package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is one raw client-submitted feature mapping. Values arrive from
// JSON as float64, string, or bool.
type Record map[string]interface{}

// FieldError describes a single rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a recoverable input error: the caller can fix the
// listed fields and resubmit.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid record: " + strings.Join(parts, "; ")
}

// Warning flags a suspicious but accepted field, such as an unknown
// categorical level or a field the schema does not declare.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks every declared field present in the record. Out-of-range
// numerics are rejected, never clamped, so the serving input distribution
// stays comparable to training. Unknown categorical levels and undeclared
// fields are warnings only. Missing fields are left to the encoder.
func (s *Schema) Validate(rec Record) ([]Warning, error) {
	var fieldErrs []FieldError
	var warnings []Warning

	for name, value := range rec {
		if f, ok := s.NumericByName(name); ok {
			v, err := ParseNumber(value)
			if err != nil {
				fieldErrs = append(fieldErrs, FieldError{Field: name, Message: err.Error()})
				continue
			}
			if v < f.Min || v > f.Max {
				fieldErrs = append(fieldErrs, FieldError{
					Field:   name,
					Message: fmt.Sprintf("value %v out of range [%v, %v]", v, f.Min, f.Max),
				})
			}
			continue
		}
		if f, ok := s.BooleanByName(name); ok {
			if _, err := ParseBool(value, f); err != nil {
				fieldErrs = append(fieldErrs, FieldError{Field: name, Message: err.Error()})
			}
			continue
		}
		if f, ok := s.CategoricalByName(name); ok {
			level, ok := value.(string)
			if !ok {
				fieldErrs = append(fieldErrs, FieldError{
					Field:   name,
					Message: fmt.Sprintf("expected a string level, got %T", value),
				})
				continue
			}
			if !containsLevel(f.Levels, level) {
				warnings = append(warnings, Warning{
					Field:   name,
					Message: fmt.Sprintf("unknown level %q, indicator columns will be zero", level),
				})
			}
			continue
		}
		warnings = append(warnings, Warning{Field: name, Message: "not a declared feature, ignored"})
	}

	if len(fieldErrs) > 0 {
		return warnings, &ValidationError{Fields: fieldErrs}
	}
	return warnings, nil
}

// ParseNumber accepts native JSON numbers and numeric strings. Anything
// else, including boolean values, is an error.
func ParseNumber(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
}

// ParseBool accepts a native bool or one of the feature's declared tokens,
// case-insensitively.
func ParseBool(value interface{}, f BoolFeature) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case strings.ToLower(f.TrueToken):
			return true, nil
		case strings.ToLower(f.FalseToken):
			return false, nil
		}
		return false, fmt.Errorf("value %q is not %q or %q", v, f.TrueToken, f.FalseToken)
	default:
		return false, fmt.Errorf("expected a boolean or token, got %T", value)
	}
}

func containsLevel(levels []string, level string) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}
