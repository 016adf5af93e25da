package ml

import (
	"fmt"

	"gradecast/schema"
)

// Encoder turns one raw record into the exact numeric vector the model was
// trained on. It is deterministic and side-effect free; the schema and
// bundle it reads are shared read-only state.
type Encoder struct {
	schema *schema.Schema
	bundle *Bundle
}

func NewEncoder(s *schema.Schema, b *Bundle) (*Encoder, error) {
	if err := b.validate(s); err != nil {
		return nil, err
	}
	return &Encoder{schema: s, bundle: b}, nil
}

// Encode expands, fills, aligns, and standardizes one record.
//
// Expansion can never produce the full training column set from a single
// record, so every column the record did not fire is filled with 0 before
// scaling. The bundle's feature_names is the authoritative column order.
func (e *Encoder) Encode(rec schema.Record) ([]float64, error) {
	expanded, err := expandRecord(e.schema, rec)
	if err != nil {
		return nil, err
	}

	vec := make([]float64, len(e.bundle.FeatureNames))
	for i, col := range e.bundle.FeatureNames {
		stat, ok := e.bundle.Scaler[col]
		if !ok {
			// validate() should have rejected this bundle at load.
			return nil, &ConfigurationError{Detail: "no scaler statistics for column " + col}
		}
		vec[i] = (expanded[col] - stat.Mean) / stat.Scale
	}
	return vec, nil
}

// expandRecord maps a raw record onto the schema's expanded columns, before
// any scaling. Absent columns are simply absent from the map; callers treat
// them as 0. Unknown categorical levels fire no indicator column.
func expandRecord(s *schema.Schema, rec schema.Record) (map[string]float64, error) {
	expanded := make(map[string]float64, len(rec))

	for name, value := range rec {
		if _, ok := s.NumericByName(name); ok {
			v, err := schema.ParseNumber(value)
			if err != nil {
				return nil, &EncodingError{Field: name, Reason: err.Error()}
			}
			expanded[name] = v
			continue
		}
		if f, ok := s.BooleanByName(name); ok {
			v, err := schema.ParseBool(value, f)
			if err != nil {
				return nil, &EncodingError{Field: name, Reason: err.Error()}
			}
			if v {
				expanded[name] = 1
			} else {
				expanded[name] = 0
			}
			continue
		}
		if f, ok := s.CategoricalByName(name); ok {
			level, ok := value.(string)
			if !ok {
				return nil, &EncodingError{Field: name, Reason: fmt.Sprintf("expected a string level, got %T", value)}
			}
			for _, known := range f.Levels {
				if known == level {
					expanded[schema.IndicatorColumn(name, level)] = 1
					break
				}
			}
			continue
		}
		// Undeclared fields were already flagged by validation; skip.
	}

	return expanded, nil
}
