package ml

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"gradecast/schema"
)

// CurrentBundleVersion is bumped whenever the artifact layout changes.
const CurrentBundleVersion = 1

// ScalerStat holds the training-time standardization statistics for one
// column. Inference reuses these exactly; recomputing from a single request
// would be a correctness bug.
type ScalerStat struct {
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

// Bundle is the single coupling point between the offline training pipeline
// and the serving path. It is loaded once, validated against the live
// schema, and treated as read-only afterwards.
type Bundle struct {
	SchemaVersion int       `json:"schema_version"`
	TrainedAt     time.Time `json:"trained_at"`

	Classes      []string              `json:"classes"`
	FeatureNames []string              `json:"feature_names"`
	Scaler       map[string]ScalerStat `json:"scaler"`
	Levels       map[string][]string   `json:"categorical_levels"`

	Forest *Forest `json:"forest"`
}

// Save writes the bundle as a single JSON file.
func (b *Bundle) Save(path string) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// LoadBundle reads a bundle from disk and validates it against the schema.
// Any inconsistency is a ConfigurationError; callers must refuse to serve.
func LoadBundle(path string, s *schema.Schema) (*Bundle, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Bundle
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, &ConfigurationError{Detail: "bundle is not valid JSON: " + err.Error()}
	}
	if err := b.validate(s); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Bundle) validate(s *schema.Schema) error {
	if b.SchemaVersion != CurrentBundleVersion {
		return &ConfigurationError{
			Detail: "unsupported bundle schema version",
		}
	}
	if len(b.Classes) == 0 {
		return &ConfigurationError{Detail: "bundle has no class labels"}
	}
	if b.Forest == nil || len(b.Forest.Trees) == 0 {
		return &ConfigurationError{Detail: "bundle has no trained model"}
	}
	if b.Forest.NClasses != len(b.Classes) {
		return &ConfigurationError{Detail: "forest class count disagrees with label set"}
	}

	// feature_names must equal the schema expansion exactly, duplicates
	// included. A drifted column set would corrupt every prediction
	// silently, so this is fatal.
	want := append([]string(nil), s.Columns()...)
	got := append([]string(nil), b.FeatureNames...)
	sort.Strings(want)
	sort.Strings(got)
	if len(got) != len(want) {
		return &ConfigurationError{Detail: "feature_names length does not match schema expansion"}
	}
	for i := range want {
		if got[i] != want[i] {
			return &ConfigurationError{Detail: "feature " + got[i] + " is not produced by the schema"}
		}
	}
	for _, name := range b.FeatureNames {
		stat, ok := b.Scaler[name]
		if !ok {
			return &ConfigurationError{Detail: "no scaler statistics for column " + name}
		}
		if stat.Scale == 0 {
			return &ConfigurationError{Detail: "zero scale for column " + name}
		}
	}

	for _, f := range s.Categorical {
		levels, ok := b.Levels[f.Name]
		if !ok {
			return &ConfigurationError{Detail: "no encoder table for feature " + f.Name}
		}
		if len(levels) != len(f.Levels) {
			return &ConfigurationError{Detail: "encoder table for " + f.Name + " disagrees with schema levels"}
		}
		for i, level := range levels {
			if f.Levels[i] != level {
				return &ConfigurationError{Detail: "encoder table for " + f.Name + " disagrees with schema levels"}
			}
		}
	}
	return nil
}
