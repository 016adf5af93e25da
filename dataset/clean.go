package dataset

import (
	"fmt"

	"gradecast/schema"
)

// Rule inspects one sample and rejects it with an error when it should not
// enter training.
type Rule interface {
	Name() string
	Apply(*Sample) error
}

// Issue records a rejected sample for the training report.
type Issue struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
	Row     int    `json:"row"`
}

// CleanStats summarizes one cleaning pass.
type CleanStats struct {
	Total    int            `json:"total"`
	Passed   int            `json:"passed"`
	Rejected int            `json:"rejected"`
	ByRule   map[string]int `json:"by_rule"`
}

type Cleaner struct {
	rules []Rule
	stats CleanStats
}

// NewCleaner builds a cleaner with the default rule set for a schema.
func NewCleaner(s *schema.Schema) *Cleaner {
	c := &Cleaner{stats: CleanStats{ByRule: make(map[string]int)}}
	c.AddRule(&SchemaRule{Schema: s})
	c.AddRule(&CompletenessRule{Schema: s})
	return c
}

func (c *Cleaner) AddRule(rule Rule) {
	c.rules = append(c.rules, rule)
}

// Clean applies every rule to every sample and returns the survivors.
func (c *Cleaner) Clean(samples []Sample) ([]Sample, []Issue) {
	var cleaned []Sample
	var issues []Issue

	for i := range samples {
		c.stats.Total++
		rejected := false
		for _, rule := range c.rules {
			if err := rule.Apply(&samples[i]); err != nil {
				issues = append(issues, Issue{Rule: rule.Name(), Message: err.Error(), Row: i})
				c.stats.ByRule[rule.Name()]++
				rejected = true
				break
			}
		}
		if rejected {
			c.stats.Rejected++
			continue
		}
		c.stats.Passed++
		cleaned = append(cleaned, samples[i])
	}
	return cleaned, issues
}

func (c *Cleaner) Stats() CleanStats {
	return c.stats
}

// SchemaRule rejects samples whose declared fields fail schema validation,
// so a corrupt CSV row cannot skew the fitted scaler statistics.
type SchemaRule struct {
	Schema *schema.Schema
}

func (r *SchemaRule) Name() string { return "schema_validation" }

func (r *SchemaRule) Apply(s *Sample) error {
	_, err := r.Schema.Validate(s.Record)
	return err
}

// CompletenessRule rejects training samples with missing declared features.
// Sparse records are fine at inference time, but training on them would bake
// zero-fill into the learned statistics.
type CompletenessRule struct {
	Schema *schema.Schema
}

func (r *CompletenessRule) Name() string { return "completeness" }

func (r *CompletenessRule) Apply(s *Sample) error {
	for _, f := range r.Schema.Numeric {
		if _, ok := s.Record[f.Name]; !ok {
			return fmt.Errorf("missing numeric feature %s", f.Name)
		}
	}
	for _, f := range r.Schema.Boolean {
		if _, ok := s.Record[f.Name]; !ok {
			return fmt.Errorf("missing boolean feature %s", f.Name)
		}
	}
	for _, f := range r.Schema.Categorical {
		if _, ok := s.Record[f.Name]; !ok {
			return fmt.Errorf("missing categorical feature %s", f.Name)
		}
	}
	return nil
}
