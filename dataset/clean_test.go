package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradecast/schema"
)

func cleanerSchema() *schema.Schema {
	return &schema.Schema{
		Numeric: []schema.NumericFeature{
			{Name: "absences", Min: 0, Max: 93},
		},
		Categorical: []schema.CategoricalFeature{
			{Name: "school", Levels: []string{"GP", "MS"}},
		},
		Boolean: []schema.BoolFeature{
			{Name: "internet", TrueToken: "yes", FalseToken: "no"},
		},
	}
}

func goodSample() Sample {
	return Sample{
		Record: schema.Record{
			"absences": "4",
			"school":   "GP",
			"internet": "yes",
		},
		Grade: "B",
	}
}

func TestCleanPassesValidSamples(t *testing.T) {
	c := NewCleaner(cleanerSchema())

	cleaned, issues := c.Clean([]Sample{goodSample(), goodSample()})
	assert.Len(t, cleaned, 2)
	assert.Empty(t, issues)

	stats := c.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Passed)
	assert.Equal(t, 0, stats.Rejected)
}

func TestCleanRejectsInvalidValues(t *testing.T) {
	c := NewCleaner(cleanerSchema())

	bad := goodSample()
	bad.Record["absences"] = "lots"

	cleaned, issues := c.Clean([]Sample{goodSample(), bad})
	assert.Len(t, cleaned, 1)
	require.Len(t, issues, 1)
	assert.Equal(t, "schema_validation", issues[0].Rule)
	assert.Equal(t, 1, issues[0].Row)
}

func TestCleanRejectsOutOfRange(t *testing.T) {
	c := NewCleaner(cleanerSchema())

	bad := goodSample()
	bad.Record["absences"] = "200"

	cleaned, issues := c.Clean([]Sample{bad})
	assert.Empty(t, cleaned)
	require.Len(t, issues, 1)
	assert.Equal(t, "schema_validation", issues[0].Rule)
}

func TestCleanRejectsIncompleteSamples(t *testing.T) {
	c := NewCleaner(cleanerSchema())

	sparse := goodSample()
	delete(sparse.Record, "internet")

	cleaned, issues := c.Clean([]Sample{sparse})
	assert.Empty(t, cleaned)
	require.Len(t, issues, 1)
	assert.Equal(t, "completeness", issues[0].Rule)
	assert.Contains(t, issues[0].Message, "internet")
}

func TestCleanStatsCountByRule(t *testing.T) {
	c := NewCleaner(cleanerSchema())

	badValue := goodSample()
	badValue.Record["absences"] = "x"
	sparse := goodSample()
	delete(sparse.Record, "school")

	c.Clean([]Sample{goodSample(), badValue, sparse})

	stats := c.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Passed)
	assert.Equal(t, 2, stats.Rejected)
	assert.Equal(t, 1, stats.ByRule["schema_validation"])
	assert.Equal(t, 1, stats.ByRule["completeness"])
}

type alwaysReject struct{}

func (alwaysReject) Name() string          { return "always_reject" }
func (alwaysReject) Apply(s *Sample) error { return assert.AnError }

func TestCleanCustomRule(t *testing.T) {
	c := NewCleaner(cleanerSchema())
	c.AddRule(alwaysReject{})

	cleaned, issues := c.Clean([]Sample{goodSample()})
	assert.Empty(t, cleaned)
	require.Len(t, issues, 1)
	assert.Equal(t, "always_reject", issues[0].Rule)
}
