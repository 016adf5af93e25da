// Package schema declares the student feature set the model is trained on
// and validates raw client records against it.
package schema

type NumericFeature struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

type CategoricalFeature struct {
	Name   string   `json:"name"`
	Levels []string `json:"levels"`
}

type BoolFeature struct {
	Name       string `json:"name"`
	TrueToken  string `json:"true_token"`
	FalseToken string `json:"false_token"`
}

// Schema is immutable after construction and shared by all requests.
type Schema struct {
	Numeric     []NumericFeature
	Categorical []CategoricalFeature
	Boolean     []BoolFeature
}

// Student is the canonical schema for the UCI student performance dataset.
// Bounds follow the dataset documentation.
func Student() *Schema {
	return &Schema{
		Numeric: []NumericFeature{
			{Name: "age", Min: 15, Max: 22},
			{Name: "Medu", Min: 0, Max: 4},
			{Name: "Fedu", Min: 0, Max: 4},
			{Name: "traveltime", Min: 1, Max: 4},
			{Name: "studytime", Min: 1, Max: 4},
			{Name: "failures", Min: 0, Max: 4},
			{Name: "famrel", Min: 1, Max: 5},
			{Name: "freetime", Min: 1, Max: 5},
			{Name: "goout", Min: 1, Max: 5},
			{Name: "Dalc", Min: 1, Max: 5},
			{Name: "Walc", Min: 1, Max: 5},
			{Name: "health", Min: 1, Max: 5},
			{Name: "absences", Min: 0, Max: 93},
		},
		Categorical: []CategoricalFeature{
			{Name: "school", Levels: []string{"GP", "MS"}},
			{Name: "sex", Levels: []string{"F", "M"}},
			{Name: "address", Levels: []string{"U", "R"}},
			{Name: "famsize", Levels: []string{"LE3", "GT3"}},
			{Name: "Pstatus", Levels: []string{"T", "A"}},
			{Name: "Mjob", Levels: []string{"teacher", "health", "services", "at_home", "other"}},
			{Name: "Fjob", Levels: []string{"teacher", "health", "services", "at_home", "other"}},
			{Name: "reason", Levels: []string{"home", "reputation", "course", "other"}},
			{Name: "guardian", Levels: []string{"mother", "father", "other"}},
		},
		Boolean: []BoolFeature{
			{Name: "schoolsup", TrueToken: "yes", FalseToken: "no"},
			{Name: "famsup", TrueToken: "yes", FalseToken: "no"},
			{Name: "paid", TrueToken: "yes", FalseToken: "no"},
			{Name: "activities", TrueToken: "yes", FalseToken: "no"},
			{Name: "nursery", TrueToken: "yes", FalseToken: "no"},
			{Name: "higher", TrueToken: "yes", FalseToken: "no"},
			{Name: "internet", TrueToken: "yes", FalseToken: "no"},
			{Name: "romantic", TrueToken: "yes", FalseToken: "no"},
		},
	}
}

// Columns returns the full post-encoding column set in declaration order:
// numeric columns, boolean columns, then one indicator column per
// categorical level. Training and inference both derive their column layout
// from this single method.
func (s *Schema) Columns() []string {
	columns := make([]string, 0, len(s.Numeric)+len(s.Boolean)+4*len(s.Categorical))
	for _, f := range s.Numeric {
		columns = append(columns, f.Name)
	}
	for _, f := range s.Boolean {
		columns = append(columns, f.Name)
	}
	for _, f := range s.Categorical {
		for _, level := range f.Levels {
			columns = append(columns, IndicatorColumn(f.Name, level))
		}
	}
	return columns
}

// IndicatorColumn names the one-hot column for a categorical level.
func IndicatorColumn(feature, level string) string {
	return feature + "_" + level
}

func (s *Schema) NumericByName(name string) (NumericFeature, bool) {
	for _, f := range s.Numeric {
		if f.Name == name {
			return f, true
		}
	}
	return NumericFeature{}, false
}

func (s *Schema) CategoricalByName(name string) (CategoricalFeature, bool) {
	for _, f := range s.Categorical {
		if f.Name == name {
			return f, true
		}
	}
	return CategoricalFeature{}, false
}

func (s *Schema) BooleanByName(name string) (BoolFeature, bool) {
	for _, f := range s.Boolean {
		if f.Name == name {
			return f, true
		}
	}
	return BoolFeature{}, false
}
