package ml

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestBundleSaveLoadRoundTrip(t *testing.T) {
	s := testSchema()
	bundle := testBundle(s)
	path := filepath.Join(t.TempDir(), "bundle.json")

	if err := bundle.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, err := LoadBundle(path, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loaded.SchemaVersion != bundle.SchemaVersion {
		t.Fatalf("schema version changed across round trip")
	}
	if !reflect.DeepEqual(loaded.Classes, bundle.Classes) {
		t.Fatalf("classes changed: %v vs %v", loaded.Classes, bundle.Classes)
	}
	if !reflect.DeepEqual(loaded.FeatureNames, bundle.FeatureNames) {
		t.Fatalf("feature names changed: %v vs %v", loaded.FeatureNames, bundle.FeatureNames)
	}
	if !reflect.DeepEqual(loaded.Scaler, bundle.Scaler) {
		t.Fatalf("scaler changed across round trip")
	}
	if !reflect.DeepEqual(loaded.Forest.Trees, bundle.Forest.Trees) {
		t.Fatalf("forest changed across round trip")
	}
}

func TestLoadBundleMissingFile(t *testing.T) {
	_, err := LoadBundle(filepath.Join(t.TempDir(), "nope.json"), testSchema())
	if err == nil {
		t.Fatal("expected error for a missing artifact")
	}
}

func TestLoadBundleMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := LoadBundle(path, testSchema())
	var configErr *ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestLoadBundleValidation(t *testing.T) {
	s := testSchema()
	cases := []struct {
		name   string
		mutate func(b *Bundle)
	}{
		{"wrong version", func(b *Bundle) { b.SchemaVersion = 99 }},
		{"no classes", func(b *Bundle) { b.Classes = nil }},
		{"no forest", func(b *Bundle) { b.Forest = nil }},
		{"class count mismatch", func(b *Bundle) { b.Forest.NClasses = 5 }},
		{"missing feature name", func(b *Bundle) { b.FeatureNames = b.FeatureNames[1:] }},
		{"foreign feature name", func(b *Bundle) { b.FeatureNames[0] = "shoe_size" }},
		{"duplicate masking a missing column", func(b *Bundle) { b.FeatureNames[0] = b.FeatureNames[1] }},
		{"missing scaler entry", func(b *Bundle) { delete(b.Scaler, "absences") }},
		{"zero scale", func(b *Bundle) { b.Scaler["absences"] = ScalerStat{Mean: 0, Scale: 0} }},
		{"missing encoder table", func(b *Bundle) { delete(b.Levels, "school") }},
		{"drifted encoder table", func(b *Bundle) { b.Levels["school"] = []string{"GP", "XX"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bundle := testBundle(s)
			tc.mutate(bundle)

			path := filepath.Join(t.TempDir(), "bundle.json")
			if err := bundle.Save(path); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			_, err := LoadBundle(path, s)
			var configErr *ConfigurationError
			if !errors.As(err, &configErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
		})
	}
}
