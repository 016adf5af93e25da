package ml

import (
	"errors"
	"math"
	"testing"
)

type fakeModel struct {
	probs []float64
	err   error
}

func (m *fakeModel) Proba(features []float64) ([]float64, error) {
	return m.probs, m.err
}

func TestPredictDistribution(t *testing.T) {
	classes := []string{"A", "B", "C", "F"}
	p := NewPredictor(classes, &fakeModel{probs: []float64{0.1, 0.6, 0.2, 0.1}})

	pred, err := p.Predict([]float64{0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.Label != "B" {
		t.Fatalf("expected label B, got %s", pred.Label)
	}
	if pred.Confidence != 0.6 {
		t.Fatalf("expected confidence 0.6, got %v", pred.Confidence)
	}
	if len(pred.Probabilities) != len(classes) {
		t.Fatalf("expected %d probabilities, got %d", len(classes), len(pred.Probabilities))
	}
	for _, class := range classes {
		if _, ok := pred.Probabilities[class]; !ok {
			t.Fatalf("missing probability for class %s", class)
		}
	}
}

func TestPredictStableArgmaxOnTie(t *testing.T) {
	p := NewPredictor([]string{"A", "B"}, &fakeModel{probs: []float64{0.5, 0.5}})

	pred, err := p.Predict([]float64{0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.Label != "A" {
		t.Fatalf("tie must resolve to the first class, got %s", pred.Label)
	}
}

func TestPredictRejectsWrongLength(t *testing.T) {
	p := NewPredictor([]string{"A", "B", "C"}, &fakeModel{probs: []float64{0.5, 0.5}})

	_, err := p.Predict([]float64{0})
	var integrityErr *ModelIntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("expected ModelIntegrityError, got %v", err)
	}
}

func TestPredictRejectsOutOfRangeProbability(t *testing.T) {
	p := NewPredictor([]string{"A", "B"}, &fakeModel{probs: []float64{1.2, -0.2}})

	_, err := p.Predict([]float64{0})
	var integrityErr *ModelIntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("expected ModelIntegrityError, got %v", err)
	}
}

func TestPredictRejectsBadSum(t *testing.T) {
	p := NewPredictor([]string{"A", "B"}, &fakeModel{probs: []float64{0.4, 0.4}})

	_, err := p.Predict([]float64{0})
	var integrityErr *ModelIntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("expected ModelIntegrityError, got %v", err)
	}
}

func TestPredictAcceptsSumWithinTolerance(t *testing.T) {
	p := NewPredictor([]string{"A", "B"}, &fakeModel{probs: []float64{0.5, 0.5 + 5e-7}})

	pred, err := p.Predict([]float64{0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum := 0.0
	for _, prob := range pred.Probabilities {
		sum += prob
	}
	if math.Abs(sum-1) > probTolerance {
		t.Fatalf("probabilities sum to %v", sum)
	}
}

func TestPredictWrapsModelError(t *testing.T) {
	p := NewPredictor([]string{"A", "B"}, &fakeModel{err: errors.New("boom")})

	_, err := p.Predict([]float64{0})
	var integrityErr *ModelIntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("expected ModelIntegrityError, got %v", err)
	}
}
