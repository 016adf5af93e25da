package ml

import (
	"fmt"
	"math"
)

// probability tolerance for the distribution integrity check.
const probTolerance = 1e-6

// ProbaModel estimates one probability per trained class, in the model's
// internal class ordering.
type ProbaModel interface {
	Proba(features []float64) ([]float64, error)
}

// Prediction is the response-shaped result: canonical label, its
// probability, and the full distribution keyed by label.
type Prediction struct {
	Label         string             `json:"label"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Predictor wraps the trained classifier and remaps its internal class
// ordering to the canonical label set. The internal ordering is a training
// artifact and never leaks to callers.
type Predictor struct {
	classes []string
	model   ProbaModel
}

func NewPredictor(classes []string, model ProbaModel) *Predictor {
	return &Predictor{classes: classes, model: model}
}

// Predict runs the classifier on an encoded vector. The output distribution
// is validated, never repaired: probabilities must be inside [0,1] and sum
// to 1 within tolerance or the result is a ModelIntegrityError.
func (p *Predictor) Predict(vec []float64) (*Prediction, error) {
	probs, err := p.model.Proba(vec)
	if err != nil {
		return nil, &ModelIntegrityError{Detail: err.Error()}
	}
	if len(probs) != len(p.classes) {
		return nil, &ModelIntegrityError{
			Detail: fmt.Sprintf("classifier produced %d probabilities for %d classes", len(probs), len(p.classes)),
		}
	}

	sum := 0.0
	for i, prob := range probs {
		if prob < 0 || prob > 1 {
			return nil, &ModelIntegrityError{
				Detail: fmt.Sprintf("probability %g for class %s outside [0,1]", prob, p.classes[i]),
			}
		}
		sum += prob
	}
	if math.Abs(sum-1) > probTolerance {
		return nil, &ModelIntegrityError{
			Detail: fmt.Sprintf("probabilities sum to %g", sum),
		}
	}

	// Stable argmax: ties resolve to the first class in canonical order.
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}

	dist := make(map[string]float64, len(p.classes))
	for i, class := range p.classes {
		dist[class] = probs[i]
	}
	return &Prediction{
		Label:         p.classes[best],
		Confidence:    probs[best],
		Probabilities: dist,
	}, nil
}
