package counterfactual

import "github.com/bpst-apps/explainable-ai/pkg/schema"

// Prediction is a classifier's answer for one row.
type Prediction struct {
	Class   int
	Proba   []float64 // aligned with Classes; may be empty
	Classes []int
}

// ProbaOf returns the probability assigned to class. A prediction without
// probabilities is treated as certain about its own class.
func (p Prediction) ProbaOf(class int) float64 {
	if len(p.Proba) == 0 {
		if class == p.Class {
			return 1
		}
		return 0
	}
	for i, c := range p.Classes {
		if c == class && i < len(p.Proba) {
			return p.Proba[i]
		}
	}
	return 0
}

// Predictor is the black-box model under explanation. Implementations must
// be safe for concurrent use: candidates are scored by a worker pool.
type Predictor interface {
	Predict(row schema.Row) (Prediction, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(row schema.Row) (Prediction, error)

func (f PredictorFunc) Predict(row schema.Row) (Prediction, error) { return f(row) }
