// Package pipeline chains a row encoder, numeric transformers and a
// classifier into a model that predicts directly on schema rows.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/bpst-apps/explainable-ai/internal/logging"
	"github.com/bpst-apps/explainable-ai/pkg/counterfactual"
	"github.com/bpst-apps/explainable-ai/pkg/dataprep"
	"github.com/bpst-apps/explainable-ai/pkg/loader"
	"github.com/bpst-apps/explainable-ai/pkg/model"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

// ErrNotFitted is returned when predicting with an untrained pipeline.
var ErrNotFitted = errors.New("pipeline: not fitted")

// Transformer interface for fit/transform pattern.
type Transformer interface {
	Fit(X [][]float64, y []int) error
	Transform(X [][]float64) [][]float64
}

// Pipeline encodes rows, runs them through the transformer steps and hands
// the result to the classifier. After Fit it is read-only and safe for
// concurrent Predict calls.
type Pipeline struct {
	schema  *schema.Schema
	encoder *dataprep.RowEncoder
	steps   []Transformer
	clf     model.Classifier
	fitted  bool
	log     *slog.Logger
}

// New builds an unfitted pipeline over s.
func New(s *schema.Schema, clf model.Classifier, steps ...Transformer) *Pipeline {
	return &Pipeline{
		schema:  s,
		encoder: dataprep.NewRowEncoder(s),
		steps:   steps,
		clf:     clf,
		log:     logging.New("pipeline"),
	}
}

// Schema returns the schema rows are read with.
func (p *Pipeline) Schema() *schema.Schema { return p.schema }

// Classifier returns the wrapped model.
func (p *Pipeline) Classifier() model.Classifier { return p.clf }

// Fit encodes rows, fits each step on the output of the previous one and
// trains the classifier.
func (p *Pipeline) Fit(rows []schema.Row, y []int) error {
	if len(rows) != len(y) {
		return fmt.Errorf("pipeline: %d rows, %d labels", len(rows), len(y))
	}
	X, err := p.encoder.EncodeAll(rows)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	for i, step := range p.steps {
		if err := step.Fit(X, y); err != nil {
			return fmt.Errorf("pipeline: step %d: %w", i, err)
		}
		X = step.Transform(X)
	}
	if err := p.clf.Fit(X, y); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	p.fitted = true
	p.log.Debug("fitted", "rows", len(rows), "width", p.encoder.Width(), "steps", len(p.steps))
	return nil
}

// Transform encodes rows and applies every step.
func (p *Pipeline) Transform(rows []schema.Row) ([][]float64, error) {
	X, err := p.encoder.EncodeAll(rows)
	if err != nil {
		return nil, err
	}
	for _, step := range p.steps {
		X = step.Transform(X)
	}
	return X, nil
}

// PredictProba returns class probabilities aligned with Classes.
func (p *Pipeline) PredictProba(rows []schema.Row) ([][]float64, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}
	X, err := p.Transform(rows)
	if err != nil {
		return nil, err
	}
	return p.clf.PredictProba(X), nil
}

// PredictRows returns the most probable class per row.
func (p *Pipeline) PredictRows(rows []schema.Row) ([]int, error) {
	probas, err := p.PredictProba(rows)
	if err != nil {
		return nil, err
	}
	classes := p.clf.Classes()
	out := make([]int, len(probas))
	for i, pr := range probas {
		out[i] = classes[argmax(pr)]
	}
	return out, nil
}

// Predict scores one row; it makes the pipeline a counterfactual.Predictor.
func (p *Pipeline) Predict(row schema.Row) (counterfactual.Prediction, error) {
	probas, err := p.PredictProba([]schema.Row{row})
	if err != nil {
		return counterfactual.Prediction{}, err
	}
	classes := p.clf.Classes()
	return counterfactual.Prediction{
		Class:   classes[argmax(probas[0])],
		Proba:   probas[0],
		Classes: classes,
	}, nil
}

// Evaluate predicts rows and scores them against y.
func (p *Pipeline) Evaluate(rows []schema.Row, y []int, positive int) (model.Report, error) {
	probas, err := p.PredictProba(rows)
	if err != nil {
		return model.Report{}, err
	}
	classes := p.clf.Classes()
	pred := make([]int, len(probas))
	for i, pr := range probas {
		pred[i] = classes[argmax(pr)]
	}
	rep := model.Evaluate(y, pred, positive)
	rep.LogLoss = model.LogLoss(y, probas, classes)
	return rep, nil
}

// CrossValidate fits a fresh pipeline from build on each of k folds' training
// rows and returns the held-out accuracy per fold.
func CrossValidate(build func() *Pipeline, rows []schema.Row, y []int, k int, rnd *rand.Rand) ([]float64, error) {
	if k < 2 || k > len(rows) {
		return nil, fmt.Errorf("pipeline: cannot split %d rows into %d folds", len(rows), k)
	}
	folds := loader.KFoldSplit(len(rows), k, rnd)
	scores := make([]float64, k)
	for f, test := range folds {
		inTest := make(map[int]bool, len(test))
		for _, i := range test {
			inTest[i] = true
		}
		var trainRows, testRows []schema.Row
		var trainY, testY []int
		for i := range rows {
			if inTest[i] {
				testRows, testY = append(testRows, rows[i]), append(testY, y[i])
			} else {
				trainRows, trainY = append(trainRows, rows[i]), append(trainY, y[i])
			}
		}
		p := build()
		if err := p.Fit(trainRows, trainY); err != nil {
			return nil, fmt.Errorf("fold %d: %w", f, err)
		}
		pred, err := p.PredictRows(testRows)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", f, err)
		}
		scores[f] = model.Accuracy(testY, pred)
	}
	return scores, nil
}

func argmax(xs []float64) int {
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}
