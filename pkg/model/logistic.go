package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/bpst-apps/explainable-ai/pkg/data"
	"github.com/bpst-apps/explainable-ai/pkg/optim"
)

// LogisticRegression is a binary classifier trained with mini-batch SGD.
type LogisticRegression struct {
	W           []float64 // weights
	B           float64   // bias
	Lr          float64
	Epochs      int
	BatchSize   int
	L2          float64
	RandomState int64

	classes []int
}

// LogisticOption functional config for LogisticRegression.
type LogisticOption func(*LogisticRegression)

func WithLearningRate(lr float64) LogisticOption {
	return func(m *LogisticRegression) { m.Lr = lr }
}
func WithEpochs(n int) LogisticOption    { return func(m *LogisticRegression) { m.Epochs = n } }
func WithBatchSize(n int) LogisticOption { return func(m *LogisticRegression) { m.BatchSize = n } }
func WithL2(l float64) LogisticOption    { return func(m *LogisticRegression) { m.L2 = l } }
func WithLogisticRandomState(seed int64) LogisticOption {
	return func(m *LogisticRegression) { m.RandomState = seed }
}

// NewLogisticRegression returns a model with sensible defaults. Weights are
// sized on Fit.
func NewLogisticRegression(opts ...LogisticOption) *LogisticRegression {
	m := &LogisticRegression{Lr: 0.1, Epochs: 50, BatchSize: 32}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Sigmoid is the logistic function.
func Sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

// Fit trains on X and y, which must hold exactly two classes. Each epoch
// reshuffles the rows and streams them through data.Batcher.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if err := checkXY(X, y); err != nil {
		return fmt.Errorf("logistic: %w", err)
	}
	m.classes = uniqueClasses(y)
	if len(m.classes) != 2 {
		return fmt.Errorf("logistic: need exactly 2 classes, got %v", m.classes)
	}
	if m.Epochs < 1 || m.BatchSize < 1 || m.Lr <= 0 {
		return errors.New("logistic: epochs, batch size and learning rate must be positive")
	}

	rnd := rand.New(rand.NewSource(m.RandomState))
	m.W = make([]float64, len(X[0]))
	// Small random weights to break symmetry.
	for i := range m.W {
		m.W[i] = rnd.NormFloat64() * 0.01
	}
	m.B = 0

	target := make([]float64, len(y))
	for i, lab := range y {
		if lab == m.classes[1] {
			target[i] = 1
		}
	}

	opt := optim.NewSGD(m.Lr, optim.WithWeightDecay(m.L2))
	for ep := 0; ep < m.Epochs; ep++ {
		order := rnd.Perm(len(X))
		xs := make([][]float64, len(X))
		ys := make([]float64, len(X))
		for k, i := range order {
			xs[k], ys[k] = X[i], target[i]
		}

		batches := make(chan data.Batch)
		data.Batcher(data.Samples(xs, ys), m.BatchSize, batches)
		for batch := range batches {
			p := m.positive(batch.X)
			gW := make([]float64, len(m.W))
			gb := 0.0
			for i, row := range batch.X {
				// d(BCE)/dz for a sigmoid output.
				d := (p[i] - batch.Y[i]) / float64(len(batch.X))
				floats.AddScaled(gW, d, row)
				gb += d
			}
			opt.Step(m.W, gW)
			m.B -= m.Lr * gb
		}
	}
	return nil
}

// Classes returns the two class labels, negative first.
func (m *LogisticRegression) Classes() []int { return m.classes }

// PredictProba returns [p(negative), p(positive)] per row.
func (m *LogisticRegression) PredictProba(X [][]float64) [][]float64 {
	p := m.positive(X)
	out := make([][]float64, len(p))
	for i, v := range p {
		out[i] = []float64{1 - v, v}
	}
	return out
}

// positive scores rows in parallel, one chunk per available CPU.
func (m *LogisticRegression) positive(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(X) == 0 {
		return out
	}
	var wg sync.WaitGroup
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, len(X))
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				out[i] = Sigmoid(m.B + floats.Dot(m.W, X[i]))
			}
		}(start, end)
	}
	wg.Wait()
	return out
}
