package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// RandomForest for classification
type RandomForest struct {
	// Hyperparameters / options
	NEstimators         int
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MaxFeatures         int // 0 => sqrt(p)
	MinImpurityDecrease float64
	Bootstrap           bool
	RandomState         int64
	NJobs               int // trees fitted at once; 0 => GOMAXPROCS

	// Internal state
	Trees   []*DecisionTreeClassifier
	classes []int
}

// RandomForestOption functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxDepth = d }
}
func WithForestMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesLeaf = n }
}
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}
func WithForestMinImpurityDecrease(v float64) RandomForestOption {
	return func(rf *RandomForest) { rf.MinImpurityDecrease = v }
}
func WithNJobs(n int) RandomForestOption { return func(rf *RandomForest) { rf.NJobs = n } }

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		RandomState:     time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains every tree concurrently on its own bootstrap sample. Tree i
// is seeded with RandomState+i, so a fixed RandomState gives the same forest.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	if err := checkXY(X, y); err != nil {
		return fmt.Errorf("randomforest: %w", err)
	}
	if rf.NEstimators < 1 {
		return errors.New("randomforest: NEstimators must be positive")
	}
	n, p := len(X), len(X[0])
	rf.classes = uniqueClasses(y)

	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(p))))
	}

	jobs := rf.NJobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	rf.Trees = make([]*DecisionTreeClassifier, rf.NEstimators)
	var g errgroup.Group
	g.SetLimit(jobs)
	for idx := range rf.NEstimators {
		g.Go(func() error {
			// Own rand source per tree to avoid contention.
			treeRand := rand.New(rand.NewSource(rf.RandomState + int64(idx)))
			sample := make([]int, n)
			for j := range sample {
				if rf.Bootstrap {
					sample[j] = treeRand.Intn(n)
				} else {
					sample[j] = j
				}
			}

			// Trees already run in parallel, so each searches its splits serially.
			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithMaxFeatures(maxFeatures),
				WithMinImpurityDecrease(rf.MinImpurityDecrease),
				WithSplitWorkers(1),
				WithRandomState(rf.RandomState+int64(idx)),
			)
			if err := tree.FitIndices(X, y, sample, rf.classes); err != nil {
				return fmt.Errorf("randomforest: tree %d: %w", idx, err)
			}
			rf.Trees[idx] = tree
			return nil
		})
	}
	return g.Wait()
}

// Classes returns the class labels in probability order.
func (rf *RandomForest) Classes() []int { return rf.classes }

// PredictProba averages the trees' class probabilities.
func (rf *RandomForest) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range out {
		out[i] = make([]float64, len(rf.classes))
	}
	if len(rf.Trees) == 0 {
		return out
	}
	for _, tree := range rf.Trees {
		for i, p := range tree.PredictProba(X) {
			for c, v := range p {
				out[i][c] += v
			}
		}
	}
	k := float64(len(rf.Trees))
	for i := range out {
		for c := range out[i] {
			out[i][c] /= k
		}
	}
	return out
}

// Predict returns the class with the highest mean probability.
func (rf *RandomForest) Predict(X [][]float64) []int { return Predict(rf, X) }
