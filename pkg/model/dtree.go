package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a CART-style classifier over numeric features.
type DecisionTreeClassifier struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => use all features, >0 => number of features sampled per split
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for feature subsampling
	SplitWorkers        int     // features searched at once per node; 0 => GOMAXPROCS

	// internals
	root    *dtNode
	classes []int // class labels, probas are aligned with this order
}

// dtNode holds a node in the tree.
type dtNode struct {
	isLeaf    bool
	feature   int
	threshold float64 // x <= threshold => left
	left      *dtNode
	right     *dtNode

	n      int
	probas []float64
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithSplitWorkers(n int) Option {
	return func(t *DecisionTreeClassifier) { t.SplitWorkers = n }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with sensible defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       "gini",
		RandomState:     time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API
// ---------------------------

// Fit trains the tree on every row of X.
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []int) error {
	if err := checkXY(X, y); err != nil {
		return fmt.Errorf("dtree: %w", err)
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitIndices(X, y, idx, uniqueClasses(y))
}

// FitIndices trains on the rows selected by idx (repeats allowed, as in a
// bootstrap sample). classes fixes the probability layout so several trees
// can be averaged even when a sample misses a class.
func (t *DecisionTreeClassifier) FitIndices(X [][]float64, y []int, idx []int, classes []int) error {
	if len(idx) == 0 {
		return errors.New("dtree: empty sample")
	}
	if len(classes) == 0 {
		return errors.New("dtree: no classes")
	}
	switch t.Criterion {
	case "", "gini", "entropy":
	default:
		return fmt.Errorf("dtree: unknown criterion %q", t.Criterion)
	}
	t.classes = append([]int(nil), classes...)
	classIdx := make(map[int]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}
	yi := make([]int, len(y))
	for i, lab := range y {
		ci, ok := classIdx[lab]
		if !ok {
			return fmt.Errorf("dtree: label %d not in classes %v", lab, classes)
		}
		yi[i] = ci
	}

	b := &treeBuilder{
		t:        t,
		X:        X,
		y:        yi,
		p:        len(X[0]),
		nClasses: len(classes),
		rnd:      rand.New(rand.NewSource(t.RandomState)),
		impurity: giniFromCounts,
	}
	if t.Criterion == "entropy" {
		b.impurity = entropyFromCounts
	}
	t.root = b.build(append([]int(nil), idx...), 0)
	return nil
}

// Classes returns the class labels in probability order.
func (t *DecisionTreeClassifier) Classes() []int { return t.classes }

// Predict returns predicted class labels.
func (t *DecisionTreeClassifier) Predict(X [][]float64) []int { return Predict(t, X) }

// PredictProba returns the per-class probability vectors for rows in X.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = t.predictProbaSingle(X[i])
	}
	return out
}

// Depth is the depth of the deepest leaf.
func (t *DecisionTreeClassifier) Depth() int { return depth(t.root) }

func depth(n *dtNode) int {
	if n == nil || n.isLeaf {
		return 0
	}
	return 1 + max(depth(n.left), depth(n.right))
}

// ---------------------------
// Builder
// ---------------------------

type treeBuilder struct {
	t        *DecisionTreeClassifier
	X        [][]float64
	y        []int // class indices
	p        int
	nClasses int
	rnd      *rand.Rand
	impurity func([]int) float64
}

// splitResult is the best split found on a single feature.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
}

// pair is a feature value and its row index.
type pair struct {
	v float64
	i int
}

func (b *treeBuilder) leaf(node *dtNode, counts []int) *dtNode {
	node.isLeaf = true
	node.probas = countsToProbas(counts)
	return node
}

func (b *treeBuilder) build(idx []int, depth int) *dtNode {
	t := b.t
	node := &dtNode{n: len(idx)}

	counts := make([]int, b.nClasses)
	for _, ii := range idx {
		counts[b.y[ii]]++
	}
	if isPure(counts) || len(idx) < t.MinSamplesSplit || len(idx) < 2*max(t.MinSamplesLeaf, 1) {
		return b.leaf(node, counts)
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return b.leaf(node, counts)
	}

	featIndices := make([]int, b.p)
	for j := range featIndices {
		featIndices[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < b.p {
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + b.rnd.Intn(b.p-i)
			featIndices[i], featIndices[j] = featIndices[j], featIndices[i]
		}
		featIndices = featIndices[:t.MaxFeatures]
		sort.Ints(featIndices)
	}

	parentImpurity := b.impurity(counts)

	// Features are searched in parallel; results land in feature order so
	// ties resolve to the lowest feature index.
	results := make([]splitResult, len(featIndices))
	workers := t.SplitWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 {
		for k, f := range featIndices {
			results[k] = b.bestSplitForFeature(idx, f, counts, parentImpurity)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(workers)
		for k, f := range featIndices {
			g.Go(func() error {
				results[k] = b.bestSplitForFeature(idx, f, counts, parentImpurity)
				return nil
			})
		}
		_ = g.Wait()
	}

	best := splitResult{feature: -1}
	for _, r := range results {
		if r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}
	if best.feature == -1 || best.gain <= t.MinImpurityDecrease {
		return b.leaf(node, counts)
	}

	var leftIdx, rightIdx []int
	for _, ii := range idx {
		if b.X[ii][best.feature] <= best.threshold {
			leftIdx = append(leftIdx, ii)
		} else {
			rightIdx = append(rightIdx, ii)
		}
	}
	node.feature = best.feature
	node.threshold = best.threshold
	node.left = b.build(leftIdx, depth+1)
	node.right = b.build(rightIdx, depth+1)
	return node
}

// bestSplitForFeature sorts the sample on feature f and sweeps every
// boundary between distinct values, moving rows from right to left counts.
func (b *treeBuilder) bestSplitForFeature(idx []int, f int, total []int, parentImpurity float64) splitResult {
	result := splitResult{feature: -1}

	vals := make([]pair, len(idx))
	for k, ii := range idx {
		vals[k] = pair{b.X[ii][f], ii}
	}
	sort.Slice(vals, func(a, c int) bool { return vals[a].v < vals[c].v })
	if vals[0].v == vals[len(vals)-1].v {
		return result
	}

	minLeaf := max(b.t.MinSamplesLeaf, 1)
	n := float64(len(vals))
	left := make([]int, b.nClasses)
	right := append([]int(nil), total...)
	for s := 1; s < len(vals); s++ {
		c := b.y[vals[s-1].i]
		left[c]++
		right[c]--
		if vals[s].v == vals[s-1].v || s < minLeaf || len(vals)-s < minLeaf {
			continue
		}
		nl := float64(s)
		weighted := nl/n*b.impurity(left) + (n-nl)/n*b.impurity(right)
		gain := parentImpurity - weighted
		if gain > result.gain {
			result = splitResult{gain: gain, feature: f, threshold: (vals[s-1].v + vals[s].v) / 2}
		}
	}
	return result
}

// ---------------------------
// Prediction helper
// ---------------------------

func (t *DecisionTreeClassifier) predictProbaSingle(x []float64) []float64 {
	if t.root == nil {
		p := make([]float64, len(t.classes))
		for i := range p {
			p[i] = 1.0 / float64(len(p))
		}
		return p
	}
	node := t.root
	for !node.isLeaf {
		if x[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.probas
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}
