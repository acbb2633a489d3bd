package model

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// box labels points 1 inside x1 > 0.2, x2 > -0.3.
func box(n int, seed int64) ([][]float64, []int) {
	rnd := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		x1, x2 := rnd.Float64()*2-1, rnd.Float64()*2-1
		X[i] = []float64{x1, x2}
		if x1 > 0.2 && x2 > -0.3 {
			y[i] = 1
		}
	}
	return X, y
}

// linear labels points 1 when x1 + x2 > 0.
func linear(n int, seed int64) ([][]float64, []int) {
	rnd := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		x1, x2 := rnd.Float64()*2-1, rnd.Float64()*2-1
		X[i] = []float64{x1, x2}
		if x1+x2 > 0 {
			y[i] = 1
		}
	}
	return X, y
}

func TestDecisionTreeSeparable(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	y := []int{0, 0, 0, 1, 1, 1}

	tree := NewDecisionTreeClassifier(WithRandomState(1))
	require.NoError(t, tree.Fit(X, y))

	assert.Equal(t, y, tree.Predict(X))
	assert.Equal(t, 1, tree.Depth())
	assert.Equal(t, []int{0, 1}, tree.Classes())
	assert.Equal(t, []float64{1, 0}, tree.PredictProba([][]float64{{6}})[0], "threshold sits at the midpoint 6.5")
}

func TestDecisionTreeBox(t *testing.T) {
	X, y := box(600, 1)
	Xt, yt := box(300, 2)

	for _, criterion := range []string{"gini", "entropy"} {
		t.Run(criterion, func(t *testing.T) {
			tree := NewDecisionTreeClassifier(WithCriterion(criterion), WithMaxDepth(6), WithRandomState(3))
			require.NoError(t, tree.Fit(X, y))
			assert.Greater(t, Accuracy(yt, tree.Predict(Xt)), 0.85)
			assert.LessOrEqual(t, tree.Depth(), 6)
		})
	}
}

func TestDecisionTreeErrors(t *testing.T) {
	tree := NewDecisionTreeClassifier()
	assert.Error(t, tree.Fit(nil, nil))
	assert.Error(t, tree.Fit([][]float64{{1}}, []int{0, 1}))
	assert.Error(t, tree.Fit([][]float64{{1}, {1, 2}}, []int{0, 1}))
	assert.Error(t, NewDecisionTreeClassifier(WithCriterion("chi2")).Fit([][]float64{{1}}, []int{0}))
	assert.Error(t, tree.FitIndices([][]float64{{1}}, []int{2}, []int{0}, []int{0, 1}), "label outside classes")
}

func TestDecisionTreeMinSamplesLeaf(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []int{0, 1, 1, 1}
	tree := NewDecisionTreeClassifier(WithMinSamplesLeaf(2), WithRandomState(1))
	require.NoError(t, tree.Fit(X, y))
	p := tree.PredictProba([][]float64{{1}})[0]
	assert.InDelta(t, 0.5, p[0], 1e-12, "a one-row leaf is not allowed")
}

func TestRandomForest(t *testing.T) {
	X, y := box(800, 4)
	Xt, yt := box(400, 5)

	rf := NewRandomForest(WithNEstimators(25), WithForestRandomState(7), WithForestMaxFeatures(2))
	require.NoError(t, rf.Fit(X, y))
	require.Len(t, rf.Trees, 25)

	assert.Greater(t, Accuracy(yt, rf.Predict(Xt)), 0.85)
	for _, p := range rf.PredictProba(Xt[:10]) {
		require.Len(t, p, 2)
		assert.InDelta(t, 1.0, p[0]+p[1], 1e-9)
	}
}

func TestRandomForestDeterministic(t *testing.T) {
	X, y := box(300, 6)
	a := NewRandomForest(WithNEstimators(8), WithForestRandomState(11), WithNJobs(1))
	b := NewRandomForest(WithNEstimators(8), WithForestRandomState(11), WithNJobs(4))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	Xt, _ := box(50, 7)
	assert.Equal(t, a.PredictProba(Xt), b.PredictProba(Xt))
}

func TestRandomForestMinImpurityDecrease(t *testing.T) {
	X, y := box(200, 8)
	rf := NewRandomForest(WithNEstimators(3), WithForestRandomState(1), WithForestMinImpurityDecrease(1))
	require.NoError(t, rf.Fit(X, y))
	for _, tree := range rf.Trees {
		assert.Zero(t, tree.Depth(), "no split can gain a full unit of impurity")
	}
}

func TestDecisionTreeSplitWorkers(t *testing.T) {
	X, y := box(400, 9)
	serial := NewDecisionTreeClassifier(WithMaxDepth(5), WithRandomState(2), WithSplitWorkers(1))
	parallel := NewDecisionTreeClassifier(WithMaxDepth(5), WithRandomState(2), WithSplitWorkers(3))
	require.NoError(t, serial.Fit(X, y))
	require.NoError(t, parallel.Fit(X, y))

	Xt, _ := box(100, 10)
	assert.Equal(t, serial.PredictProba(Xt), parallel.PredictProba(Xt))
}

func TestRandomForestErrors(t *testing.T) {
	assert.Error(t, NewRandomForest().Fit(nil, nil))
	assert.Error(t, NewRandomForest(WithNEstimators(0)).Fit([][]float64{{1}}, []int{0}))
}

func TestLogisticRegression(t *testing.T) {
	X, y := linear(500, 8)
	Xt, yt := linear(200, 9)

	m := NewLogisticRegression(WithEpochs(60), WithLearningRate(0.5), WithBatchSize(16), WithLogisticRandomState(1))
	require.NoError(t, m.Fit(X, y))

	assert.Greater(t, Accuracy(yt, Predict(m, Xt)), 0.9)
	assert.Less(t, LogLoss(yt, m.PredictProba(Xt), m.Classes()), 0.5)
	assert.Greater(t, m.W[0], 0.0)
	assert.Greater(t, m.W[1], 0.0)
}

func TestLogisticRegressionErrors(t *testing.T) {
	m := NewLogisticRegression()
	assert.Error(t, m.Fit([][]float64{{1}, {2}}, []int{0, 0}), "single class")
	assert.Error(t, NewLogisticRegression(WithEpochs(0)).Fit([][]float64{{1}, {2}}, []int{0, 1}))
}

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(0))
	assert.InDelta(t, 1.0, Sigmoid(50), 1e-9)
}

func TestMetrics(t *testing.T) {
	yTrue := []int{1, 1, 0, 0, 1}
	yPred := []int{1, 0, 0, 1, 1}
	assert.InDelta(t, 0.6, Accuracy(yTrue, yPred), 1e-12)

	r := Evaluate(yTrue, yPred, 1)
	assert.InDelta(t, 2.0/3, r.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, r.Recall, 1e-12)
	assert.InDelta(t, 2.0/3, r.F1, 1e-12)
	assert.Equal(t, 5, r.N)
	assert.Contains(t, r.String(), "accuracy=0.6000")
	assert.Zero(t, Accuracy(nil, nil))
}

func TestLogLoss(t *testing.T) {
	proba := [][]float64{{0.2, 0.8}, {0.9, 0.1}}
	classes := []int{3, 7}
	want := -(math.Log(0.8) + math.Log(0.9)) / 2
	assert.InDelta(t, want, LogLoss([]int{7, 3}, proba, classes), 1e-12)
	assert.Greater(t, LogLoss([]int{3}, [][]float64{{0, 1}}, classes), 20.0, "clipped, not infinite")
	assert.Zero(t, LogLoss(nil, nil, classes))
}
