package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptive(t *testing.T) {
	x := []float64{1, 2, 2, 3, 7}

	assert.InDelta(t, 3.0, Mean(x), 1e-12)
	assert.InDelta(t, 2.0, Median(x), 1e-12)
	assert.InDelta(t, 2.0, Mode(x), 1e-12)
	assert.InDelta(t, 15.0, Sum(x), 1e-12)
	assert.InDelta(t, 4.4, Variance(x), 1e-12)
	assert.InDelta(t, math.Sqrt(4.4), Std(x), 1e-12)

	lo, hi := MinMax(x)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 7.0, hi)
}

func TestEmptyInputs(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.Zero(t, Median(nil))
	assert.Zero(t, Variance(nil))
	assert.Zero(t, Percentile(nil, 50))
	assert.Equal(t, "", Mode[string](nil))
}

func TestMedianEven(t *testing.T) {
	assert.InDelta(t, 2.5, Median([]float64{4, 1, 3, 2}), 1e-12)
	assert.InDelta(t, 3.0, Median([]float64{9, 1, 3}), 1e-12)
}

func TestPercentile(t *testing.T) {
	x := []float64{10, 20, 30, 40, 50}
	assert.Equal(t, 10.0, Percentile(x, 0))
	assert.Equal(t, 50.0, Percentile(x, 100))
	assert.InDelta(t, 30.0, Percentile(x, 50), 1e-12)
	assert.InDelta(t, 20.0, Percentile(x, 25), 1e-12)
}

func TestMode(t *testing.T) {
	assert.Equal(t, "b", Mode([]string{"a", "b", "b", "c", "a", "b"}))
	assert.Equal(t, "x", Mode([]string{"x", "y"}), "ties go to the first value")
}

func TestAllIntegral(t *testing.T) {
	assert.True(t, AllIntegral([]float64{1, 22, -3}))
	assert.False(t, AllIntegral([]float64{1, 2.5}))
	assert.False(t, AllIntegral([]float64{math.NaN()}))
}

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 5}, {3, 5}, {5, 5}}
	s := NewStandardScaler()
	require.NoError(t, s.Fit(X, nil))

	Y := s.Transform(X)
	require.Len(t, Y, 3)
	assert.InDelta(t, 0.0, Y[1][0], 1e-12)
	assert.InDelta(t, -Y[0][0], Y[2][0], 1e-12)
	// zero-variance column is centred only
	assert.Equal(t, 0.0, Y[0][1])
	// input untouched
	assert.Equal(t, 1.0, X[0][0])
}

func TestStandardScalerErrors(t *testing.T) {
	s := NewStandardScaler()
	assert.Error(t, s.Fit(nil, nil))
	X := [][]float64{{1}}
	assert.Equal(t, X, s.Transform(X), "unfitted scaler is identity")
}
