package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean computes the average of a slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Variance computes the population variance of a slice.
func Variance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.PopVariance(x, nil)
}

// Std computes the population standard deviation of a slice.
func Std(x []float64) float64 {
	return math.Sqrt(Variance(x))
}

// MinMax returns the minimum and maximum values in the slice.
func MinMax(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	return floats.Min(x), floats.Max(x)
}

// Sum returns the sum of all elements in the slice.
func Sum(x []float64) float64 {
	return floats.Sum(x)
}

// Median returns the median value of the slice (allocates a copy).
func Median(x []float64) float64 {
	return Percentile(x, 50)
}

// Mode returns the most frequent value in the slice, or the zero value when
// it is empty. Ties go to the value seen first.
func Mode[T comparable](x []T) T {
	var mode T
	counts := make(map[T]int)
	maxCount := 0
	for _, v := range x {
		counts[v]++
		if counts[v] > maxCount {
			maxCount = counts[v]
			mode = v
		}
	}
	return mode
}

// Percentile returns the p-th percentile value of the slice (0 <= p <= 100),
// linearly interpolated between closest ranks.
func Percentile(x []float64, p float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	lo, hi := MinMax(x)
	if p <= 0 {
		return lo
	}
	if p >= 100 {
		return hi
	}
	cp := make([]float64, n)
	copy(cp, x)
	sort.Float64s(cp)
	rank := p / 100 * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower]
	}
	return cp[lower]*(1-weight) + cp[upper]*weight
}

// Skew is a cheap skewness signal: |mean - median| / std.
func Skew(x []float64) float64 {
	return math.Abs(Mean(x)-Median(x)) / (Std(x) + 1e-9)
}

// AllIntegral reports whether every value has no fractional part.
func AllIntegral(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		if _, frac := math.Modf(v); frac != 0 {
			return false
		}
	}
	return true
}
