package model

import (
	"errors"
	"sort"
)

// Classifier is a supervised classifier exposing per-class probabilities.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	// PredictProba returns one probability vector per row, aligned with Classes.
	PredictProba(X [][]float64) [][]float64
	Classes() []int
}

// Predict returns the most probable class per row. Ties go to the lower class index.
func Predict(c Classifier, X [][]float64) []int {
	classes := c.Classes()
	probas := c.PredictProba(X)
	out := make([]int, len(probas))
	for i, p := range probas {
		out[i] = classes[argmaxFloat(p)]
	}
	return out
}

func checkXY(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("empty X")
	}
	if len(y) != len(X) {
		return errors.New("X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("inconsistent number of features in X rows")
		}
	}
	return nil
}

// uniqueClasses returns the sorted distinct labels of y.
func uniqueClasses(y []int) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

func argmaxFloat(arr []float64) int {
	best := 0
	for i := 1; i < len(arr); i++ {
		if arr[i] > arr[best] {
			best = i
		}
	}
	return best
}
