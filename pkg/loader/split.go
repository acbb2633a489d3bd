package loader

import (
	"fmt"
	"math/rand"
)

// TrainTestSplit shuffles rows and labels together with rnd and holds out
// a testRatio fraction of them.
func TrainTestSplit[T any](rows []T, labels []int, testRatio float64, rnd *rand.Rand) (train, test []T, yTrain, yTest []int, err error) {
	if len(rows) != len(labels) {
		return nil, nil, nil, nil, fmt.Errorf("split: %d rows but %d labels", len(rows), len(labels))
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, nil, nil, fmt.Errorf("split: test ratio %v outside (0, 1)", testRatio)
	}
	rows, labels = Shuffle(rows, labels, rnd)
	nTest := int(float64(len(rows)) * testRatio)
	return rows[nTest:], rows[:nTest:nTest], labels[nTest:], labels[:nTest:nTest], nil
}

// Shuffle returns rows and labels permuted in unison.
func Shuffle[T any](rows []T, labels []int, rnd *rand.Rand) ([]T, []int) {
	n := len(rows)
	outRows := make([]T, n)
	outLabels := make([]int, n)
	for i, idx := range rnd.Perm(n) {
		outRows[i] = rows[idx]
		outLabels[i] = labels[idx]
	}
	return outRows, outLabels
}

// KFoldSplit assigns n shuffled indices round-robin to k folds.
func KFoldSplit(n, k int, rnd *rand.Rand) [][]int {
	indices := rnd.Perm(n)
	folds := make([][]int, k)
	for i := range n {
		folds[i%k] = append(folds[i%k], indices[i])
	}
	return folds
}
