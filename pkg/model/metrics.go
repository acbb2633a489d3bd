package model

import (
	"fmt"
	"math"
)

// Accuracy is the fraction of matching labels.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// PrecisionRecallF1 scores the positive class of a binary problem.
func PrecisionRecallF1(yTrue, yPred []int, positive int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		switch {
		case yPred[i] == positive && yTrue[i] == positive:
			tp++
		case yPred[i] == positive:
			fp++
		case yTrue[i] == positive:
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// LogLoss is the mean cross-entropy of proba, whose columns are aligned
// with classes. Probabilities are clipped away from 0 and 1.
func LogLoss(yTrue []int, proba [][]float64, classes []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	col := make(map[int]int, len(classes))
	for j, c := range classes {
		col[c] = j
	}
	s := 0.0
	for i, y := range yTrue {
		q := 0.0
		if j, ok := col[y]; ok {
			q = proba[i][j]
		}
		s -= math.Log(math.Min(math.Max(q, 1e-12), 1-1e-12))
	}
	return s / float64(len(yTrue))
}

// Report summarises a held-out evaluation.
type Report struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	LogLoss   float64 // zero when only labels were scored
	N         int
}

// Evaluate scores predictions against labels, treating positive as the
// class of interest.
func Evaluate(yTrue, yPred []int, positive int) Report {
	p, r, f := PrecisionRecallF1(yTrue, yPred, positive)
	return Report{Accuracy: Accuracy(yTrue, yPred), Precision: p, Recall: r, F1: f, N: len(yTrue)}
}

func (r Report) String() string {
	return fmt.Sprintf("accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f log_loss=%.4f n=%d",
		r.Accuracy, r.Precision, r.Recall, r.F1, r.LogLoss, r.N)
}
