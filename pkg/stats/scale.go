package stats

import "errors"

// StandardScaler standardizes each column to zero mean and unit variance.
// Columns with zero variance are centred only.
type StandardScaler struct {
	Mean []float64
	Std  []float64
	fit  bool
}

func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

// Fit learns per-column mean and population std. The labels are ignored.
func (s *StandardScaler) Fit(X [][]float64, _ []int) error {
	if len(X) == 0 {
		return errors.New("scaler: empty X")
	}
	r, c := len(X), len(X[0])
	s.Mean = make([]float64, c)
	s.Std = make([]float64, c)
	col := make([]float64, r)
	for j := range c {
		for i := range r {
			col[i] = X[i][j]
		}
		s.Mean[j] = Mean(col)
		s.Std[j] = Std(col)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	s.fit = true
	return nil
}

// Transform returns a scaled copy of X. An unfitted scaler returns X unchanged.
func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	if !s.fit || len(X) == 0 {
		return X
	}
	Y := make([][]float64, len(X))
	for i, row := range X {
		out := make([]float64, len(row))
		for j, v := range row {
			out[j] = (v - s.Mean[j]) / s.Std[j]
		}
		Y[i] = out
	}
	return Y
}
