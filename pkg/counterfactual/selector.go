package counterfactual

import (
	"math"

	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

// Counterfactual is a selected candidate together with its scores.
type Counterfactual struct {
	Row        schema.Row
	Prediction Prediction
	Changed    []string // features that differ from the query, schema order
	Proximity  float64
	Diversity  float64 // minimum distance to the counterfactuals picked before it
	Score      float64
	Seq        int
}

// Distance is the mean per-feature distance between two rows, in [0, 1].
// Continuous features contribute |a-b| scaled by the schema span; categorical
// features contribute 0 or 1.
func Distance(s *schema.Schema, a, b schema.Row) float64 {
	if s.Len() == 0 {
		return 0
	}
	sum := 0.0
	for i, f := range s.Features {
		sum += featureDistance(f, a[i], b[i])
	}
	return sum / float64(s.Len())
}

func featureDistance(f schema.Feature, a, b schema.Value) float64 {
	if f.Kind == schema.Categorical {
		if a.Str == b.Str {
			return 0
		}
		return 1
	}
	span := f.Span()
	if span <= 0 {
		if a.Num == b.Num {
			return 0
		}
		return 1
	}
	return min(math.Abs(a.Num-b.Num)/span, 1)
}

// Selector greedily picks a diverse, proximal subset of valid candidates.
type Selector struct {
	Schema          *schema.Schema
	Query           schema.Row
	ProximityWeight float64
	DiversityWeight float64
}

// Select returns up to k counterfactuals from pool. Each round picks the
// candidate maximising DiversityWeight*diversity + ProximityWeight*proximity,
// where diversity is the minimum distance to those already picked. Ties go
// to the lowest Seq, so the result depends only on the pool's contents.
func (sel Selector) Select(pool []Counterfactual, k int) []Counterfactual {
	n := len(pool)
	if k > n {
		k = n
	}
	prox := make([]float64, n)
	div := make([]float64, n) // running minimum distance to the selected set
	for i, c := range pool {
		prox[i] = 1 - Distance(sel.Schema, sel.Query, c.Row)
		div[i] = math.Inf(1)
	}
	taken := make([]bool, n)
	out := make([]Counterfactual, 0, k)
	for len(out) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range pool {
			if taken[i] {
				continue
			}
			d := 0.0
			if len(out) > 0 {
				d = div[i]
			}
			score := sel.DiversityWeight*d + sel.ProximityWeight*prox[i]
			if best < 0 || score > bestScore || (score == bestScore && pool[i].Seq < pool[best].Seq) {
				best, bestScore = i, score
			}
		}
		taken[best] = true
		c := pool[best]
		c.Proximity = prox[best]
		c.Diversity = 0
		if len(out) > 0 {
			c.Diversity = div[best]
		}
		c.Score = bestScore
		c.Changed = sel.Schema.Diff(sel.Query, c.Row)
		out = append(out, c)
		for i := range pool {
			if !taken[i] {
				div[i] = min(div[i], Distance(sel.Schema, c.Row, pool[i].Row))
			}
		}
	}
	return out
}
