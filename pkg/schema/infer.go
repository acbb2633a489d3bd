package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bpst-apps/explainable-ai/pkg/data"
	"github.com/bpst-apps/explainable-ai/pkg/stats"
)

const maxPrecision = 6

// InferOption adjusts an inferred schema.
type InferOption func(*Schema) error

// WithImmutable marks features that may never change during search.
func WithImmutable(names ...string) InferOption {
	return func(s *Schema) error { return s.SetMutable(false, names...) }
}

// WithPrecision overrides the rounding precision of a continuous feature.
func WithPrecision(name string, decimals int) InferOption {
	return func(s *Schema) error {
		i, err := s.Index(name)
		if err != nil {
			return err
		}
		if s.Features[i].Kind != Continuous {
			return fmt.Errorf("schema: precision on categorical feature %q", name)
		}
		if decimals < 0 || decimals > maxPrecision {
			return fmt.Errorf("schema: precision %d for %q outside [0, %d]", decimals, name, maxPrecision)
		}
		s.Features[i].Precision = decimals
		return nil
	}
}

// Apply runs opts against s in order, stopping at the first error.
func (s *Schema) Apply(opts ...InferOption) error {
	for _, o := range opts {
		if err := o(s); err != nil {
			return err
		}
	}
	return nil
}

// Infer builds a schema from a frame. Columns listed in continuous become
// continuous features spanning their observed min and max; every other
// column except outcome becomes categorical over its observed values. All
// features start mutable.
func Infer(f *data.Frame, outcome string, continuous []string, opts ...InferOption) (*Schema, error) {
	if f.ColumnIndex(outcome) < 0 {
		return nil, fmt.Errorf("schema: outcome column %q not in frame", outcome)
	}
	isCont := make(map[string]bool, len(continuous))
	for _, c := range continuous {
		if f.ColumnIndex(c) < 0 {
			return nil, fmt.Errorf("schema: continuous column %q not in frame", c)
		}
		isCont[c] = true
	}

	s := &Schema{Outcome: outcome}
	for _, name := range f.Header {
		if name == outcome {
			continue
		}
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		var feat Feature
		if isCont[name] {
			feat, err = continuousFeature(name, col)
			if err != nil {
				return nil, err
			}
		} else {
			feat = categoricalFeature(name, col)
		}
		s.Features = append(s.Features, feat)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := s.Apply(opts...); err != nil {
		return nil, err
	}
	return s, nil
}

func continuousFeature(name string, col []string) (Feature, error) {
	nums := make([]float64, len(col))
	precision := 0
	for i, v := range col {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Feature{}, fmt.Errorf("schema: column %q row %d: %w", name, i, err)
		}
		nums[i] = n
		if dot := strings.IndexByte(v, '.'); dot >= 0 {
			decimals := len(strings.TrimRight(v[dot+1:], "0"))
			precision = max(precision, min(decimals, maxPrecision))
		}
	}
	if stats.AllIntegral(nums) {
		precision = 0
	}
	lo, hi := stats.MinMax(nums)
	return Feature{Name: name, Kind: Continuous, Min: lo, Max: hi, Precision: precision, Mutable: true}, nil
}

func categoricalFeature(name string, col []string) Feature {
	seen := make(map[string]struct{})
	var cats []string
	for _, v := range col {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			cats = append(cats, v)
		}
	}
	sort.Strings(cats)
	return Feature{Name: name, Kind: Categorical, Categories: cats, Mutable: true}
}
