package dataprep

import (
	"fmt"
	"sort"

	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

// LabelEncode maps label strings to integers in sorted label order and
// returns the class names indexed by code.
func LabelEncode(labels []string) ([]int, []string) {
	unique := map[string]struct{}{}
	for _, v := range labels {
		unique[v] = struct{}{}
	}
	classes := make([]string, 0, len(unique))
	for v := range unique {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	code := make(map[string]int, len(classes))
	for i, c := range classes {
		code[c] = i
	}
	out := make([]int, len(labels))
	for i, v := range labels {
		out[i] = code[v]
	}
	return out, classes
}

// RowEncoder turns schema rows into numeric vectors: continuous features
// pass through, categorical features are one-hot encoded in schema
// category order.
type RowEncoder struct {
	schema  *schema.Schema
	offsets []int
	slots   []map[string]int
	width   int
}

// NewRowEncoder lays out the encoding for s.
func NewRowEncoder(s *schema.Schema) *RowEncoder {
	e := &RowEncoder{
		schema:  s,
		offsets: make([]int, s.Len()),
		slots:   make([]map[string]int, s.Len()),
	}
	for i, f := range s.Features {
		e.offsets[i] = e.width
		if f.Kind == schema.Categorical {
			m := make(map[string]int, len(f.Categories))
			for j, c := range f.Categories {
				m[c] = j
			}
			e.slots[i] = m
			e.width += len(f.Categories)
			continue
		}
		e.width++
	}
	return e
}

// Width is the length of encoded vectors.
func (e *RowEncoder) Width() int { return e.width }

// FeatureNames names every encoded column, "<feature>_<category>" for
// one-hot columns.
func (e *RowEncoder) FeatureNames() []string {
	out := make([]string, 0, e.width)
	for _, f := range e.schema.Features {
		if f.Kind == schema.Categorical {
			for _, c := range f.Categories {
				out = append(out, f.Name+"_"+c)
			}
			continue
		}
		out = append(out, f.Name)
	}
	return out
}

// Encode encodes a single row.
func (e *RowEncoder) Encode(r schema.Row) ([]float64, error) {
	if len(r) != e.schema.Len() {
		return nil, fmt.Errorf("encode: row has %d values, schema %d", len(r), e.schema.Len())
	}
	out := make([]float64, e.width)
	for i, f := range e.schema.Features {
		if f.Kind == schema.Categorical {
			j, ok := e.slots[i][r[i].Str]
			if !ok {
				return nil, fmt.Errorf("encode: feature %q: unknown category %q", f.Name, r[i].Str)
			}
			out[e.offsets[i]+j] = 1
			continue
		}
		out[e.offsets[i]] = r[i].Num
	}
	return out, nil
}

// EncodeAll encodes rows in order.
func (e *RowEncoder) EncodeAll(rows []schema.Row) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		v, err := e.Encode(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
