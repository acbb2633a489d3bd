package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is one feature value. Continuous features use Num, categorical Str.
type Value struct {
	Num float64
	Str string
}

// Num returns a continuous value.
func Num(v float64) Value { return Value{Num: v} }

// Cat returns a categorical value.
func Cat(s string) Value { return Value{Str: s} }

// Row holds one value per feature, aligned with Schema.Features.
type Row []Value

// Clone returns an independent copy.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Equal reports whether both rows hold identical values.
func (r Row) Equal(o Row) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if r[i] != o[i] {
			return false
		}
	}
	return true
}

// Key is a stable string identity for deduplication.
func (r Row) Key() string {
	var b strings.Builder
	for i, v := range r {
		if i > 0 {
			b.WriteByte('|')
		}
		if v.Str != "" {
			b.WriteString(v.Str)
		} else {
			b.WriteString(strconv.FormatFloat(v.Num, 'g', -1, 64))
		}
	}
	return b.String()
}

// Diff returns the names of features whose values differ between a and b.
func (s *Schema) Diff(a, b Row) []string {
	var out []string
	for i, f := range s.Features {
		if a[i] != b[i] {
			out = append(out, f.Name)
		}
	}
	return out
}

// RowFromMap builds a row from name → value. Continuous features accept any
// Go number (or a numeric string); categorical features need a string from
// the feature's domain. Every feature must be present and no extras are
// allowed, apart from the outcome column, which is ignored.
func (s *Schema) RowFromMap(m map[string]any) (Row, error) {
	for k := range m {
		if k == s.Outcome {
			continue
		}
		if _, err := s.Index(k); err != nil {
			return nil, err
		}
	}
	row := make(Row, len(s.Features))
	for i, f := range s.Features {
		raw, ok := m[f.Name]
		if !ok {
			return nil, fmt.Errorf("row: missing feature %q", f.Name)
		}
		v, err := f.convert(raw)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// ParseRecord parses a CSV record using header to locate columns. Extra
// columns (such as the outcome) are skipped.
func (s *Schema) ParseRecord(header, record []string) (Row, error) {
	if len(header) != len(record) {
		return nil, fmt.Errorf("row: header has %d columns, record %d", len(header), len(record))
	}
	m := make(map[string]any, len(header))
	for i, h := range header {
		if _, err := s.Index(h); err != nil {
			continue
		}
		m[h] = record[i]
	}
	return s.RowFromMap(m)
}

// Map renders a row as name → value for display.
func (s *Schema) Map(r Row) map[string]any {
	out := make(map[string]any, len(r))
	for i, f := range s.Features {
		if f.Kind == Categorical {
			out[f.Name] = r[i].Str
		} else {
			out[f.Name] = r[i].Num
		}
	}
	return out
}

// Format renders a single value using the feature's precision.
func (f Feature) Format(v Value) string {
	if f.Kind == Categorical {
		return v.Str
	}
	return strconv.FormatFloat(v.Num, 'f', f.Precision, 64)
}

func (f Feature) convert(raw any) (Value, error) {
	if f.Kind == Categorical {
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("feature %q: %w: want string, got %T", f.Name, ErrInvalidValue, raw)
		}
		if !f.HasCategory(s) {
			return Value{}, fmt.Errorf("feature %q: %w: category %q not in domain", f.Name, ErrInvalidValue, s)
		}
		return Cat(s), nil
	}
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case int32:
		n = float64(v)
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Value{}, fmt.Errorf("feature %q: %w: %v", f.Name, ErrInvalidValue, err)
		}
		n = p
	default:
		return Value{}, fmt.Errorf("feature %q: %w: want number, got %T", f.Name, ErrInvalidValue, raw)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Value{}, fmt.Errorf("feature %q: %w: %v is not finite", f.Name, ErrInvalidValue, n)
	}
	return Num(n), nil
}
