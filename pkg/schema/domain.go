package schema

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Range narrows a feature's domain: a numeric [Min, Max] interval for
// continuous features or a category subset for categorical ones.
type Range struct {
	Min, Max   float64
	Categories []string
	Numeric    bool
}

// Between is a numeric range.
func Between(lo, hi float64) Range { return Range{Min: lo, Max: hi, Numeric: true} }

// OneOf is a categorical range.
func OneOf(categories ...string) Range { return Range{Categories: categories} }

// UnmarshalYAML accepts either a two-number list ([40, 50]) or a list of
// category strings ([Doctorate, Prof-school]).
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("range: line %d: want a list", node.Line)
	}
	var nums []float64
	if err := node.Decode(&nums); err == nil && len(nums) == 2 && allNumeric(node) {
		*r = Between(nums[0], nums[1])
		return nil
	}
	var cats []string
	if err := node.Decode(&cats); err != nil {
		return fmt.Errorf("range: line %d: %w", node.Line, err)
	}
	*r = OneOf(cats...)
	return nil
}

// MarshalYAML mirrors UnmarshalYAML.
func (r Range) MarshalYAML() (any, error) {
	if r.Numeric {
		return []float64{r.Min, r.Max}, nil
	}
	return r.Categories, nil
}

func allNumeric(seq *yaml.Node) bool {
	for _, n := range seq.Content {
		if tag := n.ShortTag(); tag != "!!int" && tag != "!!float" {
			return false
		}
	}
	return true
}

// Domain is the effective set of values a feature may take during search.
type Domain struct {
	Kind       Kind
	Min, Max   float64
	Categories []string
}

// Contains reports whether v lies inside the domain.
func (d Domain) Contains(v Value) bool {
	if d.Kind == Categorical {
		for _, c := range d.Categories {
			if c == v.Str {
				return true
			}
		}
		return false
	}
	return v.Num >= d.Min && v.Num <= d.Max
}

// Clamp moves a continuous value to the closest point of the domain.
func (d Domain) Clamp(x float64) float64 {
	if x < d.Min {
		return d.Min
	}
	if x > d.Max {
		return d.Max
	}
	return x
}

// FullDomain is the feature's own domain.
func (f Feature) FullDomain() Domain {
	return Domain{Kind: f.Kind, Min: f.Min, Max: f.Max, Categories: f.Categories}
}

// Intersect returns the feature's domain narrowed by r. A nil r leaves the
// domain untouched. A numeric range on a categorical feature keeps the
// categories whose numeric value lies inside it. An empty result wraps
// ErrEmptyDomain; an interval with Min > Max wraps ErrReversedRange.
func (f Feature) Intersect(r *Range) (Domain, error) {
	d := f.FullDomain()
	if r == nil {
		return d, nil
	}
	if r.Numeric && r.Min > r.Max {
		return Domain{}, fmt.Errorf("feature %q: %w: [%v, %v]", f.Name, ErrReversedRange, r.Min, r.Max)
	}
	if f.Kind == Continuous {
		if !r.Numeric {
			return Domain{}, fmt.Errorf("feature %q: %w: categorical range on continuous feature", f.Name, ErrInvalidValue)
		}
		d.Min = max(f.Min, r.Min)
		d.Max = min(f.Max, r.Max)
		if d.Min > d.Max {
			return Domain{}, fmt.Errorf("feature %q: %w: [%v, %v] outside [%v, %v]", f.Name, ErrEmptyDomain, r.Min, r.Max, f.Min, f.Max)
		}
		return d, nil
	}

	keep := func(c string) bool {
		for _, w := range r.Categories {
			if w == c {
				return true
			}
		}
		return false
	}
	if r.Numeric {
		keep = func(c string) bool {
			x, err := strconv.ParseFloat(c, 64)
			return err == nil && x >= r.Min && x <= r.Max
		}
	}
	d.Categories = nil
	for _, c := range f.Categories {
		if keep(c) {
			d.Categories = append(d.Categories, c)
		}
	}
	if len(d.Categories) == 0 {
		if r.Numeric {
			return Domain{}, fmt.Errorf("feature %q: %w: no category in [%v, %v]", f.Name, ErrEmptyDomain, r.Min, r.Max)
		}
		return Domain{}, fmt.Errorf("feature %q: %w: none of %v in domain", f.Name, ErrEmptyDomain, r.Categories)
	}
	return d, nil
}
