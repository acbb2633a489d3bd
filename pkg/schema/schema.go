// Package schema describes the feature space a classifier is trained on:
// which columns are continuous or categorical, their valid domains, and which
// of them may change during counterfactual search.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownFeature = errors.New("unknown feature")
	ErrEmptyDomain    = errors.New("empty domain")
	ErrInvalidValue   = errors.New("invalid value")
	ErrReversedRange  = errors.New("range minimum exceeds maximum")
)

// Kind is the type of a feature.
type Kind int

const (
	Continuous Kind = iota
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Categorical:
		return "categorical"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText renders the kind for YAML/JSON.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses "continuous" or "categorical".
func (k *Kind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "continuous", "numeric":
		*k = Continuous
	case "categorical", "category":
		*k = Categorical
	default:
		return fmt.Errorf("unknown feature kind %q", string(b))
	}
	return nil
}

// Feature describes one input column.
type Feature struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	// Continuous domain.
	Min float64 `yaml:"min,omitempty"`
	Max float64 `yaml:"max,omitempty"`
	// Precision is the number of decimals sampled values are rounded to.
	Precision int `yaml:"precision,omitempty"`

	// Categorical domain, sorted and unique.
	Categories []string `yaml:"categories,omitempty"`

	Mutable bool `yaml:"mutable"`
}

// HasCategory reports whether c belongs to the feature's categories.
func (f Feature) HasCategory(c string) bool {
	for _, v := range f.Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Span is Max-Min for continuous features, used to normalise distances.
func (f Feature) Span() float64 { return f.Max - f.Min }

// Schema is an ordered set of features plus the name of the outcome column.
type Schema struct {
	Features []Feature `yaml:"features"`
	Outcome  string    `yaml:"outcome"`

	index map[string]int
}

// New builds a schema and validates it.
func New(outcome string, features ...Feature) (*Schema, error) {
	s := &Schema{Features: features, Outcome: outcome}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks names are unique and every domain is non-empty. It also
// rebuilds the name index, so call it after editing Features directly.
func (s *Schema) Validate() error {
	if len(s.Features) == 0 {
		return errors.New("schema: no features")
	}
	s.index = make(map[string]int, len(s.Features))
	for i, f := range s.Features {
		if f.Name == "" {
			return fmt.Errorf("schema: feature %d has no name", i)
		}
		if f.Name == s.Outcome {
			return fmt.Errorf("schema: feature %q is the outcome column", f.Name)
		}
		if _, dup := s.index[f.Name]; dup {
			return fmt.Errorf("schema: duplicate feature %q", f.Name)
		}
		switch f.Kind {
		case Continuous:
			if f.Min > f.Max {
				return fmt.Errorf("schema: feature %q: %w: min %v > max %v", f.Name, ErrEmptyDomain, f.Min, f.Max)
			}
		case Categorical:
			if len(f.Categories) == 0 {
				return fmt.Errorf("schema: feature %q: %w: no categories", f.Name, ErrEmptyDomain)
			}
		default:
			return fmt.Errorf("schema: feature %q: unknown kind %v", f.Name, f.Kind)
		}
		s.index[f.Name] = i
	}
	return nil
}

// Len is the number of features.
func (s *Schema) Len() int { return len(s.Features) }

// Index returns the position of a feature, or an ErrUnknownFeature error.
func (s *Schema) Index(name string) (int, error) {
	if s.index == nil {
		if err := s.Validate(); err != nil {
			return -1, err
		}
	}
	i, ok := s.index[name]
	if !ok {
		return -1, fmt.Errorf("%w %q", ErrUnknownFeature, name)
	}
	return i, nil
}

// Feature returns a feature by name.
func (s *Schema) Feature(name string) (Feature, error) {
	i, err := s.Index(name)
	if err != nil {
		return Feature{}, err
	}
	return s.Features[i], nil
}

// Names returns feature names in schema order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Features))
	for i, f := range s.Features {
		out[i] = f.Name
	}
	return out
}

// Mutable returns the names of features allowed to change.
func (s *Schema) Mutable() []string {
	var out []string
	for _, f := range s.Features {
		if f.Mutable {
			out = append(out, f.Name)
		}
	}
	return out
}

// SetMutable flips the mutable flag of the named features.
func (s *Schema) SetMutable(mutable bool, names ...string) error {
	for _, n := range names {
		i, err := s.Index(n)
		if err != nil {
			return err
		}
		s.Features[i].Mutable = mutable
	}
	return nil
}
