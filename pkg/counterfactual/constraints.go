package counterfactual

import (
	"errors"
	"sort"

	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

// constraints is the resolved search space of one request: which features
// may change and the effective domain of each.
type constraints struct {
	vary    []bool          // indexed like schema.Features
	domains []schema.Domain // effective domain per feature
	order   []int           // variable feature indices in schema order
}

func (c *constraints) variable(i int) bool { return c.vary[i] }

// resolve validates FeaturesToVary and PermittedRange against s. Every
// PermittedRange entry is checked, including ranges on features that are
// not varied, so a bad request fails the same way regardless of the subset.
func resolve(s *schema.Schema, p Params) (*constraints, error) {
	c := &constraints{
		vary:    make([]bool, s.Len()),
		domains: make([]schema.Domain, s.Len()),
	}

	if len(p.FeaturesToVary) == 0 {
		for i, f := range s.Features {
			c.vary[i] = f.Mutable
		}
	} else {
		for _, name := range p.FeaturesToVary {
			i, err := s.Index(name)
			if err != nil {
				return nil, &ConstraintError{Feature: name, Reason: "not in schema", Err: err}
			}
			if !s.Features[i].Mutable {
				return nil, &ConstraintError{Feature: name, Reason: "feature is immutable"}
			}
			c.vary[i] = true
		}
	}

	// Sorted so the first failing feature is the same on every run.
	names := make([]string, 0, len(p.PermittedRange))
	for name := range p.PermittedRange {
		names = append(names, name)
	}
	sort.Strings(names)
	ranges := make(map[int]*schema.Range, len(names))
	for _, name := range names {
		i, err := s.Index(name)
		if err != nil {
			return nil, &ConstraintError{Feature: name, Reason: "permitted range on unknown feature", Err: err}
		}
		r := p.PermittedRange[name]
		ranges[i] = &r
	}

	for i, f := range s.Features {
		d, err := f.Intersect(ranges[i])
		if err != nil {
			var reason string
			switch {
			case errors.Is(err, schema.ErrEmptyDomain):
				reason = "permitted range does not intersect the feature domain"
			case errors.Is(err, schema.ErrReversedRange):
				reason = "permitted range minimum exceeds its maximum"
			default:
				reason = "permitted range has the wrong shape for the feature"
			}
			return nil, &ConstraintError{Feature: f.Name, Reason: reason, Err: err}
		}
		c.domains[i] = d
		if c.vary[i] {
			c.order = append(c.order, i)
		}
	}
	if len(c.order) == 0 {
		return nil, &ConstraintError{Feature: "", Reason: "no variable features"}
	}
	return c, nil
}
