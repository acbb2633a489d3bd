package counterfactual

import (
	"math"
	"math/rand"

	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

// Candidate is one perturbed row. Seq is its position in the generation
// stream and breaks selection ties.
type Candidate struct {
	Row schema.Row
	Seq int
}

// Generator draws candidates around a query row. Each variable feature is
// sampled independently and uniformly from its effective domain; every other
// feature keeps the query's value. The stream never ends on its own.
type Generator struct {
	schema   *schema.Schema
	query    schema.Row
	cons     *constraints
	rounding Rounding
	rnd      *rand.Rand
	seq      int
}

// NewGenerator resolves the request's constraints and returns a generator
// seeded with p.Seed. Constraint problems are reported as *ConstraintError
// before anything is drawn.
func NewGenerator(s *schema.Schema, query schema.Row, p Params) (*Generator, error) {
	cons, err := resolve(s, p)
	if err != nil {
		return nil, err
	}
	rounding := p.Rounding
	if rounding == "" {
		rounding = RoundPrecision
	}
	return &Generator{
		schema:   s,
		query:    query.Clone(),
		cons:     cons,
		rounding: rounding,
		rnd:      rand.New(rand.NewSource(p.Seed)),
	}, nil
}

// Next draws the next candidate.
func (g *Generator) Next() Candidate {
	row := g.query.Clone()
	for _, i := range g.cons.order {
		row[i] = g.sample(i)
	}
	c := Candidate{Row: row, Seq: g.seq}
	g.seq++
	return c
}

// Drawn is the number of candidates produced so far.
func (g *Generator) Drawn() int { return g.seq }

// Domain returns the effective domain of feature i.
func (g *Generator) Domain(i int) schema.Domain { return g.cons.domains[i] }

// Variable reports whether feature i may change.
func (g *Generator) Variable(i int) bool { return g.cons.variable(i) }

func (g *Generator) sample(i int) schema.Value {
	d := g.cons.domains[i]
	if d.Kind == schema.Categorical {
		return schema.Cat(d.Categories[g.rnd.Intn(len(d.Categories))])
	}
	x := d.Min + g.rnd.Float64()*(d.Max-d.Min)
	if g.rounding == RoundPrecision {
		x = roundIn(x, g.schema.Features[i].Precision, d)
	}
	return schema.Num(x)
}

// roundIn rounds x to prec decimals and keeps the result inside d. When no
// value with that precision lies in d, x is returned unchanged.
func roundIn(x float64, prec int, d schema.Domain) float64 {
	scale := math.Pow(10, float64(prec))
	r := math.Round(x*scale) / scale
	if r >= d.Min && r <= d.Max {
		return r
	}
	lo := math.Ceil(d.Min*scale) / scale
	hi := math.Floor(d.Max*scale) / scale
	if lo > hi {
		return x
	}
	if r < lo {
		return lo
	}
	return hi
}
