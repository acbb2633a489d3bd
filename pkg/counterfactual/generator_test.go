package counterfactual

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

func TestGeneratorRespectsConstraints(t *testing.T) {
	s := schema.Census()
	q := censusQuery(t, s)
	p := params(1)
	p.FeaturesToVary = []string{"age", "education"}
	p.PermittedRange = map[string]schema.Range{
		"age":       schema.Between(40, 50),
		"education": schema.OneOf("Masters", "Doctorate", "Unknown"),
		"race":      schema.OneOf("White"),
	}
	g, err := NewGenerator(s, q, p)
	require.NoError(t, err)

	ageIdx, _ := s.Index("age")
	eduIdx, _ := s.Index("education")
	wcIdx, _ := s.Index("workclass")
	assert.Equal(t, []string{"Doctorate", "Masters"}, g.Domain(eduIdx).Categories)
	assert.True(t, g.Variable(ageIdx))
	assert.False(t, g.Variable(wcIdx))

	for range 500 {
		c := g.Next()
		for i, f := range s.Features {
			switch i {
			case ageIdx:
				assert.GreaterOrEqual(t, c.Row[i].Num, 40.0)
				assert.LessOrEqual(t, c.Row[i].Num, 50.0)
				assert.Equal(t, math.Trunc(c.Row[i].Num), c.Row[i].Num, "age is rounded to precision 0")
			case eduIdx:
				assert.Contains(t, []string{"Doctorate", "Masters"}, c.Row[i].Str)
			default:
				assert.Equal(t, q[i], c.Row[i], f.Name)
			}
		}
	}
	assert.Equal(t, 500, g.Drawn())
}

func TestGeneratorSeeded(t *testing.T) {
	s := schema.Census()
	q := censusQuery(t, s)
	a, err := NewGenerator(s, q, params(1))
	require.NoError(t, err)
	b, err := NewGenerator(s, q, params(1))
	require.NoError(t, err)
	for i := range 50 {
		ca, cb := a.Next(), b.Next()
		assert.Equal(t, i, ca.Seq)
		assert.True(t, ca.Row.Equal(cb.Row))
	}
}

func TestGeneratorDoesNotAliasQuery(t *testing.T) {
	s := schema.Census()
	q := censusQuery(t, s)
	want := q.Clone()
	g, err := NewGenerator(s, q, params(1))
	require.NoError(t, err)
	c := g.Next()
	c.Row[0] = schema.Num(-1)
	assert.True(t, q.Equal(want))
}

func TestGeneratorRoundNone(t *testing.T) {
	s := schema.Census()
	p := params(1)
	p.Rounding = RoundNone
	p.FeaturesToVary = []string{"age"}
	g, err := NewGenerator(s, censusQuery(t, s), p)
	require.NoError(t, err)
	fractional := 0
	for range 100 {
		age := g.Next().Row[0].Num
		if age != math.Trunc(age) {
			fractional++
		}
	}
	assert.Greater(t, fractional, 90)
}

func TestGeneratorDefaultsToMutable(t *testing.T) {
	s := schema.Census()
	require.NoError(t, s.SetMutable(false, "race", "gender"))
	g, err := NewGenerator(s, censusQuery(t, s), params(1))
	require.NoError(t, err)
	race, _ := s.Index("race")
	gender, _ := s.Index("gender")
	assert.False(t, g.Variable(race))
	assert.False(t, g.Variable(gender))

	require.NoError(t, s.SetMutable(false, s.Names()...))
	_, err = NewGenerator(s, censusQuery(t, s), params(1))
	var ce *ConstraintError
	assert.ErrorAs(t, err, &ce)
}

func TestRoundIn(t *testing.T) {
	cases := []struct {
		name string
		x    float64
		prec int
		d    schema.Domain
		want float64
	}{
		{"inside", 41.6, 0, schema.Domain{Min: 40, Max: 50}, 42},
		{"rounds above max", 49.7, 0, schema.Domain{Min: 40, Max: 49.5}, 49},
		{"rounds below min", 40.2, 0, schema.Domain{Min: 40.4, Max: 45}, 41},
		{"two decimals", 0.12345, 2, schema.Domain{Min: 0, Max: 1}, 0.12},
		{"no representable value", 0.5, 0, schema.Domain{Min: 0.2, Max: 0.8}, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, roundIn(tc.x, tc.prec, tc.d), 1e-12)
		})
	}
}

func TestDistance(t *testing.T) {
	s := schema.Census()
	q := censusQuery(t, s)
	assert.Zero(t, Distance(s, q, q))

	r := q.Clone()
	r[0] = schema.Num(22 + 73) // a full span away, clamped to 1
	assert.InDelta(t, 1.0/8, Distance(s, q, r), 1e-12)

	r = q.Clone()
	r[2] = schema.Cat("Doctorate")
	r[0] = schema.Num(22 + 36.5)
	assert.InDelta(t, 1.5/8, Distance(s, q, r), 1e-12)
	assert.Equal(t, Distance(s, q, r), Distance(s, r, q))
}

func TestSelectorPrefersDiversity(t *testing.T) {
	s, err := schema.New("y",
		schema.Feature{Name: "x", Kind: schema.Continuous, Min: 0, Max: 10, Mutable: true},
		schema.Feature{Name: "c", Kind: schema.Categorical, Categories: []string{"a", "b"}, Mutable: true},
	)
	require.NoError(t, err)
	q := schema.Row{schema.Num(0), schema.Cat("a")}
	pool := []Counterfactual{
		{Row: schema.Row{schema.Num(2), schema.Cat("a")}, Seq: 0},
		{Row: schema.Row{schema.Num(2.5), schema.Cat("a")}, Seq: 1},
		{Row: schema.Row{schema.Num(2), schema.Cat("b")}, Seq: 2},
	}
	sel := Selector{Schema: s, Query: q, ProximityWeight: 0.5, DiversityWeight: 1}

	got := sel.Select(pool, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Seq, "closest first")
	assert.Equal(t, 2, got[1].Seq, "then the most different")
	assert.Equal(t, []string{"x"}, got[0].Changed)
	assert.Equal(t, []string{"x", "c"}, got[1].Changed)
	assert.InDelta(t, 0.9, got[0].Proximity, 1e-12)
	assert.Zero(t, got[0].Diversity)
	assert.InDelta(t, 0.5, got[1].Diversity, 1e-12)

	assert.Len(t, sel.Select(pool, 10), 3)
	assert.Empty(t, sel.Select(nil, 3))
}

func TestSelectorTieBreaksOnSeq(t *testing.T) {
	s, err := schema.New("y",
		schema.Feature{Name: "c", Kind: schema.Categorical, Categories: []string{"a", "b", "c"}, Mutable: true},
	)
	require.NoError(t, err)
	pool := []Counterfactual{
		{Row: schema.Row{schema.Cat("c")}, Seq: 9},
		{Row: schema.Row{schema.Cat("b")}, Seq: 4},
	}
	sel := Selector{Schema: s, Query: schema.Row{schema.Cat("a")}, ProximityWeight: 0.5, DiversityWeight: 1}
	got := sel.Select(pool, 1)
	assert.Equal(t, 4, got[0].Seq)
}

func TestSelectorNonComparableScores(t *testing.T) {
	s, err := schema.New("y",
		schema.Feature{Name: "x", Kind: schema.Continuous, Min: 0, Max: 10, Mutable: true},
	)
	require.NoError(t, err)
	pool := []Counterfactual{
		{Row: schema.Row{schema.Num(2)}, Seq: 0},
		{Row: schema.Row{schema.Num(4)}, Seq: 1},
	}
	sel := Selector{Schema: s, Query: schema.Row{schema.Num(math.NaN())}, ProximityWeight: 0.5, DiversityWeight: 1}

	var got []Counterfactual
	require.NotPanics(t, func() { got = sel.Select(pool, 2) })
	assert.Len(t, got, 2)
}

func TestParseDesired(t *testing.T) {
	d, err := ParseDesired(" Opposite ")
	require.NoError(t, err)
	assert.True(t, d.IsOpposite())

	d, err = ParseDesired("1")
	require.NoError(t, err)
	assert.Equal(t, Class(1), d)

	d, err = ParseDesired("0")
	require.NoError(t, err)
	assert.False(t, d.IsOpposite(), "class 0 is explicit")
	assert.True(t, Desired{}.IsOpposite())

	_, err = ParseDesired("yes")
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestDesiredTarget(t *testing.T) {
	binary := Prediction{Class: 1, Classes: []int{0, 1}}
	assert.Equal(t, 0, Opposite().target(binary))
	assert.Equal(t, -1, Opposite().target(Prediction{Class: 1, Classes: []int{0, 1, 2}}))
	assert.Equal(t, 2, Class(2).target(binary))

	orig := Prediction{Class: 0, Proba: []float64{0.8, 0.2}, Classes: []int{0, 1}}
	weak := Prediction{Class: 1, Proba: []float64{0.45, 0.55}, Classes: []int{0, 1}}
	assert.True(t, Opposite().satisfied(orig, weak, 0.5))
	assert.False(t, Opposite().satisfied(orig, weak, 0.6))
	assert.False(t, Opposite().satisfied(orig, orig, 0.5))
	assert.False(t, Class(2).satisfied(orig, weak, 0.5))
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.TotalCFs = 0
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = DefaultParams()
	p.PoolSize = 2
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = DefaultParams()
	p.Rounding = "ceil"
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
}

func TestParamsYAML(t *testing.T) {
	src := `
total_cfs: 5
desired_class: opposite
features_to_vary: [age, education]
permitted_range:
  age: [40, 50]
  education: [Doctorate, Prof-school]
seed: 3
rounding: none
`
	var p Params
	require.NoError(t, yaml.Unmarshal([]byte(src), &p))
	p = p.WithDefaults()
	require.NoError(t, p.Validate())

	assert.Equal(t, 5, p.TotalCFs)
	assert.True(t, p.Desired.IsOpposite())
	assert.Equal(t, schema.Between(40, 50), p.PermittedRange["age"])
	assert.Equal(t, schema.OneOf("Doctorate", "Prof-school"), p.PermittedRange["education"])
	assert.Equal(t, RoundNone, p.Rounding)
	assert.Equal(t, 100, p.PoolSize)
	assert.Equal(t, 0.5, p.ProximityWeight)

	var q Params
	require.NoError(t, yaml.Unmarshal([]byte("desired_class: 1\n"), &q))
	assert.Equal(t, Class(1), q.Desired)
}
