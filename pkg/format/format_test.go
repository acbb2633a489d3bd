package format

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpst-apps/explainable-ai/pkg/counterfactual"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

func result(t *testing.T) (*schema.Schema, *counterfactual.Result) {
	t.Helper()
	s, err := schema.New("income",
		schema.Feature{Name: "age", Kind: schema.Continuous, Min: 17, Max: 90},
		schema.Feature{Name: "education", Kind: schema.Categorical, Categories: []string{"Bachelors", "HS-grad"}},
		schema.Feature{Name: "hours", Kind: schema.Continuous, Min: 1, Max: 99, Precision: 1},
	)
	require.NoError(t, err)
	q := schema.Row{schema.Num(22), schema.Cat("HS-grad"), schema.Num(16)}
	return s, &counterfactual.Result{
		Query:           q,
		QueryPrediction: counterfactual.Prediction{Class: 0},
		Counterfactuals: []counterfactual.Counterfactual{
			{Row: schema.Row{schema.Num(45), schema.Cat("HS-grad"), schema.Num(16)}, Prediction: counterfactual.Prediction{Class: 1}, Changed: []string{"age"}, Proximity: 0.9, Score: 0.45},
			{Row: schema.Row{schema.Num(22), schema.Cat("Bachelors"), schema.Num(40.26)}, Prediction: counterfactual.Prediction{Class: 1}, Changed: []string{"education", "hours"}, Proximity: 0.5, Diversity: 0.7, Score: 0.95},
		},
	}
}

func TestChangesOnly(t *testing.T) {
	s, res := result(t)
	got := ChangesOnly(s, res)
	want := [][]string{
		{"22", "HS-grad", "16.0", "0"},
		{"45", "-", "-", "1"},
		{"-", "Bachelors", "40.3", "1"},
	}
	assert.Equal(t, []string{"age", "education", "hours", "income"}, got.Header)
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFull(t *testing.T) {
	s, res := result(t)
	got := Full(s, res)
	assert.Equal(t, []string{"45", "HS-grad", "16.0", "1"}, got.Rows[1])
}

func TestRender(t *testing.T) {
	s, res := result(t)
	tbl := ChangesOnly(s, res)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, tbl, Text))
	assert.Contains(t, buf.String(), "Bachelors")
	assert.Contains(t, buf.String(), "Query instance")

	buf.Reset()
	require.NoError(t, Render(&buf, tbl, Markdown))
	assert.Contains(t, buf.String(), "| age")

	buf.Reset()
	require.NoError(t, Render(&buf, tbl, CSV))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "age,education,hours,income", strings.ToLower(lines[0]))

	assert.Error(t, Render(&buf, tbl, Style("xml")))
}

func TestScores(t *testing.T) {
	_, res := result(t)
	tbl := Scores(res)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"2", "education,hours", "0.500", "0.700", "0.950"}, tbl.Rows[1])
}

func TestParseStyle(t *testing.T) {
	for in, want := range map[string]Style{"": Text, "md": Markdown, "CSV": CSV} {
		got, err := ParseStyle(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseStyle("html")
	assert.Error(t, err)
}
