package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bpst-apps/explainable-ai/pkg/counterfactual"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

const smallConfig = `
dataset:
  synthetic_rows: 800
model:
  trees: 20
  max_depth: 10
log:
  level: warn
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSchemaCmd(t *testing.T) {
	cfg := writeFile(t, "cfx.yaml", smallConfig)
	out, err := execute(t, "schema", "--config", cfg)
	require.NoError(t, err)

	var s schema.Schema
	require.NoError(t, yaml.Unmarshal([]byte(out), &s))
	require.NoError(t, s.Validate())
	assert.Equal(t, "income", s.Outcome)
	assert.Equal(t, schema.Census().Names(), s.Names())
}

func TestTrainCmd(t *testing.T) {
	cfg := writeFile(t, "cfx.yaml", smallConfig)
	out, err := execute(t, "train", "--config", cfg, "--cv", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Train rows: 640")
	assert.Contains(t, out, "accuracy=")
	assert.Contains(t, out, "Cross-validation (3 folds)")
}

func TestExplainCmdDefaultQuery(t *testing.T) {
	cfg := writeFile(t, "cfx.yaml", smallConfig)
	out, err := execute(t, "explain", "--config", cfg, "-k", "3", "-o", "csv", "--seed", "4")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5, out) // header, query, 3 counterfactuals
	queryClass := lines[1][strings.LastIndex(lines[1], ","):]
	for _, l := range lines[2:] {
		assert.False(t, strings.HasSuffix(l, queryClass), l)
	}
}

func TestExplainCmdQueryFileAndRanges(t *testing.T) {
	cfg := writeFile(t, "cfx.yaml", smallConfig)
	query := writeFile(t, "q.yaml", `
- {age: 22, workclass: Private, education: HS-grad, marital_status: Single, occupation: Blue-Collar, race: White, gender: Male, hours_per_week: 16}
- {age: 30, workclass: Private, education: HS-grad, marital_status: Single, occupation: Service, race: White, gender: Female, hours_per_week: 20}
`)
	dir := t.TempDir()
	chart := filepath.Join(dir, "freq.png")
	out, err := execute(t, "explain", "--config", cfg, "--query", query, "-k", "2",
		"--vary", "age,education,occupation",
		"--range", "age=40:50", "--range", "education=Doctorate|Prof-school",
		"--scores", "--plot", chart, "--scores-plot", filepath.Join(dir, "scores.svg"))
	require.NoError(t, err)
	assert.Contains(t, out, "Query 0")
	assert.Contains(t, out, "Query 1")
	for _, path := range []string{chart, filepath.Join(dir, "scores-0.svg"), filepath.Join(dir, "scores-1.svg")} {
		assert.Contains(t, out, "Wrote "+path)
		_, err = os.Stat(path)
		assert.NoError(t, err)
	}
}

func TestExplainParamsSeed(t *testing.T) {
	base := counterfactual.DefaultParams()
	base.Seed = 9

	p, err := explainParams(schema.Census(), base, &explainFlags{})
	require.NoError(t, err)
	assert.Equal(t, int64(9), p.Seed, "config seed kept without the flag")

	p, err = explainParams(schema.Census(), base, &explainFlags{seed: 0, seedSet: true})
	require.NoError(t, err)
	assert.Zero(t, p.Seed, "an explicit zero seed wins")
}

func TestIndexedPath(t *testing.T) {
	assert.Equal(t, "out.png", indexedPath("out.png", 0, 1))
	assert.Equal(t, "dir/out-2.png", indexedPath("dir/out.png", 2, 3))
}

func TestExplainCmdEmptyRange(t *testing.T) {
	cfg := writeFile(t, "cfx.yaml", smallConfig)
	_, err := execute(t, "explain", "--config", cfg, "--range", "age=1000:1001")
	var ce *counterfactual.ConstraintError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "age", ce.Feature)
}

func TestExplainCmdBadInput(t *testing.T) {
	cfg := writeFile(t, "cfx.yaml", smallConfig)
	_, err := execute(t, "explain", "--config", cfg, "--set", "education=PhD")
	assert.ErrorIs(t, err, schema.ErrInvalidValue)

	_, err = execute(t, "explain", "--config", cfg, "--set", "age=NaN")
	assert.ErrorIs(t, err, schema.ErrInvalidValue)

	_, err = execute(t, "explain", "--config", cfg, "--range", "age=40")
	assert.Error(t, err)

	_, err = execute(t, "explain", "--config", cfg, "-o", "xml")
	assert.Error(t, err)

	_, err = execute(t, "train", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	s := schema.Census()
	name, r, err := parseRange(s, "age=40:50")
	require.NoError(t, err)
	assert.Equal(t, "age", name)
	assert.Equal(t, schema.Between(40, 50), r)

	_, r, err = parseRange(s, "education= Doctorate | Prof-school ")
	require.NoError(t, err)
	assert.Equal(t, schema.OneOf("Doctorate", "Prof-school"), r)

	_, r, err = parseRange(s, "education=13:14")
	require.NoError(t, err)
	assert.Equal(t, schema.Between(13, 14), r, "numeric interval over categories")

	for _, bad := range []string{"age", "salary=1:2", "age=a:b"} {
		_, _, err := parseRange(s, bad)
		assert.Error(t, err, bad)
	}
}

func TestDecodeQueries(t *testing.T) {
	ms, err := decodeQueries(strings.NewReader(`{"age": 22, "race": "White"}`))
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, 22, ms[0]["age"])

	_, err = decodeQueries(strings.NewReader(`42`))
	assert.Error(t, err)
}
