package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bpst-apps/explainable-ai/pkg/counterfactual"
	"github.com/bpst-apps/explainable-ai/pkg/format"
	"github.com/bpst-apps/explainable-ai/pkg/plot"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

// censusQuery is explained when no query is given on the synthetic dataset.
var censusQuery = map[string]any{
	"age": 22, "workclass": "Private", "education": "HS-grad",
	"marital_status": "Single", "occupation": "Blue-Collar", "race": "White",
	"gender": "Male", "hours_per_week": 16,
}

type explainFlags struct {
	queryPath string
	set       []string
	totalCFs  int
	desired   string
	vary      []string
	ranges    []string
	seed      int64
	seedSet   bool
	attempts  int
	workers   int
	noSparse  bool
	style     string
	full      bool
	scores    bool
	plotPath  string
	scoresAt  string
}

func newExplainCmd(a *app) *cobra.Command {
	var fl explainFlags
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Generate counterfactuals for one or more query rows",
		Example: `  cfx explain --total-cfs 5
  cfx explain --query query.yaml --vary age,education,occupation
  cfx explain --range age=40:50 --range "education=Doctorate|Prof-school"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplain(cmd, a, &fl)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&fl.queryPath, "query", "q", "", "YAML or JSON file holding one query row (a map) or a list of them")
	f.StringArrayVar(&fl.set, "set", nil, "query value as feature=value; repeatable, overrides --query")
	f.IntVarP(&fl.totalCFs, "total-cfs", "k", 0, "number of counterfactuals per query (overrides config)")
	f.StringVar(&fl.desired, "desired", "", `"opposite" or a class label (overrides config)`)
	f.StringSliceVar(&fl.vary, "vary", nil, "features allowed to change (default: all mutable)")
	f.StringArrayVar(&fl.ranges, "range", nil, "permitted range: feature=min:max or feature=a|b|c; repeatable")
	f.Int64Var(&fl.seed, "seed", 0, "random seed (overrides config)")
	f.IntVar(&fl.attempts, "max-attempts", 0, "candidate draw budget (overrides config)")
	f.IntVar(&fl.workers, "workers", 0, "prediction workers (default: GOMAXPROCS)")
	f.BoolVar(&fl.noSparse, "no-sparsity", false, "keep counterfactuals as drawn, without reverting unneeded changes")
	f.StringVarP(&fl.style, "output", "o", "text", "table style: text, markdown or csv")
	f.BoolVar(&fl.full, "full", false, "show every value instead of only the changed ones")
	f.BoolVar(&fl.scores, "scores", false, "also print proximity and diversity scores")
	f.StringVar(&fl.plotPath, "plot", "", "write a feature change-frequency chart (.png, .svg)")
	f.StringVar(&fl.scoresAt, "scores-plot", "", "write a proximity/diversity scatter per query (.png, .svg)")
	return cmd
}

func runExplain(cmd *cobra.Command, a *app, fl *explainFlags) error {
	fl.seedSet = cmd.Flags().Changed("seed")
	style, err := format.ParseStyle(fl.style)
	if err != nil {
		return err
	}
	t, err := train(a.cfg)
	if err != nil {
		return err
	}
	s := t.schema

	queries, err := readQueries(s, fl, a.cfg.Dataset.Path == "")
	if err != nil {
		return err
	}
	params, err := explainParams(s, a.cfg.Explain, fl)
	if err != nil {
		return err
	}

	e, err := counterfactual.NewExplainer(s, t.pipe)
	if err != nil {
		return err
	}
	results, explainErr := e.ExplainAll(cmd.Context(), queries, params)

	out := cmd.OutOrStdout()
	for i, res := range results {
		if res == nil || (res.Stage == counterfactual.Failed && len(res.Counterfactuals) == 0) {
			continue
		}
		if len(results) > 1 {
			fmt.Fprintf(out, "Query %d\n", i)
		}
		tbl := format.ChangesOnly(s, res)
		if fl.full {
			tbl = format.Full(s, res)
		}
		if err := format.Render(out, tbl, style); err != nil {
			return err
		}
		if fl.scores {
			if err := format.Render(out, format.Scores(res), style); err != nil {
				return err
			}
		}
		if fl.scoresAt != "" && len(res.Counterfactuals) > 0 {
			path := indexedPath(fl.scoresAt, i, len(results))
			if err := plot.SaveScores(path, res); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", path)
		}
	}
	if fl.plotPath != "" {
		if err := plot.SaveChangeFrequency(fl.plotPath, s, results...); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", fl.plotPath)
	}
	return explainErr
}

func explainParams(s *schema.Schema, p counterfactual.Params, fl *explainFlags) (counterfactual.Params, error) {
	if fl.totalCFs > 0 {
		p.TotalCFs = fl.totalCFs
	}
	if fl.desired != "" {
		d, err := counterfactual.ParseDesired(fl.desired)
		if err != nil {
			return p, err
		}
		p.Desired = d
	}
	if len(fl.vary) > 0 {
		p.FeaturesToVary = fl.vary
	}
	if len(fl.ranges) > 0 {
		ranges := make(map[string]schema.Range, len(p.PermittedRange)+len(fl.ranges))
		for k, v := range p.PermittedRange {
			ranges[k] = v
		}
		for _, arg := range fl.ranges {
			name, r, err := parseRange(s, arg)
			if err != nil {
				return p, err
			}
			ranges[name] = r
		}
		p.PermittedRange = ranges
	}
	if fl.seedSet {
		p.Seed = fl.seed
	}
	if fl.attempts > 0 {
		p.MaxAttempts = fl.attempts
	}
	if fl.workers > 0 {
		p.Workers = fl.workers
	}
	if fl.noSparse {
		p.Sparsity = false
	}
	return p, nil
}

// indexedPath inserts the query index before the extension when several
// queries share one output path.
func indexedPath(path string, i, n int) string {
	if n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), i, ext)
}

// parseRange reads feature=min:max for continuous features and
// feature=a|b|c for categorical ones.
func parseRange(s *schema.Schema, arg string) (string, schema.Range, error) {
	name, val, ok := strings.Cut(arg, "=")
	if !ok {
		return "", schema.Range{}, fmt.Errorf("range %q: want feature=value", arg)
	}
	name = strings.TrimSpace(name)
	f, err := s.Feature(name)
	if err != nil {
		return "", schema.Range{}, fmt.Errorf("range %q: %w", arg, err)
	}
	lo, hi, isInterval := strings.Cut(val, ":")
	if f.Kind == schema.Categorical && !isInterval {
		var cats []string
		for _, c := range strings.Split(val, "|") {
			if c = strings.TrimSpace(c); c != "" {
				cats = append(cats, c)
			}
		}
		return name, schema.OneOf(cats...), nil
	}
	if !isInterval {
		return "", schema.Range{}, fmt.Errorf("range %q: want min:max", arg)
	}
	a, errA := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err := errors.Join(errA, errB); err != nil {
		return "", schema.Range{}, fmt.Errorf("range %q: %w", arg, err)
	}
	return name, schema.Between(a, b), nil
}

// readQueries builds query rows from --query, then applies --set to each.
// Without --query the synthetic dataset starts from the built-in census
// query.
func readQueries(s *schema.Schema, fl *explainFlags, synthetic bool) ([]schema.Row, error) {
	var maps []map[string]any
	if fl.queryPath != "" {
		f, err := os.Open(fl.queryPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if maps, err = decodeQueries(f); err != nil {
			return nil, fmt.Errorf("query %s: %w", fl.queryPath, err)
		}
	}
	if len(maps) == 0 {
		switch {
		case synthetic:
			m := make(map[string]any, len(censusQuery))
			for k, v := range censusQuery {
				m[k] = v
			}
			maps = []map[string]any{m}
		case len(fl.set) > 0:
			maps = []map[string]any{{}}
		default:
			return nil, errors.New("no query: use --query or --set")
		}
	}
	for _, kv := range fl.set {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want feature=value", kv)
		}
		for _, m := range maps {
			m[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}

	rows := make([]schema.Row, len(maps))
	for i, m := range maps {
		r, err := s.RowFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		rows[i] = r
	}
	return rows, nil
}

// decodeQueries accepts a single mapping or a sequence of mappings.
func decodeQueries(r io.Reader) ([]map[string]any, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		return nil, err
	}
	doc := &node
	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 {
		doc = doc.Content[0]
	}
	switch doc.Kind {
	case yaml.MappingNode:
		var m map[string]any
		if err := doc.Decode(&m); err != nil {
			return nil, err
		}
		return []map[string]any{m}, nil
	case yaml.SequenceNode:
		var ms []map[string]any
		if err := doc.Decode(&ms); err != nil {
			return nil, err
		}
		return ms, nil
	}
	return nil, fmt.Errorf("line %d: want a mapping or a list of mappings", doc.Line)
}
