// Package counterfactual searches for diverse counterfactual explanations of
// a black-box classifier's prediction on one tabular row.
package counterfactual

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bpst-apps/explainable-ai/internal/logging"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

// Stage is a step of one explanation request.
type Stage int

const (
	Initialized Stage = iota
	Generating
	Validating
	Selecting
	Done
	Failed
)

func (s Stage) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Generating:
		return "generating"
	case Validating:
		return "validating"
	case Selecting:
		return "selecting"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Stats counts what happened to the drawn candidates.
type Stats struct {
	Attempts         int // candidates drawn
	Valid            int // distinct candidates reaching the desired outcome
	Duplicates       int
	Unchanged        int // draws identical to the query
	PredictionErrors int
}

// Result is the outcome of one Explain call.
type Result struct {
	ID              uuid.UUID
	Query           schema.Row
	QueryPrediction Prediction
	Desired         Desired
	// DesiredClass is the class counterfactuals must reach, or -1 when any
	// class other than the query's will do.
	DesiredClass    int
	Counterfactuals []Counterfactual
	Stats           Stats
	Stage           Stage
}

// Explainer runs counterfactual searches against one schema and predictor.
// It holds no per-request state and may be shared between goroutines.
type Explainer struct {
	schema    *schema.Schema
	predictor Predictor
	log       *slog.Logger
}

// ExplainerOption configures an Explainer.
type ExplainerOption func(*Explainer)

// WithLogger sets the logger. The default is the "counterfactual" component logger.
func WithLogger(l *slog.Logger) ExplainerOption {
	return func(e *Explainer) { e.log = l }
}

// NewExplainer validates the schema and returns an explainer.
func NewExplainer(s *schema.Schema, p Predictor, opts ...ExplainerOption) (*Explainer, error) {
	if s == nil || p == nil {
		return nil, errors.New("counterfactual: schema and predictor are required")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	e := &Explainer{schema: s, predictor: p}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = logging.New("counterfactual")
	}
	return e, nil
}

// Schema returns the explainer's schema.
func (e *Explainer) Schema() *schema.Schema { return e.schema }

// Explain searches for p.TotalCFs counterfactuals of query.
//
// Candidates are drawn sequentially from a stream seeded with p.Seed and
// scored by p.Workers goroutines; scored batches are merged in draw order
// and selection is sequential, so the result does not depend on Workers.
// When the attempts budget runs out first, Explain returns the partial
// Result together with an *InsufficientCandidatesError.
func (e *Explainer) Explain(ctx context.Context, query schema.Row, p Params) (*Result, error) {
	p = p.WithDefaults()
	r := &run{
		e:   e,
		p:   p,
		res: &Result{ID: uuid.New(), Query: query.Clone(), Desired: p.Desired, Stage: Initialized},
	}
	r.log = e.log.With("request", r.res.ID.String())
	err := r.do(ctx)
	if err != nil {
		r.res.Stage = Failed
		r.log.Debug("explain failed", "error", err)
		return r.res, err
	}
	r.transition(Done)
	return r.res, nil
}

// ExplainAll explains each query in turn. Query i uses seed p.Seed+i.
// Results are returned for every query; failures are joined, each prefixed
// with its query index.
func (e *Explainer) ExplainAll(ctx context.Context, queries []schema.Row, p Params) ([]*Result, error) {
	results := make([]*Result, len(queries))
	var errs []error
	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		qp := p
		qp.Seed = p.Seed + int64(i)
		res, err := e.Explain(ctx, q, qp)
		results[i] = res
		if err != nil {
			errs = append(errs, fmt.Errorf("query %d: %w", i, err))
		}
	}
	return results, errors.Join(errs...)
}

// run is the state of a single request.
type run struct {
	e   *Explainer
	p   Params
	res *Result
	log *slog.Logger
	gen *Generator
}

func (r *run) transition(s Stage) {
	r.log.Debug("stage", "from", r.res.Stage.String(), "to", s.String())
	r.res.Stage = s
}

func (r *run) do(ctx context.Context) error {
	s, p := r.e.schema, r.p
	if err := p.Validate(); err != nil {
		return err
	}
	if err := r.checkQuery(); err != nil {
		return err
	}
	gen, err := NewGenerator(s, r.res.Query, p)
	if err != nil {
		return err
	}
	r.gen = gen

	qp, err := r.e.predictor.Predict(r.res.Query)
	if err != nil {
		return &PredictionError{Index: -1, Err: err}
	}
	r.res.QueryPrediction = qp
	if p.Desired.Explicit {
		if p.Desired.Class == qp.Class {
			return fmt.Errorf("%w: desired class %d is already the query's prediction", ErrInvalidParams, qp.Class)
		}
		if len(qp.Classes) > 0 && !slices.Contains(qp.Classes, p.Desired.Class) {
			return fmt.Errorf("%w: desired class %d not in model classes %v", ErrInvalidParams, p.Desired.Class, qp.Classes)
		}
	}
	r.res.DesiredClass = p.Desired.target(qp)
	r.log.Debug("query predicted", "class", qp.Class, "desired", r.res.DesiredClass)

	pool, err := r.collect(ctx)
	if err != nil {
		return err
	}

	r.transition(Selecting)
	sel := Selector{
		Schema:          s,
		Query:           r.res.Query,
		ProximityWeight: p.ProximityWeight,
		DiversityWeight: p.DiversityWeight,
	}
	picked := sel.Select(pool, p.TotalCFs)
	if p.Sparsity {
		picked = r.sparsify(sel, picked)
	}
	r.res.Counterfactuals = picked
	r.log.Debug("selected", "count", len(picked), "pool", len(pool))

	if len(picked) < p.TotalCFs {
		return &InsufficientCandidatesError{
			Requested: p.TotalCFs,
			Found:     len(picked),
			Attempts:  r.res.Stats.Attempts,
			Valid:     r.res.Stats.Valid,
			Partial:   picked,
		}
	}
	return nil
}

func (r *run) checkQuery() error {
	s, q := r.e.schema, r.res.Query
	if len(q) != s.Len() {
		return fmt.Errorf("%w: query has %d values, schema %d features", schema.ErrInvalidValue, len(q), s.Len())
	}
	for i, f := range s.Features {
		switch {
		case f.Kind == schema.Categorical && !f.HasCategory(q[i].Str):
			return fmt.Errorf("feature %q: %w: category %q not in domain", f.Name, schema.ErrInvalidValue, q[i].Str)
		case f.Kind == schema.Continuous && (math.IsNaN(q[i].Num) || math.IsInf(q[i].Num, 0)):
			return fmt.Errorf("feature %q: %w: %v is not finite", f.Name, schema.ErrInvalidValue, q[i].Num)
		}
	}
	return nil
}

// collect draws batches until PoolSize valid distinct candidates are found
// or MaxAttempts draws were made.
func (r *run) collect(ctx context.Context) ([]Counterfactual, error) {
	p, st := r.p, &r.res.Stats
	seen := map[string]struct{}{r.res.Query.Key(): {}}
	var pool []Counterfactual

	for st.Attempts < p.MaxAttempts && len(pool) < p.PoolSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.transition(Generating)
		n := min(p.BatchSize, p.MaxAttempts-st.Attempts)
		batch := make([]Candidate, 0, n)
		for range n {
			c := r.gen.Next()
			st.Attempts++
			if c.Row.Equal(r.res.Query) {
				st.Unchanged++
				continue
			}
			k := c.Row.Key()
			if _, dup := seen[k]; dup {
				st.Duplicates++
				continue
			}
			seen[k] = struct{}{}
			batch = append(batch, c)
		}

		r.transition(Validating)
		preds, errs, err := r.predictBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		for i, c := range batch {
			if errs[i] != nil {
				st.PredictionErrors++
				r.log.Debug("candidate skipped", "error", &PredictionError{Index: c.Seq, Err: errs[i]})
				continue
			}
			if len(pool) == p.PoolSize || !r.valid(preds[i]) {
				continue
			}
			pool = append(pool, Counterfactual{Row: c.Row, Prediction: preds[i], Seq: c.Seq})
			st.Valid++
		}
	}
	r.log.Debug("pool collected", "valid", st.Valid, "attempts", st.Attempts,
		"duplicates", st.Duplicates, "prediction_errors", st.PredictionErrors)
	return pool, nil
}

// predictBatch scores a batch on a bounded worker pool. Predictor failures
// are returned per candidate; only cancellation fails the batch.
func (r *run) predictBatch(ctx context.Context, batch []Candidate) ([]Prediction, []error, error) {
	preds := make([]Prediction, len(batch))
	errs := make([]error, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.p.Workers)
	for i := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			preds[i], errs[i] = r.e.predictor.Predict(batch[i].Row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return preds, errs, nil
}

func (r *run) valid(pred Prediction) bool {
	return r.p.Desired.satisfied(r.res.QueryPrediction, pred, r.p.StoppingThreshold)
}

// sparsify moves each counterfactual back toward the query one feature at a
// time, keeping a change only when undoing it loses the desired outcome.
// Continuous features that cannot be fully reverted are bisected toward the
// query value. Scores are recomputed afterwards.
func (r *run) sparsify(sel Selector, cfs []Counterfactual) []Counterfactual {
	s, q := r.e.schema, r.res.Query
	// Sparsified rows must not collide with any selected row or each other.
	seen := make(map[string]struct{}, 2*len(cfs))
	for _, cf := range cfs {
		seen[cf.Row.Key()] = struct{}{}
	}
	out := make([]Counterfactual, 0, len(cfs))
	for _, cf := range cfs {
		row, pred := cf.Row.Clone(), cf.Prediction
		for i, f := range s.Features {
			if row[i] == q[i] {
				continue
			}
			old := row[i]
			row[i] = q[i]
			if np, ok := r.check(row); ok {
				pred = np
				continue
			}
			row[i] = old
			if f.Kind == schema.Continuous {
				if v, np, ok := r.bisect(row, i); ok {
					row[i], pred = v, np
				}
			}
		}
		if k := row.Key(); k != cf.Row.Key() {
			if _, dup := seen[k]; dup || row.Equal(q) {
				row, pred = cf.Row, cf.Prediction
			} else {
				seen[k] = struct{}{}
			}
		}
		cf.Row, cf.Prediction = row, pred
		out = append(out, cf)
	}
	rescore(sel, out)
	return out
}

// bisect searches between the current value of feature i (valid) and the
// query value clamped into the feature's domain (invalid) for the valid
// value closest to the query.
func (r *run) bisect(row schema.Row, i int) (schema.Value, Prediction, bool) {
	f := r.e.schema.Features[i]
	d := r.gen.Domain(i)
	good := row[i].Num
	bad := d.Clamp(r.res.Query[i].Num)
	cur := row.Clone()

	var best Prediction
	found := false
	if bad != r.res.Query[i].Num {
		cur[i] = schema.Num(bad)
		if np, ok := r.check(cur); ok {
			return cur[i], np, true
		}
	}
	for range 30 {
		mid := (good + bad) / 2
		if r.p.Rounding == RoundPrecision {
			mid = roundIn(mid, f.Precision, d)
		}
		if mid == good || mid == bad {
			break
		}
		cur[i] = schema.Num(mid)
		if np, ok := r.check(cur); ok {
			good, best, found = mid, np, true
		} else {
			bad = mid
		}
	}
	return schema.Num(good), best, found
}

func (r *run) check(row schema.Row) (Prediction, bool) {
	pred, err := r.e.predictor.Predict(row)
	if err != nil {
		return Prediction{}, false
	}
	return pred, r.valid(pred)
}

func rescore(sel Selector, cfs []Counterfactual) {
	for k := range cfs {
		c := &cfs[k]
		c.Changed = sel.Schema.Diff(sel.Query, c.Row)
		c.Proximity = 1 - Distance(sel.Schema, sel.Query, c.Row)
		c.Diversity = 0
		for j := 0; j < k; j++ {
			d := Distance(sel.Schema, cfs[j].Row, c.Row)
			if j == 0 || d < c.Diversity {
				c.Diversity = d
			}
		}
		c.Score = sel.DiversityWeight*c.Diversity + sel.ProximityWeight*c.Proximity
	}
}
