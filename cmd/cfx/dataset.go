package main

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/bpst-apps/explainable-ai/internal/config"
	"github.com/bpst-apps/explainable-ai/internal/logging"
	"github.com/bpst-apps/explainable-ai/pkg/data"
	"github.com/bpst-apps/explainable-ai/pkg/dataprep"
	"github.com/bpst-apps/explainable-ai/pkg/loader"
	"github.com/bpst-apps/explainable-ai/pkg/model"
	"github.com/bpst-apps/explainable-ai/pkg/pipeline"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

// loadDataset reads (or generates) the training frame and its schema.
func loadDataset(cfg config.Dataset) (*data.Frame, *schema.Schema, error) {
	log := logging.New("dataset")
	if cfg.Path == "" {
		f := data.SyntheticCensus(cfg.SyntheticRows, cfg.Noise, cfg.Seed)
		s := schema.Census()
		if err := s.Apply(cfg.SchemaOptions()...); err != nil {
			return nil, nil, err
		}
		log.Info("generated synthetic census", "rows", f.Len())
		return f, s, nil
	}

	f, err := data.ReadCSV(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	report := dataprep.HandleMissingValues(f, cfg.MissingThreshold, cfg.Outcome)
	dropped := dataprep.DropDuplicates(f)
	log.Info("loaded dataset", "path", cfg.Path, "rows", f.Len(), "duplicates_dropped", dropped, "columns_cleaned", len(report))

	s, err := schema.Infer(f, cfg.Outcome, cfg.Continuous, cfg.SchemaOptions()...)
	if err != nil {
		return nil, nil, err
	}
	return f, s, nil
}

// trained is a fitted pipeline and its held-out evaluation.
type trained struct {
	schema   *schema.Schema
	pipe     *pipeline.Pipeline
	dataset  *pipeline.Dataset
	report   model.Report
	train    int
	test     int
	positive int
}

// train fits the configured pipeline on a split of the dataset.
func train(cfg config.Config) (*trained, error) {
	f, s, err := loadDataset(cfg.Dataset)
	if err != nil {
		return nil, err
	}
	ds, err := pipeline.FromFrame(f, s)
	if err != nil {
		return nil, err
	}
	if len(ds.Classes) < 2 {
		return nil, fmt.Errorf("outcome %q has %d class(es), need at least 2", s.Outcome, len(ds.Classes))
	}

	rnd := rand.New(rand.NewSource(cfg.Dataset.Seed))
	trainX, testX, trainY, testY := ds.Rows, []schema.Row(nil), ds.Labels, []int(nil)
	if cfg.Dataset.TestRatio > 0 {
		trainX, testX, trainY, testY, err = loader.TrainTestSplit(ds.Rows, ds.Labels, cfg.Dataset.TestRatio, rnd)
		if err != nil {
			return nil, err
		}
	}

	p := cfg.Model.Pipeline(s)
	if err := p.Fit(trainX, trainY); err != nil {
		return nil, err
	}
	t := &trained{schema: s, pipe: p, dataset: ds, train: len(trainX), test: len(testX), positive: len(ds.Classes) - 1}
	if len(testX) > 0 {
		if t.report, err = p.Evaluate(testX, testY, t.positive); err != nil {
			return nil, err
		}
	}
	logging.New("train").Info("model trained", "kind", cfg.Model.Kind, "train", t.train, "test", t.test, "accuracy", t.report.Accuracy)
	return t, nil
}

func (t *trained) print(w io.Writer) {
	fmt.Fprintf(w, "Features: %d  Classes: %v\n", t.schema.Len(), t.dataset.Classes)
	fmt.Fprintf(w, "Train rows: %d  Test rows: %d\n", t.train, t.test)
	if t.test > 0 {
		fmt.Fprintf(w, "Test (positive=%s): %s\n", t.dataset.Classes[t.positive], t.report)
	}
}
