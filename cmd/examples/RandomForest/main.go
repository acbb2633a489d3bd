package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/bpst-apps/explainable-ai/pkg/data"
	"github.com/bpst-apps/explainable-ai/pkg/loader"
	"github.com/bpst-apps/explainable-ai/pkg/model"
	"github.com/bpst-apps/explainable-ai/pkg/pipeline"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
	"github.com/bpst-apps/explainable-ai/pkg/stats"
)

func main() {
	n := flag.Int("rows", 3000, "synthetic census rows")
	seed := flag.Int64("seed", 1, "random seed")
	folds := flag.Int("cv", 5, "cross-validation folds for the forest")
	flag.Parse()

	fmt.Println("=== Random Forest vs Decision Tree vs Logistic Regression ===")

	// Step 1. Generate dataset
	s := schema.Census()
	ds, err := pipeline.FromFrame(data.SyntheticCensus(*n, 0.02, *seed), s)
	if err != nil {
		log.Fatalf("dataset: %v", err)
	}
	fmt.Printf("Generated %d rows, %d features, classes %v\n", len(ds.Rows), s.Len(), ds.Classes)

	// Step 2. Split into train/test sets
	XTrain, XTest, yTrain, yTest, err := loader.TrainTestSplit(ds.Rows, ds.Labels, 0.3, rand.New(rand.NewSource(*seed)))
	if err != nil {
		log.Fatalf("split: %v", err)
	}
	fmt.Printf("Train size: %d, Test size: %d\n\n", len(XTrain), len(XTest))

	// Step 3. Train every model behind the same encoder
	forest := func() *pipeline.Pipeline {
		return pipeline.New(s, model.NewRandomForest(
			model.WithNEstimators(50),
			model.WithBootstrap(true),
			model.WithForestMaxDepth(12),
			model.WithForestRandomState(*seed),
		))
	}
	candidates := []struct {
		name string
		pipe *pipeline.Pipeline
	}{
		{"random forest", forest()},
		{"decision tree", pipeline.New(s, model.NewDecisionTreeClassifier(model.WithMaxDepth(8), model.WithRandomState(*seed)))},
		{"logistic", pipeline.New(s, model.NewLogisticRegression(model.WithEpochs(60), model.WithLogisticRandomState(*seed)), stats.NewStandardScaler())},
	}
	for _, c := range candidates {
		if err := c.pipe.Fit(XTrain, yTrain); err != nil {
			log.Fatalf("%s: %v", c.name, err)
		}
		rep, err := c.pipe.Evaluate(XTest, yTest, 1)
		if err != nil {
			log.Fatalf("%s: %v", c.name, err)
		}
		fmt.Printf("%-14s %s\n", c.name, rep)
	}

	// Step 4. Cross-validate the forest
	if *folds > 1 {
		scores, err := pipeline.CrossValidate(forest, ds.Rows, ds.Labels, *folds, rand.New(rand.NewSource(*seed)))
		if err != nil {
			log.Fatalf("cv: %v", err)
		}
		fmt.Printf("\nForest %d-fold accuracy: %.4f ± %.4f (min %.4f)\n",
			*folds, stats.Mean(scores), stats.Std(scores), minOf(scores))
	}
}

func minOf(xs []float64) float64 {
	lo, _ := stats.MinMax(xs)
	return lo
}
