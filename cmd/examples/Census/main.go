// Census walks through counterfactual explanations on a synthetic
// census-income dataset: train a random forest behind a one-hot pipeline,
// then ask three questions about one young, low-income query.
//
// Example:
//
//	go run ./cmd/examples/Census --rows 5000 --plot changes.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"

	"github.com/bpst-apps/explainable-ai/internal/logging"
	"github.com/bpst-apps/explainable-ai/pkg/counterfactual"
	"github.com/bpst-apps/explainable-ai/pkg/data"
	"github.com/bpst-apps/explainable-ai/pkg/format"
	"github.com/bpst-apps/explainable-ai/pkg/loader"
	"github.com/bpst-apps/explainable-ai/pkg/model"
	"github.com/bpst-apps/explainable-ai/pkg/pipeline"
	"github.com/bpst-apps/explainable-ai/pkg/plot"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

func main() {
	rows := flag.Int("rows", 5000, "synthetic rows to generate")
	seed := flag.Int64("seed", 42, "random seed")
	plotPath := flag.String("plot", "", "write a change-frequency chart here (.png or .svg)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	lvl := slog.LevelInfo
	if *verbose {
		lvl = slog.LevelDebug
	}
	logging.Init(lvl, "text")

	// ---- Data & model ----
	s := schema.Census()
	ds, err := pipeline.FromFrame(data.SyntheticCensus(*rows, 0.02, *seed), s)
	if err != nil {
		log.Fatalf("dataset: %v", err)
	}
	trainX, testX, trainY, testY, err := loader.TrainTestSplit(ds.Rows, ds.Labels, 0.2, rand.New(rand.NewSource(*seed)))
	if err != nil {
		log.Fatalf("split: %v", err)
	}
	pipe := pipeline.New(s, model.NewRandomForest(
		model.WithNEstimators(100),
		model.WithForestMaxDepth(12),
		model.WithForestRandomState(*seed),
	))
	if err := pipe.Fit(trainX, trainY); err != nil {
		log.Fatalf("fit: %v", err)
	}
	report, err := pipe.Evaluate(testX, testY, 1)
	if err != nil {
		log.Fatalf("evaluate: %v", err)
	}
	fmt.Printf("Random forest on %d rows: %s\n\n", len(trainX), report)

	// ---- Explanations ----
	query, err := s.RowFromMap(map[string]any{
		"age": 22, "workclass": "Private", "education": "HS-grad",
		"marital_status": "Single", "occupation": "Blue-Collar", "race": "White",
		"gender": "Male", "hours_per_week": 16,
	})
	if err != nil {
		log.Fatalf("query: %v", err)
	}
	explainer, err := counterfactual.NewExplainer(s, pipe)
	if err != nil {
		log.Fatalf("explainer: %v", err)
	}

	runs := []struct {
		title string
		edit  func(*counterfactual.Params)
	}{
		{"Any feature may change", func(p *counterfactual.Params) { p.TotalCFs = 5 }},
		{"Only age, education and occupation", func(p *counterfactual.Params) {
			p.FeaturesToVary = []string{"age", "education", "occupation"}
		}},
		{"Age 40-50, doctorate or professional school", func(p *counterfactual.Params) {
			p.PermittedRange = map[string]schema.Range{
				"age":       schema.Between(40, 50),
				"education": schema.OneOf("Doctorate", "Prof-school"),
			}
		}},
	}

	var results []*counterfactual.Result
	for _, r := range runs {
		p := counterfactual.DefaultParams()
		p.Seed = *seed
		r.edit(&p)

		res, err := explainer.Explain(context.Background(), query, p)
		var insufficient *counterfactual.InsufficientCandidatesError
		switch {
		case errors.As(err, &insufficient):
			fmt.Printf("%s: only %d of %d found\n", r.title, insufficient.Found, insufficient.Requested)
		case err != nil:
			log.Fatalf("%s: %v", r.title, err)
		}
		results = append(results, res)

		fmt.Printf("== %s (%d attempts, %d valid) ==\n", r.title, res.Stats.Attempts, res.Stats.Valid)
		if err := format.Render(os.Stdout, format.ChangesOnly(s, res), format.Text); err != nil {
			log.Fatal(err)
		}
		fmt.Println()
	}

	if *plotPath != "" {
		if err := plot.SaveChangeFrequency(*plotPath, s, results...); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Wrote", *plotPath)
	}
}
