package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/bpst-apps/explainable-ai/pkg/pipeline"
	"github.com/bpst-apps/explainable-ai/pkg/stats"
)

func newTrainCmd(a *app) *cobra.Command {
	var folds int
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the configured model and report held-out metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := train(a.cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			t.print(out)
			if folds < 2 {
				return nil
			}
			scores, err := pipeline.CrossValidate(
				func() *pipeline.Pipeline { return a.cfg.Model.Pipeline(t.schema) },
				t.dataset.Rows, t.dataset.Labels, folds, rand.New(rand.NewSource(a.cfg.Dataset.Seed)),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Cross-validation (%d folds): accuracy %.4f ± %.4f\n", folds, stats.Mean(scores), stats.Std(scores))
			return nil
		},
	}
	cmd.Flags().IntVar(&folds, "cv", 0, "also run k-fold cross-validation with this many folds")
	return cmd
}
