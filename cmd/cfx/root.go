// cfx trains a tabular classifier and explains its predictions with
// diverse counterfactuals.
//
// Usage:
//
//	cfx schema  [--config cfx.yaml]
//	cfx train   [--config cfx.yaml] [--cv 5]
//	cfx explain [--config cfx.yaml] --query query.yaml [--total-cfs 5] [--vary age,education] [--range age=40:50]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bpst-apps/explainable-ai/internal/config"
	"github.com/bpst-apps/explainable-ai/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

// app is the state shared by the subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "cfx",
		Short:         "Diverse counterfactual explanations for tabular classifiers",
		Long:          "cfx trains a classifier on a tabular dataset and searches for\nminimal, diverse feature changes that flip its prediction.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "YAML run configuration (default: built-in synthetic census)")
	f.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	f.StringVar(&a.logFormat, "log-format", "", "text or json (overrides config)")

	root.AddCommand(newSchemaCmd(a), newTrainCmd(a), newExplainCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.Init(level, cfg.Log.Format, cmd.ErrOrStderr())
	a.cfg = cfg
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
