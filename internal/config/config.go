// Package config loads the YAML run configuration shared by the cfx
// subcommands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/bpst-apps/explainable-ai/pkg/counterfactual"
	"github.com/bpst-apps/explainable-ai/pkg/model"
	"github.com/bpst-apps/explainable-ai/pkg/pipeline"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
	"github.com/bpst-apps/explainable-ai/pkg/stats"
)

var validate = validator.New()

// Config is the full run configuration.
type Config struct {
	Dataset Dataset               `yaml:"dataset"`
	Model   Model                 `yaml:"model"`
	Explain counterfactual.Params `yaml:"explain"`
	Log     Log                   `yaml:"log"`
}

// Dataset says where training rows come from and how to read them. An empty
// Path selects the synthetic census generator.
type Dataset struct {
	Path             string   `yaml:"path"`
	SyntheticRows    int      `yaml:"synthetic_rows" validate:"gte=0"`
	Noise            float64  `yaml:"noise" validate:"gte=0,lte=1"`
	Outcome          string   `yaml:"outcome" validate:"required"`
	Continuous       []string `yaml:"continuous"`
	Immutable        []string `yaml:"immutable"`
	MissingThreshold float64  `yaml:"missing_threshold" validate:"gte=0,lte=1"`
	TestRatio        float64  `yaml:"test_ratio" validate:"gte=0,lt=1"`
	Seed             int64    `yaml:"seed"`

	// Precision overrides the rounding decimals of continuous features.
	Precision map[string]int `yaml:"precision" validate:"dive,gte=0,lte=6"`
}

// Model selects and tunes the classifier.
type Model struct {
	Kind           string  `yaml:"kind" validate:"oneof=random_forest decision_tree logistic"`
	Trees          int     `yaml:"trees" validate:"gte=0"`
	MaxDepth       int     `yaml:"max_depth" validate:"gte=0"`
	MinSamplesLeaf int     `yaml:"min_samples_leaf" validate:"gte=0"`
	Epochs         int     `yaml:"epochs" validate:"gte=0"`
	LearningRate   float64 `yaml:"learning_rate" validate:"gte=0"`
	L2             float64 `yaml:"l2" validate:"gte=0"`
	Scale          bool    `yaml:"scale"`
	Seed           int64   `yaml:"seed"`

	MinImpurityDecrease float64 `yaml:"min_impurity_decrease" validate:"gte=0"`
}

// Log configures internal/logging.
type Log struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Default is the configuration used when no file is given: a random forest
// on synthetic census data, four opposite-class counterfactuals.
func Default() Config {
	return Config{
		Dataset: Dataset{
			SyntheticRows:    2000,
			Noise:            0.02,
			Outcome:          "income",
			Continuous:       []string{"age", "hours_per_week"},
			MissingThreshold: 0.5,
			TestRatio:        0.2,
			Seed:             42,
		},
		Model: Model{
			Kind:           "random_forest",
			Trees:          100,
			MaxDepth:       12,
			MinSamplesLeaf: 1,
			Epochs:         50,
			LearningRate:   0.1,
			Seed:           42,
		},
		Explain: counterfactual.Params{
			TotalCFs:          4,
			Desired:           counterfactual.Opposite(),
			ProximityWeight:   0.5,
			DiversityWeight:   1.0,
			StoppingThreshold: 0.5,
			Rounding:          counterfactual.RoundPrecision,
			Sparsity:          true,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path over Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses YAML from r over Default and validates the result.
func Decode(r io.Reader) (Config, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if len(bytes.TrimSpace(b)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Explain.Validate(); err != nil {
		return fmt.Errorf("config: explain: %w", err)
	}
	return nil
}

// SchemaOptions turns the immutable list and precision overrides into
// schema options, precision in feature-name order.
func (d Dataset) SchemaOptions() []schema.InferOption {
	opts := []schema.InferOption{schema.WithImmutable(d.Immutable...)}
	names := make([]string, 0, len(d.Precision))
	for name := range d.Precision {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, schema.WithPrecision(name, d.Precision[name]))
	}
	return opts
}

// Classifier builds the configured, untrained model.
func (m Model) Classifier() model.Classifier {
	switch m.Kind {
	case "decision_tree":
		return model.NewDecisionTreeClassifier(
			model.WithMaxDepth(m.MaxDepth),
			model.WithMinSamplesLeaf(max(m.MinSamplesLeaf, 1)),
			model.WithMinImpurityDecrease(m.MinImpurityDecrease),
			model.WithRandomState(m.Seed),
		)
	case "logistic":
		return model.NewLogisticRegression(
			model.WithEpochs(m.Epochs),
			model.WithLearningRate(m.LearningRate),
			model.WithL2(m.L2),
			model.WithLogisticRandomState(m.Seed),
		)
	default:
		return model.NewRandomForest(
			model.WithNEstimators(max(m.Trees, 1)),
			model.WithForestMaxDepth(m.MaxDepth),
			model.WithForestMinSamplesLeaf(max(m.MinSamplesLeaf, 1)),
			model.WithForestMinImpurityDecrease(m.MinImpurityDecrease),
			model.WithForestRandomState(m.Seed),
		)
	}
}

// Pipeline wires the configured classifier behind a row encoder, with a
// standard scaler step when Scale is set. Logistic regression is always
// scaled.
func (m Model) Pipeline(s *schema.Schema) *pipeline.Pipeline {
	var steps []pipeline.Transformer
	if m.Scale || m.Kind == "logistic" {
		steps = append(steps, stats.NewStandardScaler())
	}
	return pipeline.New(s, m.Classifier(), steps...)
}
