package counterfactual

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

var validate = validator.New()

// Desired is the outcome a counterfactual must reach: any class other than
// the query's prediction, or one explicit class. The zero value is opposite.
type Desired struct {
	Explicit bool
	Class    int
}

// Opposite asks for any class other than the query's prediction.
func Opposite() Desired { return Desired{} }

// Class asks for an explicit class.
func Class(c int) Desired { return Desired{Explicit: true, Class: c} }

// IsOpposite reports whether no explicit class was requested.
func (d Desired) IsOpposite() bool { return !d.Explicit }

// ParseDesired accepts "opposite" or an integer class label.
func ParseDesired(s string) (Desired, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "opposite") {
		return Opposite(), nil
	}
	c, err := strconv.Atoi(s)
	if err != nil {
		return Desired{}, fmt.Errorf("%w: desired class %q is neither \"opposite\" nor an integer", ErrInvalidParams, s)
	}
	return Class(c), nil
}

func (d Desired) String() string {
	if d.IsOpposite() {
		return "opposite"
	}
	return strconv.Itoa(d.Class)
}

func (d Desired) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Desired) UnmarshalText(b []byte) error {
	v, err := ParseDesired(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// target resolves the class a counterfactual must reach, or -1 when any
// class other than the original will do (Opposite over more than two classes).
func (d Desired) target(original Prediction) int {
	if d.Explicit {
		return d.Class
	}
	if len(original.Classes) == 2 {
		if original.Classes[0] == original.Class {
			return original.Classes[1]
		}
		return original.Classes[0]
	}
	return -1
}

// satisfied reports whether p reaches the desired outcome with at least
// threshold probability on its predicted class.
func (d Desired) satisfied(original, p Prediction, threshold float64) bool {
	if d.IsOpposite() {
		if p.Class == original.Class {
			return false
		}
	} else if p.Class != d.Class {
		return false
	}
	return p.ProbaOf(p.Class) >= threshold
}

// Rounding is the policy applied to sampled continuous values.
type Rounding string

const (
	// RoundPrecision rounds to the feature's Precision, staying in its domain.
	RoundPrecision Rounding = "precision"
	// RoundNone keeps raw uniform draws.
	RoundNone Rounding = "none"
)

// Params configures one explanation request.
type Params struct {
	TotalCFs       int                     `yaml:"total_cfs" validate:"gt=0"`
	Desired        Desired                 `yaml:"desired_class"`
	FeaturesToVary []string                `yaml:"features_to_vary"`
	PermittedRange map[string]schema.Range `yaml:"permitted_range"`

	// MaxAttempts caps candidate draws; it is the search's only timeout.
	MaxAttempts int `yaml:"max_attempts" validate:"gte=0"`

	// PoolSize stops drawing once this many valid, distinct candidates exist.
	PoolSize  int   `yaml:"pool_size" validate:"gte=0"`
	BatchSize int   `yaml:"batch_size" validate:"gte=0"`
	Workers   int   `yaml:"workers" validate:"gte=0"`
	Seed      int64 `yaml:"seed"`

	ProximityWeight   float64 `yaml:"proximity_weight" validate:"gte=0"`
	DiversityWeight   float64 `yaml:"diversity_weight" validate:"gte=0"`
	StoppingThreshold float64 `yaml:"stopping_threshold" validate:"gte=0,lte=1"`

	Rounding Rounding `yaml:"rounding" validate:"omitempty,oneof=precision none"`
	// Sparsity reverts changes that are not needed to keep the outcome.
	Sparsity bool `yaml:"sparsity"`
}

// DefaultParams returns the defaults used by the CLI: K=4 opposite-class
// counterfactuals with post-hoc sparsity on.
func DefaultParams() Params {
	return Params{
		TotalCFs:          4,
		Desired:           Opposite(),
		ProximityWeight:   0.5,
		DiversityWeight:   1.0,
		StoppingThreshold: 0.5,
		Rounding:          RoundPrecision,
		Sparsity:          true,
	}.WithDefaults()
}

// WithDefaults fills unset numeric knobs.
func (p Params) WithDefaults() Params {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 10000
	}
	if p.PoolSize == 0 {
		p.PoolSize = 20 * max(p.TotalCFs, 1)
	}
	if p.BatchSize == 0 {
		p.BatchSize = 64
	}
	if p.Workers == 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	if p.ProximityWeight == 0 && p.DiversityWeight == 0 {
		p.ProximityWeight, p.DiversityWeight = 0.5, 1.0
	}
	if p.StoppingThreshold == 0 {
		p.StoppingThreshold = 0.5
	}
	if p.Rounding == "" {
		p.Rounding = RoundPrecision
	}
	return p
}

// Validate checks field ranges.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if p.PoolSize > 0 && p.PoolSize < p.TotalCFs {
		return fmt.Errorf("%w: pool size %d is smaller than total_cfs %d", ErrInvalidParams, p.PoolSize, p.TotalCFs)
	}
	return nil
}
