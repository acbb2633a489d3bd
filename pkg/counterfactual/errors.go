package counterfactual

import (
	"errors"
	"fmt"
)

// ErrInvalidParams marks parameter validation failures.
var ErrInvalidParams = errors.New("invalid parameters")

// ConstraintError reports a feature whose requested constraints cannot be
// met: an empty permitted domain, or a variable feature that is unknown or
// immutable. The request is aborted and not retried.
type ConstraintError struct {
	Feature string
	Reason  string
	Err     error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint on feature %q: %s", e.Feature, e.Reason)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// PredictionError wraps a predictor failure. Index is the candidate's
// generation order, or -1 for the query row itself.
type PredictionError struct {
	Index int
	Err   error
}

func (e *PredictionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("prediction failed for query: %v", e.Err)
	}
	return fmt.Sprintf("prediction failed for candidate %d: %v", e.Index, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// InsufficientCandidatesError is returned when the attempts budget runs out
// before the requested number of counterfactuals was found. Partial holds
// what was selected.
type InsufficientCandidatesError struct {
	Requested int
	Found     int
	Attempts  int
	Valid     int
	Partial   []Counterfactual
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("found %d of %d counterfactuals after %d attempts (%d valid candidates)",
		e.Found, e.Requested, e.Attempts, e.Valid)
}
