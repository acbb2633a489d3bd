package pipeline

import (
	"fmt"

	"github.com/bpst-apps/explainable-ai/pkg/data"
	"github.com/bpst-apps/explainable-ai/pkg/dataprep"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

// Dataset is a frame parsed against a schema, with the outcome label encoded.
type Dataset struct {
	Rows    []schema.Row
	Labels  []int
	Classes []string // outcome values indexed by label
}

// FromFrame parses every record of f with s. Records that do not fit the
// schema are an error; clean the frame first.
func FromFrame(f *data.Frame, s *schema.Schema) (*Dataset, error) {
	outcome, err := f.Column(s.Outcome)
	if err != nil {
		return nil, err
	}
	rows := make([]schema.Row, len(f.Records))
	for i, rec := range f.Records {
		r, err := s.ParseRecord(f.Header, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows[i] = r
	}
	labels, classes := dataprep.LabelEncode(outcome)
	return &Dataset{Rows: rows, Labels: labels, Classes: classes}, nil
}
