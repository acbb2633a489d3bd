// Package plot draws summaries of counterfactual results with gonum/plot.
package plot

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/bpst-apps/explainable-ai/pkg/counterfactual"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

// ChangeFrequency counts, per feature in schema order, how many
// counterfactuals across results change it.
func ChangeFrequency(s *schema.Schema, results ...*counterfactual.Result) []int {
	counts := make([]int, s.Len())
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, cf := range res.Counterfactuals {
			for _, name := range cf.Changed {
				if i, err := s.Index(name); err == nil {
					counts[i]++
				}
			}
		}
	}
	return counts
}

// SaveChangeFrequency writes a bar chart of ChangeFrequency to filename.
// The format follows the extension (.png, .svg, .pdf).
func SaveChangeFrequency(filename string, s *schema.Schema, results ...*counterfactual.Result) error {
	counts := ChangeFrequency(s, results...)
	values := make(plotter.Values, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
	}

	p := plot.New()
	p.Title.Text = "Feature change frequency"
	p.Y.Label.Text = "counterfactuals"

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotter.DefaultLineStyle.Color
	p.Add(bars)
	p.NominalX(s.Names()...)

	width := vg.Length(max(6, s.Len())) * vg.Inch
	if err := p.Save(width, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("plot: save %s: %w", filename, err)
	}
	return nil
}

// SaveScores writes a proximity/diversity scatter of the selected
// counterfactuals to filename.
func SaveScores(filename string, res *counterfactual.Result) error {
	if res == nil || len(res.Counterfactuals) == 0 {
		return errors.New("plot: no counterfactuals")
	}
	pts := make(plotter.XYs, len(res.Counterfactuals))
	for i, cf := range res.Counterfactuals {
		pts[i] = plotter.XY{X: cf.Proximity, Y: cf.Diversity}
	}

	p := plot.New()
	p.Title.Text = "Counterfactual scores"
	p.X.Label.Text = "proximity"
	p.Y.Label.Text = "diversity"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	sc.Shape = draw.CrossGlyph{}
	sc.Radius = vg.Points(5)
	p.Add(sc)

	if err := p.Save(4*vg.Inch, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("plot: save %s: %w", filename, err)
	}
	return nil
}
