// Package format renders counterfactual results as tables.
package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/bpst-apps/explainable-ai/pkg/counterfactual"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
)

// Unchanged is the placeholder for a value equal to the query's.
const Unchanged = "-"

// Style selects the output syntax.
type Style string

const (
	Text     Style = "text"
	Markdown Style = "markdown"
	CSV      Style = "csv"
)

// ParseStyle accepts "text", "markdown" (or "md") and "csv".
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(s) {
	case "", "text", "ascii":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	}
	return "", fmt.Errorf("format: unknown style %q", s)
}

// Table is a rendered result: one header and string cells. The first row
// is the query.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// ChangesOnly lists the query followed by each counterfactual, showing only
// the values that changed. The last column is the outcome class.
func ChangesOnly(s *schema.Schema, res *counterfactual.Result) Table {
	return build(s, res, true)
}

// Full lists every value of every row.
func Full(s *schema.Schema, res *counterfactual.Result) Table {
	return build(s, res, false)
}

func build(s *schema.Schema, res *counterfactual.Result, changesOnly bool) Table {
	t := Table{Header: append(s.Names(), s.Outcome)}
	t.Title = fmt.Sprintf("Query instance (original outcome: %d)", res.QueryPrediction.Class)

	t.Rows = append(t.Rows, cells(s, res.Query, nil, res.QueryPrediction.Class))
	for _, cf := range res.Counterfactuals {
		var q schema.Row
		if changesOnly {
			q = res.Query
		}
		t.Rows = append(t.Rows, cells(s, cf.Row, q, cf.Prediction.Class))
	}
	return t
}

// cells formats row; values equal to query are replaced by Unchanged when
// query is non-nil.
func cells(s *schema.Schema, row, query schema.Row, class int) []string {
	out := make([]string, 0, len(row)+1)
	for i, f := range s.Features {
		if query != nil && row[i] == query[i] {
			out = append(out, Unchanged)
			continue
		}
		out = append(out, f.Format(row[i]))
	}
	return append(out, strconv.Itoa(class))
}

// Scores tabulates how each counterfactual was chosen.
func Scores(res *counterfactual.Result) Table {
	t := Table{
		Title:  "Selection scores",
		Header: []string{"#", "changed", "proximity", "diversity", "score"},
	}
	for i, cf := range res.Counterfactuals {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i + 1),
			strings.Join(cf.Changed, ","),
			strconv.FormatFloat(cf.Proximity, 'f', 3, 64),
			strconv.FormatFloat(cf.Diversity, 'f', 3, 64),
			strconv.FormatFloat(cf.Score, 'f', 3, 64),
		})
	}
	return t
}

// Render writes t to w in the given style.
func Render(w io.Writer, t Table, style Style) error {
	tw := table.NewWriter()
	header := make(table.Row, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, r := range t.Rows {
		row := make(table.Row, len(r))
		for i, c := range r {
			row[i] = c
		}
		tw.AppendRow(row)
	}

	var out string
	switch style {
	case Markdown:
		out = tw.RenderMarkdown()
	case CSV:
		out = tw.RenderCSV()
	case Text, "":
		tw.SetStyle(table.StyleLight)
		if t.Title != "" {
			tw.SetTitle(t.Title)
		}
		out = tw.Render()
	default:
		return fmt.Errorf("format: unknown style %q", style)
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}
