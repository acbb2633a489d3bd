package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"

	"github.com/bpst-apps/explainable-ai/pkg/data"
	"github.com/bpst-apps/explainable-ai/pkg/dataprep"
	"github.com/bpst-apps/explainable-ai/pkg/format"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
	"github.com/bpst-apps/explainable-ai/pkg/stats"
)

//
// ---------------------- CLI FLAGS DOCUMENTATION ----------------------
//
// --input         : Path to input CSV file. Empty = synthetic census with holes punched in it
// --outcome       : Outcome (label) column. Default = income
// --continuous    : Comma-separated continuous columns. Default = age,hours_per_week
// --missing-thresh: Drop columns with > threshold fraction missing values. Default=0.5
// --output        : Path to save the cleaned CSV (optional)
// --preview       : Number of encoded rows to preview in console
//
// Example:
//   go run ./cmd/examples/Data_PrePrep_MP --input adult.csv --output cleaned.csv
//
// ---------------------------------------------------------------------
//

func main() {
	inputPath := flag.String("input", "", "Path to input CSV file")
	outcome := flag.String("outcome", "income", "Outcome column")
	continuous := flag.String("continuous", "age,hours_per_week", "Comma-separated continuous columns")
	missingThresh := flag.Float64("missing-thresh", 0.5, "Threshold for dropping columns with too many missing values")
	outputPath := flag.String("output", "", "Path to save cleaned CSV")
	previewRows := flag.Int("preview", 5, "Number of rows to preview in console")
	flag.Parse()

	// ---- Load raw CSV (streamed) ----
	frame, err := load(*inputPath)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	fmt.Printf("Loaded raw data: %d rows, %d columns\n", frame.Len(), len(frame.Header))

	// ---- Handle Missing Values ----
	report := dataprep.HandleMissingValues(frame, *missingThresh, *outcome)
	for col, strategy := range report {
		fmt.Printf("  %-16s %v\n", col, strategy)
	}

	// ---- Drop Duplicates ----
	fmt.Printf("Dropped %d duplicate rows\n", dataprep.DropDuplicates(frame))

	// ---- Schema ----
	s, err := schema.Infer(frame, *outcome, strings.Split(*continuous, ","))
	if err != nil {
		log.Fatalf("schema: %v", err)
	}
	summary := format.Table{Title: "Inferred schema", Header: []string{"feature", "kind", "domain"}}
	for _, f := range s.Features {
		domain := strings.Join(f.Categories, ", ")
		if f.Kind == schema.Continuous {
			domain = fmt.Sprintf("[%v, %v] precision %d", f.Min, f.Max, f.Precision)
		}
		summary.Rows = append(summary.Rows, []string{f.Name, f.Kind.String(), domain})
	}
	if err := format.Render(os.Stdout, summary, format.Text); err != nil {
		log.Fatal(err)
	}

	// ---- Encoding & Scaling ----
	enc := dataprep.NewRowEncoder(s)
	rows := make([]schema.Row, 0, frame.Len())
	for i, rec := range frame.Records {
		r, err := s.ParseRecord(frame.Header, rec)
		if err != nil {
			log.Fatalf("record %d: %v", i, err)
		}
		rows = append(rows, r)
	}
	X, err := enc.EncodeAll(rows)
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	scaler := stats.NewStandardScaler()
	if err := scaler.Fit(X, nil); err != nil {
		log.Fatalf("scale: %v", err)
	}
	X = scaler.Transform(X)
	fmt.Printf("After preprocessing: %d samples, %d encoded features\n", len(X), enc.Width())

	preview := format.Table{Title: "Encoded preview", Header: enc.FeatureNames()}
	for _, row := range X[:min(*previewRows, len(X))] {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprintf("%.3f", v)
		}
		preview.Rows = append(preview.Rows, cells)
	}
	if err := format.Render(os.Stdout, preview, format.Text); err != nil {
		log.Fatal(err)
	}

	// ---- Output ----
	if *outputPath != "" {
		out, err := os.Create(*outputPath)
		if err != nil {
			log.Fatalf("Error creating output file: %v", err)
		}
		defer out.Close()
		if err := frame.WriteCSV(out); err != nil {
			log.Fatalf("write: %v", err)
		}
		fmt.Println("Cleaned data saved to:", *outputPath)
	}
}

// load streams records from path, or builds a synthetic census frame with
// about 3% of its cells blanked out.
func load(path string) (*data.Frame, error) {
	if path == "" {
		f := data.SyntheticCensus(2000, 0.02, 7)
		rnd := rand.New(rand.NewSource(7))
		for _, rec := range f.Records {
			for j := range rec[:len(rec)-1] {
				if rnd.Float64() < 0.03 {
					rec[j] = "?"
				}
			}
		}
		return f, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records := make(chan []string, 256)
	header, errc, err := data.StreamRecords(context.Background(), file, records)
	if err != nil {
		return nil, err
	}
	f := &data.Frame{Header: header}
	for rec := range records {
		f.Records = append(f.Records, rec)
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	return f, nil
}
