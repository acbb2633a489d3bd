package dataprep

import (
	"log/slog"
	"strconv"

	"github.com/bpst-apps/explainable-ai/internal/logging"
	"github.com/bpst-apps/explainable-ai/pkg/data"
	"github.com/bpst-apps/explainable-ai/pkg/stats"
)

// Strategy names how a column's missing values were filled.
type Strategy string

const (
	StrategyNone     Strategy = "none"
	StrategyMean     Strategy = "mean"
	StrategyMedian   Strategy = "median"
	StrategyMode     Strategy = "mode"
	StrategyConstant Strategy = "constant"
	StrategyDropped  Strategy = "dropped"
)

// Report records the strategy chosen per column.
type Report map[string]Strategy

// HandleMissingValues picks an imputation strategy per column from its type,
// distribution and missing ratio, and drops columns whose missing ratio
// exceeds threshold. keep lists columns that are never dropped (the outcome).
// The frame is modified in place.
func HandleMissingValues(f *data.Frame, threshold float64, keep ...string) Report {
	logger := logging.New("dataprep")
	report := make(Report, len(f.Header))
	if f.Len() == 0 {
		return report
	}
	protected := make(map[string]bool, len(keep))
	for _, k := range keep {
		protected[k] = true
	}

	rows := f.Len()
	keepColumns := make([]bool, len(f.Header))
	for c, name := range f.Header {
		col := make([]string, rows)
		missing := 0
		for r, rec := range f.Records {
			col[r] = rec[c]
			if IsMissing(rec[c]) {
				missing++
			}
		}
		ratio := float64(missing) / float64(rows)

		if ratio > threshold && !protected[name] {
			logger.Info("dropping column", slog.String("column", name), slog.Float64("missing", ratio))
			report[name] = StrategyDropped
			continue
		}
		keepColumns[c] = true
		if missing == 0 {
			report[name] = StrategyNone
			continue
		}

		strategy := chooseStrategy(col, ratio)
		switch strategy {
		case StrategyMean:
			col = ImputeMean(col)
		case StrategyMedian:
			col = ImputeMedian(col)
		case StrategyMode:
			col = ImputeMode(col)
		case StrategyConstant:
			if isNumeric(col) {
				col = ImputeConstant(col, "0")
			} else {
				col = ImputeConstant(col, "Unknown")
			}
		}
		logger.Debug("imputed column", slog.String("column", name), slog.String("strategy", string(strategy)), slog.Float64("missing", ratio))
		report[name] = strategy
		for r := range f.Records {
			f.Records[r][c] = col[r]
		}
	}

	header := make([]string, 0, len(f.Header))
	for c, name := range f.Header {
		if keepColumns[c] {
			header = append(header, name)
		}
	}
	for r, rec := range f.Records {
		out := make([]string, 0, len(header))
		for c, v := range rec {
			if keepColumns[c] {
				out = append(out, v)
			}
		}
		f.Records[r] = out
	}
	f.Header = header
	return report
}

func chooseStrategy(col []string, ratio float64) Strategy {
	if isNumeric(col) {
		nums := numericValues(col)
		switch {
		case ratio < 0.05:
			return StrategyMean
		case stats.Skew(nums) > 1.0:
			return StrategyMedian
		case ratio < 0.2:
			return StrategyMedian
		default:
			return StrategyConstant
		}
	}
	if ratio < 0.1 {
		return StrategyMode
	}
	return StrategyConstant
}

func isNumeric(col []string) bool {
	seen := false
	for _, v := range col {
		if IsMissing(v) {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// DropDuplicates removes repeated records, keeping first occurrences.
func DropDuplicates(f *data.Frame) int {
	seen := make(map[string]struct{}, f.Len())
	out := f.Records[:0]
	for _, rec := range f.Records {
		key := ""
		for _, v := range rec {
			key += v + "\x00"
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	dropped := len(f.Records) - len(out)
	f.Records = out
	return dropped
}
