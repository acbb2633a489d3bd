package dataprep

import (
	"strconv"

	"github.com/bpst-apps/explainable-ai/pkg/stats"
)

// IsMissing reports whether a cell is one of the recognised missing markers.
func IsMissing(v string) bool {
	switch v {
	case "", "NA", "NaN", "?", "null":
		return true
	}
	return false
}

func numericValues(col []string) []float64 {
	var nums []float64
	for _, v := range col {
		if IsMissing(v) {
			continue
		}
		if num, err := strconv.ParseFloat(v, 64); err == nil {
			nums = append(nums, num)
		}
	}
	return nums
}

func fill(col []string, value string) []string {
	for i, v := range col {
		if IsMissing(v) {
			col[i] = value
		}
	}
	return col
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ImputeMean replaces missing numeric values with the column mean.
func ImputeMean(col []string) []string {
	return fill(col, formatNumber(stats.Mean(numericValues(col))))
}

// ImputeMedian replaces missing numeric values with the column median.
func ImputeMedian(col []string) []string {
	return fill(col, formatNumber(stats.Median(numericValues(col))))
}

// ImputeMode replaces missing values with the most frequent present value.
func ImputeMode(col []string) []string {
	var present []string
	for _, v := range col {
		if !IsMissing(v) {
			present = append(present, v)
		}
	}
	return fill(col, stats.Mode(present))
}

// ImputeConstant replaces missing values with a fixed constant.
func ImputeConstant(col []string, constant string) []string {
	return fill(col, constant)
}
