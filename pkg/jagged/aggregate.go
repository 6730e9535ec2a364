// Package jagged reduces variable-length event columns to one scalar per
// event through a fixed catalogue of aggregate functions.
package jagged

import (
	"fmt"
	"math"

	"github.com/maverikod/vvz-muons/pkg/quantile"
)

// AggNames is the fixed aggregate catalogue. "len" counts elements; "std" is
// the population standard deviation; "q25"/"median"/"q75" are per-event
// quantiles that ignore NaN elements; "l2" is the Euclidean norm.
var AggNames = []string{"len", "sum", "mean", "std", "min", "max", "q25", "median", "q75", "l2"}

// ValidAgg reports whether name is in the aggregate catalogue.
func ValidAgg(name string) bool {
	for _, a := range AggNames {
		if a == name {
			return true
		}
	}
	return false
}

// Aggregate computes one scalar per event for a jagged column. An event with
// zero elements yields 0 for "len" and NaN for every other aggregate.
func Aggregate(rows [][]float64, agg string) ([]float64, error) {
	if !ValidAgg(agg) {
		return nil, fmt.Errorf("unknown aggregator: %s", agg)
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = aggregateOne(row, agg)
	}
	return out, nil
}

func aggregateOne(row []float64, agg string) float64 {
	if agg == "len" {
		return float64(len(row))
	}
	if len(row) == 0 {
		return math.NaN()
	}
	switch agg {
	case "sum":
		return sum(row)
	case "mean":
		return sum(row) / float64(len(row))
	case "std":
		mean := sum(row) / float64(len(row))
		var ss float64
		for _, v := range row {
			d := v - mean
			ss += d * d
		}
		return math.Sqrt(ss / float64(len(row)))
	case "min":
		m := row[0]
		for _, v := range row[1:] {
			m = math.Min(m, v)
		}
		return m
	case "max":
		m := row[0]
		for _, v := range row[1:] {
			m = math.Max(m, v)
		}
		return m
	case "q25":
		return quantileIgnoringNaN(row, 0.25)
	case "median":
		return quantileIgnoringNaN(row, 0.5)
	case "q75":
		return quantileIgnoringNaN(row, 0.75)
	case "l2":
		var ss float64
		for _, v := range row {
			ss += v * v
		}
		return math.Sqrt(ss)
	}
	return math.NaN()
}

func sum(row []float64) float64 {
	var s float64
	for _, v := range row {
		s += v
	}
	return s
}

func quantileIgnoringNaN(row []float64, q float64) float64 {
	vals := make([]float64, 0, len(row))
	for _, v := range row {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	return quantile.OfSample(vals, q)
}
