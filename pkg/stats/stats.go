// Package stats computes per-feature summary statistics in a single chunked
// pass over the event source.
package stats

import (
	"fmt"
	"math"

	"github.com/maverikod/vvz-muons/pkg/features"
	"github.com/maverikod/vvz-muons/pkg/quantile"
	"github.com/maverikod/vvz-muons/pkg/source"
)

// MedianSampleRows bounds the initial sample used for the median estimate.
// min/max/mean/std come from the full pass; the median intentionally does not.
const MedianSampleRows = 200_000

// Record holds the statistics of one feature. Immutable once computed.
type Record struct {
	Name        string  `json:"branch"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	MissingRate float64 `json:"nan_rate"`
	Median      float64 `json:"median"`
	N           int     `json:"n"`
}

// accumulator tracks running sums over the valid (finite) values of one
// feature.
type accumulator struct {
	n        int
	nValid   int
	nanCount int
	min      float64
	max      float64
	sum      float64
	sum2     float64
}

func (a *accumulator) update(values []float64) {
	for _, v := range values {
		a.n++
		if math.IsNaN(v) || math.IsInf(v, 0) {
			a.nanCount++
			continue
		}
		if a.nValid == 0 {
			a.min = v
			a.max = v
		} else {
			a.min = math.Min(a.min, v)
			a.max = math.Max(a.max, v)
		}
		a.sum += v
		a.sum2 += v * v
		a.nValid++
	}
}

func (a *accumulator) record(name string, nTotal int, median float64) Record {
	rec := Record{
		Name:   name,
		Min:    math.NaN(),
		Max:    math.NaN(),
		Mean:   math.NaN(),
		Std:    math.NaN(),
		Median: median,
		N:      nTotal,
	}
	if a.n > 0 {
		rec.MissingRate = float64(a.nanCount) / float64(a.n)
	}
	if a.nValid == 0 {
		return rec
	}
	rec.Min = a.min
	rec.Max = a.max
	mean := a.sum / float64(a.nValid)
	rec.Mean = mean
	varRaw := math.Max(0, a.sum2/float64(a.nValid)-mean*mean)
	if a.nValid > 1 {
		// Bessel correction on the population variance accumulated above.
		rec.Std = math.Sqrt(varRaw * float64(a.nValid) / float64(a.nValid-1))
	} else {
		rec.Std = 0
	}
	return rec
}

// BoundedRows applies the optional row cap: min(total, maxEvents) when
// maxEvents > 0, otherwise total.
func BoundedRows(total, maxEvents int) int {
	if maxEvents > 0 && maxEvents < total {
		return maxEvents
	}
	return total
}

// Compute runs the single streaming pass and returns one Record per feature,
// in feature order. The median is estimated from the first
// min(MedianSampleRows, total) rows only.
func Compute(src source.EventSource, list features.List, chunk, maxEvents int) ([]Record, error) {
	if chunk <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunk)
	}
	nTotal := BoundedRows(src.NumRows(), maxEvents)
	accs := make([]accumulator, list.Len())

	for start := 0; start < nTotal; start += chunk {
		stop := start + chunk
		if stop > nTotal {
			stop = nTotal
		}
		values, err := features.ChunkValues(src, list, start, stop)
		if err != nil {
			return nil, fmt.Errorf("statistics pass: %w", err)
		}
		for i := range accs {
			accs[i].update(values[i])
		}
	}

	medians, err := sampleMedians(src, list, nTotal)
	if err != nil {
		return nil, err
	}

	out := make([]Record, list.Len())
	for i, name := range list.Names() {
		out[i] = accs[i].record(name, nTotal, medians[i])
	}
	return out, nil
}

func sampleMedians(src source.EventSource, list features.List, nTotal int) ([]float64, error) {
	nSample := nTotal
	if nSample > MedianSampleRows {
		nSample = MedianSampleRows
	}
	out := make([]float64, list.Len())
	if nSample == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out, nil
	}
	values, err := features.ChunkValues(src, list, 0, nSample)
	if err != nil {
		return nil, fmt.Errorf("median sample: %w", err)
	}
	for i := range out {
		out[i] = quantile.MedianIgnoringNaN(values[i])
	}
	return out, nil
}
