package observable

import (
	"fmt"
	"math"
	"sort"

	"github.com/maverikod/vvz-muons/pkg/features"
	"github.com/maverikod/vvz-muons/pkg/quantile"
	"github.com/maverikod/vvz-muons/pkg/source"
	"github.com/maverikod/vvz-muons/pkg/stats"
)

// EdgeSampleRows bounds the initial sample the quantile edges are estimated
// from.
const EdgeSampleRows = 200_000

// BinEdges holds the quantile bin boundaries of one feature: bins+1 edges,
// monotonically non-decreasing, with the outer two forced to -Inf/+Inf so
// every value lands in a bin. Duplicate quantiles collapse bins.
type BinEdges struct {
	Feature string
	Edges   []float64
}

// QuantileResult is the sparse one-hot observable matrix plus the bin-edge
// table it was encoded with.
type QuantileResult struct {
	O     *CSR
	Edges []BinEdges
	Bins  int
}

// BuildQuantile encodes each row as one unit-weight nonzero per feature
// block: feature j with bin b maps to column j*bins+b. Non-finite values are
// imputed with the feature's sampled median before binning. Coordinate
// triples accumulate per chunk and are flushed into the CSR once at the end.
func BuildQuantile(src source.EventSource, list features.List, recs []stats.Record, bins, chunk, maxEvents int) (*QuantileResult, error) {
	if bins <= 0 {
		return nil, fmt.Errorf("bins must be positive, got %d", bins)
	}
	if chunk <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunk)
	}
	if len(recs) != list.Len() {
		return nil, fmt.Errorf("have %d statistics records for %d features", len(recs), list.Len())
	}
	nTotal := stats.BoundedRows(src.NumRows(), maxEvents)
	d := list.Len() * bins

	edges, err := QuantileEdges(src, list, recs, bins, nTotal)
	if err != nil {
		return nil, err
	}

	acc := &coo{}
	for start := 0; start < nTotal; start += chunk {
		stop := start + chunk
		if stop > nTotal {
			stop = nTotal
		}
		values, err := features.ChunkValues(src, list, start, stop)
		if err != nil {
			return nil, fmt.Errorf("quantile encoding: %w", err)
		}
		for j := range list.Specs {
			median := recs[j].Median
			edgesJ := edges[j].Edges
			offset := j * bins
			for i, v := range values[j] {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					v = median
				}
				acc.add(start+i, offset+binIndex(edgesJ, v, bins), 1)
			}
		}
	}

	o := NewCSRFromCOO(nTotal, d, acc.rows, acc.cols, acc.data)
	return &QuantileResult{O: o, Edges: edges, Bins: bins}, nil
}

// QuantileEdges computes bins+1 edges per feature from the first
// min(EdgeSampleRows, nTotal) rows. With zero rows the inner edges are all 0.
func QuantileEdges(src source.EventSource, list features.List, recs []stats.Record, bins, nTotal int) ([]BinEdges, error) {
	names := list.Names()
	out := make([]BinEdges, list.Len())

	nSample := nTotal
	if nSample > EdgeSampleRows {
		nSample = EdgeSampleRows
	}
	if nSample == 0 {
		for j, name := range names {
			edges := make([]float64, bins+1)
			edges[0] = math.Inf(-1)
			edges[bins] = math.Inf(1)
			out[j] = BinEdges{Feature: name, Edges: edges}
		}
		return out, nil
	}

	values, err := features.ChunkValues(src, list, 0, nSample)
	if err != nil {
		return nil, fmt.Errorf("edge sample: %w", err)
	}
	for j, name := range names {
		median := recs[j].Median
		vals := make([]float64, len(values[j]))
		for i, v := range values[j] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = median
			}
			vals[i] = v
		}
		sort.Float64s(vals)
		edges := make([]float64, bins+1)
		edges[0] = math.Inf(-1)
		for k := 1; k < bins; k++ {
			edges[k] = quantile.Linear(vals, float64(k)/float64(bins))
		}
		edges[bins] = math.Inf(1)
		out[j] = BinEdges{Feature: name, Edges: edges}
	}
	return out, nil
}

// binIndex finds the bin of v by right-exclusive interval search over the
// edges, clipped to [0, bins-1].
func binIndex(edges []float64, v float64, bins int) int {
	// First index with edges[i] > v, minus one: the searchsorted "right" rule.
	idx := sort.Search(len(edges), func(i int) bool { return edges[i] > v }) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > bins-1 {
		idx = bins - 1
	}
	return idx
}
