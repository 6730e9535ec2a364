package observable_test

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maverikod/vvz-muons/pkg/features"
	"github.com/maverikod/vvz-muons/pkg/observable"
	"github.com/maverikod/vvz-muons/pkg/source"
	"github.com/maverikod/vvz-muons/pkg/stats"
)

func buildSource(t *testing.T, cols map[string][]float64, n int) (*source.MemorySource, features.List) {
	t.Helper()
	src := source.NewMemorySource(n)
	var list features.List
	for _, name := range sortedKeys(cols) {
		require.NoError(t, src.AddScalar(name, cols[name]))
		list.Specs = append(list.Specs, features.Spec{Branch: name})
	}
	return src, list
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func computeStats(t *testing.T, src source.EventSource, list features.List) []stats.Record {
	t.Helper()
	recs, err := stats.Compute(src, list, 1000, 0)
	require.NoError(t, err)
	return recs
}

func TestBuildQuantileOneHot(t *testing.T) {
	n := 100
	ramp := make([]float64, n)
	for i := range ramp {
		ramp[i] = float64(i)
	}
	src, list := buildSource(t, map[string][]float64{"a": ramp, "b": ramp}, n)
	recs := computeStats(t, src, list)

	bins := 4
	res, err := observable.BuildQuantile(src, list, recs, bins, 32, 0)
	require.NoError(t, err)

	o := res.O
	assert.Equal(t, n, o.NumRows)
	assert.Equal(t, list.Len()*bins, o.NumCols)
	assert.Equal(t, n*list.Len(), o.Nnz())

	// Exactly one unit entry per feature block on every row.
	for r := 0; r < n; r++ {
		cols, vals := o.Row(r)
		require.Len(t, cols, 2)
		assert.Less(t, cols[0], bins)
		assert.GreaterOrEqual(t, cols[1], bins)
		assert.Less(t, cols[1], 2*bins)
		assert.Equal(t, []float64{1, 1}, vals)
	}

	// A uniform ramp fills the four quartile bins evenly.
	counts := make([]int, bins)
	for r := 0; r < n; r++ {
		cols, _ := o.Row(r)
		counts[cols[0]]++
	}
	assert.Equal(t, []int{25, 25, 25, 25}, counts)
}

func TestBuildQuantileEdges(t *testing.T) {
	vals := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	src, list := buildSource(t, map[string][]float64{"x": vals}, len(vals))
	recs := computeStats(t, src, list)

	res, err := observable.BuildQuantile(src, list, recs, 4, 8, 0)
	require.NoError(t, err)
	require.Len(t, res.Edges, 1)

	edges := res.Edges[0].Edges
	require.Len(t, edges, 5)
	assert.True(t, math.IsInf(edges[0], -1))
	assert.InDelta(t, 1.75, edges[1], 1e-12)
	assert.InDelta(t, 3.5, edges[2], 1e-12)
	assert.InDelta(t, 5.25, edges[3], 1e-12)
	assert.True(t, math.IsInf(edges[4], 1))
}

func TestBuildQuantileIdempotent(t *testing.T) {
	n := 500
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = math.Sin(float64(i))
	}
	src, list := buildSource(t, map[string][]float64{"x": vals}, n)
	recs := computeStats(t, src, list)

	first, err := observable.BuildQuantile(src, list, recs, 16, 128, 0)
	require.NoError(t, err)
	second, err := observable.BuildQuantile(src, list, recs, 16, 64, 0)
	require.NoError(t, err)

	// Bit-identical regardless of chunking.
	assert.Equal(t, first.Edges, second.Edges)
	assert.Equal(t, first.O, second.O)
}

func TestBuildQuantileImputesMissing(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, math.NaN()}
	src, list := buildSource(t, map[string][]float64{"x": vals}, len(vals))
	recs := computeStats(t, src, list)

	res, err := observable.BuildQuantile(src, list, recs, 2, 6, 0)
	require.NoError(t, err)

	// The NaN row still gets exactly one nonzero, in the median's bin.
	cols, valsRow := res.O.Row(5)
	require.Len(t, cols, 1)
	assert.Equal(t, 1.0, valsRow[0])
	medianCols, _ := res.O.Row(2) // value 3 = median of the valid sample
	assert.Equal(t, medianCols, cols)
}

func TestBuildQuantileZeroRows(t *testing.T) {
	src := source.NewMemorySource(0)
	require.NoError(t, src.AddScalar("x", nil))
	list := features.List{Specs: []features.Spec{{Branch: "x"}}}
	recs := computeStats(t, src, list)

	res, err := observable.BuildQuantile(src, list, recs, 4, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.O.NumRows)
	assert.Equal(t, 4, res.O.NumCols)
	assert.Equal(t, 0, res.O.Nnz())
}

func TestBuildQuantileRejectsBadParams(t *testing.T) {
	src, list := buildSource(t, map[string][]float64{"x": {1, 2}}, 2)
	recs := computeStats(t, src, list)

	_, err := observable.BuildQuantile(src, list, recs, 0, 10, 0)
	require.Error(t, err)
	_, err = observable.BuildQuantile(src, list, recs, 4, 0, 0)
	require.Error(t, err)
	_, err = observable.BuildQuantile(src, list, recs[:0], 4, 10, 0)
	require.Error(t, err)
}
