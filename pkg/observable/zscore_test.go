package observable_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/maverikod/vvz-muons/pkg/features"
	"github.com/maverikod/vvz-muons/pkg/observable"
	"github.com/maverikod/vvz-muons/pkg/source"
)

func listOf2(names ...string) features.List {
	var l features.List
	for _, n := range names {
		l.Specs = append(l.Specs, features.Spec{Branch: n})
	}
	return l
}

func TestDiskMatrixRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.f64")
	m, err := observable.CreateDiskMatrix(path, 4, 3)
	require.NoError(t, err)

	block := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, m.WriteRows(1, block))
	require.NoError(t, m.Close())

	m2, err := observable.OpenDiskMatrix(path)
	require.NoError(t, err)
	defer m2.Close()
	assert.Equal(t, 4, m2.NumRows)
	assert.Equal(t, 3, m2.NumCols)

	got, err := m2.ReadRows(1, 3)
	require.NoError(t, err)
	assert.True(t, mat.Equal(block, got))

	// Untouched rows read back as zeros.
	row0, err := m2.ReadRows(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, mat.Sum(row0))

	empty, err := m2.ReadRows(2, 2)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestDiskMatrixBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.f64")
	m, err := observable.CreateDiskMatrix(path, 2, 2)
	require.NoError(t, err)
	defer m.Close()

	require.Error(t, m.WriteRows(1, mat.NewDense(2, 2, nil)))
	require.Error(t, m.WriteRows(0, mat.NewDense(1, 3, nil)))
	_, err = m.ReadRows(0, 3)
	require.Error(t, err)
}

func TestBuildZscore(t *testing.T) {
	n := 100
	ramp := make([]float64, n)
	constant := make([]float64, n)
	for i := range ramp {
		ramp[i] = float64(i)
		constant[i] = 7
	}
	src := source.NewMemorySource(n)
	require.NoError(t, src.AddScalar("const", constant))
	require.NoError(t, src.AddScalar("ramp", ramp))

	list := listOf2("const", "ramp")
	recs := computeStats(t, src, list)

	path := filepath.Join(t.TempDir(), "o.f64")
	m, err := observable.BuildZscore(src, list, recs, path, 32, 0)
	require.NoError(t, err)
	defer m.Close()

	full, err := m.ReadAll()
	require.NoError(t, err)
	r, c := full.Dims()
	assert.Equal(t, n, r)
	assert.Equal(t, 2, c)

	// Zero-variance column standardizes to the constant zero column.
	zero := mat.Col(nil, 0, full)
	for _, v := range zero {
		assert.Equal(t, 0.0, v)
	}

	// Standardized ramp has mean 0 and sample std 1.
	col := mat.Col(nil, 1, full)
	var sum, sum2 float64
	for _, v := range col {
		sum += v
		sum2 += v * v
	}
	mean := sum / float64(n)
	assert.InDelta(t, 0, mean, 1e-12)
	std := math.Sqrt((sum2 - float64(n)*mean*mean) / float64(n-1))
	assert.InDelta(t, 1, std, 1e-12)
}

func TestBuildZscoreImputesMissing(t *testing.T) {
	src := source.NewMemorySource(5)
	require.NoError(t, src.AddScalar("x", []float64{1, 2, 3, 4, math.NaN()}))
	list := listOf2("x")
	recs := computeStats(t, src, list)

	path := filepath.Join(t.TempDir(), "o.f64")
	m, err := observable.BuildZscore(src, list, recs, path, 5, 0)
	require.NoError(t, err)
	defer m.Close()

	full, err := m.ReadAll()
	require.NoError(t, err)
	// Median of the valid sample is 2.5; the missing row standardizes to it.
	want := (2.5 - recs[0].Mean) / recs[0].Std
	assert.InDelta(t, want, full.At(4, 0), 1e-12)
}
