package source_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maverikod/vvz-muons/pkg/source"
)

func TestMemorySourceFetch(t *testing.T) {
	src := source.NewMemorySource(4)
	require.NoError(t, src.AddScalar("pt", []float64{1, 2, 3, 4}))
	require.NoError(t, src.AddJagged("hits", [][]float64{{1}, {}, {2, 3}, {4}}))

	assert.Equal(t, 4, src.NumRows())
	assert.Equal(t, []string{"pt", "hits"}, src.FeatureNames())

	cols, err := src.Fetch([]string{"pt", "hits"}, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, cols["pt"].Scalar)
	require.Len(t, cols["hits"].Jagged, 2)
	assert.Empty(t, cols["hits"].Jagged[0])
	assert.Equal(t, []float64{2, 3}, cols["hits"].Jagged[1])
}

func TestMemorySourceErrors(t *testing.T) {
	src := source.NewMemorySource(2)
	require.Error(t, src.AddScalar("pt", []float64{1}))
	require.NoError(t, src.AddScalar("pt", []float64{1, 2}))

	_, err := src.Fetch([]string{"eta"}, 0, 2)
	require.Error(t, err)

	_, err = src.Fetch([]string{"pt"}, 0, 3)
	require.Error(t, err)
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVSourceScalarAndJagged(t *testing.T) {
	path := writeCSV(t, "pt,eta,hits\n10.5,1.2,1;2;3\n20,,\n30,0.5,4\n")

	src, err := source.OpenCSV(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 3, src.NumRows())
	assert.Equal(t, []string{"pt", "eta", "hits"}, src.FeatureNames())

	cols, err := src.Fetch([]string{"pt", "eta", "hits"}, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{10.5, 20, 30}, cols["pt"].Scalar)

	eta := cols["eta"].Scalar
	assert.Equal(t, 1.2, eta[0])
	assert.True(t, math.IsNaN(eta[1]))
	assert.Equal(t, 0.5, eta[2])

	hits := cols["hits"].Jagged
	require.Len(t, hits, 3)
	assert.Equal(t, []float64{1, 2, 3}, hits[0])
	assert.Empty(t, hits[1])
	assert.Equal(t, []float64{4}, hits[2])
}

func TestCSVSourceFetchRange(t *testing.T) {
	path := writeCSV(t, "x\n1\n2\n3\n4\n5\n")

	src, err := source.OpenCSV(path)
	require.NoError(t, err)
	defer src.Close()

	cols, err := src.Fetch([]string{"x"}, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, cols["x"].Scalar)

	// Ranges stay independent of prior reads.
	cols, err = src.Fetch([]string{"x"}, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, cols["x"].Scalar)

	cols, err = src.Fetch([]string{"x"}, 3, 3)
	require.NoError(t, err)
	assert.Empty(t, cols["x"].Scalar)
}

func TestCSVSourceMissingColumn(t *testing.T) {
	path := writeCSV(t, "x\n1\n")
	src, err := source.OpenCSV(path)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Fetch([]string{"y"}, 0, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
