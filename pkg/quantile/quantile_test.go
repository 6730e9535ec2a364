package quantile_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maverikod/vvz-muons/pkg/quantile"
)

func TestLinearInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	assert.Equal(t, 1.0, quantile.Linear(sorted, 0))
	assert.Equal(t, 4.0, quantile.Linear(sorted, 1))
	// Median of an even count interpolates between the middle pair.
	assert.Equal(t, 2.5, quantile.Linear(sorted, 0.5))
	assert.InDelta(t, 1.75, quantile.Linear(sorted, 0.25), 1e-12)
}

func TestLinearSingleValue(t *testing.T) {
	assert.Equal(t, 7.0, quantile.Linear([]float64{7}, 0.5))
}

func TestLinearEmpty(t *testing.T) {
	assert.True(t, math.IsNaN(quantile.Linear(nil, 0.5)))
}

func TestOfSampleSortsCopy(t *testing.T) {
	values := []float64{3, 1, 2}
	got := quantile.OfSample(values, 0.5)
	require.Equal(t, 2.0, got)
	// Input order untouched.
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestMedianIgnoringNaN(t *testing.T) {
	assert.Equal(t, 2.0, quantile.MedianIgnoringNaN([]float64{math.NaN(), 1, 3, math.NaN(), 2}))
	assert.True(t, math.IsNaN(quantile.MedianIgnoringNaN([]float64{math.NaN()})))
	assert.True(t, math.IsNaN(quantile.MedianIgnoringNaN(nil)))
}
