package observable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/maverikod/vvz-muons/pkg/observable"
)

func TestNewCSRFromCOO(t *testing.T) {
	// Out-of-order triples land sorted by (row, col).
	rows := []int{1, 0, 1, 0}
	cols := []int{2, 1, 0, 0}
	data := []float64{5, 2, 4, 1}

	m := observable.NewCSRFromCOO(2, 3, rows, cols, data)
	assert.Equal(t, 4, m.Nnz())

	c0, v0 := m.Row(0)
	assert.Equal(t, []int{0, 1}, c0)
	assert.Equal(t, []float64{1, 2}, v0)

	c1, v1 := m.Row(1)
	assert.Equal(t, []int{0, 2}, c1)
	assert.Equal(t, []float64{4, 5}, v1)
}

func TestCSRToDense(t *testing.T) {
	m := observable.NewCSRFromCOO(2, 2, []int{0, 1}, []int{1, 0}, []float64{3, 7})
	dense := m.ToDense()
	require.NotNil(t, dense)
	assert.Equal(t, 0.0, dense.At(0, 0))
	assert.Equal(t, 3.0, dense.At(0, 1))
	assert.Equal(t, 7.0, dense.At(1, 0))
	assert.Equal(t, 0.0, dense.At(1, 1))

	empty := observable.NewCSRFromCOO(0, 0, nil, nil, nil)
	assert.Nil(t, empty.ToDense())
	assert.Nil(t, empty.Gram())
}

func TestCSRGramMatchesDense(t *testing.T) {
	rows := []int{0, 0, 1, 2, 2, 3}
	cols := []int{0, 2, 1, 0, 1, 2}
	data := []float64{1, 2, 3, 4, 5, 6}
	m := observable.NewCSRFromCOO(4, 3, rows, cols, data)

	gram := m.Gram()
	require.NotNil(t, gram)

	dense := m.ToDense()
	var want mat.Dense
	want.Mul(dense.T(), dense)

	assert.True(t, mat.EqualApprox(&want, gram, 1e-12))
}

func TestCSRToCOORoundTrip(t *testing.T) {
	rows := []int{0, 1, 1}
	cols := []int{1, 0, 2}
	data := []float64{1, 2, 3}
	m := observable.NewCSRFromCOO(2, 3, rows, cols, data)

	r2, c2, d2 := m.ToCOO()
	m2 := observable.NewCSRFromCOO(2, 3, r2, c2, d2)
	assert.Equal(t, m, m2)
}
