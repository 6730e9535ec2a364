package laplacian_test

import (
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/maverikod/vvz-muons/pkg/backend"
	"github.com/maverikod/vvz-muons/pkg/laplacian"
)

func hostSelector() *backend.Selector {
	return backend.NewSelector(nil, zerolog.Nop())
}

func TestBuildRowSumsZero(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	d := 20
	w := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		for j := i + 1; j < d; j++ {
			v := rng.Float64()
			w.Set(i, j, v)
			w.Set(j, i, v)
		}
	}

	l := laplacian.Build(w)
	for i := 0; i < d; i++ {
		var rowSum float64
		for j := 0; j < d; j++ {
			rowSum += l.At(i, j)
			assert.InDelta(t, l.At(j, i), l.At(i, j), 1e-12)
		}
		assert.InDelta(t, 0, rowSum, 1e-10)
	}
}

func TestBuildPathGraph(t *testing.T) {
	w := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		1, 0, 1,
		0, 1, 0,
	})
	l := laplacian.Build(w)
	want := mat.NewDense(3, 3, []float64{
		1, -1, 0,
		-1, 2, -1,
		0, -1, 1,
	})
	assert.True(t, mat.Equal(want, l))
}

func TestBuildNil(t *testing.T) {
	assert.Nil(t, laplacian.Build(nil))
}

func TestComputeDense(t *testing.T) {
	w := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		1, 0, 1,
		0, 1, 0,
	})
	spec, err := laplacian.Compute(w, 200, hostSelector())
	require.NoError(t, err)

	require.Len(t, spec.Eigenvalues, 3)
	assert.InDelta(t, 0, spec.Eigenvalues[0], 1e-12)
	assert.InDelta(t, 1, spec.Eigenvalues[1], 1e-12)
	assert.InDelta(t, 3, spec.Eigenvalues[2], 1e-12)

	r, c := spec.EigvecFirst10.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assertEigenpair(t, spec.L, spec.Eigenvalues[0], colOf(spec.EigvecFirst10, 0), 1e-8)
	assertEigenpair(t, spec.L, spec.Eigenvalues[1], colOf(spec.EigvecFirst10, 1), 1e-8)
}

func TestComputeDenseRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	d := 40
	w := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		for j := i + 1; j < d; j++ {
			if rng.Float64() < 0.3 {
				v := rng.Float64()
				w.Set(i, j, v)
				w.Set(j, i, v)
			}
		}
	}

	spec, err := laplacian.Compute(w, 200, hostSelector())
	require.NoError(t, err)
	require.Len(t, spec.Eigenvalues, d)
	for i := 1; i < d; i++ {
		assert.LessOrEqual(t, spec.Eigenvalues[i-1], spec.Eigenvalues[i])
	}
	// Laplacians are positive semidefinite with a zero eigenvalue.
	assert.InDelta(t, 0, spec.Eigenvalues[0], 1e-10)
	assert.GreaterOrEqual(t, spec.Eigenvalues[d-1], 0.0)

	_, c := spec.EigvecFirst10.Dims()
	assert.Equal(t, 10, c)
	for k := 0; k < c; k++ {
		assertEigenpair(t, spec.L, spec.Eigenvalues[k], colOf(spec.EigvecFirst10, k), 1e-8)
	}
}

func TestComputeTruncated(t *testing.T) {
	// d above the dense threshold routes through the iterative solver.
	rng := rand.New(rand.NewSource(3))
	d := laplacian.DenseEigenThreshold + 20
	w := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		for j := i + 1; j < d; j++ {
			v := 0.1 + rng.Float64()
			w.Set(i, j, v)
			w.Set(j, i, v)
		}
	}

	spec, err := laplacian.Compute(w, 12, hostSelector())
	require.NoError(t, err)
	require.Len(t, spec.Eigenvalues, 12)
	for i := 1; i < len(spec.Eigenvalues); i++ {
		assert.LessOrEqual(t, spec.Eigenvalues[i-1], spec.Eigenvalues[i]+1e-10)
	}

	// A fully connected graph has an isolated zero eigenvalue; the iterative
	// solver must resolve it and its constant eigenvector accurately.
	assert.InDelta(t, 0, spec.Eigenvalues[0], 1e-8)
	v0 := colOf(spec.EigvecFirst10, 0)
	assertEigenpair(t, spec.L, spec.Eigenvalues[0], v0, 1e-6)

	r, c := spec.EigvecFirst10.Dims()
	assert.Equal(t, d, r)
	assert.Equal(t, 10, c)
}

func TestComputeTruncatedDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	d := laplacian.DenseEigenThreshold + 1
	w := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		for j := i + 1; j < d; j++ {
			v := rng.Float64()
			w.Set(i, j, v)
			w.Set(j, i, v)
		}
	}
	a, err := laplacian.Compute(w, 10, hostSelector())
	require.NoError(t, err)
	b, err := laplacian.Compute(w, 10, hostSelector())
	require.NoError(t, err)
	assert.Equal(t, a.Eigenvalues, b.Eigenvalues)
}

func TestComputeNil(t *testing.T) {
	spec, err := laplacian.Compute(nil, 200, hostSelector())
	require.NoError(t, err)
	assert.Nil(t, spec.L)
	assert.Empty(t, spec.Eigenvalues)
	assert.Nil(t, spec.EigvecFirst10)
}

func colOf(m *mat.Dense, j int) []float64 {
	return mat.Col(nil, j, m)
}

// assertEigenpair checks ||L v - lambda v|| <= tol for a unit vector v.
func assertEigenpair(t *testing.T, l *mat.Dense, lambda float64, v []float64, tol float64) {
	t.Helper()
	d := len(v)
	vec := mat.NewVecDense(d, v)
	var lv mat.VecDense
	lv.MulVec(l, vec)
	var res mat.VecDense
	res.ScaleVec(lambda, vec)
	res.SubVec(&lv, &res)
	assert.LessOrEqual(t, mat.Norm(&res, 2), tol)
}
