package laplacian

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/maverikod/vvz-muons/pkg/backend"
)

// lanczosSeed fixes the start vector so repeated runs on the same matrix
// produce identical spectra.
const lanczosSeed = 1

// lanczosSmallest computes the k smallest eigenpairs of the symmetric
// matrix l via a Lanczos iteration with full reorthogonalization.
//
// The iteration runs on the spectrally shifted operator A = sigma*I - L with
// sigma an upper bound on L's spectrum (Gershgorin), so the extreme Ritz
// values Lanczos converges to first are exactly the smallest eigenvalues of
// L. Eigenvalues return ascending; eigenvector columns match.
func lanczosSmallest(l *mat.Dense, k int, sel *backend.Selector) ([]float64, *mat.Dense, error) {
	d, _ := l.Dims()
	if k <= 0 || k > d {
		return nil, nil, fmt.Errorf("k=%d out of range for d=%d", k, d)
	}

	sigma := gershgorinBound(l)

	m := 2 * k
	if m < k+30 {
		m = k + 30
	}
	if m > d {
		m = d
	}

	// Krylov basis, kept in full for reorthogonalization.
	basis := mat.NewDense(d, m, nil)
	alpha := make([]float64, m)
	beta := make([]float64, m) // beta[i] couples step i and i+1

	rng := rand.New(rand.NewSource(lanczosSeed))
	v := make([]float64, d)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	normalize(v)
	setCol(basis, 0, v)

	work := make([]float64, d)
	steps := m
	for j := 0; j < m; j++ {
		getCol(basis, j, v)
		applyShifted(l, sigma, v, work)
		alpha[j] = dot(work, v)

		if j == m-1 {
			break
		}
		// w = A v_j - alpha_j v_j - beta_{j-1} v_{j-1}, then full reorth.
		axpy(work, v, -alpha[j])
		if j > 0 {
			getCol(basis, j-1, v)
			axpy(work, v, -beta[j-1])
		}
		for i := 0; i <= j; i++ {
			getCol(basis, i, v)
			axpy(work, v, -dot(work, v))
		}

		b := norm(work)
		if b < 1e-13 {
			// Invariant subspace found; the basis is complete.
			steps = j + 1
			break
		}
		beta[j] = b
		for i := range work {
			work[i] /= b
		}
		setCol(basis, j+1, work)
	}

	if steps < k {
		steps = k // alpha/beta beyond a breakdown are zero, harmless
	}

	tri := mat.NewSymDense(steps, nil)
	for i := 0; i < steps; i++ {
		tri.SetSym(i, i, alpha[i])
		if i+1 < steps {
			tri.SetSym(i, i+1, beta[i])
		}
	}

	comp, _ := sel.Select(int64(steps) * int64(steps) * 8 * 3)
	thetas, s, err := comp.EigSym(tri)
	if err != nil {
		return nil, nil, err
	}
	sortAscending(thetas, s)

	// Largest Ritz values of A are the smallest eigenvalues of L.
	vals := make([]float64, k)
	vecs := mat.NewDense(d, k, nil)
	col := make([]float64, steps)
	ritz := make([]float64, d)
	for i := 0; i < k; i++ {
		src := steps - 1 - i // descending theta = ascending lambda
		vals[i] = sigma - thetas[src]
		for r := 0; r < steps; r++ {
			col[r] = s.At(r, src)
		}
		for r := 0; r < d; r++ {
			var acc float64
			for c := 0; c < steps; c++ {
				acc += basis.At(r, c) * col[c]
			}
			ritz[r] = acc
		}
		normalize(ritz)
		for r := 0; r < d; r++ {
			vecs.Set(r, i, ritz[r])
		}
	}
	return vals, vecs, nil
}

// gershgorinBound returns an upper bound on the spectrum of a symmetric
// matrix: max over rows of diag + sum of off-diagonal magnitudes.
func gershgorinBound(l *mat.Dense) float64 {
	d, _ := l.Dims()
	bound := 0.0
	for i := 0; i < d; i++ {
		r := l.At(i, i)
		for j := 0; j < d; j++ {
			if j != i {
				r += math.Abs(l.At(i, j))
			}
		}
		if r > bound {
			bound = r
		}
	}
	return bound
}

// applyShifted computes out = (sigma*I - L) v.
func applyShifted(l *mat.Dense, sigma float64, v, out []float64) {
	d := len(v)
	for i := 0; i < d; i++ {
		acc := sigma * v[i]
		for j := 0; j < d; j++ {
			acc -= l.At(i, j) * v[j]
		}
		out[i] = acc
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 { return math.Sqrt(dot(a, a)) }

func normalize(a []float64) {
	n := norm(a)
	if n == 0 {
		return
	}
	for i := range a {
		a[i] /= n
	}
}

// axpy computes dst += scale * v.
func axpy(dst, v []float64, scale float64) {
	for i := range dst {
		dst[i] += scale * v[i]
	}
}

func setCol(m *mat.Dense, col int, v []float64) {
	for i, x := range v {
		m.Set(i, col, x)
	}
}

func getCol(m *mat.Dense, col int, v []float64) {
	for i := range v {
		v[i] = m.At(i, col)
	}
}
