// Package correlation derives the feature correlation matrix C from the
// observable matrix, and the sparsified connectivity matrix W from C.
//
// Zero-sized matrices are represented as nil (gonum forbids empty Dense
// values); every function treats a nil input as the 0x0 matrix.
package correlation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/maverikod/vvz-muons/pkg/backend"
	"github.com/maverikod/vvz-muons/pkg/observable"
)

// Features whose standard deviation is at or below this are treated as
// numerically zero variance: their correlation row and column are zeroed.
const sigmaFloor = 1e-14

// FromCSR computes C from the sparse one-hot observable matrix. Each column
// is a 0/1 indicator, so its mean equals its diagonal Gram entry and no
// separate centering pass is needed: cov = gram/N - outer(diag, diag).
func FromCSR(o *observable.CSR) *mat.Dense {
	n, d := o.NumRows, o.NumCols
	if d == 0 {
		return nil
	}
	if n == 0 {
		return mat.NewDense(d, d, nil)
	}
	cov := o.Gram()
	cov.Scale(1/float64(n), cov)
	means := make([]float64, d)
	for j := 0; j < d; j++ {
		means[j] = cov.At(j, j)
	}
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			cov.Set(i, j, cov.At(i, j)-means[i]*means[j])
		}
	}
	return covToCorr(cov)
}

// FromDense computes C from a dense observable matrix held in memory:
// mean-center each column (non-finite centered values become 0), then
// cov = OᶜᵀOᶜ / max(N-ddof, 1) with ddof = 1 when N > 1.
func FromDense(o *mat.Dense, comp backend.Compute) *mat.Dense {
	if o == nil {
		return nil
	}
	n, d := o.Dims()
	if d == 0 {
		return nil
	}
	if n == 0 {
		return mat.NewDense(d, d, nil)
	}
	centered := mat.NewDense(n, d, nil)
	for j := 0; j < d; j++ {
		var sum float64
		valid := 0
		for i := 0; i < n; i++ {
			v := o.At(i, j)
			if !math.IsNaN(v) {
				sum += v
				valid++
			}
		}
		mean := math.NaN()
		if valid > 0 {
			mean = sum / float64(valid)
		}
		for i := 0; i < n; i++ {
			c := o.At(i, j) - mean
			if math.IsNaN(c) || math.IsInf(c, 0) {
				c = 0
			}
			centered.Set(i, j, c)
		}
	}
	ddof := 0
	if n > 1 {
		ddof = 1
	}
	cov := comp.Gram(centered)
	cov.Scale(1/math.Max(float64(n-ddof), 1), cov)
	return covToCorr(cov)
}

// FromDisk computes C from a persisted standardized observable matrix by
// accumulating the Gram matrix over re-read row batches, never materializing
// the full array. Columns are already standardized, so no centering pass is
// made: cov = gram / max(N-1, 1).
func FromDisk(m *observable.DiskMatrix, chunk int, sel *backend.Selector) (*mat.Dense, error) {
	if chunk <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunk)
	}
	n, d := m.NumRows, m.NumCols
	if d == 0 {
		return nil, nil
	}
	if n == 0 {
		return mat.NewDense(d, d, nil), nil
	}
	required := int64(chunk)*int64(d)*8 + int64(d)*int64(d)*8
	comp, _ := sel.Select(required)

	gram := mat.NewDense(d, d, nil)
	for start := 0; start < n; start += chunk {
		stop := start + chunk
		if stop > n {
			stop = n
		}
		block, err := m.ReadRows(start, stop)
		if err != nil {
			return nil, fmt.Errorf("correlation gram pass: %w", err)
		}
		gram.Add(gram, comp.Gram(block))
	}
	denom := float64(n - 1)
	if denom < 1 {
		denom = 1
	}
	gram.Scale(1/denom, gram)
	return covToCorr(gram), nil
}

// covToCorr normalizes a covariance matrix to correlation in place.
// The diagonal is forced to 1 after normalization; rows and columns of
// zero-variance features are zeroed (their diagonal included). When every
// feature is degenerate only the forced unit diagonal remains.
func covToCorr(cov *mat.Dense) *mat.Dense {
	d, _ := cov.Dims()
	sigma := make([]float64, d)
	ok := make([]bool, d)
	anyOK := false
	for j := 0; j < d; j++ {
		sigma[j] = math.Sqrt(math.Max(cov.At(j, j), 0))
		if sigma[j] > sigmaFloor {
			ok[j] = true
			anyOK = true
		}
	}
	if !anyOK {
		out := mat.NewDense(d, d, nil)
		for j := 0; j < d; j++ {
			out.Set(j, j, 1)
		}
		return out
	}
	out := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			switch {
			case !ok[i] || !ok[j]:
				out.Set(i, j, 0)
			case i == j:
				out.Set(i, j, 1)
			default:
				out.Set(i, j, cov.At(i, j)/(sigma[i]*sigma[j]))
			}
		}
	}
	return out
}
