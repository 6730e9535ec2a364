// Package laplacian builds the graph Laplacian of the connectivity matrix and
// computes its eigen-spectrum, switching between a full dense solve and a
// truncated iterative solve on matrix size.
package laplacian

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/maverikod/vvz-muons/pkg/backend"
)

// DenseEigenThreshold is the feature count up to which the full dense
// eigendecomposition is used; above it the truncated solver computes only the
// k smallest eigenpairs.
const DenseEigenThreshold = 500

// MinEigenpairs is the lower clamp on the truncated solver's k, so the first
// 10 eigenvectors are always defined.
const MinEigenpairs = 10

// Build computes L = D - W with D the diagonal of row sums of W. Every row
// of L sums to zero by construction. Nil input yields nil (the 0x0 case).
func Build(w *mat.Dense) *mat.Dense {
	if w == nil {
		return nil
	}
	d, _ := w.Dims()
	l := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		var rowSum float64
		for j := 0; j < d; j++ {
			rowSum += w.At(i, j)
		}
		for j := 0; j < d; j++ {
			if i == j {
				l.Set(i, j, rowSum-w.At(i, j))
			} else {
				l.Set(i, j, -w.At(i, j))
			}
		}
	}
	return l
}

// Spectrum holds the eigen output: eigenvalues ascending and the eigenvectors
// of the smallest eigenvalues (at most the first 10, columns matching the
// ascending order).
type Spectrum struct {
	L             *mat.Dense
	Eigenvalues   []float64
	EigvecFirst10 *mat.Dense
}

// Compute builds L from W and solves for its spectrum. For d at most
// DenseEigenThreshold the full symmetric decomposition runs on the selected
// backend; beyond it a truncated Lanczos iteration computes
// k = clamp(kEigs, MinEigenpairs, d) smallest eigenpairs.
func Compute(w *mat.Dense, kEigs int, sel *backend.Selector) (*Spectrum, error) {
	if w == nil {
		return &Spectrum{}, nil
	}
	d, _ := w.Dims()
	l := Build(w)

	var vals []float64
	var vecs *mat.Dense
	if d <= DenseEigenThreshold {
		required := 3 * int64(d) * int64(d) * 8
		comp, _ := sel.Select(required)
		sym := toSym(l)
		var err error
		vals, vecs, err = comp.EigSym(sym)
		if err != nil {
			return nil, fmt.Errorf("dense eigendecomposition (d=%d): %w", d, err)
		}
		sortAscending(vals, vecs)
	} else {
		k := kEigs
		if k < MinEigenpairs {
			k = MinEigenpairs
		}
		if k > d {
			k = d
		}
		var err error
		vals, vecs, err = lanczosSmallest(l, k, sel)
		if err != nil {
			return nil, fmt.Errorf("truncated eigensolve (d=%d, k=%d): %w", d, k, err)
		}
	}

	nVecs := len(vals)
	if nVecs > 10 {
		nVecs = 10
	}
	var first10 *mat.Dense
	if nVecs > 0 {
		first10 = mat.NewDense(d, nVecs, nil)
		first10.Copy(vecs.Slice(0, d, 0, nVecs))
	}
	return &Spectrum{L: l, Eigenvalues: vals, EigvecFirst10: first10}, nil
}

func toSym(l *mat.Dense) *mat.SymDense {
	d, _ := l.Dims()
	sym := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			sym.SetSym(i, j, l.At(i, j))
		}
	}
	return sym
}

// sortAscending reorders eigenvalues ascending and permutes the eigenvector
// columns to match.
func sortAscending(vals []float64, vecs *mat.Dense) {
	n := len(vals)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return vals[order[a]] < vals[order[b]] })

	sorted := true
	for i, o := range order {
		if o != i {
			sorted = false
			break
		}
	}
	if sorted {
		return
	}
	d, _ := vecs.Dims()
	oldVals := append([]float64(nil), vals...)
	oldVecs := mat.DenseCopyOf(vecs)
	for i, o := range order {
		vals[i] = oldVals[o]
		for r := 0; r < d; r++ {
			vecs.Set(r, i, oldVecs.At(r, o))
		}
	}
}
