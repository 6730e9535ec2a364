// Package backend models the numeric array backend as a polymorphic
// capability: the same operation set over host-memory arrays and an
// accelerator-resident implementation, chosen per heavy operation by an
// adaptive selector.
package backend

import (
	"gonum.org/v1/gonum/mat"
)

// Compute is the operation set heavy linear algebra is written against.
// A backend is fixed for the whole operation once selected; no operation is
// retried across backends mid-computation.
type Compute interface {
	Name() string
	Accelerated() bool

	// Gram computes aᵀ·a.
	Gram(a *mat.Dense) *mat.Dense
	// MatMul computes a·b.
	MatMul(a, b mat.Matrix) *mat.Dense
	// EigSym computes the full symmetric eigendecomposition, eigenvalues
	// ascending with matching eigenvector columns.
	EigSym(a *mat.SymDense) ([]float64, *mat.Dense, error)
}

// Host computes on ordinary host-memory arrays via gonum.
type Host struct{}

// Name identifies the backend in logs.
func (Host) Name() string { return "host" }

// Accelerated reports false for the host backend.
func (Host) Accelerated() bool { return false }

// Gram computes aᵀ·a.
func (Host) Gram(a *mat.Dense) *mat.Dense {
	_, c := a.Dims()
	out := mat.NewDense(c, c, nil)
	out.Mul(a.T(), a)
	return out
}

// MatMul computes a·b.
func (Host) MatMul(a, b mat.Matrix) *mat.Dense {
	ar, _ := a.Dims()
	_, bc := b.Dims()
	out := mat.NewDense(ar, bc, nil)
	out.Mul(a, b)
	return out
}

// EigSym computes the full symmetric eigendecomposition.
func (Host) EigSym(a *mat.SymDense) ([]float64, *mat.Dense, error) {
	var eig mat.EigenSym
	if !eig.Factorize(a, true) {
		return nil, nil, errEigenFailed
	}
	n, _ := a.Dims()
	vals := eig.Values(nil)
	vecs := mat.NewDense(n, n, nil)
	eig.VectorsTo(vecs)
	return vals, vecs, nil
}

// ToHost converts a backend-resident matrix back to an ordinary host dense
// matrix for serialization. Host matrices pass through as a copy-free view.
func ToHost(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Copy(m)
	return out
}
