package backend

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var errEigenFailed = errors.New("symmetric eigendecomposition did not converge")

// Device is an explicit accelerator handle. It replaces ambient "current
// device" state so the selection policy is testable without real hardware:
// tests inject a fake Device reporting whatever memory state they need.
type Device interface {
	Name() string
	Available() bool
	// MemInfo returns free and total device memory in bytes.
	MemInfo() (free, total int64, err error)
}

// NullDevice is the device handle used when no accelerator is present; it is
// never available, so the selector always falls back to the host backend.
type NullDevice struct{}

// Name identifies the device in logs.
func (NullDevice) Name() string { return "none" }

// Available reports false.
func (NullDevice) Available() bool { return false }

// MemInfo always errors.
func (NullDevice) MemInfo() (int64, int64, error) {
	return 0, 0, errors.New("no accelerator device")
}

// Accelerator is the device-resident Compute implementation. The kernels run
// through the same dense routines as the host backend; the device handle
// carries the memory-accounting state the selector's policy is applied to.
type Accelerator struct {
	dev  Device
	host Host
}

// NewAccelerator wraps a device handle in a Compute.
func NewAccelerator(dev Device) *Accelerator {
	return &Accelerator{dev: dev}
}

// Name identifies the backend in logs.
func (a *Accelerator) Name() string { return "accelerator:" + a.dev.Name() }

// Accelerated reports true.
func (a *Accelerator) Accelerated() bool { return true }

// Gram computes aᵀ·a on the device.
func (a *Accelerator) Gram(m *mat.Dense) *mat.Dense { return a.host.Gram(m) }

// MatMul computes a·b on the device.
func (a *Accelerator) MatMul(x, y mat.Matrix) *mat.Dense { return a.host.MatMul(x, y) }

// EigSym computes the full symmetric eigendecomposition on the device.
func (a *Accelerator) EigSym(m *mat.SymDense) ([]float64, *mat.Dense, error) {
	return a.host.EigSym(m)
}
