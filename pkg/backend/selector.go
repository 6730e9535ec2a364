package backend

import (
	"github.com/rs/zerolog"
)

// Selection policy: the accelerator is eligible only below this used-memory
// fraction, and only when free memory covers the estimate times the margin.
const (
	memoryUsedThreshold = 0.80
	requiredMargin      = 1.2
)

// Selector chooses a Compute backend per heavy operation. Device memory can
// change between calls, so callers query a fresh selection before every heavy
// linear-algebra call rather than caching one.
type Selector struct {
	dev Device
	log zerolog.Logger
}

// NewSelector builds a selector over an explicit device handle.
func NewSelector(dev Device, log zerolog.Logger) *Selector {
	if dev == nil {
		dev = NullDevice{}
	}
	return &Selector{dev: dev, log: log}
}

// Select returns the backend for an operation needing approximately
// requiredBytes of array memory (0 when unknown), and whether the accelerator
// was chosen. Any failure to query the device silently selects the host
// backend; the choice is logged on every call.
func (s *Selector) Select(requiredBytes int64) (Compute, bool) {
	if !s.dev.Available() {
		s.log.Info().Str("backend", "host").Msg("compute backend: no accelerator device")
		return Host{}, false
	}
	free, total, err := s.dev.MemInfo()
	if err != nil || total <= 0 {
		s.log.Warn().Str("backend", "host").Msg("accelerator memory query failed, using host")
		return Host{}, false
	}
	usedFrac := float64(total-free) / float64(total)
	if usedFrac >= memoryUsedThreshold {
		s.log.Warn().
			Str("backend", "host").
			Float64("device_used_frac", usedFrac).
			Msg("accelerator memory pressure, using host")
		return Host{}, false
	}
	if requiredBytes > 0 {
		need := int64(float64(requiredBytes) * requiredMargin)
		if free < need {
			s.log.Warn().
				Str("backend", "host").
				Int64("device_free_bytes", free).
				Int64("required_bytes", need).
				Msg("accelerator free memory below requirement, using host")
			return Host{}, false
		}
	}
	s.log.Info().
		Str("backend", s.dev.Name()).
		Float64("device_used_frac", usedFrac).
		Int64("device_free_bytes", free).
		Msg("compute backend: accelerator")
	return NewAccelerator(s.dev), true
}
