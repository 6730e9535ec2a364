// Package metrics derives the scalar summary record from the connectivity
// matrix, the Laplacian, and its spectrum. Numerical degeneracy surfaces as
// NaN, never as an error; NaN serializes as JSON null.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LambdaFloor is the magnitude at or below which an eigenvalue is treated as
// a structural zero and excluded from the spectral summaries.
const LambdaFloor = 1e-12

// Metrics is the summary record. Immutable once computed; Baseline is merged
// in afterward by the caller when the null-model control runs.
type Metrics struct {
	NEvents          int       `json:"N_events"`
	FeaturesCount    int       `json:"features_count"`
	Mode             string    `json:"mode"`
	Bins             int       `json:"bins"`
	D                int       `json:"d"`
	DensityW         float64   `json:"density_W"`
	TraceL           float64   `json:"trace_L"`
	LambdaMinNonzero float64   `json:"lambda_min_nonzero"`
	Neff             float64   `json:"Neff"`
	PRK              []float64 `json:"PR_k"`

	Baseline *BaselineComparison `json:"baseline,omitempty"`
}

// BaselineComparison holds the null-model comparison fields.
type BaselineComparison struct {
	BaselineNeff float64 `json:"baseline_Neff"`
	DeltaNeff    float64 `json:"delta_Neff"`
	CorrFroRatio float64 `json:"corr_fro_ratio"`
}

// Compute derives the metrics record from W, L, and the spectrum. All matrix
// arguments may be nil for the d=0 case.
func Compute(l, w *mat.Dense, eigenvalues []float64, eigvecFirst10 *mat.Dense, nEvents, featuresCount, d int, mode string, bins int) Metrics {
	m := Metrics{
		NEvents:          nEvents,
		FeaturesCount:    featuresCount,
		Mode:             mode,
		Bins:             bins,
		D:                d,
		LambdaMinNonzero: math.NaN(),
		Neff:             math.NaN(),
		PRK:              []float64{},
	}

	if d > 0 && w != nil {
		nnz := 0
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				if w.At(i, j) != 0 {
					nnz++
				}
			}
		}
		m.DensityW = float64(nnz) / float64(d*d)
	}
	if l != nil {
		for i := 0; i < d; i++ {
			m.TraceL += l.At(i, i)
		}
	}

	var retained []float64
	for _, lam := range eigenvalues {
		if math.Abs(lam) > LambdaFloor {
			retained = append(retained, lam)
		}
	}
	if len(retained) > 0 {
		minLam := retained[0]
		var s1, s2 float64
		for _, lam := range retained {
			if lam < minLam {
				minLam = lam
			}
			s1 += lam
			s2 += lam * lam
		}
		m.LambdaMinNonzero = minLam
		if s2 > 0 {
			m.Neff = s1 * s1 / s2
		}
	}

	m.PRK = ParticipationRatios(eigvecFirst10)
	return m
}

// ParticipationRatios computes PR_k = (sum v^2)^2 / sum v^4 per eigenvector
// column, NaN where the denominator is zero.
func ParticipationRatios(vecs *mat.Dense) []float64 {
	if vecs == nil {
		return []float64{}
	}
	d, n := vecs.Dims()
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var s2, s4 float64
		for i := 0; i < d; i++ {
			v2 := vecs.At(i, k) * vecs.At(i, k)
			s2 += v2
			s4 += v2 * v2
		}
		if s4 > 0 {
			out[k] = s2 * s2 / s4
		} else {
			out[k] = math.NaN()
		}
	}
	return out
}
