package correlation

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// BuildW derives the connectivity matrix from C: clip negatives to zero and
// zero the diagonal, optionally keep only the top-k entries per row
// (symmetrized by elementwise max), then zero entries below tau.
//
// Top-k sparsification runs before the tau threshold; the order changes
// results and is deliberate.
func BuildW(c *mat.Dense, tau float64, topk int) *mat.Dense {
	if c == nil {
		return nil
	}
	d, _ := c.Dims()
	w := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			if i == j {
				continue
			}
			if v := c.At(i, j); v > 0 {
				w.Set(i, j, v)
			}
		}
	}

	if topk > 0 && d > 1 {
		w = keepTopK(w, topk)
	}

	if tau > 0 {
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				if w.At(i, j) < tau {
					w.Set(i, j, 0)
				}
			}
		}
	}
	return w
}

// keepTopK keeps each row's k largest off-diagonal entries (ties broken by
// column position), then symmetrizes by max and re-zeros the diagonal.
func keepTopK(w *mat.Dense, topk int) *mat.Dense {
	d, _ := w.Dims()
	k := topk
	if k > d-1 {
		k = d - 1
	}
	kept := mat.NewDense(d, d, nil)
	idx := make([]int, d)
	for i := 0; i < d; i++ {
		cols := idx[:0]
		for j := 0; j < d; j++ {
			if j != i {
				cols = append(cols, j)
			}
		}
		sort.SliceStable(cols, func(a, b int) bool {
			return w.At(i, cols[a]) > w.At(i, cols[b])
		})
		for _, j := range cols[:k] {
			kept.Set(i, j, w.At(i, j))
		}
	}
	out := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			if i == j {
				continue
			}
			v := kept.At(i, j)
			if t := kept.At(j, i); t > v {
				v = t
			}
			out.Set(i, j, v)
		}
	}
	return out
}
