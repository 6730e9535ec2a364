package observable

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/maverikod/vvz-muons/pkg/features"
	"github.com/maverikod/vvz-muons/pkg/source"
	"github.com/maverikod/vvz-muons/pkg/stats"
)

// BuildZscore writes the standardized dense observable matrix chunk by chunk
// into a pre-sized disk-backed array: (value - mean)/std per feature, with
// zero-std columns forced to the constant 0 column and non-finite values
// imputed with the sampled median first. Peak memory is one chunk.
func BuildZscore(src source.EventSource, list features.List, recs []stats.Record, path string, chunk, maxEvents int) (*DiskMatrix, error) {
	if chunk <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunk)
	}
	if len(recs) != list.Len() {
		return nil, fmt.Errorf("have %d statistics records for %d features", len(recs), list.Len())
	}
	nTotal := stats.BoundedRows(src.NumRows(), maxEvents)
	d := list.Len()

	m, err := CreateDiskMatrix(path, nTotal, d)
	if err != nil {
		return nil, err
	}
	if d == 0 {
		return m, nil
	}

	for start := 0; start < nTotal; start += chunk {
		stop := start + chunk
		if stop > nTotal {
			stop = nTotal
		}
		values, err := features.ChunkValues(src, list, start, stop)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("zscore encoding: %w", err)
		}
		block := mat.NewDense(stop-start, d, nil)
		for j := range list.Specs {
			median := recs[j].Median
			mean := recs[j].Mean
			std := recs[j].Std
			for i, v := range values[j] {
				if std <= 0 || math.IsNaN(std) {
					block.Set(i, j, 0)
					continue
				}
				if math.IsNaN(v) || math.IsInf(v, 0) {
					v = median
				}
				block.Set(i, j, (v-mean)/std)
			}
		}
		if err := m.WriteRows(start, block); err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}
