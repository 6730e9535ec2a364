// Package observable builds the event x feature observable matrix in its two
// encodings: sparse one-hot quantile bins, and a standardized dense array
// streamed to disk.
package observable

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// CSR is a compressed sparse row matrix. Entries within each row are sorted
// by column index.
type CSR struct {
	NumRows int
	NumCols int
	RowPtr  []int
	ColIdx  []int
	Data    []float64
}

// coo accumulates coordinate triples chunk by chunk. It is flushed into an
// immutable CSR once, at the end of the stream.
type coo struct {
	rows []int
	cols []int
	data []float64
}

func (c *coo) add(row, col int, v float64) {
	c.rows = append(c.rows, row)
	c.cols = append(c.cols, col)
	c.data = append(c.data, v)
}

// NewCSRFromCOO builds a CSR from coordinate triples. Duplicate coordinates
// are kept as separate entries; rows outside [0, numRows) are not permitted
// by construction upstream.
func NewCSRFromCOO(numRows, numCols int, rows, cols []int, data []float64) *CSR {
	nnz := len(data)
	counts := make([]int, numRows+1)
	for _, r := range rows {
		counts[r+1]++
	}
	rowPtr := make([]int, numRows+1)
	for i := 0; i < numRows; i++ {
		rowPtr[i+1] = rowPtr[i] + counts[i+1]
	}

	colIdx := make([]int, nnz)
	values := make([]float64, nnz)
	next := make([]int, numRows)
	copy(next, rowPtr[:numRows])
	for i := 0; i < nnz; i++ {
		r := rows[i]
		p := next[r]
		colIdx[p] = cols[i]
		values[p] = data[i]
		next[r]++
	}

	m := &CSR{NumRows: numRows, NumCols: numCols, RowPtr: rowPtr, ColIdx: colIdx, Data: values}
	m.sortRows()
	return m
}

func (m *CSR) sortRows() {
	for r := 0; r < m.NumRows; r++ {
		lo, hi := m.RowPtr[r], m.RowPtr[r+1]
		cols := m.ColIdx[lo:hi]
		vals := m.Data[lo:hi]
		sort.Sort(&rowSorter{cols: cols, vals: vals})
	}
}

type rowSorter struct {
	cols []int
	vals []float64
}

func (s *rowSorter) Len() int           { return len(s.cols) }
func (s *rowSorter) Less(i, j int) bool { return s.cols[i] < s.cols[j] }
func (s *rowSorter) Swap(i, j int) {
	s.cols[i], s.cols[j] = s.cols[j], s.cols[i]
	s.vals[i], s.vals[j] = s.vals[j], s.vals[i]
}

// Nnz returns the number of stored entries.
func (m *CSR) Nnz() int { return len(m.Data) }

// Row returns the column indices and values of row r. The slices alias the
// matrix storage and must not be modified.
func (m *CSR) Row(r int) ([]int, []float64) {
	lo, hi := m.RowPtr[r], m.RowPtr[r+1]
	return m.ColIdx[lo:hi], m.Data[lo:hi]
}

// ToCOO returns copies of the coordinate triples.
func (m *CSR) ToCOO() (rows, cols []int, data []float64) {
	nnz := m.Nnz()
	rows = make([]int, nnz)
	cols = make([]int, nnz)
	data = make([]float64, nnz)
	for r := 0; r < m.NumRows; r++ {
		for p := m.RowPtr[r]; p < m.RowPtr[r+1]; p++ {
			rows[p] = r
			cols[p] = m.ColIdx[p]
			data[p] = m.Data[p]
		}
	}
	return rows, cols, data
}

// ToDense materializes the matrix as a gonum dense matrix. Returns nil when
// either dimension is zero (gonum forbids empty Dense values).
func (m *CSR) ToDense() *mat.Dense {
	if m.NumRows == 0 || m.NumCols == 0 {
		return nil
	}
	out := mat.NewDense(m.NumRows, m.NumCols, nil)
	for r := 0; r < m.NumRows; r++ {
		for p := m.RowPtr[r]; p < m.RowPtr[r+1]; p++ {
			out.Set(r, m.ColIdx[p], m.Data[p])
		}
	}
	return out
}

// Gram computes Mᵀ·M as a dense d x d matrix. Nil when there are no columns.
func (m *CSR) Gram() *mat.Dense {
	d := m.NumCols
	if d == 0 {
		return nil
	}
	out := mat.NewDense(d, d, nil)
	raw := out.RawMatrix()
	for r := 0; r < m.NumRows; r++ {
		lo, hi := m.RowPtr[r], m.RowPtr[r+1]
		for a := lo; a < hi; a++ {
			ca, va := m.ColIdx[a], m.Data[a]
			base := ca * raw.Stride
			for b := lo; b < hi; b++ {
				raw.Data[base+m.ColIdx[b]] += va * m.Data[b]
			}
		}
	}
	return out
}
