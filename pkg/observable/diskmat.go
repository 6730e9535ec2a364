package observable

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

const diskMatrixHeaderBytes = 16

// DiskMatrix is a row-major float64 matrix backed by a file. The shape is
// fixed at creation; rows are written and read in [start, stop) ranges so
// resident memory stays bounded by one chunk.
//
// File layout: two little-endian int64 (rows, cols) followed by rows*cols
// little-endian float64 values.
type DiskMatrix struct {
	file    *os.File
	path    string
	NumRows int
	NumCols int
}

// CreateDiskMatrix pre-sizes a matrix file for the given shape.
func CreateDiskMatrix(path string, numRows, numCols int) (*DiskMatrix, error) {
	if numRows < 0 || numCols < 0 {
		return nil, fmt.Errorf("invalid disk matrix shape (%d, %d)", numRows, numCols)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create matrix file: %w", err)
	}
	header := make([]byte, diskMatrixHeaderBytes)
	binary.LittleEndian.PutUint64(header[0:], uint64(numRows))
	binary.LittleEndian.PutUint64(header[8:], uint64(numCols))
	if _, err := f.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write matrix header: %w", err)
	}
	total := int64(diskMatrixHeaderBytes) + int64(numRows)*int64(numCols)*8
	if err := f.Truncate(total); err != nil {
		f.Close()
		return nil, fmt.Errorf("size matrix file: %w", err)
	}
	return &DiskMatrix{file: f, path: path, NumRows: numRows, NumCols: numCols}, nil
}

// OpenDiskMatrix opens an existing matrix file and reads its shape.
func OpenDiskMatrix(path string) (*DiskMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open matrix file: %w", err)
	}
	header := make([]byte, diskMatrixHeaderBytes)
	if _, err := f.ReadAt(header, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("read matrix header: %w", err)
	}
	rows := int(binary.LittleEndian.Uint64(header[0:]))
	cols := int(binary.LittleEndian.Uint64(header[8:]))
	return &DiskMatrix{file: f, path: path, NumRows: rows, NumCols: cols}, nil
}

// Path returns the backing file path.
func (m *DiskMatrix) Path() string { return m.path }

// Close releases the backing file.
func (m *DiskMatrix) Close() error { return m.file.Close() }

func (m *DiskMatrix) rowOffset(row int) int64 {
	return diskMatrixHeaderBytes + int64(row)*int64(m.NumCols)*8
}

// WriteRows writes block into rows [start, start+block rows).
func (m *DiskMatrix) WriteRows(start int, block *mat.Dense) error {
	r, c := block.Dims()
	if c != m.NumCols {
		return fmt.Errorf("block has %d columns, matrix has %d", c, m.NumCols)
	}
	if start < 0 || start+r > m.NumRows {
		return fmt.Errorf("write rows [%d, %d) out of bounds for %d rows", start, start+r, m.NumRows)
	}
	buf := make([]byte, r*c*8)
	raw := block.RawMatrix()
	for i := 0; i < r; i++ {
		rowData := raw.Data[i*raw.Stride : i*raw.Stride+c]
		for j, v := range rowData {
			binary.LittleEndian.PutUint64(buf[(i*c+j)*8:], math.Float64bits(v))
		}
	}
	if _, err := m.file.WriteAt(buf, m.rowOffset(start)); err != nil {
		return fmt.Errorf("write rows [%d, %d): %w", start, start+r, err)
	}
	return nil
}

// ReadRows returns rows [start, stop) as a dense block. Nil when the range is
// empty or the matrix has no columns.
func (m *DiskMatrix) ReadRows(start, stop int) (*mat.Dense, error) {
	if start < 0 || stop < start || stop > m.NumRows {
		return nil, fmt.Errorf("read rows [%d, %d) out of bounds for %d rows", start, stop, m.NumRows)
	}
	r := stop - start
	if r == 0 || m.NumCols == 0 {
		return nil, nil
	}
	buf := make([]byte, r*m.NumCols*8)
	if _, err := m.file.ReadAt(buf, m.rowOffset(start)); err != nil {
		return nil, fmt.Errorf("read rows [%d, %d): %w", start, stop, err)
	}
	data := make([]float64, r*m.NumCols)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return mat.NewDense(r, m.NumCols, data), nil
}

// ReadAll loads the full matrix into memory (baseline control needs it whole).
func (m *DiskMatrix) ReadAll() (*mat.Dense, error) {
	return m.ReadRows(0, m.NumRows)
}
