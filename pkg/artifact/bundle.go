// Package artifact persists the pipeline's numeric outputs: flat float64
// arrays keyed by name, the bin-edge table, statistics and spectrum CSVs, the
// metrics JSON, and the run manifest.
package artifact

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

// bundleMagic marks the flat float64 container format.
const bundleMagic = "F64B1\n"

// Entry is one named float64 array with its shape.
type Entry struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"-"`
}

// MatrixEntry wraps a dense matrix as an Entry; nil becomes a (0, 0) array.
func MatrixEntry(name string, m *mat.Dense) Entry {
	if m == nil {
		return Entry{Name: name, Shape: []int{0, 0}}
	}
	r, c := m.Dims()
	data := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data[i*c+j] = m.At(i, j)
		}
	}
	return Entry{Name: name, Shape: []int{r, c}, Data: data}
}

// VectorEntry wraps a flat slice as a one-dimensional Entry.
func VectorEntry(name string, v []float64) Entry {
	data := make([]float64, len(v))
	copy(data, v)
	return Entry{Name: name, Shape: []int{len(v)}, Data: data}
}

type bundleHeader struct {
	Entries []Entry `json:"entries"`
}

// SaveBundle writes named arrays side by side into one file: the magic
// string, a JSON header line describing names and shapes, then the raw
// little-endian float64 data in header order.
func SaveBundle(path string, entries ...Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if _, err := w.WriteString(bundleMagic); err != nil {
		return fmt.Errorf("write bundle %s: %w", path, err)
	}
	header, err := json.Marshal(bundleHeader{Entries: entries})
	if err != nil {
		return fmt.Errorf("encode bundle header: %w", err)
	}
	if _, err := w.Write(append(header, '\n')); err != nil {
		return fmt.Errorf("write bundle %s: %w", path, err)
	}

	buf := make([]byte, 8)
	for _, e := range entries {
		if len(e.Data) != count(e.Shape) {
			return fmt.Errorf("entry %q: %d values for shape %v", e.Name, len(e.Data), e.Shape)
		}
		for _, v := range e.Data {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("write bundle %s: %w", path, err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush bundle %s: %w", path, err)
	}
	return nil
}

// LoadBundle reads a bundle back as name-keyed entries.
func LoadBundle(path string) (map[string]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	magic := make([]byte, len(bundleMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("read bundle %s: %w", path, err)
	}
	if string(magic) != bundleMagic {
		return nil, fmt.Errorf("%s is not a float64 bundle", path)
	}
	headerLine, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read bundle header: %w", err)
	}
	var header bundleHeader
	if err := json.Unmarshal(headerLine, &header); err != nil {
		return nil, fmt.Errorf("decode bundle header: %w", err)
	}

	out := make(map[string]Entry, len(header.Entries))
	buf := make([]byte, 8)
	for _, e := range header.Entries {
		n := count(e.Shape)
		e.Data = make([]float64, n)
		for i := 0; i < n; i++ {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("read entry %q: %w", e.Name, err)
			}
			e.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
		}
		out[e.Name] = e
	}
	return out, nil
}

func count(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
