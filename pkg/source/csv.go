package source

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// CSVSource reads events from a comma-separated file with a header row.
// Jagged columns use ';' between elements inside a cell ("1.5;2;7"); an empty
// cell is a missing scalar (NaN) or an empty list for jagged columns.
//
// Opening the file scans it once to build a byte-offset index per row, so
// Fetch can serve arbitrary [start, stop) ranges without keeping rows in
// memory.
type CSVSource struct {
	path    string
	file    *os.File
	names   []string
	index   map[string]int
	jagged  []bool
	offsets []int64
}

// OpenCSV opens and indexes a CSV event file.
func OpenCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event file: %w", err)
	}
	s := &CSVSource{path: path, file: f, index: make(map[string]int)}
	if err := s.buildIndex(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying file.
func (s *CSVSource) Close() error { return s.file.Close() }

// NumRows returns the number of data rows (header excluded).
func (s *CSVSource) NumRows() int { return len(s.offsets) }

// FeatureNames returns the header column names.
func (s *CSVSource) FeatureNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *CSVSource) buildIndex() error {
	r := bufio.NewReaderSize(s.file, 1<<20)
	var offset int64

	header, n, err := readLine(r)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	offset += int64(n)
	s.names = splitFields(header)
	if len(s.names) == 0 {
		return fmt.Errorf("event file %s has an empty header", s.path)
	}
	for i, name := range s.names {
		s.index[name] = i
	}
	s.jagged = make([]bool, len(s.names))

	for {
		line, n, err := readLine(r)
		if err == io.EOF && line == "" {
			break
		}
		if err != nil && err != io.EOF {
			return fmt.Errorf("index event file: %w", err)
		}
		if strings.TrimSpace(line) != "" {
			s.offsets = append(s.offsets, offset)
			for i, cell := range splitFields(line) {
				if i < len(s.jagged) && strings.Contains(cell, ";") {
					s.jagged[i] = true
				}
			}
		}
		offset += int64(n)
		if err == io.EOF {
			break
		}
	}
	return nil
}

// Fetch parses the requested columns for rows [start, stop).
func (s *CSVSource) Fetch(names []string, start, stop int) (map[string]Column, error) {
	if start < 0 || stop < start || stop > len(s.offsets) {
		return nil, fmt.Errorf("fetch range [%d, %d) out of bounds for %d rows", start, stop, len(s.offsets))
	}
	cols := make([]int, len(names))
	for i, name := range names {
		idx, ok := s.index[name]
		if !ok {
			return nil, fmt.Errorf("column %q not found in %s", name, s.path)
		}
		cols[i] = idx
	}

	out := make(map[string]Column, len(names))
	scalars := make(map[string][]float64)
	jaggeds := make(map[string][][]float64)
	for i, name := range names {
		if s.jagged[cols[i]] {
			jaggeds[name] = make([][]float64, 0, stop-start)
		} else {
			scalars[name] = make([]float64, 0, stop-start)
		}
	}

	if stop > start {
		if _, err := s.file.Seek(s.offsets[start], io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek row %d: %w", start, err)
		}
		r := bufio.NewReaderSize(s.file, 1<<20)
		for row := start; row < stop; row++ {
			line, _, err := readLine(r)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("read row %d: %w", row, err)
			}
			fields := splitFields(line)
			for i, name := range names {
				var cell string
				if cols[i] < len(fields) {
					cell = fields[cols[i]]
				}
				if s.jagged[cols[i]] {
					jaggeds[name] = append(jaggeds[name], parseList(cell))
				} else {
					scalars[name] = append(scalars[name], parseScalar(cell))
				}
			}
		}
	}

	for name, vals := range scalars {
		out[name] = Column{Scalar: vals}
	}
	for name, vals := range jaggeds {
		out[name] = Column{Jagged: vals}
	}
	return out, nil
}

// readLine returns the next line without its terminator and the number of
// bytes consumed including the terminator.
func readLine(r *bufio.Reader) (string, int, error) {
	line, err := r.ReadString('\n')
	n := len(line)
	line = strings.TrimRight(line, "\r\n")
	return line, n, err
}

func splitFields(line string) []string {
	if line == "" {
		return nil
	}
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func parseScalar(cell string) float64 {
	if cell == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseList(cell string) []float64 {
	if cell == "" {
		return nil
	}
	parts := strings.Split(cell, ";")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		vals = append(vals, parseScalar(p))
	}
	return vals
}
