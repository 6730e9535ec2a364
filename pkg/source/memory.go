package source

import "fmt"

// MemorySource is an in-memory EventSource. It backs small runs and tests;
// column order follows the order names were added.
type MemorySource struct {
	names   []string
	columns map[string]Column
	numRows int
}

// NewMemorySource creates an empty in-memory source with the given row count.
func NewMemorySource(numRows int) *MemorySource {
	return &MemorySource{
		columns: make(map[string]Column),
		numRows: numRows,
	}
}

// AddScalar registers a scalar column. The value slice length must equal the
// source row count.
func (s *MemorySource) AddScalar(name string, values []float64) error {
	if len(values) != s.numRows {
		return fmt.Errorf("column %q has %d values, source has %d rows", name, len(values), s.numRows)
	}
	s.names = append(s.names, name)
	s.columns[name] = Column{Scalar: values}
	return nil
}

// AddJagged registers a variable-length column, one list per row.
func (s *MemorySource) AddJagged(name string, values [][]float64) error {
	if len(values) != s.numRows {
		return fmt.Errorf("column %q has %d rows, source has %d rows", name, len(values), s.numRows)
	}
	s.names = append(s.names, name)
	s.columns[name] = Column{Jagged: values}
	return nil
}

// NumRows returns the total number of rows.
func (s *MemorySource) NumRows() int { return s.numRows }

// FeatureNames returns the registered column names in insertion order.
func (s *MemorySource) FeatureNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Fetch returns the requested columns sliced to [start, stop).
func (s *MemorySource) Fetch(names []string, start, stop int) (map[string]Column, error) {
	if start < 0 || stop < start || stop > s.numRows {
		return nil, fmt.Errorf("fetch range [%d, %d) out of bounds for %d rows", start, stop, s.numRows)
	}
	out := make(map[string]Column, len(names))
	for _, name := range names {
		col, ok := s.columns[name]
		if !ok {
			return nil, fmt.Errorf("column %q not found in source", name)
		}
		if col.IsJagged() {
			out[name] = Column{Jagged: col.Jagged[start:stop]}
		} else {
			out[name] = Column{Scalar: col.Scalar[start:stop]}
		}
	}
	return out, nil
}
