package source

// Column holds one fetched column for a row range. Exactly one of Scalar or
// Jagged is populated: scalar columns carry one value per row, jagged columns
// carry a variable-length list per row.
type Column struct {
	Scalar []float64
	Jagged [][]float64
}

// IsJagged reports whether the column is a one-to-many column.
func (c Column) IsJagged() bool {
	return c.Jagged != nil
}

// Len returns the number of rows covered by the column.
func (c Column) Len() int {
	if c.Jagged != nil {
		return len(c.Jagged)
	}
	return len(c.Scalar)
}

// EventSource is the tabular collaborator the pipeline consumes from: a total
// row count, the available column names, and chunked column fetches over a
// half-open row range [start, stop).
type EventSource interface {
	NumRows() int
	FeatureNames() []string
	Fetch(names []string, start, stop int) (map[string]Column, error)
}
