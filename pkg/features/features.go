// Package features defines the ordered feature list consumed by every
// downstream matrix, and the policies that choose features from a source.
package features

import (
	"fmt"
	"strings"

	"github.com/maverikod/vvz-muons/pkg/jagged"
	"github.com/maverikod/vvz-muons/pkg/source"
)

// Spec identifies one feature: either a raw scalar column, or a jagged column
// reduced by a named aggregate.
type Spec struct {
	Branch string
	Agg    string // empty for raw scalar columns
}

// Name returns the feature name: the branch itself, or "<branch>__<agg>" for
// derived features.
func (s Spec) Name() string {
	if s.Agg == "" {
		return s.Branch
	}
	return s.Branch + "__" + s.Agg
}

// ParseName splits a feature name back into a Spec.
func ParseName(name string) Spec {
	if i := strings.LastIndex(name, "__"); i > 0 {
		branch, agg := name[:i], name[i+2:]
		if jagged.ValidAgg(agg) {
			return Spec{Branch: branch, Agg: agg}
		}
	}
	return Spec{Branch: name}
}

// List is an ordered feature list. Order is significant: it defines column
// order in the observable matrix and everything derived from it.
type List struct {
	Specs []Spec
}

// Names returns the feature names in order.
func (l List) Names() []string {
	out := make([]string, len(l.Specs))
	for i, s := range l.Specs {
		out[i] = s.Name()
	}
	return out
}

// Len returns the number of features.
func (l List) Len() int { return len(l.Specs) }

// Branches returns the distinct source columns the list depends on, in first
// appearance order.
func (l List) Branches() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range l.Specs {
		if !seen[s.Branch] {
			seen[s.Branch] = true
			out = append(out, s.Branch)
		}
	}
	return out
}

// ChunkValues fetches rows [start, stop) and materializes one scalar slice
// per feature, in feature order. Jagged branches are reduced through their
// aggregate; scalar branches pass through.
func ChunkValues(src source.EventSource, list List, start, stop int) ([][]float64, error) {
	cols, err := src.Fetch(list.Branches(), start, stop)
	if err != nil {
		return nil, fmt.Errorf("fetch rows [%d, %d): %w", start, stop, err)
	}
	out := make([][]float64, len(list.Specs))
	for i, spec := range list.Specs {
		col, ok := cols[spec.Branch]
		if !ok {
			return nil, fmt.Errorf("source did not return column %q", spec.Branch)
		}
		if spec.Agg == "" {
			if col.IsJagged() {
				return nil, fmt.Errorf("column %q is jagged but feature %q has no aggregate", spec.Branch, spec.Name())
			}
			out[i] = col.Scalar
			continue
		}
		if !col.IsJagged() {
			return nil, fmt.Errorf("feature %q needs a jagged column, %q is scalar", spec.Name(), spec.Branch)
		}
		vals, err := jagged.Aggregate(col.Jagged, spec.Agg)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", spec.Name(), err)
		}
		out[i] = vals
	}
	return out, nil
}
