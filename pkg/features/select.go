package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/maverikod/vvz-muons/pkg/jagged"
	"github.com/maverikod/vvz-muons/pkg/source"
)

// Auto-selection policy constants.
const (
	MaxScanRows         = 20_000
	MaxScalarFeatures   = 64
	ScalarMissingLimit  = 0.2
	JaggedEmptyRowLimit = 0.5
)

// SelectOptions controls feature selection.
type SelectOptions struct {
	// Configured, when non-empty, is the exact feature list to use. Each name
	// is validated against the source; "<branch>__<agg>" names are permitted.
	Configured []string
	// AllowJagged enables jagged auto-selection alongside scalar columns.
	AllowJagged bool
	// MaxJagged caps the number of auto-selected jagged branches.
	MaxJagged int
	// JaggedAggs lists the aggregates applied to each selected jagged branch.
	JaggedAggs []string
	// ScanRows bounds the auto-selection sample (defaults to MaxScanRows).
	ScanRows int
}

// Select resolves the feature list, either from configuration or by scanning
// a bounded initial sample of the source.
func Select(src source.EventSource, opts SelectOptions) (List, error) {
	if len(opts.Configured) > 0 {
		return fromConfigured(src, opts.Configured)
	}
	return autoSelect(src, opts)
}

func fromConfigured(src source.EventSource, names []string) (List, error) {
	available := make(map[string]bool)
	for _, n := range src.FeatureNames() {
		available[n] = true
	}
	var list List
	for _, name := range names {
		spec := ParseName(name)
		if !available[spec.Branch] {
			return List{}, fmt.Errorf("feature %q: column %q not found in source", name, spec.Branch)
		}
		if spec.Agg != "" && !jagged.ValidAgg(spec.Agg) {
			return List{}, fmt.Errorf("feature %q: unknown aggregator %q", name, spec.Agg)
		}
		list.Specs = append(list.Specs, spec)
	}
	return list, nil
}

type scalarCandidate struct {
	name        string
	missingRate float64
}

type jaggedCandidate struct {
	name      string
	emptyRate float64
	std       float64
}

func autoSelect(src source.EventSource, opts SelectOptions) (List, error) {
	scan := opts.ScanRows
	if scan <= 0 {
		scan = MaxScanRows
	}
	if n := src.NumRows(); n < scan {
		scan = n
	}
	all := src.FeatureNames()
	cols, err := src.Fetch(all, 0, scan)
	if err != nil {
		return List{}, fmt.Errorf("auto-selection scan: %w", err)
	}

	var scalars []scalarCandidate
	var jaggeds []jaggedCandidate
	for _, name := range all {
		col := cols[name]
		if col.IsJagged() {
			if opts.AllowJagged {
				if c, ok := jaggedCandidateOf(name, col.Jagged); ok {
					jaggeds = append(jaggeds, c)
				}
			}
			continue
		}
		if c, ok := scalarCandidateOf(name, col.Scalar); ok {
			scalars = append(scalars, c)
		}
	}

	sort.Slice(scalars, func(i, j int) bool {
		if scalars[i].missingRate != scalars[j].missingRate {
			return scalars[i].missingRate < scalars[j].missingRate
		}
		return scalars[i].name < scalars[j].name
	})
	if len(scalars) > MaxScalarFeatures {
		scalars = scalars[:MaxScalarFeatures]
	}

	var list List
	for _, c := range scalars {
		list.Specs = append(list.Specs, Spec{Branch: c.name})
	}

	if opts.AllowJagged && len(jaggeds) > 0 {
		sort.Slice(jaggeds, func(i, j int) bool {
			if jaggeds[i].emptyRate != jaggeds[j].emptyRate {
				return jaggeds[i].emptyRate < jaggeds[j].emptyRate
			}
			if jaggeds[i].std != jaggeds[j].std {
				return jaggeds[i].std > jaggeds[j].std
			}
			return jaggeds[i].name < jaggeds[j].name
		})
		if opts.MaxJagged > 0 && len(jaggeds) > opts.MaxJagged {
			jaggeds = jaggeds[:opts.MaxJagged]
		}
		aggs := opts.JaggedAggs
		if len(aggs) == 0 {
			aggs = []string{"len", "mean", "std"}
		}
		for _, a := range aggs {
			if !jagged.ValidAgg(a) {
				return List{}, fmt.Errorf("unknown aggregator: %s", a)
			}
		}
		for _, c := range jaggeds {
			for _, a := range aggs {
				list.Specs = append(list.Specs, Spec{Branch: c.name, Agg: a})
			}
		}
	}

	if len(list.Specs) == 0 {
		return List{}, fmt.Errorf(
			"auto-selection: no column passed filters (numeric, missing rate <= %.1f, std > 0)",
			ScalarMissingLimit)
	}
	return list, nil
}

func scalarCandidateOf(name string, values []float64) (scalarCandidate, bool) {
	if len(values) == 0 {
		return scalarCandidate{}, false
	}
	missing := 0
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) {
			missing++
		} else {
			valid = append(valid, v)
		}
	}
	rate := float64(missing) / float64(len(values))
	if rate > ScalarMissingLimit {
		return scalarCandidate{}, false
	}
	std := sampleSpread(valid)
	if !(std > 0) || math.IsInf(std, 0) {
		return scalarCandidate{}, false
	}
	return scalarCandidate{name: name, missingRate: rate}, true
}

func jaggedCandidateOf(name string, rows [][]float64) (jaggedCandidate, bool) {
	if len(rows) == 0 {
		return jaggedCandidate{}, false
	}
	empty := 0
	var flat []float64
	for _, row := range rows {
		if len(row) == 0 {
			empty++
		}
		for _, v := range row {
			if !math.IsNaN(v) {
				flat = append(flat, v)
			}
		}
	}
	rate := float64(empty) / float64(len(rows))
	if rate > JaggedEmptyRowLimit {
		return jaggedCandidate{}, false
	}
	std := sampleSpread(flat)
	if !(std > 0) || math.IsInf(std, 0) {
		return jaggedCandidate{}, false
	}
	return jaggedCandidate{name: name, emptyRate: rate, std: std}, true
}

// sampleSpread is the population standard deviation of the finite values.
func sampleSpread(values []float64) float64 {
	finite := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	n := len(finite)
	if n == 0 {
		return 0
	}
	var s float64
	for _, v := range finite {
		s += v
	}
	mean := s / float64(n)
	var ss float64
	for _, v := range finite {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}
