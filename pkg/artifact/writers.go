package artifact

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/maverikod/vvz-muons/pkg/metrics"
	"github.com/maverikod/vvz-muons/pkg/observable"
	"github.com/maverikod/vvz-muons/pkg/stats"
)

// WriteBranchStatsCSV writes one row per feature statistics record.
func WriteBranchStatsCSV(path string, recs []stats.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"branch", "min", "max", "mean", "std", "nan_rate", "median", "n"}); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, r := range recs {
		row := []string{
			r.Name,
			formatFloat(r.Min),
			formatFloat(r.Max),
			formatFloat(r.Mean),
			formatFloat(r.Std),
			formatFloat(r.MissingRate),
			formatFloat(r.Median),
			strconv.Itoa(r.N),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteFeaturesJSON records the resolved feature list.
func WriteFeaturesJSON(path string, featureNames []string) error {
	return writeJSON(path, map[string]interface{}{"branches": featureNames})
}

// WriteBinDefinitionsCSV writes the bin-edge table as flat
// (feature, bin_id, left_edge, right_edge) rows.
func WriteBinDefinitionsCSV(path string, edges []observable.BinEdges) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"branch", "bin_id", "left_edge", "right_edge"}); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, be := range edges {
		for k := 0; k+1 < len(be.Edges); k++ {
			row := []string{
				be.Feature,
				strconv.Itoa(k),
				formatFloat(be.Edges[k]),
				formatFloat(be.Edges[k+1]),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
	}
	w.Flush()
	return w.Error()
}

// WriteZscoreParamsJSON records the per-feature standardization parameters
// the zscore encoder applied, keyed by feature name. NaN fields become null.
func WriteZscoreParamsJSON(path string, recs []stats.Record) error {
	out := make(map[string]interface{}, len(recs))
	for _, r := range recs {
		out[r.Name] = map[string]interface{}{
			"mean":   nanToNull(r.Mean),
			"std":    nanToNull(r.Std),
			"median": nanToNull(r.Median),
		}
	}
	return writeJSON(path, out)
}

// WriteMetricsJSON serializes the metrics record with NaN fields as null.
func WriteMetricsJSON(path string, m metrics.Metrics) error {
	out := map[string]interface{}{
		"N_events":           m.NEvents,
		"features_count":     m.FeaturesCount,
		"mode":               m.Mode,
		"bins":               m.Bins,
		"d":                  m.D,
		"density_W":          nanToNull(m.DensityW),
		"trace_L":            nanToNull(m.TraceL),
		"lambda_min_nonzero": nanToNull(m.LambdaMinNonzero),
		"Neff":               nanToNull(m.Neff),
		"PR_k":               nanListToNull(m.PRK),
	}
	if m.Baseline != nil {
		out["baseline_Neff"] = nanToNull(m.Baseline.BaselineNeff)
		out["delta_Neff"] = nanToNull(m.Baseline.DeltaNeff)
		out["corr_fro_ratio"] = nanToNull(m.Baseline.CorrFroRatio)
	}
	return writeJSON(path, out)
}

// WriteSpectrumCSV writes one row per eigenvalue: k, lambda_k, PR_k. PR_k is
// filled only for the first eigenvectors and left empty elsewhere.
func WriteSpectrumCSV(path string, eigenvalues []float64, eigvecFirst10 *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	pr := metrics.ParticipationRatios(eigvecFirst10)

	w := csv.NewWriter(f)
	if err := w.Write([]string{"k", "lambda_k", "PR_k"}); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for k, lam := range eigenvalues {
		prStr := ""
		if k < len(pr) && !math.IsNaN(pr[k]) {
			prStr = formatFloat(pr[k])
		}
		if err := w.Write([]string{strconv.Itoa(k), formatFloat(lam), prStr}); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

// SaveObservableCSR persists the sparse observable matrix as side-by-side
// flat arrays (row indices, column indices, values, shape).
func SaveObservableCSR(path string, o *observable.CSR) error {
	rows, cols, data := o.ToCOO()
	rowsF := make([]float64, len(rows))
	colsF := make([]float64, len(cols))
	for i := range rows {
		rowsF[i] = float64(rows[i])
		colsF[i] = float64(cols[i])
	}
	return SaveBundle(path,
		VectorEntry("shape", []float64{float64(o.NumRows), float64(o.NumCols)}),
		VectorEntry("row", rowsF),
		VectorEntry("col", colsF),
		VectorEntry("data", data),
	)
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func nanToNull(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func nanListToNull(vs []float64) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = nanToNull(v)
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
