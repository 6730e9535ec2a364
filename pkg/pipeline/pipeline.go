// Package pipeline wires the full spectral-summary run: statistics pass,
// observable matrix build, correlation and connectivity, Laplacian spectrum,
// metrics, and the optional baseline control. Stages run strictly in
// sequence; a stage failure is fatal to the run.
package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/maverikod/vvz-muons/pkg/artifact"
	"github.com/maverikod/vvz-muons/pkg/backend"
	"github.com/maverikod/vvz-muons/pkg/baseline"
	"github.com/maverikod/vvz-muons/pkg/config"
	"github.com/maverikod/vvz-muons/pkg/correlation"
	"github.com/maverikod/vvz-muons/pkg/features"
	"github.com/maverikod/vvz-muons/pkg/laplacian"
	"github.com/maverikod/vvz-muons/pkg/metrics"
	"github.com/maverikod/vvz-muons/pkg/observable"
	"github.com/maverikod/vvz-muons/pkg/source"
	"github.com/maverikod/vvz-muons/pkg/stats"
)

// Pipeline runs the end-to-end spectral summary for one event source.
type Pipeline struct {
	cfg *config.Config
	src source.EventSource
	sel *backend.Selector
	log zerolog.Logger

	// OutDir, when set, receives all run artifacts. Empty skips artifact
	// writes; the zscore scratch matrix then lives in a temporary directory
	// removed when the run ends.
	OutDir string
}

// Result collects everything the run produced.
type Result struct {
	Features    features.List
	Stats       []stats.Record
	C           *mat.Dense
	W           *mat.Dense
	Spectrum    *laplacian.Spectrum
	Metrics     metrics.Metrics
	RuntimeMS   int64
	ArtifactDir string
}

// New builds a pipeline over a source with an explicit accelerator device
// handle (nil for host-only).
func New(cfg *config.Config, src source.EventSource, dev backend.Device, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg: cfg,
		src: src,
		sel: backend.NewSelector(dev, log),
		log: log,
	}
}

// Run executes all stages in sequence and returns the collected result.
func (p *Pipeline) Run() (*Result, error) {
	started := time.Now()
	mode := p.cfg.Mode()
	if mode != "quantile" && mode != "zscore" {
		return nil, fmt.Errorf("unknown observable mode %q", mode)
	}

	list, err := features.Select(p.src, features.SelectOptions{
		Configured:  p.cfg.Branches(),
		AllowJagged: p.cfg.AllowJagged(),
		MaxJagged:   p.cfg.MaxJagged(),
		JaggedAggs:  p.cfg.JaggedAggs(),
	})
	if err != nil {
		return nil, fmt.Errorf("feature selection: %w", err)
	}
	p.log.Info().Int("features", list.Len()).Msg("feature list resolved")

	recs, err := stats.Compute(p.src, list, p.cfg.Chunk(), p.cfg.MaxEvents())
	if err != nil {
		return nil, fmt.Errorf("statistics pass: %w", err)
	}
	p.log.Info().Int("features", len(recs)).Msg("statistics pass done")
	if err := p.writeStatsArtifacts(list, recs); err != nil {
		return nil, err
	}

	nEvents := stats.BoundedRows(p.src.NumRows(), p.cfg.MaxEvents())

	var c *mat.Dense
	var oCSR *observable.CSR
	var oDisk *observable.DiskMatrix
	var d int
	if mode == "quantile" {
		qr, err := observable.BuildQuantile(p.src, list, recs, p.cfg.Bins(), p.cfg.Chunk(), p.cfg.MaxEvents())
		if err != nil {
			return nil, fmt.Errorf("observable build: %w", err)
		}
		oCSR = qr.O
		d = qr.O.NumCols
		p.log.Info().Int("rows", qr.O.NumRows).Int("cols", d).Int("nnz", qr.O.Nnz()).
			Msg("observable matrix built (quantile)")
		if err := p.writeQuantileArtifacts(qr); err != nil {
			return nil, err
		}
		c = correlation.FromCSR(oCSR)
	} else {
		dir := p.OutDir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "muonspec")
			if err != nil {
				return nil, fmt.Errorf("observable scratch directory: %w", err)
			}
			defer os.RemoveAll(tmp)
			dir = tmp
		}
		if err := p.writeZscoreArtifacts(recs); err != nil {
			return nil, err
		}
		m, err := observable.BuildZscore(p.src, list, recs, filepath.Join(dir, "O_matrix.f64"), p.cfg.Chunk(), p.cfg.MaxEvents())
		if err != nil {
			return nil, fmt.Errorf("observable build: %w", err)
		}
		defer m.Close()
		oDisk = m
		d = m.NumCols
		p.log.Info().Int("rows", m.NumRows).Int("cols", d).Msg("observable matrix built (zscore)")
		c, err = correlation.FromDisk(m, p.cfg.Chunk(), p.sel)
		if err != nil {
			return nil, fmt.Errorf("correlation: %w", err)
		}
	}
	p.log.Info().Int("d", d).Msg("correlation matrix computed")

	w := correlation.BuildW(c, p.cfg.Tau(), p.cfg.TopK())
	if err := p.saveBundle("corr.f64b",
		artifact.MatrixEntry("C", c),
		artifact.MatrixEntry("W", w)); err != nil {
		return nil, err
	}

	spec, err := laplacian.Compute(w, p.cfg.KEigs(), p.sel)
	if err != nil {
		return nil, fmt.Errorf("spectrum: %w", err)
	}
	p.log.Info().Int("eigenvalues", len(spec.Eigenvalues)).Msg("Laplacian spectrum computed")
	if err := p.saveBundle("laplacian.f64b",
		artifact.MatrixEntry("L", spec.L),
		artifact.VectorEntry("lambda", spec.Eigenvalues),
		artifact.MatrixEntry("eigvec_first10", spec.EigvecFirst10)); err != nil {
		return nil, err
	}

	met := metrics.Compute(spec.L, w, spec.Eigenvalues, spec.EigvecFirst10,
		nEvents, list.Len(), d, mode, p.cfg.Bins())

	if p.cfg.BaselineEnabled() {
		cmp, err := p.runBaseline(c, oCSR, oDisk, met, nEvents, list.Len(), d, mode)
		if err != nil {
			return nil, err
		}
		met.Baseline = cmp
	}

	if err := p.writeMetricsArtifacts(met, spec); err != nil {
		return nil, err
	}

	res := &Result{
		Features:    list,
		Stats:       recs,
		C:           c,
		W:           w,
		Spectrum:    spec,
		Metrics:     met,
		RuntimeMS:   time.Since(started).Milliseconds(),
		ArtifactDir: p.OutDir,
	}
	p.log.Info().Int64("runtime_ms", res.RuntimeMS).Msg("pipeline done")
	return res, nil
}

// runBaseline shuffles each observable column independently and replays the
// correlation, connectivity, spectrum, and metrics stages on the null model.
func (p *Pipeline) runBaseline(c *mat.Dense, oCSR *observable.CSR, oDisk *observable.DiskMatrix, met metrics.Metrics, nEvents, featureCount, d int, mode string) (*metrics.BaselineComparison, error) {
	seed := p.cfg.BaselineSeed()
	p.log.Info().Int64("seed", seed).Msg("baseline: shuffling observable columns")

	var c0 *mat.Dense
	if oCSR != nil {
		shuffled := baseline.ShuffleCSR(oCSR, seed)
		c0 = correlation.FromCSR(shuffled)
	} else if oDisk != nil {
		full, err := oDisk.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("baseline: %w", err)
		}
		comp, _ := p.sel.Select(int64(oDisk.NumRows) * int64(oDisk.NumCols) * 8 * 2)
		c0 = correlation.FromDense(baseline.ShuffleDense(full, seed), comp)
	}

	w0 := correlation.BuildW(c0, p.cfg.Tau(), p.cfg.TopK())
	spec0, err := laplacian.Compute(w0, p.cfg.KEigs(), p.sel)
	if err != nil {
		return nil, fmt.Errorf("baseline spectrum: %w", err)
	}
	met0 := metrics.Compute(spec0.L, w0, spec0.Eigenvalues, spec0.EigvecFirst10,
		nEvents, featureCount, d, mode, p.cfg.Bins())

	delta := math.NaN()
	if !math.IsNaN(met.Neff) {
		delta = met.Neff - met0.Neff
	}
	return &metrics.BaselineComparison{
		BaselineNeff: met0.Neff,
		DeltaNeff:    delta,
		CorrFroRatio: baseline.FrobeniusRatio(c, c0),
	}, nil
}

func (p *Pipeline) writeStatsArtifacts(list features.List, recs []stats.Record) error {
	if p.OutDir == "" {
		return nil
	}
	if err := artifact.WriteFeaturesJSON(filepath.Join(p.OutDir, "features_used.json"), list.Names()); err != nil {
		return err
	}
	return artifact.WriteBranchStatsCSV(filepath.Join(p.OutDir, "branch_stats.csv"), recs)
}

func (p *Pipeline) writeZscoreArtifacts(recs []stats.Record) error {
	if p.OutDir == "" {
		return nil
	}
	return artifact.WriteZscoreParamsJSON(filepath.Join(p.OutDir, "zscore_params.json"), recs)
}

func (p *Pipeline) writeQuantileArtifacts(qr *observable.QuantileResult) error {
	if p.OutDir == "" {
		return nil
	}
	if err := artifact.WriteBinDefinitionsCSV(filepath.Join(p.OutDir, "bin_definitions.csv"), qr.Edges); err != nil {
		return err
	}
	return artifact.SaveObservableCSR(filepath.Join(p.OutDir, "O_matrix.f64b"), qr.O)
}

func (p *Pipeline) saveBundle(name string, entries ...artifact.Entry) error {
	if p.OutDir == "" {
		return nil
	}
	return artifact.SaveBundle(filepath.Join(p.OutDir, name), entries...)
}

func (p *Pipeline) writeMetricsArtifacts(met metrics.Metrics, spec *laplacian.Spectrum) error {
	if p.OutDir == "" {
		return nil
	}
	if err := artifact.WriteMetricsJSON(filepath.Join(p.OutDir, "metrics.json"), met); err != nil {
		return err
	}
	return artifact.WriteSpectrumCSV(filepath.Join(p.OutDir, "spectrum.csv"), spec.Eigenvalues, spec.EigvecFirst10)
}
