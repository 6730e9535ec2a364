// Command muonspec streams an event table into a spectral summary: per-column
// statistics, an observable matrix, a feature correlation graph, and the
// graph's Laplacian spectrum with summary metrics.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/maverikod/vvz-muons/pkg/artifact"
	"github.com/maverikod/vvz-muons/pkg/config"
	"github.com/maverikod/vvz-muons/pkg/pipeline"
	"github.com/maverikod/vvz-muons/pkg/source"
)

var (
	flagInput     string
	flagOut       string
	flagConfig    string
	flagMode      string
	flagBins      int
	flagChunk     int
	flagTau       float64
	flagTopK      int
	flagKEigs     int
	flagMaxEvents int
	flagBaseline  bool
	flagSeed      int64
	flagJagged    bool
	flagBranches  []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "muonspec",
		Short: "Streaming event table -> correlation graph -> Laplacian spectrum",
		RunE:  run,
	}
	f := rootCmd.Flags()
	f.StringVar(&flagInput, "input", "", "path to the input event file (required)")
	f.StringVar(&flagOut, "out", "data/out", "output base path; each run creates a timestamped subdirectory")
	f.StringVar(&flagConfig, "config", "", "optional YAML config path")
	f.StringVar(&flagMode, "mode", "", "observable encoding: quantile or zscore")
	f.IntVar(&flagBins, "bins", 0, "quantile bins per feature")
	f.IntVar(&flagChunk, "chunk", 0, "row chunk size for streaming passes")
	f.Float64Var(&flagTau, "tau", -1, "connectivity threshold tau")
	f.IntVar(&flagTopK, "topk", -1, "keep top-k edges per row (0 = off)")
	f.IntVar(&flagKEigs, "k-eigs", 0, "eigenvalue count for the truncated solver")
	f.IntVar(&flagMaxEvents, "max-events", -1, "row cap (0 = all rows)")
	f.BoolVar(&flagBaseline, "baseline", false, "run the column-shuffle baseline control")
	f.Int64Var(&flagSeed, "seed", 0, "baseline shuffle seed")
	f.BoolVar(&flagJagged, "jagged", false, "include jagged columns via aggregates")
	f.StringSliceVar(&flagBranches, "branch", nil, "explicit feature name (repeatable); empty = auto-select")
	if err := rootCmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := config.New()
	if flagConfig != "" {
		if err := cfg.LoadFromFile(flagConfig); err != nil {
			return fmt.Errorf("load config %s: %w", flagConfig, err)
		}
	}
	applyFlagOverrides(cmd, cfg)

	log := cfg.CreateLogger()
	started := time.Now()

	outDir := filepath.Join(flagOut, started.Format("2006-01-02T15_04_05"))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	log.Info().Str("out", outDir).Msg("run started")

	src, err := source.OpenCSV(flagInput)
	if err != nil {
		return err
	}
	defer src.Close()
	log.Info().Int("rows", src.NumRows()).Int("columns", len(src.FeatureNames())).
		Str("input", flagInput).Msg("event source opened")

	p := pipeline.New(cfg, src, nil, log)
	p.OutDir = outDir
	res, err := p.Run()
	if err != nil {
		return err
	}

	params := cfg.EffectiveParams()
	params["input"] = flagInput
	params["feature_count"] = res.Features.Len()
	if err := artifact.WriteManifest(filepath.Join(outDir, "manifest.json"), flagInput, params, time.Since(started)); err != nil {
		return err
	}

	log.Info().
		Int("features", res.Features.Len()).
		Str("mode", cfg.Mode()).
		Float64("Neff", res.Metrics.Neff).
		Msg("done")
	return nil
}

// applyFlagOverrides pushes explicitly set CLI flags over the config file.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	set := func(flag, key string, value interface{}) {
		if cmd.Flags().Changed(flag) {
			cfg.Set(key, value)
		}
	}
	set("mode", "pipeline.mode", flagMode)
	set("bins", "pipeline.bins", flagBins)
	set("chunk", "pipeline.chunk", flagChunk)
	set("max-events", "pipeline.max_events", flagMaxEvents)
	set("tau", "graph.tau", flagTau)
	set("topk", "graph.topk", flagTopK)
	set("k-eigs", "spectrum.k_eigs", flagKEigs)
	set("baseline", "baseline.enabled", flagBaseline)
	set("seed", "baseline.seed", flagSeed)
	set("jagged", "features.allow_jagged", flagJagged)
	set("branch", "features.branches", flagBranches)
}
