// Package config manages pipeline configuration through Viper and builds the
// run logger.
package config

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config wraps a Viper instance seeded with pipeline defaults.
type Config struct {
	v *viper.Viper
}

// New creates a configuration with defaults.
func New() *Config {
	v := viper.New()

	// Pipeline parameters
	v.SetDefault("pipeline.mode", "quantile")
	v.SetDefault("pipeline.bins", 16)
	v.SetDefault("pipeline.chunk", 200_000)
	v.SetDefault("pipeline.max_events", 0)

	// Graph parameters
	v.SetDefault("graph.tau", 0.1)
	v.SetDefault("graph.topk", 0)

	// Spectrum parameters
	v.SetDefault("spectrum.k_eigs", 200)

	// Baseline control
	v.SetDefault("baseline.enabled", false)
	v.SetDefault("baseline.seed", 0)

	// Feature selection
	v.SetDefault("features.branches", []string{})
	v.SetDefault("features.allow_jagged", false)
	v.SetDefault("features.max_jagged", 16)
	v.SetDefault("features.jagged_aggs", []string{"len", "mean", "std"})

	// Logging parameters
	v.SetDefault("logging.level", "info")

	return &Config{v: v}
}

// LoadFromFile merges configuration from a YAML file.
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for pipeline parameters
func (c *Config) Mode() string   { return c.v.GetString("pipeline.mode") }
func (c *Config) Bins() int      { return c.v.GetInt("pipeline.bins") }
func (c *Config) Chunk() int     { return c.v.GetInt("pipeline.chunk") }
func (c *Config) MaxEvents() int { return c.v.GetInt("pipeline.max_events") }

func (c *Config) Tau() float64 { return c.v.GetFloat64("graph.tau") }
func (c *Config) TopK() int    { return c.v.GetInt("graph.topk") }

func (c *Config) KEigs() int { return c.v.GetInt("spectrum.k_eigs") }

func (c *Config) BaselineEnabled() bool { return c.v.GetBool("baseline.enabled") }
func (c *Config) BaselineSeed() int64   { return c.v.GetInt64("baseline.seed") }

func (c *Config) Branches() []string   { return c.v.GetStringSlice("features.branches") }
func (c *Config) AllowJagged() bool    { return c.v.GetBool("features.allow_jagged") }
func (c *Config) MaxJagged() int       { return c.v.GetInt("features.max_jagged") }
func (c *Config) JaggedAggs() []string { return c.v.GetStringSlice("features.jagged_aggs") }

func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }

// Set allows dynamic configuration changes (CLI flag overrides).
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// EffectiveParams flattens the settings recorded in the run manifest.
func (c *Config) EffectiveParams() map[string]interface{} {
	return map[string]interface{}{
		"mode":         c.Mode(),
		"bins":         c.Bins(),
		"chunk":        c.Chunk(),
		"max_events":   c.MaxEvents(),
		"tau":          c.Tau(),
		"topk":         c.TopK(),
		"k_eigs":       c.KEigs(),
		"baseline":     c.BaselineEnabled(),
		"seed":         c.BaselineSeed(),
		"allow_jagged": c.AllowJagged(),
	}
}

// CreateLogger creates a zerolog logger based on config.
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "muonspec").Logger()
}
