// Package config holds the pipeline policy: which inputs to read, which rows
// to drop, how to coerce values, and where the cleaned table goes. Every
// cleaning decision lives here so behavior is reproducible and testable.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Output formats accepted by the sink.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatXLSX    = "xlsx"
)

// Parse-error policies for the critical arrival-delay column.
const (
	OnParseErrorDrop   = "drop"
	OnParseErrorImpute = "impute"
)

// Bucket is one delay-severity threshold. A row is assigned the first bucket
// whose Upper bound is >= its arrival delay; the last bucket leaves Upper
// nil and catches everything above the previous bound.
type Bucket struct {
	Label string   `koanf:"label"`
	Upper *float64 `koanf:"upper"`
}

type OutputCfg struct {
	Path   string `koanf:"path"`
	Format string `koanf:"format"`
}

type FilterCfg struct {
	CancelledDiverted bool     `koanf:"cancelled_diverted"`
	Airports          []string `koanf:"airports"`
}

type NormalizeCfg struct {
	OnParseError string  `koanf:"on_parse_error"` // drop|impute
	ImputeValue  float64 `koanf:"impute_value"`
	CauseFill    float64 `koanf:"cause_fill"`
}

type LogCfg struct {
	Level string `koanf:"level"`
}

type MetricsCfg struct {
	Port int `koanf:"port"` // 0 disables the /metrics endpoint
}

// Config is the full pipeline policy.
type Config struct {
	Inputs    []string     `koanf:"inputs"`
	Output    OutputCfg    `koanf:"output"`
	Snapshot  string       `koanf:"snapshot"`
	Filter    FilterCfg    `koanf:"filter"`
	Normalize NormalizeCfg `koanf:"normalize"`
	Buckets   []Bucket     `koanf:"buckets"`
	Log       LogCfg       `koanf:"log"`
	Metrics   MetricsCfg   `koanf:"metrics"`
}

// DefaultBuckets are the documented delay-severity thresholds:
// on_time <= 0 < minor <= 15 < moderate <= 60 < severe.
func DefaultBuckets() []Bucket {
	f := func(v float64) *float64 { return &v }
	return []Bucket{
		{Label: "on_time", Upper: f(0)},
		{Label: "minor", Upper: f(15)},
		{Label: "moderate", Upper: f(60)},
		{Label: "severe"},
	}
}

// Default returns a Config with every policy at its documented default and
// no inputs. Callers are expected to fill Inputs (and usually Output).
func Default() Config {
	cfg := Config{}
	cfg.Filter.CancelledDiverted = true
	applyDefaults(&cfg)
	return cfg
}

// Load merges YAML (if present) with env vars (prefix `FLIGHTLINE__`,
// delimiter `__`), applies defaults, and validates the result.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config file %q: %w", path, err)
			}
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("FLIGHTLINE__", "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "FLIGHTLINE__"))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	// koanf cannot distinguish "filter absent" from "cancelled_diverted:
	// false"; the flag defaults on only when the filter block is absent.
	if !k.Exists("filter") {
		cfg.Filter.CancelledDiverted = true
	}
	applyDefaults(&cfg)
	// Inputs are deliberately not checked here: watch-mode configs list none
	// and get one per detected file. Per-run validation covers them.
	if err := cfg.ValidatePolicies(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.Normalize.OnParseError == "" {
		c.Normalize.OnParseError = OnParseErrorDrop
	}
	if len(c.Buckets) == 0 {
		c.Buckets = DefaultBuckets()
	}
	if c.Output.Format == "" && c.Output.Path != "" {
		c.Output.Format = FormatFromPath(c.Output.Path)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// FormatFromPath infers the output format from a file extension,
// defaulting to CSV.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return FormatParquet
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Validate rejects configurations a pipeline run cannot honor.
func (c Config) Validate() error {
	if len(c.Inputs) == 0 {
		return errors.New("config: at least one input path is required")
	}
	return c.ValidatePolicies()
}

// ValidatePolicies checks everything except the input list.
func (c Config) ValidatePolicies() error {
	switch c.Normalize.OnParseError {
	case OnParseErrorDrop, OnParseErrorImpute:
	default:
		return fmt.Errorf("config: on_parse_error %q not supported (want %q or %q)",
			c.Normalize.OnParseError, OnParseErrorDrop, OnParseErrorImpute)
	}
	if c.Output.Path != "" {
		switch c.Output.Format {
		case FormatCSV, FormatParquet, FormatXLSX:
		default:
			return fmt.Errorf("config: output format %q not supported", c.Output.Format)
		}
	}
	return validateBuckets(c.Buckets)
}

func validateBuckets(buckets []Bucket) error {
	if len(buckets) == 0 {
		return errors.New("config: at least one delay bucket is required")
	}
	prev := math.Inf(-1)
	for i, b := range buckets {
		if b.Label == "" {
			return fmt.Errorf("config: bucket %d has no label", i)
		}
		last := i == len(buckets)-1
		if b.Upper == nil {
			if !last {
				return fmt.Errorf("config: bucket %q: only the last bucket may omit its upper bound", b.Label)
			}
			continue
		}
		if last {
			return fmt.Errorf("config: last bucket %q must omit its upper bound", b.Label)
		}
		if *b.Upper <= prev {
			return fmt.Errorf("config: bucket %q: upper bounds must be strictly increasing", b.Label)
		}
		prev = *b.Upper
	}
	return nil
}
