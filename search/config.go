// Copyright (c) 2026, The Hailstone Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package search runs the hailstone candidate search: it pumps
// batches of consecutive candidates through a compute engine,
// accumulates trajectory records, and optionally verifies device
// results against the CPU reference.
package search

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/hailstone-search/hailstone/base/osres"
)

// Duration is a [time.Duration] that unmarshals from strings like
// "30s" in both TOML and YAML config files.
type Duration time.Duration

// Std returns the value as a [time.Duration].
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// Config holds the search parameters. Zero values are filled in by
// [Defaults]; file values are overridden by command-line flags.
type Config struct {
	// Start is the first candidate to check.
	Start uint64 `toml:"start" yaml:"start"`

	// Count is the number of candidates to check; 0 means run until
	// interrupted.
	Count uint64 `toml:"count" yaml:"count"`

	// BatchSize is the number of candidates per cycle. Reduced
	// automatically when buffer allocation runs out of memory.
	BatchSize int `toml:"batch-size" yaml:"batch-size"`

	// MinBatchSize is the floor below which an out-of-memory retry
	// gives up instead of halving further.
	MinBatchSize int `toml:"min-batch-size" yaml:"min-batch-size"`

	// Device is the physical device index; -1 selects the first
	// compute-capable device.
	Device int `toml:"device" yaml:"device"`

	// Shader is the path to the compiled kernel binary.
	Shader string `toml:"shader" yaml:"shader"`

	// Timeout bounds each cycle completion wait.
	Timeout Duration `toml:"timeout" yaml:"timeout"`

	// VerifyStride samples every nth device result against the CPU
	// reference; 0 disables verification, 1 checks everything.
	VerifyStride int `toml:"verify-stride" yaml:"verify-stride"`

	// ReportEvery logs records every n cycles; 0 disables.
	ReportEvery int `toml:"report-every" yaml:"report-every"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		Start:        1,
		Count:        0,
		BatchSize:    1 << 20,
		MinBatchSize: 1 << 10,
		Device:       -1,
		Shader:       "shaders/collatz.spv",
		Timeout:      Duration(10 * time.Second),
		VerifyStride: 0,
		ReportEvery:  64,
	}
}

// Validate checks the configuration for values the runner cannot
// work with.
func (cf *Config) Validate() error {
	if cf.Start == 0 {
		return fmt.Errorf("search: start must be at least 1")
	}
	if cf.BatchSize <= 0 {
		return fmt.Errorf("search: batch-size %d; must be positive", cf.BatchSize)
	}
	if cf.MinBatchSize <= 0 || cf.MinBatchSize > cf.BatchSize {
		return fmt.Errorf("search: min-batch-size %d; must be in 1..batch-size", cf.MinBatchSize)
	}
	if cf.Timeout <= 0 {
		return fmt.Errorf("search: timeout %v; must be positive", cf.Timeout)
	}
	if cf.VerifyStride < 0 {
		return fmt.Errorf("search: verify-stride %d; must not be negative", cf.VerifyStride)
	}
	return nil
}

// LoadConfig reads a TOML or YAML config file (by extension) over
// the defaults.
func LoadConfig(fname string) (Config, error) {
	cf := Defaults()
	b, err := os.ReadFile(fname)
	if err != nil {
		return cf, osres.Wrap(osres.CallOpen, err)
	}
	switch ext := filepath.Ext(fname); ext {
	case ".toml":
		err = toml.Unmarshal(b, &cf)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cf)
	default:
		return cf, fmt.Errorf("search: config %s: unknown extension %q (want .toml, .yaml, .yml)", fname, ext)
	}
	if err != nil {
		return cf, fmt.Errorf("search: config %s: %w", fname, err)
	}
	if err := cf.Validate(); err != nil {
		return cf, err
	}
	return cf, nil
}
