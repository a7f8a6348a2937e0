// Package config handles analysis configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/insolation/internal/units"
)

// Config holds all analysis settings.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AnalysisConfig holds the sampling and ray casting parameters.
type AnalysisConfig struct {
	GridSize       float64 `yaml:"grid_size"`
	OffsetDistance float64 `yaml:"offset_distance"` // 0 selects the unit default
	Parallel       bool    `yaml:"parallel"`
	Workers        int     `yaml:"workers"` // 0 means GOMAXPROCS
	Units          string  `yaml:"units"`
}

// InputConfig holds input file paths.
type InputConfig struct {
	Geometry  []string `yaml:"geometry"`
	Context   []string `yaml:"context"`
	SkyMatrix string   `yaml:"sky_matrix"`
}

// OutputConfig holds result destinations.
type OutputConfig struct {
	JSON     string `yaml:"json"`
	Database string `yaml:"database"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			GridSize:       1.0,
			OffsetDistance: 0,
			Parallel:       true,
			Workers:        0,
			Units:          units.Meters,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Offset returns the configured offset distance, or the default for the
// configured units when none is set.
func (c *Config) Offset() float64 {
	if c.Analysis.OffsetDistance > 0 {
		return c.Analysis.OffsetDistance
	}
	return units.DefaultOffset(c.Analysis.Units)
}

// Validate checks the analysis section for values the pipeline would reject.
func (c *Config) Validate() error {
	var errs []error
	a := c.Analysis
	if !(a.GridSize > 0) || math.IsInf(a.GridSize, 0) {
		errs = append(errs, fmt.Errorf("grid_size must be positive, got %v", a.GridSize))
	}
	if a.OffsetDistance < 0 || math.IsNaN(a.OffsetDistance) || math.IsInf(a.OffsetDistance, 0) {
		errs = append(errs, fmt.Errorf("offset_distance must be >= 0, got %v", a.OffsetDistance))
	}
	if a.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", a.Workers))
	}
	if err := units.Validate(a.Units); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}
