package config

import (
	"flag"
	"strings"
)

// pathList is a repeatable flag collecting file paths.
type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

// Flags holds the command-line overrides registered on a FlagSet.
type Flags struct {
	config   *string
	debug    *bool
	grid     *float64
	offset   *float64
	serial   *bool
	workers  *int
	units    *string
	sky      *string
	json     *string
	database *string
	logFile  *string
	context  pathList
}

// RegisterFlags adds the analysis flags to fs. Call fs.Parse before Load.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{
		config:   fs.String("config", "", "Path to config file"),
		debug:    fs.Bool("debug", false, "Enable debug logging"),
		grid:     fs.Float64("grid", 0, "Grid size for surface discretization"),
		offset:   fs.Float64("offset", 0, "Sample point offset distance"),
		serial:   fs.Bool("serial", false, "Disable parallel ray casting"),
		workers:  fs.Int("workers", 0, "Number of ray casting workers"),
		units:    fs.String("units", "", "Model length units (m, mm, cm, ft, in)"),
		sky:      fs.String("sky", "", "Sky matrix file"),
		json:     fs.String("json", "", "Write results as JSON to this path"),
		database: fs.String("db", "", "Store results in this SQLite database"),
		logFile:  fs.String("log", "", "Log file path"),
	}
	fs.Var(&f.context, "context", "Context geometry file (repeatable)")
	return f
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	return *f.config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.grid > 0 {
		cfg.Analysis.GridSize = *f.grid
	}
	if *f.offset > 0 {
		cfg.Analysis.OffsetDistance = *f.offset
	}
	if *f.serial {
		cfg.Analysis.Parallel = false
	}
	if *f.workers > 0 {
		cfg.Analysis.Workers = *f.workers
	}
	if *f.units != "" {
		cfg.Analysis.Units = *f.units
	}
	if *f.sky != "" {
		cfg.Input.SkyMatrix = *f.sky
	}
	if len(f.context) > 0 {
		cfg.Input.Context = append([]string(nil), f.context...)
	}
	if *f.json != "" {
		cfg.Output.JSON = *f.json
	}
	if *f.database != "" {
		cfg.Output.Database = *f.database
	}
	if *f.logFile != "" {
		cfg.Logging.LogFile = *f.logFile
	}
}
