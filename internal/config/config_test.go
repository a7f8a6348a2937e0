package config

import (
	"flag"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Analysis.GridSize != 1.0 {
		t.Errorf("expected grid size 1.0, got %v", cfg.Analysis.GridSize)
	}
	if cfg.Analysis.OffsetDistance != 0 {
		t.Errorf("expected offset 0 (unit default), got %v", cfg.Analysis.OffsetDistance)
	}
	if !cfg.Analysis.Parallel {
		t.Error("expected parallel to be true by default")
	}
	if cfg.Analysis.Units != "m" {
		t.Errorf("expected units 'm', got %s", cfg.Analysis.Units)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestOffset(t *testing.T) {
	cfg := Default()
	if got := cfg.Offset(); got != 0.1 {
		t.Errorf("Offset() = %v, want 0.1", got)
	}
	cfg.Analysis.Units = "mm"
	if got := cfg.Offset(); got < 99.999 || got > 100.001 {
		t.Errorf("Offset() in mm = %v, want 100", got)
	}
	cfg.Analysis.OffsetDistance = 0.5
	if got := cfg.Offset(); got != 0.5 {
		t.Errorf("Offset() = %v, want 0.5", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero grid", func(c *Config) { c.Analysis.GridSize = 0 }},
		{"negative grid", func(c *Config) { c.Analysis.GridSize = -1 }},
		{"negative offset", func(c *Config) { c.Analysis.OffsetDistance = -0.1 }},
		{"negative workers", func(c *Config) { c.Analysis.Workers = -2 }},
		{"bad units", func(c *Config) { c.Analysis.Units = "furlong" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "insolation.yaml")

	yamlContent := `
analysis:
  grid_size: 0.5
  offset_distance: 0.2
  parallel: false
  workers: 3
  units: "cm"

input:
  geometry:
    - roof.stl
    - facade.yaml
  context:
    - city.stl
  sky_matrix: "sky.txt"

output:
  json: "out.json"
  database: "runs.db"

logging:
  level: "debug"
  log_file: "insolation.log"
  json: true
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Analysis.GridSize != 0.5 {
		t.Errorf("expected grid size 0.5, got %v", cfg.Analysis.GridSize)
	}
	if cfg.Analysis.OffsetDistance != 0.2 {
		t.Errorf("expected offset 0.2, got %v", cfg.Analysis.OffsetDistance)
	}
	if cfg.Analysis.Parallel {
		t.Error("expected parallel to be false")
	}
	if cfg.Analysis.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Analysis.Workers)
	}
	if cfg.Analysis.Units != "cm" {
		t.Errorf("expected units 'cm', got %s", cfg.Analysis.Units)
	}

	if len(cfg.Input.Geometry) != 2 || cfg.Input.Geometry[1] != "facade.yaml" {
		t.Errorf("unexpected geometry list %v", cfg.Input.Geometry)
	}
	if len(cfg.Input.Context) != 1 || cfg.Input.Context[0] != "city.stl" {
		t.Errorf("unexpected context list %v", cfg.Input.Context)
	}
	if cfg.Input.SkyMatrix != "sky.txt" {
		t.Errorf("expected sky matrix 'sky.txt', got %s", cfg.Input.SkyMatrix)
	}

	if cfg.Output.JSON != "out.json" {
		t.Errorf("expected json 'out.json', got %s", cfg.Output.JSON)
	}
	if cfg.Output.Database != "runs.db" {
		t.Errorf("expected database 'runs.db', got %s", cfg.Output.Database)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "insolation.log" {
		t.Errorf("expected log file 'insolation.log', got %s", cfg.Logging.LogFile)
	}
	if !cfg.Logging.JSON {
		t.Error("expected json logging to be true")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
analysis:
  grid_size: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/insolation.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, FileName)
	if err := os.WriteFile(configPath, []byte("analysis:\n  grid_size: 2\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find insolation.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "grid and offset flags",
			args: []string{"-grid", "0.25", "-offset", "0.05"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Analysis.GridSize != 0.25 {
					t.Errorf("expected grid 0.25, got %v", cfg.Analysis.GridSize)
				}
				if cfg.Analysis.OffsetDistance != 0.05 {
					t.Errorf("expected offset 0.05, got %v", cfg.Analysis.OffsetDistance)
				}
			},
		},
		{
			name: "serial flag",
			args: []string{"-serial", "-workers", "2"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Analysis.Parallel {
					t.Error("expected parallel to be false with serial flag")
				}
				if cfg.Analysis.Workers != 2 {
					t.Errorf("expected 2 workers, got %d", cfg.Analysis.Workers)
				}
			},
		},
		{
			name: "repeated context flag",
			args: []string{"-context", "a.stl", "-context", "b.stl"},
			verify: func(t *testing.T, cfg *Config) {
				if len(cfg.Input.Context) != 2 || cfg.Input.Context[1] != "b.stl" {
					t.Errorf("unexpected context %v", cfg.Input.Context)
				}
			},
		},
		{
			name: "output flags",
			args: []string{"-json", "r.json", "-db", "r.db", "-sky", "s.txt", "-units", "ft"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Output.JSON != "r.json" || cfg.Output.Database != "r.db" {
					t.Errorf("unexpected output %+v", cfg.Output)
				}
				if cfg.Input.SkyMatrix != "s.txt" {
					t.Errorf("expected sky 's.txt', got %s", cfg.Input.SkyMatrix)
				}
				if cfg.Analysis.Units != "ft" {
					t.Errorf("expected units 'ft', got %s", cfg.Analysis.Units)
				}
			},
		},
		{
			name: "no flags keeps defaults",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Analysis.GridSize != 1.0 || !cfg.Analysis.Parallel {
					t.Errorf("defaults changed: %+v", cfg.Analysis)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			flags := RegisterFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}

			cfg := Default()
			flags.apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "insolation.yaml")

	yamlContent := `
analysis:
  grid_size: 2.5
  workers: 6
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath, "-grid", "0.5"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Grid from flag, workers from file
	if cfg.Analysis.GridSize != 0.5 {
		t.Errorf("expected grid 0.5 from flag, got %v", cfg.Analysis.GridSize)
	}
	if cfg.Analysis.Workers != 6 {
		t.Errorf("expected 6 workers from file, got %d", cfg.Analysis.Workers)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "insolation.yaml")
	if err := os.WriteFile(configPath, []byte("analysis:\n  units: parsec\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Load(flags); err == nil {
		t.Error("expected error for unknown units, got nil")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "insolation.yaml")
	cfg := Default()
	cfg.Analysis.GridSize = 0.75
	cfg.Input.Geometry = []string{"roof.stl"}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Analysis.GridSize != 0.75 {
		t.Errorf("expected grid 0.75 after reload, got %v", loaded.Analysis.GridSize)
	}
	if len(loaded.Input.Geometry) != 1 || loaded.Input.Geometry[0] != "roof.stl" {
		t.Errorf("unexpected geometry after reload %v", loaded.Input.Geometry)
	}
}

func TestSaveToUserConfigDir(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("config dir is not redirected by XDG_CONFIG_HOME on this platform")
	}
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	cfg := Default()
	cfg.Analysis.GridSize = 2.5
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	want := filepath.Join(tmpDir, "xdg", "insolation", FileName)
	if path := findConfigFile(); path != want {
		t.Fatalf("findConfigFile() = %q, want %q", path, want)
	}
	loaded, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Analysis.GridSize != 2.5 {
		t.Errorf("expected grid 2.5 from saved config, got %v", loaded.Analysis.GridSize)
	}
}
