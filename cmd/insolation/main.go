// insolation computes cumulative solar irradiance on 3D surfaces from a sky
// matrix.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Faultbox/insolation/internal/config"
	"github.com/Faultbox/insolation/internal/logger"
	"github.com/Faultbox/insolation/internal/radiation"
	"github.com/Faultbox/insolation/internal/skydome"
	"github.com/Faultbox/insolation/internal/store"
	"github.com/Faultbox/insolation/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "run":
		err = cmdRun(args)
	case "dome":
		err = cmdDome(args)
	case "info":
		err = cmdInfo(args)
	case "runs":
		err = cmdRuns(args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`insolation - cumulative solar irradiance on 3D geometry

Usage:
  insolation <command> [options]

Commands:
  run [flags] [geometry...]   Run an analysis (.stl meshes or .yaml surfaces)
  dome <145|577> [north]      Print sky patch vectors
  info <file.stl>             Show mesh statistics
  runs <file.db>              List stored runs
  config [-force] [file]      Write a default config (user config dir if no file)

Run flags:
  -config <file>    Config file (default ./insolation.yaml)
  -sky <file>       Sky matrix (.txt or .yaml)
  -context <file>   Context geometry, repeatable
  -grid <size>      Grid size in model units
  -offset <dist>    Sample offset in model units
  -units <unit>     Model units: m, mm, cm, ft, in
  -serial           Cast rays on one goroutine
  -json <file>      Write results as JSON
  -matrix           Include the intersection matrix in JSON output
  -db <file>        Store the run in a SQLite database

Examples:
  insolation run -sky sky.txt -context city.stl roof.stl
  insolation dome 145 30
  insolation runs results.db`)
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	withMatrix := fs.Bool("matrix", false, "Include the intersection matrix in JSON output")
	label := fs.String("label", "", "Label stored with the run")
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if fs.NArg() > 0 {
		cfg.Input.Geometry = fs.Args()
	}

	if err := logger.InitWithFileConfig(cfg.Logging.Level, logFileConfig(cfg), true); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	logger.Debug("config loaded",
		zap.Float64("grid", cfg.Analysis.GridSize),
		zap.Float64("offset", cfg.Offset()),
		zap.String("units", cfg.Analysis.Units),
		zap.Bool("parallel", cfg.Analysis.Parallel),
		zap.Int("workers", cfg.Analysis.Workers))

	if cfg.Input.SkyMatrix == "" {
		return fmt.Errorf("no sky matrix given (use -sky or input.sky_matrix)")
	}
	if len(cfg.Input.Geometry) == 0 {
		return fmt.Errorf("no geometry given")
	}

	sky, err := formats.ParseSkyMatrixFile(cfg.Input.SkyMatrix)
	if err != nil {
		return err
	}
	geometry, err := formats.LoadGeometries(cfg.Input.Geometry)
	if err != nil {
		return err
	}
	contextGeom, err := formats.LoadGeometries(cfg.Input.Context)
	if err != nil {
		return err
	}
	logger.Info("inputs loaded",
		zap.Int("geometry", len(geometry)),
		zap.Int("context", len(contextGeom)),
		zap.Stringer("resolution", sky.Resolution))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer := radiation.New(
		radiation.WithWorkers(cfg.Analysis.Workers),
		radiation.WithLogger(logger.Named("radiation")),
	)
	rs, err := analyzer.Run(ctx, radiation.Request{
		Geometry:       geometry,
		Context:        contextGeom,
		GridSize:       cfg.Analysis.GridSize,
		OffsetDistance: cfg.Analysis.OffsetDistance,
		SkyMatrix:      sky,
		Parallel:       cfg.Analysis.Parallel,
		Units:          cfg.Analysis.Units,
	})
	if err != nil {
		logger.Error("analysis failed", zap.Error(err))
		return err
	}

	if cfg.Output.JSON != "" {
		if err := rs.WriteJSONFile(cfg.Output.JSON, *withMatrix); err != nil {
			return err
		}
		logger.Info("results written", zap.String("path", cfg.Output.JSON))
	}
	if cfg.Output.Database != "" {
		db, err := store.Open(cfg.Output.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		id, err := db.SaveRun(ctx, rs, store.Meta{Label: *label})
		if err != nil {
			return err
		}
		logger.Info("run stored", zap.String("id", id), zap.String("db", cfg.Output.Database))
	}

	printSummary(rs)
	return nil
}

func logFileConfig(cfg *config.Config) logger.FileConfig {
	if cfg.Logging.LogFile == "" {
		return logger.FileConfig{}
	}
	fc := logger.DefaultFileConfig(cfg.Logging.LogFile)
	fc.JSON = cfg.Logging.JSON
	return fc
}

func printSummary(rs *radiation.ResultSet) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range rs.Results {
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	fmt.Printf("Sky:     %s (%d patches)\n", rs.Resolution, rs.PatchCount())
	fmt.Printf("Points:  %s\n", humanize.Comma(int64(len(rs.Points))))
	fmt.Printf("Rays:    %s\n", humanize.Comma(int64(rs.RayCount())))
	fmt.Printf("Min/Max: %.4g / %.4g per m2\n", lo, hi)
	fmt.Printf("Total:   %s\n", humanize.FormatFloat("#,###.##", rs.Total))
	fmt.Printf("Elapsed: %s\n", rs.Elapsed)
}

func cmdDome(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: insolation dome <145|577> [north]")
		os.Exit(1)
	}
	patches, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("patch count: %w", err)
	}
	res, err := skydome.ResolutionFor(patches)
	if err != nil {
		return err
	}
	north := 0.0
	if len(args) > 1 {
		if north, err = strconv.ParseFloat(args[1], 64); err != nil {
			return fmt.Errorf("north angle: %w", err)
		}
	}

	vecs, err := skydome.Vectors(res, north*math.Pi/180)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATCH\tROW\tX\tY\tZ\tSOLID ANGLE")
	for _, v := range vecs {
		fmt.Fprintf(w, "%d\t%d\t%.6f\t%.6f\t%.6f\t%.6f\n",
			v.Index, v.Row, v.Direction.X, v.Direction.Y, v.Direction.Z, v.SolidAngle)
	}
	return w.Flush()
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: insolation info <file.stl>")
		os.Exit(1)
	}

	if err := logger.Init("info", ""); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	stl, err := formats.ParseSTLFile(args[0])
	if err != nil {
		return err
	}
	m := stl.Mesh
	b := m.Bounds()
	kind := "ASCII"
	if stl.Binary {
		kind = "binary"
	}

	fmt.Printf("File:      %s (%s)\n", args[0], kind)
	if stl.Name != "" {
		fmt.Printf("Name:      %s\n", stl.Name)
	}
	fmt.Printf("Triangles: %s\n", humanize.Comma(int64(len(m.Faces))))
	fmt.Printf("Vertices:  %s\n", humanize.Comma(int64(len(m.Vertices))))
	fmt.Printf("Area:      %.4f\n", m.Area())
	fmt.Printf("Bounds:    (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	if f := m.DegenerateFace(); f >= 0 {
		logger.Warn("degenerate face", zap.String("file", args[0]), zap.Int("face", f))
	}
	return nil
}

func cmdRuns(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: insolation runs <file.db>")
		os.Exit(1)
	}
	if _, err := os.Stat(args[0]); err != nil {
		return err
	}

	db, err := store.Open(args[0])
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(context.Background())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tLABEL\tSKY\tPOINTS\tTOTAL")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\n",
			r.ID, humanize.Time(r.CreatedAt), r.Label, r.Resolution,
			humanize.Comma(int64(r.PointCount)), r.Total)
	}
	return w.Flush()
}

func cmdConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	fs.Parse(args)

	cfg := config.Default()
	path := filepath.Join(config.ConfigDir(), config.FileName)
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", path)
	}

	var err error
	if fs.NArg() > 0 {
		err = cfg.SaveTo(path)
	} else {
		err = cfg.Save()
	}
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
