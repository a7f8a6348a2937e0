// Package radiation runs the full cumulative irradiance pipeline: sample the
// analysed geometry, cast one ray per sky patch from every sample point and
// weight the unobstructed patches by their radiance.
package radiation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Faultbox/insolation/internal/irradiance"
	"github.com/Faultbox/insolation/internal/logger"
	"github.com/Faultbox/insolation/internal/sampler"
	"github.com/Faultbox/insolation/internal/skydome"
	"github.com/Faultbox/insolation/internal/units"
	"github.com/Faultbox/insolation/internal/visibility"
	"github.com/Faultbox/insolation/pkg/geom"
)

// Pipeline errors. All are detected before any ray is cast except
// ErrIntersectionEngine.
var (
	ErrInvalidGeometry    = sampler.ErrInvalidGeometry
	ErrEmptyInput         = sampler.ErrEmptyInput
	ErrSkyMatrixMismatch  = skydome.ErrSkyMatrixMismatch
	ErrIntersectionEngine = visibility.ErrIntersectionEngine
)

// Request describes one analysis.
type Request struct {
	Geometry       []geom.Geometry // surfaces to analyse; they also occlude
	Context        []geom.Geometry // occluders only
	GridSize       float64
	OffsetDistance float64 // 0 selects 0.1 m in model units
	SkyMatrix      *skydome.SkyMatrix
	Parallel       bool
	Units          string // model length unit, "" means meters
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWorkers bounds the number of ray casting goroutines for parallel runs.
func WithWorkers(n int) Option {
	return func(a *Analyzer) { a.workers = n }
}

// WithLogger sets the logger used for stage timings.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// WithKernel replaces the ray intersection kernel.
func WithKernel(k visibility.KernelFunc) Option {
	return func(a *Analyzer) { a.kernel = k }
}

// Analyzer wires sampling, ray casting and accumulation. It holds no
// per-run state; one Analyzer may serve concurrent Run calls.
type Analyzer struct {
	workers int
	log     *zap.Logger
	kernel  visibility.KernelFunc
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{log: logger.Log}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	return a
}

// Run executes the analysis. On error no partial result is returned.
func (a *Analyzer) Run(ctx context.Context, req Request) (*ResultSet, error) {
	start := time.Now()

	sky, unit, err := validate(req)
	if err != nil {
		return nil, err
	}

	offset := req.OffsetDistance
	if offset == 0 {
		offset = units.DefaultOffset(unit)
	}

	vecs, err := sky.Vectors()
	if err != nil {
		return nil, err
	}

	study, err := sampler.Sample(req.Geometry, req.Context, req.GridSize, offset)
	if err != nil {
		return nil, err
	}
	a.log.Debug("sampled geometry",
		zap.String("points", humanize.Comma(int64(len(study.Points)))),
		zap.String("occluder_triangles", humanize.Comma(int64(study.Occluder.Len()))),
		zap.Float64("offset", offset))

	engine := visibility.NewEngine(visibility.Options{
		Parallel: req.Parallel,
		Workers:  a.workers,
		Kernel:   a.kernel,
	}, a.log)
	m, err := engine.Cast(ctx, study.Occluder, study.Points, vecs)
	if err != nil {
		return nil, err
	}

	acc, err := irradiance.Accumulate(irradiance.Input{
		Visible:    m.Visible,
		Angles:     m.Angles,
		Radiance:   irradiance.PatchRadiance(sky),
		Areas:      study.Areas(),
		Conversion: units.AreaFactor(unit),
		Resolution: sky.Resolution,
	})
	if err != nil {
		return nil, err
	}

	rs := Assemble(study.Points, acc.Results, acc.Total, acc.Matrix)
	rs.Mesh = study.Mesh
	rs.GridSize = req.GridSize
	rs.Offset = offset
	rs.Units = unit
	rs.North = sky.North
	rs.Elapsed = time.Since(start)

	a.log.Info("irradiance analysis complete",
		zap.String("resolution", sky.Resolution.String()),
		zap.String("points", humanize.Comma(int64(len(rs.Points)))),
		zap.String("rays", humanize.Comma(int64(rs.RayCount()))),
		zap.Float64("total", rs.Total),
		zap.Duration("elapsed", rs.Elapsed))
	return rs, nil
}

// validate checks everything that does not need the geometry discretised and
// returns a revalidated copy of the sky matrix.
func validate(req Request) (*skydome.SkyMatrix, string, error) {
	if req.SkyMatrix == nil {
		return nil, "", fmt.Errorf("%w: no sky matrix", ErrSkyMatrixMismatch)
	}
	sky, err := skydome.NewSkyMatrix(req.SkyMatrix.North, req.SkyMatrix.Direct, req.SkyMatrix.Diffuse)
	if err != nil {
		return nil, "", err
	}

	unit := req.Units
	if unit == "" {
		unit = units.Meters
	}
	if err := units.Validate(unit); err != nil {
		return nil, "", err
	}

	if len(req.Geometry) == 0 {
		return nil, "", fmt.Errorf("%w: no geometry", ErrEmptyInput)
	}
	if req.OffsetDistance < 0 {
		return nil, "", fmt.Errorf("%w: offset distance must not be negative, got %v",
			ErrInvalidGeometry, req.OffsetDistance)
	}
	return sky, unit, nil
}

// IsInputError reports whether err was caused by the request rather than a
// fault while casting rays.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidGeometry) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrSkyMatrixMismatch)
}
