// Package visibility casts one ray per sky patch from every sample point
// against the occluder mesh and records visibility and incidence angles.
package visibility

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/insolation/internal/logger"
	"github.com/Faultbox/insolation/internal/sampler"
	"github.com/Faultbox/insolation/internal/skydome"
	"github.com/Faultbox/insolation/pkg/geom"
)

// Matrices holds the per (point, patch) ray results. Both are shaped
// [points][patches] and aligned with the input order.
type Matrices struct {
	Visible [][]bool
	Angles  [][]float64 // radians between patch direction and point normal
}

// KernelFunc builds an Intersector over the occluder triangles.
type KernelFunc func(tris []geom.Triangle) (Intersector, error)

// Options control how rays are cast.
type Options struct {
	Parallel bool
	Workers  int        // goroutines when Parallel; 0 means runtime.NumCPU()
	Kernel   KernelFunc // nil means NewBVH
}

// Engine casts sky rays. It holds no per-run state and may be reused.
type Engine struct {
	opts Options
	log  *zap.Logger
}

// NewEngine creates an engine. A nil log uses the package logger.
func NewEngine(opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = logger.Log
	}
	if opts.Kernel == nil {
		opts.Kernel = func(tris []geom.Triangle) (Intersector, error) {
			return NewBVH(tris)
		}
	}
	return &Engine{opts: opts, log: log}
}

func (e *Engine) workers() int {
	if !e.opts.Parallel {
		return 1
	}
	if e.opts.Workers > 0 {
		return e.opts.Workers
	}
	return max(runtime.NumCPU(), 1)
}

// Cast tests every (point, vector) pair, including patches behind the
// surface. Work is split by point; each point's rows are written by exactly
// one goroutine, so parallel and sequential runs produce identical results.
// The context is checked between points.
func (e *Engine) Cast(ctx context.Context, occluder *sampler.OccluderMesh, points []sampler.SamplePoint, vecs []skydome.SkyVector) (*Matrices, error) {
	var tris []geom.Triangle
	if occluder != nil {
		tris = occluder.Triangles
	}
	kernel, err := e.opts.Kernel(tris)
	if err != nil {
		return nil, err
	}

	m := &Matrices{
		Visible: make([][]bool, len(points)),
		Angles:  make([][]float64, len(points)),
	}
	for i := range points {
		m.Visible[i] = make([]bool, len(vecs))
		m.Angles[i] = make([]float64, len(vecs))
	}

	start := time.Now()
	workers := e.workers()
	e.log.Debug("casting sky rays",
		zap.Int("points", len(points)),
		zap.Int("patches", len(vecs)),
		zap.Int("occluders", len(tris)),
		zap.Int("workers", workers))

	if workers == 1 {
		for i := range points {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := castPoint(kernel, points[i], vecs, m.Visible[i], m.Angles[i]); err != nil {
				return nil, fmt.Errorf("point %d: %w", i, err)
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := range points {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := castPoint(kernel, points[i], vecs, m.Visible[i], m.Angles[i]); err != nil {
					return fmt.Errorf("point %d: %w", i, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	e.log.Debug("sky rays cast", zap.Duration("elapsed", time.Since(start)))
	return m, nil
}

// castPoint fills one row of both matrices.
func castPoint(k Intersector, p sampler.SamplePoint, vecs []skydome.SkyVector, visible []bool, angles []float64) error {
	for j, v := range vecs {
		blocked, err := k.Occluded(NewRay(p.Position, v.Direction))
		if err != nil {
			return err
		}
		visible[j] = !blocked
		angles[j] = IncidenceAngle(v.Direction, p.Normal)
	}
	return nil
}

// IncidenceAngle returns the angle in radians between a sky direction and a
// surface normal, both unit length.
func IncidenceAngle(dir, normal geom.Vec3) float64 {
	c := dir.Dot(normal)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}
