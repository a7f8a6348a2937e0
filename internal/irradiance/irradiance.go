// Package irradiance combines ray visibility and incidence angles with sky
// patch radiance into per-point and total irradiance.
//
// Per-point results are areal (radiance units per unit area, kWh/m2 for a
// kWh/m2 sky matrix). The total is absolute energy: every point is weighted
// by its area and the area conversion factor. The two must not be compared
// directly.
package irradiance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Faultbox/insolation/internal/skydome"
)

// ErrShapeMismatch is returned when input matrices and vectors do not align.
var ErrShapeMismatch = errors.New("irradiance inputs do not align")

// IntersectionMatrix holds the view factor contribution of every sky patch
// to every point, [point][patch], each in [0, 1].
type IntersectionMatrix struct {
	Resolution skydome.Resolution
	Values     [][]float64
}

// Points returns the number of rows.
func (m *IntersectionMatrix) Points() int {
	return len(m.Values)
}

// Patches returns the number of columns.
func (m *IntersectionMatrix) Patches() int {
	if len(m.Values) == 0 {
		return 0
	}
	return len(m.Values[0])
}

// Input is everything the accumulator needs. Visible and Angles are
// [point][patch]; Radiance is per patch (direct + diffuse); Areas per point.
type Input struct {
	Visible    [][]bool
	Angles     [][]float64
	Radiance   []float64
	Areas      []float64
	Conversion float64 // model area units to m2
	Resolution skydome.Resolution
}

// Result is the accumulator output.
type Result struct {
	Matrix  *IntersectionMatrix
	Results []float64 // per point, areal
	Total   float64   // absolute
}

// Contribution returns the view factor of one ray: cos(angle) when visible,
// zero when blocked, clamped to [0, 1] so back-facing patches add nothing.
func Contribution(visible bool, angle float64) float64 {
	if !visible {
		return 0
	}
	c := math.Cos(angle)
	if c <= 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// PatchRadiance returns direct + diffuse for every patch.
func PatchRadiance(sky *skydome.SkyMatrix) []float64 {
	return sky.Total()
}

// Accumulate builds the intersection matrix and the per-point and total
// irradiance.
func Accumulate(in Input) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	res := &Result{
		Matrix: &IntersectionMatrix{
			Resolution: in.Resolution,
			Values:     make([][]float64, len(in.Visible)),
		},
		Results: make([]float64, len(in.Visible)),
	}
	for i := range in.Visible {
		row := make([]float64, len(in.Radiance))
		for j := range row {
			row[j] = Contribution(in.Visible[i][j], in.Angles[i][j])
		}
		res.Matrix.Values[i] = row
		res.Results[i] = floats.Dot(row, in.Radiance)
	}
	res.Total = Total(res.Results, in.Areas, in.Conversion)
	return res, nil
}

// Total returns the sum of result * area * conversion over all points.
func Total(results, areas []float64, conversion float64) float64 {
	weighted := make([]float64, len(results))
	floats.MulTo(weighted, results, areas)
	return floats.Sum(weighted) * conversion
}

func (in Input) validate() error {
	n := len(in.Visible)
	if len(in.Angles) != n || len(in.Areas) != n {
		return fmt.Errorf("%w: %d visibility rows, %d angle rows, %d areas",
			ErrShapeMismatch, n, len(in.Angles), len(in.Areas))
	}
	for i := range in.Visible {
		if len(in.Visible[i]) != len(in.Radiance) || len(in.Angles[i]) != len(in.Radiance) {
			return fmt.Errorf("%w: row %d has %d/%d values for %d patches",
				ErrShapeMismatch, i, len(in.Visible[i]), len(in.Angles[i]), len(in.Radiance))
		}
	}
	if !(in.Conversion > 0) {
		return fmt.Errorf("conversion factor must be positive, got %v", in.Conversion)
	}
	return nil
}
