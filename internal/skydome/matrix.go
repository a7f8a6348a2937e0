package skydome

import (
	"fmt"
	"math"
)

// SkyMatrix is the cumulative radiance of every sky patch for one analysis.
// Direct and Diffuse are aligned with the SkyVector index of Resolution.
type SkyMatrix struct {
	North      float64 // degrees, counter-clockwise from +Y
	Direct     []float64
	Diffuse    []float64
	Resolution Resolution
}

// NewSkyMatrix validates the radiance sequences and infers the resolution
// from their length.
func NewSkyMatrix(north float64, direct, diffuse []float64) (*SkyMatrix, error) {
	if len(direct) != len(diffuse) {
		return nil, fmt.Errorf("%w: %d direct values but %d diffuse values",
			ErrSkyMatrixMismatch, len(direct), len(diffuse))
	}
	res, err := ResolutionFor(len(direct))
	if err != nil {
		return nil, err
	}
	if math.IsNaN(north) || math.IsInf(north, 0) {
		return nil, fmt.Errorf("%w: north angle %v", ErrSkyMatrixMismatch, north)
	}
	return &SkyMatrix{
		North:      north,
		Direct:     direct,
		Diffuse:    diffuse,
		Resolution: res,
	}, nil
}

// PatchCount returns the number of patches.
func (m *SkyMatrix) PatchCount() int {
	return len(m.Direct)
}

// NorthRadians returns the north angle in radians.
func (m *SkyMatrix) NorthRadians() float64 {
	return m.North * math.Pi / 180
}

// Total returns direct + diffuse radiance for every patch.
func (m *SkyMatrix) Total() []float64 {
	out := make([]float64, len(m.Direct))
	for i := range m.Direct {
		out[i] = m.Direct[i] + m.Diffuse[i]
	}
	return out
}

// Vectors returns the dome vectors for this matrix, rotated to its north.
func (m *SkyMatrix) Vectors() ([]SkyVector, error) {
	return Vectors(m.Resolution, m.NorthRadians())
}

// Scaled returns a copy with every radiance value multiplied by f.
func (m *SkyMatrix) Scaled(f float64) *SkyMatrix {
	out := &SkyMatrix{
		North:      m.North,
		Direct:     make([]float64, len(m.Direct)),
		Diffuse:    make([]float64, len(m.Diffuse)),
		Resolution: m.Resolution,
	}
	for i := range m.Direct {
		out.Direct[i] = m.Direct[i] * f
		out.Diffuse[i] = m.Diffuse[i] * f
	}
	return out
}

// Uniform returns a matrix with the same diffuse radiance on every patch.
func Uniform(r Resolution, radiance float64) *SkyMatrix {
	n := r.PatchCount()
	m := &SkyMatrix{
		Direct:     make([]float64, n),
		Diffuse:    make([]float64, n),
		Resolution: r,
	}
	for i := range m.Diffuse {
		m.Diffuse[i] = radiance
	}
	return m
}
