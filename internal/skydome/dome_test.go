package skydome

import (
	"errors"
	"math"
	"testing"
)

func TestPatchCounts(t *testing.T) {
	if got := Tregenza.PatchCount(); got != 145 {
		t.Errorf("Tregenza.PatchCount() = %d, want 145", got)
	}
	if got := Reinhart.PatchCount(); got != 577 {
		t.Errorf("Reinhart.PatchCount() = %d, want 577", got)
	}
}

func TestResolutionFor(t *testing.T) {
	tests := []struct {
		patches int
		want    Resolution
		wantErr bool
	}{
		{145, Tregenza, false},
		{577, Reinhart, false},
		{100, 0, true},
		{0, 0, true},
		{146, 0, true},
	}
	for _, tt := range tests {
		got, err := ResolutionFor(tt.patches)
		if tt.wantErr {
			if !errors.Is(err, ErrSkyMatrixMismatch) {
				t.Errorf("ResolutionFor(%d) error = %v, want ErrSkyMatrixMismatch", tt.patches, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ResolutionFor(%d) = %v, %v, want %v", tt.patches, got, err, tt.want)
		}
	}
}

func TestVectorsAreUnitAndAboveHorizon(t *testing.T) {
	for _, r := range []Resolution{Tregenza, Reinhart} {
		vecs, err := Vectors(r, 0)
		if err != nil {
			t.Fatalf("Vectors(%v) failed: %v", r, err)
		}
		if len(vecs) != r.PatchCount() {
			t.Fatalf("Vectors(%v) returned %d, want %d", r, len(vecs), r.PatchCount())
		}
		for i, v := range vecs {
			if v.Index != i {
				t.Errorf("%v patch %d has index %d", r, i, v.Index)
			}
			if l := v.Direction.Length(); math.Abs(l-1) > 1e-12 {
				t.Errorf("%v patch %d length %v", r, i, l)
			}
			if v.Direction.Z <= 0 {
				t.Errorf("%v patch %d below horizon: %v", r, i, v.Direction)
			}
		}
		last := vecs[len(vecs)-1].Direction
		if last.X != 0 || last.Y != 0 || last.Z != 1 {
			t.Errorf("%v zenith patch = %v, want +Z", r, last)
		}
	}
}

func TestFirstPatchFacesNorthThenEast(t *testing.T) {
	vecs, _ := Vectors(Tregenza, 0)
	first := vecs[0].Direction
	if math.Abs(first.X) > 1e-12 || first.Y <= 0 {
		t.Errorf("patch 0 = %v, want centred on +Y", first)
	}
	if vecs[1].Direction.X <= 0 {
		t.Errorf("patch 1 = %v, want east of north", vecs[1].Direction)
	}
	alt := math.Asin(first.Z) * 180 / math.Pi
	if math.Abs(alt-6) > 1e-9 {
		t.Errorf("first row altitude = %v, want 6 degrees", alt)
	}
}

func TestSolidAnglesCoverHemisphere(t *testing.T) {
	for _, r := range []Resolution{Tregenza, Reinhart} {
		vecs, _ := Vectors(r, 0)
		var sum float64
		for _, v := range vecs {
			if v.SolidAngle <= 0 {
				t.Fatalf("%v patch %d has solid angle %v", r, v.Index, v.SolidAngle)
			}
			sum += v.SolidAngle
		}
		if math.Abs(sum-2*math.Pi) > 1e-9 {
			t.Errorf("%v solid angles sum to %v, want 2*pi", r, sum)
		}
	}
}

func TestZeroRotationIsIdentity(t *testing.T) {
	base := build(Reinhart)
	vecs, err := Vectors(Reinhart, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range base {
		if base[i] != vecs[i] {
			t.Fatalf("patch %d changed under zero rotation: %v != %v", i, vecs[i], base[i])
		}
	}
}

func TestRotationPreservesAltitudeAndLength(t *testing.T) {
	base, _ := Vectors(Tregenza, 0)
	rotated, _ := Vectors(Tregenza, math.Pi/2)
	for i := range base {
		b, r := base[i].Direction, rotated[i].Direction
		if b.Z != r.Z {
			t.Errorf("patch %d altitude changed: %v -> %v", i, b.Z, r.Z)
		}
		if math.Abs(b.Length()-r.Length()) > 1e-12 {
			t.Errorf("patch %d length changed", i)
		}
	}
	// north (+Y) rotated a quarter turn counter-clockwise points west (-X)
	if d := rotated[0].Direction; d.X >= 0 || math.Abs(d.Y) > 1e-9 {
		t.Errorf("rotated patch 0 = %v, want toward -X", d)
	}
}

func TestVectorsReturnsCopy(t *testing.T) {
	a, _ := Vectors(Tregenza, 0)
	a[0].Direction.X = 42
	b, _ := Vectors(Tregenza, 0)
	if b[0].Direction.X == 42 {
		t.Error("Vectors() exposed the cached dome")
	}
}

func TestDirectionDegrees(t *testing.T) {
	d := DirectionDegrees(0, 90)
	if math.Abs(d.X-1) > 1e-12 || math.Abs(d.Y) > 1e-12 || math.Abs(d.Z) > 1e-12 {
		t.Errorf("DirectionDegrees(0, 90) = %v, want +X", d)
	}
}
