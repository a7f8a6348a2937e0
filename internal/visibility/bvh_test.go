package visibility

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/Faultbox/insolation/internal/skydome"
	"github.com/Faultbox/insolation/pkg/geom"
)

// bruteForce tests every triangle; the reference for the BVH.
type bruteForce []geom.Triangle

func (b bruteForce) Occluded(r Ray) (bool, error) {
	for _, t := range b {
		if _, hit := r.IntersectTriangle(t); hit {
			return true, nil
		}
	}
	return false, nil
}

func randomTriangles(n int, seed uint64) []geom.Triangle {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pt := func() geom.Vec3 {
		return geom.Vec3{X: rng.Float64()*20 - 10, Y: rng.Float64()*20 - 10, Z: rng.Float64() * 10}
	}
	tris := make([]geom.Triangle, n)
	for i := range tris {
		base := pt()
		tris[i] = geom.Triangle{
			A: base,
			B: base.Add(geom.Vec3{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1}),
			C: base.Add(geom.Vec3{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1}),
		}
	}
	return tris
}

func TestBVHMatchesBruteForce(t *testing.T) {
	tris := randomTriangles(300, 7)
	bvh, err := NewBVH(tris)
	if err != nil {
		t.Fatalf("NewBVH failed: %v", err)
	}
	if bvh.Len() != 300 {
		t.Errorf("Len() = %d, want 300", bvh.Len())
	}
	ref := bruteForce(tris)
	vecs, _ := skydome.Vectors(skydome.Tregenza, 0)

	origins := []geom.Vec3{{}, {X: 3, Y: -2, Z: 1}, {X: -8, Y: 8, Z: 0.5}, {X: 0, Y: 0, Z: 5}}
	mismatches := 0
	for _, o := range origins {
		for _, v := range vecs {
			r := NewRay(o, v.Direction)
			got, err := bvh.Occluded(r)
			if err != nil {
				t.Fatalf("Occluded failed: %v", err)
			}
			want, _ := ref.Occluded(r)
			if got != want {
				mismatches++
			}
		}
	}
	if mismatches != 0 {
		t.Errorf("BVH disagreed with brute force on %d rays", mismatches)
	}
}

func TestBVHEmpty(t *testing.T) {
	bvh, err := NewBVH(nil)
	if err != nil {
		t.Fatalf("NewBVH failed: %v", err)
	}
	hit, err := bvh.Occluded(NewRay(geom.Vec3{}, up))
	if err != nil || hit {
		t.Errorf("empty BVH Occluded() = %v, %v, want false, nil", hit, err)
	}
}

func TestBVHRejectsNonFinite(t *testing.T) {
	tris := []geom.Triangle{{A: geom.Vec3{X: math.NaN()}, B: geom.Vec3{X: 1}, C: geom.Vec3{Y: 1}}}
	if _, err := NewBVH(tris); !errors.Is(err, ErrIntersectionEngine) {
		t.Errorf("NewBVH() error = %v, want ErrIntersectionEngine", err)
	}
}

func TestBVHNonFiniteRay(t *testing.T) {
	bvh, _ := NewBVH(randomTriangles(10, 1))
	_, err := bvh.Occluded(NewRay(geom.Vec3{X: math.Inf(1)}, up))
	if !errors.Is(err, ErrIntersectionEngine) {
		t.Errorf("Occluded() error = %v, want ErrIntersectionEngine", err)
	}
}
