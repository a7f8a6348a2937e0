package visibility

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Faultbox/insolation/pkg/geom"
)

// ErrIntersectionEngine is returned when the ray kernel cannot answer a query
// reliably. It is never converted into a miss.
var ErrIntersectionEngine = errors.New("intersection engine failure")

// bvhMaxLeafSize is the triangle count at which nodes stop splitting.
const bvhMaxLeafSize = 4

// Intersector answers occlusion queries against a fixed set of blockers.
// Implementations must be safe for concurrent use.
type Intersector interface {
	// Occluded reports whether anything blocks the ray before it escapes.
	Occluded(r Ray) (bool, error)
}

type bvhNode struct {
	bounds geom.AABB
	left   *bvhNode
	right  *bvhNode
	tris   []geom.Triangle // non-nil => leaf
}

// BVH is a bounding volume hierarchy over triangles, split at the centroid
// median of the widest axis. It is read-only after construction.
type BVH struct {
	root  *bvhNode
	count int
}

// NewBVH builds a hierarchy over tris. The slice is copied. An empty slice
// yields a BVH that never occludes.
func NewBVH(tris []geom.Triangle) (*BVH, error) {
	for i, t := range tris {
		if !t.IsFinite() {
			return nil, fmt.Errorf("%w: triangle %d has non-finite vertices", ErrIntersectionEngine, i)
		}
	}
	b := &BVH{count: len(tris)}
	if len(tris) > 0 {
		b.root = buildBVH(append([]geom.Triangle(nil), tris...))
	}
	return b, nil
}

// Len returns the number of triangles.
func (b *BVH) Len() int {
	return b.count
}

func buildBVH(tris []geom.Triangle) *bvhNode {
	bounds := geom.EmptyAABB()
	centroids := geom.EmptyAABB()
	for _, t := range tris {
		bounds = bounds.Union(t.Bounds())
		centroids = centroids.Extend(t.Centroid())
	}
	if len(tris) <= bvhMaxLeafSize {
		return &bvhNode{bounds: bounds, tris: tris}
	}

	axis := centroids.LongestAxis()
	// all centroids coincide: fall back to the longest box extent axis
	if centroids.Size().Axis(axis) <= 1e-18 {
		axis = bounds.LongestAxis()
	}

	sort.SliceStable(tris, func(i, j int) bool {
		return tris[i].Centroid().Axis(axis) < tris[j].Centroid().Axis(axis)
	})
	mid := len(tris) / 2
	return &bvhNode{
		bounds: bounds,
		left:   buildBVH(tris[:mid]),
		right:  buildBVH(tris[mid:]),
	}
}

// Occluded reports whether any triangle intersects the ray at t > 0. It stops
// at the first hit.
func (b *BVH) Occluded(r Ray) (bool, error) {
	if !r.IsFinite() {
		return false, fmt.Errorf("%w: non-finite ray origin %v direction %v", ErrIntersectionEngine, r.Origin, r.Direction)
	}
	if b == nil || b.root == nil {
		return false, nil
	}

	stack := make([]*bvhNode, 0, 64)
	stack = append(stack, b.root)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := r.IntersectAABB(n.bounds); !ok {
			continue
		}
		if n.tris != nil {
			for _, t := range n.tris {
				if _, hit := r.IntersectTriangle(t); hit {
					return true, nil
				}
			}
			continue
		}
		if n.right != nil {
			stack = append(stack, n.right)
		}
		if n.left != nil {
			stack = append(stack, n.left)
		}
	}
	return false, nil
}
