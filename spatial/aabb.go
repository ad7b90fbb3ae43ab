// Package spatial implements the octree and kd-tree spatial indices used to
// accelerate nearest/kNN/radius/AABB/sphere/ray queries over a static set of
// element bounding boxes.
package spatial

import "github.com/go-gl/mathgl/mgl32"

// AABB is an axis-aligned bounding box. The zero value is degenerate
// (Min == Max == origin); callers build real boxes via NewAABB or Union.
type AABB struct {
	Min, Max mgl32.Vec3
}

// NewAABB returns the box bounding the two given corners (order-independent).
func NewAABB(a, b mgl32.Vec3) AABB {
	return AABB{
		Min: mgl32.Vec3{min32(a[0], b[0]), min32(a[1], b[1]), min32(a[2], b[2])},
		Max: mgl32.Vec3{max32(a[0], b[0]), max32(a[1], b[1]), max32(a[2], b[2])},
	}
}

// PointAABB returns a degenerate box (Min == Max == p), used for point-cloud
// inputs.
func PointAABB(p mgl32.Vec3) AABB { return AABB{Min: p, Max: p} }

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Extent() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Union returns the smallest box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: mgl32.Vec3{min32(b.Min[0], o.Min[0]), min32(b.Min[1], o.Min[1]), min32(b.Min[2], o.Min[2])},
		Max: mgl32.Vec3{max32(b.Max[0], o.Max[0]), max32(b.Max[1], o.Max[1]), max32(b.Max[2], o.Max[2])},
	}
}

// UnionAll folds Union over boxes; returns the zero AABB for an empty slice.
func UnionAll(boxes []AABB) AABB {
	if len(boxes) == 0 {
		return AABB{}
	}
	u := boxes[0]
	for _, b := range boxes[1:] {
		u = u.Union(b)
	}
	return u
}

// Contains reports whether b fully contains o.
func (b AABB) Contains(o AABB) bool {
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i] || o.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Overlaps reports whether b and o intersect (touching counts as overlap).
func (b AABB) Overlaps(o AABB) bool {
	for i := 0; i < 3; i++ {
		if b.Min[i] > o.Max[i] || b.Max[i] < o.Min[i] {
			return false
		}
	}
	return true
}

// SquaredDistance returns the squared distance from p to the nearest point
// of b (zero if p is inside b).
func SquaredDistance(b AABB, p mgl32.Vec3) float32 {
	var d float32
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			v := b.Min[i] - p[i]
			d += v * v
		} else if p[i] > b.Max[i] {
			v := p[i] - b.Max[i]
			d += v * v
		}
	}
	return d
}

// IntersectsSphere reports whether b overlaps the sphere at center with the
// given radius.
func (b AABB) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	return SquaredDistance(b, center) <= radius*radius
}

// IntersectsRay reports whether the ray from origin along dir (need not be
// normalized) intersects b within [tMin, tMax], via the slab method.
func (b AABB) IntersectsRay(origin, dir mgl32.Vec3, tMin, tMax float32) bool {
	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if origin[i] < b.Min[i] || origin[i] > b.Max[i] {
				return false
			}
			continue
		}
		invD := 1.0 / dir[i]
		t0 := (b.Min[i] - origin[i]) * invD
		t1 := (b.Max[i] - origin[i]) * invD
		if invD < 0 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMax <= tMin {
			return false
		}
	}
	return true
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
