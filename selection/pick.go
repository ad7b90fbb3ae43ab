package selection

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/intrinsic3d/enginecore/spatial"
)

// Ray is a world-space ray: points along it are origin + t*dir, t >= 0.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

// Collider is one pickable entity's geometry: an oriented bounding box
// (world-space AABB is its axis-aligned envelope, used for broadphase) plus
// the triangle soup tested in local space during narrowphase.
type Collider struct {
	Entity    EntityID
	WorldAABB spatial.AABB
	// WorldToLocal transforms a world-space point/direction into the
	// collider's local space, where Positions/Indices live.
	WorldToLocal mgl32.Mat4
	Positions    []mgl32.Vec3
	Indices      []uint32 // triangle list, 3 per face
}

// PickResult is one successful CPU pick.
type PickResult struct {
	Entity EntityID
	T      float32 // ray parameter at the hit, world-space units along Dir
}

// CPUPick casts ray against colliders and returns the closest hit, if any.
// Broadphase rejects a collider whose world AABB the ray misses; narrowphase
// transforms the ray into the collider's local space and tests every
// triangle with the Möller-Watertight algorithm.
func CPUPick(ray Ray, colliders []Collider) (PickResult, bool) {
	best := PickResult{}
	found := false
	for _, c := range colliders {
		if !c.WorldAABB.IntersectsRay(ray.Origin, ray.Dir, 0, float32(math.Inf(1))) {
			continue
		}
		localOrigin := mgl32.TransformCoordinate(ray.Origin, c.WorldToLocal)
		localDirPoint := mgl32.TransformCoordinate(ray.Origin.Add(ray.Dir), c.WorldToLocal)
		localDir := localDirPoint.Sub(localOrigin)

		for i := 0; i+2 < len(c.Indices); i += 3 {
			v0 := c.Positions[c.Indices[i]]
			v1 := c.Positions[c.Indices[i+1]]
			v2 := c.Positions[c.Indices[i+2]]
			t, ok := intersectTriangleMollerWatertight(localOrigin, localDir, v0, v1, v2)
			if !ok {
				continue
			}
			if !found || t < best.T {
				best = PickResult{Entity: c.Entity, T: t}
				found = true
			}
		}
	}
	return best, found
}

// intersectTriangleMollerWatertight implements the Watertight variant of the
// Moller-Trumbore ray-triangle test: the ray is translated to the origin and
// the triangle vertices sheared/scaled into the ray's local coordinate
// frame, so edge tests reduce to signed-area comparisons that agree exactly
// at shared edges between adjacent triangles (no gaps at silhouette edges).
func intersectTriangleMollerWatertight(origin, dir, v0, v1, v2 mgl32.Vec3) (float32, bool) {
	ax, ay, az := absAxisOrder(dir)

	sz := 1.0 / component(dir, az)
	sx := component(dir, ax) * sz
	sy := component(dir, ay) * sz

	a := translate(v0, origin)
	b := translate(v1, origin)
	c := translate(v2, origin)

	ax0, ay0 := shear(a, ax, ay, az, sx, sy)
	bx0, by0 := shear(b, ax, ay, az, sx, sy)
	cx0, cy0 := shear(c, ax, ay, az, sx, sy)

	u := cx0*by0 - cy0*bx0
	v := ax0*cy0 - ay0*cx0
	w := bx0*ay0 - by0*ax0

	if (u < 0 || v < 0 || w < 0) && (u > 0 || v > 0 || w > 0) {
		return 0, false
	}
	det := u + v + w
	if det == 0 {
		return 0, false
	}

	az0 := component(a, az) * sz
	bz0 := component(b, az) * sz
	cz0 := component(c, az) * sz
	tScaled := u*az0 + v*bz0 + w*cz0

	if det < 0 {
		if tScaled >= 0 {
			return 0, false
		}
	} else if tScaled <= 0 {
		return 0, false
	}

	invDet := 1 / det
	t := tScaled * invDet
	if t < 0 {
		return 0, false
	}
	return t, true
}

func translate(p, origin mgl32.Vec3) mgl32.Vec3 { return p.Sub(origin) }

func component(v mgl32.Vec3, axis int) float32 {
	switch axis {
	case 0:
		return v.X()
	case 1:
		return v.Y()
	default:
		return v.Z()
	}
}

func shear(p mgl32.Vec3, ax, ay, az int, sx, sy float32) (float32, float32) {
	pz := component(p, az)
	return component(p, ax) - sx*pz, component(p, ay) - sy*pz
}

// absAxisOrder picks az as the dominant axis of dir, and ax, ay as the
// other two in a winding-preserving order.
func absAxisOrder(dir mgl32.Vec3) (ax, ay, az int) {
	adx, ady, adz := abs32(dir.X()), abs32(dir.Y()), abs32(dir.Z())
	switch {
	case adx >= ady && adx >= adz:
		return 1, 2, 0
	case ady >= adx && ady >= adz:
		return 2, 0, 1
	default:
		return 0, 1, 2
	}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// GPUPick consumes the previous frame's readback image at the mouse pixel.
func GPUPick(r *Readback, mouseX, mouseY int) (EntityID, bool) {
	id := r.At(mouseX, mouseY)
	return id, id != 0
}

// Mode is a selection-apply operation.
type Mode int

const (
	Replace Mode = iota
	Add
	Toggle
)

// Set is the selection-tag component: the set of currently selected
// entities.
type Set struct {
	mu   sync.RWMutex
	tags map[EntityID]struct{}
}

// NewSet returns an empty selection set.
func NewSet() *Set {
	return &Set{tags: make(map[EntityID]struct{})}
}

// Apply applies mode to entity. Replace clears every existing tag first,
// then tags entity unless entity is the null entity (0), which leaves the
// selection empty. Add tags entity without clearing. Toggle flips entity's
// own tag.
func (s *Set) Apply(mode Mode, entity EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch mode {
	case Replace:
		s.tags = make(map[EntityID]struct{})
		if entity != 0 {
			s.tags[entity] = struct{}{}
		}
	case Add:
		if entity != 0 {
			s.tags[entity] = struct{}{}
		}
	case Toggle:
		if entity == 0 {
			return
		}
		if _, ok := s.tags[entity]; ok {
			delete(s.tags, entity)
		} else {
			s.tags[entity] = struct{}{}
		}
	}
}

// Selected returns whether entity currently carries the selection tag.
func (s *Set) Selected(entity EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tags[entity]
	return ok
}

// All returns every currently selected entity, in no particular order.
func (s *Set) All() []EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EntityID, 0, len(s.tags))
	for e := range s.tags {
		out = append(out, e)
	}
	return out
}
