// Package scene implements the entity transform hierarchy: a handle.Pool
// of entities backed by property.Registry columns for local transform,
// parent/child/sibling links, and a cached world matrix, plus the dirty-
// propagation system that recomposes world matrices from roots down.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/intrinsic3d/enginecore/handle"
	"github.com/intrinsic3d/enginecore/property"
)

// Entity identifies one node in the scene hierarchy.
type Entity = handle.Handle[handle.Entity]

// Transform is an entity's local-space transform relative to its parent
// (or to world space, if it has none).
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// DefaultTransform is the identity transform.
func DefaultTransform() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}, Rotation: mgl32.QuatIdent()}
}

// Matrix composes Transform into a 4x4 local matrix: scale, then rotate,
// then translate.
func (t Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

type links struct {
	parent      Entity
	firstChild  Entity
	nextSibling Entity
	prevSibling Entity
	childCount  int
}

// nilLinks is the zero value for a links row: every handle field must be
// the explicit nil handle, since the zero Entity{} (index 0) is a real,
// live handle once anything ever occupies slot 0.
func nilLinks() links {
	nilEntity := handle.Nil[handle.Entity]()
	return links{parent: nilEntity, firstChild: nilEntity, nextSibling: nilEntity, prevSibling: nilEntity}
}

// Scene owns every entity's transform and hierarchy links.
type Scene struct {
	pool *handle.Pool[handle.Entity]
	reg  *property.Registry

	localCol *property.Column[Transform]
	linksCol *property.Column[links]
	worldCol *property.Column[mgl32.Mat4]

	dirty        map[Entity]struct{}
	worldUpdated map[Entity]struct{}
}

// New returns an empty scene.
func New() *Scene {
	reg := property.NewRegistry()
	return &Scene{
		pool:         handle.NewPool[handle.Entity](),
		reg:          reg,
		localCol:     property.Add(reg, "local", DefaultTransform()),
		linksCol:     property.Add(reg, "links", nilLinks()),
		worldCol:     property.Add(reg, "world", mgl32.Ident4()),
		dirty:        make(map[Entity]struct{}),
		worldUpdated: make(map[Entity]struct{}),
	}
}

// Spawn creates a new, parentless entity with the given local transform,
// marked dirty so its world matrix is computed on the next Propagate.
func (s *Scene) Spawn(local Transform) Entity {
	h := s.pool.Allocate()
	for s.reg.Len() <= int(h.Index) {
		s.reg.PushRow()
	}
	s.localCol.Set(int(h.Index), local)
	s.linksCol.Set(int(h.Index), nilLinks())
	s.worldCol.Set(int(h.Index), local.Matrix())
	s.dirty[h] = struct{}{}
	return h
}

// Alive reports whether e is a currently live entity.
func (s *Scene) Alive(e Entity) bool { return s.pool.Alive(e) }

// Local returns e's local transform.
func (s *Scene) Local(e Entity) Transform {
	return s.localCol.Get(int(e.Index))
}

// SetLocal updates e's local transform and marks it (and transitively its
// descendants, on the next Propagate) dirty.
func (s *Scene) SetLocal(e Entity, t Transform) {
	if !s.pool.Alive(e) {
		return
	}
	s.localCol.Set(int(e.Index), t)
	s.dirty[e] = struct{}{}
}

// World returns e's last-propagated world matrix.
func (s *Scene) World(e Entity) mgl32.Mat4 {
	return s.worldCol.Get(int(e.Index))
}

// Parent returns e's parent, or the nil entity if e is a root.
func (s *Scene) Parent(e Entity) Entity {
	return s.linksCol.Get(int(e.Index)).parent
}

// ChildCount returns the number of direct children e has.
func (s *Scene) ChildCount(e Entity) int {
	return s.linksCol.Get(int(e.Index)).childCount
}

// Children returns e's direct children, head to tail.
func (s *Scene) Children(e Entity) []Entity {
	var out []Entity
	cur := s.linksCol.Get(int(e.Index)).firstChild
	for !cur.IsNil() {
		out = append(out, cur)
		cur = s.linksCol.Get(int(cur.Index)).nextSibling
	}
	return out
}

// WasWorldUpdated reports whether e's world matrix changed during the most
// recent Propagate call, and clears its marker.
func (s *Scene) WasWorldUpdated(e Entity) bool {
	_, ok := s.worldUpdated[e]
	delete(s.worldUpdated, e)
	return ok
}

func (s *Scene) isAncestor(candidate, of Entity) bool {
	cur := s.linksCol.Get(int(of.Index)).parent
	for !cur.IsNil() {
		if cur == candidate {
			return true
		}
		cur = s.linksCol.Get(int(cur.Index)).parent
	}
	return false
}

func (s *Scene) unlink(child Entity) {
	l := s.linksCol.Get(int(child.Index))
	if l.parent.IsNil() {
		return
	}
	pl := s.linksCol.Get(int(l.parent.Index))

	if !l.prevSibling.IsNil() {
		prevL := s.linksCol.Get(int(l.prevSibling.Index))
		prevL.nextSibling = l.nextSibling
		s.linksCol.Set(int(l.prevSibling.Index), prevL)
	} else {
		pl.firstChild = l.nextSibling
	}
	if !l.nextSibling.IsNil() {
		nextL := s.linksCol.Get(int(l.nextSibling.Index))
		nextL.prevSibling = l.prevSibling
		s.linksCol.Set(int(l.nextSibling.Index), nextL)
	}
	pl.childCount--
	s.linksCol.Set(int(l.parent.Index), pl)

	l.parent = handle.Nil[handle.Entity]()
	l.nextSibling = handle.Nil[handle.Entity]()
	l.prevSibling = handle.Nil[handle.Entity]()
	s.linksCol.Set(int(child.Index), l)
}

// Attach makes child a child of parent. If child already had a parent, it
// is detached from it and its world transform is preserved by decomposing
// it relative to parent's current world matrix into a new local transform;
// a root child keeps its local transform, which is then relative to parent.
// Splices child at the head of parent's child list.
// Attaching would create a cycle (parent is child or a descendant of
// child) is refused as a no-op.
func (s *Scene) Attach(child, parent Entity) bool {
	if !s.pool.Alive(child) || !s.pool.Alive(parent) || child == parent {
		return false
	}
	if parent == child || s.isAncestor(child, parent) {
		return false
	}

	if !s.linksCol.Get(int(child.Index)).parent.IsNil() {
		worldBefore := s.worldCol.Get(int(child.Index))
		s.unlink(child)
		parentWorld := s.worldCol.Get(int(parent.Index))
		newLocalMatrix := parentWorld.Inv().Mul4(worldBefore)
		s.localCol.Set(int(child.Index), decompose(newLocalMatrix))
	}

	cl := s.linksCol.Get(int(child.Index))
	cl.parent = parent
	pl := s.linksCol.Get(int(parent.Index))
	cl.nextSibling = pl.firstChild
	cl.prevSibling = handle.Nil[handle.Entity]()
	if !pl.firstChild.IsNil() {
		headL := s.linksCol.Get(int(pl.firstChild.Index))
		headL.prevSibling = child
		s.linksCol.Set(int(pl.firstChild.Index), headL)
	}
	pl.firstChild = child
	pl.childCount++
	s.linksCol.Set(int(parent.Index), pl)
	s.linksCol.Set(int(child.Index), cl)

	s.dirty[child] = struct{}{}
	return true
}

// Detach unlinks child from its parent, leaving its world transform
// unchanged until the next Propagate recomputes it relative to world
// space.
func (s *Scene) Detach(child Entity) {
	if !s.pool.Alive(child) {
		return
	}
	world := s.worldCol.Get(int(child.Index))
	s.unlink(child)
	s.localCol.Set(int(child.Index), decompose(world))
	s.dirty[child] = struct{}{}
}

// decompose extracts a Transform from a 4x4 matrix assuming no shear: scale
// is the column-vector lengths, rotation the remaining orthonormal basis,
// translation the last column.
func decompose(m mgl32.Mat4) Transform {
	col0 := mgl32.Vec3{m[0], m[1], m[2]}
	col1 := mgl32.Vec3{m[4], m[5], m[6]}
	col2 := mgl32.Vec3{m[8], m[9], m[10]}
	sx, sy, sz := col0.Len(), col1.Len(), col2.Len()

	rot := mgl32.Ident4()
	if sx != 0 {
		col0 = col0.Mul(1 / sx)
	}
	if sy != 0 {
		col1 = col1.Mul(1 / sy)
	}
	if sz != 0 {
		col2 = col2.Mul(1 / sz)
	}
	rot[0], rot[1], rot[2] = col0[0], col0[1], col0[2]
	rot[4], rot[5], rot[6] = col1[0], col1[1], col1[2]
	rot[8], rot[9], rot[10] = col2[0], col2[1], col2[2]

	return Transform{
		Position: mgl32.Vec3{m[12], m[13], m[14]},
		Rotation: mgl32.Mat4ToQuat(rot),
		Scale:    mgl32.Vec3{sx, sy, sz},
	}
}

// Propagate DFS-walks every root, recomposing world = parent_world * local
// for every entity tagged dirty or whose parent was recomputed this pass.
// Clears dirty tags as it goes and records a world_updated marker,
// retrievable via WasWorldUpdated, for every entity it actually
// recomposed.
func (s *Scene) Propagate() {
	if len(s.dirty) == 0 {
		return
	}
	roots := make([]Entity, 0, s.pool.Len())
	for i := 0; i < s.pool.Len(); i++ {
		h, ok := s.pool.HandleAt(i)
		if !ok {
			continue
		}
		if s.linksCol.Get(i).parent.IsNil() {
			roots = append(roots, h)
		}
	}
	for _, root := range roots {
		s.propagateFrom(root, mgl32.Ident4(), false)
	}
	s.dirty = make(map[Entity]struct{})
}

func (s *Scene) propagateFrom(e Entity, parentWorld mgl32.Mat4, parentDirty bool) {
	_, selfDirty := s.dirty[e]
	recompute := selfDirty || parentDirty

	world := s.worldCol.Get(int(e.Index))
	if recompute {
		world = parentWorld.Mul4(s.localCol.Get(int(e.Index)).Matrix())
		s.worldCol.Set(int(e.Index), world)
		s.worldUpdated[e] = struct{}{}
	}

	cur := s.linksCol.Get(int(e.Index)).firstChild
	for !cur.IsNil() {
		next := s.linksCol.Get(int(cur.Index)).nextSibling
		s.propagateFrom(cur, world, recompute)
		cur = next
	}
}
