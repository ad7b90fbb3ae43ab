package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func approxEqualVec3(t *testing.T, got, want mgl32.Vec3, eps float32) {
	t.Helper()
	if got.Sub(want).Len() > eps {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSpawnRootHasIdentityParent(t *testing.T) {
	s := New()
	e := s.Spawn(DefaultTransform())
	if !s.Parent(e).IsNil() {
		t.Fatal("freshly spawned entity should have no parent")
	}
	if len(s.Children(e)) != 0 {
		t.Fatal("freshly spawned entity should have no children")
	}
}

func TestAttachComposesWorldTransform(t *testing.T) {
	s := New()
	parent := s.Spawn(Transform{Position: mgl32.Vec3{10, 0, 0}, Scale: mgl32.Vec3{1, 1, 1}, Rotation: mgl32.QuatIdent()})
	child := s.Spawn(Transform{Position: mgl32.Vec3{1, 0, 0}, Scale: mgl32.Vec3{1, 1, 1}, Rotation: mgl32.QuatIdent()})
	s.Propagate()

	if !s.Attach(child, parent) {
		t.Fatal("Attach refused")
	}
	s.Propagate()

	world := s.World(child)
	pos := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 0}, world)
	approxEqualVec3(t, pos, mgl32.Vec3{11, 0, 0}, 1e-4)

	if s.ChildCount(parent) != 1 {
		t.Fatalf("expected 1 child, got %d", s.ChildCount(parent))
	}
	if got := s.Children(parent); len(got) != 1 || got[0] != child {
		t.Fatalf("Children(parent) = %v, want [%v]", got, child)
	}
}

func TestAttachPreservesWorldPosition(t *testing.T) {
	s := New()
	parent := s.Spawn(Transform{Position: mgl32.Vec3{5, 0, 0}, Scale: mgl32.Vec3{1, 1, 1}, Rotation: mgl32.QuatIdent()})
	child := s.Spawn(Transform{Position: mgl32.Vec3{5, 0, 0}, Scale: mgl32.Vec3{1, 1, 1}, Rotation: mgl32.QuatIdent()})
	// Re-parenting (moving child off an existing parent) is what preserves
	// the world transform, so child starts under an identity parent.
	oldParent := s.Spawn(DefaultTransform())
	s.Attach(child, oldParent)
	s.Propagate()
	worldBefore := s.World(child)

	s.Attach(child, parent)
	s.Propagate()
	worldAfter := s.World(child)

	posBefore := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 0}, worldBefore)
	posAfter := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 0}, worldAfter)
	approxEqualVec3(t, posAfter, posBefore, 1e-4)
}

func TestAttachRefusesCycle(t *testing.T) {
	s := New()
	a := s.Spawn(DefaultTransform())
	b := s.Spawn(DefaultTransform())
	if !s.Attach(b, a) {
		t.Fatal("Attach(b, a) should succeed")
	}
	if s.Attach(a, b) {
		t.Fatal("Attach(a, b) should be refused: a is an ancestor of b")
	}
}

func TestDetachUnlinksFromParent(t *testing.T) {
	s := New()
	a := s.Spawn(DefaultTransform())
	b := s.Spawn(DefaultTransform())
	s.Attach(b, a)
	s.Detach(b)

	if !s.Parent(b).IsNil() {
		t.Fatal("detached entity should have no parent")
	}
	if s.ChildCount(a) != 0 {
		t.Fatalf("expected 0 children after detach, got %d", s.ChildCount(a))
	}
}

func TestPropagatePropagatesToGrandchildren(t *testing.T) {
	s := New()
	root := s.Spawn(Transform{Position: mgl32.Vec3{1, 0, 0}, Scale: mgl32.Vec3{1, 1, 1}, Rotation: mgl32.QuatIdent()})
	mid := s.Spawn(Transform{Position: mgl32.Vec3{1, 0, 0}, Scale: mgl32.Vec3{1, 1, 1}, Rotation: mgl32.QuatIdent()})
	leaf := s.Spawn(Transform{Position: mgl32.Vec3{1, 0, 0}, Scale: mgl32.Vec3{1, 1, 1}, Rotation: mgl32.QuatIdent()})
	s.Attach(mid, root)
	s.Attach(leaf, mid)
	s.Propagate()

	pos := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 0}, s.World(leaf))
	approxEqualVec3(t, pos, mgl32.Vec3{3, 0, 0}, 1e-4)
}

func TestWasWorldUpdatedOnlyTrueOncePerDirtyPass(t *testing.T) {
	s := New()
	e := s.Spawn(DefaultTransform())
	s.Propagate()
	if !s.WasWorldUpdated(e) {
		t.Fatal("entity should have been updated on its first Propagate")
	}
	if s.WasWorldUpdated(e) {
		t.Fatal("marker should have been cleared after first read")
	}

	s.Propagate() // nothing dirty
	if s.WasWorldUpdated(e) {
		t.Fatal("entity should not be marked updated when nothing was dirty")
	}
}

func TestSiblingSpliceInsertsAtHead(t *testing.T) {
	s := New()
	parent := s.Spawn(DefaultTransform())
	first := s.Spawn(DefaultTransform())
	second := s.Spawn(DefaultTransform())
	s.Attach(first, parent)
	s.Attach(second, parent)

	got := s.Children(parent)
	if len(got) != 2 || got[0] != second || got[1] != first {
		t.Fatalf("expected [second, first] (head-splice order), got %v", got)
	}
}
