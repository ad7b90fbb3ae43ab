package selection

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/intrinsic3d/enginecore/spatial"
)

func unitCubeCollider(entity EntityID, center mgl32.Vec3) Collider {
	positions := []mgl32.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}
	indices := []uint32{
		0, 1, 2, 0, 2, 3, // -Z
		4, 6, 5, 4, 7, 6, // +Z
		0, 4, 5, 0, 5, 1, // -Y
		3, 2, 6, 3, 6, 7, // +Y
		0, 3, 7, 0, 7, 4, // -X
		1, 5, 6, 1, 6, 2, // +X
	}
	toLocal := mgl32.Translate3D(-center[0], -center[1], -center[2])
	aabb := spatial.NewAABB(center.Sub(mgl32.Vec3{1, 1, 1}), center.Add(mgl32.Vec3{1, 1, 1}))
	return Collider{Entity: entity, WorldAABB: aabb, WorldToLocal: toLocal, Positions: positions, Indices: indices}
}

func TestCPUPickHitsCube(t *testing.T) {
	cube := unitCubeCollider(42, mgl32.Vec3{10, 0, 0})
	ray := Ray{Origin: mgl32.Vec3{0, 0, 0}, Dir: mgl32.Vec3{1, 0, 0}}

	got, ok := CPUPick(ray, []Collider{cube})
	if !ok {
		t.Fatal("expected a hit")
	}
	if got.Entity != 42 {
		t.Fatalf("got entity %v, want 42", got.Entity)
	}
	if got.T < 8 || got.T > 10 {
		t.Fatalf("unexpected hit distance %v, expected roughly 9", got.T)
	}
}

func TestCPUPickMissesEmptySpace(t *testing.T) {
	cube := unitCubeCollider(42, mgl32.Vec3{10, 0, 0})
	ray := Ray{Origin: mgl32.Vec3{0, 0, 0}, Dir: mgl32.Vec3{0, 1, 0}}

	_, ok := CPUPick(ray, []Collider{cube})
	if ok {
		t.Fatal("expected no hit")
	}
}

func TestCPUPickReturnsClosestOfMultiple(t *testing.T) {
	near := unitCubeCollider(1, mgl32.Vec3{5, 0, 0})
	far := unitCubeCollider(2, mgl32.Vec3{10, 0, 0})
	ray := Ray{Origin: mgl32.Vec3{0, 0, 0}, Dir: mgl32.Vec3{1, 0, 0}}

	got, ok := CPUPick(ray, []Collider{far, near})
	if !ok {
		t.Fatal("expected a hit")
	}
	if got.Entity != 1 {
		t.Fatalf("expected the nearer cube (entity 1) to win, got %v", got.Entity)
	}
}

func TestGPUPickReadsReadbackPixel(t *testing.T) {
	rb := NewReadback(4, 4)
	rb.Publish(4, 4, make([]EntityID, 16))
	data := make([]EntityID, 16)
	data[2*4+1] = 99
	rb.Publish(4, 4, data)

	got, ok := GPUPick(rb, 1, 2)
	if !ok || got != 99 {
		t.Fatalf("GPUPick(1,2) = (%v, %v), want (99, true)", got, ok)
	}

	_, ok = GPUPick(rb, 0, 0)
	if ok {
		t.Fatal("pixel with no entity id should report no pick")
	}
}

func TestApplyReplaceClearsThenSelects(t *testing.T) {
	s := NewSet()
	s.Apply(Add, 1)
	s.Apply(Add, 2)
	s.Apply(Replace, 3)

	if s.Selected(1) || s.Selected(2) {
		t.Fatal("Replace should have cleared prior selection")
	}
	if !s.Selected(3) {
		t.Fatal("Replace should select the new entity")
	}
}

func TestApplyReplaceNullClearsSelection(t *testing.T) {
	s := NewSet()
	s.Apply(Add, 1)
	s.Apply(Replace, 0)

	if len(s.All()) != 0 {
		t.Fatalf("expected empty selection, got %v", s.All())
	}
}

func TestApplyToggleFlipsMembership(t *testing.T) {
	s := NewSet()
	s.Apply(Toggle, 5)
	if !s.Selected(5) {
		t.Fatal("first toggle should select")
	}
	s.Apply(Toggle, 5)
	if s.Selected(5) {
		t.Fatal("second toggle should deselect")
	}
}
