package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/intrinsic3d/enginecore/halfedge"
)

func TestPlaneQuadricCostZeroOnPlane(t *testing.T) {
	n := mgl32.Vec3{0, 1, 0}
	point := mgl32.Vec3{0, 2, 0}
	q := PlaneQuadric(n, point)

	onPlane := mgl32.Vec3{5, 2, -3}
	if c := q.Cost(onPlane); !approxEqual(c, 0, 1e-4) {
		t.Errorf("Cost on plane = %v, want 0", c)
	}

	off := mgl32.Vec3{0, 3, 0}
	if c := q.Cost(off); c <= 0 {
		t.Errorf("Cost off plane = %v, want > 0", c)
	}
}

func TestQuadricAddSumsCost(t *testing.T) {
	q1 := PlaneQuadric(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{1, 0, 0})
	q2 := PlaneQuadric(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0})
	sum := q1.Add(q2)

	p := mgl32.Vec3{2, 2, 0}
	want := q1.Cost(p) + q2.Cost(p)
	if got := sum.Cost(p); !approxEqual(got, want, 1e-4) {
		t.Errorf("summed Cost = %v, want %v", got, want)
	}
}

func TestOptimalPositionThreeOrthogonalPlanes(t *testing.T) {
	var q Quadric
	q = q.Add(PlaneQuadric(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{1, 0, 0}))
	q = q.Add(PlaneQuadric(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 2, 0}))
	q = q.Add(PlaneQuadric(mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 0, 3}))

	pos, ok := q.OptimalPosition(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	if !ok {
		t.Fatal("expected non-singular system for three orthogonal planes")
	}
	if !approxEqualVec3(pos, mgl32.Vec3{1, 2, 3}, 1e-3) {
		t.Errorf("OptimalPosition = %v, want (1,2,3)", pos)
	}
}

func TestOptimalPositionSingularFallsBackToMidpoint(t *testing.T) {
	var q Quadric // zero quadric: singular system
	a := mgl32.Vec3{0, 0, 0}
	b := mgl32.Vec3{2, 0, 0}
	pos, ok := q.OptimalPosition(a, b)
	if ok {
		t.Fatal("expected singular zero quadric to report ok=false")
	}
	if !approxEqualVec3(pos, mgl32.Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("fallback position = %v, want midpoint (1,0,0)", pos)
	}
}

func TestVertexQuadricTetrahedron(t *testing.T) {
	m := buildTetrahedron(t)
	v := halfedge.VertexHandle{Index: 0}
	q := VertexQuadric(m, v)
	p := m.Position(v)
	if c := q.Cost(p); c < -1e-3 {
		t.Errorf("Cost at the vertex's own position should be near zero, got %v", c)
	}
}
