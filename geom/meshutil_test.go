package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/intrinsic3d/enginecore/halfedge"
)

func TestFaceNormalQuad(t *testing.T) {
	m := buildQuadMesh(t)
	f := halfedge.FaceHandle{Index: 0}
	n := FaceNormal(m, f)
	if !approxEqualVec3(n, mgl32.Vec3{0, 0, 1}, 1e-5) && !approxEqualVec3(n, mgl32.Vec3{0, 0, -1}, 1e-5) {
		t.Errorf("FaceNormal = %v, want +-Z", n)
	}
}

func TestFaceAreaQuad(t *testing.T) {
	m := buildQuadMesh(t)
	f := halfedge.FaceHandle{Index: 0}
	area := FaceArea(m, f)
	if !approxEqual(area, 1.0, 1e-5) {
		t.Errorf("FaceArea = %v, want 1.0", area)
	}
}

func TestFaceCentroidQuad(t *testing.T) {
	m := buildQuadMesh(t)
	f := halfedge.FaceHandle{Index: 0}
	c := FaceCentroid(m, f)
	if !approxEqualVec3(c, mgl32.Vec3{0.5, 0.5, 0}, 1e-5) {
		t.Errorf("FaceCentroid = %v, want (0.5,0.5,0)", c)
	}
}

func TestEdgeLength(t *testing.T) {
	m := buildQuadMesh(t)
	h, ok := m.FindHalfedge(halfedge.VertexHandle{Index: 0}, halfedge.VertexHandle{Index: 1})
	if !ok {
		t.Fatal("expected edge 0-1")
	}
	e := halfedge.EdgeOf(h)
	if l := EdgeLength(m, e); !approxEqual(l, 1.0, 1e-5) {
		t.Errorf("EdgeLength = %v, want 1.0", l)
	}
	if l2 := EdgeLengthSquared(m, e); !approxEqual(l2, 1.0, 1e-5) {
		t.Errorf("EdgeLengthSquared = %v, want 1.0", l2)
	}
}

func TestMeanEdgeLengthGrid(t *testing.T) {
	m, _ := buildPlaneGrid(t, 3, 3)
	mean := MeanEdgeLength(m)
	if mean <= 0 {
		t.Errorf("MeanEdgeLength = %v, want > 0", mean)
	}
}

func TestVertexNormalTetrahedron(t *testing.T) {
	m := buildTetrahedron(t)
	v := halfedge.VertexHandle{Index: 0}
	n := VertexNormal(m, v)
	if !approxEqual(n.Len(), 1.0, 1e-4) {
		t.Errorf("VertexNormal length = %v, want 1", n.Len())
	}
}
