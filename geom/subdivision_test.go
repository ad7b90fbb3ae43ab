package geom

import "testing"

func TestLoopSubdivideRejectsNonTriangular(t *testing.T) {
	m := buildQuadMesh(t)
	_, ok := LoopSubdivide(m)
	if ok {
		t.Fatal("LoopSubdivide should reject a quad mesh")
	}
}

func TestLoopSubdivideQuadruplesFaces(t *testing.T) {
	m := buildTetrahedron(t)
	before := m.FaceCount()

	refined, ok := LoopSubdivide(m)
	if !ok {
		t.Fatal("LoopSubdivide should accept an all-triangle mesh")
	}
	if refined.FaceCount() != before*4 {
		t.Errorf("FaceCount after subdivide = %d, want %d", refined.FaceCount(), before*4)
	}
}

func TestLoopSubdividePreservesManifold(t *testing.T) {
	m := buildTetrahedron(t)
	refined, ok := LoopSubdivide(m)
	if !ok {
		t.Fatal("LoopSubdivide failed")
	}
	for i := 0; i < refined.FaceRowCount(); i++ {
		if !refined.IsDeletedFace(faceAt(i)) && len(FaceVertices(refined, faceAt(i))) != 3 {
			t.Errorf("face %d is not a triangle after Loop subdivision", i)
		}
	}
}

func TestCatmullClarkProducesQuads(t *testing.T) {
	m := buildTetrahedron(t)
	before := m.FaceCount()

	refined := CatmullClarkSubdivide(m)

	if refined.FaceCount() != before*3 {
		t.Errorf("FaceCount after Catmull-Clark = %d, want %d (3 quads per triangle)", refined.FaceCount(), before*3)
	}
	for i := 0; i < refined.FaceRowCount(); i++ {
		if refined.IsDeletedFace(faceAt(i)) {
			continue
		}
		if n := len(FaceVertices(refined, faceAt(i))); n != 4 {
			t.Errorf("face %d has %d vertices, want 4", i, n)
		}
	}
}
