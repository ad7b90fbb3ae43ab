package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/intrinsic3d/enginecore/halfedge"
)

// buildTetrahedron returns a closed, manifold 4-vertex/4-face mesh.
func buildTetrahedron(t *testing.T) *halfedge.Mesh {
	t.Helper()
	m := halfedge.New()
	a := m.AddVertex(mgl32.Vec3{0, 0, 0})
	b := m.AddVertex(mgl32.Vec3{1, 0, 0})
	c := m.AddVertex(mgl32.Vec3{0, 1, 0})
	d := m.AddVertex(mgl32.Vec3{0, 0, 1})

	faces := [][3]halfedge.VertexHandle{
		{a, c, b},
		{a, b, d},
		{b, c, d},
		{c, a, d},
	}
	for _, f := range faces {
		if _, ok := m.AddTriangle(f[0], f[1], f[2]); !ok {
			t.Fatalf("failed to add tetrahedron face %v", f)
		}
	}
	return m
}

// buildPlaneGrid returns an nx*nz grid of unit quads, triangulated, lying
// flat in the XZ plane, plus the vertex handle at grid position (i,j).
func buildPlaneGrid(t *testing.T, nx, nz int) (*halfedge.Mesh, func(i, j int) halfedge.VertexHandle) {
	t.Helper()
	m := halfedge.New()
	verts := make([][]halfedge.VertexHandle, nx)
	for i := 0; i < nx; i++ {
		verts[i] = make([]halfedge.VertexHandle, nz)
		for j := 0; j < nz; j++ {
			verts[i][j] = m.AddVertex(mgl32.Vec3{float32(i), 0, float32(j)})
		}
	}
	for i := 0; i < nx-1; i++ {
		for j := 0; j < nz-1; j++ {
			a, b, c, d := verts[i][j], verts[i+1][j], verts[i+1][j+1], verts[i][j+1]
			if _, ok := m.AddTriangle(a, b, c); !ok {
				t.Fatalf("failed to add triangle at (%d,%d)", i, j)
			}
			if _, ok := m.AddTriangle(a, c, d); !ok {
				t.Fatalf("failed to add triangle at (%d,%d)", i, j)
			}
		}
	}
	return m, func(i, j int) halfedge.VertexHandle { return verts[i][j] }
}

// buildQuadMesh returns a single quad face.
func buildQuadMesh(t *testing.T) *halfedge.Mesh {
	t.Helper()
	m := halfedge.New()
	a := m.AddVertex(mgl32.Vec3{0, 0, 0})
	b := m.AddVertex(mgl32.Vec3{1, 0, 0})
	c := m.AddVertex(mgl32.Vec3{1, 1, 0})
	d := m.AddVertex(mgl32.Vec3{0, 1, 0})
	if _, ok := m.AddQuad(a, b, c, d); !ok {
		t.Fatal("AddQuad failed")
	}
	return m
}

func approxEqual(a, b, eps float32) bool {
	return math.Abs(float64(a-b)) <= float64(eps)
}

func approxEqualVec3(a, b mgl32.Vec3, eps float32) bool {
	return approxEqual(a[0], b[0], eps) && approxEqual(a[1], b[1], eps) && approxEqual(a[2], b[2], eps)
}

func vertexAt(i int) halfedge.VertexHandle { return halfedge.VertexHandle{Index: uint32(i)} }
func edgeAt(i int) halfedge.EdgeHandle     { return halfedge.EdgeHandle{Index: uint32(i)} }
func faceAt(i int) halfedge.FaceHandle     { return halfedge.FaceHandle{Index: uint32(i)} }
