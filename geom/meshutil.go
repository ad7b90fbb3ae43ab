package geom

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/intrinsic3d/enginecore/halfedge"
)

// FaceLoop returns every halfedge bounding f, in winding order, starting at
// f's representative halfedge. Safety-limited to the mesh's halfedge count
// so a corrupt loop aborts instead of spinning.
func FaceLoop(m *halfedge.Mesh, f halfedge.FaceHandle) []halfedge.HalfedgeHandle {
	h0 := m.FaceHalfedge(f)
	if h0.IsNil() {
		return nil
	}
	var out []halfedge.HalfedgeHandle
	h := h0
	limit := m.HalfedgeCount() + 1
	for i := 0; i < limit; i++ {
		out = append(out, h)
		h = m.Next(h)
		if h == h0 {
			break
		}
	}
	return out
}

// FaceVertices returns f's bounding vertices in winding order.
func FaceVertices(m *halfedge.Mesh, f halfedge.FaceHandle) []halfedge.VertexHandle {
	loop := FaceLoop(m, f)
	out := make([]halfedge.VertexHandle, len(loop))
	for i, h := range loop {
		out[i] = m.ToVertex(h)
	}
	return out
}

// FaceNormal computes f's unit normal via Newell's method, which handles
// non-planar and non-triangular polygons without first picking a
// triangulation.
func FaceNormal(m *halfedge.Mesh, f halfedge.FaceHandle) mgl32.Vec3 {
	verts := FaceVertices(m, f)
	if len(verts) < 3 {
		return mgl32.Vec3{}
	}
	var n mgl32.Vec3
	for i := range verts {
		a := m.Position(verts[i])
		b := m.Position(verts[(i+1)%len(verts)])
		n[0] += (a[1] - b[1]) * (a[2] + b[2])
		n[1] += (a[2] - b[2]) * (a[0] + b[0])
		n[2] += (a[0] - b[0]) * (a[1] + b[1])
	}
	if n.Len() == 0 {
		return mgl32.Vec3{}
	}
	return n.Normalize()
}

// FaceCentroid returns the arithmetic mean of f's vertices.
func FaceCentroid(m *halfedge.Mesh, f halfedge.FaceHandle) mgl32.Vec3 {
	verts := FaceVertices(m, f)
	if len(verts) == 0 {
		return mgl32.Vec3{}
	}
	var sum mgl32.Vec3
	for _, v := range verts {
		sum = sum.Add(m.Position(v))
	}
	return sum.Mul(1.0 / float32(len(verts)))
}

// FaceArea returns f's area via a triangle fan from its first vertex,
// summing half the cross-product magnitude of each fan triangle. Exact
// for planar convex polygons (triangles and quads), a good approximation
// otherwise.
func FaceArea(m *halfedge.Mesh, f halfedge.FaceHandle) float32 {
	verts := FaceVertices(m, f)
	if len(verts) < 3 {
		return 0
	}
	p0 := m.Position(verts[0])
	var area float32
	for i := 1; i < len(verts)-1; i++ {
		a := m.Position(verts[i]).Sub(p0)
		b := m.Position(verts[i+1]).Sub(p0)
		area += a.Cross(b).Len() * 0.5
	}
	return area
}

// VertexNormal averages the normals of v's incident faces, weighted by
// each face's area, and normalizes the result. Boundary and isolated
// vertices with no incident face return the zero vector.
func VertexNormal(m *halfedge.Mesh, v halfedge.VertexHandle) mgl32.Vec3 {
	var sum mgl32.Vec3
	for _, h := range outgoingHalfedges(m, v) {
		f := m.Face(h)
		if f.IsNil() {
			continue
		}
		sum = sum.Add(FaceNormal(m, f).Mul(FaceArea(m, f)))
	}
	if sum.Len() == 0 {
		return mgl32.Vec3{}
	}
	return sum.Normalize()
}

// EdgeLength returns the Euclidean length of e.
func EdgeLength(m *halfedge.Mesh, e halfedge.EdgeHandle) float32 {
	h := halfedge.HalfedgeOf(e, 0)
	return m.Position(m.ToVertex(h)).Sub(m.Position(m.FromVertex(h))).Len()
}

// EdgeLengthSquared avoids the square root when only a threshold
// comparison is needed (isotropic remeshing's split/collapse tests).
func EdgeLengthSquared(m *halfedge.Mesh, e halfedge.EdgeHandle) float32 {
	h := halfedge.HalfedgeOf(e, 0)
	d := m.Position(m.ToVertex(h)).Sub(m.Position(m.FromVertex(h)))
	return d.Dot(d)
}

// MeanEdgeLength averages EdgeLength over every non-deleted edge.
func MeanEdgeLength(m *halfedge.Mesh) float32 {
	var sum float32
	n := 0
	for i := 0; i < m.EdgeRowCount(); i++ {
		e := halfedge.EdgeHandle{Index: uint32(i)}
		if m.IsDeletedEdge(e) {
			continue
		}
		sum += EdgeLength(m, e)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float32(n)
}

// outgoingHalfedges walks v's outgoing ring, exported within the package
// for every operator that needs 1-ring traversal without reaching into
// halfedge's unexported helper of the same shape.
func outgoingHalfedges(m *halfedge.Mesh, v halfedge.VertexHandle) []halfedge.HalfedgeHandle {
	h0 := m.VertexHalfedge(v)
	if h0.IsNil() {
		return nil
	}
	var out []halfedge.HalfedgeHandle
	h := h0
	limit := m.HalfedgeCount() + 1
	for i := 0; i < limit; i++ {
		out = append(out, h)
		h = m.Next(halfedge.Opposite(h))
		if h == h0 {
			break
		}
	}
	return out
}

