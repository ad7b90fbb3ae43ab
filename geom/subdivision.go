package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/intrinsic3d/enginecore/halfedge"
)

// LoopSubdivide returns a new mesh refining m by one level of Loop
// subdivision. Every face of m must be a triangle; returns (nil, false)
// otherwise.
func LoopSubdivide(m *halfedge.Mesh) (*halfedge.Mesh, bool) {
	for i := 0; i < m.FaceRowCount(); i++ {
		f := halfedge.FaceHandle{Index: uint32(i)}
		if m.IsDeletedFace(f) {
			continue
		}
		if len(FaceVertices(m, f)) != 3 {
			return nil, false
		}
	}

	evenPos := make([]mgl32.Vec3, m.VertexRowCount())
	for i := range evenPos {
		v := halfedge.VertexHandle{Index: uint32(i)}
		if m.IsDeletedVertex(v) {
			continue
		}
		evenPos[i] = loopEvenPosition(m, v)
	}

	type edgeKey struct{ a, b uint32 }
	normKey := func(a, b halfedge.VertexHandle) edgeKey {
		if a.Index < b.Index {
			return edgeKey{a.Index, b.Index}
		}
		return edgeKey{b.Index, a.Index}
	}

	oddPos := make(map[edgeKey]mgl32.Vec3)
	for i := 0; i < m.EdgeRowCount(); i++ {
		e := halfedge.EdgeHandle{Index: uint32(i)}
		if m.IsDeletedEdge(e) {
			continue
		}
		h := halfedge.HalfedgeOf(e, 0)
		a, b := m.FromVertex(h), m.ToVertex(h)
		oddPos[normKey(a, b)] = loopOddPosition(m, e)
	}

	out := halfedge.New()
	newVertex := make([]halfedge.VertexHandle, m.VertexRowCount())
	for i := range newVertex {
		v := halfedge.VertexHandle{Index: uint32(i)}
		if m.IsDeletedVertex(v) {
			continue
		}
		newVertex[i] = out.AddVertex(evenPos[i])
	}
	edgeVertex := make(map[edgeKey]halfedge.VertexHandle, len(oddPos))
	for k, pos := range oddPos {
		edgeVertex[k] = out.AddVertex(pos)
	}

	for i := 0; i < m.FaceRowCount(); i++ {
		f := halfedge.FaceHandle{Index: uint32(i)}
		if m.IsDeletedFace(f) {
			continue
		}
		verts := FaceVertices(m, f)
		a, b, c := verts[0], verts[1], verts[2]
		ab := edgeVertex[normKey(a, b)]
		bc := edgeVertex[normKey(b, c)]
		ca := edgeVertex[normKey(c, a)]
		na, nb, nc := newVertex[a.Index], newVertex[b.Index], newVertex[c.Index]

		out.AddTriangle(na, ab, ca)
		out.AddTriangle(ab, nb, bc)
		out.AddTriangle(ca, bc, nc)
		out.AddTriangle(ab, bc, ca)
	}
	return out, true
}

func loopEvenPosition(m *halfedge.Mesh, v halfedge.VertexHandle) mgl32.Vec3 {
	ring := outgoingHalfedges(m, v)
	n := len(ring)
	if n == 0 {
		return m.Position(v)
	}
	if m.VertexIsBoundary(v) {
		var prev, next mgl32.Vec3
		found := 0
		for _, h := range ring {
			if m.IsBoundary(h) {
				next = m.Position(m.ToVertex(h))
				found++
			}
			if m.IsBoundary(halfedge.Opposite(h)) {
				prev = m.Position(m.ToVertex(h))
				found++
			}
		}
		if found < 2 {
			return m.Position(v)
		}
		return m.Position(v).Mul(0.75).Add(prev.Add(next).Mul(0.125))
	}

	beta := loopBeta(n)
	var sum mgl32.Vec3
	for _, h := range ring {
		sum = sum.Add(m.Position(m.ToVertex(h)))
	}
	return m.Position(v).Mul(1 - float32(n)*beta).Add(sum.Mul(beta))
}

// loopBeta is Loop's original cosine-based formula, one continuous
// expression valid for any valence (no n==3 special case).
func loopBeta(n int) float32 {
	nf := float64(n)
	x := 3.0/8.0 + math.Cos(2*math.Pi/nf)/4.0
	return float32((1.0/nf)*(5.0/8.0-x*x))
}

func loopOddPosition(m *halfedge.Mesh, e halfedge.EdgeHandle) mgl32.Vec3 {
	h := halfedge.HalfedgeOf(e, 0)
	o := halfedge.Opposite(h)
	a, b := m.Position(m.FromVertex(h)), m.Position(m.ToVertex(h))
	if m.EdgeIsBoundary(e) {
		return a.Add(b).Mul(0.5)
	}
	c := m.Position(m.ToVertex(m.Next(h)))
	d := m.Position(m.ToVertex(m.Next(o)))
	return a.Add(b).Mul(3.0 / 8.0).Add(c.Add(d).Mul(1.0 / 8.0))
}

// CatmullClarkSubdivide returns a new mesh refining m by one level of
// Catmull-Clark subdivision. Defined for any polygon mesh; always
// produces a mesh of quads.
func CatmullClarkSubdivide(m *halfedge.Mesh) *halfedge.Mesh {
	facePoint := make([]mgl32.Vec3, m.FaceRowCount())
	for i := range facePoint {
		f := halfedge.FaceHandle{Index: uint32(i)}
		if m.IsDeletedFace(f) {
			continue
		}
		facePoint[i] = FaceCentroid(m, f)
	}

	type edgeKey struct{ a, b uint32 }
	normKey := func(a, b halfedge.VertexHandle) edgeKey {
		if a.Index < b.Index {
			return edgeKey{a.Index, b.Index}
		}
		return edgeKey{b.Index, a.Index}
	}

	edgePoint := make(map[edgeKey]mgl32.Vec3)
	for i := 0; i < m.EdgeRowCount(); i++ {
		e := halfedge.EdgeHandle{Index: uint32(i)}
		if m.IsDeletedEdge(e) {
			continue
		}
		h := halfedge.HalfedgeOf(e, 0)
		a, b := m.FromVertex(h), m.ToVertex(h)
		if m.EdgeIsBoundary(e) {
			edgePoint[normKey(a, b)] = m.Position(a).Add(m.Position(b)).Mul(0.5)
			continue
		}
		fa, fb := m.Face(h), m.Face(halfedge.Opposite(h))
		pt := m.Position(a).Add(m.Position(b)).Add(facePoint[fa.Index]).Add(facePoint[fb.Index]).Mul(0.25)
		edgePoint[normKey(a, b)] = pt
	}

	vertexPoint := make([]mgl32.Vec3, m.VertexRowCount())
	for i := range vertexPoint {
		v := halfedge.VertexHandle{Index: uint32(i)}
		if m.IsDeletedVertex(v) {
			continue
		}
		vertexPoint[i] = ccVertexPosition(m, v, facePoint)
	}

	out := halfedge.New()
	newFacePt := make([]halfedge.VertexHandle, len(facePoint))
	for i := range facePoint {
		f := halfedge.FaceHandle{Index: uint32(i)}
		if m.IsDeletedFace(f) {
			continue
		}
		newFacePt[i] = out.AddVertex(facePoint[i])
	}
	newVertexPt := make([]halfedge.VertexHandle, len(vertexPoint))
	for i := range vertexPoint {
		v := halfedge.VertexHandle{Index: uint32(i)}
		if m.IsDeletedVertex(v) {
			continue
		}
		newVertexPt[i] = out.AddVertex(vertexPoint[i])
	}
	newEdgePt := make(map[edgeKey]halfedge.VertexHandle, len(edgePoint))
	for k, pos := range edgePoint {
		newEdgePt[k] = out.AddVertex(pos)
	}

	for i := 0; i < m.FaceRowCount(); i++ {
		f := halfedge.FaceHandle{Index: uint32(i)}
		if m.IsDeletedFace(f) {
			continue
		}
		verts := FaceVertices(m, f)
		n := len(verts)
		fp := newFacePt[i]
		for j := 0; j < n; j++ {
			prev := verts[(j-1+n)%n]
			cur := verts[j]
			next := verts[(j+1)%n]
			ePrev := newEdgePt[normKey(prev, cur)]
			eNext := newEdgePt[normKey(cur, next)]
			out.AddQuad(fp, ePrev, newVertexPt[cur.Index], eNext)
		}
	}
	return out
}

func ccVertexPosition(m *halfedge.Mesh, v halfedge.VertexHandle, facePoint []mgl32.Vec3) mgl32.Vec3 {
	ring := outgoingHalfedges(m, v)
	n := len(ring)
	if n == 0 {
		return m.Position(v)
	}
	if m.VertexIsBoundary(v) {
		var prev, next mgl32.Vec3
		found := 0
		for _, h := range ring {
			if m.IsBoundary(h) {
				next = m.Position(m.ToVertex(h))
				found++
			}
			if m.IsBoundary(halfedge.Opposite(h)) {
				prev = m.Position(m.ToVertex(h))
				found++
			}
		}
		if found < 2 {
			return m.Position(v)
		}
		mids := prev.Add(m.Position(v)).Mul(0.5).Add(next.Add(m.Position(v)).Mul(0.5))
		return m.Position(v).Mul(6).Add(mids).Mul(1.0 / 8.0)
	}

	var favg, ravg mgl32.Vec3
	for _, h := range ring {
		f := m.Face(h)
		if !f.IsNil() {
			favg = favg.Add(facePoint[f.Index])
		}
		fo := m.Face(halfedge.Opposite(h))
		if !fo.IsNil() {
			favg = favg.Add(facePoint[fo.Index])
		}
		ravg = ravg.Add(m.Position(v).Add(m.Position(m.ToVertex(h))).Mul(0.5))
	}
	nf := float32(n)
	favg = favg.Mul(1.0 / (2.0 * nf))
	ravg = ravg.Mul(1.0 / nf)
	p := m.Position(v)
	return favg.Add(ravg.Mul(2)).Add(p.Mul(nf - 3)).Mul(1.0 / nf)
}
