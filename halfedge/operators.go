package halfedge

import "github.com/go-gl/mathgl/mgl32"

// AddVertex appends an isolated vertex at pos.
func (m *Mesh) AddVertex(pos mgl32.Vec3) VertexHandle {
	i := m.vertices.PushRow()
	v := VertexHandle{Index: uint32(i)}
	m.vPoint.Set(i, pos)
	m.vHalfedge.Set(i, NilHalfedge())
	m.vDeleted.Set(i, false)
	return v
}

// newEdge allocates one edge row plus its two halfedge rows, wired as a
// mutual boundary loop (each side's next/prev point at itself) so it can be
// spliced into AddFace's patchwork without special-casing a brand-new edge.
func (m *Mesh) newEdge(from, to VertexHandle) EdgeHandle {
	ei := m.edges.PushRow()
	e := EdgeHandle{Index: uint32(ei)}
	m.eDeleted.Set(ei, false)

	hi := m.halfedges.PushRow()
	m.halfedges.PushRow() // the paired halfedge, index hi+1
	h0 := HalfedgeHandle{Index: uint32(hi)}
	h1 := Opposite(h0)

	m.setVertex(h0, to)
	m.setVertex(h1, from)
	m.setFace(h0, NilFace())
	m.setFace(h1, NilFace())
	m.setNext(h0, h1)
	m.setNext(h1, h0)
	return e
}

// AddTriangle adds a face bounded by a, b, c (in order) if doing so keeps
// the mesh manifold; otherwise it returns (NilFace(), false), matching the
// spec's "None on non-manifold edge" failure semantics.
func (m *Mesh) AddTriangle(a, b, c VertexHandle) (FaceHandle, bool) {
	return m.AddFace([]VertexHandle{a, b, c})
}

// AddQuad adds a face bounded by a, b, c, d (in order).
func (m *Mesh) AddQuad(a, b, c, d VertexHandle) (FaceHandle, bool) {
	return m.AddFace([]VertexHandle{a, b, c, d})
}

type nextLink struct{ from, to HalfedgeHandle }

// AddFace is the general polygon-insertion operator Triangle/Quad build on.
// It follows the classical halfedge construction: reuse any halfedges that
// already exist between consecutive vertices (failing if one is already
// interior), relink surrounding boundary patches around any gap, allocate
// edges for the remaining new sides, then stitch the face's loop and patch
// every affected vertex's boundary splice.
func (m *Mesh) AddFace(verts []VertexHandle) (FaceHandle, bool) {
	n := len(verts)
	if n < 3 {
		return NilFace(), false
	}

	halfedges := make([]HalfedgeHandle, n)
	isNew := make([]bool, n)
	needsAdjust := make([]bool, n)

	for i := 0; i < n; i++ {
		v0, v1 := verts[i], verts[(i+1)%n]
		if !m.IsIsolated(v0) && !m.VertexIsBoundary(v0) {
			return NilFace(), false
		}
		h, found := m.FindHalfedge(v0, v1)
		halfedges[i] = h
		isNew[i] = !found
		if found && !m.IsBoundary(h) {
			return NilFace(), false
		}
	}

	var links []nextLink

	// Relink existing patches that aren't already adjacent in the boundary
	// cycle, so the new face's inner loop can be spliced in without
	// orphaning the rest of each vertex's boundary fan.
	for i := 0; i < n; i++ {
		ii := (i + 1) % n
		if isNew[i] || isNew[ii] {
			continue
		}
		innerPrev, innerNext := halfedges[i], halfedges[ii]
		if m.Next(innerPrev) == innerNext {
			continue
		}

		outerPrev := Opposite(innerNext)
		outerNext := Opposite(innerPrev)

		boundaryPrev := outerPrev
		limit := m.HalfedgeCount() + 1
		for k := 0; k < limit; k++ {
			boundaryPrev = Opposite(m.Next(boundaryPrev))
			if m.IsBoundary(boundaryPrev) && boundaryPrev != innerPrev {
				break
			}
		}
		boundaryNext := m.Next(boundaryPrev)
		if boundaryNext == innerNext {
			return NilFace(), false
		}

		patchStart := m.Next(innerPrev)
		patchEnd := m.Prev(innerNext)

		links = append(links,
			nextLink{boundaryPrev, patchStart},
			nextLink{patchEnd, boundaryNext},
			nextLink{innerPrev, innerNext},
		)
	}

	// Allocate edges for the sides that don't exist yet.
	for i := 0; i < n; i++ {
		if isNew[i] {
			ii := (i + 1) % n
			e := m.newEdge(verts[i], verts[ii])
			halfedges[i] = HalfedgeOf(e, 0)
		}
	}

	fi := m.faces.PushRow()
	f := FaceHandle{Index: uint32(fi)}
	m.fDeleted.Set(fi, false)
	m.fHalfedge.Set(fi, halfedges[n-1])

	for i := 0; i < n; i++ {
		ii := (i + 1) % n
		v := verts[ii]
		innerPrev, innerNext := halfedges[i], halfedges[ii]

		id := 0
		if isNew[i] {
			id |= 1
		}
		if isNew[ii] {
			id |= 2
		}

		if id != 0 {
			outerPrev := Opposite(innerNext)
			outerNext := Opposite(innerPrev)

			switch id {
			case 1: // prev is new, next is old
				boundaryPrev := m.Prev(innerNext)
				links = append(links, nextLink{boundaryPrev, outerNext})
				m.setVertexHalfedge(v, outerNext)
			case 2: // next is new, prev is old
				boundaryNext := m.Next(innerPrev)
				links = append(links, nextLink{outerPrev, boundaryNext})
				m.setVertexHalfedge(v, boundaryNext)
			case 3: // both new
				if m.VertexHalfedge(v).IsNil() {
					m.setVertexHalfedge(v, outerNext)
					links = append(links, nextLink{outerPrev, outerNext})
				} else {
					boundaryNext := m.VertexHalfedge(v)
					boundaryPrev := m.Prev(boundaryNext)
					links = append(links, nextLink{boundaryPrev, outerNext}, nextLink{outerPrev, boundaryNext})
				}
			}
			links = append(links, nextLink{innerPrev, innerNext})
		} else {
			needsAdjust[ii] = m.VertexHalfedge(v) == innerNext
		}

		m.setFace(halfedges[i], f)
	}

	for _, l := range links {
		m.setNext(l.from, l.to)
	}

	for i := 0; i < n; i++ {
		if needsAdjust[i] {
			m.adjustOutgoingHalfedge(verts[i])
		}
	}

	return f, true
}

// Split inserts a vertex at midpoint on e's line, splitting every incident
// (non-boundary) face into two along the new edge. Returns the new vertex.
func (m *Mesh) Split(e EdgeHandle, midpoint mgl32.Vec3) VertexHandle {
	h0 := HalfedgeOf(e, 0)
	h1 := HalfedgeOf(e, 1)
	v2 := m.ToVertex(h0)

	vNew := m.AddVertex(midpoint)

	o0 := m.Next(h0)
	o1 := m.Next(h1)

	// h0 now runs v0 -> vNew instead of v0 -> v2; a fresh edge closes
	// vNew -> v2 on h0's old side.
	eNew := m.newEdge(vNew, v2)
	hNew0 := HalfedgeOf(eNew, 0)
	hNew1 := HalfedgeOf(eNew, 1)

	m.setVertex(h0, vNew)
	m.setVertexHalfedge(vNew, hNew0)

	m.setFace(hNew0, m.Face(h0))
	m.setNext(h0, hNew0)
	m.setNext(hNew0, o0)
	m.setNext(m.Prev(o0), hNew0)
	if f := m.Face(h0); !f.IsNil() {
		m.fHalfedge.Set(int(f.Index), h0)
	}

	m.setFace(hNew1, m.Face(h1))
	m.setNext(hNew1, h1)
	m.setNext(o1, hNew1)
	m.setVertex(hNew1, v2)
	if v2h := m.VertexHalfedge(v2); v2h == h1 {
		m.setVertexHalfedge(v2, hNew1)
	}
	if f := m.Face(h1); !f.IsNil() {
		m.fHalfedge.Set(int(f.Index), hNew1)
	}

	m.triangulateSplitFace(m.Face(h0), h0, hNew0)
	m.triangulateSplitFace(m.Face(hNew1), hNew1, h1)

	return vNew
}

// triangulateSplitFace closes the quadrilateral gap Split leaves behind in
// a face that was a triangle before the split, by adding the diagonal from
// the opposite vertex to the new midpoint vertex. Boundary faces (f
// invalid) are left as-is: there is nothing to re-triangulate.
func (m *Mesh) triangulateSplitFace(f FaceHandle, hStart, hEnd HalfedgeHandle) {
	if f.IsNil() {
		return
	}
	// hStart..hEnd is the two-edge run (old-shortened-edge, new-edge) that
	// now bounds a quad together with the face's other two original edges.
	// Only triangulate if the loop starting at hEnd has exactly 4 edges
	// (i.e. the face used to be a triangle); larger polygons are left as
	// wider polygons rather than guessing a fan.
	count := 0
	h := hStart
	limit := m.HalfedgeCount() + 1
	for i := 0; i < limit; i++ {
		count++
		h = m.Next(h)
		if h == hStart {
			break
		}
	}
	if count != 4 {
		return
	}

	a := m.ToVertex(hStart)  // new midpoint vertex
	mid := m.Next(hEnd)      // third original edge
	c := m.ToVertex(mid)     // far vertex of the original triangle

	diagEdge := m.newEdge(a, c)
	d0 := HalfedgeOf(diagEdge, 0) // a -> c
	d1 := HalfedgeOf(diagEdge, 1) // c -> a

	after := m.Next(mid) // back to hStart

	fi2 := m.faces.PushRow()
	f2 := FaceHandle{Index: uint32(fi2)}
	m.fDeleted.Set(fi2, false)

	// New face: hStart, d0, after (a -> c -> back to a's predecessor side).
	m.setFace(hStart, f)
	m.setNext(hStart, d0)
	m.setVertex(d0, c)
	m.setFace(d0, f)
	m.setNext(d0, after)
	m.setFace(after, f)
	m.fHalfedge.Set(int(f.Index), hStart)

	// Second face: hEnd, mid, d1.
	m.setFace(hEnd, f2)
	m.setNext(hEnd, mid)
	m.setFace(mid, f2)
	m.setNext(mid, d1)
	m.setVertex(d1, a)
	m.setFace(d1, f2)
	m.setNext(d1, hEnd)
	m.fHalfedge.Set(int(f2.Index), hEnd)
}

// IsCollapseOk reports whether e satisfies the link condition: the
// intersection of the 1-rings of its two endpoints is exactly the two
// opposite vertices of e's incident triangles for an interior edge, or just
// the one opposite vertex of the single incident triangle for a boundary
// edge.
func (m *Mesh) IsCollapseOk(e EdgeHandle) bool {
	if m.IsDeletedEdge(e) {
		return false
	}
	h := HalfedgeOf(e, 0)
	o := Opposite(h)
	v0 := m.FromVertex(h)
	v1 := m.ToVertex(h)
	if v0 == v1 {
		return false
	}

	var expect []VertexHandle
	if !m.IsBoundary(h) {
		expect = append(expect, m.ToVertex(m.Next(h)))
	}
	if !m.IsBoundary(o) {
		expect = append(expect, m.ToVertex(m.Next(o)))
	}
	if len(expect) == 0 {
		return false
	}

	ring0 := m.oneRingVertices(v0)
	ring1 := m.oneRingVertices(v1)
	shared := make(map[VertexHandle]struct{})
	for v := range ring0 {
		if _, ok := ring1[v]; ok {
			shared[v] = struct{}{}
		}
	}

	if len(shared) != len(expect) {
		return false
	}
	for _, v := range expect {
		if _, ok := shared[v]; !ok {
			return false
		}
	}
	return true
}

// Collapse merges e's two endpoints into one vertex at targetPos, keeping
// the to-vertex of e's primary halfedge and deleting the from-vertex plus
// e and (if either incident face degenerates to a 2-gon) its vestigial
// edges. Returns (NilVertex(), false) if is_collapse_ok(e) fails.
func (m *Mesh) Collapse(e EdgeHandle, targetPos mgl32.Vec3) (VertexHandle, bool) {
	if !m.IsCollapseOk(e) {
		return NilVertex(), false
	}
	h0 := HalfedgeOf(e, 0)
	vGone := m.FromVertex(h0)
	vKeep := m.ToVertex(h0)

	m.removeEdge(h0)
	m.SetPosition(vKeep, targetPos)

	m.vDeleted.Set(int(vGone.Index), true)
	m.deletedVertices++
	m.eDeleted.Set(int(e.Index), true)
	m.deletedEdges++
	m.hasGarbage = true

	return vKeep, true
}

// removeEdge is the core of Collapse: it redirects every halfedge that
// pointed at h's from-vertex to point at its to-vertex instead, splices h's
// neighbors out of both vertices' rings, and collapses either incident
// face down to a simple edge (removing the now-degenerate triangle) when
// the collapse leaves it with only two sides.
func (m *Mesh) removeEdge(h HalfedgeHandle) {
	o := Opposite(h)
	hn, hp := m.Next(h), m.Prev(h)
	on, op := m.Next(o), m.Prev(o)
	fh, fo := m.Face(h), m.Face(o)
	vKeep := m.ToVertex(h)
	vGone := m.ToVertex(o)

	for _, out := range m.outgoingRing(vGone) {
		m.setVertex(Opposite(out), vKeep)
	}

	m.setNext(hp, hn)
	m.setNext(op, on)

	if !fh.IsNil() {
		m.fHalfedge.Set(int(fh.Index), hn)
	}
	if !fo.IsNil() {
		m.fHalfedge.Set(int(fo.Index), on)
	}

	if m.VertexHalfedge(vKeep) == o {
		m.setVertexHalfedge(vKeep, hn)
	}
	m.adjustOutgoingHalfedge(vKeep)
	m.setVertexHalfedge(vGone, NilHalfedge())

	m.collapseDegenerateLoop(hn)
	m.collapseDegenerateLoop(on)
}

// collapseDegenerateLoop removes a face that removeEdge has reduced to a
// 2-sided loop (next(next(h)) == h), fusing its two remaining halfedges
// into one edge so the mesh never carries a 2-gon face.
func (m *Mesh) collapseDegenerateLoop(h HalfedgeHandle) {
	if m.Next(m.Next(h)) != h || m.Next(h) == h {
		return
	}
	h1 := m.Next(h)
	o := Opposite(h)
	o1 := Opposite(h1)

	if f := m.Face(h); !f.IsNil() {
		m.fDeleted.Set(int(f.Index), true)
		m.deletedFaces++
		m.hasGarbage = true
	}

	hTo := m.ToVertex(h1)
	hFrom := m.ToVertex(h)

	m.setNext(o1, o)
	m.setVertex(o, hTo)
	m.setVertex(o1, hFrom)

	if m.VertexHalfedge(hTo) == h1 {
		m.setVertexHalfedge(hTo, o)
	}
	if m.VertexHalfedge(hFrom) == h {
		m.setVertexHalfedge(hFrom, o1)
	}

	m.eDeleted.Set(int(EdgeOf(h1).Index), true)
	m.deletedEdges++
	m.hasGarbage = true
}

// IsFlipOk reports whether e may be flipped: both incident faces must
// exist and be triangles, e must not be boundary, and the new diagonal
// must not already exist (else the flip would create a duplicate edge).
func (m *Mesh) IsFlipOk(e EdgeHandle) bool {
	if m.IsDeletedEdge(e) || m.EdgeIsBoundary(e) {
		return false
	}
	h := HalfedgeOf(e, 0)
	o := Opposite(h)
	if !m.isTriangleLoop(h) || !m.isTriangleLoop(o) {
		return false
	}
	c := m.ToVertex(m.Next(h))
	d := m.ToVertex(m.Next(o))
	if c == d {
		return false
	}
	if _, ok := m.FindHalfedge(c, d); ok {
		return false
	}
	return true
}

func (m *Mesh) isTriangleLoop(h HalfedgeHandle) bool {
	return m.Next(m.Next(m.Next(h))) == h
}

// Flip replaces interior edge ab (shared by triangles abc and bad) with cd,
// rebuilding both triangles' connectivity. Returns false if is_flip_ok(e)
// fails.
func (m *Mesh) Flip(e EdgeHandle) bool {
	if !m.IsFlipOk(e) {
		return false
	}
	a0 := HalfedgeOf(e, 0) // a -> b
	b0 := Opposite(a0)     // b -> a

	a1 := m.Next(a0) // b -> c
	a2 := m.Prev(a0) // c -> a
	b1 := m.Next(b0) // a -> d
	b2 := m.Prev(b0) // d -> b

	fa := m.Face(a0)
	fb := m.Face(b0)

	c := m.ToVertex(a1)
	d := m.ToVertex(b1)

	if m.VertexHalfedge(m.ToVertex(a0)) == b0 {
		m.setVertexHalfedge(m.ToVertex(a0), b1)
	}
	if m.VertexHalfedge(m.ToVertex(b0)) == a0 {
		m.setVertexHalfedge(m.ToVertex(b0), a1)
	}

	m.setVertex(a0, d)
	m.setVertex(b0, c)

	m.setNext(a0, a2)
	m.setNext(a2, b1)
	m.setNext(b1, a0)
	m.setFace(a0, fa)
	m.setFace(a2, fa)
	m.setFace(b1, fa)
	m.fHalfedge.Set(int(fa.Index), a0)

	m.setNext(b0, b2)
	m.setNext(b2, a1)
	m.setNext(a1, b0)
	m.setFace(b0, fb)
	m.setFace(b2, fb)
	m.setFace(a1, fb)
	m.fHalfedge.Set(int(fb.Index), b0)

	return true
}

// DeleteFace removes f, turning its boundary loop back into boundary
// halfedges, without touching its vertices or edges (any edge shared with a
// surviving neighbor face stays interior on that side). The face's own
// halfedge Next chain already forms a valid cyclic loop, so unlike Collapse
// no relinking is needed beyond clearing each halfedge's face and making
// sure their vertices' representative halfedge still resolves to a
// boundary one. Returns false for an already-deleted or nil face.
func (m *Mesh) DeleteFace(f FaceHandle) bool {
	if f.IsNil() || m.IsDeletedFace(f) {
		return false
	}
	h0 := m.FaceHalfedge(f)
	if h0.IsNil() {
		return false
	}

	h := h0
	limit := m.HalfedgeCount() + 1
	touched := make([]VertexHandle, 0, 4)
	for i := 0; i < limit; i++ {
		m.setFace(h, NilFace())
		touched = append(touched, m.ToVertex(h))
		h = m.Next(h)
		if h == h0 {
			break
		}
	}

	m.fDeleted.Set(int(f.Index), true)
	m.deletedFaces++
	m.hasGarbage = true

	for _, v := range touched {
		m.adjustOutgoingHalfedge(v)
	}
	return true
}
