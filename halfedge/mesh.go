// Package halfedge implements a property-backed halfedge mesh: vertices,
// halfedges, edges and faces are rows in parallel property.Registry
// instances, addressed by handle.Handle. Connectivity follows the classic
// halfedge layout: a
// halfedge's opposite is its index XOR 1, its owning edge is its index
// shifted right by one, and a halfedge is boundary iff its face handle is
// invalid.
package halfedge

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/intrinsic3d/enginecore/handle"
	"github.com/intrinsic3d/enginecore/property"
)

// Tag marker types, kept private: callers only ever see the Vertex/
// Halfedge/Edge/Face handle aliases below.
type (
	vertexTag   struct{}
	halfedgeTag struct{}
	edgeTag     struct{}
	faceTag     struct{}
)

type (
	VertexHandle   = handle.Handle[vertexTag]
	HalfedgeHandle = handle.Handle[halfedgeTag]
	EdgeHandle     = handle.Handle[edgeTag]
	FaceHandle     = handle.Handle[faceTag]
)

func NilVertex() VertexHandle     { return handle.Nil[vertexTag]() }
func NilHalfedge() HalfedgeHandle { return handle.Nil[halfedgeTag]() }
func NilEdge() EdgeHandle         { return handle.Nil[edgeTag]() }
func NilFace() FaceHandle         { return handle.Nil[faceTag]() }

// Mesh is a halfedge mesh: four property registries (vertices, halfedges,
// edges, faces) kept in sync by the operators below. Rows are never
// physically shifted except by GarbageCollect; deletion marks a row and
// leaves its slot in place so outstanding handles remain valid (if stale)
// until the next collect.
type Mesh struct {
	vertices  *property.Registry
	halfedges *property.Registry
	edges     *property.Registry
	faces     *property.Registry

	vPoint    *property.Column[mgl32.Vec3]
	vHalfedge *property.Column[HalfedgeHandle]
	vDeleted  *property.Column[bool]

	hVertex *property.Column[VertexHandle] // the vertex this halfedge points TO
	hNext   *property.Column[HalfedgeHandle]
	hPrev   *property.Column[HalfedgeHandle]
	hFace   *property.Column[FaceHandle]

	eDeleted *property.Column[bool]

	fHalfedge *property.Column[HalfedgeHandle]
	fDeleted  *property.Column[bool]

	deletedVertices int
	deletedEdges    int
	deletedFaces    int
	hasGarbage      bool
}

// New creates an empty mesh with its property columns registered.
func New() *Mesh {
	m := &Mesh{
		vertices:  property.NewRegistry(),
		halfedges: property.NewRegistry(),
		edges:     property.NewRegistry(),
		faces:     property.NewRegistry(),
	}
	m.vPoint = property.Add(m.vertices, "v:point", mgl32.Vec3{})
	m.vHalfedge = property.Add(m.vertices, "v:halfedge", NilHalfedge())
	m.vDeleted = property.Add(m.vertices, "v:deleted", false)

	m.hVertex = property.Add(m.halfedges, "h:vertex", NilVertex())
	m.hNext = property.Add(m.halfedges, "h:next", NilHalfedge())
	m.hPrev = property.Add(m.halfedges, "h:prev", NilHalfedge())
	m.hFace = property.Add(m.halfedges, "h:face", NilFace())

	m.eDeleted = property.Add(m.edges, "e:deleted", false)

	m.fHalfedge = property.Add(m.faces, "f:halfedge", NilHalfedge())
	m.fDeleted = property.Add(m.faces, "f:deleted", false)
	return m
}

func (m *Mesh) VertexCount() int   { return m.vertices.Len() - m.deletedVertices }
func (m *Mesh) EdgeCount() int     { return m.edges.Len() - m.deletedEdges }
func (m *Mesh) FaceCount() int     { return m.faces.Len() - m.deletedFaces }
func (m *Mesh) HalfedgeCount() int { return m.halfedges.Len() }

// VertexRowCount, EdgeRowCount and FaceRowCount return the raw registry row
// counts, including rows marked deleted but not yet compacted by
// GarbageCollect. Callers iterating by handle index (geom's mesh-wide
// passes) need these rather than VertexCount/EdgeCount/FaceCount, which
// report the live count and would leave deleted rows' indices unaccounted
// for.
func (m *Mesh) VertexRowCount() int { return m.vertices.Len() }
func (m *Mesh) EdgeRowCount() int   { return m.edges.Len() }
func (m *Mesh) FaceRowCount() int   { return m.faces.Len() }

// --- connectivity primitives, grounded on the Graph opposite/edge layout ---

// Opposite returns h's paired halfedge: indices are allocated in pairs, so
// this is the classic XOR-1 trick rather than a stored column.
func Opposite(h HalfedgeHandle) HalfedgeHandle {
	return HalfedgeHandle{Index: h.Index ^ 1}
}

// EdgeOf returns the edge owning halfedge h.
func EdgeOf(h HalfedgeHandle) EdgeHandle {
	return EdgeHandle{Index: h.Index >> 1}
}

// HalfedgeOf returns side i (0 or 1) of edge e.
func HalfedgeOf(e EdgeHandle, i uint32) HalfedgeHandle {
	return HalfedgeHandle{Index: (e.Index << 1) + i}
}

func (m *Mesh) ToVertex(h HalfedgeHandle) VertexHandle   { return m.hVertex.Get(int(h.Index)) }
func (m *Mesh) FromVertex(h HalfedgeHandle) VertexHandle { return m.ToVertex(Opposite(h)) }
func (m *Mesh) Next(h HalfedgeHandle) HalfedgeHandle      { return m.hNext.Get(int(h.Index)) }
func (m *Mesh) Prev(h HalfedgeHandle) HalfedgeHandle      { return m.hPrev.Get(int(h.Index)) }
func (m *Mesh) Face(h HalfedgeHandle) FaceHandle          { return m.hFace.Get(int(h.Index)) }

func (m *Mesh) setVertex(h HalfedgeHandle, v VertexHandle) { m.hVertex.Set(int(h.Index), v) }
func (m *Mesh) setFace(h HalfedgeHandle, f FaceHandle)     { m.hFace.Set(int(h.Index), f) }

// setNext links h -> n and n's prev back to h, the two halves of one
// doubly-linked splice.
func (m *Mesh) setNext(h, n HalfedgeHandle) {
	m.hNext.Set(int(h.Index), n)
	m.hPrev.Set(int(n.Index), h)
}

// IsBoundary reports whether h has no incident face.
func (m *Mesh) IsBoundary(h HalfedgeHandle) bool { return m.Face(h).IsNil() }

// EdgeIsBoundary reports whether either side of e is boundary.
func (m *Mesh) EdgeIsBoundary(e EdgeHandle) bool {
	return m.IsBoundary(HalfedgeOf(e, 0)) || m.IsBoundary(HalfedgeOf(e, 1))
}

// VertexHalfedge returns v's representative outgoing halfedge.
func (m *Mesh) VertexHalfedge(v VertexHandle) HalfedgeHandle { return m.vHalfedge.Get(int(v.Index)) }
func (m *Mesh) setVertexHalfedge(v VertexHandle, h HalfedgeHandle) {
	m.vHalfedge.Set(int(v.Index), h)
}

// VertexIsBoundary reports whether v lies on a boundary loop.
func (m *Mesh) VertexIsBoundary(v VertexHandle) bool {
	h := m.VertexHalfedge(v)
	if h.IsNil() {
		return false
	}
	return m.IsBoundary(h)
}

func (m *Mesh) IsIsolated(v VertexHandle) bool { return m.VertexHalfedge(v).IsNil() }

// Position returns v's stored point.
func (m *Mesh) Position(v VertexHandle) mgl32.Vec3 { return m.vPoint.Get(int(v.Index)) }
func (m *Mesh) SetPosition(v VertexHandle, p mgl32.Vec3) { m.vPoint.Set(int(v.Index), p) }

func (m *Mesh) IsDeletedVertex(v VertexHandle) bool { return m.vDeleted.Get(int(v.Index)) }
func (m *Mesh) IsDeletedEdge(e EdgeHandle) bool     { return m.eDeleted.Get(int(e.Index)) }
func (m *Mesh) IsDeletedFace(f FaceHandle) bool     { return m.fDeleted.Get(int(f.Index)) }

// FaceHalfedge returns one halfedge of f's boundary loop.
func (m *Mesh) FaceHalfedge(f FaceHandle) HalfedgeHandle { return m.fHalfedge.Get(int(f.Index)) }

// cwRotated walks clockwise around the 1-ring of the vertex h points away
// from: next(opposite(h)). This is the traversal primitive the spec names
// explicitly; every loop built on it is bounded by HalfedgeCount() steps so
// corrupted connectivity aborts instead of spinning forever.
func (m *Mesh) cwRotated(h HalfedgeHandle) HalfedgeHandle {
	return m.Next(Opposite(h))
}

// ccwRotated is cwRotated's inverse: opposite(prev(h)).
func (m *Mesh) ccwRotated(h HalfedgeHandle) HalfedgeHandle {
	return Opposite(m.Prev(h))
}

// Valence returns v's degree (number of incident edges), walking its
// outgoing ring with a safety limit.
func (m *Mesh) Valence(v VertexHandle) int {
	h0 := m.VertexHalfedge(v)
	if h0.IsNil() {
		return 0
	}
	count := 0
	h := h0
	limit := m.HalfedgeCount() + 1
	for {
		count++
		h = m.cwRotated(h)
		if h == h0 || count > limit {
			break
		}
	}
	return count
}

// outgoingRing returns every outgoing halfedge from v's 1-ring, safety
// limited to HalfedgeCount steps.
func (m *Mesh) outgoingRing(v VertexHandle) []HalfedgeHandle {
	h0 := m.VertexHalfedge(v)
	if h0.IsNil() {
		return nil
	}
	var out []HalfedgeHandle
	h := h0
	limit := m.HalfedgeCount() + 1
	for i := 0; i < limit; i++ {
		out = append(out, h)
		h = m.cwRotated(h)
		if h == h0 {
			break
		}
	}
	return out
}

// oneRingVertices returns the set of vertices adjacent to v (its 1-ring).
func (m *Mesh) oneRingVertices(v VertexHandle) map[VertexHandle]struct{} {
	ring := m.outgoingRing(v)
	set := make(map[VertexHandle]struct{}, len(ring))
	for _, h := range ring {
		set[m.ToVertex(h)] = struct{}{}
	}
	return set
}

// FindHalfedge returns the outgoing halfedge from -> to if the edge already
// exists, walking from's outgoing ring.
func (m *Mesh) FindHalfedge(from, to VertexHandle) (HalfedgeHandle, bool) {
	h0 := m.VertexHalfedge(from)
	if h0.IsNil() {
		return NilHalfedge(), false
	}
	h := h0
	limit := m.HalfedgeCount() + 1
	for i := 0; i < limit; i++ {
		if m.ToVertex(h) == to {
			return h, true
		}
		h = m.cwRotated(h)
		if h == h0 {
			break
		}
	}
	return NilHalfedge(), false
}

// adjustOutgoingHalfedge makes sure v's representative halfedge is a
// boundary one if v has any, so downstream boundary-walking code can find
// it starting from any boundary vertex.
func (m *Mesh) adjustOutgoingHalfedge(v VertexHandle) {
	h0 := m.VertexHalfedge(v)
	if h0.IsNil() {
		return
	}
	h := h0
	limit := m.HalfedgeCount() + 1
	for i := 0; i < limit; i++ {
		if m.IsBoundary(h) {
			m.setVertexHalfedge(v, h)
			return
		}
		h = m.cwRotated(h)
		if h == h0 {
			break
		}
	}
}
