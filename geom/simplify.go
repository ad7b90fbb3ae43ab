package geom

import (
	"container/heap"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/intrinsic3d/enginecore/halfedge"
)

// SimplifyResult reports how far simplification progressed.
type SimplifyResult struct {
	CollapsesApplied int
	FacesRemaining   int
	HitErrorCeiling  bool
}

// SimplifyQEM reduces m toward targetFaces using quadric error metric
// collapses: each vertex accumulates the sum-of-squared-plane-distance
// quadric of its incident faces, each edge is scored by the optimal
// contraction cost, and edges are collapsed cheapest-first via a min-heap
// until targetFaces is reached, maxCost is exceeded, or no edge can
// legally collapse. boundaryWeight scales an extra orthogonal-plane
// quadric added at boundary edges so open boundaries resist shrinking.
func SimplifyQEM(m *halfedge.Mesh, targetFaces int, maxCost float32, boundaryWeight float32) SimplifyResult {
	quadrics := make(map[halfedge.VertexHandle]Quadric)
	for i := 0; i < m.VertexRowCount(); i++ {
		v := halfedge.VertexHandle{Index: uint32(i)}
		if m.IsDeletedVertex(v) {
			continue
		}
		quadrics[v] = VertexQuadric(m, v)
	}
	if boundaryWeight > 0 {
		addBoundaryQuadrics(m, quadrics, boundaryWeight)
	}

	version := make(map[halfedge.EdgeHandle]int)
	pq := &edgeHeap{}
	heap.Init(pq)

	pushEdge := func(e halfedge.EdgeHandle) {
		if m.IsDeletedEdge(e) || !m.IsCollapseOk(e) {
			return
		}
		version[e]++
		h := halfedge.HalfedgeOf(e, 0)
		a, b := m.Position(m.FromVertex(h)), m.Position(m.ToVertex(h))
		qv := quadrics[m.FromVertex(h)].Add(quadrics[m.ToVertex(h)])
		target, _ := qv.OptimalPosition(a, b)
		cost := qv.Cost(target)
		heap.Push(pq, edgeEntry{cost: cost, edge: e, version: version[e], target: target})
	}

	for i := 0; i < m.EdgeRowCount(); i++ {
		pushEdge(halfedge.EdgeHandle{Index: uint32(i)})
	}

	result := SimplifyResult{FacesRemaining: m.FaceCount()}
	for pq.Len() > 0 && result.FacesRemaining > targetFaces {
		entry := heap.Pop(pq).(edgeEntry)
		if entry.version != version[entry.edge] {
			continue // stale: edge topology changed since this entry was pushed
		}
		if maxCost > 0 && entry.cost > maxCost {
			result.HitErrorCeiling = true
			break
		}
		if !m.IsCollapseOk(entry.edge) {
			continue
		}

		h := halfedge.HalfedgeOf(entry.edge, 0)
		vGone, vKeep := m.FromVertex(h), m.ToVertex(h)
		incident := append(outgoingHalfedges(m, vGone), outgoingHalfedges(m, vKeep)...)

		mergedQ := quadrics[vGone].Add(quadrics[vKeep])
		kept, ok := m.Collapse(entry.edge, entry.target)
		if !ok {
			continue
		}
		quadrics[kept] = mergedQ
		delete(quadrics, vGone)
		result.CollapsesApplied++
		result.FacesRemaining = m.FaceCount()

		seen := make(map[halfedge.EdgeHandle]struct{})
		for _, out := range incident {
			e := halfedge.EdgeOf(out)
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			pushEdge(e)
		}
	}
	return result
}

// addBoundaryQuadrics adds, for every boundary edge, an extra plane
// quadric orthogonal to the incident face and containing the edge, scaled
// by weight, to both endpoints — a standard QEM boundary-preservation
// constraint (Garland & Heckbert).
func addBoundaryQuadrics(m *halfedge.Mesh, quadrics map[halfedge.VertexHandle]Quadric, weight float32) {
	for i := 0; i < m.EdgeRowCount(); i++ {
		e := halfedge.EdgeHandle{Index: uint32(i)}
		if m.IsDeletedEdge(e) || !m.EdgeIsBoundary(e) {
			continue
		}
		h := halfedge.HalfedgeOf(e, 0)
		if m.IsBoundary(h) {
			h = halfedge.HalfedgeOf(e, 1)
		}
		f := m.Face(h)
		if f.IsNil() {
			continue
		}
		a := m.Position(m.FromVertex(h))
		b := m.Position(m.ToVertex(h))
		edgeDir := b.Sub(a)
		if edgeDir.Len() == 0 {
			continue
		}
		edgeDir = edgeDir.Normalize()
		faceN := FaceNormal(m, f)
		finNormal := edgeDir.Cross(faceN)
		if finNormal.Len() == 0 {
			continue
		}
		finNormal = finNormal.Normalize()
		q := scaleQuadric(PlaneQuadric(finNormal, a), weight)
		quadrics[m.FromVertex(h)] = quadrics[m.FromVertex(h)].Add(q)
		quadrics[m.ToVertex(h)] = quadrics[m.ToVertex(h)].Add(q)
	}
}

func scaleQuadric(q Quadric, s float32) Quadric {
	return Quadric{
		a: q.a * s, b: q.b * s, c: q.c * s, d: q.d * s,
		e: q.e * s, f: q.f * s, g: q.g * s,
		h: q.h * s, i: q.i * s,
		j: q.j * s,
	}
}

type edgeEntry struct {
	cost    float32
	edge    halfedge.EdgeHandle
	version int
	target  mgl32.Vec3
}

type edgeHeap []edgeEntry

func (h edgeHeap) Len() int            { return len(h) }
func (h edgeHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h edgeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *edgeHeap) Push(x interface{}) { *h = append(*h, x.(edgeEntry)) }
func (h *edgeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
