package geom

import (
	"math"
	"strconv"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"

	"github.com/intrinsic3d/enginecore/halfedge"
)

// BoundaryLoops returns every distinct boundary loop of m as a sequence of
// vertices in boundary-walk order. A closed manifold mesh returns none.
func BoundaryLoops(m *halfedge.Mesh) [][]halfedge.VertexHandle {
	visited := make(map[halfedge.HalfedgeHandle]bool)
	var loops [][]halfedge.VertexHandle

	limit := m.HalfedgeCount() + 1
	for i := 0; i < m.HalfedgeCount(); i++ {
		h0 := halfedge.HalfedgeHandle{Index: uint32(i)}
		if visited[h0] || !m.IsBoundary(h0) {
			continue
		}
		var loop []halfedge.VertexHandle
		h := h0
		for n := 0; n < limit; n++ {
			visited[h] = true
			loop = append(loop, m.ToVertex(h))
			h = m.Next(h)
			if h == h0 {
				break
			}
		}
		if len(loop) >= 3 {
			loops = append(loops, loop)
		}
	}
	return loops
}

// FillHole closes loop (as returned by BoundaryLoops) by ear clipping: at
// each step the vertex with the smallest interior angle is clipped into a
// triangle first, since a narrow ear is the one least likely to overlap the
// rest of the polygon. A candidate ear is not tested for intersection with
// the remaining loop, so large non-planar holes can be filled with
// overlapping triangles. Returns the number of triangles added; stops short
// of fully closing a hole whose remaining ears are all non-manifold against
// the existing mesh (e.g. a self-intersecting or highly non-planar
// boundary), a known limitation rather than a crash.
func FillHole(m *halfedge.Mesh, loop []halfedge.VertexHandle) int {
	verts := append([]halfedge.VertexHandle(nil), loop...)
	added := 0

	for len(verts) > 2 {
		n := len(verts)
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sortByAngle(m, verts, order)

		clipped := false
		for _, i := range order {
			n = len(verts)
			prev := verts[(i-1+n)%n]
			cur := verts[i]
			next := verts[(i+1)%n]
			if _, ok := m.AddTriangle(prev, cur, next); ok {
				verts = append(append([]halfedge.VertexHandle{}, verts[:i]...), verts[i+1:]...)
				added++
				clipped = true
				break
			}
		}
		if !clipped {
			break
		}
	}
	return added
}

func sortByAngle(m *halfedge.Mesh, verts []halfedge.VertexHandle, order []int) {
	n := len(verts)
	angle := make([]float32, n)
	for i := range verts {
		prev := verts[(i-1+n)%n]
		cur := verts[i]
		next := verts[(i+1)%n]
		a := m.Position(prev).Sub(m.Position(cur))
		b := m.Position(next).Sub(m.Position(cur))
		angle[i] = float32(math.Atan2(float64(a.Cross(b).Len()), float64(a.Dot(b))))
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && angle[order[j]] < angle[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}

// RemoveDegenerateFaces deletes every face whose area is at or below
// threshold, returning the count removed.
func RemoveDegenerateFaces(m *halfedge.Mesh, threshold float32) int {
	count := 0
	for i := 0; i < m.FaceRowCount(); i++ {
		f := halfedge.FaceHandle{Index: uint32(i)}
		if m.IsDeletedFace(f) {
			continue
		}
		if FaceArea(m, f) <= threshold {
			if m.DeleteFace(f) {
				count++
			}
		}
	}
	return count
}

// OrientTriangleSoup takes raw triangles, each a [3]int index into a shared
// vertex list with arbitrary per-triangle winding, and returns windings
// flipped so that within each connected component every pair of
// edge-adjacent triangles traverses their shared edge in opposite
// directions — the orientation a halfedge mesh requires before the
// triangles can all be inserted via Mesh.AddFace without a manifold
// rejection. Orientation propagates outward from an arbitrary seed triangle
// per component via breadth-first search over the triangle-adjacency
// graph.
func OrientTriangleSoup(triangles [][3]int) [][3]int {
	n := len(triangles)
	out := make([][3]int, n)
	copy(out, triangles)
	if n == 0 {
		return out
	}

	edgeOwners := make(map[[2]int][]int, n*3)
	undirected := func(a, b int) [2]int {
		if a > b {
			a, b = b, a
		}
		return [2]int{a, b}
	}
	for ti, t := range triangles {
		edgeOwners[undirected(t[0], t[1])] = append(edgeOwners[undirected(t[0], t[1])], ti)
		edgeOwners[undirected(t[1], t[2])] = append(edgeOwners[undirected(t[1], t[2])], ti)
		edgeOwners[undirected(t[2], t[0])] = append(edgeOwners[undirected(t[2], t[0])], ti)
	}

	g := core.NewGraph()
	for i := 0; i < n; i++ {
		g.AddVertex(strconv.Itoa(i))
	}
	seenPair := make(map[[2]int]bool)
	for _, owners := range edgeOwners {
		for i := 0; i < len(owners); i++ {
			for j := i + 1; j < len(owners); j++ {
				pair := undirected(owners[i], owners[j])
				if seenPair[pair] {
					continue
				}
				seenPair[pair] = true
				g.AddEdge(strconv.Itoa(pair[0]), strconv.Itoa(pair[1]), 0)
			}
		}
	}

	visited := make([]bool, n)
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		result, err := bfs.BFS(g, strconv.Itoa(start))
		if err != nil {
			visited[start] = true
			continue
		}
		for _, id := range result.Order {
			idx, _ := strconv.Atoi(id)
			visited[idx] = true
			parentID := result.Parent[id]
			if parentID == "" {
				continue
			}
			pIdx, _ := strconv.Atoi(parentID)
			if !trianglesAgree(out[pIdx], out[idx]) {
				out[idx] = [3]int{out[idx][0], out[idx][2], out[idx][1]}
			}
		}
	}
	return out
}

// trianglesAgree reports whether b's winding is consistent with an already
// oriented neighbor a across their shared edge: consistent orientation
// requires the shared edge run in opposite directions in the two
// triangles' vertex cycles.
func trianglesAgree(a, b [3]int) bool {
	edgesOf := func(t [3]int) [3][2]int {
		return [3][2]int{{t[0], t[1]}, {t[1], t[2]}, {t[2], t[0]}}
	}
	ae, be := edgesOf(a), edgesOf(b)
	for _, e1 := range ae {
		for _, e2 := range be {
			if e1[0] == e2[1] && e1[1] == e2[0] {
				return true
			}
			if e1[0] == e2[0] && e1[1] == e2[1] {
				return false
			}
		}
	}
	return true
}
