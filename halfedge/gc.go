package halfedge

import "github.com/intrinsic3d/enginecore/property"

// Remap carries the old-index -> new-handle tables GarbageCollect produces,
// so callers holding handles from before a collect can fix them up (a
// removed row maps to the corresponding Nil handle).
type Remap struct {
	Vertices []VertexHandle
	Edges    []EdgeHandle
	Faces    []FaceHandle
}

// GarbageCollect compacts every deleted vertex, edge (with its two
// halfedges) and face, swapping live rows down over dead ones two-pointer
// style rather than doing a full stable-sort rebuild. It is a no-op if
// nothing has been deleted since construction or the last collect.
func (m *Mesh) GarbageCollect() Remap {
	if !m.hasGarbage {
		n := m.vertices.Len()
		identity := make([]VertexHandle, n)
		for i := range identity {
			identity[i] = VertexHandle{Index: uint32(i)}
		}
		en := m.edges.Len()
		edgeIdentity := make([]EdgeHandle, en)
		for i := range edgeIdentity {
			edgeIdentity[i] = EdgeHandle{Index: uint32(i)}
		}
		fn := m.faces.Len()
		faceIdentity := make([]FaceHandle, fn)
		for i := range faceIdentity {
			faceIdentity[i] = FaceHandle{Index: uint32(i)}
		}
		return Remap{Vertices: identity, Edges: edgeIdentity, Faces: faceIdentity}
	}

	nV := m.vertices.Len()
	nE := m.edges.Len()
	nF := m.faces.Len()

	vmapCol := property.Add(m.vertices, "tmp:vmap", 0)
	for i := 0; i < nV; i++ {
		vmapCol.Set(i, i)
	}
	emapCol := property.Add(m.edges, "tmp:emap", 0)
	for i := 0; i < nE; i++ {
		emapCol.Set(i, i)
	}
	fmapCol := property.Add(m.faces, "tmp:fmap", 0)
	for i := 0; i < nF; i++ {
		fmapCol.Set(i, i)
	}
	// hmap tracks, per halfedge slot, which original halfedge index now
	// lives there; it moves in lockstep with edge-pair swaps.
	hmap := make([]int, 2*nE)
	for i := range hmap {
		hmap[i] = i
	}

	// Compact vertices.
	newVCount := nV
	if nV > 0 {
		i, j := 0, nV-1
		for i <= j {
			for i <= j && !m.vDeleted.Get(i) {
				i++
			}
			for i <= j && m.vDeleted.Get(j) {
				j--
			}
			if i < j {
				m.vertices.Swap(i, j)
				i++
				j--
			}
		}
		newVCount = i
	}

	vOldAt := make([]int, newVCount)
	for k := 0; k < newVCount; k++ {
		vOldAt[k] = vmapCol.Get(k)
	}

	// Compact edges, swapping each edge's two halfedge rows alongside it.
	newECount := nE
	if nE > 0 {
		i, j := 0, nE-1
		for i <= j {
			for i <= j && !m.eDeleted.Get(i) {
				i++
			}
			for i <= j && m.eDeleted.Get(j) {
				j--
			}
			if i < j {
				m.edges.Swap(i, j)
				m.halfedges.Swap(2*i, 2*j)
				m.halfedges.Swap(2*i+1, 2*j+1)
				hmap[2*i], hmap[2*j] = hmap[2*j], hmap[2*i]
				hmap[2*i+1], hmap[2*j+1] = hmap[2*j+1], hmap[2*i+1]
				i++
				j--
			}
		}
		newECount = i
	}
	newHCount := 2 * newECount

	hOldAt := make([]int, newHCount)
	copy(hOldAt, hmap[:newHCount])

	// Compact faces.
	newFCount := nF
	if nF > 0 {
		i, j := 0, nF-1
		for i <= j {
			for i <= j && !m.fDeleted.Get(i) {
				i++
			}
			for i <= j && m.fDeleted.Get(j) {
				j--
			}
			if i < j {
				m.faces.Swap(i, j)
				i++
				j--
			}
		}
		newFCount = i
	}

	fOldAt := make([]int, newFCount)
	for k := 0; k < newFCount; k++ {
		fOldAt[k] = fmapCol.Get(k)
	}

	// Build old-index -> new-handle remap tables (Nil for removed rows).
	vNewOf := make([]VertexHandle, nV)
	for k := range vNewOf {
		vNewOf[k] = NilVertex()
	}
	for k := 0; k < newVCount; k++ {
		vNewOf[vOldAt[k]] = VertexHandle{Index: uint32(k)}
	}

	hNewOf := make([]HalfedgeHandle, 2*nE)
	for k := range hNewOf {
		hNewOf[k] = NilHalfedge()
	}
	for k := 0; k < newHCount; k++ {
		hNewOf[hOldAt[k]] = HalfedgeHandle{Index: uint32(k)}
	}

	eOldAt := make([]int, newECount)
	for k := 0; k < newECount; k++ {
		eOldAt[k] = emapCol.Get(k)
	}
	eNewOf := make([]EdgeHandle, nE)
	for k := range eNewOf {
		eNewOf[k] = NilEdge()
	}
	for k := 0; k < newECount; k++ {
		eNewOf[eOldAt[k]] = EdgeHandle{Index: uint32(k)}
	}

	// Fix up connectivity through the remap tables.
	for v := 0; v < newVCount; v++ {
		old := m.VertexHalfedge(VertexHandle{Index: uint32(v)})
		if !old.IsNil() {
			m.setVertexHalfedge(VertexHandle{Index: uint32(v)}, hNewOf[old.Index])
		}
	}
	for h := 0; h < newHCount; h++ {
		hh := HalfedgeHandle{Index: uint32(h)}
		oldTo := m.ToVertex(hh)
		if !oldTo.IsNil() {
			m.setVertex(hh, vNewOf[oldTo.Index])
		}
		if n := m.Next(hh); !n.IsNil() {
			m.hNext.Set(h, hNewOf[n.Index])
		}
		if p := m.Prev(hh); !p.IsNil() {
			m.hPrev.Set(h, hNewOf[p.Index])
		}
	}
	for f := 0; f < newFCount; f++ {
		ff := FaceHandle{Index: uint32(f)}
		if old := m.FaceHalfedge(ff); !old.IsNil() {
			m.fHalfedge.Set(f, hNewOf[old.Index])
		}
	}

	vbID, _ := m.vertices.ColumnID("tmp:vmap")
	m.vertices.RemoveColumn(vbID)
	ebID, _ := m.edges.ColumnID("tmp:emap")
	m.edges.RemoveColumn(ebID)
	fbID, _ := m.faces.ColumnID("tmp:fmap")
	m.faces.RemoveColumn(fbID)

	m.vertices.Resize(newVCount)
	m.halfedges.Resize(newHCount)
	m.edges.Resize(newECount)
	m.faces.Resize(newFCount)

	m.deletedVertices = 0
	m.deletedEdges = 0
	m.deletedFaces = 0
	m.hasGarbage = false

	faceRemap := make([]FaceHandle, nF)
	for k := range faceRemap {
		faceRemap[k] = NilFace()
	}
	for k := 0; k < newFCount; k++ {
		faceRemap[fOldAt[k]] = FaceHandle{Index: uint32(k)}
	}

	return Remap{Vertices: vNewOf, Edges: eNewOf, Faces: faceRemap}
}
