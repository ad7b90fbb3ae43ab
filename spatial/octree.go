package spatial

import (
	"container/heap"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// SplitPoint selects how an octree node's split point is chosen.
type SplitPoint int

const (
	SplitCenter SplitPoint = iota
	SplitMean
	SplitMedian
)

// SplitPolicy configures octree subdivision.
type SplitPolicy struct {
	SplitPoint    SplitPoint
	TightChildren bool // shrink child AABBs tightly around their contents
	Epsilon       float32
}

const invalidNode = ^uint32(0)

// octreeNode is either a leaf owning a contiguous element-index range, or an
// internal node whose up-to-8 children are stored contiguously starting at
// baseChild; childMask's bit i tells whether octant i exists.
type octreeNode struct {
	aabb            AABB
	firstElement    uint32
	numElements     uint32
	numStraddlers   uint32
	childMask       uint8
	baseChild       uint32
	isLeaf          bool
}

func (n *octreeNode) childExists(i int) bool { return n.childMask&(1<<uint(i)) != 0 }

// Octree is a sparse, pointer-free octree over a static set of element
// AABBs: nodes and the shared element-index permutation live in flat
// slices, and internal nodes may own "straddler" elements that overlap more
// than one octant (stored at the front of the node's own index range).
type Octree struct {
	elementAabbs   []AABB
	elementIndices []int
	nodes          []octreeNode
	policy         SplitPolicy
	maxPerNode     int
	maxDepth       int
}

// NewOctree creates an empty, unbuilt octree.
func NewOctree() *Octree { return &Octree{} }

// Build constructs the tree over elementAabbs. Returns false if elementAabbs
// is empty.
func (o *Octree) Build(elementAabbs []AABB, policy SplitPolicy, maxElementsPerNode, maxDepth int) bool {
	if len(elementAabbs) == 0 {
		return false
	}
	o.elementAabbs = elementAabbs
	o.policy = policy
	o.maxPerNode = maxElementsPerNode
	o.maxDepth = maxDepth

	o.elementIndices = make([]int, len(elementAabbs))
	for i := range o.elementIndices {
		o.elementIndices[i] = i
	}

	o.nodes = make([]octreeNode, 1, len(elementAabbs)/4+1)
	o.nodes[0] = octreeNode{
		firstElement: 0,
		numElements:  uint32(len(elementAabbs)),
		aabb:         UnionAll(elementAabbs),
	}

	scratch := make([]int, 0, len(o.elementIndices))
	o.subdivide(0, 0, &scratch)
	return true
}

func (o *Octree) subdivide(nodeIdx uint32, depth int, scratch *[]int) {
	nodeAabb := o.nodes[nodeIdx].aabb
	first := o.nodes[nodeIdx].firstElement
	count := o.nodes[nodeIdx].numElements

	if depth >= o.maxDepth || int(count) <= o.maxPerNode {
		o.nodes[nodeIdx].isLeaf = true
		return
	}

	sp := o.chooseSplitPoint(nodeIdx)
	for ax := 0; ax < 3; ax++ {
		lo, hi := nodeAabb.Min[ax], nodeAabb.Max[ax]
		if sp[ax] <= lo || sp[ax] >= hi {
			sp[ax] = 0.5 * (lo + hi)
		}
		if sp[ax] == lo {
			sp[ax] = float32(math.Nextafter(float64(sp[ax]), float64(hi)))
		} else if sp[ax] == hi {
			sp[ax] = float32(math.Nextafter(float64(sp[ax]), float64(lo)))
		}
	}

	var octantAabbs [8]AABB
	for j := 0; j < 8; j++ {
		childMin := mgl32.Vec3{
			pick(j&1 != 0, sp[0], nodeAabb.Min[0]),
			pick(j&2 != 0, sp[1], nodeAabb.Min[1]),
			pick(j&4 != 0, sp[2], nodeAabb.Min[2]),
		}
		childMax := mgl32.Vec3{
			pick(j&1 != 0, nodeAabb.Max[0], sp[0]),
			pick(j&2 != 0, nodeAabb.Max[1], sp[1]),
			pick(j&4 != 0, nodeAabb.Max[2], sp[2]),
		}
		octantAabbs[j] = AABB{Min: childMin, Max: childMax}
	}

	var childElements [8][]int
	*scratch = (*scratch)[:0]
	straddlers := scratch

	for i := uint32(0); i < count; i++ {
		elemIdx := o.elementIndices[first+i]
		elemAabb := o.elementAabbs[elemIdx]

		if elemAabb.Min == elemAabb.Max {
			p := elemAabb.Min
			code := 0
			if p[0] >= sp[0] {
				code |= 1
			}
			if p[1] >= sp[1] {
				code |= 2
			}
			if p[2] >= sp[2] {
				code |= 4
			}
			childElements[code] = append(childElements[code], elemIdx)
			continue
		}

		found := -1
		for j := 0; j < 8; j++ {
			if octantAabbs[j].Contains(elemAabb) {
				if found == -1 {
					found = j
				} else {
					found = -1
					break
				}
			}
		}
		if found != -1 {
			childElements[found] = append(childElements[found], elemIdx)
			continue
		}
		if o.policy.TightChildren {
			c := elemAabb.Center()
			code := 0
			if c[0] >= sp[0] {
				code |= 1
			}
			if c[1] >= sp[1] {
				code |= 2
			}
			if c[2] >= sp[2] {
				code |= 4
			}
			childElements[code] = append(childElements[code], elemIdx)
		} else {
			*straddlers = append(*straddlers, elemIdx)
		}
	}

	if len(*straddlers) == int(count) {
		o.nodes[nodeIdx].isLeaf = true
		return
	}

	var mask uint8
	childrenNeeded := 0
	for i := 0; i < 8; i++ {
		if len(childElements[i]) > 0 {
			mask |= 1 << uint(i)
			childrenNeeded++
		}
	}
	if childrenNeeded == 0 {
		o.nodes[nodeIdx].isLeaf = true
		return
	}

	baseChild := uint32(len(o.nodes))
	o.nodes = append(o.nodes, make([]octreeNode, childrenNeeded)...)

	o.nodes[nodeIdx].isLeaf = false
	o.nodes[nodeIdx].numStraddlers = uint32(len(*straddlers))
	o.nodes[nodeIdx].childMask = mask
	o.nodes[nodeIdx].baseChild = baseChild

	pos := first
	for _, idx := range *straddlers {
		o.elementIndices[pos] = idx
		pos++
	}

	childOffset := uint32(0)
	for i := 0; i < 8; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		childIdx := baseChild + childOffset
		o.nodes[childIdx].firstElement = pos
		o.nodes[childIdx].numElements = uint32(len(childElements[i]))

		for _, idx := range childElements[i] {
			o.elementIndices[pos] = idx
			pos++
		}

		if o.policy.TightChildren {
			o.nodes[childIdx].aabb = tightAabb(o.elementAabbs, childElements[i])
		} else {
			o.nodes[childIdx].aabb = octantAabbs[i]
		}

		// Child node slices into the same backing array, so re-fetch the
		// recursion target by index every time (append above may have
		// reallocated o.nodes).
		o.subdivide(childIdx, depth+1, scratch)

		childOffset++
	}
}

func tightAabb(elementAabbs []AABB, indices []int) AABB {
	boxes := make([]AABB, len(indices))
	for i, idx := range indices {
		boxes[i] = elementAabbs[idx]
	}
	return UnionAll(boxes)
}

func pick(cond bool, a, b float32) float32 {
	if cond {
		return a
	}
	return b
}

func (o *Octree) chooseSplitPoint(nodeIdx uint32) mgl32.Vec3 {
	node := &o.nodes[nodeIdx]
	fallback := node.aabb.Center()
	switch o.policy.SplitPoint {
	case SplitMean:
		return o.meanCenter(node.firstElement, node.numElements, fallback)
	case SplitMedian:
		return o.medianCenter(node.firstElement, node.numElements, fallback)
	default:
		return fallback
	}
}

func (o *Octree) meanCenter(first, count uint32, fallback mgl32.Vec3) mgl32.Vec3 {
	if count == 0 {
		return fallback
	}
	var acc mgl32.Vec3
	for i := uint32(0); i < count; i++ {
		acc = acc.Add(o.elementAabbs[o.elementIndices[first+i]].Center())
	}
	return acc.Mul(1.0 / float32(count))
}

func (o *Octree) medianCenter(first, count uint32, fallback mgl32.Vec3) mgl32.Vec3 {
	if count == 0 {
		return fallback
	}
	centers := make([]mgl32.Vec3, count)
	for i := uint32(0); i < count; i++ {
		centers[i] = o.elementAabbs[o.elementIndices[first+i]].Center()
	}
	var result mgl32.Vec3
	for dim := 0; dim < 3; dim++ {
		sort.Slice(centers, func(a, b int) bool { return centers[a][dim] < centers[b][dim] })
		result[dim] = centers[len(centers)/2][dim]
	}
	return result
}

// Validate recursively checks the element-range invariant: every internal
// node's straddler-plus-children element count equals its own, and child
// ranges tile the parent's range contiguously after the straddler prefix.
func (o *Octree) Validate() bool {
	if len(o.nodes) == 0 {
		return true
	}
	return o.validateNode(0)
}

func (o *Octree) validateNode(idx uint32) bool {
	n := &o.nodes[idx]
	if n.firstElement > uint32(len(o.elementIndices)) {
		return false
	}
	if n.firstElement+n.numElements > uint32(len(o.elementIndices)) {
		return false
	}
	if n.isLeaf {
		return n.numStraddlers == 0
	}

	accumulated := n.firstElement + n.numStraddlers
	childTotal := uint32(0)
	childOffset := uint32(0)
	for i := 0; i < 8; i++ {
		if !n.childExists(i) {
			continue
		}
		childIdx := n.baseChild + childOffset
		child := &o.nodes[childIdx]
		if child.firstElement != accumulated || child.numElements == 0 {
			return false
		}
		if child.firstElement+child.numElements > n.firstElement+n.numElements {
			return false
		}
		if !o.validateNode(childIdx) {
			return false
		}
		accumulated += child.numElements
		childTotal += child.numElements
		childOffset++
	}
	return accumulated == n.firstElement+n.numElements && childTotal+n.numStraddlers == n.numElements
}

// --- queries ---

type octreeHeapEntry struct {
	dist2 float32
	node  uint32
}
type octreeMinHeap []octreeHeapEntry

func (h octreeMinHeap) Len() int            { return len(h) }
func (h octreeMinHeap) Less(i, j int) bool  { return h[i].dist2 < h[j].dist2 }
func (h octreeMinHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *octreeMinHeap) Push(x interface{}) { *h = append(*h, x.(octreeHeapEntry)) }
func (h *octreeMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// QueryNearest returns the index of the element closest to p, priority
// queued by squared-distance-to-AABB and pruned by the current best.
func (o *Octree) QueryNearest(p mgl32.Vec3) (int, bool) {
	if len(o.nodes) == 0 {
		return 0, false
	}
	minDist2 := float32(math.MaxFloat32)
	result := -1

	pq := &octreeMinHeap{{dist2: SquaredDistance(o.nodes[0].aabb, p), node: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		top := heap.Pop(pq).(octreeHeapEntry)
		if top.dist2 >= minDist2 {
			break
		}
		node := &o.nodes[top.node]

		if node.isLeaf {
			for i := uint32(0); i < node.numElements; i++ {
				idx := o.elementIndices[node.firstElement+i]
				d2 := SquaredDistance(o.elementAabbs[idx], p)
				if d2 < minDist2 {
					minDist2 = d2
					result = idx
				}
			}
			continue
		}

		for i := uint32(0); i < node.numStraddlers; i++ {
			idx := o.elementIndices[node.firstElement+i]
			d2 := SquaredDistance(o.elementAabbs[idx], p)
			if d2 < minDist2 {
				minDist2 = d2
				result = idx
			}
		}
		childOffset := uint32(0)
		for i := 0; i < 8; i++ {
			if !node.childExists(i) {
				continue
			}
			childIdx := node.baseChild + childOffset
			d2 := SquaredDistance(o.nodes[childIdx].aabb, p)
			if d2 < minDist2 {
				heap.Push(pq, octreeHeapEntry{dist2: d2, node: childIdx})
			}
			childOffset++
		}
	}

	return result, result != -1
}

type octreeCandidate struct {
	dist2 float32
	elem  int
}
type octreeMaxHeap []octreeCandidate

func (h octreeMaxHeap) Len() int            { return len(h) }
func (h octreeMaxHeap) Less(i, j int) bool  { return h[i].dist2 > h[j].dist2 } // max-heap
func (h octreeMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *octreeMaxHeap) Push(x interface{}) { *h = append(*h, x.(octreeCandidate)) }
func (h *octreeMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// QueryKNN returns up to k elements nearest p, ascending by distance.
func (o *Octree) QueryKNN(p mgl32.Vec3, k int) []int {
	if len(o.nodes) == 0 || k == 0 {
		return nil
	}
	best := &octreeMaxHeap{}
	pq := &octreeMinHeap{{dist2: SquaredDistance(o.nodes[0].aabb, p), node: 0}}
	heap.Init(pq)

	tau := float32(math.MaxFloat32)

	for pq.Len() > 0 {
		top := heap.Pop(pq).(octreeHeapEntry)
		if best.Len() == k && top.dist2 > tau {
			break
		}
		node := &o.nodes[top.node]

		considerLeaf := func(first, n uint32) {
			for i := uint32(0); i < n; i++ {
				idx := o.elementIndices[first+i]
				d2 := SquaredDistance(o.elementAabbs[idx], p)
				if best.Len() < k {
					heap.Push(best, octreeCandidate{d2, idx})
				} else if d2 < (*best)[0].dist2 {
					heap.Pop(best)
					heap.Push(best, octreeCandidate{d2, idx})
				}
				if best.Len() == k {
					tau = (*best)[0].dist2
				}
			}
		}

		if node.isLeaf {
			considerLeaf(node.firstElement, node.numElements)
			continue
		}
		considerLeaf(node.firstElement, node.numStraddlers)

		childOffset := uint32(0)
		for i := 0; i < 8; i++ {
			if !node.childExists(i) {
				continue
			}
			childIdx := node.baseChild + childOffset
			d2 := SquaredDistance(o.nodes[childIdx].aabb, p)
			if d2 <= tau {
				heap.Push(pq, octreeHeapEntry{dist2: d2, node: childIdx})
			}
			childOffset++
		}
	}

	ordered := make([]octreeCandidate, best.Len())
	copy(ordered, *best)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].dist2 < ordered[j].dist2 })

	out := make([]int, len(ordered))
	for i, c := range ordered {
		out[i] = c.elem
	}
	return out
}

// QueryRadius returns every element within radius of p, stack-DFS pruned by
// AABB-vs-sphere.
func (o *Octree) QueryRadius(p mgl32.Vec3, radius float32) []int {
	if len(o.nodes) == 0 || radius < 0 {
		return nil
	}
	r2 := radius * radius
	var out []int
	stack := []uint32{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &o.nodes[idx]
		if SquaredDistance(node.aabb, p) > r2 {
			continue
		}
		if node.isLeaf {
			for i := uint32(0); i < node.numElements; i++ {
				eidx := o.elementIndices[node.firstElement+i]
				if SquaredDistance(o.elementAabbs[eidx], p) <= r2 {
					out = append(out, eidx)
				}
			}
			continue
		}
		for i := uint32(0); i < node.numStraddlers; i++ {
			eidx := o.elementIndices[node.firstElement+i]
			if SquaredDistance(o.elementAabbs[eidx], p) <= r2 {
				out = append(out, eidx)
			}
		}
		childOffset := uint32(0)
		for i := 0; i < 8; i++ {
			if !node.childExists(i) {
				continue
			}
			stack = append(stack, node.baseChild+childOffset)
			childOffset++
		}
	}
	sort.Ints(out)
	return out
}

// QuerySphere is QueryRadius under the sphere-query name the spec lists
// separately.
func (o *Octree) QuerySphere(center mgl32.Vec3, radius float32) []int {
	return o.QueryRadius(center, radius)
}

// QueryAABB returns every element overlapping box.
func (o *Octree) QueryAABB(box AABB) []int {
	if len(o.nodes) == 0 {
		return nil
	}
	var out []int
	stack := []uint32{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &o.nodes[idx]
		if !node.aabb.Overlaps(box) {
			continue
		}
		if node.isLeaf {
			for i := uint32(0); i < node.numElements; i++ {
				eidx := o.elementIndices[node.firstElement+i]
				if o.elementAabbs[eidx].Overlaps(box) {
					out = append(out, eidx)
				}
			}
			continue
		}
		for i := uint32(0); i < node.numStraddlers; i++ {
			eidx := o.elementIndices[node.firstElement+i]
			if o.elementAabbs[eidx].Overlaps(box) {
				out = append(out, eidx)
			}
		}
		childOffset := uint32(0)
		for i := 0; i < 8; i++ {
			if !node.childExists(i) {
				continue
			}
			stack = append(stack, node.baseChild+childOffset)
			childOffset++
		}
	}
	sort.Ints(out)
	return out
}

// QueryRay returns every element whose AABB the ray from origin along dir
// intersects within [tMin, tMax].
func (o *Octree) QueryRay(origin, dir mgl32.Vec3, tMin, tMax float32) []int {
	if len(o.nodes) == 0 {
		return nil
	}
	var out []int
	stack := []uint32{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &o.nodes[idx]
		if !node.aabb.IntersectsRay(origin, dir, tMin, tMax) {
			continue
		}
		if node.isLeaf {
			for i := uint32(0); i < node.numElements; i++ {
				eidx := o.elementIndices[node.firstElement+i]
				if o.elementAabbs[eidx].IntersectsRay(origin, dir, tMin, tMax) {
					out = append(out, eidx)
				}
			}
			continue
		}
		for i := uint32(0); i < node.numStraddlers; i++ {
			eidx := o.elementIndices[node.firstElement+i]
			if o.elementAabbs[eidx].IntersectsRay(origin, dir, tMin, tMax) {
				out = append(out, eidx)
			}
		}
		childOffset := uint32(0)
		for i := 0; i < 8; i++ {
			if !node.childExists(i) {
				continue
			}
			stack = append(stack, node.baseChild+childOffset)
			childOffset++
		}
	}
	sort.Ints(out)
	return out
}
