// Package dag implements a per-frame hazard-tracking dependency scheduler:
// nodes declare reads/writes against resource keys, the scheduler builds
// RAW/WAW/WAR edges automatically, and Compile turns the graph into
// topological execution layers via Kahn's algorithm. It does not execute
// anything itself — that is the frame graph's job.
package dag

import "fmt"

const invalidNode = ^uint32(0)

// ErrCycle is returned by Compile when the declared dependencies contain a
// cycle; Processed/Active let the caller report how far it got.
type ErrCycle struct {
	Processed uint32
	Active    uint32
}

func (e *ErrCycle) Error() string {
	return fmt.Sprintf("dag: dependency cycle detected (processed %d / %d)", e.Processed, e.Active)
}

type node struct {
	dependents []uint32
	indegree   uint32
}

type resourceState struct {
	lastWriter     uint32
	currentReaders []uint32
}

// Scheduler builds one frame's dependency graph. Reuse across frames via
// Reset, which keeps the node pool's backing storage at its high-water mark.
type Scheduler struct {
	nodePool        []node
	activeNodeCount uint32
	resourceKeys    []uint64
	resourceStates  []resourceState
	executionLayers [][]uint32
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		nodePool:     make([]node, 0, 64),
		resourceKeys: make([]uint64, 0, 32),
	}
}

// Reset clears all nodes, edges and resource state for the next frame.
func (s *Scheduler) Reset() {
	s.activeNodeCount = 0
	s.executionLayers = nil
	s.resourceKeys = s.resourceKeys[:0]
	s.resourceStates = s.resourceStates[:0]
}

// AddNode allocates a fresh node and returns its index, reusing the node
// pool's backing array across frames.
func (s *Scheduler) AddNode() uint32 {
	idx := s.activeNodeCount
	if int(idx) >= len(s.nodePool) {
		s.nodePool = append(s.nodePool, node{})
	}
	n := &s.nodePool[idx]
	n.dependents = n.dependents[:0]
	n.indegree = 0
	s.activeNodeCount++
	return idx
}

func (s *Scheduler) resourceState(key uint64) *resourceState {
	for i, k := range s.resourceKeys {
		if k == key {
			return &s.resourceStates[i]
		}
	}
	s.resourceKeys = append(s.resourceKeys, key)
	s.resourceStates = append(s.resourceStates, resourceState{lastWriter: invalidNode})
	return &s.resourceStates[len(s.resourceStates)-1]
}

// AddEdge records that consumer depends on producer, deduplicated and
// ignoring self-edges or out-of-range indices.
func (s *Scheduler) AddEdge(producer, consumer uint32) {
	if producer == consumer || producer >= s.activeNodeCount || consumer >= s.activeNodeCount {
		return
	}
	prod := &s.nodePool[producer]
	for _, dep := range prod.dependents {
		if dep == consumer {
			return
		}
	}
	prod.dependents = append(prod.dependents, consumer)
	s.nodePool[consumer].indegree++
}

// DeclareRead registers a read-after-write edge from the resource's last
// writer (if any) and adds node to the set of current readers.
func (s *Scheduler) DeclareRead(n uint32, resourceKey uint64) {
	st := s.resourceState(resourceKey)
	if st.lastWriter != invalidNode {
		s.AddEdge(st.lastWriter, n)
	}
	st.currentReaders = append(st.currentReaders, n)
}

// DeclareWeakRead adds the same RAW edge as DeclareRead but does not
// register node as a reader, so a future writer need not wait for it.
func (s *Scheduler) DeclareWeakRead(n uint32, resourceKey uint64) {
	st := s.resourceState(resourceKey)
	if st.lastWriter != invalidNode {
		s.AddEdge(st.lastWriter, n)
	}
}

// DeclareWrite adds a WAW edge from the last writer and WAR edges from every
// current reader, then installs node as the new exclusive writer.
func (s *Scheduler) DeclareWrite(n uint32, resourceKey uint64) {
	st := s.resourceState(resourceKey)
	if st.lastWriter != invalidNode {
		s.AddEdge(st.lastWriter, n)
	}
	for _, reader := range st.currentReaders {
		if reader != n {
			s.AddEdge(reader, n)
		}
	}
	st.currentReaders = st.currentReaders[:0]
	st.lastWriter = n
}

// Compile runs Kahn's algorithm, grouping nodes into topological layers
// (every node in a layer is independent of every other node in that same
// layer). Returns *ErrCycle if the declared edges are not acyclic.
func (s *Scheduler) Compile() error {
	s.executionLayers = nil
	if s.activeNodeCount == 0 {
		return nil
	}

	indeg := make([]uint32, s.activeNodeCount)
	for i := uint32(0); i < s.activeNodeCount; i++ {
		indeg[i] = s.nodePool[i].indegree
	}

	var layer []uint32
	for i := uint32(0); i < s.activeNodeCount; i++ {
		if indeg[i] == 0 {
			layer = append(layer, i)
		}
	}

	var processed uint32
	for len(layer) > 0 {
		s.executionLayers = append(s.executionLayers, layer)
		processed += uint32(len(layer))

		var next []uint32
		for _, nodeIdx := range layer {
			for _, depIdx := range s.nodePool[nodeIdx].dependents {
				if depIdx >= s.activeNodeCount || indeg[depIdx] == 0 {
					continue
				}
				indeg[depIdx]--
				if indeg[depIdx] == 0 {
					next = append(next, depIdx)
				}
			}
		}
		layer = next
	}

	if processed != s.activeNodeCount {
		return &ErrCycle{Processed: processed, Active: s.activeNodeCount}
	}
	return nil
}

// ExecutionLayers returns the layers produced by the last successful
// Compile call.
func (s *Scheduler) ExecutionLayers() [][]uint32 { return s.executionLayers }

// ActiveNodeCount returns the number of nodes added since the last Reset.
func (s *Scheduler) ActiveNodeCount() uint32 { return s.activeNodeCount }
