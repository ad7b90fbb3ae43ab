package dag

import "testing"

func layerOf(layers [][]uint32, n uint32) int {
	for i, layer := range layers {
		for _, x := range layer {
			if x == n {
				return i
			}
		}
	}
	return -1
}

func TestReadAfterWrite(t *testing.T) {
	s := New()
	writer := s.AddNode()
	reader := s.AddNode()

	s.DeclareWrite(writer, 1)
	s.DeclareRead(reader, 1)

	if err := s.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if layerOf(s.ExecutionLayers(), writer) >= layerOf(s.ExecutionLayers(), reader) {
		t.Error("reader must be scheduled in a later layer than its writer")
	}
}

func TestWriteAfterRead(t *testing.T) {
	s := New()
	reader := s.AddNode()
	writer := s.AddNode()

	s.DeclareRead(reader, 1)
	s.DeclareWrite(writer, 1)

	if err := s.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if layerOf(s.ExecutionLayers(), reader) >= layerOf(s.ExecutionLayers(), writer) {
		t.Error("writer must wait for prior readers")
	}
}

func TestWeakReadDoesNotBlockFutureWriter(t *testing.T) {
	s := New()
	weakReader := s.AddNode()
	writer := s.AddNode()

	s.DeclareWeakRead(weakReader, 1)
	s.DeclareWrite(writer, 1)

	if err := s.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if layerOf(s.ExecutionLayers(), weakReader) != layerOf(s.ExecutionLayers(), writer) {
		t.Error("a weak reader must not force the next writer into a later layer")
	}
}

func TestIndependentNodesShareALayer(t *testing.T) {
	s := New()
	a := s.AddNode()
	b := s.AddNode()

	s.DeclareWrite(a, 1)
	s.DeclareWrite(b, 2)

	if err := s.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	layers := s.ExecutionLayers()
	if len(layers) != 1 || len(layers[0]) != 2 {
		t.Fatalf("expected a single layer with both independent nodes, got %v", layers)
	}
}

func TestCycleDetected(t *testing.T) {
	s := New()
	a := s.AddNode()
	b := s.AddNode()
	s.AddEdge(a, b)
	s.AddEdge(b, a)

	err := s.Compile()
	if err == nil {
		t.Fatal("expected a cycle error")
	}
	var cycleErr *ErrCycle
	if !asCycleErr(err, &cycleErr) {
		t.Fatalf("expected *ErrCycle, got %T", err)
	}
	if cycleErr.Processed != 0 || cycleErr.Active != 2 {
		t.Errorf("ErrCycle = %+v, want Processed=0 Active=2", cycleErr)
	}
}

func asCycleErr(err error, target **ErrCycle) bool {
	ce, ok := err.(*ErrCycle)
	if ok {
		*target = ce
	}
	return ok
}

func TestResetRecyclesNodePool(t *testing.T) {
	s := New()
	s.AddNode()
	s.AddNode()
	s.Reset()
	if s.ActiveNodeCount() != 0 {
		t.Fatalf("ActiveNodeCount after Reset = %d, want 0", s.ActiveNodeCount())
	}
	n := s.AddNode()
	if n != 0 {
		t.Errorf("first node after Reset should reuse index 0, got %d", n)
	}
}

func TestEdgeDeduplication(t *testing.T) {
	s := New()
	a := s.AddNode()
	b := s.AddNode()
	s.AddEdge(a, b)
	s.AddEdge(a, b)
	s.AddEdge(a, b)

	if err := s.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	// Indegree should be 1, not 3 — check by confirming b lands exactly one
	// layer after a rather than being stuck (a bug here would still compile
	// successfully but the test at least exercises the path).
	if layerOf(s.ExecutionLayers(), b) != layerOf(s.ExecutionLayers(), a)+1 {
		t.Error("duplicated edges must still place b exactly one layer after a")
	}
}
