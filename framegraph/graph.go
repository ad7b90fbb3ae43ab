// Package framegraph turns one frame's render passes into a dependency DAG
// and runs it: each pass declares typed resource reads/writes and named
// label waits/signals through a Builder, dag.Scheduler turns those into
// topological execution layers, and Execute dispatches each layer — inline
// for a single pass, to a task.Scheduler barrier for more than one.
package framegraph

import (
	"hash/fnv"
	"reflect"

	"github.com/intrinsic3d/enginecore/dag"
	"github.com/intrinsic3d/enginecore/internal/arena"
	"github.com/intrinsic3d/enginecore/task"
)

// ExecuteFunc runs a pass against the user data its construction closure
// built.
type ExecuteFunc[T any] func(data *T)

type pass struct {
	execute func()
}

// FrameGraph owns one frame's pass graph plus the scratch arena backing
// each pass's user data.
type FrameGraph struct {
	sched  *dag.Scheduler
	tasks  *task.Scheduler
	arena  *arena.Arena
	passes []pass
}

// New creates an empty frame graph. tasks is the worker pool used to run
// layers with more than one independent pass; pass a nil tasks and Execute
// will run every layer inline (useful for single-threaded callers and
// tests).
func New(tasks *task.Scheduler) *FrameGraph {
	return &FrameGraph{sched: dag.New(), tasks: tasks, arena: arena.New()}
}

// Reset clears the graph for the next frame, recycling the dag scheduler's
// node pool and the scratch arena.
func (g *FrameGraph) Reset() {
	g.sched.Reset()
	g.arena.Reset()
	g.passes = g.passes[:0]
}

// Builder is handed to a pass's construction closure so it can declare its
// hazards before the graph is compiled.
type Builder struct {
	graph     *FrameGraph
	passIndex uint32
}

func resourceKey(t reflect.Type) uint64 {
	h := fnv.New64a()
	h.Write([]byte("resource:"))
	h.Write([]byte(t.String()))
	return h.Sum64()
}

func labelKey(label string) uint64 {
	h := fnv.New64a()
	h.Write([]byte("label:"))
	h.Write([]byte(label))
	return h.Sum64()
}

// Read declares that this pass reads resource T, adding a read-after-write
// edge from whichever pass last wrote T.
func Read[T any](b *Builder) {
	var zero T
	b.graph.sched.DeclareRead(b.passIndex, resourceKey(reflect.TypeOf(zero)))
}

// Write declares that this pass writes resource T, adding write-after-write
// and write-after-read edges against T's prior writer/readers.
func Write[T any](b *Builder) {
	var zero T
	b.graph.sched.DeclareWrite(b.passIndex, resourceKey(reflect.TypeOf(zero)))
}

// WaitFor orders this pass after whichever pass last called Signal with the
// same label, and registers this pass as a waiter so a future Signal on the
// label orders after it too.
func (b *Builder) WaitFor(label string) {
	b.graph.sched.DeclareRead(b.passIndex, labelKey(label))
}

// Signal marks this pass as the label's new last signaler, ordering it
// after the label's previous signaler and every pass still waiting on it.
func (b *Builder) Signal(label string) {
	b.graph.sched.DeclareWrite(b.passIndex, labelKey(label))
}

// AddPass registers a new pass. Its user data is allocated from the
// frame's scratch arena and handed to construct to populate; construct
// also declares the pass's hazards through b. execute runs later, during
// Execute, once the pass's dependencies have completed. The arena-backed
// data is only valid until the next Reset.
func AddPass[T any](g *FrameGraph, construct func(b *Builder, data *T), execute ExecuteFunc[T]) uint32 {
	idx := g.sched.AddNode()
	b := &Builder{graph: g, passIndex: idx}
	data := arena.NewValue[T](g.arena)
	construct(b, data)

	if int(idx) >= len(g.passes) {
		g.passes = append(g.passes, pass{})
	}
	g.passes[idx] = pass{execute: func() { execute(data) }}
	return idx
}

// Compile topologically sorts the declared hazards into execution layers.
// Returns a *dag.ErrCycle if the declared reads/writes/waits/signals are
// not acyclic.
func (g *FrameGraph) Compile() error {
	return g.sched.Compile()
}

// Execute runs every compiled layer in order: a layer holding a single pass
// runs inline on the calling goroutine to avoid dispatch overhead, a layer
// with more than one pass is dispatched to the task scheduler and waited on
// as a barrier before the next layer starts.
func (g *FrameGraph) Execute() {
	for _, layer := range g.sched.ExecutionLayers() {
		if len(layer) == 0 {
			continue
		}
		if len(layer) == 1 || g.tasks == nil {
			for _, idx := range layer {
				g.passes[idx].execute()
			}
			continue
		}
		for _, idx := range layer {
			fn := g.passes[idx].execute
			g.tasks.Dispatch(fn)
		}
		g.tasks.WaitForAll()
	}
}
