package framegraph

import (
	"sync"
	"testing"

	"github.com/intrinsic3d/enginecore/task"
)

type gbuffer struct{}
type lightingOutput struct{}

func TestWriteThenReadOrdersPasses(t *testing.T) {
	g := New(nil)
	var order []string
	var mu sync.Mutex
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	AddPass(g, func(b *Builder, data *int) {
		Write[gbuffer](b)
	}, func(d *int) { record("geometry") })

	AddPass(g, func(b *Builder, data *int) {
		Read[gbuffer](b)
	}, func(d *int) { record("lighting") })

	if err := g.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	g.Execute()

	if len(order) != 2 || order[0] != "geometry" || order[1] != "lighting" {
		t.Fatalf("execution order = %v, want [geometry lighting]", order)
	}
}

func TestIndependentPassesRunInSameLayer(t *testing.T) {
	g := New(nil)
	AddPass(g, func(b *Builder, data *int) {
		Write[gbuffer](b)
	}, func(d *int) {})
	AddPass(g, func(b *Builder, data *int) {
		Write[lightingOutput](b)
	}, func(d *int) {})

	if err := g.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	layers := g.sched.ExecutionLayers()
	if len(layers) != 1 || len(layers[0]) != 2 {
		t.Fatalf("layers = %v, want one layer of two passes", layers)
	}
}

func TestWaitForAndSignalOrderAcrossLabels(t *testing.T) {
	g := New(nil)
	var order []string

	AddPass(g, func(b *Builder, data *int) {
		b.Signal("shadow-maps-ready")
	}, func(d *int) { order = append(order, "shadows") })

	AddPass(g, func(b *Builder, data *int) {
		b.WaitFor("shadow-maps-ready")
	}, func(d *int) { order = append(order, "forward") })

	if err := g.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	g.Execute()

	if len(order) != 2 || order[0] != "shadows" || order[1] != "forward" {
		t.Fatalf("order = %v, want [shadows forward]", order)
	}
}

func TestMultiPassLayerDispatchesToTaskScheduler(t *testing.T) {
	sched := task.New(2)
	defer sched.Shutdown()

	g := New(sched)
	ran := make(chan string, 2)
	AddPass(g, func(b *Builder, data *int) {
		Write[gbuffer](b)
	}, func(d *int) { ran <- "a" })
	AddPass(g, func(b *Builder, data *int) {
		Write[lightingOutput](b)
	}, func(d *int) { ran <- "b" })

	if err := g.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	layers := g.sched.ExecutionLayers()
	if len(layers) != 1 || len(layers[0]) != 2 {
		t.Fatalf("expected both independent passes in one layer, got %v", layers)
	}
	g.Execute()
	close(ran)

	count := 0
	for range ran {
		count++
	}
	if count != 2 {
		t.Fatalf("expected both layer-1 passes to run, got %d", count)
	}
}

func TestResetClearsGraph(t *testing.T) {
	g := New(nil)
	AddPass(g, func(b *Builder, data *int) {}, func(d *int) {})
	g.Reset()
	if g.sched.ActiveNodeCount() != 0 {
		t.Fatalf("ActiveNodeCount after Reset = %d, want 0", g.sched.ActiveNodeCount())
	}
	if len(g.passes) != 0 {
		t.Fatalf("passes after Reset = %d, want 0", len(g.passes))
	}
}
