package render

import (
	"github.com/intrinsic3d/enginecore/framegraph"
	"github.com/intrinsic3d/enginecore/selection"
)

// Pass is one stage of the default render pipeline. AddPasses registers the
// pass's frame-graph nodes for the current frame; Initialize binds the pass
// to its compiled GPU pipeline state once, at pipeline setup; OnResize
// recreates size-dependent resources (render targets, the pick image).
type Pass interface {
	Name() string
	Initialize(device DeviceHandle) error
	OnResize(width, height uint32)
	AddPasses(fg *framegraph.FrameGraph)
}

// Pipeline composes the default frame-graph pass order: picking -> forward
// -> debug overlay (conditional) -> ImGui overlay. The order is ordering
// metadata only (pass label signal/wait chains); the actual dependency
// graph resolution, cycle detection, and layer dispatch are the frame
// graph's job.
type Pipeline struct {
	Picking *PickingPass
	Forward *ForwardPass
	Debug   *DebugOverlayPass
	ImGui   *ImGuiOverlayPass
}

// NewPipeline wires the default pass set. PickingPass owns readback, shared
// with Selection for GPU-pick consumption.
func NewPipeline(readback *selection.Readback) *Pipeline {
	return &Pipeline{
		Picking: &PickingPass{Readback: readback},
		Forward: &ForwardPass{},
		Debug:   &DebugOverlayPass{},
		ImGui:   &ImGuiOverlayPass{},
	}
}

// Initialize binds every pass to device in pipeline order.
func (p *Pipeline) Initialize(device DeviceHandle) error {
	for _, pass := range p.passes() {
		if err := pass.Initialize(device); err != nil {
			return err
		}
	}
	return nil
}

// OnResize propagates a resize to every pass.
func (p *Pipeline) OnResize(width, height uint32) {
	for _, pass := range p.passes() {
		pass.OnResize(width, height)
	}
}

// Build registers this frame's passes onto fg in pipeline order. The debug
// overlay pass only registers when enabled.
func (p *Pipeline) Build(fg *framegraph.FrameGraph) {
	p.Picking.AddPasses(fg)
	p.Forward.AddPasses(fg)
	if p.Debug.Enabled {
		p.Debug.AddPasses(fg)
	}
	p.ImGui.AddPasses(fg)
}

func (p *Pipeline) passes() []Pass {
	return []Pass{p.Picking, p.Forward, p.Debug, p.ImGui}
}

const (
	labelPicking = "render:picking"
	labelForward = "render:forward"
	labelDebug   = "render:debug-overlay"
)

// PickingPass writes entity IDs into a 32-bit R-integer image and schedules
// a readback into Readback, which Selection's GPU-pick path consumes the
// following frame (poll, never block).
type PickingPass struct {
	Readback *selection.Readback
	width    uint32
	height   uint32
}

func (p *PickingPass) Name() string { return "picking" }

func (p *PickingPass) Initialize(DeviceHandle) error { return nil }

func (p *PickingPass) OnResize(width, height uint32) {
	p.width, p.height = width, height
	if p.Readback != nil {
		p.Readback.Resize(int(width), int(height))
	}
}

type pickingPassData struct{}

func (p *PickingPass) AddPasses(fg *framegraph.FrameGraph) {
	framegraph.AddPass(fg, func(b *framegraph.Builder, data *pickingPassData) {
		b.Signal(labelPicking)
	}, func(*pickingPassData) {
		// GPU entity-ID write + readback schedule is host/backend driven;
		// the frame graph only needs this pass ordered before forward.
	})
}

// ForwardPass is the main color pass: opaque and transparent geometry
// rendered against the scene's GPU instance buffer.
type ForwardPass struct{}

func (p *ForwardPass) Name() string { return "forward" }

func (p *ForwardPass) Initialize(DeviceHandle) error { return nil }

func (p *ForwardPass) OnResize(width, height uint32) {}

type forwardPassData struct{}

func (p *ForwardPass) AddPasses(fg *framegraph.FrameGraph) {
	framegraph.AddPass(fg, func(b *framegraph.Builder, data *forwardPassData) {
		b.WaitFor(labelPicking)
		b.Signal(labelForward)
	}, func(*forwardPassData) {})
}

// DebugOverlayPass draws wireframes, bounds, and other developer overlays.
// Disabled by default; set Enabled to include it in Pipeline.Build.
type DebugOverlayPass struct {
	Enabled bool
}

func (p *DebugOverlayPass) Name() string { return "debug-overlay" }

func (p *DebugOverlayPass) Initialize(DeviceHandle) error { return nil }

func (p *DebugOverlayPass) OnResize(width, height uint32) {}

type debugOverlayPassData struct{}

func (p *DebugOverlayPass) AddPasses(fg *framegraph.FrameGraph) {
	framegraph.AddPass(fg, func(b *framegraph.Builder, data *debugOverlayPassData) {
		b.WaitFor(labelForward)
		b.Signal(labelDebug)
	}, func(*debugOverlayPassData) {})
}

// ImGuiOverlayPass draws the tool UI last, always on top.
type ImGuiOverlayPass struct{}

func (p *ImGuiOverlayPass) Name() string { return "imgui-overlay" }

func (p *ImGuiOverlayPass) Initialize(DeviceHandle) error { return nil }

func (p *ImGuiOverlayPass) OnResize(width, height uint32) {}

type imguiOverlayPassData struct{}

func (p *ImGuiOverlayPass) AddPasses(fg *framegraph.FrameGraph) {
	framegraph.AddPass(fg, func(b *framegraph.Builder, data *imguiOverlayPassData) {
		b.WaitFor(labelForward)
		b.WaitFor(labelDebug)
	}, func(*imguiOverlayPassData) {})
}
