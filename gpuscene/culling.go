package gpuscene

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrFallbackToCPU indicates the compute culler cannot handle this
// dispatch and the caller should transparently fall back to the CPU
// reference implementation.
var ErrFallbackToCPU = errors.New("gpuscene: falling back to CPU culling")

// Plane is a frustum plane in n.c + w form: a point c is outside the plane
// when n.Dot(c)+w < 0.
type Plane struct {
	Normal mgl32.Vec3
	W      float32
}

// DrawCommand is one accepted instance, keyed by its dense geometry index
// so the indirect draw pipeline can append it to that geometry's draw
// list.
type DrawCommand struct {
	Dense      uint32
	GeometryID uint32
}

// Culler dispatches the per-instance frustum cull described in the spec:
// test (center, radius, geometry_id) against six frustum planes, look up
// dense = handle_to_dense[geometry_id], and append an indirect draw
// command for accepted, mapped instances. A real implementation dispatches
// a compute shader; returning ErrFallbackToCPU (or any other error) from
// Cull falls back to CPUCuller transparently.
type Culler interface {
	Cull(frustum [6]Plane, instances []InstanceRecord, s *Scene) ([]DrawCommand, error)
}

// CPUCuller is the reference culling implementation: a sequential loop
// over the instance buffer. It never returns ErrFallbackToCPU itself,
// since it is the fallback.
type CPUCuller struct{}

// Cull tests every instance's bounding sphere against frustum, keeping
// those that survive all six planes and have a live dense routing entry.
func (CPUCuller) Cull(frustum [6]Plane, instances []InstanceRecord, s *Scene) ([]DrawCommand, error) {
	var out []DrawCommand
	for _, inst := range instances {
		if inst.Radius <= 0 {
			continue // freed or never-allocated slot
		}
		if !sphereInFrustum(frustum, inst.Center, inst.Radius) {
			continue
		}
		dense, ok := s.DenseOf(inst.GeometryID)
		if !ok {
			continue
		}
		out = append(out, DrawCommand{Dense: dense, GeometryID: inst.GeometryID})
	}
	return out, nil
}

func sphereInFrustum(frustum [6]Plane, center mgl32.Vec3, radius float32) bool {
	for _, p := range frustum {
		d := p.Normal.Dot(center) + p.W
		if d < -radius {
			return false
		}
	}
	return true
}

// Cull runs culler against the scene's current instance buffer and dense
// routing table, falling back to CPUCuller if culler is nil or returns
// ErrFallbackToCPU (or any other error) — the CPU loop is the one
// reference implementation both paths share, not a second algorithm.
func Cull(culler Culler, frustum [6]Plane, s *Scene) []DrawCommand {
	instances := s.Instances()
	if culler != nil {
		if cmds, err := culler.Cull(frustum, instances, s); err == nil {
			return cmds
		}
	}
	cmds, _ := CPUCuller{}.Cull(frustum, instances, s)
	return cmds
}
