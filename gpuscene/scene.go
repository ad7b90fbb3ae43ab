// Package gpuscene owns the stable-slot GPU instance pool, the per-frame
// handle-to-dense routing table the indirect draw pipeline needs, and
// bindless texture slot addressing.
package gpuscene

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultTextureSlot is the bindless index of a 1x1 white texture, used by
// any material whose real texture is still loading so rendering never
// stalls on missing data.
const DefaultTextureSlot uint32 = 0

// InstanceRecord is one GPU instance buffer entry: a model transform, the
// geometry/texture/entity it binds, and a culling bounding sphere in object
// space. Radius == 0 marks a freed, inactive slot so the culler skips it
// even before the slot is reused.
type InstanceRecord struct {
	Model      mgl32.Mat4
	Center     mgl32.Vec3
	Radius     float32
	GeometryID uint32 // sparse geometry handle index, never a dense per-frame slot
	TextureID  uint32 // bindless descriptor slot
	EntityID   uint32 // stable pick id
}

// Scene owns the stable-slot instance buffer. Slot indices are stable
// across frames; free_slot publishes a deactivated (radius=0) record
// immediately so a stale read never culls a live object in as garbage, and
// returns the index to the freelist for AllocateSlot to reuse.
type Scene struct {
	mu        sync.Mutex
	instances []InstanceRecord
	freelist  []uint32
	staged    []stagedUpdate

	handleToDense map[uint32]uint32 // geometry id -> dense [0,N) index for this frame
}

// InvalidDense marks a slot with no live dense index this frame.
const InvalidDense = ^uint32(0)

type stagedUpdate struct {
	slot uint32
	data InstanceRecord
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{}
}

// AllocateSlot returns a stable slot index, reusing a freed one if
// available.
func (s *Scene) AllocateSlot() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.freelist); n > 0 {
		slot := s.freelist[n-1]
		s.freelist = s.freelist[:n-1]
		return slot
	}
	slot := uint32(len(s.instances))
	s.instances = append(s.instances, InstanceRecord{})
	return slot
}

// FreeSlot returns slot to the freelist and immediately publishes a
// deactivated record so the culler skips it even before it is reused by a
// future AllocateSlot.
func (s *Scene) FreeSlot(slot uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(slot) >= len(s.instances) {
		return
	}
	s.instances[slot] = InstanceRecord{}
	s.freelist = append(s.freelist, slot)
}

// QueueUpdate appends a staged update; Flush applies all staged updates at
// the start of the next render frame. Queueing is mutex-guarded rather
// than a true lock-free append: the single-producer lifecycle system
// assumption does not hold once more than one goroutine can call
// QueueUpdate, and a cheap uncontended mutex is simpler than an atomic
// ring buffer for that multi-producer case.
func (s *Scene) QueueUpdate(slot uint32, record InstanceRecord) {
	s.mu.Lock()
	s.staged = append(s.staged, stagedUpdate{slot: slot, data: record})
	s.mu.Unlock()
}

// Flush applies every staged update to the instance buffer, growing it if
// a slot beyond the current length was queued, then clears the staged
// list.
func (s *Scene) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.staged {
		for int(u.slot) >= len(s.instances) {
			s.instances = append(s.instances, InstanceRecord{})
		}
		s.instances[u.slot] = u.data
	}
	s.staged = s.staged[:0]
}

// Instances returns the live instance buffer. Callers must not retain the
// slice past the next Flush/FreeSlot/AllocateSlot call that may reallocate
// it.
func (s *Scene) Instances() []InstanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instances
}

// RebuildDenseRouting assigns handle_to_dense[geometry_id] = dense for every
// geometry id in liveGeometryIDs (in the order given), replacing the
// previous frame's table entirely. Every instance that shares a geometry id
// routes to that geometry's single dense slot, which is what lets the
// indirect draw pipeline batch them into one per-dense-geometry draw list.
// Called once per frame before culling.
func (s *Scene) RebuildDenseRouting(liveGeometryIDs []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleToDense = make(map[uint32]uint32, len(liveGeometryIDs))
	for dense, geometryID := range liveGeometryIDs {
		s.handleToDense[geometryID] = uint32(dense)
	}
}

// DenseOf returns the dense index routed to geometryID this frame, or
// (InvalidDense, false) if that geometry has no live dense slot.
func (s *Scene) DenseOf(geometryID uint32) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.handleToDense[geometryID]
	if !ok {
		return InvalidDense, false
	}
	return d, true
}
