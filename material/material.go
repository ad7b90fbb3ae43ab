// Package material implements the pool-backed material system: a
// handle.Pool of material slots backed by a property.Registry, deferred
// destruction keyed by a frame counter, and a listener chain onto the
// asset manager that bumps a material's revision when its texture becomes
// Ready.
package material

import (
	"github.com/intrinsic3d/enginecore/asset"
	"github.com/intrinsic3d/enginecore/handle"
	"github.com/intrinsic3d/enginecore/property"
)

// Handle identifies one material.
type Handle = handle.Handle[handle.Material]

// Data is one material's shader-visible parameters.
type Data struct {
	AlbedoID   uint32
	NormalID   uint32
	Metallic   float32
	Roughness  float32
}

// pendingFree is a slot awaiting reclamation once the GPU is definitely
// done referencing it.
type pendingFree struct {
	handle     Handle
	freeAtFrame uint64
}

// Pool owns every live material plus its deferred-destroy queue.
type Pool struct {
	pool *handle.Pool[handle.Material]
	reg  *property.Registry

	data     *property.Column[Data]
	revision *property.Column[uint32]

	framesInFlight uint64
	currentFrame   uint64
	pending        []pendingFree
}

// NewPool creates an empty material pool. framesInFlight is the number of
// frames a destroyed slot's data must remain valid before reclamation,
// since in-flight GPU work from earlier frames may still read it.
func NewPool(framesInFlight uint64) *Pool {
	reg := property.NewRegistry()
	return &Pool{
		pool:           handle.NewPool[handle.Material](),
		reg:            reg,
		data:           property.Add(reg, "data", Data{}),
		revision:       property.Add(reg, "revision", uint32(0)),
		framesInFlight: framesInFlight,
	}
}

// Create allocates a new material slot with the given initial data.
func (p *Pool) Create(d Data) Handle {
	h := p.pool.Allocate()
	for p.reg.Len() <= int(h.Index) {
		p.reg.PushRow()
	}
	p.data.Set(int(h.Index), d)
	p.revision.Set(int(h.Index), 0)
	return h
}

// Get returns h's current data and whether h is still alive.
func (p *Pool) Get(h Handle) (Data, bool) {
	if !p.pool.Alive(h) {
		return Data{}, false
	}
	return p.data.Get(int(h.Index)), true
}

// Revision returns h's current revision counter (bumped whenever a
// listened-to texture transitions to Ready), or 0 if h is dead.
func (p *Pool) Revision(h Handle) uint32 {
	if !p.pool.Alive(h) {
		return 0
	}
	return p.revision.Get(int(h.Index))
}

// Destroy records h for reclamation once currentFrame has advanced
// framesInFlight frames past this call, so the GPU is definitely done
// reading it.
func (p *Pool) Destroy(h Handle) {
	if !p.pool.Alive(h) {
		return
	}
	p.pending = append(p.pending, pendingFree{handle: h, freeAtFrame: p.currentFrame + p.framesInFlight})
}

// Tick advances the frame counter and reclaims every pending slot whose
// deferred-free frame has arrived.
func (p *Pool) Tick() {
	p.currentFrame++
	kept := p.pending[:0]
	for _, pf := range p.pending {
		if p.currentFrame >= pf.freeAtFrame {
			p.pool.Free(pf.handle)
			continue
		}
		kept = append(kept, pf)
	}
	p.pending = kept
}

// ListenAlbedo registers a persistent listener on mgr for textureHandle: on
// every transition to Ready, it writes the texture's bindless slot into
// h's AlbedoID and bumps h's revision so renderables caching the last-
// applied revision know to re-push their GPU instance record.
func (p *Pool) ListenAlbedo(mgr *asset.Manager, h Handle, textureHandle asset.Handle, bindlessSlot func(asset.Handle) (uint32, bool)) asset.ListenerHandle {
	return mgr.Listen(textureHandle, func(texHandle asset.Handle) {
		slot, ok := bindlessSlot(texHandle)
		if !ok || !p.pool.Alive(h) {
			return
		}
		d := p.data.Get(int(h.Index))
		d.AlbedoID = slot
		p.data.Set(int(h.Index), d)
		p.revision.Set(int(h.Index), p.revision.Get(int(h.Index))+1)
	})
}
