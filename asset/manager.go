// Package asset implements the engine's asynchronous asset registry: an
// intern table keyed by load key, a per-entity state machine
// (Unloaded -> Loading -> Processing -> Ready/Failed), one-shot and
// persistent listeners delivered on Update, and hot reload via a polling
// file watcher. Grounded directly on Core.Assets.cpp: a reader-writer lock
// over the registry, a separate mutex over the ready queue, callbacks
// always run outside both locks.
package asset

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/intrinsic3d/enginecore/handle"
	"github.com/intrinsic3d/enginecore/metrics"
	"github.com/intrinsic3d/enginecore/property"
	"github.com/intrinsic3d/enginecore/task"
)

// LoadState is an asset entity's position in its lifecycle.
type LoadState int

const (
	Unloaded LoadState = iota
	Loading
	Processing
	Ready
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "Unloaded"
	case Loading:
		return "Loading"
	case Processing:
		return "Processing"
	case Ready:
		return "Ready"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Handle identifies one asset entity.
type Handle = handle.Handle[handle.Asset]

// ListenerHandle identifies a persistent listener registration.
type ListenerHandle uint32

// Callback is invoked by Update, outside any registry lock.
type Callback func(Handle)

// Loader loads the payload for path, returning the decoded value or an
// error. Returning an error transitions the asset to Failed.
type Loader[T any] func(path string) (*T, error)

var (
	ErrAssetNotLoaded   = errors.New("asset: not yet ready")
	ErrResourceNotFound = errors.New("asset: handle does not refer to a live entity")
	ErrTypeMismatch     = errors.New("asset: payload type does not match requested type")
	ErrAssetLoadFailed  = errors.New("asset: loader reported failure")
)

type info struct {
	name  string
	kind  reflect.Type
	state LoadState
}

// Manager owns the asset intern table, entity registry and listener
// dispatch. Zero value is not usable; construct with New.
type Manager struct {
	mu       sync.RWMutex
	pool     *handle.Pool[handle.Asset]
	registry *property.Registry
	infoCol  *property.Column[info]
	payload  *property.Column[any]
	source   *property.Column[string] // file path; "" means not reloadable
	reloader *property.Column[func()]

	intern map[string]Handle

	oneShot    map[Handle][]Callback
	persistent map[Handle]map[ListenerHandle]Callback
	listenerID atomic.Uint32

	readyMu    sync.Mutex
	readyQueue []Handle

	group singleflight.Group
	tasks *task.Scheduler
	sink  metrics.Sink

	watcher *watcher
}

// New creates an empty asset manager. tasks dispatches loader invocations;
// sink receives load/ready/fail counters (pass metrics.Noop{} to disable).
func New(tasks *task.Scheduler, sink metrics.Sink) *Manager {
	if sink == nil {
		sink = metrics.Noop{}
	}
	registry := property.NewRegistry()
	m := &Manager{
		pool:       handle.NewPool[handle.Asset](),
		registry:   registry,
		infoCol:    property.Add(registry, "info", info{}),
		payload:    property.Add[any](registry, "payload", nil),
		source:     property.Add(registry, "source", ""),
		reloader:   property.Add[func()](registry, "reloader", nil),
		intern:     make(map[string]Handle),
		oneShot:    make(map[Handle][]Callback),
		persistent: make(map[Handle]map[ListenerHandle]Callback),
		tasks:      tasks,
		sink:       sink,
	}
	m.watcher = newWatcher(m)
	return m
}

// Load interns key, returning the existing handle if one is already alive.
// Otherwise it allocates a new Loading entity, records loader for future
// reload, and dispatches loader(key) to the task scheduler. Concurrent
// Load calls for the same key that arrive before the loader completes are
// collapsed via singleflight — the loader runs at most once per key.
func Load[T any](m *Manager, key string, loader Loader[T]) Handle {
	m.mu.Lock()
	if h, ok := m.intern[key]; ok {
		m.mu.Unlock()
		return h
	}

	h := m.pool.Allocate()
	m.registry.PushRow() // row index equals h.Index: both grow in lockstep
	m.infoCol.Set(int(h.Index), info{name: key, kind: reflect.TypeOf((*T)(nil)).Elem(), state: Loading})
	m.source.Set(int(h.Index), key)
	m.reloader.Set(int(h.Index), func() { Reload(m, h, loader) })
	m.intern[key] = h
	m.mu.Unlock()

	m.sink.IncCounter("asset_load_started")
	dispatchLoad(m, h, key, loader)
	return h
}

func dispatchLoad[T any](m *Manager, h Handle, key string, loader Loader[T]) {
	run := func() {
		_, _, _ = m.group.Do(key, func() (interface{}, error) {
			payload, err := loader(key)
			if err != nil || payload == nil {
				m.mu.Lock()
				if m.pool.Alive(h) {
					inf := m.infoCol.At(int(h.Index))
					inf.state = Failed
				}
				m.mu.Unlock()
				m.sink.IncCounter("asset_load_failed")
				return nil, err
			}

			m.mu.Lock()
			if m.pool.Alive(h) {
				m.payload.Set(int(h.Index), payload)
				inf := m.infoCol.At(int(h.Index))
				inf.state = Processing
			}
			m.mu.Unlock()
			m.sink.IncCounter("asset_load_processing")

			m.FinalizeLoad(h)
			return payload, nil
		})
	}
	if m.tasks != nil {
		m.tasks.Dispatch(run)
	} else {
		run()
	}
}

// Reload re-invokes loader for an already-interned handle, transitioning
// it back through Loading. Returns false if h is not alive.
func Reload[T any](m *Manager, h Handle, loader Loader[T]) bool {
	m.mu.Lock()
	if !m.pool.Alive(h) {
		m.mu.Unlock()
		return false
	}
	inf := m.infoCol.At(int(h.Index))
	inf.state = Loading
	key := inf.name
	m.mu.Unlock()

	m.sink.IncCounter("asset_reload_started")
	dispatchLoad(m, h, key, loader)
	return true
}

// MoveToProcessing transitions handle from Loading to Processing. External
// systems (e.g. a GPU upload) call this once they have taken ownership of
// the payload but before their own asynchronous work (e.g. the upload)
// completes; they call FinalizeLoad when that work finishes.
func (m *Manager) MoveToProcessing(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool.Alive(h) {
		m.infoCol.At(int(h.Index)).state = Processing
	}
}

// FinalizeLoad transitions handle from Processing to Ready and enqueues it
// for listener dispatch on the next Update call.
func (m *Manager) FinalizeLoad(h Handle) {
	m.mu.Lock()
	fire := false
	if m.pool.Alive(h) {
		inf := m.infoCol.At(int(h.Index))
		if inf.state == Processing {
			inf.state = Ready
			fire = true
		}
	}
	m.mu.Unlock()

	if fire {
		m.enqueueReady(h)
		m.sink.IncCounter("asset_ready")
	}
}

func (m *Manager) enqueueReady(h Handle) {
	m.readyMu.Lock()
	m.readyQueue = append(m.readyQueue, h)
	m.readyMu.Unlock()
}

// State returns handle's current load state, or Unloaded if it does not
// refer to a live entity.
func (m *Manager) State(h Handle) LoadState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.pool.Alive(h) {
		return Unloaded
	}
	return m.infoCol.Get(int(h.Index)).state
}

// Get returns the Ready payload for handle, or a typed error:
// ErrResourceNotFound (handle not alive), ErrAssetNotLoaded (not yet
// Ready), ErrAssetLoadFailed (loader failed), or ErrTypeMismatch (T does
// not match the type the asset was loaded as).
func Get[T any](m *Manager, h Handle) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.pool.Alive(h) {
		return nil, ErrResourceNotFound
	}
	inf := m.infoCol.Get(int(h.Index))
	switch inf.state {
	case Failed:
		return nil, ErrAssetLoadFailed
	case Ready:
		// fall through
	default:
		return nil, ErrAssetNotLoaded
	}
	if inf.kind != reflect.TypeOf((*T)(nil)).Elem() {
		return nil, ErrTypeMismatch
	}
	payload, ok := m.payload.Get(int(h.Index)).(*T)
	if !ok {
		return nil, ErrTypeMismatch
	}
	return payload, nil
}

// TryGet is Get's non-allocating hot-path form: it reports ok=false for
// every failure mode Get would error on, without constructing an error
// value.
func TryGet[T any](m *Manager, h Handle) (*T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.pool.Alive(h) {
		return nil, false
	}
	inf := m.infoCol.Get(int(h.Index))
	if inf.state != Ready || inf.kind != reflect.TypeOf((*T)(nil)).Elem() {
		return nil, false
	}
	payload, ok := m.payload.Get(int(h.Index)).(*T)
	return payload, ok
}

// Update drains the ready queue, firing one-shot listeners then persistent
// listeners for each handle that became Ready since the last Update.
// Callbacks always run outside the registry lock, so they may safely call
// Load/Listen/RequestNotify recursively.
func (m *Manager) Update() {
	m.readyMu.Lock()
	if len(m.readyQueue) == 0 {
		m.readyMu.Unlock()
		return
	}
	events := m.readyQueue
	m.readyQueue = nil
	m.readyMu.Unlock()

	for _, h := range events {
		m.mu.Lock()
		oneShots := m.oneShot[h]
		delete(m.oneShot, h)
		m.mu.Unlock()
		for _, cb := range oneShots {
			cb(h)
		}

		m.mu.RLock()
		var persistentCbs []Callback
		if listeners, ok := m.persistent[h]; ok {
			persistentCbs = make([]Callback, 0, len(listeners))
			for _, cb := range listeners {
				persistentCbs = append(persistentCbs, cb)
			}
		}
		m.mu.RUnlock()
		for _, cb := range persistentCbs {
			cb(h)
		}
	}
}

// Clear removes every asset entity, intern mapping and listener. Intended
// for tests and full-engine teardown.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.pool.Reset()
	m.registry.Resize(0)
	m.intern = make(map[string]Handle)
	m.oneShot = make(map[Handle][]Callback)
	m.persistent = make(map[Handle]map[ListenerHandle]Callback)
	m.mu.Unlock()

	m.readyMu.Lock()
	m.readyQueue = nil
	m.readyMu.Unlock()
}
