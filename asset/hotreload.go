package asset

import (
	"os"
	"sync"
	"time"

	"github.com/intrinsic3d/enginecore/internal/cache"
)

// StatFunc abstracts file modification-time lookup so the watcher can be
// exercised in tests without touching the real filesystem.
type StatFunc func(path string) (modTimeUnixNano int64, err error)

func osStat(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.ModTime().UnixNano(), nil
}

// watcher polls every asset entity with a recorded source path at a fixed
// cadence and re-invokes that asset's reloader when its file's
// modification time advances. The last-seen mtime per path is kept in a
// bounded sharded cache rather than an unbounded map. A path with no cache
// entry (never seen, or evicted under shard pressure) is only seeded by the
// next poll, not reloaded, so a change made while its entry is absent is
// not picked up until the file changes again.
type watcher struct {
	mgr    *Manager
	stat   StatFunc
	mtimes *cache.Cache[string, int64]

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func newWatcher(m *Manager) *watcher {
	return &watcher{
		mgr:    m,
		stat:   osStat,
		mtimes: cache.New[string, int64](1024, cache.StringHasher),
	}
}

// StartHotReload begins polling every registered source path every
// interval (a value <=0 defaults to one second). A second call while
// already running is a no-op.
func (m *Manager) StartHotReload(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	m.watcher.start(interval)
}

// StopHotReload stops the polling goroutine started by StartHotReload. A
// no-op if hot reload was never started.
func (m *Manager) StopHotReload() {
	m.watcher.shutdown()
}

// SetStatFunc overrides the watcher's file-stat function, for tests that
// simulate file changes without touching disk.
func (m *Manager) SetStatFunc(fn StatFunc) {
	m.watcher.mu.Lock()
	defer m.watcher.mu.Unlock()
	m.watcher.stat = fn
}

func (w *watcher) start(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.stopCh = make(chan struct{})
	w.running = true
	go w.loop(interval, w.stopCh)
}

func (w *watcher) shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
}

func (w *watcher) loop(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *watcher) poll() {
	m := w.mgr
	type due struct {
		path   string
		reload func()
	}
	var pending []due

	w.mu.Lock()
	stat := w.stat
	w.mu.Unlock()

	m.mu.RLock()
	n := m.registry.Len()
	for i := 0; i < n; i++ {
		path := m.source.Get(i)
		if path == "" {
			continue
		}
		reload := m.reloader.Get(i)
		if reload == nil {
			continue
		}
		pending = append(pending, due{path: path, reload: reload})
	}
	m.mu.RUnlock()

	for _, d := range pending {
		mtime, err := stat(d.path)
		if err != nil {
			continue
		}
		last, ok := w.mtimes.Get(d.path)
		w.mtimes.Set(d.path, mtime)
		if ok && mtime == last {
			continue
		}
		if !ok {
			continue // first observation just seeds the cache
		}
		d.reload()
	}
}
