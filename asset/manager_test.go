package asset

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/intrinsic3d/enginecore/task"
)

type texture struct {
	width int
}

func waitForState(t *testing.T, m *Manager, h Handle, want LoadState) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.State(h) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("State(h) never reached %s, stuck at %s", want, m.State(h))
}

func okLoader(path string) (*texture, error) {
	return &texture{width: len(path)}, nil
}

func failLoader(path string) (*texture, error) {
	return nil, errors.New("boom")
}

// synchronous manager: no task.Scheduler, so dispatchLoad runs loader inline
// on the calling goroutine. Most tests use this to avoid timing races.
func newSyncManager() *Manager {
	return New(nil, nil)
}

func TestLoadInternsByKey(t *testing.T) {
	m := newSyncManager()
	h1 := Load(m, "tex/a.png", okLoader)
	h2 := Load(m, "tex/a.png", okLoader)
	if h1 != h2 {
		t.Fatalf("Load with the same key returned different handles: %v, %v", h1, h2)
	}
}

func TestLoadTransitionsToReady(t *testing.T) {
	m := newSyncManager()
	h := Load(m, "tex/a.png", okLoader)
	if got := m.State(h); got != Ready {
		t.Fatalf("State after synchronous load = %s, want Ready", got)
	}

	v, err := Get[texture](m, h)
	if err != nil {
		t.Fatalf("Get returned error %v", err)
	}
	if v.width != len("tex/a.png") {
		t.Errorf("payload = %+v, unexpected width", v)
	}
}

func TestLoadFailureTransitionsToFailed(t *testing.T) {
	m := newSyncManager()
	h := Load(m, "tex/bad.png", failLoader)
	if got := m.State(h); got != Failed {
		t.Fatalf("State after failing load = %s, want Failed", got)
	}
	if _, err := Get[texture](m, h); !errors.Is(err, ErrAssetLoadFailed) {
		t.Errorf("Get error = %v, want ErrAssetLoadFailed", err)
	}
}

func TestGetErrorModes(t *testing.T) {
	m := newSyncManager()

	if _, err := Get[texture](m, Handle{}); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Get on a nil handle = %v, want ErrResourceNotFound", err)
	}

	hNotReady := m.pool.Allocate()
	m.registry.PushRow()
	m.infoCol.Set(int(hNotReady.Index), info{name: "x", state: Loading})
	if _, err := Get[texture](m, hNotReady); !errors.Is(err, ErrAssetNotLoaded) {
		t.Errorf("Get on a Loading handle = %v, want ErrAssetNotLoaded", err)
	}

	type other struct{ v int }
	h := Load(m, "tex/c.png", okLoader)
	if _, err := Get[other](m, h); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Get with the wrong type = %v, want ErrTypeMismatch", err)
	}
}

func TestTryGetMirrorsGetsSuccessPath(t *testing.T) {
	m := newSyncManager()
	h := Load(m, "tex/a.png", okLoader)
	v, ok := TryGet[texture](m, h)
	if !ok || v == nil {
		t.Fatalf("TryGet = %v, %v; want non-nil, true", v, ok)
	}
	if _, ok := TryGet[texture](m, Handle{}); ok {
		t.Error("TryGet on a nil handle should report false")
	}
}

func TestRequestNotifyFiresImmediatelyWhenAlreadyReady(t *testing.T) {
	m := newSyncManager()
	h := Load(m, "tex/a.png", okLoader)

	fired := false
	m.RequestNotify(h, func(got Handle) {
		fired = true
		if got != h {
			t.Errorf("callback handle = %v, want %v", got, h)
		}
	})
	if !fired {
		t.Error("RequestNotify on an already-Ready handle should fire synchronously")
	}
}

func TestRequestNotifyFiresOnceViaUpdate(t *testing.T) {
	tasks := task.New(2)
	defer tasks.Shutdown()
	m := New(tasks, nil)

	calls := 0
	var mu sync.Mutex
	h := Load(m, "tex/a.png", okLoader)
	m.RequestNotify(h, func(Handle) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	tasks.WaitForAll()
	waitForState(t, m, h, Ready)
	m.Update()
	m.Update() // second Update must not refire a one-shot listener

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("one-shot listener fired %d times, want 1", calls)
	}
}

func TestListenFiresOnEveryReload(t *testing.T) {
	m := newSyncManager()
	h := Load(m, "tex/a.png", okLoader)
	m.Update() // deliver the initial Ready event before listening

	var calls int
	id := m.Listen(h, func(Handle) { calls++ })
	if calls != 1 {
		t.Fatalf("Listen on an already-Ready handle should fire immediately once, got %d", calls)
	}

	if !Reload(m, h, okLoader) {
		t.Fatal("Reload on a live handle should report true")
	}
	m.Update()
	if calls != 2 {
		t.Errorf("persistent listener call count after reload = %d, want 2", calls)
	}

	m.Unlisten(h, id)
	Reload(m, h, okLoader)
	m.Update()
	if calls != 2 {
		t.Errorf("listener fired after Unlisten: call count = %d, want 2", calls)
	}
}

func TestReloadOnDeadHandleReturnsFalse(t *testing.T) {
	m := newSyncManager()
	if Reload(m, Handle{}, okLoader) {
		t.Error("Reload on a nil handle should report false")
	}
}

func TestClearResetsEverything(t *testing.T) {
	m := newSyncManager()
	h := Load(m, "tex/a.png", okLoader)
	m.Listen(h, func(Handle) {})

	m.Clear()
	if m.State(h) != Unloaded {
		t.Errorf("State after Clear = %s, want Unloaded", m.State(h))
	}
	if len(m.intern) != 0 {
		t.Error("intern table should be empty after Clear")
	}
}

func TestHotReloadUsesInjectedStatFunc(t *testing.T) {
	m := newSyncManager()
	h := Load(m, "tex/a.png", okLoader)
	m.Update() // deliver the initial Ready event before listening

	var calls int
	var mu sync.Mutex
	m.Listen(h, func(Handle) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	// Listen's immediate fire on the already-Ready handle counts as call 1.

	clock := int64(1000)
	var clockMu sync.Mutex
	m.SetStatFunc(func(path string) (int64, error) {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock, nil
	})

	m.StartHotReload(5 * time.Millisecond)
	defer m.StopHotReload()

	time.Sleep(30 * time.Millisecond) // let the watcher seed its mtime cache

	clockMu.Lock()
	clock = 2000
	clockMu.Unlock()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		m.Update()
		mu.Lock()
		c := calls
		mu.Unlock()
		if c >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls < 2 {
		t.Fatalf("reload listener call count = %d, want at least 2 (initial + hot reload)", calls)
	}
}
