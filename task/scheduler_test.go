package task

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatchRunsAllTasks(t *testing.T) {
	s := New(4)
	defer s.Shutdown()

	var count int64
	const n = 200
	for i := 0; i < n; i++ {
		s.Dispatch(func() { atomic.AddInt64(&count, 1) })
	}
	s.WaitForAll()

	if got := atomic.LoadInt64(&count); got != n {
		t.Fatalf("count = %d, want %d", got, n)
	}
}

func TestWaitForAllWaitsOnPostedTasks(t *testing.T) {
	s := New(2)
	defer s.Shutdown()

	var outer, inner int64
	s.Dispatch(func() {
		atomic.AddInt64(&outer, 1)
		s.Dispatch(func() {
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&inner, 1)
		})
	})
	s.WaitForAll()

	if atomic.LoadInt64(&outer) != 1 || atomic.LoadInt64(&inner) != 1 {
		t.Fatalf("outer=%d inner=%d, want 1,1", outer, inner)
	}
}

func TestAutoDetectThreadCountFloorsAtOne(t *testing.T) {
	s := New(0)
	defer s.Shutdown()

	done := make(chan struct{})
	s.Dispatch(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("auto-sized scheduler never ran its task")
	}
}

func TestShutdownJoinsWorkers(t *testing.T) {
	s := New(3)
	var ran int64
	s.Dispatch(func() { atomic.AddInt64(&ran, 1) })
	s.WaitForAll()
	s.Shutdown()

	if atomic.LoadInt64(&ran) != 1 {
		t.Fatalf("ran = %d, want 1", ran)
	}
}

func TestWaitForAllReturnsImmediatelyWhenIdle(t *testing.T) {
	s := New(2)
	defer s.Shutdown()

	done := make(chan struct{})
	go func() {
		s.WaitForAll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForAll blocked on an idle scheduler")
	}
}
