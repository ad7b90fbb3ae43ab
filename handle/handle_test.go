package handle

import "testing"

type testTag struct{}

func TestAllocateAliveAndFree(t *testing.T) {
	p := NewPool[testTag]()

	h1 := p.Allocate()
	if !p.Alive(h1) {
		t.Fatal("freshly allocated handle should be alive")
	}

	if !p.Free(h1) {
		t.Fatal("Free on an alive handle should succeed")
	}
	if p.Alive(h1) {
		t.Fatal("handle should be stale after Free")
	}
}

func TestStaleHandleAfterReuse(t *testing.T) {
	p := NewPool[testTag]()

	h1 := p.Allocate()
	p.Free(h1)

	h2 := p.Allocate()
	if h2.Index != h1.Index {
		t.Fatalf("expected slot reuse: h1.Index=%d h2.Index=%d", h1.Index, h2.Index)
	}
	if h2.Generation == h1.Generation {
		t.Fatal("reused slot must bump generation")
	}
	if p.Alive(h1) {
		t.Error("old handle must report not-alive after slot reuse")
	}
	if !p.Alive(h2) {
		t.Error("new handle for reused slot must be alive")
	}
}

func TestNilHandle(t *testing.T) {
	h := Nil[testTag]()
	if !h.IsNil() {
		t.Error("Nil() handle should report IsNil")
	}

	p := NewPool[testTag]()
	if p.Alive(h) {
		t.Error("nil handle should never be alive")
	}
	if p.Free(h) {
		t.Error("freeing a nil handle should report false")
	}
}

func TestOutOfRangeHandle(t *testing.T) {
	p := NewPool[testTag]()
	h := Handle[testTag]{Index: 42, Generation: 0}
	if p.Alive(h) {
		t.Error("out-of-range handle should not be alive")
	}
}

func TestOrdering(t *testing.T) {
	a := Handle[testTag]{Index: 1, Generation: 0}
	b := Handle[testTag]{Index: 2, Generation: 0}
	c := Handle[testTag]{Index: 1, Generation: 1}

	if !a.Less(b) {
		t.Error("a should be less than b by index")
	}
	if !a.Less(c) {
		t.Error("a should be less than c by generation")
	}
}

func TestReset(t *testing.T) {
	p := NewPool[testTag]()
	h := p.Allocate()
	p.Reset()
	if p.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", p.Len())
	}
	if p.Alive(h) {
		t.Error("handle from before Reset must not be alive")
	}
}

func TestHandleAt(t *testing.T) {
	p := NewPool[testTag]()
	h1 := p.Allocate()
	p.Free(h1)
	h2 := p.Allocate() // reuses h1's slot with a bumped generation

	got, ok := p.HandleAt(int(h2.Index))
	if !ok || got != h2 {
		t.Fatalf("HandleAt(%d) = %v, %v; want %v, true", h2.Index, got, ok, h2)
	}

	if _, ok := p.HandleAt(99); ok {
		t.Error("HandleAt on an out-of-range index should report false")
	}
}

func TestDifferentTagsAreDistinctTypes(t *testing.T) {
	// Compile-time check: Pool[Geometry] and Pool[Texture] are distinct
	// types, so a Handle[Geometry] cannot be passed where a
	// Handle[Texture] is expected. This test exercises both pools to
	// confirm they behave independently at runtime too.
	gp := NewPool[Geometry]()
	tp := NewPool[Texture]()

	gh := gp.Allocate()
	th := tp.Allocate()

	if !gp.Alive(gh) || !tp.Alive(th) {
		t.Fatal("independent pools should each report their own handle alive")
	}
}
