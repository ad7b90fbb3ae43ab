package material

import (
	"testing"

	"github.com/intrinsic3d/enginecore/asset"
)

type texture struct {
	slot uint32
}

func TestListenAlbedoWritesSlotAndBumpsRevision(t *testing.T) {
	mgr := asset.New(nil, nil) // nil scheduler: Load runs the loader synchronously
	pool := NewPool(2)

	h := pool.Create(Data{})
	if pool.Revision(h) != 0 {
		t.Fatalf("fresh material should start at revision 0, got %d", pool.Revision(h))
	}

	texHandle := asset.Load(mgr, "albedo.png", func(string) (*texture, error) {
		return &texture{slot: 7}, nil
	})
	mgr.Update() // drain the load's Ready event before any listener exists

	pool.ListenAlbedo(mgr, h, texHandle, func(th asset.Handle) (uint32, bool) {
		tex, err := asset.Get[texture](mgr, th)
		if err != nil {
			return 0, false
		}
		return tex.slot, true
	}) // texHandle is already Ready, so Listen fires this callback immediately

	data, ok := pool.Get(h)
	if !ok {
		t.Fatal("material should still be alive")
	}
	if data.AlbedoID != 7 {
		t.Fatalf("AlbedoID = %d, want 7", data.AlbedoID)
	}
	if pool.Revision(h) != 1 {
		t.Fatalf("Revision = %d, want 1 after one Ready transition", pool.Revision(h))
	}
}

func TestDestroyDefersReclamationPastFramesInFlight(t *testing.T) {
	pool := NewPool(2)
	h := pool.Create(Data{AlbedoID: 5})

	pool.Destroy(h)
	if _, ok := pool.Get(h); !ok {
		t.Fatal("handle should remain alive until framesInFlight have passed")
	}

	pool.Tick() // frame 1
	if _, ok := pool.Get(h); !ok {
		t.Fatal("handle should still be alive one frame after Destroy")
	}

	pool.Tick() // frame 2: destroyed at frame 0, framesInFlight=2 -> free at frame 2
	if _, ok := pool.Get(h); ok {
		t.Fatal("handle should be reclaimed once framesInFlight have elapsed")
	}
}

func TestCreateAssignsDistinctHandles(t *testing.T) {
	pool := NewPool(1)
	a := pool.Create(Data{AlbedoID: 1})
	b := pool.Create(Data{AlbedoID: 2})

	da, _ := pool.Get(a)
	db, _ := pool.Get(b)
	if da.AlbedoID != 1 || db.AlbedoID != 2 {
		t.Fatalf("material data crossed handles: a=%v b=%v", da, db)
	}
}
