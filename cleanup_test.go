package pagecache

import (
	"slices"
	"testing"

	"github.com/gogpu/pagecache/geom"
	"github.com/gogpu/pagecache/memory"
)

func TestCleanup_EvictsFarthestWholePages(t *testing.T) {
	s := newTestScheduler(t, &fakeRenderer{}, 10)
	c := newFakeConsumer(5)
	id := s.Register(c)
	s.SetViewport(Viewport{Page: 5})

	for _, p := range []int{2, 5, 9} {
		_ = s.Submit(id, []*Request{{Page: p, Width: 600, Height: 600}}, false)
	}
	const pageBytes = 600 * 600 * 4
	if got := s.CurrentMemoryUsage(); got != 3*pageBytes {
		t.Fatalf("CurrentMemoryUsage() = %d, want %d", got, 3*pageBytes)
	}

	s.SetMemoryProfile(memory.Low)
	_ = s.Submit(id, []*Request{{Page: 0, Width: 600, Height: 600}}, false)

	if got := c.Released(); !slices.Equal(got, []int{9, 2}) {
		t.Errorf("released pages = %v, want [9 2]", got)
	}
	if s.Pixmap(id, 5) == nil {
		t.Error("pinned page 5 was evicted")
	}
	if s.Pixmap(id, 0) == nil {
		t.Error("page 0 was not rendered")
	}
	if got := s.CurrentMemoryUsage(); got != 2*pageBytes {
		t.Errorf("CurrentMemoryUsage() = %d, want %d", got, 2*pageBytes)
	}
}

func TestCleanup_SmallRenderSkipsCleanup(t *testing.T) {
	s := newTestScheduler(t, &fakeRenderer{}, 4)
	c := newFakeConsumer()
	id := s.Register(c)

	_ = s.Submit(id, []*Request{{Page: 3, Width: 100, Height: 100}}, false)
	s.SetMemoryProfile(memory.Low)
	_ = s.Submit(id, []*Request{{Page: 0, Width: 100, Height: 100}}, false)

	if len(c.Released()) != 0 {
		t.Errorf("released pages = %v, want none", c.Released())
	}
	if st := s.Stats(); st.Allocations != 2 {
		t.Errorf("Stats().Allocations = %d, want 2", st.Allocations)
	}
}

func TestCleanup_EvictsOffscreenTiles(t *testing.T) {
	s := newTestScheduler(t, &fakeRenderer{tiled: true}, 2, WithTileThresholds(500_000, 300_000))
	c := newFakeConsumer(0)
	id := s.Register(c)
	corner := geom.UnitRect{Left: 0, Top: 0, Right: 0.25, Bottom: 0.25}
	s.SetVisibleRects([]VisibleRect{{Page: 0, Rect: corner}})

	_ = s.Submit(id, []*Request{{Page: 0, Width: 800, Height: 800, Rect: geom.Full}}, false)
	if got := len(s.Tiles(id, 0, geom.Full, false)); got != 16 {
		t.Fatalf("tiles = %d, want 16", got)
	}
	if got := s.CurrentMemoryUsage(); got != 800*800*4 {
		t.Fatalf("CurrentMemoryUsage() = %d, want %d", got, 800*800*4)
	}

	s.SetMemoryProfile(memory.Low)
	_ = s.Submit(id, []*Request{{Page: 1, Width: 650, Height: 650}}, false)

	tiles := s.Tiles(id, 0, geom.Full, false)
	if len(tiles) != 1 || !tiles[0].Rect.Equal(corner) {
		t.Fatalf("tiles after cleanup = %v, want only the visible corner", tiles)
	}
	if want := uint64(200*200*4 + 650*650*4); s.CurrentMemoryUsage() != want {
		t.Errorf("CurrentMemoryUsage() = %d, want %d", s.CurrentMemoryUsage(), want)
	}
	if len(c.Released()) != 0 {
		t.Errorf("released pages = %v, want none", c.Released())
	}
}

func TestLedgerFollowsTileSplits(t *testing.T) {
	r := &fakeRenderer{async: true, tiled: true}
	s := newTestScheduler(t, r, 1, WithTileThresholds(500_000, 300_000))
	id := s.Register(newFakeConsumer())

	_ = s.Submit(id, []*Request{{Page: 0, Width: 800, Height: 800, Rect: geom.Full}}, false)
	r.completeNext(t)
	const tileBytes = 200 * 200 * 4
	if got := s.CurrentMemoryUsage(); got != 16*tileBytes {
		t.Fatalf("CurrentMemoryUsage() = %d, want %d", got, 16*tileBytes)
	}

	// At 6000 x 6000 a root tile is split; its old pixmap no longer fits.
	corner := geom.UnitRect{Left: 0, Top: 0, Right: 0.1, Bottom: 0.1}
	_ = s.Submit(id, []*Request{{Page: 0, Width: 6000, Height: 6000, Rect: corner}}, false)
	if got := s.CurrentMemoryUsage(); got != 15*tileBytes {
		t.Errorf("CurrentMemoryUsage() after split = %d, want %d", got, 15*tileBytes)
	}

	// Looking at the whole page splits the other roots too.
	if tiles := s.Tiles(id, 0, geom.Full, true); len(tiles) != 64 {
		t.Errorf("Tiles() = %d tiles, want 64", len(tiles))
	}
	if st := s.Stats(); st.Bytes != 0 || st.Allocations != 0 {
		t.Errorf("Stats() after split = %+v, want no bytes and no allocations", st)
	}
}

func TestPendingTiles(t *testing.T) {
	r := &fakeRenderer{tiled: true}
	s := newTestScheduler(t, r, 1, WithTileThresholds(500_000, 300_000))
	id := s.Register(newFakeConsumer())
	_ = s.Submit(id, []*Request{{Page: 0, Width: 800, Height: 800,
		Rect: geom.UnitRect{Left: 0, Top: 0, Right: 0.5, Bottom: 0.5}}}, false)

	s.mu.Lock()
	tree := s.pages[0].tiles(id)
	s.mu.Unlock()

	tests := []struct {
		name string
		rect geom.UnitRect
		all  bool
		want geom.UnitRect
	}{
		{"valid region", geom.UnitRect{Left: 0, Top: 0, Right: 0.5, Bottom: 0.5}, false, geom.UnitRect{}},
		{"forced", geom.UnitRect{Left: 0, Top: 0, Right: 0.5, Bottom: 0.5}, true, geom.UnitRect{Left: 0, Top: 0, Right: 0.5, Bottom: 0.5}},
		{"mixed", geom.UnitRect{Left: 0.1, Top: 0.1, Right: 0.6, Bottom: 0.4}, false, geom.UnitRect{Left: 0.5, Top: 0, Right: 0.75, Bottom: 0.5}},
		{"whole page", geom.UnitRect{}, false, geom.Full},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pendingTiles(tree, tt.rect, tt.all); !got.Equal(tt.want) {
				t.Errorf("pendingTiles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSub(t *testing.T) {
	if got := sub(5, 3); got != 2 {
		t.Errorf("sub(5, 3) = %d, want 2", got)
	}
	if got := sub(3, 5); got != 0 {
		t.Errorf("sub(3, 5) = %d, want 0", got)
	}
}
