package pagecache

import (
	"slices"

	"github.com/gogpu/pagecache/geom"
	"github.com/gogpu/pagecache/internal/tile"
	"github.com/gogpu/pagecache/memory"
	"github.com/gogpu/pagecache/pixmap"
)

// PageTile is a rendered tile of a page, in display space.
type PageTile = tile.Tile

// Stats is a snapshot of the scheduler state.
type Stats struct {
	Queued      int
	InFlight    int
	Allocations int
	Bytes       uint64
	Profile     memory.Profile

	Dispatched uint64
	Completed  uint64
	Discarded  uint64
}

// Stats returns a snapshot of the scheduler state.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Queued:      len(s.queue),
		InFlight:    len(s.inFlight),
		Allocations: s.ledger.Len(),
		Bytes:       s.ledger.Total(),
		Profile:     s.profile,
		Dispatched:  s.dispatched,
		Completed:   s.completed,
		Discarded:   s.discarded,
	}
}

// PageCount returns the number of pages of the document.
func (s *Scheduler) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// CurrentMemoryUsage returns the bytes held by all buffers.
func (s *Scheduler) CurrentMemoryUsage() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Total()
}

// SetMemoryProfile changes the memory profile used from the next dispatch
// on.
func (s *Scheduler) SetMemoryProfile(p memory.Profile) {
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	Logger().Debug("pagecache: memory profile changed", "profile", p)
}

// MemoryProfile returns the active memory profile.
func (s *Scheduler) MemoryProfile() memory.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SetViewport sets the page on screen, used to rank buffers for eviction.
func (s *Scheduler) SetViewport(v Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = v
}

// Viewport returns the current viewport.
func (s *Scheduler) Viewport() Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// SetVisibleRects sets the visible part of every page on screen. Tiles
// intersecting them are never evicted.
func (s *Scheduler) SetVisibleRects(rects []VisibleRect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = slices.Clone(rects)
}

// SetRotation changes the display rotation. Whole-page buffers and queued
// requests are dropped, since both were sized for the old rotation; tile
// trees keep their tiles and become dirty. Consumers resubmit afterwards.
func (s *Scheduler) SetRotation(rotation geom.Rotation) {
	s.mu.Lock()
	if rotation == s.rotation {
		s.mu.Unlock()
		return
	}
	s.rotation = rotation
	s.dropQueuedLocked(func(*Request) bool { return true })
	for _, p := range s.pages {
		for _, id := range p.dropPixmaps() {
			s.ledger.Forget(id, p.index)
			s.notifyReleaseLocked(id, p.index)
		}
		for _, b := range p.buffers {
			if b.tiles != nil {
				b.tiles.SetRotation(rotation)
			}
		}
	}
	s.unlock()
	Logger().Debug("pagecache: rotation changed", "rotation", rotation)
}

// Rotation returns the display rotation.
func (s *Scheduler) Rotation() geom.Rotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotation
}

// Pixmap returns the whole-page buffer of page held for consumer id, or
// nil. The pixmap must not be modified.
func (s *Scheduler) Pixmap(id ConsumerID, page int) *pixmap.Pixmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 0 || page >= len(s.pages) {
		return nil
	}
	return s.pages[page].pixmap(id)
}

// IsTiled reports whether page is rendered as tiles for consumer id.
func (s *Scheduler) IsTiled(id ConsumerID, page int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 0 || page >= len(s.pages) {
		return false
	}
	return s.pages[page].tiles(id) != nil
}

// Tiles returns the tiles of page covering rect held for consumer id, or
// nil if the page is not tiled. See tile.Tree.TilesAt for includeEmpty.
// The tile pixmaps must not be modified.
func (s *Scheduler) Tiles(id ConsumerID, page int, rect geom.UnitRect, includeEmpty bool) []PageTile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 0 || page >= len(s.pages) {
		return nil
	}
	tree := s.pages[page].tiles(id)
	if tree == nil {
		return nil
	}
	tiles := tree.TilesAt(rect, includeEmpty)
	s.trackLocked(id, s.pages[page])
	return tiles
}

// HasPixmap reports whether consumer id holds valid content for rect of
// page rendered at width x height.
func (s *Scheduler) HasPixmap(id ConsumerID, page, width, height int, rect geom.UnitRect) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 0 || page >= len(s.pages) {
		return false
	}
	return s.pages[page].hasPixmap(id, width, height, rect)
}

// Snapshot composes what consumer id holds for page into a new pixmap of
// width x height, scaling buffers rendered at another size. Missing tiles
// stay transparent. It returns nil if nothing is held.
func (s *Scheduler) Snapshot(id ConsumerID, page, width, height int) *pixmap.Pixmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 0 || page >= len(s.pages) {
		return nil
	}
	p := s.pages[page]
	if pm := p.pixmap(id); pm != nil {
		return pm.Scale(width, height)
	}
	tree := p.tiles(id)
	if tree == nil {
		return nil
	}
	tiles := tree.TilesAt(geom.Full, false)
	s.trackLocked(id, p)
	if len(tiles) == 0 {
		return nil
	}
	out := pixmap.New(width, height)
	for _, t := range tiles {
		g := t.Rect.Geometry(width, height)
		src := t.Pixmap
		if src.Width() != g.Dx() || src.Height() != g.Dy() {
			src = src.Scale(g.Dx(), g.Dy())
		}
		out.Paste(src, g.Min)
	}
	return out
}
