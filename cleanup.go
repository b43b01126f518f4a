package pagecache

import (
	"github.com/gogpu/pagecache/geom"
	"github.com/gogpu/pagecache/internal/ledger"
	"github.com/gogpu/pagecache/internal/tile"
)

// cleanupLocked frees at least toFree bytes if possible. Whole pages the
// consumers can spare go first, farthest from the viewport first; then
// every consumer gives up off-screen tiles of its farthest pages.
func (s *Scheduler) cleanupLocked(toFree uint64) {
	vp := s.viewport.Page
	var freed uint64
	for toFree > 0 {
		rec, ok := s.ledger.Farthest(vp, true, nil)
		if !ok {
			break
		}
		s.ledger.Evict(rec)
		toFree = sub(toFree, rec.Bytes)
		freed += rec.Bytes
	}

	var keep []ledger.Record[ConsumerID]
	for toFree > 0 {
		hits := 0
		for _, id := range s.consumerIDsLocked() {
			rec, ok := s.ledger.Take(vp, false, &id)
			if !ok {
				continue
			}
			hits++
			tree := s.pages[rec.Page].tiles(id)
			if tree == nil || tree.TotalMemory() == 0 {
				keep = append(keep, rec)
				continue
			}
			tree.Cleanup(toFree, visibleRect(s.visible, rec.Page), vp)
			after := tree.TotalMemory()
			diff := sub(rec.Bytes, after)
			toFree = sub(toFree, diff)
			freed += diff
			if after > 0 {
				rec.Bytes = after
				keep = append(keep, rec)
			}
		}
		if hits == 0 {
			break
		}
	}
	for _, rec := range keep {
		s.ledger.Put(rec)
	}

	if freed > 0 {
		Logger().Debug("pagecache: memory reclaimed", "freed", freed, "total", s.ledger.Total())
	}
}

// startTilesLocked switches the page of r to tile mode. The last
// whole-page pixmap seeds the new tree so something can be shown until
// the tiles are rendered.
func (s *Scheduler) startTilesLocked(r *Request) *tile.Tree {
	b := r.page.buffer(r.consumer)
	var tree *tile.Tree
	if pm := b.pixmap; pm != nil {
		tree = tile.New(r.Page, pm.Width(), pm.Height(), s.rotation)
		tree.SetPixmap(pm, geom.Full, true)
		tree.SetSize(r.Width, r.Height)
	} else {
		tree = newTree(r, s.rotation)
	}
	b.pixmap = nil
	b.tiles = tree

	s.ledger.Forget(r.consumer, r.Page)
	if m := tree.TotalMemory(); m > 0 {
		s.ledger.Record(r.consumer, r.Page, m)
	}
	Logger().Debug("pagecache: tiles on", "consumer", r.consumer, "page", r.Page,
		"width", r.Width, "height", r.Height)
	return tree
}

// stopTilesLocked switches a page back to whole-page mode.
func (s *Scheduler) stopTilesLocked(id ConsumerID, pg *page) {
	if pg.drop(id) {
		s.notifyReleaseLocked(id, pg.index)
	}
	s.ledger.Forget(id, pg.index)
	Logger().Debug("pagecache: tiles off", "consumer", id, "page", pg.index)
}

func newTree(r *Request, rotation geom.Rotation) *tile.Tree {
	return tile.New(r.Page, r.Width, r.Height, rotation)
}

// pendingTiles returns the smallest rectangle covering the tiles of rect
// that need rendering, or every tile of rect when all is set. The null
// rect means the whole page.
func pendingTiles(tree *tile.Tree, rect geom.UnitRect, all bool) geom.UnitRect {
	var u geom.UnitRect
	for _, t := range tree.TilesAt(rect, true) {
		if all || !t.Valid {
			u = u.Union(t.Rect)
		}
	}
	return u
}

// sub returns a-b, or 0 if b > a.
func sub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
