package pagecache

import (
	"github.com/gogpu/pagecache/geom"
	"github.com/gogpu/pagecache/internal/tile"
	"github.com/gogpu/pagecache/pixmap"
)

// page holds the buffers rendered for one document page.
type page struct {
	index   int
	buffers map[ConsumerID]*buffer
}

// buffer is what one consumer holds for a page: either a whole-page
// pixmap or a tile tree.
type buffer struct {
	pixmap *pixmap.Pixmap // display orientation
	tiles  *tile.Tree
}

func newPage(index int) *page {
	return &page{index: index, buffers: make(map[ConsumerID]*buffer)}
}

// buffer returns the buffer of consumer id, creating it if needed.
func (p *page) buffer(id ConsumerID) *buffer {
	b := p.buffers[id]
	if b == nil {
		b = &buffer{}
		p.buffers[id] = b
	}
	return b
}

func (p *page) tiles(id ConsumerID) *tile.Tree {
	if b := p.buffers[id]; b != nil {
		return b.tiles
	}
	return nil
}

func (p *page) pixmap(id ConsumerID) *pixmap.Pixmap {
	if b := p.buffers[id]; b != nil {
		return b.pixmap
	}
	return nil
}

// hasPixmap reports whether consumer id holds valid content for rect at
// width x height.
func (p *page) hasPixmap(id ConsumerID, width, height int, rect geom.UnitRect) bool {
	b := p.buffers[id]
	if b == nil {
		return false
	}
	if b.tiles != nil {
		if b.tiles.Width() != width || b.tiles.Height() != height {
			return false
		}
		return b.tiles.HasPixmap(rect)
	}
	return b.pixmap != nil && b.pixmap.Width() == width && b.pixmap.Height() == height
}

// memory returns the bytes held for consumer id.
func (p *page) memory(id ConsumerID) uint64 {
	b := p.buffers[id]
	switch {
	case b == nil:
		return 0
	case b.tiles != nil:
		return b.tiles.TotalMemory()
	case b.pixmap != nil:
		return b.pixmap.ByteSize()
	}
	return 0
}

// drop removes everything held for consumer id. It reports whether
// anything was held.
func (p *page) drop(id ConsumerID) bool {
	b := p.buffers[id]
	if b == nil {
		return false
	}
	delete(p.buffers, id)
	return b.pixmap != nil || b.tiles != nil
}

// dropPixmaps drops all whole-page pixmaps and returns the consumers that
// held one.
func (p *page) dropPixmaps() []ConsumerID {
	var ids []ConsumerID
	for id, b := range p.buffers {
		if b.pixmap != nil {
			b.pixmap = nil
			ids = append(ids, id)
		}
	}
	return ids
}
