// Package tile implements the per-page quadtree of rendered tiles.
//
// A Tree covers one page rendered for one consumer. The page is divided
// into a fixed 4x4 grid of root tiles; tiles whose pixel area grows past
// MaxTilePixels are split into four quadrants on demand and merged back
// when a render covers them at a smaller size.
//
// Tiles are stored in canonical (unrotated) page space so tile identity
// survives rotation changes. Every rectangle crossing the API is in the
// rotated space of the current display rotation.
//
// Thread safety: Tree is NOT safe for concurrent use.
package tile

import (
	"cmp"
	"image"
	"slices"

	"github.com/gogpu/pagecache/geom"
	"github.com/gogpu/pagecache/pixmap"
)

const (
	// MaxTilePixels is the pixel area above which a tile is split.
	MaxTilePixels = 2_000_000

	// gridSize is the number of root tiles per page side.
	gridSize = 4

	// RootTiles is the number of root tiles of every tree.
	RootTiles = gridSize * gridSize
)

// handle indexes a node in the tree arena.
type handle int32

const noTile handle = -1

// node is a tile in the arena. A node either has four children or none.
type node struct {
	rect     geom.UnitRect // canonical page space
	pixmap   *pixmap.Pixmap
	rotation geom.Rotation // rotation pixmap was stored with
	dirty    bool
	distance float64
	parent   handle
	children [4]handle
}

func (n *node) isLeaf() bool { return n.children[0] == noTile }

// Tile is a tile returned by TilesAt.
type Tile struct {
	// Rect is the tile rectangle in rotated page space.
	Rect geom.UnitRect

	// Pixmap is the tile content, or nil if nothing has been rendered.
	// It is oriented for the current rotation but may have the size of an
	// older render when Valid is false.
	Pixmap *pixmap.Pixmap

	// Valid reports whether Pixmap is up to date.
	Valid bool
}

// Tree is the tile quadtree of a single page.
type Tree struct {
	nodes []node
	free  []handle
	roots [RootTiles]handle

	pageIndex int
	width     int // rendered page size, rotated space
	height    int
	rotation  geom.Rotation

	totalPixels uint64
	maxPixels   int64

	requestRect   geom.UnitRect
	requestWidth  int
	requestHeight int
}

// New creates a tree for page pageIndex rendered at width x height pixels
// with the given display rotation. All root tiles start dirty.
func New(pageIndex, width, height int, rotation geom.Rotation) *Tree {
	t := &Tree{
		nodes:     make([]node, 0, RootTiles*2),
		pageIndex: pageIndex,
		width:     width,
		height:    height,
		rotation:  rotation,
		maxPixels: MaxTilePixels,
	}
	const step = 1.0 / gridSize
	for i := range RootTiles {
		x, y := i%gridSize, i/gridSize
		r := geom.UnitRect{
			Left:   float64(x) * step,
			Top:    float64(y) * step,
			Right:  float64(x+1) * step,
			Bottom: float64(y+1) * step,
		}
		t.roots[i] = t.alloc(r, noTile)
	}
	return t
}

// SetMaxTilePixels overrides the split threshold. Values below one are
// ignored.
func (t *Tree) SetMaxTilePixels(n int64) {
	if n >= 1 {
		t.maxPixels = n
	}
}

// PageIndex returns the page the tree belongs to.
func (t *Tree) PageIndex() int { return t.pageIndex }

// Width returns the rendered page width in pixels.
func (t *Tree) Width() int { return t.width }

// Height returns the rendered page height in pixels.
func (t *Tree) Height() int { return t.height }

// Rotation returns the display rotation.
func (t *Tree) Rotation() geom.Rotation { return t.rotation }

// TotalMemory returns the bytes held by tile pixmaps.
func (t *Tree) TotalMemory() uint64 {
	return pixmap.BytesPerPixel * t.totalPixels
}

// SetSize changes the rendered page size. All tiles become dirty.
func (t *Tree) SetSize(width, height int) {
	if width == t.width && height == t.height {
		return
	}
	t.width, t.height = width, height
	t.MarkDirty()
}

// SetRotation changes the display rotation. All tiles become dirty; their
// pixmaps are re-oriented lazily by TilesAt.
func (t *Tree) SetRotation(rotation geom.Rotation) {
	if rotation == t.rotation {
		return
	}
	t.rotation = rotation
	t.MarkDirty()
}

// MarkDirty invalidates every tile. Pixmaps are kept for display until
// replaced or evicted.
func (t *Tree) MarkDirty() {
	for i := range t.nodes {
		t.nodes[i].dirty = true
	}
}

// SetRequest records the rectangle and page size of the render in flight.
// SetPixmap ignores results that do not match it.
func (t *Tree) SetRequest(rect geom.UnitRect, width, height int) {
	t.requestRect = rect
	t.requestWidth = width
	t.requestHeight = height
}

// ClearRequest forgets the render in flight.
func (t *Tree) ClearRequest() {
	t.requestRect = geom.UnitRect{}
	t.requestWidth, t.requestHeight = 0, 0
}

// IsRequesting reports whether a render of rect at width x height is in
// flight.
func (t *Tree) IsRequesting(rect geom.UnitRect, width, height int) bool {
	return !t.requestRect.IsNull() && t.requestRect.Equal(rect) &&
		width == t.requestWidth && height == t.requestHeight
}

// SetPixmap stores a rendered pixmap covering rect (rotated space; null
// means the whole page). The pixmap must be oriented for the current
// rotation and sized rect.Geometry(Width(), Height()).
//
// Tiles fully inside rect receive a copy of their part of pm. Partially
// covered tiles forward the fill to their existing children and drop
// their own pixmap. When partial is set the filled tiles stay dirty.
//
// It returns false if the pixmap does not answer the pending request.
func (t *Tree) SetPixmap(pm *pixmap.Pixmap, rect geom.UnitRect, partial bool) bool {
	if rect.IsNull() {
		rect = geom.Full
	}
	if !t.requestRect.IsNull() {
		if !t.requestRect.Equal(rect) {
			return false
		}
		if pm != nil && rect.Geometry(t.width, t.height).Size() != pm.Bounds().Size() {
			return false
		}
		t.ClearRequest()
	}
	canonical := geom.FromRotated(rect, t.rotation)
	origin := rect.Geometry(t.width, t.height).Min
	for _, h := range t.roots {
		t.fill(h, pm, canonical, origin, partial)
	}
	return true
}

func (t *Tree) fill(h handle, pm *pixmap.Pixmap, rect geom.UnitRect, origin image.Point, partial bool) {
	n := &t.nodes[h]
	if !n.rect.Intersects(rect) {
		return
	}

	// Partially covered: push the fill down to existing children only.
	if !rect.ContainsRect(n.rect) {
		if !n.isLeaf() {
			children := n.children
			for _, c := range children {
				t.fill(c, pm, rect, origin, partial)
			}
			t.dropPixmap(h)
			t.nodes[h].dirty = !t.childrenValid(h)
		}
		return
	}

	if n.isLeaf() {
		t.dropPixmap(h)
		if t.splitBig(h, rect) {
			t.nodes[h].dirty = partial
			children := t.nodes[h].children
			for _, c := range children {
				t.fill(c, pm, rect, origin, partial)
			}
			return
		}
		t.store(h, pm, origin, partial)
		return
	}

	if t.nodes[h].rect.PixelArea(t.width, t.height) > t.maxPixels {
		t.dropPixmap(h)
		t.nodes[h].dirty = partial
		children := t.nodes[h].children
		for _, c := range children {
			t.fill(c, pm, rect, origin, partial)
		}
		return
	}

	// Small enough again: merge the children back into this tile.
	t.merge(h)
	t.store(h, pm, origin, partial)
}

// store copies the part of pm covering node h into the node.
func (t *Tree) store(h handle, pm *pixmap.Pixmap, origin image.Point, partial bool) {
	t.dropPixmap(h)
	n := &t.nodes[h]
	n.rotation = t.rotation
	n.dirty = partial
	if pm == nil {
		n.dirty = true
		return
	}
	r := geom.ToRotated(n.rect, t.rotation).Geometry(t.width, t.height).Sub(origin)
	n.pixmap = pm.Crop(r)
	t.totalPixels += n.pixmap.Pixels()
}

// HasPixmap reports whether every tile intersecting rect (rotated space;
// null means the whole page) holds a valid pixmap.
func (t *Tree) HasPixmap(rect geom.UnitRect) bool {
	if rect.IsNull() {
		rect = geom.Full
	}
	canonical := geom.FromRotated(rect, t.rotation)
	for _, h := range t.roots {
		if !t.hasPixmap(h, canonical) {
			return false
		}
	}
	return true
}

func (t *Tree) hasPixmap(h handle, rect geom.UnitRect) bool {
	n := &t.nodes[h]
	if n.rect.Intersect(rect).IsEmpty() {
		return true
	}
	if n.isLeaf() {
		return n.pixmap != nil && !n.dirty
	}
	// All children valid: no need to go deeper.
	if !n.dirty {
		return true
	}
	for _, c := range n.children {
		if !t.hasPixmap(c, rect) {
			return false
		}
	}
	return true
}

// TilesAt returns the tiles covering rect (rotated space; null means the
// whole page). With includeEmpty every leaf is returned, otherwise only
// tiles holding a pixmap. Oversized tiles intersecting rect are split
// first, so no returned tile exceeds the split threshold.
func (t *Tree) TilesAt(rect geom.UnitRect, includeEmpty bool) []Tile {
	if rect.IsNull() {
		rect = geom.Full
	}
	canonical := geom.FromRotated(rect, t.rotation)
	var result []Tile
	for _, h := range t.roots {
		result = t.tilesAt(h, canonical, includeEmpty, result)
	}
	return result
}

func (t *Tree) tilesAt(h handle, rect geom.UnitRect, includeEmpty bool, result []Tile) []Tile {
	if !t.nodes[h].rect.Intersects(rect) {
		return result
	}
	t.splitBig(h, rect)

	n := &t.nodes[h]
	if (includeEmpty && n.isLeaf()) || (!includeEmpty && n.pixmap != nil) {
		if n.pixmap != nil && n.rotation != t.rotation {
			n.pixmap = n.pixmap.Rotate(n.rotation, t.rotation)
			n.rotation = t.rotation
		}
		return append(result, Tile{
			Rect:   geom.ToRotated(n.rect, t.rotation),
			Pixmap: n.pixmap,
			Valid:  n.pixmap != nil && !n.dirty,
		})
	}
	children := n.children
	if children[0] == noTile {
		return result
	}
	for _, c := range children {
		result = t.tilesAt(c, rect, includeEmpty, result)
	}
	return result
}

// Cleanup evicts tile pixmaps until at least bytesToFree bytes are freed or
// nothing evictable remains, and returns the bytes freed.
//
// visibleRect is the visible part of this page in rotated space, or null
// if the page is off screen; tiles intersecting it are never evicted.
// visiblePage is the index of a page currently on screen and is used to
// rank off-screen pages. With a null visibleRect and a negative
// visiblePage nothing can be ranked and nothing is evicted.
//
// Dirty tiles go first, then tiles farther from the viewport.
func (t *Tree) Cleanup(bytesToFree uint64, visibleRect geom.UnitRect, visiblePage int) uint64 {
	if bytesToFree == 0 || (visibleRect.IsNull() && visiblePage < 0) {
		return 0
	}
	visible := geom.FromRotated(visibleRect, t.rotation)

	var ranked []handle
	for _, h := range t.roots {
		ranked = t.rank(h, visible, visiblePage, ranked)
	}
	slices.SortStableFunc(ranked, func(a, b handle) int {
		na, nb := &t.nodes[a], &t.nodes[b]
		if na.dirty != nb.dirty {
			if !na.dirty {
				return -1
			}
			return 1
		}
		return cmp.Compare(na.distance, nb.distance)
	})

	var freed uint64
	for freed < bytesToFree && len(ranked) > 0 {
		h := ranked[len(ranked)-1]
		ranked = ranked[:len(ranked)-1]
		n := &t.nodes[h]
		if n.pixmap == nil || (!visible.IsNull() && n.rect.Intersects(visible)) {
			continue
		}
		freed += n.pixmap.ByteSize()
		t.dropPixmap(h)
		t.nodes[h].dirty = true
		t.markParentDirty(h)
	}
	if freed > 0 {
		slogger().Debug("tile: evicted tiles", "page", t.pageIndex, "bytes", freed)
	}
	return freed
}

// rank computes the viewport distance of every tile holding a pixmap.
func (t *Tree) rank(h handle, visible geom.UnitRect, visiblePage int, ranked []handle) []handle {
	n := &t.nodes[h]
	if n.pixmap == nil {
		children := n.children
		if children[0] == noTile {
			return ranked
		}
		for _, c := range children {
			ranked = t.rank(c, visible, visiblePage, ranked)
		}
		return ranked
	}

	if !visible.IsNull() {
		vx, vy := visible.Center()
		tx, ty := n.rect.Center()
		n.distance = abs(vx-tx) + abs(vy-ty)
	} else {
		// Off-screen pages only use the distance to the edge facing the
		// viewport.
		r := geom.ToRotated(n.rect, t.rotation)
		if t.pageIndex < visiblePage {
			n.distance = 1 - r.Bottom
		} else {
			n.distance = r.Top
		}
	}
	return append(ranked, h)
}

// splitBig splits an oversized tile. It reports whether the tile is
// oversized.
func (t *Tree) splitBig(h handle, rect geom.UnitRect) bool {
	if t.nodes[h].rect.PixelArea(t.width, t.height) <= t.maxPixels {
		return false
	}
	t.split(h, rect)
	return true
}

// split divides a leaf intersecting rect into four quadrants, recursing
// into quadrants that are still oversized. A pixmap held by the leaf is
// handed down to the quadrants when its size still matches the page.
func (t *Tree) split(h handle, rect geom.UnitRect) {
	n := &t.nodes[h]
	if !n.isLeaf() || rect.IsNull() || !n.rect.Intersects(rect) {
		return
	}
	r := n.rect
	cx, cy := r.Center()
	quads := [4]geom.UnitRect{
		{Left: r.Left, Top: r.Top, Right: cx, Bottom: cy},
		{Left: cx, Top: r.Top, Right: r.Right, Bottom: cy},
		{Left: r.Left, Top: cy, Right: cx, Bottom: r.Bottom},
		{Left: cx, Top: cy, Right: r.Right, Bottom: r.Bottom},
	}
	var children [4]handle
	for i, q := range quads {
		children[i] = t.alloc(q, h)
	}
	t.nodes[h].children = children
	t.handDown(h)

	for _, c := range children {
		t.splitBig(c, rect)
	}
}

// handDown moves the pixmap of a freshly split tile into its children.
func (t *Tree) handDown(h handle) {
	n := &t.nodes[h]
	pm := n.pixmap
	if pm == nil {
		return
	}
	parentGeom := geom.ToRotated(n.rect, n.rotation).Geometry(t.width, t.height)
	if n.rotation != t.rotation || parentGeom.Size() != pm.Bounds().Size() {
		t.dropPixmap(h)
		return
	}
	dirty, rotation := n.dirty, n.rotation
	t.dropPixmap(h)
	for _, c := range t.nodes[h].children {
		cn := &t.nodes[c]
		r := geom.ToRotated(cn.rect, rotation).Geometry(t.width, t.height).Sub(parentGeom.Min)
		cn.pixmap = pm.Crop(r)
		cn.rotation = rotation
		cn.dirty = dirty
		t.totalPixels += cn.pixmap.Pixels()
	}
}

// merge deletes all descendants of h.
func (t *Tree) merge(h handle) {
	children := t.nodes[h].children
	if children[0] == noTile {
		return
	}
	for _, c := range children {
		t.release(c)
	}
	t.nodes[h].children = [4]handle{noTile, noTile, noTile, noTile}
}

// release returns a subtree to the free list.
func (t *Tree) release(h handle) {
	children := t.nodes[h].children
	if children[0] != noTile {
		for _, c := range children {
			t.release(c)
		}
	}
	t.dropPixmap(h)
	t.nodes[h] = node{parent: noTile, children: [4]handle{noTile, noTile, noTile, noTile}}
	t.free = append(t.free, h)
}

func (t *Tree) markParentDirty(h handle) {
	for p := t.nodes[h].parent; p != noTile && !t.nodes[p].dirty; p = t.nodes[p].parent {
		t.nodes[p].dirty = true
	}
}

// childrenValid reports whether all children of h hold valid content.
func (t *Tree) childrenValid(h handle) bool {
	for _, c := range t.nodes[h].children {
		cn := &t.nodes[c]
		if cn.dirty || (cn.isLeaf() && cn.pixmap == nil) {
			return false
		}
	}
	return true
}

func (t *Tree) dropPixmap(h handle) {
	n := &t.nodes[h]
	if n.pixmap != nil {
		t.totalPixels -= n.pixmap.Pixels()
		n.pixmap = nil
	}
}

// alloc returns a new dirty leaf, reusing freed arena slots.
func (t *Tree) alloc(rect geom.UnitRect, parent handle) handle {
	n := node{
		rect:     rect,
		rotation: t.rotation,
		dirty:    true,
		parent:   parent,
		children: [4]handle{noTile, noTile, noTile, noTile},
	}
	if k := len(t.free); k > 0 {
		h := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[h] = n
		return h
	}
	t.nodes = append(t.nodes, n)
	return handle(len(t.nodes) - 1)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
