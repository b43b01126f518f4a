package pagecache

import "github.com/gogpu/pagecache/geom"

// Viewport is the page on screen and the anchor position inside it, in
// unit coordinates.
type Viewport struct {
	Page int
	X, Y float64
}

// VisibleRect is the visible part of one page in display space.
type VisibleRect struct {
	Page int
	Rect geom.UnitRect
}

// visibleRect returns the visible part of page, or the null rect if the
// page is off screen.
func visibleRect(rects []VisibleRect, page int) geom.UnitRect {
	for _, v := range rects {
		if v.Page == page {
			return v.Rect
		}
	}
	return geom.UnitRect{}
}
