package geom

import (
	"fmt"
	"image"
	"math"
)

// epsilon is the tolerance used when comparing unit coordinates.
const epsilon = 1e-4

// UnitRect is a rectangle in the unit square of a page.
//
// The zero value is the null rectangle. It is used as a marker for
// "no rectangle" (for example "the whole page" in a render request or
// "page not visible" in eviction). UnitRect is an immutable value type:
// every operation returns a new value.
type UnitRect struct {
	Left, Top, Right, Bottom float64
}

// Full is the rectangle covering the whole page.
var Full = UnitRect{Left: 0, Top: 0, Right: 1, Bottom: 1}

// NewUnitRect returns the rectangle spanning the given edges.
// Swapped edges are normalized so that Left <= Right and Top <= Bottom.
func NewUnitRect(left, top, right, bottom float64) UnitRect {
	if left > right {
		left, right = right, left
	}
	if top > bottom {
		top, bottom = bottom, top
	}
	return UnitRect{Left: left, Top: top, Right: right, Bottom: bottom}
}

// IsNull reports whether r is the null rectangle.
func (r UnitRect) IsNull() bool {
	return r == UnitRect{}
}

// IsEmpty reports whether r has no area.
func (r UnitRect) IsEmpty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// Width returns the horizontal extent of r.
func (r UnitRect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent of r.
func (r UnitRect) Height() float64 { return r.Bottom - r.Top }

// Area returns the area of r as a fraction of the page.
func (r UnitRect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Center returns the center point of r.
func (r UnitRect) Center() (x, y float64) {
	return (r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2
}

// Contains reports whether the point (x, y) lies inside r, edges included.
func (r UnitRect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// ContainsRect reports whether o lies entirely inside r.
func (r UnitRect) ContainsRect(o UnitRect) bool {
	return o.Left >= r.Left-epsilon && o.Right <= r.Right+epsilon &&
		o.Top >= r.Top-epsilon && o.Bottom <= r.Bottom+epsilon
}

// Intersects reports whether r and o share a region of positive area.
// Rectangles that only touch along an edge do not intersect.
func (r UnitRect) Intersects(o UnitRect) bool {
	return o.Left < r.Right && o.Right > r.Left && o.Top < r.Bottom && o.Bottom > r.Top
}

// Intersect returns the overlap of r and o, or the null rectangle.
func (r UnitRect) Intersect(o UnitRect) UnitRect {
	if !r.Intersects(o) {
		return UnitRect{}
	}
	return UnitRect{
		Left:   max(r.Left, o.Left),
		Top:    max(r.Top, o.Top),
		Right:  min(r.Right, o.Right),
		Bottom: min(r.Bottom, o.Bottom),
	}
}

// Union returns the smallest rectangle containing both r and o.
// The null rectangle is the identity element.
func (r UnitRect) Union(o UnitRect) UnitRect {
	if r.IsNull() {
		return o
	}
	if o.IsNull() {
		return r
	}
	return UnitRect{
		Left:   min(r.Left, o.Left),
		Top:    min(r.Top, o.Top),
		Right:  max(r.Right, o.Right),
		Bottom: max(r.Bottom, o.Bottom),
	}
}

// Equal reports whether r and o are the same rectangle within a small
// tolerance.
func (r UnitRect) Equal(o UnitRect) bool {
	if r.IsNull() || o.IsNull() {
		return r.IsNull() && o.IsNull()
	}
	return math.Abs(r.Left-o.Left) < epsilon && math.Abs(r.Top-o.Top) < epsilon &&
		math.Abs(r.Right-o.Right) < epsilon && math.Abs(r.Bottom-o.Bottom) < epsilon
}

// Clamp restricts r to the unit square.
func (r UnitRect) Clamp() UnitRect {
	return UnitRect{
		Left:   clamp01(r.Left),
		Top:    clamp01(r.Top),
		Right:  clamp01(r.Right),
		Bottom: clamp01(r.Bottom),
	}
}

// Geometry maps r onto a page rendered at width x height pixels.
//
// Edges are rounded to the nearest pixel, so rectangles sharing an edge in
// unit space also share it in pixel space and never overlap.
func (r UnitRect) Geometry(width, height int) image.Rectangle {
	w, h := float64(width), float64(height)
	return image.Rect(
		int(math.Round(r.Left*w)),
		int(math.Round(r.Top*h)),
		int(math.Round(r.Right*w)),
		int(math.Round(r.Bottom*h)),
	)
}

// PixelArea returns the number of pixels covered by r on a page rendered
// at width x height pixels.
func (r UnitRect) PixelArea(width, height int) int64 {
	g := r.Geometry(width, height)
	return int64(g.Dx()) * int64(g.Dy())
}

// String implements fmt.Stringer.
func (r UnitRect) String() string {
	if r.IsNull() {
		return "UnitRect(null)"
	}
	return fmt.Sprintf("UnitRect(%.4g,%.4g %.4g,%.4g)", r.Left, r.Top, r.Right, r.Bottom)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
