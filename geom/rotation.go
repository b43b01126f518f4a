package geom

import (
	"fmt"
	"image"
)

// Rotation is the clockwise rotation a page is displayed with.
type Rotation int

// Supported page rotations.
const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// RotationFromDegrees converts a multiple of 90 degrees into a Rotation.
// Negative angles and angles above 360 are normalized.
func RotationFromDegrees(deg int) (Rotation, error) {
	if deg%90 != 0 {
		return Rotate0, fmt.Errorf("geom: rotation %d is not a multiple of 90", deg)
	}
	q := (deg / 90) % 4
	if q < 0 {
		q += 4
	}
	return Rotation(q), nil
}

// Degrees returns the rotation angle in degrees.
func (r Rotation) Degrees() int {
	return int(r.normalized()) * 90
}

// SwapsAxes reports whether the rotation exchanges page width and height.
func (r Rotation) SwapsAxes() bool {
	return r.normalized()%2 == 1
}

// String implements fmt.Stringer.
func (r Rotation) String() string {
	return fmt.Sprintf("%d°", r.Degrees())
}

func (r Rotation) normalized() Rotation {
	q := r % 4
	if q < 0 {
		q += 4
	}
	return q
}

// ToRotated maps a rectangle from canonical page space to the space of a
// page displayed with rotation rot.
func ToRotated(r UnitRect, rot Rotation) UnitRect {
	if r.IsNull() {
		return r
	}
	switch rot.normalized() {
	case Rotate90:
		return UnitRect{Left: r.Top, Top: 1 - r.Right, Right: r.Bottom, Bottom: 1 - r.Left}
	case Rotate180:
		return UnitRect{Left: 1 - r.Right, Top: 1 - r.Bottom, Right: 1 - r.Left, Bottom: 1 - r.Top}
	case Rotate270:
		return UnitRect{Left: 1 - r.Bottom, Top: r.Left, Right: 1 - r.Top, Bottom: r.Right}
	default:
		return r
	}
}

// FromRotated is the inverse of ToRotated: it maps a rectangle seen on a
// page displayed with rotation rot back to canonical page space.
func FromRotated(r UnitRect, rot Rotation) UnitRect {
	switch rot.normalized() {
	case Rotate90:
		return ToRotated(r, Rotate270)
	case Rotate270:
		return ToRotated(r, Rotate90)
	default:
		return ToRotated(r, rot)
	}
}

// RotatePixels maps the pixel rectangle p of a page rendered at width x
// height and displayed with rotation from to the same page displayed with
// rotation to. Each quarter turn moves the pixel (x, y) to
// (y, width-1-x), as pixmap.Rotate does, so the result always has the
// size of p, with axes exchanged on odd turns.
func RotatePixels(p image.Rectangle, width, height int, from, to Rotation) image.Rectangle {
	turns := (to.normalized() - from.normalized() + 4) % 4
	for range turns {
		p = image.Rect(p.Min.Y, width-p.Max.X, p.Max.Y, width-p.Min.X)
		width, height = height, width
	}
	return p
}
