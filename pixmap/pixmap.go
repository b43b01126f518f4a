// Package pixmap provides the pixel buffers held by the page cache.
//
// A Pixmap stores premultiplied RGBA pixels, 4 bytes per pixel, in row-major
// order. This fixed layout is what the memory accounting of the cache relies
// on: the size of a buffer is always 4 * width * height bytes.
package pixmap

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/gogpu/pagecache/geom"
)

// BytesPerPixel is the storage size of one pixel.
const BytesPerPixel = 4

// Pixmap represents a rectangular pixel buffer.
type Pixmap struct {
	width  int
	height int
	data   []uint8 // RGBA format, 4 bytes per pixel
}

// New creates a new transparent pixmap with the given dimensions.
// Non-positive dimensions produce an empty pixmap.
func New(width, height int) *Pixmap {
	width, height = max(width, 0), max(height, 0)
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*BytesPerPixel),
	}
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int {
	return p.height
}

// Pixels returns the number of pixels in the pixmap.
func (p *Pixmap) Pixels() uint64 {
	return uint64(p.width) * uint64(p.height)
}

// ByteSize returns the memory used by the pixel data.
func (p *Pixmap) ByteSize() uint64 {
	return p.Pixels() * BytesPerPixel
}

// Data returns the raw pixel data (premultiplied RGBA).
func (p *Pixmap) Data() []uint8 {
	return p.data
}

// RGBA returns an *image.RGBA sharing the pixmap memory.
// Drawing into the returned image modifies the pixmap.
func (p *Pixmap) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    p.data,
		Stride: p.width * BytesPerPixel,
		Rect:   image.Rect(0, 0, p.width, p.height),
	}
}

// Fill paints the whole pixmap with c.
func (p *Pixmap) Fill(c color.Color) {
	draw.Draw(p.RGBA(), p.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Crop returns a copy of the pixels inside r. The rectangle is clipped to
// the pixmap bounds; an empty intersection yields an empty pixmap.
func (p *Pixmap) Crop(r image.Rectangle) *Pixmap {
	r = r.Intersect(p.Bounds())
	out := New(r.Dx(), r.Dy())
	if r.Empty() {
		return out
	}
	stride := p.width * BytesPerPixel
	row := r.Dx() * BytesPerPixel
	for y := 0; y < r.Dy(); y++ {
		src := (r.Min.Y+y)*stride + r.Min.X*BytesPerPixel
		copy(out.data[y*row:(y+1)*row], p.data[src:src+row])
	}
	return out
}

// Scale returns a copy of the pixmap resampled to width x height.
func (p *Pixmap) Scale(width, height int) *Pixmap {
	out := New(width, height)
	if p.width == 0 || p.height == 0 || width <= 0 || height <= 0 {
		return out
	}
	if width == p.width && height == p.height {
		copy(out.data, p.data)
		return out
	}
	draw.ApproxBiLinear.Scale(out.RGBA(), out.Bounds(), p.RGBA(), p.Bounds(), draw.Src, nil)
	return out
}

// Paste copies src into p with its top-left corner at pt.
// Pixels falling outside p are dropped.
func (p *Pixmap) Paste(src *Pixmap, pt image.Point) {
	draw.Copy(p.RGBA(), pt, src.RGBA(), src.Bounds(), draw.Src, nil)
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return color.RGBA{}
	}
	i := (y*p.width + x) * BytesPerPixel
	return color.RGBA{R: p.data[i], G: p.data[i+1], B: p.data[i+2], A: p.data[i+3]}
}

// Set implements the draw.Image interface.
func (p *Pixmap) Set(x, y int, c color.Color) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	i := (y*p.width + x) * BytesPerPixel
	p.data[i+0] = rgba.R
	p.data[i+1] = rgba.G
	p.data[i+2] = rgba.B
	p.data[i+3] = rgba.A
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.RGBAModel
}

// FromImage creates a pixmap from an image.
func FromImage(img image.Image) *Pixmap {
	b := img.Bounds()
	pm := New(b.Dx(), b.Dy())
	draw.Draw(pm.RGBA(), pm.Bounds(), img, b.Min, draw.Src)
	return pm
}

// SavePNG saves the pixmap to a PNG file.
func (p *Pixmap) SavePNG(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	if err := png.Encode(f, p.RGBA()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Rotate returns a copy of p re-oriented from a page displayed with rotation
// from to one displayed with rotation to. The pixel mapping matches
// geom.ToRotated: each quarter turn moves the pixel (x, y) to
// (y, width-1-x) and exchanges width and height.
func (p *Pixmap) Rotate(from, to geom.Rotation) *Pixmap {
	turns := ((to.Degrees() - from.Degrees()) / 90) % 4
	if turns < 0 {
		turns += 4
	}
	out := p
	for i := 0; i < turns; i++ {
		out = out.quarterTurn()
	}
	if out == p {
		out = New(p.width, p.height)
		copy(out.data, p.data)
	}
	return out
}

func (p *Pixmap) quarterTurn() *Pixmap {
	out := New(p.height, p.width)
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			src := (y*p.width + x) * BytesPerPixel
			dst := ((p.width-1-x)*out.width + y) * BytesPerPixel
			copy(out.data[dst:dst+BytesPerPixel], p.data[src:src+BytesPerPixel])
		}
	}
	return out
}
