// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/pagecache/pixmap"
)

// ErrEmptyPage is returned when painting a page of zero size.
var ErrEmptyPage = errors.New("render: empty page size")

// Checkerboard paints every page as a grid of Cells x Cells squares in two
// alternating colors. The phase alternates with the page index so that
// neighbouring pages are told apart. The pattern is anchored to the page,
// so any region at any size paints consistently.
type Checkerboard struct {
	Cells  int
	Colors [2]color.RGBA
}

// NewCheckerboard returns a checkerboard of 8x8 grey and white cells.
func NewCheckerboard() *Checkerboard {
	return &Checkerboard{
		Cells: 8,
		Colors: [2]color.RGBA{
			{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
			{R: 0x80, G: 0x80, B: 0x80, A: 0xff},
		},
	}
}

// Paint implements Painter.
func (c *Checkerboard) Paint(dst *pixmap.Pixmap, page int, bounds image.Rectangle, pageWidth, pageHeight int) error {
	if pageWidth <= 0 || pageHeight <= 0 {
		return ErrEmptyPage
	}
	cells := max(c.Cells, 1)
	img := dst.RGBA()
	for row := range cells {
		y0, y1 := row*pageHeight/cells, (row+1)*pageHeight/cells
		for col := range cells {
			x0, x1 := col*pageWidth/cells, (col+1)*pageWidth/cells
			cell := image.Rect(x0, y0, x1, y1).Intersect(bounds)
			if cell.Empty() {
				continue
			}
			src := image.NewUniform(c.Colors[(row+col+page)%2])
			draw.Draw(img, cell.Sub(bounds.Min), src, image.Point{}, draw.Src)
		}
	}
	return nil
}

// ColorAt returns the color Paint uses at pixel (x, y) of page rendered at
// pageWidth x pageHeight.
func (c *Checkerboard) ColorAt(page, x, y, pageWidth, pageHeight int) color.RGBA {
	cells := max(c.Cells, 1)
	row := cellIndex(y, pageHeight, cells)
	col := cellIndex(x, pageWidth, cells)
	return c.Colors[(row+col+page)%2]
}

// cellIndex returns the cell of a size pixels long axis split into cells
// that contains pixel v.
func cellIndex(v, size, cells int) int {
	for i := range cells {
		if v < (i+1)*size/cells {
			return i
		}
	}
	return cells - 1
}
