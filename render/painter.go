// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"

	"github.com/gogpu/pagecache"
	"github.com/gogpu/pagecache/pixmap"
)

// Painter paints page content.
//
// Paint draws the part bounds of page rendered at pageWidth x pageHeight
// pixels into dst, whose size equals bounds. Paint may be called
// concurrently for disjoint bounds of the same page.
type Painter interface {
	Paint(dst *pixmap.Pixmap, page int, bounds image.Rectangle, pageWidth, pageHeight int) error
}

// PainterFunc adapts a function to the Painter interface.
type PainterFunc func(dst *pixmap.Pixmap, page int, bounds image.Rectangle, pageWidth, pageHeight int) error

// Paint calls f.
func (f PainterFunc) Paint(dst *pixmap.Pixmap, page int, bounds image.Rectangle, pageWidth, pageHeight int) error {
	return f(dst, page, bounds, pageWidth, pageHeight)
}

// paint renders req with p into a new pixmap.
func paint(p Painter, req *pagecache.Request) (*pixmap.Pixmap, error) {
	bounds := req.RenderBounds()
	w, h := req.RenderSize()
	pm := pixmap.New(bounds.Dx(), bounds.Dy())
	if err := p.Paint(pm, req.Page, bounds, w, h); err != nil {
		return nil, err
	}
	return pm, nil
}
