// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "github.com/gogpu/pagecache"

// Sync renders on the calling goroutine.
type Sync struct {
	painter Painter
	tiled   bool
}

// NewSync returns a synchronous renderer. With tiled set it accepts
// sub-page renders, which lets the scheduler switch large pages to tiles.
func NewSync(p Painter, tiled bool) *Sync {
	return &Sync{painter: p, tiled: tiled}
}

// CanAcceptWork implements pagecache.Renderer. It always returns true.
func (s *Sync) CanAcceptWork() bool { return true }

// Generate implements pagecache.Renderer.
func (s *Sync) Generate(req *pagecache.Request, done pagecache.CompletionFunc) {
	done(paint(s.painter, req))
}

// SupportsTiledRendering implements pagecache.Renderer.
func (s *Sync) SupportsTiledRendering() bool { return s.tiled }

// SupportsThreadedGeneration implements pagecache.Renderer. It returns
// false.
func (s *Sync) SupportsThreadedGeneration() bool { return false }
