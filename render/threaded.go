// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/pagecache"
	"github.com/gogpu/pagecache/internal/worker"
	"github.com/gogpu/pagecache/pixmap"
)

// minBandPixels is the smallest render split into bands.
const minBandPixels = 256 * 1024

// Threaded renders one job at a time on its own goroutine and paints
// large renders in horizontal bands on a worker pool.
//
// Requests without the Async flag are rendered on the calling goroutine.
type Threaded struct {
	painter Painter
	pool    *worker.Pool
	busy    atomic.Bool
	jobs    sync.WaitGroup
}

// NewThreaded returns an asynchronous renderer painting with up to
// workers goroutines. If workers is 0 or negative, GOMAXPROCS is used.
func NewThreaded(p Painter, workers int) *Threaded {
	return &Threaded{painter: p, pool: worker.New(workers)}
}

// CanAcceptWork implements pagecache.Renderer. It reports false while a
// job runs.
func (t *Threaded) CanAcceptWork() bool { return !t.busy.Load() }

// Generate implements pagecache.Renderer.
func (t *Threaded) Generate(req *pagecache.Request, done pagecache.CompletionFunc) {
	t.busy.Store(true)
	if !req.IsAsync() {
		pm, err := t.render(req)
		t.busy.Store(false)
		done(pm, err)
		return
	}
	t.jobs.Add(1)
	go func() {
		defer t.jobs.Done()
		pm, err := t.render(req)
		t.busy.Store(false)
		done(pm, err)
	}()
}

// SupportsTiledRendering implements pagecache.Renderer.
func (t *Threaded) SupportsTiledRendering() bool { return true }

// SupportsThreadedGeneration implements pagecache.Renderer.
func (t *Threaded) SupportsThreadedGeneration() bool { return true }

// Close waits for the running job and stops the worker pool.
func (t *Threaded) Close() {
	t.jobs.Wait()
	t.pool.Close()
}

func (t *Threaded) render(req *pagecache.Request) (*pixmap.Pixmap, error) {
	bounds := req.RenderBounds()
	n := t.pool.Workers()
	if n == 1 || bounds.Dx()*bounds.Dy() < minBandPixels || bounds.Dy() < n {
		return paint(t.painter, req)
	}

	w, h := req.RenderSize()
	out := pixmap.New(bounds.Dx(), bounds.Dy())
	bands := make([]*pixmap.Pixmap, n)
	errs := make([]error, n)
	work := make([]func(), n)
	for i := range n {
		band := image.Rect(bounds.Min.X, bounds.Min.Y+i*bounds.Dy()/n,
			bounds.Max.X, bounds.Min.Y+(i+1)*bounds.Dy()/n)
		work[i] = func() {
			bands[i] = pixmap.New(band.Dx(), band.Dy())
			errs[i] = t.painter.Paint(bands[i], req.Page, band, w, h)
		}
	}
	t.pool.Run(work)

	for i, band := range bands {
		if errs[i] != nil {
			return nil, errs[i]
		}
		out.Paste(band, image.Pt(0, i*bounds.Dy()/n))
	}
	return out, nil
}
