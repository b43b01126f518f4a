package pagecache

import "github.com/gogpu/pagecache/pixmap"

// CompletionFunc reports the result of a render. pm holds the pixels of
// req.RenderBounds() in unrotated orientation. A non-nil err discards the
// request.
type CompletionFunc func(pm *pixmap.Pixmap, err error)

// Renderer decodes pages into pixel buffers.
//
// Generate is never called with the Scheduler lock held. A synchronous
// renderer calls done before Generate returns; an asynchronous one calls
// it later from any goroutine. done must be called exactly once.
type Renderer interface {
	// CanAcceptWork reports whether Generate may be called now.
	CanAcceptWork() bool

	// Generate renders req and reports the result through done.
	Generate(req *Request, done CompletionFunc)

	// SupportsTiledRendering reports whether sub-rectangles of a page can
	// be rendered.
	SupportsTiledRendering() bool

	// SupportsThreadedGeneration reports whether renders run off the
	// calling goroutine. Preloads are only honoured by such renderers.
	SupportsThreadedGeneration() bool
}
