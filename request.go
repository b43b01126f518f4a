package pagecache

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/gogpu/pagecache/geom"
)

// RequestFlags modify how a request is handled.
type RequestFlags uint8

const (
	// Async asks for the render to run off the calling goroutine when the
	// renderer supports threaded generation.
	Async RequestFlags = 1 << iota

	// Tile marks a request rendered into the page's tile tree. It is set
	// by the Scheduler when the page is in tile mode.
	Tile

	// Force renders even if a valid buffer already exists.
	Force
)

// RequestState is the lifecycle state of a request.
type RequestState int32

const (
	// Created is the state of a request not yet submitted.
	Created RequestState = iota

	// Queued requests wait in the scheduler queue.
	Queued

	// Dispatched requests are being rendered.
	Dispatched

	// Completed requests produced a stored buffer.
	Completed

	// Discarded requests were dropped without a stored buffer.
	Discarded
)

var stateNames = [...]string{"created", "queued", "dispatched", "completed", "discarded"}

// String returns the name of the state.
func (s RequestState) String() string {
	if s >= Created && s <= Discarded {
		return stateNames[s]
	}
	return fmt.Sprintf("RequestState(%d)", int32(s))
}

// Request asks for page Page to be rendered at Width x Height pixels for
// one consumer. Sizes and Rect are in display (rotated) space.
//
// A Request is owned by the Scheduler from Submit until it completes or
// is discarded. The Scheduler may narrow Rect to the tiles that still need
// rendering and may set or clear the Tile flag.
type Request struct {
	// Page is the zero-based page index.
	Page int

	// Width and Height are the target page size in pixels.
	Width, Height int

	// Rect is the region of the page to render. The null rect means the
	// whole page.
	Rect geom.UnitRect

	// Priority 0 is rendered immediately; positive values are preloads,
	// lower values first.
	Priority int

	// Flags modify how the request is handled.
	Flags RequestFlags

	consumer ConsumerID
	state    atomic.Int32
	page     *page

	// Set at dispatch.
	rotation     geom.Rotation
	canonical    geom.UnitRect
	bounds       image.Rectangle
	renderWidth  int
	renderHeight int
}

// Consumer returns the id of the consumer that submitted the request.
func (r *Request) Consumer() ConsumerID { return r.consumer }

// State returns the lifecycle state. It is safe to call concurrently.
func (r *Request) State() RequestState { return RequestState(r.state.Load()) }

func (r *Request) setState(s RequestState) { r.state.Store(int32(s)) }

// IsPreload reports whether the request has a positive priority.
func (r *Request) IsPreload() bool { return r.Priority > 0 }

// IsTile reports whether the request renders into a tile tree.
func (r *Request) IsTile() bool { return r.Flags&Tile != 0 }

// IsAsync reports whether the request asked for asynchronous rendering.
func (r *Request) IsAsync() bool { return r.Flags&Async != 0 }

// IsForced reports whether the request ignores existing buffers.
func (r *Request) IsForced() bool { return r.Flags&Force != 0 }

// Rotation returns the display rotation the request was dispatched for.
func (r *Request) Rotation() geom.Rotation { return r.rotation }

// CanonicalRect returns the region to render in unrotated page space.
// The null rect means the whole page. Valid once dispatched. Renderers
// take the pixels to produce from RenderBounds, not from rounding this
// rect.
func (r *Request) CanonicalRect() geom.UnitRect { return r.canonical }

// RenderSize returns the unrotated page size to render at. Valid once
// dispatched.
func (r *Request) RenderSize() (width, height int) {
	return r.renderWidth, r.renderHeight
}

// RenderBounds returns the pixel rectangle of the unrotated page that the
// renderer must produce. The result pixmap has its size. Valid once
// dispatched.
func (r *Request) RenderBounds() image.Rectangle { return r.bounds }

func (r *Request) pixels() int64 {
	return int64(r.Width) * int64(r.Height)
}

// validate checks the request fields against a document of pageCount
// pages.
func (r *Request) validate(pageCount int) error {
	if r.Page < 0 || r.Page >= pageCount {
		return fmt.Errorf("%w: %d", ErrNoPage, r.Page)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidRequest, r.Width, r.Height)
	}
	if !r.Rect.IsNull() && (r.Rect.IsEmpty() || !geom.Full.ContainsRect(r.Rect)) {
		return fmt.Errorf("%w: rect %v", ErrInvalidRequest, r.Rect)
	}
	return nil
}
