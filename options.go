package pagecache

import (
	"time"

	"github.com/gogpu/pagecache/memory"
)

// Default scheduling thresholds.
const (
	// DefaultRetryDelay is the wait before retrying a dispatch while the
	// renderer is busy.
	DefaultRetryDelay = 30 * time.Millisecond

	// DefaultTilesOnPixels is the page area above which tiles are used.
	DefaultTilesOnPixels = 8_000_000

	// DefaultTilesOffPixels is the page area below which tiles are dropped.
	DefaultTilesOffPixels = 6_000_000

	// DefaultMaxWholePagePixels is the largest whole-page render allowed
	// outside the Greedy profile.
	DefaultMaxWholePagePixels = 200_000_000

	// preventiveCleanupBytes is the render size above which memory is
	// reclaimed before dispatch.
	preventiveCleanupBytes = 1 << 20
)

// Option configures a Scheduler during creation.
//
// Example:
//
//	s := pagecache.New(r, pages,
//	    pagecache.WithMemoryProfile(memory.Aggressive),
//	    pagecache.WithRetryDelay(50*time.Millisecond))
type Option func(*options)

// options holds optional configuration for Scheduler creation.
type options struct {
	profile      memory.Profile
	policy       *memory.Policy
	retryDelay   time.Duration
	tilesOn      int64
	tilesOff     int64
	maxWholePage int64
}

// defaultOptions returns the default scheduler options.
func defaultOptions() options {
	return options{
		profile:      memory.Normal,
		policy:       nil, // Will be created from memory.System() if nil
		retryDelay:   DefaultRetryDelay,
		tilesOn:      DefaultTilesOnPixels,
		tilesOff:     DefaultTilesOffPixels,
		maxWholePage: DefaultMaxWholePagePixels,
	}
}

// WithMemoryProfile sets the initial memory profile. The default is
// memory.Normal.
func WithMemoryProfile(p memory.Profile) Option {
	return func(o *options) {
		o.profile = p
	}
}

// WithPolicy sets the memory policy consulted before each render.
// Use this to share one policy between documents or to inject fake
// memory figures in tests.
func WithPolicy(p *memory.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithRetryDelay sets the wait before retrying a dispatch while the
// renderer cannot accept work.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryDelay = d
		}
	}
}

// WithTileThresholds sets the page areas, in pixels, above which a page
// switches to tiles and below which it switches back. Invalid pairs
// (off > on or non-positive values) are ignored.
func WithTileThresholds(on, off int64) Option {
	return func(o *options) {
		if off > 0 && on >= off {
			o.tilesOn, o.tilesOff = on, off
		}
	}
}

// WithMaxWholePagePixels sets the largest whole-page render admitted
// outside the Greedy profile.
func WithMaxWholePagePixels(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxWholePage = n
		}
	}
}
