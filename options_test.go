package pagecache

import (
	"testing"
	"time"

	"github.com/gogpu/pagecache/memory"
)

// TestDefaultOptions tests the defaults used when no option is given.
func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.profile != memory.Normal {
		t.Errorf("profile = %v, want normal", o.profile)
	}
	if o.policy != nil {
		t.Error("policy should be nil until New creates the system policy")
	}
	if o.retryDelay != DefaultRetryDelay {
		t.Errorf("retryDelay = %v, want %v", o.retryDelay, DefaultRetryDelay)
	}
	if o.tilesOn != DefaultTilesOnPixels || o.tilesOff != DefaultTilesOffPixels {
		t.Errorf("tile thresholds = %d/%d, want %d/%d",
			o.tilesOn, o.tilesOff, DefaultTilesOnPixels, DefaultTilesOffPixels)
	}
	if o.maxWholePage != DefaultMaxWholePagePixels {
		t.Errorf("maxWholePage = %d, want %d", o.maxWholePage, DefaultMaxWholePagePixels)
	}
}

func TestWithTileThresholds(t *testing.T) {
	tests := []struct {
		name    string
		on, off int64
		wantOn  int64
		wantOff int64
	}{
		{"valid", 500, 300, 500, 300},
		{"equal", 400, 400, 400, 400},
		{"off above on", 300, 500, DefaultTilesOnPixels, DefaultTilesOffPixels},
		{"zero off", 300, 0, DefaultTilesOnPixels, DefaultTilesOffPixels},
		{"negative", -1, -5, DefaultTilesOnPixels, DefaultTilesOffPixels},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			WithTileThresholds(tt.on, tt.off)(&o)
			if o.tilesOn != tt.wantOn || o.tilesOff != tt.wantOff {
				t.Errorf("thresholds = %d/%d, want %d/%d", o.tilesOn, o.tilesOff, tt.wantOn, tt.wantOff)
			}
		})
	}
}

func TestWithRetryDelay(t *testing.T) {
	o := defaultOptions()
	WithRetryDelay(0)(&o)
	if o.retryDelay != DefaultRetryDelay {
		t.Errorf("WithRetryDelay(0) changed the delay to %v", o.retryDelay)
	}
	WithRetryDelay(time.Second)(&o)
	if o.retryDelay != time.Second {
		t.Errorf("retryDelay = %v, want 1s", o.retryDelay)
	}
}

func TestWithMaxWholePagePixels(t *testing.T) {
	o := defaultOptions()
	WithMaxWholePagePixels(-1)(&o)
	if o.maxWholePage != DefaultMaxWholePagePixels {
		t.Errorf("negative limit accepted: %d", o.maxWholePage)
	}
	WithMaxWholePagePixels(1000)(&o)
	if o.maxWholePage != 1000 {
		t.Errorf("maxWholePage = %d, want 1000", o.maxWholePage)
	}
}

// TestNewWithOptions tests that options reach the scheduler.
func TestNewWithOptions(t *testing.T) {
	policy := plentyPolicy()
	s := New(&fakeRenderer{}, 3,
		WithMemoryProfile(memory.Aggressive),
		WithPolicy(policy),
		WithRetryDelay(time.Millisecond))

	if s.MemoryProfile() != memory.Aggressive {
		t.Errorf("MemoryProfile() = %v, want aggressive", s.MemoryProfile())
	}
	if s.policy != policy {
		t.Error("injected policy not used")
	}
	if s.opts.retryDelay != time.Millisecond {
		t.Errorf("retryDelay = %v, want 1ms", s.opts.retryDelay)
	}
	if s.PageCount() != 3 {
		t.Errorf("PageCount() = %d, want 3", s.PageCount())
	}
}

func TestNewDefaultPolicy(t *testing.T) {
	s := New(&fakeRenderer{}, 1)
	if s.policy == nil {
		t.Fatal("New() without WithPolicy left the policy nil")
	}
}
