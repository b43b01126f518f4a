package pagecache

// ConsumerID identifies a registered consumer. The zero value is never
// assigned.
type ConsumerID uint32

// ChangeKind describes what changed when a consumer is notified.
type ChangeKind uint8

const (
	// ChangePixmap reports a new whole-page buffer.
	ChangePixmap ChangeKind = iota + 1

	// ChangeTiles reports new tiles in the page's tile tree.
	ChangeTiles
)

// String returns the name of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangePixmap:
		return "pixmap"
	case ChangeTiles:
		return "tiles"
	default:
		return "unknown"
	}
}

// Consumer receives rendered buffers for pages.
//
// IsPageUnloadable is called with the Scheduler lock held and must not
// call back into the Scheduler. ReleaseBuffer and OnBufferReady are called
// without the lock.
type Consumer interface {
	// IsPageUnloadable reports whether the buffer of page can be evicted
	// without visible effect, typically because the page is off screen.
	IsPageUnloadable(page int) bool

	// ReleaseBuffer reports that the buffer of page has been evicted.
	ReleaseBuffer(page int)

	// OnBufferReady reports a new buffer for page.
	OnBufferReady(page int, change ChangeKind)
}
