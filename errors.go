package pagecache

import "errors"

var (
	// ErrClosed is returned by operations on a closed Scheduler.
	ErrClosed = errors.New("pagecache: scheduler closed")

	// ErrNoPage is returned for requests naming a page the document does
	// not have.
	ErrNoPage = errors.New("pagecache: no such page")

	// ErrInvalidRequest is returned for requests with a non-positive size
	// or a rectangle outside the page.
	ErrInvalidRequest = errors.New("pagecache: invalid request")

	// ErrUnknownConsumer is returned for consumer ids that are not
	// registered.
	ErrUnknownConsumer = errors.New("pagecache: unknown consumer")
)
