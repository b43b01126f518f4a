package pagecache

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/pagecache/geom"
	"github.com/gogpu/pagecache/internal/ledger"
	"github.com/gogpu/pagecache/memory"
	"github.com/gogpu/pagecache/pixmap"
)

// oversizeWarned is set once a whole-page render has been refused for its
// size. The warning is logged once per process.
var oversizeWarned atomic.Bool

// release is a ReleaseBuffer notification waiting for the lock to be
// dropped.
type release struct {
	consumer Consumer
	page     int
}

// Scheduler queues render requests, dispatches them one at a time to a
// Renderer and keeps the resulting buffers within the memory budget.
//
// Thread safety: Scheduler is safe for concurrent use. Completions may
// arrive from any goroutine.
type Scheduler struct {
	renderer Renderer
	tiling   bool
	threaded bool
	policy   *memory.Policy
	opts     options

	mu        sync.Mutex
	closed    bool
	released  bool
	drained   chan struct{}
	profile   memory.Profile
	pages     []*page
	consumers map[ConsumerID]Consumer
	nextID    ConsumerID
	queue     []*Request // the back is dispatched next
	inFlight  map[*Request]struct{}
	ledger    *ledger.Ledger[ConsumerID]
	viewport  Viewport
	visible   []VisibleRect
	rotation  geom.Rotation
	retry     *time.Timer
	retrying  bool
	pending   []release

	dispatched uint64
	completed  uint64
	discarded  uint64
}

// New creates a scheduler rendering a document of pageCount pages with r.
// Renderer capabilities are read once here.
func New(r Renderer, pageCount int, opts ...Option) *Scheduler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	policy := o.policy
	if policy == nil {
		policy = memory.NewPolicy()
	}
	s := &Scheduler{
		renderer:  r,
		tiling:    r.SupportsTiledRendering(),
		threaded:  r.SupportsThreadedGeneration(),
		policy:    policy,
		opts:      o,
		profile:   o.profile,
		pages:     make([]*page, max(pageCount, 0)),
		consumers: make(map[ConsumerID]Consumer),
		inFlight:  make(map[*Request]struct{}),
	}
	for i := range s.pages {
		s.pages[i] = newPage(i)
	}
	s.ledger = ledger.New[ConsumerID]((*ledgerReleaser)(s))
	return s
}

// ledgerReleaser lets the ledger evict page buffers. Its methods run with
// the scheduler lock held.
type ledgerReleaser Scheduler

func (r *ledgerReleaser) Unloadable(id ConsumerID, page int) bool {
	c := r.consumers[id]
	return c != nil && c.IsPageUnloadable(page)
}

func (r *ledgerReleaser) Release(id ConsumerID, page int) {
	s := (*Scheduler)(r)
	if page < 0 || page >= len(s.pages) {
		return
	}
	s.pages[page].drop(id)
	s.notifyReleaseLocked(id, page)
}

func (s *Scheduler) notifyReleaseLocked(id ConsumerID, page int) {
	if c := s.consumers[id]; c != nil {
		s.pending = append(s.pending, release{consumer: c, page: page})
	}
}

// unlock releases the lock and delivers pending ReleaseBuffer
// notifications.
func (s *Scheduler) unlock() {
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, r := range pending {
		r.consumer.ReleaseBuffer(r.page)
	}
}

// Register adds a consumer and returns its id.
func (s *Scheduler) Register(c Consumer) ConsumerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.consumers[s.nextID] = c
	return s.nextID
}

// Unregister removes a consumer. Its queued requests are discarded and its
// buffers dropped; completions still in flight for it are ignored.
func (s *Scheduler) Unregister(id ConsumerID) error {
	s.mu.Lock()
	if _, ok := s.consumers[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownConsumer, id)
	}
	delete(s.consumers, id)
	s.dropQueuedLocked(func(r *Request) bool { return r.consumer == id })
	freed := s.ledger.RemoveConsumer(id)
	for _, p := range s.pages {
		p.drop(id)
	}
	s.unlock()
	Logger().Debug("pagecache: consumer unregistered", "consumer", id, "freed", freed)
	return nil
}

// IsRegistered reports whether id names a registered consumer.
func (s *Scheduler) IsRegistered(id ConsumerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.consumers[id]
	return ok
}

// Submit queues a batch of requests for consumer id.
//
// Requests still queued for the same consumer are discarded first: those
// for pages named in batch, or all of them when clearPrior is set.
// Requests naming a missing page or with an invalid size are rejected and
// reported in the returned error; the rest of the batch is still queued.
func (s *Scheduler) Submit(id ConsumerID, batch []*Request, clearPrior bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, ok := s.consumers[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownConsumer, id)
	}

	if clearPrior {
		s.dropQueuedLocked(func(r *Request) bool { return r.consumer == id })
	} else {
		pages := make(map[int]bool, len(batch))
		for _, r := range batch {
			if r != nil {
				pages[r.Page] = true
			}
		}
		s.dropQueuedLocked(func(r *Request) bool { return r.consumer == id && pages[r.Page] })
	}

	var errs []error
	for _, r := range batch {
		if r == nil {
			continue
		}
		r.consumer = id
		if err := r.validate(len(s.pages)); err != nil {
			r.setState(Discarded)
			s.discarded++
			errs = append(errs, err)
			continue
		}
		r.page = s.pages[r.Page]
		if !r.IsForced() && r.page.hasPixmap(id, r.Width, r.Height, r.Rect) {
			s.discardLocked(r, "already buffered")
			continue
		}
		r.setState(Queued)
		s.enqueueLocked(r)
	}
	s.unlock()

	s.dispatch()
	return errors.Join(errs...)
}

// CancelAll discards every queued request of consumer id. A request
// already dispatched still completes.
func (s *Scheduler) CancelAll(id ConsumerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.consumers[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownConsumer, id)
	}
	s.dropQueuedLocked(func(r *Request) bool { return r.consumer == id })
	return nil
}

// enqueueLocked inserts r so that priority 0 requests go next and
// preloads are ordered by ascending priority, first come first served
// within a priority.
func (s *Scheduler) enqueueLocked(r *Request) {
	if r.Priority <= 0 {
		s.queue = append(s.queue, r)
		return
	}
	i := 0
	for i < len(s.queue) && s.queue[i].Priority > r.Priority {
		i++
	}
	s.queue = slices.Insert(s.queue, i, r)
}

func (s *Scheduler) dropQueuedLocked(match func(*Request) bool) {
	s.queue = slices.DeleteFunc(s.queue, func(r *Request) bool {
		if !match(r) {
			return false
		}
		r.setState(Discarded)
		s.discarded++
		return true
	})
}

func (s *Scheduler) discardLocked(r *Request, reason string) {
	r.setState(Discarded)
	s.discarded++
	Logger().Debug("pagecache: request discarded",
		"consumer", r.consumer, "page", r.Page,
		"width", r.Width, "height", r.Height, "reason", reason)
}

// dispatch starts the next queued request unless a job is in flight.
func (s *Scheduler) dispatch() {
	if !s.ready() {
		return
	}
	if !s.renderer.CanAcceptWork() {
		s.scheduleRetry()
		return
	}

	s.mu.Lock()
	if s.closed || len(s.inFlight) > 0 {
		s.unlock()
		return
	}
	req, toFree := s.nextLocked()
	if req == nil {
		s.unlock()
		return
	}
	s.startLocked(req, toFree)
	s.unlock()

	s.renderer.Generate(req, func(pm *pixmap.Pixmap, err error) {
		s.complete(req, pm, err)
	})
}

// ready reports whether a request is waiting and nothing is in flight.
func (s *Scheduler) ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && len(s.inFlight) == 0 && len(s.queue) > 0
}

func (s *Scheduler) scheduleRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.retrying {
		return
	}
	s.retrying = true
	s.retry = time.AfterFunc(s.opts.retryDelay, func() {
		s.mu.Lock()
		s.retrying = false
		s.mu.Unlock()
		s.dispatch()
	})
}

// nextLocked pops requests from the queue until one is worth rendering.
// It also returns the bytes the memory policy wants freed.
func (s *Scheduler) nextLocked() (*Request, uint64) {
	toFree := s.policy.BytesToFree(s.ledger.Total(), s.profile)

	// Preloads farther away than what eviction would remove next are
	// pointless.
	maxDistance := int(^uint(0) >> 1)
	if toFree > 0 {
		if rec, ok := s.ledger.Farthest(s.viewport.Page, true, nil); ok {
			maxDistance = distance(rec.Page, s.viewport.Page)
		}
	}

	for len(s.queue) > 0 {
		r := s.queue[len(s.queue)-1]
		s.queue = s.queue[:len(s.queue)-1]
		if reason := s.admitLocked(r, maxDistance); reason != "" {
			s.discardLocked(r, reason)
			continue
		}
		return r, toFree
	}
	return nil, toFree
}

// admitLocked decides whether r should be rendered, switching the page
// between whole-page and tile mode as needed. It returns the reason for
// discarding r, or "" to render it.
func (s *Scheduler) admitLocked(r *Request, maxDistance int) string {
	id := r.consumer
	if r.IsPreload() && !s.threaded {
		return "preload without threaded renderer"
	}
	if _, ok := s.consumers[id]; !ok {
		return "consumer unregistered"
	}

	pg := r.page
	tree := pg.tiles(id)
	if tree != nil && (tree.Width() != r.Width || tree.Height() != r.Height) {
		tree.SetSize(r.Width, r.Height)
	}
	if !r.IsForced() && pg.hasPixmap(id, r.Width, r.Height, r.Rect) {
		return "already buffered"
	}
	if r.IsPreload() && distance(r.Page, s.viewport.Page) >= maxDistance {
		return "preload would be evicted"
	}
	if tree != nil && tree.IsRequesting(r.Rect, r.Width, r.Height) {
		return "already rendering"
	}

	area := r.pixels()
	switch {
	case tree == nil && s.tiling && area > s.opts.tilesOn:
		tree = s.startTilesLocked(r)
		if r.Rect.IsNull() {
			return "tile mode without visible region"
		}
	case tree != nil && area < s.opts.tilesOff:
		s.stopTilesLocked(id, pg)
		tree = nil
	}

	if tree != nil {
		r.Flags |= Tile
		r.Rect = pendingTiles(tree, r.Rect, r.IsForced())
		s.trackLocked(id, pg)
		if r.Rect.IsNull() {
			return "all tiles valid"
		}
		return ""
	}

	r.Flags &^= Tile
	r.Rect = geom.UnitRect{}
	if area > s.opts.maxWholePage && s.profile != memory.Greedy {
		if oversizeWarned.CompareAndSwap(false, true) {
			Logger().Warn("pagecache: not enough memory for whole-page render",
				"page", r.Page, "width", r.Width, "height", r.Height)
		}
		return "exceeds whole-page limit"
	}
	return ""
}

// startLocked reclaims memory if the render is large and moves req to the
// in-flight set.
func (s *Scheduler) startLocked(req *Request, toFree uint64) {
	size := pixmap.BytesPerPixel * uint64(req.pixels())
	if tree := req.page.tiles(req.consumer); tree != nil {
		size = tree.TotalMemory()
	}
	if size > preventiveCleanupBytes {
		s.cleanupLocked(toFree)
	}

	req.rotation = s.rotation
	req.renderWidth, req.renderHeight = req.Width, req.Height
	if s.rotation.SwapsAxes() {
		req.renderWidth, req.renderHeight = req.Height, req.Width
	}
	req.canonical = geom.FromRotated(req.Rect, s.rotation)
	// The display pixels rotated back, so the result fits them exactly.
	display := req.Rect
	if display.IsNull() {
		display = geom.Full
	}
	req.bounds = geom.RotatePixels(display.Geometry(req.Width, req.Height),
		req.Width, req.Height, s.rotation, geom.Rotate0)

	if req.IsTile() {
		// Cleanup may have evicted the whole tree.
		b := req.page.buffer(req.consumer)
		if b.tiles == nil {
			b.tiles = newTree(req, s.rotation)
		}
		b.tiles.SetRequest(req.Rect, req.Width, req.Height)
	}

	req.setState(Dispatched)
	s.inFlight[req] = struct{}{}
	s.dispatched++
}

// complete handles the result of a dispatched request.
func (s *Scheduler) complete(req *Request, pm *pixmap.Pixmap, err error) {
	s.mu.Lock()
	if _, ok := s.inFlight[req]; !ok {
		s.unlock()
		return
	}
	delete(s.inFlight, req)

	var (
		notify Consumer
		change ChangeKind
	)
	reason := s.staleLocked(req, pm, err)
	if reason == "" {
		notify, change, reason = s.storeLocked(req, pm)
	}
	if reason != "" {
		if err != nil {
			Logger().Debug("pagecache: render failed", "page", req.Page, "err", err)
		}
		s.discardLocked(req, reason)
	} else {
		req.setState(Completed)
		s.completed++
	}
	if tree := req.page.tiles(req.consumer); tree != nil {
		tree.ClearRequest()
	}

	if s.closed && len(s.inFlight) == 0 {
		close(s.drained)
	}
	more := !s.closed && len(s.queue) > 0
	s.unlock()

	if notify != nil {
		notify.OnBufferReady(req.Page, change)
	}
	if more {
		s.dispatch()
	}
}

// staleLocked returns why a completed request must not be stored, or "".
func (s *Scheduler) staleLocked(req *Request, pm *pixmap.Pixmap, err error) string {
	switch {
	case s.closed:
		return "scheduler closed"
	case err != nil:
		return "render failed"
	case pm == nil:
		return "no pixmap"
	case s.consumers[req.consumer] == nil:
		return "consumer unregistered"
	case req.rotation != s.rotation:
		return "rotation changed"
	case req.IsTile() && req.page.tiles(req.consumer) == nil:
		return "tiles dropped"
	case !req.IsTile() && req.page.tiles(req.consumer) != nil:
		return "page switched to tiles"
	}
	return ""
}

// storeLocked stores the result of req, records it in the ledger and
// returns the consumer to notify. A result that does not fit the request
// is not stored and the reason is returned instead.
func (s *Scheduler) storeLocked(req *Request, pm *pixmap.Pixmap) (Consumer, ChangeKind, string) {
	if req.rotation != geom.Rotate0 {
		pm = pm.Rotate(geom.Rotate0, req.rotation)
	}
	change := ChangePixmap
	if req.IsTile() {
		if !req.page.tiles(req.consumer).SetPixmap(pm, req.Rect, false) {
			return nil, 0, "tile result does not match request"
		}
		change = ChangeTiles
	} else {
		if pm.Width() != req.Width || pm.Height() != req.Height {
			return nil, 0, "result size does not match request"
		}
		req.page.buffer(req.consumer).pixmap = pm
	}
	s.ledger.Record(req.consumer, req.Page, req.page.memory(req.consumer))
	return s.consumers[req.consumer], change, ""
}

// trackLocked brings the ledger record of pg for consumer id in line with
// what the page holds. Tile lookups may split tiles and drop pixmaps that
// no longer match the page size.
func (s *Scheduler) trackLocked(id ConsumerID, pg *page) {
	m := pg.memory(id)
	if m == 0 {
		s.ledger.Forget(id, pg.index)
		return
	}
	if old, ok := s.ledger.Bytes(id, pg.index); !ok || old != m {
		s.ledger.Record(id, pg.index, m)
	}
}

// Close discards all queued requests, waits until the request in flight
// has completed and drops every buffer. No consumer is notified of a
// buffer once Close has been called.
//
// If ctx ends first Close returns its error; the scheduler stays closed and
// Close may be called again to finish waiting.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.dropQueuedLocked(func(*Request) bool { return true })
		if s.retry != nil {
			s.retry.Stop()
		}
		s.drained = make(chan struct{})
		if len(s.inFlight) == 0 {
			close(s.drained)
		}
	}
	drained := s.drained
	s.unlock()

	select {
	case <-drained:
	case <-ctx.Done():
		return fmt.Errorf("pagecache: close: %w", ctx.Err())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.released {
		s.released = true
		freed := s.ledger.Total()
		s.ledger.Reset()
		for i := range s.pages {
			s.pages[i] = newPage(i)
		}
		Logger().Info("pagecache: closed",
			"freed", freed, "completed", s.completed, "discarded", s.discarded)
	}
	return nil
}

// consumerIDsLocked returns the registered consumer ids in ascending
// order.
func (s *Scheduler) consumerIDsLocked() []ConsumerID {
	return slices.Sorted(maps.Keys(s.consumers))
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
