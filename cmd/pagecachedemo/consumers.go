package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gogpu/pagecache"
	"github.com/gogpu/pagecache/geom"
)

// preloadPages is how many pages after the current one are preloaded.
const preloadPages = 2

// consumer waits for buffers of the pages it asked for.
type consumer struct {
	s             *pagecache.Scheduler
	id            pagecache.ConsumerID
	width, height int
	visible       geom.UnitRect
	current       atomic.Int64
	ready         chan int
}

func newConsumer(s *pagecache.Scheduler, width, height int, visible geom.UnitRect) *consumer {
	c := &consumer{
		s:       s,
		width:   width,
		height:  height,
		visible: visible,
		ready:   make(chan int, 64),
	}
	c.current.Store(-1)
	c.id = s.Register(c)
	return c
}

// IsPageUnloadable implements pagecache.Consumer. It is called with the
// scheduler locked, so it only reads the page last shown.
func (c *consumer) IsPageUnloadable(page int) bool { return int64(page) != c.current.Load() }

func (c *consumer) ReleaseBuffer(int) {}

func (c *consumer) OnBufferReady(page int, _ pagecache.ChangeKind) {
	select {
	case c.ready <- page:
	default:
	}
}

// wait blocks until page is buffered at the consumer's size.
func (c *consumer) wait(ctx context.Context, page int) error {
	for !c.s.HasPixmap(c.id, page, c.width, c.height, c.visible) {
		select {
		case <-c.ready:
		case <-ctx.Done():
			return fmt.Errorf("page %d at %dx%d: %w", page, c.width, c.height, ctx.Err())
		}
	}
	return nil
}

// pageView shows one page at a time at the zoomed size and preloads the
// pages after it.
type pageView struct {
	*consumer
}

func newPageView(s *pagecache.Scheduler, width, height int) *pageView {
	return &pageView{newConsumer(s, width, height, visibleArea)}
}

// show requests page and its successors and waits for page.
func (v *pageView) show(ctx context.Context, page int) error {
	v.current.Store(int64(page))
	batch := []*pagecache.Request{{
		Page: page, Width: v.width, Height: v.height, Rect: v.visible, Flags: pagecache.Async,
	}}
	for i := 1; i <= preloadPages && page+i < v.s.PageCount(); i++ {
		batch = append(batch, &pagecache.Request{
			Page: page + i, Width: v.width, Height: v.height, Rect: v.visible,
			Priority: i, Flags: pagecache.Async,
		})
	}
	if err := v.s.Submit(v.id, batch, true); err != nil {
		return err
	}
	return v.wait(ctx, page)
}

// thumbnails shows small renders of the current page and its neighbours.
type thumbnails struct {
	*consumer
}

func newThumbnails(s *pagecache.Scheduler, width, height int) *thumbnails {
	return &thumbnails{newConsumer(s, max(width, 1), max(height, 1), geom.UnitRect{})}
}

func (t *thumbnails) show(ctx context.Context, page int) error {
	t.current.Store(int64(page))
	lo, hi := max(page-1, 0), min(page+1, t.s.PageCount()-1)
	var batch []*pagecache.Request
	for p := lo; p <= hi; p++ {
		batch = append(batch, &pagecache.Request{Page: p, Width: t.width, Height: t.height, Flags: pagecache.Async})
	}
	if err := t.s.Submit(t.id, batch, true); err != nil {
		return err
	}
	// Neighbours may be evicted again under a tight profile.
	return t.wait(ctx, page)
}

func newDebugLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
