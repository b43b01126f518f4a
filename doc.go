// Package pagecache schedules page renders for paginated document viewers
// and keeps the rendered pixel buffers within a memory budget.
//
// # Overview
//
// Consumers (a page view, a thumbnail strip, ...) register with a
// Scheduler and submit batches of render requests: a page, a target pixel
// size and optionally a sub-rectangle of the page. The Scheduler queues
// them, drops those that became pointless, and drives one job at a time
// through an external Renderer. Finished buffers are stored per consumer
// and page, accounted for, and evicted farthest-from-viewport first when
// the memory profile asks for it.
//
// # Quick Start
//
//	s := pagecache.New(renderer, pageCount,
//	    pagecache.WithMemoryProfile(memory.Normal))
//	defer s.Close(context.Background())
//
//	view := s.Register(myPageView)
//	s.SetViewport(pagecache.Viewport{Page: 3})
//	err := s.Submit(view, []*pagecache.Request{
//	    {Page: 3, Width: 1200, Height: 1600},
//	    {Page: 4, Width: 1200, Height: 1600, Priority: 1},
//	}, true)
//
// # Tiles
//
// Pages rendered above 8,000,000 pixels switch to a quadtree of tiles so
// only the visible region is rendered and kept; they switch back below
// 6,000,000 pixels. Consumers read tiles with Scheduler.Tiles and whole
// page buffers with Scheduler.Pixmap.
//
// # Coordinate System
//
// Rectangles are geom.UnitRect values in the unit square of the page as
// displayed, that is after applying the document rotation. Renderers
// receive the canonical (unrotated) rectangle and size and always render
// unrotated.
package pagecache
