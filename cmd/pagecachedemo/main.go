// Command pagecachedemo scrolls through a synthetic document and reports
// how much memory the page cache holds at every step.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/pagecache"
	"github.com/gogpu/pagecache/geom"
	"github.com/gogpu/pagecache/memory"
	"github.com/gogpu/pagecache/render"
)

func main() {
	var (
		pages    = flag.Int("pages", 20, "number of pages")
		width    = flag.Int("width", 600, "page width at zoom 1")
		height   = flag.Int("height", 800, "page height at zoom 1")
		zoom     = flag.Float64("zoom", 1, "zoom factor of the page view")
		threaded = flag.Bool("threaded", true, "render on a worker pool")
		steps    = flag.Int("steps", 10, "number of scroll steps")
		output   = flag.String("out", "", "write the last visible page to this PNG file")
		verbose  = flag.Bool("v", false, "log scheduler debug output")
		profile  = memory.Normal
	)
	flag.TextVar(&profile, "profile", memory.Normal, "memory profile: low, normal, aggressive or greedy")
	flag.Parse()

	if *pages <= 0 || *width <= 0 || *height <= 0 || *zoom <= 0 {
		log.Fatal("pages, width, height and zoom must be positive")
	}
	if *verbose {
		pagecache.SetLogger(newDebugLogger())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var r pagecache.Renderer
	painter := render.NewCheckerboard()
	if *threaded {
		t := render.NewThreaded(painter, 0)
		defer t.Close()
		r = t
	} else {
		r = render.NewSync(painter, true)
	}

	s := pagecache.New(r, *pages, pagecache.WithMemoryProfile(profile))
	view := newPageView(s, int(float64(*width)**zoom), int(float64(*height)**zoom))
	thumbs := newThumbnails(s, *width/8, *height/8)

	p := message.NewPrinter(language.English)
	start := time.Now()
	for step := range *steps {
		current := step % *pages
		s.SetViewport(pagecache.Viewport{Page: current})
		s.SetVisibleRects([]pagecache.VisibleRect{{Page: current, Rect: view.visible}})

		stepCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		g, gctx := errgroup.WithContext(stepCtx)
		g.Go(func() error { return view.show(gctx, current) })
		g.Go(func() error { return thumbs.show(gctx, current) })
		err := g.Wait()
		cancel()
		if err != nil {
			log.Fatalf("step %d: %v", step, err)
		}

		st := s.Stats()
		p.Printf("step %d: page %d, %d bytes in %d buffers, %d renders, %d discarded\n",
			step, current, st.Bytes, st.Allocations, st.Completed, st.Discarded)
	}
	p.Printf("%d steps in %v\n", *steps, time.Since(start).Round(time.Millisecond))

	if *output != "" {
		last := (*steps - 1 + *pages) % *pages
		pm := s.Snapshot(view.id, last, view.width, view.height)
		if pm == nil {
			log.Fatalf("page %d has no buffer", last)
		}
		if err := pm.SavePNG(*output); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		log.Printf("Page %d saved to %s (%dx%d)\n", last, *output, pm.Width(), pm.Height())
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Close(closeCtx); err != nil {
		log.Fatalf("Failed to close: %v", err)
	}
}

// visibleArea is the part of the page shown by the page view: the top of
// the page across its full width.
var visibleArea = geom.UnitRect{Left: 0, Top: 0, Right: 1, Bottom: 0.5}
