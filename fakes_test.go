package pagecache

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/pagecache/memory"
	"github.com/gogpu/pagecache/pixmap"
)

var errTestCleanup = errors.New("test cleanup")

// job is a render held by an asynchronous fakeRenderer.
type job struct {
	req  *Request
	done CompletionFunc
}

// fakeRenderer renders blank pixmaps of the requested bounds. In async
// mode jobs are held until the test completes them.
type fakeRenderer struct {
	async    bool
	tiled    bool
	threaded bool
	busy     atomic.Bool

	mu        sync.Mutex
	jobs      []job
	generated []*Request
}

func (f *fakeRenderer) CanAcceptWork() bool              { return !f.busy.Load() }
func (f *fakeRenderer) SupportsTiledRendering() bool     { return f.tiled }
func (f *fakeRenderer) SupportsThreadedGeneration() bool { return f.threaded }

func (f *fakeRenderer) Generate(req *Request, done CompletionFunc) {
	f.mu.Lock()
	f.generated = append(f.generated, req)
	if f.async {
		f.jobs = append(f.jobs, job{req: req, done: done})
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	done(blank(req), nil)
}

func blank(req *Request) *pixmap.Pixmap {
	b := req.RenderBounds()
	return pixmap.New(b.Dx(), b.Dy())
}

// Generated returns the requests handed to Generate so far.
func (f *fakeRenderer) Generated() []*Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.generated)
}

func (f *fakeRenderer) pop(t *testing.T) job {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		t.Fatal("no render in flight")
	}
	j := f.jobs[0]
	f.jobs = f.jobs[1:]
	return j
}

// completeNext finishes the oldest held render successfully.
func (f *fakeRenderer) completeNext(t *testing.T) *Request {
	t.Helper()
	j := f.pop(t)
	j.done(blank(j.req), nil)
	return j.req
}

// failNext finishes the oldest held render with an error.
func (f *fakeRenderer) failNext(t *testing.T, err error) *Request {
	t.Helper()
	j := f.pop(t)
	j.done(nil, err)
	return j.req
}

// fakeConsumer records notifications. Pages in pinned are not unloadable.
type fakeConsumer struct {
	mu       sync.Mutex
	pinned   map[int]bool
	ready    []int
	changes  []ChangeKind
	released []int
}

func newFakeConsumer(pinned ...int) *fakeConsumer {
	c := &fakeConsumer{pinned: make(map[int]bool)}
	for _, p := range pinned {
		c.pinned[p] = true
	}
	return c
}

func (c *fakeConsumer) IsPageUnloadable(page int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.pinned[page]
}

func (c *fakeConsumer) ReleaseBuffer(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = append(c.released, page)
}

func (c *fakeConsumer) OnBufferReady(page int, change ChangeKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = append(c.ready, page)
	c.changes = append(c.changes, change)
}

func (c *fakeConsumer) Ready() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.ready)
}

func (c *fakeConsumer) Released() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.released)
}

// plentyPolicy never asks for memory back under Normal.
func plentyPolicy() *memory.Policy {
	return memory.NewPolicy(memory.WithQuerier(memory.QuerierFunc(func() (memory.Stats, error) {
		return memory.Stats{Total: 1 << 40, Free: 1 << 40, FreeSwap: 1 << 40}, nil
	})))
}

// newTestScheduler creates a scheduler over pages pages that is closed at
// the end of the test.
func newTestScheduler(t *testing.T, r Renderer, pages int, opts ...Option) *Scheduler {
	t.Helper()
	opts = append([]Option{WithPolicy(plentyPolicy())}, opts...)
	s := New(r, pages, opts...)
	t.Cleanup(func() {
		closed := make(chan struct{})
		go func() {
			_ = s.Close(context.Background())
			close(closed)
		}()
		fr, _ := r.(*fakeRenderer)
		for {
			select {
			case <-closed:
				return
			case <-time.After(time.Millisecond):
			}
			if fr == nil {
				continue
			}
			// Fail held renders so Close does not block.
			fr.mu.Lock()
			jobs := fr.jobs
			fr.jobs = nil
			fr.mu.Unlock()
			for _, j := range jobs {
				j.done(nil, errTestCleanup)
			}
		}
	})
	return s
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
