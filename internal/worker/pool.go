// Package worker provides the goroutine pool threaded renderers run on.
package worker

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when work is handed to a closed pool.
var ErrClosed = errors.New("worker: pool closed")

// Pool runs functions on a fixed set of goroutines.
//
// Every worker owns a queue. Submit picks the shortest queue; an idle
// worker steals from the others before blocking on its own.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
	active  atomic.Int32

	// closeMu keeps Close from racing with queue sends.
	closeMu sync.RWMutex
}

// New starts a pool with n workers. If n is 0 or negative, GOMAXPROCS is
// used.
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	depth := max(n*4, 8)

	p := &Pool{
		queues: make([]chan func(), n),
		done:   make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), depth)
	}
	p.running.Store(true)

	p.wg.Add(n)
	for i := range n {
		go p.loop(i)
	}
	return p
}

func (p *Pool) loop(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		select {
		case fn := <-own:
			p.run(fn)
			continue
		case <-p.done:
			p.drain(own)
			return
		default:
		}

		if fn := p.steal(id); fn != nil {
			p.run(fn)
			continue
		}

		select {
		case fn := <-own:
			p.run(fn)
		case <-p.done:
			p.drain(own)
			return
		}
	}
}

func (p *Pool) run(fn func()) {
	if fn == nil {
		return
	}
	p.active.Add(1)
	defer p.active.Add(-1)
	fn()
}

// drain runs everything left in q.
func (p *Pool) drain(q chan func()) {
	for {
		select {
		case fn := <-q:
			p.run(fn)
		default:
			return
		}
	}
}

// steal takes one function from another worker's queue, or returns nil.
func (p *Pool) steal(id int) func() {
	for i := range p.queues {
		if i == id {
			continue
		}
		select {
		case fn := <-p.queues[i]:
			return fn
		default:
		}
	}
	return nil
}

// Submit queues fn on the worker with the shortest queue. It blocks while
// all queues are full.
func (p *Pool) Submit(fn func()) error {
	if fn == nil {
		return nil
	}
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if !p.running.Load() {
		return ErrClosed
	}
	best := 0
	for i := 1; i < len(p.queues); i++ {
		if len(p.queues[i]) < len(p.queues[best]) {
			best = i
		}
	}
	p.queues[best] <- fn
	return nil
}

// Run executes all functions on the pool and waits for them to finish.
// On a closed pool they run on the calling goroutine.
func (p *Pool) Run(work []func()) {
	if len(work) == 0 {
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(work))
	for i, fn := range work {
		wrapped := func() {
			defer wg.Done()
			fn()
		}
		if !p.send(i%len(p.queues), wrapped) {
			wrapped()
		}
	}
	wg.Wait()
}

// send queues fn on worker i. It reports false if the pool is closed.
func (p *Pool) send(i int, fn func()) bool {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if !p.running.Load() {
		return false
	}
	p.queues[i] <- fn
	return true
}

// Close stops accepting work, runs what is queued and waits for the
// workers to exit. Close is safe to call multiple times.
func (p *Pool) Close() {
	p.closeMu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.closeMu.Unlock()
		return
	}
	close(p.done)
	p.closeMu.Unlock()
	p.wg.Wait()
}

// Workers returns the number of workers.
func (p *Pool) Workers() int { return len(p.queues) }

// Busy reports whether any function is queued or running.
func (p *Pool) Busy() bool {
	return p.active.Load() > 0 || p.Queued() > 0
}

// Queued returns the number of queued functions. The result is
// approximate while work is being submitted.
func (p *Pool) Queued() int {
	n := 0
	for _, q := range p.queues {
		n += len(q)
	}
	return n
}
