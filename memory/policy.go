package memory

import (
	"sync"
	"time"
)

// DefaultTTL is how long operating system figures are reused.
const DefaultTTL = 2 * time.Second

// Stats are the memory figures a Querier reports, in bytes.
type Stats struct {
	Total    uint64
	Free     uint64
	FreeSwap uint64
}

// Querier reads memory figures from the system.
type Querier interface {
	Query() (Stats, error)
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func() (Stats, error)

// Query calls f.
func (f QuerierFunc) Query() (Stats, error) { return f() }

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithQuerier replaces the operating system querier.
func WithQuerier(q Querier) PolicyOption {
	return func(p *Policy) {
		if q != nil {
			p.querier = q
		}
	}
}

// WithTTL sets how long queried figures are reused. Zero disables caching.
func WithTTL(d time.Duration) PolicyOption {
	return func(p *Policy) {
		if d >= 0 {
			p.ttl = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) PolicyOption {
	return func(p *Policy) {
		if now != nil {
			p.now = now
		}
	}
}

// Policy computes eviction targets. It is safe for concurrent use.
type Policy struct {
	querier Querier
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	stats     Stats
	err       error
	queriedAt time.Time
	valid     bool
}

// NewPolicy creates a policy backed by System() unless configured otherwise.
func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{
		querier: System(),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats returns the current memory figures, queried at most once per TTL.
func (p *Policy) Stats() (Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.valid && now.Sub(p.queriedAt) < p.ttl {
		return p.stats, p.err
	}
	p.stats, p.err = p.querier.Query()
	p.queriedAt = now
	p.valid = true
	if p.err != nil {
		slogger().Debug("memory: system query failed", "err", p.err)
	}
	return p.stats, p.err
}

// BytesToFree returns how many bytes of the current cache usage must be
// freed under profile before another buffer is allocated.
func (p *Policy) BytesToFree(current uint64, profile Profile) uint64 {
	if profile == Low {
		return current
	}
	s, err := p.Stats()
	if err != nil || s.Total == 0 {
		return current
	}
	return bytesToFree(current, profile, s)
}

func bytesToFree(current uint64, profile Profile, s Stats) uint64 {
	switch profile {
	case Normal:
		var clip uint64
		if third := s.Total / 3; current > third {
			clip = current - third
		}
		return max(clip, overFree(current, s.Free))
	case Aggressive:
		return overFree(current, s.Free)
	case Greedy:
		limit := min(max(s.Free, s.Total/2), s.Free+s.FreeSwap)
		return overFree(current, limit)
	default:
		return current
	}
}

// overFree returns half of what current exceeds limit by.
func overFree(current, limit uint64) uint64 {
	if current > limit {
		return (current - limit) / 2
	}
	return 0
}
