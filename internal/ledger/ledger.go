// Package ledger keeps the accounting of whole-page pixel buffers.
//
// The ledger holds one record per (consumer, page) pair that owns a live
// buffer, together with the running total of bytes in use. It does not own
// any pixel storage: evicting a record asks the owning consumer to release
// the buffer through a Releaser.
//
// Thread safety: Ledger is NOT safe for concurrent use. Callers serialize
// access with their own lock.
package ledger

// Record is the allocation of one page buffer held for one consumer.
type Record[C comparable] struct {
	Consumer C
	Page     int
	Bytes    uint64
}

// Releaser frees the buffers that ledger records account for.
type Releaser[C comparable] interface {
	// Unloadable reports whether consumer c can give up the buffer of page
	// without visible effect.
	Unloadable(c C, page int) bool

	// Release frees the buffer of page held for consumer c.
	Release(c C, page int)
}

// Ledger tracks page buffer allocations and their total size.
type Ledger[C comparable] struct {
	records  []Record[C]
	total    uint64
	releaser Releaser[C]
}

// New creates an empty ledger. r is consulted by Farthest and Evict and may
// be nil when neither is used.
func New[C comparable](r Releaser[C]) *Ledger[C] {
	return &Ledger[C]{releaser: r}
}

// Record stores the allocation of page for consumer c, replacing any
// previous record for the same pair.
func (l *Ledger[C]) Record(c C, page int, bytes uint64) {
	l.remove(c, page)
	l.records = append(l.records, Record[C]{Consumer: c, Page: page, Bytes: bytes})
	l.total += bytes
}

// Put inserts rec. It is Record taking a record value.
func (l *Ledger[C]) Put(rec Record[C]) {
	l.Record(rec.Consumer, rec.Page, rec.Bytes)
}

// Forget drops the record of page for consumer c without releasing the
// buffer. It reports whether a record existed.
func (l *Ledger[C]) Forget(c C, page int) bool {
	return l.remove(c, page)
}

// Bytes returns the size recorded for page of consumer c, and whether a
// record exists.
func (l *Ledger[C]) Bytes(c C, page int) (uint64, bool) {
	for _, r := range l.records {
		if r.Consumer == c && r.Page == page {
			return r.Bytes, true
		}
	}
	return 0, false
}

// Farthest returns the record whose page is farthest from viewportPage.
//
// When unloadableOnly is set only pages the Releaser reports as unloadable
// are candidates. When only is non-nil the search is restricted to that
// consumer. Equidistant records resolve to the one recorded first.
func (l *Ledger[C]) Farthest(viewportPage int, unloadableOnly bool, only *C) (Record[C], bool) {
	best, bestDist := -1, -1
	for i, r := range l.records {
		if only != nil && r.Consumer != *only {
			continue
		}
		if unloadableOnly && (l.releaser == nil || !l.releaser.Unloadable(r.Consumer, r.Page)) {
			continue
		}
		if d := distance(r.Page, viewportPage); d > bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Record[C]{}, false
	}
	return l.records[best], true
}

// Take removes and returns the record Farthest would return, without
// releasing its buffer. The caller either drops the buffer itself or puts
// an updated record back.
func (l *Ledger[C]) Take(viewportPage int, unloadableOnly bool, only *C) (Record[C], bool) {
	rec, ok := l.Farthest(viewportPage, unloadableOnly, only)
	if ok {
		l.remove(rec.Consumer, rec.Page)
	}
	return rec, ok
}

// Evict removes rec and asks its consumer to release the buffer.
// It reports whether the record was present.
func (l *Ledger[C]) Evict(rec Record[C]) bool {
	if !l.remove(rec.Consumer, rec.Page) {
		return false
	}
	if l.releaser != nil {
		l.releaser.Release(rec.Consumer, rec.Page)
	}
	return true
}

// RemoveConsumer releases every buffer held for c and drops its records.
// It returns the number of bytes freed.
func (l *Ledger[C]) RemoveConsumer(c C) uint64 {
	var freed uint64
	kept := l.records[:0]
	for _, r := range l.records {
		if r.Consumer != c {
			kept = append(kept, r)
			continue
		}
		if l.releaser != nil {
			l.releaser.Release(r.Consumer, r.Page)
		}
		freed += r.Bytes
	}
	clear(l.records[len(kept):])
	l.records = kept
	l.total -= freed
	return freed
}

// Reset drops every record without releasing buffers.
func (l *Ledger[C]) Reset() {
	l.records = nil
	l.total = 0
}

// Total returns the bytes accounted for by all records.
func (l *Ledger[C]) Total() uint64 { return l.total }

// Len returns the number of records.
func (l *Ledger[C]) Len() int { return len(l.records) }

// Records returns a copy of all records in insertion order.
func (l *Ledger[C]) Records() []Record[C] {
	out := make([]Record[C], len(l.records))
	copy(out, l.records)
	return out
}

func (l *Ledger[C]) remove(c C, page int) bool {
	for i, r := range l.records {
		if r.Consumer == c && r.Page == page {
			l.total -= r.Bytes
			l.records = append(l.records[:i], l.records[i+1:]...)
			return true
		}
	}
	return false
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
