// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refq

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// Tracker is the collector-side registry of references.
//
// It injects the collector's [Accessor] and reprocess hook into every
// reference it creates, and performs the per-cycle reference pass with
// Scan. Cleared references that still hold a queue binding are delivered
// through the attached [Submitter], or inline when none is attached or its
// pending list is full.
type Tracker[T any] struct {
	accessor   Accessor[T]
	reprocess  func(*Reference[T])
	maxSoftAge uint64
	seq        atomix.Uint64

	mu   sync.Mutex
	refs []*Reference[T]
	proc Submitter[T]
}

// ScanStats reports the outcome of one Scan.
//
// Enqueued counts cleared references handed off for delivery: those
// delivered inline plus those accepted by the attached [Submitter]. A
// submitted reference is delivered later by the Processor, which may still
// reject it (see ProcessorStats.Rejected).
type ScanStats struct {
	Candidates int // References with a referent at scan time
	Cleared    int // Referents found unreachable and cleared
	Enqueued   int // Cleared references handed off for delivery
	Retained   int // Unreachable Soft referents kept because they were young
}

// NewTracker creates a tracker with DefaultMaxSoftAge. reprocess may be nil.
// Panics if accessor is nil.
func NewTracker[T any](accessor Accessor[T], reprocess func(*Reference[T])) *Tracker[T] {
	return newTracker(accessor, reprocess, DefaultMaxSoftAge)
}

func newTracker[T any](accessor Accessor[T], reprocess func(*Reference[T]), maxSoftAge uint64) *Tracker[T] {
	if accessor == nil {
		panic("refq: nil accessor")
	}
	return &Tracker[T]{accessor: accessor, reprocess: reprocess, maxSoftAge: maxSoftAge}
}

// Track creates and registers a Weak, Soft or Phantom reference.
// Panics if kind is Immediate (use TrackImmediate).
func (t *Tracker[T]) Track(referent *T, q *Queue[T], kind Kind) *Reference[T] {
	if kind == Immediate {
		panic("refq: Immediate references require TrackImmediate")
	}
	r := newReference(referent, q, kind, t.accessor, nil, t.reprocess, t.seq.Add(1))
	t.register(r)
	return r
}

// TrackImmediate creates and registers an Immediate reference.
// Panics if fn is nil.
func (t *Tracker[T]) TrackImmediate(referent *T, q *Queue[T], fn func(*Reference[T])) *Reference[T] {
	if fn == nil {
		panic("refq: nil dispatch callback")
	}
	r := newReference(referent, q, Immediate, t.accessor, fn, t.reprocess, t.seq.Add(1))
	t.register(r)
	return r
}

func (t *Tracker[T]) register(r *Reference[T]) {
	t.mu.Lock()
	t.refs = append(t.refs, r)
	t.mu.Unlock()
}

// Attach routes references cleared by Scan through s, usually a
// [Processor]. A nil s restores inline delivery.
func (t *Tracker[T]) Attach(s Submitter[T]) {
	if p, ok := s.(*Processor[T]); ok && p == nil {
		s = nil
	}
	t.mu.Lock()
	t.proc = s
	t.mu.Unlock()
}

// Len returns the number of registered references.
func (t *Tracker[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.refs)
}

// Scan runs one reference pass. live reports whether a referent is still
// strongly reachable.
//
// Reachable Soft referents age by one pass, up to the tracker's max soft
// age. Unreachable referents are cleared, except Soft referents younger than
// the max age, which are aged and retained. Cleared references with a queue
// binding are delivered. References that are cleared or already delivered
// leave the registry.
//
// live runs without the tracker lock held and may call back into the
// tracker. References registered during the pass are kept for the next one.
// The caller guarantees no concurrent Scan on the same tracker.
func (t *Tracker[T]) Scan(live func(*T) bool) ScanStats {
	var stats ScanStats
	var deliver []*Reference[T]

	t.mu.Lock()
	proc := t.proc
	pass := t.refs[:len(t.refs):len(t.refs)]
	t.mu.Unlock()

	kept := make([]*Reference[T], 0, len(pass))
	for _, r := range pass {
		referent := r.slot.Load()
		if referent == nil || r.State() != StateInitial {
			continue
		}
		stats.Candidates++

		young := r.kind == Soft && r.age.LoadRelaxed() < t.maxSoftAge
		if live(referent) {
			if young {
				r.age.AddAcqRel(1)
			}
			kept = append(kept, r)
			continue
		}
		if young {
			r.age.AddAcqRel(1)
			stats.Retained++
			kept = append(kept, r)
			continue
		}

		r.Clear()
		stats.Cleared++
		if r.queued() {
			deliver = append(deliver, r)
		}
	}

	t.mu.Lock()
	t.refs = append(kept, t.refs[len(pass):]...)
	t.mu.Unlock()

	// Delivery runs dispatch callbacks, which may register new references.
	for _, r := range deliver {
		if proc != nil && proc.Submit(r) == nil {
			stats.Enqueued++
			continue
		}
		if r.Enqueue() {
			stats.Enqueued++
		}
	}
	return stats
}
