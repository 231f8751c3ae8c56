// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refq

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// Reference tracks a referent on behalf of the collector and delivers a
// notification to at most one queue when the referent is reclaimed.
//
// The queue binding is fixed at creation and dropped by the first Enqueue
// attempt, whatever its outcome. A reference is therefore delivered at most
// once: queued for Poll/Remove, or dispatched synchronously for [Immediate].
//
// Clear, Get, IsEnqueued and Enqueue never block and are safe for concurrent
// use.
type Reference[T any] struct {
	mu    sync.Mutex // Guards queue and state transitions made by Clear/Enqueue
	queue *Queue[T]

	slot  Slot[T]
	state atomix.Uint64 // State; Enqueued/drained marks are stored by the queue under its lock
	age   atomix.Uint64 // Soft only: collector passes since last Get

	kind      Kind
	delivery  Delivery
	accessor  Accessor[T]
	dispatch  func(*Reference[T])
	reprocess func(*Reference[T])
	id        uint64
}

// NewReference creates a Weak, Soft or Phantom reference to referent.
//
// q may be nil, in which case the reference is never delivered. Reads use
// [DirectRead]; collector-owned references should be created through a
// [Tracker] so they carry the collector's accessor and hooks.
//
// Panics if kind is Immediate (use NewImmediate).
func NewReference[T any](referent *T, q *Queue[T], kind Kind) *Reference[T] {
	if kind == Immediate {
		panic("refq: Immediate references require NewImmediate")
	}
	return newReference(referent, q, kind, DirectRead[T]{}, nil, nil, 0)
}

// NewImmediate creates an [Immediate] reference whose delivery runs fn on
// the enqueueing goroutine instead of storing the reference in q.
// Panics if fn is nil.
func NewImmediate[T any](referent *T, q *Queue[T], fn func(*Reference[T])) *Reference[T] {
	if fn == nil {
		panic("refq: nil dispatch callback")
	}
	return newReference(referent, q, Immediate, DirectRead[T]{}, fn, nil, 0)
}

func newReference[T any](
	referent *T,
	q *Queue[T],
	kind Kind,
	accessor Accessor[T],
	dispatch func(*Reference[T]),
	reprocess func(*Reference[T]),
	id uint64,
) *Reference[T] {
	r := &Reference[T]{
		queue:     q,
		kind:      kind,
		delivery:  PolicyOf(kind),
		accessor:  accessor,
		dispatch:  dispatch,
		reprocess: reprocess,
		id:        id,
	}
	r.slot.store(referent)
	return r
}

// Kind returns the reachability level of r.
func (r *Reference[T]) Kind() Kind { return r.kind }

// Delivery returns the delivery policy resolved when r was created.
func (r *Reference[T]) Delivery() Delivery { return r.delivery }

// ID returns the sequence number assigned by the creating Tracker, or 0.
func (r *Reference[T]) ID() uint64 { return r.id }

// State returns the current lifecycle state.
func (r *Reference[T]) State() State {
	return State(r.state.LoadAcquire())
}

// Age returns the number of collector passes since the referent was last
// read. Only Soft references age.
func (r *Reference[T]) Age() uint64 {
	return r.age.LoadRelaxed()
}

// Clear drops the referent. The first Clear of a reference in the Initial
// state moves it to Cleared; later calls only re-clear the slot.
func (r *Reference[T]) Clear() {
	r.mu.Lock()
	r.slot.Clear()
	r.state.CompareAndSwapAcqRel(uint64(StateInitial), uint64(StateCleared))
	r.mu.Unlock()
}

// Get returns the referent through the reference's accessor.
//
// Returns nil for Phantom references, after Clear, and once r has left the
// Initial state. Reading a Soft reference resets its age.
func (r *Reference[T]) Get() *T {
	if r.kind == Phantom {
		return nil
	}
	v := r.accessor.Read(&r.slot)
	if v == nil || r.State() != StateInitial {
		return nil
	}
	if r.kind == Soft {
		r.age.StoreRelaxed(0)
	}
	return v
}

// IsEnqueued reports whether r has been delivered and not yet drained.
// Dispatched Immediate references stay enqueued.
func (r *Reference[T]) IsEnqueued() bool {
	return r.State() == StateEnqueued
}

// Enqueue attempts to deliver r to the queue it was created with.
//
// Returns true for exactly one caller over the lifetime of r. The queue
// binding is dropped before the queue is asked to accept r, so concurrent
// or repeated calls, and references created without a queue, return false.
//
// If the referent was still set, the owning Tracker's reprocess hook runs
// after a successful delivery.
func (r *Reference[T]) Enqueue() bool {
	r.mu.Lock()
	q := r.queue
	referent := r.slot.Load()
	r.queue = nil
	if q == nil || r.State() == StateEnqueued {
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()

	// The record lock is released before accept: dispatch callbacks may
	// call back into r.
	if !q.accept(r) {
		return false
	}
	if referent != nil && r.reprocess != nil {
		r.reprocess(r)
	}
	return true
}

// queued reports whether r still holds a queue binding.
func (r *Reference[T]) queued() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue != nil
}

// dequeued is called once by the queue when it hands r off: when draining
// it from the buffer, or right before running its dispatch callback.
// Drained references return to Cleared; dispatched ones stay Enqueued.
func (r *Reference[T]) dequeued() {
	if r.delivery == Dispatched {
		r.state.StoreRelease(uint64(StateEnqueued))
		return
	}
	r.state.StoreRelease(uint64(StateCleared))
}
