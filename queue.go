// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refq

import (
	"context"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
)

// Queue is a growable FIFO of delivered references.
//
// References arrive through Reference.Enqueue (typically driven by the
// collector or a [Processor]) and are drained by Poll, Remove or
// RemoveTimeout. Concurrent producers are ordered by lock acquisition.
//
// The buffer is a ring allocated lazily at the configured capacity and
// grown by GrowthPercent (at least one slot) whenever an arrival finds it
// full. It never shrinks. Growth builds the new ring completely before
// publishing it.
//
// Immediate references never touch the buffer: accepting one runs its
// dispatch callback on the enqueueing goroutine.
type Queue[T any] struct {
	_     pad
	empty atomix.Bool // Read without the lock by Poll's fast path
	_     pad

	mu       sync.Mutex
	buffer   []*Reference[T]
	head     int
	tail     int
	ready    chan struct{} // Closed to wake blocked Remove calls; nil with no waiters
	capacity int           // Initial ring size
	growth   int           // Percent

	accepted   atomix.Uint64
	dispatched atomix.Uint64
	removed    atomix.Uint64
	grows      atomix.Uint64
}

// QueueStats is a snapshot of queue counters.
type QueueStats struct {
	Accepted   uint64 // References stored in the buffer
	Dispatched uint64 // Immediate references run synchronously
	Removed    uint64 // References drained by Poll/Remove
	Grows      uint64 // Ring reallocations
}

// NewQueue creates a queue with DefaultCapacity and DefaultGrowthPercent.
func NewQueue[T any]() *Queue[T] {
	return newQueue[T](DefaultCapacity, DefaultGrowthPercent)
}

func newQueue[T any](capacity, growth int) *Queue[T] {
	q := &Queue[T]{capacity: capacity, growth: growth}
	q.empty.StoreRelease(true)
	return q
}

// Poll removes and returns the oldest delivered reference (non-blocking).
// Returns (nil, ErrWouldBlock) if the queue is empty.
func (q *Queue[T]) Poll() (*Reference[T], error) {
	if q.empty.LoadAcquire() {
		return nil, ErrWouldBlock
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.empty.LoadRelaxed() {
		return nil, ErrWouldBlock
	}
	return q.takeLocked(), nil
}

// Remove removes and returns the oldest delivered reference, blocking
// until one is available.
//
// If ctx ends first, Remove returns an error matching ErrInterrupted and
// the context's cause. Nothing is removed in that case.
func (q *Queue[T]) Remove(ctx context.Context) (*Reference[T], error) {
	return q.RemoveTimeout(ctx, 0)
}

// RemoveTimeout is like Remove but waits at most timeout.
//
// A zero timeout waits indefinitely. A negative timeout returns
// ErrInvalidTimeout without blocking. If the timeout elapses with the queue
// still empty, RemoveTimeout returns (nil, ErrWouldBlock).
func (q *Queue[T]) RemoveTimeout(ctx context.Context, timeout time.Duration) (*Reference[T], error) {
	if timeout < 0 {
		return nil, ErrInvalidTimeout
	}

	var expire <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expire = t.C
	}

	expired := false
	q.mu.Lock()
	for q.empty.LoadRelaxed() {
		if expired {
			q.mu.Unlock()
			return nil, ErrWouldBlock
		}
		ready := q.waitLocked()
		q.mu.Unlock()

		select {
		case <-ready:
		case <-expire:
			expired = true
		case <-ctx.Done():
			return nil, interrupted(ctx)
		}
		q.mu.Lock()
	}

	r := q.takeLocked()
	if !q.empty.LoadRelaxed() {
		q.wakeLocked()
	}
	q.mu.Unlock()
	return r, nil
}

// accept is the producer entry point used by Reference.Enqueue.
func (q *Queue[T]) accept(r *Reference[T]) bool {
	if r.delivery == Dispatched {
		r.dequeued()
		q.dispatched.Add(1)
		r.dispatch(r)
		return true
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.buffer == nil {
		q.buffer = make([]*Reference[T], q.capacity)
	} else if !q.empty.LoadRelaxed() && q.head == q.tail {
		q.growLocked()
	}

	q.buffer[q.tail] = r
	r.state.StoreRelease(uint64(StateEnqueued))
	q.tail++
	if q.tail == len(q.buffer) {
		q.tail = 0
	}
	q.empty.StoreRelease(false)
	q.accepted.Add(1)
	q.wakeLocked()
	return true
}

// takeLocked removes the head reference. The queue must be non-empty.
func (q *Queue[T]) takeLocked() *Reference[T] {
	r := q.buffer[q.head]
	q.buffer[q.head] = nil
	r.dequeued()
	q.head++
	if q.head == len(q.buffer) {
		q.head = 0
	}
	if q.head == q.tail {
		q.empty.StoreRelease(true)
	}
	q.removed.Add(1)
	return r
}

// growLocked replaces a full ring with a larger one holding the same
// references at logical positions [0, old).
func (q *Queue[T]) growLocked() {
	old := len(q.buffer)
	n := old + old*q.growth/100
	if n < old+1 {
		n = old + 1
	}

	next := make([]*Reference[T], n)
	k := copy(next, q.buffer[q.head:])
	copy(next[k:], q.buffer[:q.tail])

	q.buffer = next
	q.head = 0
	q.tail = old
	q.grows.Add(1)
}

func (q *Queue[T]) waitLocked() <-chan struct{} {
	if q.ready == nil {
		q.ready = make(chan struct{})
	}
	return q.ready
}

func (q *Queue[T]) wakeLocked() {
	if q.ready != nil {
		close(q.ready)
		q.ready = nil
	}
}

// Len returns the number of references waiting in the buffer.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.empty.LoadRelaxed() {
		return 0
	}
	n := q.tail - q.head
	if n <= 0 {
		n += len(q.buffer)
	}
	return n
}

// Cap returns the current ring size, or 0 before the first arrival.
func (q *Queue[T]) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffer)
}

// Stats returns a snapshot of the queue counters.
func (q *Queue[T]) Stats() QueueStats {
	return QueueStats{
		Accepted:   q.accepted.Load(),
		Dispatched: q.dispatched.Load(),
		Removed:    q.removed.Load(),
		Grows:      q.grows.Load(),
	}
}
