// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package refq provides reference tracking and notification queues for
// managed runtimes.
//
// A collector creates a [Reference] for each tracked referent. When the
// referent is no longer reachable at the reference's level, the collector
// clears the reference and enqueues it; client goroutines then retrieve the
// notification from the reference's [Queue].
//
// Reference kinds:
//
//   - Weak: cleared as soon as the referent is unreachable
//   - Soft: retained while young (see MaxSoftAge), then cleared
//   - Phantom: Get always returns nil
//   - Immediate: delivery runs a callback instead of queueing
//
// # Quick Start
//
//	q := refq.NewQueue[Conn]()
//	r := refq.NewReference(conn, q, refq.Weak)
//
//	// collector side
//	r.Clear()
//	r.Enqueue() // true exactly once
//
//	// consumer side
//	got, err := q.Poll()
//	if refq.IsWouldBlock(err) {
//	    // nothing delivered yet
//	}
//
// # Delivery
//
// A reference is delivered at most once. Its queue binding is fixed when it
// is created and dropped by the first Enqueue attempt, so every later or
// concurrent attempt returns false.
//
// The delivery policy is resolved from the kind when the reference is
// created ([PolicyOf]). Weak, Soft and Phantom references are [Queued]:
// they wait in the queue buffer until Poll or Remove drains them, in
// arrival order. Immediate references are [Dispatched]: the queue runs the
// reference's callback on the enqueueing goroutine and never stores it, so
// Poll never returns them.
//
//	cleaner := refq.NewImmediate(buf, q, func(r *refq.Reference[Buffer]) {
//	    releaseNative(r)
//	})
//
// IsEnqueued reports true from delivery until a queued reference is
// drained. Dispatched references keep reporting true.
//
// # Consuming
//
// Poll never blocks. Remove blocks until a reference arrives or its context
// ends; RemoveTimeout also gives up after a timeout:
//
//	for {
//	    r, err := q.RemoveTimeout(ctx, 50*time.Millisecond)
//	    switch {
//	    case err == nil:
//	        release(r)
//	    case refq.IsWouldBlock(err):
//	        // timed out, nothing delivered
//	    case refq.IsInterrupted(err):
//	        return err
//	    }
//	}
//
// Multiple consumers may block on the same queue; each arrival releases
// one of them. An interrupted Remove never consumes a reference.
//
// # Queue Growth
//
// The ring is allocated on first arrival at [DefaultCapacity] slots and
// grows by [DefaultGrowthPercent] (at least one slot) when full. Both are
// configurable:
//
//	q := refq.BuildQueue[Conn](refq.New().Capacity(16).GrowthPercent(50))
//
// Growth copies the wrapped contents into the new ring in FIFO order and
// publishes it only once fully populated.
//
// # Collector Integration
//
// The read path of Get is an injected [Accessor]. [DirectRead] reads the
// slot as-is and suits stop-the-world collectors; [BarrierMediated] calls a
// collector-supplied barrier on every read for incremental and concurrent
// collectors.
//
// A [Tracker] creates references carrying the collector's accessor and
// reprocess hook, and runs the per-cycle pass:
//
//	t := refq.NewTracker[Conn](refq.DirectRead[Conn]{}, nil)
//	r := t.Track(conn, q, refq.Soft)
//
//	stats := t.Scan(func(c *Conn) bool { return marked(c) })
//
// Cleared references can be delivered on a separate goroutine through a
// [Processor]:
//
//	p := refq.NewProcessor[Conn](1024)
//	t.Attach(p)
//	go p.Run(ctx)
//
//	// wait until everything the last Scan cleared has been delivered
//	p.WaitForProcessing(ctx)
//
// # Error Handling
//
// Absence of data is reported with [ErrWouldBlock], sourced from
// [code.hybscloud.com/iox]. It is a control flow signal, not a failure:
//
//	refq.IsWouldBlock(err)  // true if nothing was available
//	refq.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// RemoveTimeout with a negative timeout returns [ErrInvalidTimeout]. A
// blocked Remove whose context ends returns an error matching both
// [ErrInterrupted] and the context's cause.
//
// # Thread Safety
//
// All Reference, Queue, Tracker and Processor methods are safe for
// concurrent use, except that Processor.Run admits one loop at a time and
// Tracker.Scan must not run concurrently with itself. Only Remove,
// RemoveTimeout, Processor.Run and WaitForProcessing block.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors and
// backoff, [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package refq
