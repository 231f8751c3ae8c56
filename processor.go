// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refq

import (
	"context"
	"errors"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// ErrRunning is returned by Processor.Run when another Run is active.
var ErrRunning = errors.New("refq: processor already running")

// Processor delivers cleared references on a goroutine owned by the
// caller, off the collector's critical path.
//
// Collector helpers hand references over with Submit; a single Run loop
// calls Enqueue on each in submission order. Immediate dispatch callbacks
// therefore run on the Run goroutine, and a panicking callback is recovered
// and counted without stopping the loop.
//
// Example:
//
//	p := refq.NewProcessor[Conn](1024)
//	go p.Run(ctx)
//
//	// collector helper
//	if err := p.Submit(ref); refq.IsWouldBlock(err) {
//	    ref.Enqueue() // pending list full: deliver inline
//	}
type Processor[T any] struct {
	pending  *pendingRing[T]
	runMu    sync.Mutex
	inflight atomix.Int64 // Submitted, not yet delivered

	submitted atomix.Uint64
	delivered atomix.Uint64
	rejected  atomix.Uint64
	panics    atomix.Uint64
}

// ProcessorStats is a snapshot of processor counters.
type ProcessorStats struct {
	Submitted uint64 // Accepted by Submit
	Delivered uint64 // Enqueue returned true
	Rejected  uint64 // Enqueue returned false (already delivered or unbound)
	Panics    uint64 // Recovered dispatch callback panics
	Pending   int64  // Submitted, not yet delivered
}

// NewProcessor creates a processor whose pending list holds capacity
// references. Capacity rounds up to the next power of 2.
// Panics if capacity < 2.
func NewProcessor[T any](capacity int) *Processor[T] {
	if capacity < 2 {
		panic("refq: pending capacity must be >= 2")
	}
	return &Processor[T]{pending: newPendingRing[T](capacity)}
}

// Submit hands r to the delivery loop (multiple producers safe).
// Returns ErrWouldBlock if the pending list is full; the caller may then
// deliver r itself with Enqueue.
func (p *Processor[T]) Submit(r *Reference[T]) error {
	p.inflight.Add(1)
	if err := p.pending.push(r); err != nil {
		p.inflight.Add(-1)
		return err
	}
	p.submitted.Add(1)
	return nil
}

// Run delivers submitted references until ctx ends. It returns ctx's error
// once the pending list is empty, or ErrRunning if another Run is active.
func (p *Processor[T]) Run(ctx context.Context) error {
	if !p.runMu.TryLock() {
		return ErrRunning
	}
	defer p.runMu.Unlock()

	backoff := iox.Backoff{}
	for {
		r, err := p.pending.pop()
		if err == nil {
			backoff.Reset()
			p.deliver(r)
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		backoff.Wait()
	}
}

func (p *Processor[T]) deliver(r *Reference[T]) {
	defer p.inflight.Add(-1)
	defer func() {
		if v := recover(); v != nil {
			p.panics.Add(1)
		}
	}()
	if r.Enqueue() {
		p.delivered.Add(1)
	} else {
		p.rejected.Add(1)
	}
}

// WaitForProcessing reports whether submitted references were still
// pending and, if so, waits until all of them have been delivered.
//
// If ctx ends first, it returns true and an error matching ErrInterrupted.
func (p *Processor[T]) WaitForProcessing(ctx context.Context) (bool, error) {
	if p.inflight.Load() == 0 {
		return false, nil
	}
	backoff := iox.Backoff{}
	for p.inflight.Load() > 0 {
		if ctx.Err() != nil {
			return true, interrupted(ctx)
		}
		backoff.Wait()
	}
	return true, nil
}

// Cap returns the pending list capacity.
func (p *Processor[T]) Cap() int {
	return p.pending.cap()
}

// Stats returns a snapshot of the processor counters.
func (p *Processor[T]) Stats() ProcessorStats {
	return ProcessorStats{
		Submitted: p.submitted.Load(),
		Delivered: p.delivered.Load(),
		Rejected:  p.rejected.Load(),
		Panics:    p.panics.Load(),
		Pending:   p.inflight.Load(),
	}
}
