// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refq

import "sync/atomic"

// Slot holds a reference's referent.
//
// The collector (or Clear) may nil the slot at any time. Readers go through
// an [Accessor] rather than loading the slot directly.
type Slot[T any] struct {
	p atomic.Pointer[T]
}

// Load returns the current referent, or nil once cleared.
func (s *Slot[T]) Load() *T {
	return s.p.Load()
}

// Clear sets the referent to nil.
func (s *Slot[T]) Clear() {
	s.p.Store(nil)
}

func (s *Slot[T]) store(v *T) {
	s.p.Store(v)
}

// Accessor is the read path used by Reference.Get.
//
// The collector picks the implementation matching its operating mode and
// injects it when references are created (see [Tracker]).
type Accessor[T any] interface {
	Read(slot *Slot[T]) *T
}

// DirectRead returns the stored referent as-is.
//
// Valid when the collector never mutates slots concurrently with mutator
// reads, e.g. stop-the-world collection.
type DirectRead[T any] struct{}

// Read returns slot's referent.
func (DirectRead[T]) Read(slot *Slot[T]) *T {
	return slot.Load()
}

// BarrierMediated delegates every read to a collector-supplied barrier.
//
// Used by incremental or concurrent collectors that may clear slots while
// mutators read them. The barrier decides what the mutator observes; it
// may, for example, report nil for a referent the current cycle has already
// found unreachable.
type BarrierMediated[T any] struct {
	Barrier func(slot *Slot[T]) *T
}

// NewBarrierMediated returns an accessor that calls barrier on every read.
// Panics if barrier is nil.
func NewBarrierMediated[T any](barrier func(slot *Slot[T]) *T) BarrierMediated[T] {
	if barrier == nil {
		panic("refq: nil read barrier")
	}
	return BarrierMediated[T]{Barrier: barrier}
}

// Read returns what the barrier reports for slot.
func (a BarrierMediated[T]) Read(slot *Slot[T]) *T {
	return a.Barrier(slot)
}
