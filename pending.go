// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// pendingRing is the bounded handoff between collector helper goroutines
// (producers) and a Processor's delivery loop (single consumer).
//
// Every slot carries a sequence number. A slot is free for position p when
// its sequence equals p, and holds the reference for p once it reaches p+1.
// Producers advance tail by CAS only after seeing their slot free, so a
// claimed position is always filled. The consumer releases a slot for the
// next lap by storing p+n.
type pendingRing[T any] struct {
	_        pad
	head     atomix.Uint64 // Consumer position (single writer)
	_        pad
	tail     atomix.Uint64 // Next position to claim (producers CAS)
	_        pad
	slots    []pendingSlot[T]
	capacity uint64
	mask     uint64
}

type pendingSlot[T any] struct {
	seq atomix.Uint64
	ref *Reference[T]
	_   padShort
}

func newPendingRing[T any](capacity int) *pendingRing[T] {
	n := uint64(roundToPow2(capacity))
	ring := &pendingRing[T]{
		slots:    make([]pendingSlot[T], n),
		capacity: n,
		mask:     n - 1,
	}
	for i := range ring.slots {
		ring.slots[i].seq.StoreRelaxed(uint64(i))
	}
	return ring
}

// push appends r (multiple producers safe).
// Returns ErrWouldBlock if the ring is full.
func (ring *pendingRing[T]) push(r *Reference[T]) error {
	sw := spin.Wait{}
	for {
		pos := ring.tail.LoadAcquire()
		slot := &ring.slots[pos&ring.mask]
		seq := slot.seq.LoadAcquire()

		switch diff := int64(seq - pos); {
		case diff == 0:
			if ring.tail.CompareAndSwapAcqRel(pos, pos+1) {
				slot.ref = r
				slot.seq.StoreRelease(pos + 1)
				return nil
			}
		case diff < 0:
			// Slot still holds the reference from the previous lap.
			return ErrWouldBlock
		}
		// Lost the claim or read a stale tail.
		sw.Once()
	}
}

// pop removes the oldest reference (single consumer only).
// Returns (nil, ErrWouldBlock) if the ring is empty or the next reference
// is claimed but not yet stored.
func (ring *pendingRing[T]) pop() (*Reference[T], error) {
	pos := ring.head.LoadRelaxed()
	slot := &ring.slots[pos&ring.mask]
	if slot.seq.LoadAcquire() != pos+1 {
		return nil, ErrWouldBlock
	}

	r := slot.ref
	slot.ref = nil
	slot.seq.StoreRelease(pos + ring.capacity)
	ring.head.StoreRelease(pos + 1)
	return r, nil
}

func (ring *pendingRing[T]) cap() int {
	return int(ring.capacity)
}
