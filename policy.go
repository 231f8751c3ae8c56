// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refq

// Delivery is how a queue hands a reference to its consumers.
type Delivery uint8

const (
	// Queued references are stored in the queue buffer until drained
	// by Poll or Remove.
	Queued Delivery = iota
	// Dispatched references bypass the buffer: the queue runs the
	// reference's dispatch callback on the enqueueing goroutine.
	Dispatched
)

func (d Delivery) String() string {
	if d == Dispatched {
		return "Dispatched"
	}
	return "Queued"
}

// PolicyOf returns the delivery policy for kind.
//
// The policy is resolved once when a reference is created and stored on
// the reference; queues never re-derive it at delivery time.
func PolicyOf(kind Kind) Delivery {
	if kind == Immediate {
		return Dispatched
	}
	return Queued
}
