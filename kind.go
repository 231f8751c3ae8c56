// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refq

import "strconv"

// Kind is the reachability level a reference tracks. It is fixed when the
// reference is created.
type Kind uint8

const (
	// Weak references are cleared as soon as the referent is unreachable.
	Weak Kind = iota
	// Soft references keep an unreachable referent until it has aged
	// past the tracker's MaxSoftAge.
	Soft
	// Phantom references never expose their referent: Get returns nil.
	Phantom
	// Immediate references are delivered by running their dispatch
	// callback synchronously instead of being stored in a queue.
	Immediate
)

func (k Kind) String() string {
	switch k {
	case Weak:
		return "Weak"
	case Soft:
		return "Soft"
	case Phantom:
		return "Phantom"
	case Immediate:
		return "Immediate"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// State is the lifecycle position of a reference.
//
//	Initial → Cleared              (Clear, or collector pass)
//	Initial/Cleared → Enqueued     (successful delivery)
//	Enqueued → Cleared             (drained by Poll/Remove)
type State uint32

const (
	StateInitial State = iota
	StateCleared
	StateEnqueued
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "Initial"
	case StateCleared:
		return "Cleared"
	case StateEnqueued:
		return "Enqueued"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}
