// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refq

import (
	"context"
	"time"
)

// Consumer is the consumer-facing side of a reference queue.
//
// Poll never blocks. Remove blocks until a reference arrives or ctx ends;
// RemoveTimeout additionally gives up after timeout (0 waits indefinitely).
// An empty result is reported as ErrWouldBlock.
//
// Example:
//
//	func drain(c refq.Consumer[Conn], release func(*refq.Reference[Conn])) {
//	    for {
//	        r, err := c.Poll()
//	        if err != nil {
//	            return // ErrWouldBlock: nothing delivered
//	        }
//	        release(r)
//	    }
//	}
type Consumer[T any] interface {
	Poll() (*Reference[T], error)
	Remove(ctx context.Context) (*Reference[T], error)
	RemoveTimeout(ctx context.Context, timeout time.Duration) (*Reference[T], error)
}

// Deliverer is implemented by references: Enqueue attempts the single
// delivery of a reference to its queue.
type Deliverer interface {
	Enqueue() bool
	IsEnqueued() bool
}

// Submitter hands cleared references to a delivery loop.
// [Processor] implements Submitter.
type Submitter[T any] interface {
	Submit(r *Reference[T]) error
}

var (
	_ Consumer[struct{}]  = (*Queue[struct{}])(nil)
	_ Deliverer           = (*Reference[struct{}])(nil)
	_ Submitter[struct{}] = (*Processor[struct{}])(nil)
)
