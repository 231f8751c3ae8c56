// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refq

const (
	// DefaultCapacity is the initial ring size of a queue.
	DefaultCapacity = 128

	// DefaultGrowthPercent is how much a full ring grows per reallocation.
	// A ring always grows by at least one slot.
	DefaultGrowthPercent = 10

	// DefaultMaxSoftAge is the number of collector passes an unread Soft
	// referent survives after becoming unreachable.
	DefaultMaxSoftAge = 32

	// DefaultPendingCapacity is the size of a Processor's pending list.
	DefaultPendingCapacity = 1024
)

// Options configures queue, tracker and processor creation.
type Options struct {
	// Queue ring policy
	capacity      int
	growthPercent int

	// Collector policy
	maxSoftAge uint64

	// Processor handoff (rounds up to next power of 2)
	pendingCapacity int
}

// Builder creates queues, trackers and processors with fluent
// configuration.
//
// Example:
//
//	// Queue with a small initial ring that doubles when full
//	q := refq.BuildQueue[Conn](refq.New().Capacity(16).GrowthPercent(100))
//
//	// Tracker for a concurrent collector
//	b := refq.New().MaxSoftAge(8).PendingCapacity(4096)
//	t := refq.BuildTracker[Conn](b, refq.NewBarrierMediated(barrier), reprocess)
//	t.Attach(refq.BuildProcessor[Conn](b))
type Builder struct {
	opts Options
}

// New creates a builder holding the default policy.
func New() *Builder {
	return &Builder{opts: Options{
		capacity:        DefaultCapacity,
		growthPercent:   DefaultGrowthPercent,
		maxSoftAge:      DefaultMaxSoftAge,
		pendingCapacity: DefaultPendingCapacity,
	}}
}

// Capacity sets the initial ring size of built queues.
// Panics if n < 1.
func (b *Builder) Capacity(n int) *Builder {
	if n < 1 {
		panic("refq: capacity must be >= 1")
	}
	b.opts.capacity = n
	return b
}

// GrowthPercent sets how much a full ring grows. Zero still grows by one
// slot per reallocation.
// Panics if p < 0.
func (b *Builder) GrowthPercent(p int) *Builder {
	if p < 0 {
		panic("refq: growth percent must be >= 0")
	}
	b.opts.growthPercent = p
	return b
}

// MaxSoftAge sets how many collector passes an unread, unreachable Soft
// referent is retained by built trackers.
func (b *Builder) MaxSoftAge(n uint64) *Builder {
	b.opts.maxSoftAge = n
	return b
}

// PendingCapacity sets the pending list size of built processors.
// Capacity rounds up to the next power of 2.
// Panics if n < 2.
func (b *Builder) PendingCapacity(n int) *Builder {
	if n < 2 {
		panic("refq: pending capacity must be >= 2")
	}
	b.opts.pendingCapacity = n
	return b
}

// BuildQueue creates a Queue with the builder's ring policy.
func BuildQueue[T any](b *Builder) *Queue[T] {
	return newQueue[T](b.opts.capacity, b.opts.growthPercent)
}

// BuildTracker creates a Tracker that injects accessor and reprocess into
// every reference it creates. reprocess may be nil.
// Panics if accessor is nil.
func BuildTracker[T any](b *Builder, accessor Accessor[T], reprocess func(*Reference[T])) *Tracker[T] {
	return newTracker(accessor, reprocess, b.opts.maxSoftAge)
}

// BuildProcessor creates a Processor with the builder's pending capacity.
func BuildProcessor[T any](b *Builder) *Processor[T] {
	return NewProcessor[T](b.opts.pendingCapacity)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
