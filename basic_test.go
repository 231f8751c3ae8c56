// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refq_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/refq"
)

type object struct {
	id int
}

// =============================================================================
// Queue - Basic Operations
// =============================================================================

// TestQueueRoundTrip tests that an enqueued reference comes back from Poll
// and the queue is empty afterwards.
func TestQueueRoundTrip(t *testing.T) {
	q := refq.NewQueue[object]()
	r := refq.NewReference(&object{id: 1}, q, refq.Weak)

	if !r.Enqueue() {
		t.Fatalf("Enqueue: got false, want true")
	}
	got, err := q.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if got != r {
		t.Fatalf("Poll: got %p, want %p", got, r)
	}
	if got, err := q.Poll(); !errors.Is(err, refq.ErrWouldBlock) || got != nil {
		t.Fatalf("Poll on empty: got (%v, %v), want (nil, ErrWouldBlock)", got, err)
	}
}

// TestQueueFIFO tests that references drain in arrival order.
func TestQueueFIFO(t *testing.T) {
	q := refq.NewQueue[object]()
	a := refq.NewReference(&object{id: 1}, q, refq.Weak)
	b := refq.NewReference(&object{id: 2}, q, refq.Soft)
	c := refq.NewReference(&object{id: 3}, q, refq.Phantom)

	for _, r := range []*refq.Reference[object]{a, b, c} {
		if !r.Enqueue() {
			t.Fatalf("Enqueue(%v): got false, want true", r.Kind())
		}
	}
	if q.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", q.Len())
	}

	for i, want := range []*refq.Reference[object]{a, b, c} {
		got, err := q.Poll()
		if err != nil {
			t.Fatalf("Poll(%d): %v", i, err)
		}
		if got != want {
			t.Fatalf("Poll(%d): got %v, want %v", i, got.Kind(), want.Kind())
		}
	}
	if q.Len() != 0 {
		t.Fatalf("Len after drain: got %d, want 0", q.Len())
	}
}

// TestQueueGrowth tests that overflowing the default ring keeps every
// reference in order.
func TestQueueGrowth(t *testing.T) {
	q := refq.NewQueue[object]()
	if q.Cap() != 0 {
		t.Fatalf("Cap before first arrival: got %d, want 0", q.Cap())
	}

	n := refq.DefaultCapacity + 1
	refs := make([]*refq.Reference[object], n)
	for i := range n {
		refs[i] = refq.NewReference(&object{id: i}, q, refq.Weak)
		if !refs[i].Enqueue() {
			t.Fatalf("Enqueue(%d): got false, want true", i)
		}
	}

	// floor(128 * 1.10)
	if q.Cap() != 140 {
		t.Fatalf("Cap after growth: got %d, want 140", q.Cap())
	}
	if s := q.Stats(); s.Grows != 1 || s.Accepted != uint64(n) {
		t.Fatalf("Stats: got %+v, want Grows=1 Accepted=%d", s, n)
	}

	for i := range n {
		got, err := q.Poll()
		if err != nil {
			t.Fatalf("Poll(%d): %v", i, err)
		}
		if got != refs[i] {
			t.Fatalf("Poll(%d): got %p, want %p", i, got, refs[i])
		}
	}
	if _, err := q.Poll(); !refq.IsWouldBlock(err) {
		t.Fatalf("Poll on drained: got %v, want ErrWouldBlock", err)
	}
}

// TestQueueGrowthSmallRing tests growth by a single slot when the growth
// percentage rounds down to zero.
func TestQueueGrowthSmallRing(t *testing.T) {
	q := refq.BuildQueue[object](refq.New().Capacity(2).GrowthPercent(10))

	refs := make([]*refq.Reference[object], 5)
	for i := range refs {
		refs[i] = refq.NewReference(&object{id: i}, q, refq.Weak)
		refs[i].Enqueue()
	}
	// 2 → 3 → 4 → 5
	if q.Cap() != 5 {
		t.Fatalf("Cap: got %d, want 5", q.Cap())
	}
	for i := range refs {
		got, err := q.Poll()
		if err != nil || got != refs[i] {
			t.Fatalf("Poll(%d): got (%p, %v), want (%p, nil)", i, got, err, refs[i])
		}
	}
}

// =============================================================================
// Reference - State Machine
// =============================================================================

// TestReferenceClearIdempotent tests that Clear can be called repeatedly.
func TestReferenceClearIdempotent(t *testing.T) {
	obj := &object{id: 7}
	r := refq.NewReference(obj, nil, refq.Weak)

	if got := r.Get(); got != obj {
		t.Fatalf("Get before Clear: got %v, want %v", got, obj)
	}
	if r.State() != refq.StateInitial {
		t.Fatalf("State: got %v, want Initial", r.State())
	}

	r.Clear()
	if got := r.Get(); got != nil {
		t.Fatalf("Get after Clear: got %v, want nil", got)
	}
	if r.State() != refq.StateCleared {
		t.Fatalf("State after Clear: got %v, want Cleared", r.State())
	}

	r.Clear()
	if got := r.Get(); got != nil {
		t.Fatalf("Get after second Clear: got %v, want nil", got)
	}
	if r.State() != refq.StateCleared {
		t.Fatalf("State after second Clear: got %v, want Cleared", r.State())
	}
}

// TestReferenceEnqueueOnce tests that only the first Enqueue succeeds.
func TestReferenceEnqueueOnce(t *testing.T) {
	q := refq.NewQueue[object]()
	r := refq.NewReference(&object{}, q, refq.Weak)

	if !r.Enqueue() {
		t.Fatalf("first Enqueue: got false, want true")
	}
	if !r.IsEnqueued() {
		t.Fatalf("IsEnqueued after Enqueue: got false, want true")
	}
	if r.Enqueue() {
		t.Fatalf("second Enqueue: got true, want false")
	}
	if q.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", q.Len())
	}

	if _, err := q.Poll(); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if r.IsEnqueued() {
		t.Fatalf("IsEnqueued after drain: got true, want false")
	}
	if r.Enqueue() {
		t.Fatalf("Enqueue after drain: got true, want false")
	}
}

// TestReferenceWithoutQueue tests that unbound references are never
// delivered.
func TestReferenceWithoutQueue(t *testing.T) {
	r := refq.NewReference(&object{}, nil, refq.Soft)
	if r.Enqueue() {
		t.Fatalf("Enqueue without queue: got true, want false")
	}
	if r.IsEnqueued() {
		t.Fatalf("IsEnqueued: got true, want false")
	}
}

// TestReferenceGetAfterEnqueue tests that a delivered reference no longer
// exposes its referent even if it was never cleared.
func TestReferenceGetAfterEnqueue(t *testing.T) {
	q := refq.NewQueue[object]()
	r := refq.NewReference(&object{}, q, refq.Weak)
	r.Enqueue()
	if got := r.Get(); got != nil {
		t.Fatalf("Get after Enqueue: got %v, want nil", got)
	}
}

// TestPhantomGet tests that Phantom references never expose the referent.
func TestPhantomGet(t *testing.T) {
	r := refq.NewReference(&object{id: 1}, nil, refq.Phantom)
	if got := r.Get(); got != nil {
		t.Fatalf("Phantom Get: got %v, want nil", got)
	}
}

// TestWeakPhantomScenario walks a weak and a phantom reference through
// clear, enqueue and poll on one queue.
func TestWeakPhantomScenario(t *testing.T) {
	q := refq.NewQueue[object]()
	r1 := refq.NewReference(&object{id: 1}, q, refq.Weak)
	r2 := refq.NewReference(&object{id: 2}, q, refq.Phantom)

	r1.Clear()
	if !r1.Enqueue() {
		t.Fatalf("r1.Enqueue: got false, want true")
	}
	if got, _ := q.Poll(); got != r1 {
		t.Fatalf("Poll: got %p, want r1 %p", got, r1)
	}
	if got := r1.Get(); got != nil {
		t.Fatalf("r1.Get: got %v, want nil", got)
	}

	if !r2.Enqueue() {
		t.Fatalf("r2.Enqueue: got false, want true")
	}
	if got, _ := q.Poll(); got != r2 {
		t.Fatalf("Poll: got %p, want r2 %p", got, r2)
	}
	if got, err := q.Poll(); got != nil || !refq.IsWouldBlock(err) {
		t.Fatalf("Poll on empty: got (%v, %v), want (nil, ErrWouldBlock)", got, err)
	}
}

// =============================================================================
// Immediate Dispatch
// =============================================================================

// TestImmediateDispatch tests that Immediate references run their callback
// synchronously and never appear in the queue.
func TestImmediateDispatch(t *testing.T) {
	q := refq.NewQueue[object]()
	ran := false
	var seen refq.State
	r := refq.NewImmediate(&object{}, q, func(r *refq.Reference[object]) {
		ran = true
		seen = r.State()
	})

	if r.Delivery() != refq.Dispatched {
		t.Fatalf("Delivery: got %v, want Dispatched", r.Delivery())
	}
	if !r.Enqueue() {
		t.Fatalf("Enqueue: got false, want true")
	}
	if !ran {
		t.Fatalf("callback did not run before Enqueue returned")
	}
	if seen != refq.StateEnqueued {
		t.Fatalf("State during callback: got %v, want Enqueued", seen)
	}
	if !r.IsEnqueued() {
		t.Fatalf("IsEnqueued after dispatch: got false, want true")
	}
	if _, err := q.Poll(); !refq.IsWouldBlock(err) {
		t.Fatalf("Poll: got %v, want ErrWouldBlock", err)
	}
	if q.Cap() != 0 {
		t.Fatalf("Cap: got %d, want 0 (buffer untouched)", q.Cap())
	}
	if s := q.Stats(); s.Dispatched != 1 || s.Accepted != 0 {
		t.Fatalf("Stats: got %+v, want Dispatched=1 Accepted=0", s)
	}
	if r.Enqueue() {
		t.Fatalf("second Enqueue: got true, want false")
	}
}

// TestImmediateCallbackReentry tests that a dispatch callback may call back
// into its own reference.
func TestImmediateCallbackReentry(t *testing.T) {
	q := refq.NewQueue[object]()
	var again bool
	r := refq.NewImmediate(&object{}, q, func(r *refq.Reference[object]) {
		r.Clear()
		again = r.Enqueue()
	})
	if !r.Enqueue() {
		t.Fatalf("Enqueue: got false, want true")
	}
	if again {
		t.Fatalf("Enqueue from callback: got true, want false")
	}
}

// TestNewReferencePanics tests constructor misuse.
func TestNewReferencePanics(t *testing.T) {
	cases := map[string]func(){
		"ImmediateKind": func() { refq.NewReference(&object{}, nil, refq.Immediate) },
		"NilCallback":   func() { refq.NewImmediate[object](&object{}, nil, nil) },
		"NilBarrier":    func() { refq.NewBarrierMediated[object](nil) },
		"Capacity":      func() { refq.New().Capacity(0) },
		"Growth":        func() { refq.New().GrowthPercent(-1) },
		"Pending":       func() { refq.NewProcessor[object](1) },
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			f()
		})
	}
}

// =============================================================================
// Dispatch Policy and Accessors
// =============================================================================

func TestPolicyOf(t *testing.T) {
	cases := []struct {
		kind refq.Kind
		want refq.Delivery
	}{
		{refq.Weak, refq.Queued},
		{refq.Soft, refq.Queued},
		{refq.Phantom, refq.Queued},
		{refq.Immediate, refq.Dispatched},
	}
	for _, c := range cases {
		if got := refq.PolicyOf(c.kind); got != c.want {
			t.Fatalf("PolicyOf(%v): got %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if got := refq.Kind(9).String(); got != "Kind(9)" {
		t.Fatalf("String: got %q, want %q", got, "Kind(9)")
	}
	if got := refq.StateEnqueued.String(); got != "Enqueued" {
		t.Fatalf("String: got %q, want %q", got, "Enqueued")
	}
}

// TestBarrierMediatedGet tests that Get goes through the injected barrier.
func TestBarrierMediatedGet(t *testing.T) {
	obj := &object{id: 3}
	calls := 0
	hide := false
	barrier := refq.NewBarrierMediated(func(s *refq.Slot[object]) *object {
		calls++
		if hide {
			return nil
		}
		return s.Load()
	})
	tr := refq.NewTracker[object](barrier, nil)
	r := tr.Track(obj, nil, refq.Weak)

	if got := r.Get(); got != obj {
		t.Fatalf("Get: got %v, want %v", got, obj)
	}
	hide = true
	if got := r.Get(); got != nil {
		t.Fatalf("Get with hiding barrier: got %v, want nil", got)
	}
	if calls != 2 {
		t.Fatalf("barrier calls: got %d, want 2", calls)
	}
}

// =============================================================================
// Errors
// =============================================================================

func TestErrorClassification(t *testing.T) {
	if !refq.IsNonFailure(refq.ErrWouldBlock) {
		t.Fatalf("IsNonFailure(ErrWouldBlock): got false, want true")
	}
	if !refq.IsSemantic(refq.ErrWouldBlock) {
		t.Fatalf("IsSemantic(ErrWouldBlock): got false, want true")
	}
	if refq.IsWouldBlock(refq.ErrInvalidTimeout) {
		t.Fatalf("IsWouldBlock(ErrInvalidTimeout): got true, want false")
	}
	if refq.IsNonFailure(refq.ErrInvalidTimeout) {
		t.Fatalf("IsNonFailure(ErrInvalidTimeout): got true, want false")
	}
}
