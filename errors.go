// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refq

import (
	"context"
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates no reference is available right now.
//
// For Poll: the queue is empty
// For RemoveTimeout: the wait window elapsed with the queue still empty
// For Processor.Submit: the pending list is full
//
// ErrWouldBlock is a control flow signal, not a failure. Absence of a
// delivered reference is a normal outcome.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrInvalidTimeout is returned by RemoveTimeout for a negative timeout.
var ErrInvalidTimeout = errors.New("refq: timeout must be >= 0")

// ErrInterrupted is returned by a blocked Remove when its context ends.
//
// The returned error also wraps the context cause, so both
//
//	errors.Is(err, refq.ErrInterrupted)
//	errors.Is(err, context.Canceled)
//
// hold for a cancelled wait.
var ErrInterrupted = errors.New("refq: interrupted")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil or ErrWouldBlock.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// IsInterrupted reports whether err came from an interrupted wait.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

func interrupted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
}
