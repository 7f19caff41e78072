// File: pool/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument covers negative/out-of-range sizes and indices,
	// requested sizes exceeding total capacity, and a misbehaving
	// adjustAllocationSize hook.
	ErrInvalidArgument = errors.New("pool: invalid argument")

	// ErrIllegalState is returned when Acquire is called on a closed pool,
	// or when a blocked acquire observes a concurrent Close.
	ErrIllegalState = errors.New("pool: illegal state")

	// ErrTimeout is returned when a bounded wait elapses before enough
	// capacity could be reserved.
	ErrTimeout = errors.New("pool: acquire timed out")

	// ErrInterrupted is returned when the caller's context is cancelled
	// while Acquire is blocked.
	ErrInterrupted = errors.New("pool: acquire interrupted")
)

// HandlerFailure wraps an error returned by a handler.Handler's Create,
// annotated with the size class that failed. The pool has already reverted
// its own accounting by the time this error reaches the caller.
type HandlerFailure struct {
	Capacity uint64
	cause    error
}

func (e *HandlerFailure) Error() string {
	return errors.Wrapf(e.cause, "pool: handler create failed for capacity %d", e.Capacity).Error()
}

func (e *HandlerFailure) Unwrap() error { return e.cause }

func newHandlerFailure(capacity uint64, cause error) error {
	return &HandlerFailure{Capacity: capacity, cause: cause}
}

// InvariantError is panicked, never returned, when the pool's own
// accounting would otherwise violate a global invariant (§3). This
// indicates a bug in the pool or in a handler's CapacityOf contract, and
// per design is fatal rather than recoverable.
type InvariantError struct {
	msg string
}

func (e *InvariantError) Error() string { return "pool: invariant violated: " + e.msg }

func invariantViolation(msg string) {
	panic(&InvariantError{msg: msg})
}

// errorf wraps sentinel with a formatted message via pkg/errors, preserving
// errors.Is/errors.Cause compatibility.
func errorf(sentinel error, format string, args ...any) error {
	return errors.Wrapf(sentinel, format, args...)
}
