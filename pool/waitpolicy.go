// File: pool/waitpolicy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wait policy encapsulates "wait forever" vs. "wait up to T" semantics.
// Suspension happens on a per-waiter channel rather than a shared
// condition variable (see waiters.go); cancellation propagates through
// ctx exactly as spec.md §4.D describes for the condition-variable
// original.

package pool

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// waitPolicy is consulted only while Pool.Acquire is blocked.
type waitPolicy interface {
	// awaitNext suspends once, returning whether the loop may continue
	// waiting (false after a bounded policy's deadline has elapsed), or an
	// error if ctx was cancelled during the wait.
	awaitNext(ctx context.Context, w *waiter) (bool, error)

	// checkTimeElapsed returns ErrTimeout once a bounded policy's deadline
	// has passed; always nil for an unlimited policy.
	checkTimeElapsed() error
}

type unlimitedWait struct{}

// newUnlimitedWait waits without a deadline.
func newUnlimitedWait() waitPolicy { return unlimitedWait{} }

func (unlimitedWait) awaitNext(ctx context.Context, w *waiter) (bool, error) {
	select {
	case <-w.wake:
		return true, nil
	case <-ctx.Done():
		return false, ErrInterrupted
	}
}

func (unlimitedWait) checkTimeElapsed() error { return nil }

// boundedWait tracks remaining time across repeated iterations of the
// acquire loop, mirroring spec.md §4.D's remaining-time arithmetic.
type boundedWait struct {
	mu        sync.Mutex
	remaining time.Duration
	timedOut  bool
}

// newBoundedWait waits up to total before giving up.
func newBoundedWait(total time.Duration) waitPolicy {
	return &boundedWait{remaining: total}
}

func (b *boundedWait) awaitNext(ctx context.Context, w *waiter) (bool, error) {
	b.mu.Lock()
	remaining := b.remaining
	b.mu.Unlock()
	if remaining <= 0 {
		b.mu.Lock()
		b.timedOut = true
		b.mu.Unlock()
		return false, nil
	}

	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()

	select {
	case <-w.wake:
		b.deduct(time.Since(start))
		return true, nil
	case <-waitCtx.Done():
		b.deduct(time.Since(start))
		if ctx.Err() != nil {
			return false, ErrInterrupted
		}
		b.mu.Lock()
		b.timedOut = true
		b.mu.Unlock()
		return false, nil
	}
}

func (b *boundedWait) deduct(elapsed time.Duration) {
	b.mu.Lock()
	b.remaining -= elapsed
	if b.remaining < 0 {
		b.remaining = 0
	}
	b.mu.Unlock()
}

func (b *boundedWait) checkTimeElapsed() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timedOut {
		return ErrTimeout
	}
	return nil
}

// semaphoreWaitPolicy bounds the number of goroutines concurrently parked
// in the acquire loop via golang.org/x/sync/semaphore, delegating the
// actual wait/timeout arithmetic to inner. Used by cmd/poolbench to
// compare admission-controlled waiting against the plain condition-based
// policies above.
type semaphoreWaitPolicy struct {
	inner waitPolicy
	sem   *semaphore.Weighted
}

// NewSemaphoreWaitPolicy bounds concurrently parked waiters to
// maxConcurrent while delegating wait/timeout semantics to inner.
func NewSemaphoreWaitPolicy(inner WaitPolicy, maxConcurrent int64) WaitPolicy {
	return &semaphoreWaitPolicy{inner: inner, sem: semaphore.NewWeighted(maxConcurrent)}
}

func (s *semaphoreWaitPolicy) awaitNext(ctx context.Context, w *waiter) (bool, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return false, ErrInterrupted
	}
	defer s.sem.Release(1)
	return s.inner.awaitNext(ctx, w)
}

func (s *semaphoreWaitPolicy) checkTimeElapsed() error { return s.inner.checkTimeElapsed() }

// WaitPolicy is the exported handle for a wait policy, passed per call to
// Pool.AcquireWithPolicy. The concrete policies are built with NewUnlimitedWait,
// NewBoundedWait and NewSemaphoreWaitPolicy.
type WaitPolicy interface {
	waitPolicy
}

// NewUnlimitedWait returns an exported handle on the unlimited wait policy.
func NewUnlimitedWait() WaitPolicy { return newUnlimitedWait() }

// NewBoundedWait returns an exported handle on a bounded wait policy.
func NewBoundedWait(total time.Duration) WaitPolicy { return newBoundedWait(total) }
