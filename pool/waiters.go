// File: pool/waiters.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// FIFO waiter bookkeeping for the blocking acquire path. Each waiter is a
// transient, owned node whose lifetime ends when it leaves Pool.Acquire
// (success, timeout, cancellation, or close) — no heap-allocated condition
// variables per waiter, just a channel the waiter parks on and a ticket
// position maintained in strict FIFO order via eapache/queue.Queue.

package pool

import (
	"github.com/eapache/queue"
)

// waiter is a single blocked acquirer's parking spot.
type waiter struct {
	ticket      uint64
	wake        chan struct{}
	accumulated uint64
}

// waiterQueue is a thin FIFO wrapper around eapache/queue.Queue that also
// supports removing a waiter from an arbitrary position — needed because a
// timed-out or cancelled waiter may not be at the head when it gives up.
type waiterQueue struct {
	q         *queue.Queue
	nextTick  uint64
}

func newWaiterQueue() *waiterQueue {
	return &waiterQueue{q: queue.New()}
}

// pushBack enqueues a new waiter at the tail and returns it.
func (wq *waiterQueue) pushBack() *waiter {
	wq.nextTick++
	w := &waiter{ticket: wq.nextTick, wake: make(chan struct{}, 1)}
	wq.q.Add(w)
	return w
}

// front returns the head waiter without removing it, or nil if empty.
func (wq *waiterQueue) front() *waiter {
	if wq.q.Length() == 0 {
		return nil
	}
	return wq.q.Peek().(*waiter)
}

// popFront removes and returns the head waiter, or nil if empty.
func (wq *waiterQueue) popFront() *waiter {
	if wq.q.Length() == 0 {
		return nil
	}
	return wq.q.Remove().(*waiter)
}

// remove drops w from the queue regardless of its position, preserving the
// relative FIFO order of the remaining waiters.
func (wq *waiterQueue) remove(w *waiter) {
	n := wq.q.Length()
	if n == 0 {
		return
	}
	rebuilt := queue.New()
	for i := 0; i < n; i++ {
		cur := wq.q.Get(i).(*waiter)
		if cur.ticket != w.ticket {
			rebuilt.Add(cur)
		}
	}
	wq.q = rebuilt
}

// len reports the number of queued waiters.
func (wq *waiterQueue) len() int {
	return wq.q.Length()
}

// all returns every waiter currently queued, head first.
func (wq *waiterQueue) all() []*waiter {
	n := wq.q.Length()
	out := make([]*waiter, n)
	for i := 0; i < n; i++ {
		out[i] = wq.q.Get(i).(*waiter)
	}
	return out
}

// signal wakes w exactly once without blocking (wake has capacity 1).
func (w *waiter) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}
