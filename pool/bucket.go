// File: pool/bucket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A bucket is one size class: a LIFO free-list of idle resources that all
// report exactly entryCapacity from the handler, plus the pool-wide
// pooled-bytes accounting the free-list mutates. Grounded on
// pool/slab_pool.go and pool/base_bufferpool.go's Get/Put shape, reworked
// from a bounded channel into an explicit slice stack so LIFO order (cache
// warmth, spec.md §4.C) holds exactly under concurrent drain, which a
// buffered-channel "LIFO by convention" cannot guarantee.

package pool

import (
	"context"

	"github.com/momentics/boundedpool/handler"
)

// bucket is created lazily on first demand for its index and lives until
// Pool.Close. All methods assume the caller holds the owning Pool's lock.
type bucket struct {
	entryCapacity uint64
	free          []handler.Resource
	h             handler.Handler
	onPooledDelta func(delta int64) // credits/debits the pool's pooled_bytes counter
}

func newBucket(entryCapacity uint64, h handler.Handler, onPooledDelta func(int64)) *bucket {
	return &bucket{entryCapacity: entryCapacity, h: h, onPooledDelta: onPooledDelta}
}

// acquire pops the most recently released resource, or creates one when
// mayCreate is set and the free-list is empty. requestedSize must not
// exceed entryCapacity.
func (b *bucket) acquire(ctx context.Context, requestedSize uint64, mayCreate bool) (handler.Resource, error) {
	if requestedSize > b.entryCapacity {
		return nil, errorf(ErrInvalidArgument, "requested size %d exceeds bucket capacity %d", requestedSize, b.entryCapacity)
	}

	if n := len(b.free); n > 0 {
		r := b.free[n-1]
		b.free = b.free[:n-1]
		b.onPooledDelta(-int64(b.entryCapacity))
		b.h.Setup(r, requestedSize, false)
		return r, nil
	}

	if !mayCreate {
		return nil, nil
	}

	r, err := b.h.Create(ctx, b.entryCapacity)
	if err != nil {
		return nil, newHandlerFailure(b.entryCapacity, err)
	}
	b.h.Setup(r, requestedSize, true)
	return r, nil
}

// release either re-pools r (mayPool true) or destroys it immediately.
// Reports whether r ended up pooled.
func (b *bucket) release(r handler.Resource, mayPool bool) bool {
	if !mayPool {
		b.h.Cleanup(r, true)
		b.h.Destroy(r)
		return false
	}
	b.h.Cleanup(r, false)
	b.free = append(b.free, r)
	b.onPooledDelta(int64(b.entryCapacity))
	return true
}

// clear destroys idle entries until at least minBytesToRelease bytes have
// been reclaimed (or the free-list is exhausted), and returns the bytes
// actually released. pooled_bytes is debited per-entry before Destroy runs
// so a panicking handler never leaves pooled_bytes overstated.
func (b *bucket) clear(minBytesToRelease uint64) uint64 {
	var released uint64
	for released < minBytesToRelease && len(b.free) > 0 {
		n := len(b.free)
		r := b.free[n-1]
		b.free = b.free[:n-1]
		b.onPooledDelta(-int64(b.entryCapacity))
		released += b.entryCapacity
		b.h.Destroy(r)
	}
	return released
}

// idleBytes reports bytes currently resident on this bucket's free-list.
func (b *bucket) idleBytes() uint64 {
	return uint64(len(b.free)) * b.entryCapacity
}
