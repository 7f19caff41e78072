// File: pool/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool is the lock-protected heart of the allocator: capacity accounting,
// size-class routing to buckets, the blocking acquire loop, release,
// reclaim and close. Grounded on pool/bufferpool.go's
// BufferPoolManager/nodeClassPools routing shape, generalized from
// NUMA-node keying to the bounded single-domain accounting spec.md
// describes, and on pool/slab_pool.go's counters for Stats.

package pool

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/momentics/boundedpool/handler"
	"github.com/momentics/boundedpool/sizer"
)

// Pool is a bounded, size-classed resource pool. The zero value is not
// usable; construct with New.
type Pool struct {
	mu sync.Mutex

	totalCapacity    uint64
	poolableCapacity uint64
	sizerFn          sizerIface
	handler          handler.Handler
	widen            WidenStrategy
	logger           Logger
	adjustSize       func(uint64) uint64
	mayPool          func(capacity, pooledBytes, poolableCapacity uint64) bool

	buckets     map[uint64]*bucket
	bucketsDesc []*bucket // sorted by entryCapacity, largest first

	notPooledCapacity uint64
	pooledBytes       uint64

	waiters *waiterQueue
	closed  bool

	totalAlloc uint64
	totalFree  uint64
}

// sizerIface is the narrow surface of sizer.Sizer this package consumes,
// named locally so pool doesn't need to import sizer in its exported
// signatures beyond the Option constructors.
type sizerIface interface {
	SizeToIndex(size uint64) (uint64, error)
	IndexToCapacity(index uint64) (uint64, error)
}

// New constructs a Pool from the given options. WithTotalCapacity and
// WithHandler are required.
func New(opts ...Option) (*Pool, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.totalCapacity == 0 {
		return nil, errorf(ErrInvalidArgument, "WithTotalCapacity is required")
	}
	if cfg.handler == nil {
		return nil, errorf(ErrInvalidArgument, "WithHandler is required")
	}
	if cfg.poolableCapacity == 0 {
		cfg.poolableCapacity = cfg.totalCapacity
	}
	if cfg.poolableCapacity > cfg.totalCapacity {
		return nil, errorf(ErrInvalidArgument, "poolable capacity %d exceeds total capacity %d", cfg.poolableCapacity, cfg.totalCapacity)
	}
	if cfg.sizer == nil {
		s, err := sizer.DefaultSizer(cfg.poolableCapacity)
		if err != nil {
			return nil, err
		}
		cfg.sizer = s
	}

	return &Pool{
		totalCapacity:     cfg.totalCapacity,
		poolableCapacity:  cfg.poolableCapacity,
		sizerFn:           cfg.sizer,
		handler:           cfg.handler,
		widen:             cfg.widen,
		logger:            cfg.logger,
		adjustSize:        cfg.adjustSize,
		mayPool:           cfg.mayPool,
		buckets:           make(map[uint64]*bucket),
		notPooledCapacity: cfg.totalCapacity,
		waiters:           newWaiterQueue(),
	}, nil
}

// Acquire reserves a resource of at least size bytes, blocking
// indefinitely until enough capacity can be found or reclaimed.
func (p *Pool) Acquire(ctx context.Context, size uint64) (handler.Resource, error) {
	return p.AcquireWithPolicy(ctx, size, newUnlimitedWait())
}

// AcquireWait reserves a resource of at least size bytes, giving up with
// ErrTimeout if timeout elapses before enough capacity is available. A
// zero or negative timeout waits indefinitely.
func (p *Pool) AcquireWait(ctx context.Context, size uint64, timeout time.Duration) (handler.Resource, error) {
	if timeout <= 0 {
		return p.Acquire(ctx, size)
	}
	return p.AcquireWithPolicy(ctx, size, newBoundedWait(timeout))
}

// AcquireWithPolicy is the most general entry point, accepting any
// WaitPolicy — including NewSemaphoreWaitPolicy for admission-controlled
// waiting.
func (p *Pool) AcquireWithPolicy(ctx context.Context, requested uint64, policy WaitPolicy) (handler.Resource, error) {
	if requested > p.totalCapacity {
		return nil, errorf(ErrInvalidArgument, "requested size %d exceeds total capacity %d", requested, p.totalCapacity)
	}
	size := p.adjustSize(requested)
	if size < requested {
		return nil, errorf(ErrInvalidArgument, "adjustAllocationSize returned %d < requested %d", size, requested)
	}
	if size > p.totalCapacity {
		return nil, errorf(ErrInvalidArgument, "adjusted size %d exceeds total capacity %d", size, p.totalCapacity)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrIllegalState
	}

	idx, err := p.sizerFn.SizeToIndex(size)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	b := p.getOrCreateBucketLocked(idx)
	capCls := b.entryCapacity
	if capCls < size {
		p.mu.Unlock()
		return nil, errorf(ErrInvalidArgument, "sizer produced bucket capacity %d smaller than requested size %d", capCls, size)
	}

	// Fast path: free-list hit.
	if r, ferr := b.acquire(ctx, requested, false); ferr != nil {
		p.mu.Unlock()
		return nil, ferr
	} else if r != nil {
		p.signalHeadLocked()
		p.mu.Unlock()
		p.logger.Event("acquire_hit", map[string]any{"size": requested, "bucket": capCls})
		return r, nil
	}

	effectiveSize := size
	if p.widen == EnforcePoolableCapacity || p.notPooledCapacity+p.pooledBytes >= capCls {
		effectiveSize = capCls
	}

	available := p.notPooledCapacity + p.pooledBytes
	if available >= effectiveSize {
		p.reclaimLocked(effectiveSize)
		p.notPooledCapacity -= effectiveSize
	} else if r, werr := p.blockingReserveLocked(ctx, requested, b, effectiveSize, policy); werr != nil {
		p.mu.Unlock()
		return nil, werr
	} else if r != nil {
		// Satisfied entirely from a free-list hit discovered while waiting.
		p.signalHeadLocked()
		p.mu.Unlock()
		p.logger.Event("acquire_hit_after_wait", map[string]any{"size": requested})
		return r, nil
	}

	p.signalHeadLocked()
	p.mu.Unlock()

	r, cerr := p.handler.Create(ctx, effectiveSize)
	if cerr != nil {
		p.mu.Lock()
		p.notPooledCapacity += effectiveSize
		p.signalHeadForceLocked()
		p.mu.Unlock()
		return nil, newHandlerFailure(effectiveSize, cerr)
	}
	p.handler.Setup(r, requested, true)

	p.mu.Lock()
	p.totalAlloc++
	p.mu.Unlock()

	p.logger.Event("acquire_created", map[string]any{"size": requested, "bucket": effectiveSize})
	return r, nil
}

// blockingReserveLocked runs the blocking loop of spec.md §4.E step 5. The
// caller holds p.mu. It returns (resource, nil) if a free-list hit
// satisfied the request entirely during the wait, (nil, nil) once
// effectiveSize bytes have been reserved into notPooledCapacity for the
// caller to create after unlock, or (nil, err) on timeout/interruption/close
// — in which case accounting has already been reverted and the waiter
// removed.
func (p *Pool) blockingReserveLocked(ctx context.Context, requested uint64, b *bucket, effectiveSize uint64, policy WaitPolicy) (handler.Resource, error) {
	var wp waitPolicy = policy
	w := p.waiters.pushBack()
	var accumulated uint64

	revert := func() {
		p.notPooledCapacity += accumulated
		p.waiters.remove(w)
	}

	for {
		p.mu.Unlock()
		more, werr := wp.awaitNext(ctx, w)
		p.mu.Lock()

		if werr != nil {
			revert()
			return nil, werr
		}
		if p.closed {
			revert()
			return nil, ErrIllegalState
		}
		if terr := wp.checkTimeElapsed(); terr != nil {
			revert()
			return nil, terr
		}
		if !more {
			revert()
			return nil, ErrTimeout
		}

		if accumulated == 0 {
			if r, ferr := b.acquire(ctx, requested, false); ferr != nil {
				revert()
				return nil, ferr
			} else if r != nil {
				p.waiters.remove(w)
				return r, nil
			}
		}

		shortage := effectiveSize - accumulated
		p.reclaimLocked(p.notPooledCapacity + shortage)
		take := min(shortage, p.notPooledCapacity)
		p.notPooledCapacity -= take
		accumulated += take

		if accumulated >= effectiveSize {
			p.waiters.remove(w)
			return nil, nil
		}
	}
}

// Release returns r to the pool: re-pooling it when the bucket's poolable
// ceiling allows, otherwise destroying it and returning its capacity to
// notPooledCapacity. Releasing a nil resource is a no-op.
func (p *Pool) Release(r handler.Resource) {
	if r == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	capacity := p.handler.CapacityOf(r)

	if p.closed {
		// Buckets were torn down by Close; never re-pool, just return
		// storage to the OS via the handler.
		p.handler.Cleanup(r, true)
		p.handler.Destroy(r)
		p.totalFree++
		return
	}

	idx, err := p.sizerFn.SizeToIndex(capacity)
	if err != nil {
		invariantViolation("release: sizer rejected a capacity it previously accepted")
	}
	b := p.getOrCreateBucketLocked(idx)

	mayPool := capacity == b.entryCapacity && p.mayPool(capacity, p.pooledBytes, p.poolableCapacity)
	if mayPool {
		b.release(r, true)
	} else {
		b.release(r, false)
		p.notPooledCapacity += capacity
	}
	p.totalFree++
	p.signalHeadForceLocked()
	p.logger.Event("release", map[string]any{"capacity": capacity, "pooled": mayPool})
}

// Close marks the pool closed, wakes every queued waiter (which will all
// observe ErrIllegalState), and destroys every pooled resource, returning
// their storage via the handler. Acquires after Close fail with
// ErrIllegalState; Releases remain valid but never re-pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, w := range p.waiters.all() {
		w.signal()
	}
	for _, b := range p.bucketsDesc {
		released := b.clear(p.totalCapacity)
		p.notPooledCapacity += released
	}
	p.buckets = nil
	p.bucketsDesc = nil
	p.logger.Event("close", nil)
	return nil
}

// Stats returns a point-in-time observability snapshot.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	inUse := p.totalCapacity - p.notPooledCapacity - p.pooledBytes
	return Stats{
		TotalCapacity:     p.totalCapacity,
		PoolableCapacity:  p.poolableCapacity,
		AvailableCapacity: p.notPooledCapacity + p.pooledBytes,
		UnusedCapacity:    p.notPooledCapacity,
		PooledBytes:       p.pooledBytes,
		Queued:            p.waiters.len(),
		TotalAlloc:        p.totalAlloc,
		TotalFree:         p.totalFree,
		InUse:             inUse,
	}
}

// AvailableCapacity is notPooledCapacity + pooledBytes.
func (p *Pool) AvailableCapacity() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notPooledCapacity + p.pooledBytes
}

// UnusedCapacity is the pool's free reservoir outside any bucket.
func (p *Pool) UnusedCapacity() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notPooledCapacity
}

// Queued reports the number of blocked waiters.
func (p *Pool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waiters.len()
}

// TotalCapacity is the immutable configured ceiling.
func (p *Pool) TotalCapacity() uint64 { return p.totalCapacity }

// PoolableCapacity is the immutable configured pooled-byte ceiling.
func (p *Pool) PoolableCapacity() uint64 { return p.poolableCapacity }

func (p *Pool) getOrCreateBucketLocked(idx uint64) *bucket {
	if b, ok := p.buckets[idx]; ok {
		return b
	}
	capCls, err := p.sizerFn.IndexToCapacity(idx)
	if err != nil {
		invariantViolation("getOrCreateBucket: sizer rejected an index it previously accepted")
	}
	b := newBucket(capCls, p.handler, func(delta int64) {
		if delta < 0 && uint64(-delta) > p.pooledBytes {
			invariantViolation("pooledBytes would underflow")
		}
		if delta < 0 {
			p.pooledBytes -= uint64(-delta)
		} else {
			p.pooledBytes += uint64(delta)
		}
	})
	p.buckets[idx] = b
	p.insertBucketDescLocked(b)
	return b
}

func (p *Pool) insertBucketDescLocked(b *bucket) {
	i := sort.Search(len(p.bucketsDesc), func(i int) bool {
		return p.bucketsDesc[i].entryCapacity <= b.entryCapacity
	})
	p.bucketsDesc = append(p.bucketsDesc, nil)
	copy(p.bucketsDesc[i+1:], p.bucketsDesc[i:])
	p.bucketsDesc[i] = b
}

// reclaimLocked destroys pooled entries, largest bucket first, until
// notPooledCapacity reaches required or every bucket is drained.
func (p *Pool) reclaimLocked(required uint64) {
	if p.notPooledCapacity >= required {
		return
	}
	var reclaimed uint64
	for _, b := range p.bucketsDesc {
		if p.notPooledCapacity >= required {
			break
		}
		shortage := required - p.notPooledCapacity
		released := b.clear(shortage)
		p.notPooledCapacity += released
		reclaimed += released
	}
	if reclaimed > 0 {
		p.logger.Event("reclaim", map[string]any{"bytes": reclaimed})
	}
}

func (p *Pool) signalHeadLocked() {
	if p.notPooledCapacity == 0 && !p.anyBucketNonEmptyLocked() {
		return
	}
	if w := p.waiters.front(); w != nil {
		w.signal()
	}
}

func (p *Pool) signalHeadForceLocked() {
	if w := p.waiters.front(); w != nil {
		w.signal()
	}
}

func (p *Pool) anyBucketNonEmptyLocked() bool {
	for _, b := range p.bucketsDesc {
		if len(b.free) > 0 {
			return true
		}
	}
	return false
}
