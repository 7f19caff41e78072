package pool_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/boundedpool/handler"
	"github.com/momentics/boundedpool/offheap"
	"github.com/momentics/boundedpool/pool"
	"github.com/momentics/boundedpool/sizer"
)

// TestS1LinearAcquireReleaseConserves exercises spec scenario S1.
func TestS1LinearAcquireReleaseConserves(t *testing.T) {
	s, err := sizer.Linear(4)
	require.NoError(t, err)
	p, err := pool.New(
		pool.WithTotalCapacity(6),
		pool.WithPoolableCapacity(6),
		pool.WithBucketSizer(s),
		pool.WithHandler(offheap.NewHeapHandler()),
	)
	require.NoError(t, err)

	ctx := context.Background()
	r1, err := p.Acquire(ctx, 4)
	require.NoError(t, err)
	r2, err := p.Acquire(ctx, 2)
	require.NoError(t, err)
	require.EqualValues(t, 0, p.AvailableCapacity())

	p.Release(r1)
	p.Release(r2)
	require.EqualValues(t, 6, p.AvailableCapacity())

	require.NoError(t, p.Close())
}

// TestS3BlockingReacquiresSamePooledResource exercises spec scenario S3.
func TestS3BlockingReacquiresSamePooledResource(t *testing.T) {
	s, err := sizer.Linear(1024)
	require.NoError(t, err)
	p, err := pool.New(
		pool.WithTotalCapacity(1024),
		pool.WithBucketSizer(s),
		pool.WithHandler(offheap.NewHeapHandler()),
	)
	require.NoError(t, err)

	ctx := context.Background()
	r1, err := p.Acquire(ctx, 1024)
	require.NoError(t, err)

	secondDone := make(chan handler.Resource, 1)
	secondStarted := make(chan struct{})
	go func() {
		close(secondStarted)
		r2, err := p.Acquire(ctx, 1024)
		require.NoError(t, err)
		secondDone <- r2
	}()

	<-secondStarted
	// Give the second acquirer a moment to actually block on the queue.
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, p.Queued())

	p.Release(r1)

	select {
	case r2 := <-secondDone:
		require.Same(t, r1, r2)
	case <-time.After(2 * time.Second):
		t.Fatal("second acquire never unblocked")
	}
}

// TestS4TimeoutLeavesCapacityUnchanged exercises spec scenario S4.
func TestS4TimeoutLeavesCapacityUnchanged(t *testing.T) {
	s, err := sizer.Linear(1024)
	require.NoError(t, err)
	p, err := pool.New(
		pool.WithTotalCapacity(1024),
		pool.WithBucketSizer(s),
		pool.WithHandler(offheap.NewHeapHandler()),
	)
	require.NoError(t, err)

	ctx := context.Background()
	r1, err := p.Acquire(ctx, 1024)
	require.NoError(t, err)

	before := p.AvailableCapacity()

	_, err = p.AcquireWait(ctx, 1024, 10*time.Millisecond)
	require.ErrorIs(t, err, pool.ErrTimeout)
	require.Equal(t, before, p.AvailableCapacity())

	p.Release(r1)
	require.EqualValues(t, 1024, p.AvailableCapacity())
}

// TestS5ReclaimEvictsLargestBucketsFirst exercises spec scenario S5.
func TestS5ReclaimEvictsLargestBucketsFirst(t *testing.T) {
	base, err := sizer.Exponential(2)
	require.NoError(t, err)
	s, err := sizer.WithMinCapacity(base, 512)
	require.NoError(t, err)

	p, err := pool.New(
		pool.WithTotalCapacity(4096),
		pool.WithPoolableCapacity(4096),
		pool.WithBucketSizer(s),
		pool.WithHandler(offheap.NewHeapHandler()),
	)
	require.NoError(t, err)

	ctx := context.Background()
	for _, size := range []uint64{512, 1024, 2048} {
		r, err := p.Acquire(ctx, size)
		require.NoError(t, err)
		p.Release(r)
	}
	require.EqualValues(t, 4096, p.AvailableCapacity())

	r, err := p.Acquire(ctx, 2049)
	require.NoError(t, err)
	region, ok := r.(*offheap.Region)
	require.True(t, ok)
	require.EqualValues(t, 4096, len(region.Bytes()))
	require.EqualValues(t, 0, p.AvailableCapacity())
}

type failingHandler struct{}

var errBoom = errors.New("boom: allocation refused")

func (failingHandler) Create(context.Context, uint64) (handler.Resource, error) {
	return nil, errBoom
}
func (failingHandler) Destroy(handler.Resource)             {}
func (failingHandler) CapacityOf(handler.Resource) uint64   { return 0 }
func (failingHandler) Setup(handler.Resource, uint64, bool) {}
func (failingHandler) Cleanup(handler.Resource, bool)       {}

// TestS6CreateFailurePropagatesAndRestoresCapacity exercises spec scenario S6.
func TestS6CreateFailurePropagatesAndRestoresCapacity(t *testing.T) {
	p, err := pool.New(
		pool.WithTotalCapacity(4096),
		pool.WithHandler(failingHandler{}),
	)
	require.NoError(t, err)

	_, err = p.Acquire(context.Background(), 1024)
	require.Error(t, err)
	var hf *pool.HandlerFailure
	require.ErrorAs(t, err, &hf)
	require.ErrorIs(t, err, errBoom)

	require.EqualValues(t, 4096, p.AvailableCapacity())
}

func TestClosedPoolRejectsAcquire(t *testing.T) {
	p, err := pool.New(
		pool.WithTotalCapacity(1024),
		pool.WithHandler(offheap.NewHeapHandler()),
	)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = p.Acquire(context.Background(), 128)
	require.ErrorIs(t, err, pool.ErrIllegalState)
}

func TestCloseWakesQueuedWaiters(t *testing.T) {
	p, err := pool.New(
		pool.WithTotalCapacity(1024),
		pool.WithHandler(offheap.NewHeapHandler()),
	)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.Acquire(ctx, 1024)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		close(started)
		_, err := p.Acquire(ctx, 1024)
		errCh <- err
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, p.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, pool.ErrIllegalState)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked waiter never woke on close")
	}
}

// TestFIFOFairness verifies property 4: a waiter enqueued strictly before
// another completes first when both requests can only be satisfied one at
// a time.
func TestFIFOFairness(t *testing.T) {
	p, err := pool.New(
		pool.WithTotalCapacity(1024),
		pool.WithHandler(offheap.NewHeapHandler()),
	)
	require.NoError(t, err)

	ctx := context.Background()
	held, err := p.Acquire(ctx, 1024)
	require.NoError(t, err)

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(id int) {
		mu.Lock()
		order = append(order, id)
		mu.Unlock()
	}

	aStarted := make(chan struct{})
	bStarted := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		close(aStarted)
		r, err := p.Acquire(ctx, 1024)
		require.NoError(t, err)
		record(1)
		p.Release(r)
	}()
	<-aStarted
	time.Sleep(10 * time.Millisecond) // ensure A enqueues strictly before B

	go func() {
		defer wg.Done()
		close(bStarted)
		r, err := p.Acquire(ctx, 1024)
		require.NoError(t, err)
		record(2)
		p.Release(r)
	}()
	<-bStarted
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, 2, p.Queued())

	p.Release(held)
	wg.Wait()

	require.Equal(t, []int{1, 2}, order)
}

// TestCeilingNeverExceedsPoolableCapacity verifies property 2.
func TestCeilingNeverExceedsPoolableCapacity(t *testing.T) {
	p, err := pool.New(
		pool.WithTotalCapacity(4096),
		pool.WithPoolableCapacity(1024),
		pool.WithHandler(offheap.NewHeapHandler()),
	)
	require.NoError(t, err)

	ctx := context.Background()
	var resources []handler.Resource
	for i := 0; i < 4; i++ {
		r, err := p.Acquire(ctx, 1024)
		require.NoError(t, err)
		resources = append(resources, r)
	}
	for _, r := range resources {
		p.Release(r)
		require.LessOrEqual(t, p.Stats().PooledBytes, p.PoolableCapacity())
	}
}

func TestReleaseNilIsNoOp(t *testing.T) {
	p, err := pool.New(
		pool.WithTotalCapacity(1024),
		pool.WithHandler(offheap.NewHeapHandler()),
	)
	require.NoError(t, err)
	require.NotPanics(t, func() { p.Release(nil) })
}

func TestAcquireRejectsSizeAboveTotalCapacity(t *testing.T) {
	p, err := pool.New(
		pool.WithTotalCapacity(1024),
		pool.WithHandler(offheap.NewHeapHandler()),
	)
	require.NoError(t, err)
	_, err = p.Acquire(context.Background(), 2048)
	require.ErrorIs(t, err, pool.ErrInvalidArgument)
}

func TestNewRejectsMissingHandler(t *testing.T) {
	_, err := pool.New(pool.WithTotalCapacity(1024))
	require.ErrorIs(t, err, pool.ErrInvalidArgument)
}

func TestNewRejectsPoolableExceedingTotal(t *testing.T) {
	_, err := pool.New(
		pool.WithTotalCapacity(1024),
		pool.WithPoolableCapacity(2048),
		pool.WithHandler(offheap.NewHeapHandler()),
	)
	require.ErrorIs(t, err, pool.ErrInvalidArgument)
}
