package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/boundedpool/offheap"
)

func newTestBucket(entryCapacity uint64) (*bucket, *uint64) {
	var pooled uint64
	h := offheap.NewHeapHandler()
	b := newBucket(entryCapacity, h, func(delta int64) {
		if delta < 0 {
			pooled -= uint64(-delta)
		} else {
			pooled += uint64(delta)
		}
	})
	return b, &pooled
}

func TestBucketAcquireRejectsOversizedRequest(t *testing.T) {
	b, _ := newTestBucket(128)
	_, err := b.acquire(context.Background(), 256, true)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBucketAcquireCreatesWhenEmptyAndMayCreate(t *testing.T) {
	b, pooled := newTestBucket(128)
	r, err := b.acquire(context.Background(), 64, true)
	require.NoError(t, err)
	require.NotNil(t, r)
	require.EqualValues(t, 0, *pooled)
}

func TestBucketAcquireReturnsNilWhenEmptyAndMayNotCreate(t *testing.T) {
	b, _ := newTestBucket(128)
	r, err := b.acquire(context.Background(), 64, false)
	require.NoError(t, err)
	require.Nil(t, r)
}

func TestBucketReleaseThenAcquireIsLIFOAndPooledBytesTrack(t *testing.T) {
	b, pooled := newTestBucket(128)
	r1, err := b.acquire(context.Background(), 128, true)
	require.NoError(t, err)
	r2, err := b.acquire(context.Background(), 128, true)
	require.NoError(t, err)

	pooledNow := b.release(r1, true)
	require.True(t, pooledNow)
	require.EqualValues(t, 128, *pooled)
	pooledNow = b.release(r2, true)
	require.True(t, pooledNow)
	require.EqualValues(t, 256, *pooled)

	// LIFO: r2 was released last, so it comes back first.
	got, err := b.acquire(context.Background(), 100, false)
	require.NoError(t, err)
	require.Same(t, r2, got)
	require.EqualValues(t, 128, *pooled)
}

func TestBucketReleaseNonPoolableDestroysImmediately(t *testing.T) {
	b, pooled := newTestBucket(128)
	r, err := b.acquire(context.Background(), 128, true)
	require.NoError(t, err)

	pooledNow := b.release(r, false)
	require.False(t, pooledNow)
	require.EqualValues(t, 0, *pooled)

	got, err := b.acquire(context.Background(), 64, false)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestBucketClearStopsOnceMinBytesReleased(t *testing.T) {
	b, pooled := newTestBucket(64)
	var rs []interface{}
	for i := 0; i < 4; i++ {
		r, err := b.acquire(context.Background(), 64, true)
		require.NoError(t, err)
		rs = append(rs, r)
	}
	for _, r := range rs {
		b.release(r, true)
	}
	require.EqualValues(t, 256, *pooled)

	released := b.clear(100)
	require.EqualValues(t, 128, released) // two entries of 64 cover >= 100
	require.EqualValues(t, 128, *pooled)
	require.EqualValues(t, 128, b.idleBytes())
}

func TestBucketClearDrainsEverythingWhenAskedForMoreThanAvailable(t *testing.T) {
	b, pooled := newTestBucket(64)
	r, err := b.acquire(context.Background(), 64, true)
	require.NoError(t, err)
	b.release(r, true)

	released := b.clear(1000)
	require.EqualValues(t, 64, released)
	require.EqualValues(t, 0, *pooled)
	require.EqualValues(t, 0, b.idleBytes())
}
