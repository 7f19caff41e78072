// File: cmd/poolbench/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// poolbench drives a boundedpool.Pool with a configurable number of
// concurrent acquire/release workers and prints periodic stats, in the
// same flag-driven, signal-terminated shape as
// examples/lowlevel/echo/main.go.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/momentics/boundedpool/offheap"
	"github.com/momentics/boundedpool/pool"
	"github.com/momentics/boundedpool/sizer"
)

func main() {
	total := flag.Uint64("total", 64<<20, "total pool capacity in bytes")
	poolable := flag.Uint64("poolable", 0, "poolable capacity ceiling in bytes (0 = same as total)")
	workers := flag.Int("workers", 8, "concurrent acquire/release workers")
	minSize := flag.Uint64("min-size", 4<<10, "minimum request size in bytes")
	maxSize := flag.Uint64("max-size", 256<<10, "maximum request size in bytes")
	holdMillis := flag.Int("hold-ms", 5, "milliseconds each worker holds a resource before releasing")
	acquireTimeout := flag.Duration("acquire-timeout", 2*time.Second, "per-acquire timeout (0 = wait indefinitely)")
	semaphoreLimit := flag.Int64("semaphore-limit", 0, "if > 0, wrap each acquire's wait policy in NewSemaphoreWaitPolicy with this limit (one semaphore per acquire call; waiters are not capped across workers)")
	mmap := flag.Bool("mmap", false, "back the pool with mmap/VirtualAlloc regions instead of plain heap slices")
	duration := flag.Duration("duration", 10*time.Second, "how long to run before shutting down (0 = run until signalled)")
	flag.Parse()

	if *poolable == 0 {
		*poolable = *total
	}

	h := offheap.NewHeapHandler()
	if *mmap {
		h = offheap.NewMmapHandler()
	}

	s, err := sizer.DefaultSizer(*poolable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sizer.DefaultSizer: %v\n", err)
		os.Exit(1)
	}

	p, err := pool.New(
		pool.WithTotalCapacity(*total),
		pool.WithPoolableCapacity(*poolable),
		pool.WithBucketSizer(s),
		pool.WithHandler(h),
		pool.WithLogger(pool.NewStdLogAdapter(log.Default())),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool.New: %v\n", err)
		os.Exit(1)
	}

	// newPolicy builds a fresh WaitPolicy for a single acquire call.
	// boundedWait carries per-call state (remaining time, a latched
	// timeout flag) that must not survive past the acquire it was built
	// for — sharing one instance across every worker for the whole run
	// would let the first timeout permanently starve every later acquire.
	newPolicy := func() pool.WaitPolicy {
		var wp pool.WaitPolicy = pool.NewUnlimitedWait()
		if *acquireTimeout > 0 {
			wp = pool.NewBoundedWait(*acquireTimeout)
		}
		if *semaphoreLimit > 0 {
			wp = pool.NewSemaphoreWaitPolicy(wp, *semaphoreLimit)
		}
		return wp
	}

	fmt.Printf("Starting poolbench: total=%d poolable=%d workers=%d mmap=%v\n",
		*total, *poolable, *workers, *mmap)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var acquired, failed, released int64

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(int64(id) + 1))
			for ctx.Err() == nil {
				size := *minSize
				if *maxSize > *minSize {
					size += uint64(rnd.Int63n(int64(*maxSize - *minSize)))
				}
				r, err := p.AcquireWithPolicy(ctx, size, newPolicy())
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				atomic.AddInt64(&acquired, 1)
				time.Sleep(time.Duration(*holdMillis) * time.Millisecond)
				p.Release(r)
				atomic.AddInt64(&released, 1)
			}
		}(i)
	}

	statsDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				st := p.Stats()
				fmt.Printf("[%s] acquired=%d failed=%d released=%d queued=%d available=%d pooled=%d in_use=%d\n",
					time.Now().Format(time.Stamp),
					atomic.LoadInt64(&acquired), atomic.LoadInt64(&failed), atomic.LoadInt64(&released),
					st.Queued, st.AvailableCapacity, st.PooledBytes, st.InUse)
			case <-statsDone:
				return
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if *duration > 0 {
		select {
		case <-time.After(*duration):
		case <-sigCh:
		}
	} else {
		<-sigCh
	}

	fmt.Println("Shutting down poolbench...")
	cancel()
	wg.Wait()
	close(statsDone)

	if err := p.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "pool.Close: %v\n", err)
		os.Exit(1)
	}
	final := p.Stats()
	fmt.Printf("Final stats: acquired=%d failed=%d released=%d total_alloc=%d total_free=%d\n",
		atomic.LoadInt64(&acquired), atomic.LoadInt64(&failed), atomic.LoadInt64(&released),
		final.TotalAlloc, final.TotalFree)
}
