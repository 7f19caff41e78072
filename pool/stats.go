// File: pool/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stats adapts control/metrics.go's MetricsRegistry shape and
// api.BufferPoolStats's alloc/free counters into a single typed snapshot
// returned by Pool.Stats().

package pool

// Stats is a point-in-time observability snapshot, taken under the pool
// lock (spec.md §4.E "Observability getters").
type Stats struct {
	TotalCapacity     uint64
	PoolableCapacity  uint64
	AvailableCapacity uint64
	UnusedCapacity    uint64
	PooledBytes       uint64
	Queued            int

	// TotalAlloc counts resources created by the handler, TotalFree counts
	// Release calls (re-pooled or destroyed), and InUse is the number of
	// bytes currently held by clients. All three are aggregates; nothing
	// is tracked per resource.
	TotalAlloc uint64
	TotalFree  uint64
	InUse      uint64
}
