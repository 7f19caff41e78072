//go:build !linux && !windows

// File: offheap/mmap_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platforms without a dedicated off-heap backend fall back to the heap
// handler; NewMmapHandler is kept as an alias so callers don't need build
// tags of their own.

package offheap

// NewMmapHandler falls back to plain heap allocation on unsupported
// platforms.
func NewMmapHandler() *Handler {
	return NewHeapHandler()
}
