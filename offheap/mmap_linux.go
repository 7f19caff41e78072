//go:build linux

// File: offheap/mmap_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux off-heap backend: anonymous mmap regions, falling back to the Go
// heap when the kernel refuses the mapping (generalizes
// core/buffer/bufferpool_linux.go beyond hugepage-only allocation).

package offheap

import "golang.org/x/sys/unix"

// NewMmapHandler returns a Handler backed by anonymous mmap regions.
func NewMmapHandler() *Handler {
	return &Handler{
		alloc:   mmapAlloc,
		release: mmapRelease,
	}
}

func mmapAlloc(capacity uint64) (*Region, error) {
	if capacity == 0 {
		return &Region{data: nil, capacity: 0}, nil
	}
	data, err := unix.Mmap(-1, 0, int(capacity),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANONYMOUS|unix.MAP_PRIVATE)
	if err != nil {
		return &Region{data: make([]byte, capacity), capacity: capacity}, nil
	}
	return &Region{data: data, capacity: capacity}, nil
}

func mmapRelease(r *Region) {
	if r == nil || len(r.data) == 0 {
		return
	}
	_ = unix.Munmap(r.data)
}
