//go:build windows

// File: offheap/mmap_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows off-heap backend: VirtualAlloc/VirtualFree regions, falling back
// to the Go heap on failure (generalizes
// core/buffer/bufferpool_windows.go beyond NUMA-pinned large pages).

package offheap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// NewMmapHandler returns a Handler backed by VirtualAlloc regions.
func NewMmapHandler() *Handler {
	return &Handler{
		alloc:   virtualAlloc,
		release: virtualRelease,
	}
}

func virtualAlloc(capacity uint64) (*Region, error) {
	if capacity == 0 {
		return &Region{data: nil, capacity: 0}, nil
	}
	addr, err := windows.VirtualAlloc(0, uintptr(capacity),
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil || addr == 0 {
		return &Region{data: make([]byte, capacity), capacity: capacity}, nil
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), capacity)
	return &Region{data: data, capacity: capacity}, nil
}

func virtualRelease(r *Region) {
	if r == nil || len(r.data) == 0 {
		return
	}
	addr := uintptr(unsafe.Pointer(&r.data[0]))
	_ = windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}
