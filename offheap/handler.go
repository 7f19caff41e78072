package offheap

import (
	"context"

	"github.com/momentics/boundedpool/handler"
)

// Handler allocates and releases fixed-capacity Region resources. The zero
// value is not usable; construct with NewMmapHandler (platform-specific
// backend, see mmap_linux.go / mmap_windows.go) or NewHeapHandler.
type Handler struct {
	alloc   func(capacity uint64) (*Region, error)
	release func(r *Region)
}

// NewHeapHandler returns a handler.Handler backed by plain Go heap
// allocation. It never fails and is the handler of choice for tests and
// platforms without a dedicated off-heap backend.
func NewHeapHandler() *Handler {
	return &Handler{
		alloc:   func(capacity uint64) (*Region, error) { return newHeapRegion(capacity), nil },
		release: func(r *Region) {},
	}
}

// Create implements handler.Handler.
func (h *Handler) Create(_ context.Context, capacity uint64) (handler.Resource, error) {
	r, err := h.alloc(capacity)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Destroy implements handler.Handler.
func (h *Handler) Destroy(res handler.Resource) {
	r, ok := res.(*Region)
	if !ok || r == nil {
		return
	}
	h.release(r)
}

// CapacityOf implements handler.Handler.
func (h *Handler) CapacityOf(res handler.Resource) uint64 {
	r, ok := res.(*Region)
	if !ok || r == nil {
		return 0
	}
	return r.capacity
}

// Setup implements handler.Handler: resets the cursor to 0 on every
// acquire, matching "zero a cursor" from the resource-handler contract.
func (h *Handler) Setup(res handler.Resource, _ uint64, _ bool) {
	r, ok := res.(*Region)
	if !ok || r == nil {
		return
	}
	r.cursor.Store(0)
}

// Cleanup implements handler.Handler: zeroes the cursor so a re-pooled
// region never leaks the previous client's write position.
func (h *Handler) Cleanup(res handler.Resource, _ bool) {
	r, ok := res.(*Region)
	if !ok || r == nil {
		return
	}
	r.cursor.Store(0)
}

var _ handler.Handler = (*Handler)(nil)
