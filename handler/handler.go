// Package handler defines the pluggable resource lifecycle the pool
// consumes. It is the pool's only extension point: every concrete resource
// type (off-heap mmap region, plain heap slice, device-backed memory) plugs
// in by implementing Handler.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package handler

import "context"

// Resource is any value a Handler produces. The pool never inspects it;
// it only round-trips Resource values between Create, Setup, Cleanup and
// Destroy.
type Resource any

// Handler is the capability set a resource type must provide for pooling.
// Create may block on OS allocation but must never touch pool state;
// Destroy is irreversible; CapacityOf must be pure and stable for a given
// resource; Setup/Cleanup run exactly once per acquire/release.
type Handler interface {
	// Create produces a resource whose reported capacity is exactly
	// capacity. It may fail; on failure the pool guarantees its own
	// accounting is left unmodified.
	Create(ctx context.Context, capacity uint64) (Resource, error)

	// Destroy releases underlying storage. Irreversible.
	Destroy(r Resource)

	// CapacityOf reports the resource's canonical capacity.
	CapacityOf(r Resource) uint64

	// Setup prepares r for a client requesting size bytes. afterCreate is
	// true the first time a freshly created resource is handed out.
	Setup(r Resource, size uint64, afterCreate bool)

	// Cleanup runs once per release. beforeDestroy is true when the pool
	// will destroy r immediately afterwards instead of re-pooling it.
	Cleanup(r Resource, beforeDestroy bool)
}
