// File: pool/log.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Logger is an optional event sink for acquire/release/reclaim/close
// activity, mirroring the interface-seam-with-optional-backend shape of
// this lineage's tracing contract (api.Tracer / api.Span): the pool never
// requires a real backend, only a place to plug one in.

package pool

// Logger receives pool lifecycle events. The default is a no-op; use
// NewStdLogAdapter to wire diagnostics to a *log.Logger.
type Logger interface {
	Event(name string, fields map[string]any)
}

type noopLogger struct{}

func (noopLogger) Event(string, map[string]any) {}
