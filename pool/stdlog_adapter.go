// File: pool/stdlog_adapter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// No repo in the retrieval pack imports a structured-logging library (no
// zerolog, zap, or logrus anywhere in the corpus); examples/lowlevel/echo
// prints its own diagnostics with plain fmt.Fprintf. This adapter follows
// that stdlib-only precedent, using the standard library's log package for
// a reusable Logger seam instead of reaching outside the corpus.

package pool

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// stdLogLogger adapts *log.Logger to the pool's Logger seam.
type stdLogLogger struct {
	log *log.Logger
}

// NewStdLogAdapter builds a Logger that writes every pool event as a single
// log line through dst (nil selects log.Default()).
func NewStdLogAdapter(dst *log.Logger) Logger {
	if dst == nil {
		dst = log.Default()
	}
	return &stdLogLogger{log: dst}
}

func (s *stdLogLogger) Event(name string, fields map[string]any) {
	if len(fields) == 0 {
		s.log.Printf("pool: %s", name)
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	s.log.Printf("pool: %s %s", name, strings.Join(parts, " "))
}

var _ Logger = (*stdLogLogger)(nil)
