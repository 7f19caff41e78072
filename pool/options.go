// File: pool/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Functional-options constructor in this lineage's With* convention
// (facade/hioload.go, highlevel/server.go). Config itself is a plain,
// validated, immutable-after-construction struct per spec.md §3.

package pool

import (
	"github.com/momentics/boundedpool/handler"
	"github.com/momentics/boundedpool/sizer"
)

// WidenStrategy selects how Acquire handles the case where available
// capacity covers a bucket's full entry capacity but the request itself is
// smaller (spec.md §9's "edge widening policy").
type WidenStrategy int

const (
	// UseAvailableCapacity widens the reservation to the bucket's entry
	// capacity only when that much is already available, so the new
	// resource is poolable on release without over-reserving.
	UseAvailableCapacity WidenStrategy = iota

	// EnforcePoolableCapacity always widens to the bucket's entry
	// capacity, even when doing so borrows from non-pooled space.
	EnforcePoolableCapacity
)

// Config is the pool's immutable-after-construction configuration.
type Config struct {
	totalCapacity    uint64
	poolableCapacity uint64
	sizer            sizer.Sizer
	handler          handler.Handler
	widen            WidenStrategy
	logger           Logger
	adjustSize       func(uint64) uint64
	mayPool          func(capacity, pooledBytes, poolableCapacity uint64) bool
}

// Option configures a Pool at construction time.
type Option func(*Config) error

// WithTotalCapacity sets the hard ceiling on in-use + pooled + unpooled
// bytes. Required; must be > 0.
func WithTotalCapacity(total uint64) Option {
	return func(c *Config) error {
		if total == 0 {
			return errorf(ErrInvalidArgument, "total capacity must be > 0")
		}
		c.totalCapacity = total
		return nil
	}
}

// WithPoolableCapacity sets the ceiling on resident pooled bytes. Defaults
// to total capacity when unset.
func WithPoolableCapacity(poolable uint64) Option {
	return func(c *Config) error {
		c.poolableCapacity = poolable
		return nil
	}
}

// WithBucketSizer overrides the default size-class strategy.
func WithBucketSizer(s sizer.Sizer) Option {
	return func(c *Config) error {
		if s == nil {
			return errorf(ErrInvalidArgument, "bucket sizer must not be nil")
		}
		c.sizer = s
		return nil
	}
}

// WithHandler sets the resource lifecycle handler. Required.
func WithHandler(h handler.Handler) Option {
	return func(c *Config) error {
		if h == nil {
			return errorf(ErrInvalidArgument, "handler must not be nil")
		}
		c.handler = h
		return nil
	}
}

// WithWidenStrategy selects the edge-widening policy (spec.md §9).
func WithWidenStrategy(w WidenStrategy) Option {
	return func(c *Config) error {
		c.widen = w
		return nil
	}
}

// WithLogger wires an optional structured event sink.
func WithLogger(l Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return errorf(ErrInvalidArgument, "logger must not be nil")
		}
		c.logger = l
		return nil
	}
}

// WithAdjustAllocationSize overrides the default identity
// adjust_allocation_size hook. The replacement must satisfy
// adjustSize(s) >= s for all s, or Acquire will reject with
// ErrInvalidArgument at call time.
func WithAdjustAllocationSize(fn func(uint64) uint64) Option {
	return func(c *Config) error {
		if fn == nil {
			return errorf(ErrInvalidArgument, "adjust allocation size hook must not be nil")
		}
		c.adjustSize = fn
		return nil
	}
}

// WithMayPool overrides the default may_pool predicate ("respect poolable
// ceiling").
func WithMayPool(fn func(capacity, pooledBytes, poolableCapacity uint64) bool) Option {
	return func(c *Config) error {
		if fn == nil {
			return errorf(ErrInvalidArgument, "may-pool hook must not be nil")
		}
		c.mayPool = fn
		return nil
	}
}

func defaultConfig() *Config {
	return &Config{
		widen:      UseAvailableCapacity,
		logger:     noopLogger{},
		adjustSize: func(s uint64) uint64 { return s },
		mayPool: func(capacity, pooledBytes, poolableCapacity uint64) bool {
			return pooledBytes+capacity <= poolableCapacity
		},
	}
}
