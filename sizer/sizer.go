// Package sizer maps requested resource sizes to bucket indices and back.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Sizer is a pure, stateless pair of total functions: SizeToIndex routes a
// requested size to its size-class index, IndexToCapacity reports the
// canonical capacity every resource in that index must carry. Both
// primitives (Linear, Exponential) and both decorators (WithMinCapacity,
// WithAlignment) are referentially transparent: same input always yields
// same output, no shared state.
package sizer

import (
	"math"

	"github.com/pkg/errors"
)

// Sizer maps requested sizes to bucket indices and indices to canonical
// bucket capacities. Implementations must be monotone and must satisfy
// IndexToCapacity(SizeToIndex(s)) >= s for all valid s.
type Sizer interface {
	// SizeToIndex returns the bucket index that should serve size bytes.
	SizeToIndex(size uint64) (uint64, error)

	// IndexToCapacity returns the canonical capacity of bucket index.
	IndexToCapacity(index uint64) (uint64, error)
}

// ErrInvalidArgument is returned by a Sizer for out-of-domain inputs or by
// constructors for invalid configuration.
var ErrInvalidArgument = errors.New("sizer: invalid argument")

type linearSizer struct {
	multiple uint64
}

// Linear builds a Sizer where bucket capacities are multiples of m:
// SizeToIndex(s) = ceil(s/m), IndexToCapacity(i) = i*m.
func Linear(multiple uint64) (Sizer, error) {
	if multiple == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "linear: multiple must be > 0")
	}
	return &linearSizer{multiple: multiple}, nil
}

func (l *linearSizer) SizeToIndex(size uint64) (uint64, error) {
	return (size + l.multiple - 1) / l.multiple, nil
}

func (l *linearSizer) IndexToCapacity(index uint64) (uint64, error) {
	return index * l.multiple, nil
}

type exponentialSizer struct {
	factor    float64
	logFactor float64
}

// Exponential builds a Sizer where bucket i has capacity floor(f^i); bucket
// 0 therefore has capacity 1. Callers typically compose with
// WithMinCapacity to raise the floor.
func Exponential(factor float64) (Sizer, error) {
	if factor <= 1.0 {
		return nil, errors.Wrap(ErrInvalidArgument, "exponential: factor must be > 1.0")
	}
	return &exponentialSizer{factor: factor, logFactor: math.Log(factor)}, nil
}

func (e *exponentialSizer) SizeToIndex(size uint64) (uint64, error) {
	s := size
	if s < 1 {
		s = 1
	}
	// floor() then correct upward, rather than ceil() directly: on an exact
	// power of factor, floating-point error in the log ratio can round
	// marginally above the true integer and ceil() would then overshoot by
	// one bucket.
	bucket := math.Floor(math.Log(float64(s)) / e.logFactor)
	if bucket < 0 {
		bucket = 0
	}
	for math.Pow(e.factor, bucket) < float64(s) {
		bucket++
	}
	return uint64(bucket), nil
}

func (e *exponentialSizer) IndexToCapacity(index uint64) (uint64, error) {
	return uint64(math.Floor(math.Pow(e.factor, float64(index)))), nil
}

type minCapacitySizer struct {
	base Sizer
	k    uint64
	min  uint64
}

// WithMinCapacity decorates base so that bucket 0 has capacity >= min. It
// shifts the index origin by k = base.SizeToIndex(min), so
// SizeToIndex(s) = base.SizeToIndex(max(s, min)) - k and
// IndexToCapacity(i) = base.IndexToCapacity(i + k).
func WithMinCapacity(base Sizer, min uint64) (Sizer, error) {
	if base == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "with_min_capacity: base sizer is nil")
	}
	if min == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "with_min_capacity: min must be > 0")
	}
	k, err := base.SizeToIndex(min)
	if err != nil {
		return nil, err
	}
	return &minCapacitySizer{base: base, k: k, min: min}, nil
}

func (m *minCapacitySizer) SizeToIndex(size uint64) (uint64, error) {
	s := size
	if s < m.min {
		s = m.min
	}
	idx, err := m.base.SizeToIndex(s)
	if err != nil {
		return 0, err
	}
	if idx < m.k {
		// base is monotone so this should not happen for s >= min, but
		// guard against pathological bases rather than underflow.
		return 0, nil
	}
	return idx - m.k, nil
}

func (m *minCapacitySizer) IndexToCapacity(index uint64) (uint64, error) {
	return m.base.IndexToCapacity(index + m.k)
}

type alignmentSizer struct {
	base      Sizer
	alignment uint64
}

// WithAlignment decorates base so IndexToCapacity rounds up to the next
// multiple of alignment; indexing is untouched.
func WithAlignment(base Sizer, alignment uint64) (Sizer, error) {
	if base == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "with_alignment: base sizer is nil")
	}
	if alignment == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "with_alignment: alignment must be > 0")
	}
	return &alignmentSizer{base: base, alignment: alignment}, nil
}

func (a *alignmentSizer) SizeToIndex(size uint64) (uint64, error) {
	return a.base.SizeToIndex(size)
}

func (a *alignmentSizer) IndexToCapacity(index uint64) (uint64, error) {
	cap, err := a.base.IndexToCapacity(index)
	if err != nil {
		return 0, err
	}
	rem := cap % a.alignment
	if rem == 0 {
		return cap, nil
	}
	return cap + (a.alignment - rem), nil
}

// DefaultSizer builds the pool's default strategy per the configuration
// fallback rule: exponential(f) with f = max(2, ceil(ln(poolable)/ln(steps))),
// steps = 32 when poolable <= 1 MiB else 256, aligned to 64 bytes.
func DefaultSizer(poolableCapacity uint64) (Sizer, error) {
	const mib = 1 << 20
	steps := 256.0
	if poolableCapacity <= mib {
		steps = 32.0
	}
	p := float64(poolableCapacity)
	if p < 1 {
		p = 1
	}
	f := math.Ceil(math.Log(p) / math.Log(steps))
	if f < 2 {
		f = 2
	}
	base, err := Exponential(f)
	if err != nil {
		return nil, err
	}
	return WithAlignment(base, 64)
}
