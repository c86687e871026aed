// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package storage implements the fixed-capacity snapshot tiers shared
// by the Classic Revolve and H-Revolve schedulers: a contiguous
// in-memory slab, a file-backed slab, a compressed byte slab, and an
// object-store-backed slab. All four satisfy the same Tier interface
// so the driver can treat them interchangeably.
package storage

import (
	"errors"
)

// Element is the element type of a checkpoint buffer. A single Tier
// instance (and the View it serves) is uniform in one Element type for
// its whole lifetime, matching the spec's "dtype is stable" invariant.
type Element interface {
	~float32 | ~float64
}

// Buffer is one live buffer: a row-major, contiguous view of Data
// shaped as Shape. Save copies Data out of the live state; Load copies
// into it.
type Buffer[T Element] struct {
	Shape []int
	Data  []T
}

// Len is the number of elements the buffer's shape describes.
func (b Buffer[T]) Len() int {
	n := 1
	for _, d := range b.Shape {
		n *= d
	}
	return n
}

// Sentinel error kinds surfaced at the API, per spec §7.
var (
	ErrFull          = errors.New("storage: tier is full")
	ErrEmpty         = errors.New("storage: stack is empty")
	ErrUninitialized = errors.New("storage: checkpoint key was never saved")
	ErrOverflow      = errors.New("storage: compressed size exceeds slot capacity")
	ErrShapeMismatch = errors.New("storage: shape/count mismatch between save and load")
)

// shapesEqual reports whether a and b describe the same dimensions in
// the same order, used by every tier's Load to catch a caller handing
// back buffers shaped differently than what Save recorded (same total
// element count, transposed shape, would otherwise silently succeed
// with scrambled data).
func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Tier is the contract every storage backend implements. Capacity is C
// slots, each able to hold up to S elements total across the buffers
// of one snapshot.
//
// Classic Revolve only ever calls Save/Load with explicit keys;
// H-Revolve only ever calls Push/Peek/Pop. Mixing the two interfaces
// on one Tier instance is undefined, per spec §4.1.
type Tier[T Element] interface {
	// Save writes buffers into slot key. key must be in [0, Capacity()).
	Save(key uint32, buffers []Buffer[T]) error

	// Load reads slot key back into locations, which must match the
	// buffers passed to Save in count and shape.
	Load(key uint32, locations []Buffer[T]) error

	// Push is Save(++stackTop, buffers); fails with ErrFull once the
	// stack has no more free slots.
	Push(buffers []Buffer[T]) error

	// Peek is Load(stackTop, locations) without popping. A no-op on
	// an empty stack.
	Peek(locations []Buffer[T]) error

	// Pop is Load(stackTop, locations) followed by --stackTop; fails
	// with ErrEmpty when the stack is already empty.
	Pop(locations []Buffer[T]) error

	// Capacity is C, the number of fixed slots.
	Capacity() uint32

	// Close releases any resources (file handles, directories) the
	// tier holds. Tiers that hold none make it a no-op.
	Close() error
}
