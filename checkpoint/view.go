// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package checkpoint declares the two capability interfaces a caller
// must implement to drive a sweep: Operator runs one leg of the
// simulation, View exposes the live buffers that get saved/restored
// between legs. Grounded on original_source/pyrevolve/pyrevolve.py's
// Operator and Checkpoint abstract base classes, generalized from
// Python duck typing to a Go interface pair per spec §9.
package checkpoint

import "github.com/NHR-FAU/revolve-go/storage"

// Operator runs the forward or reverse leg of the user's simulation
// over the half-open step range [tStart, tEnd). The driver never
// inspects the return value; mutation happens in place through the
// View the operator closes over.
type Operator interface {
	Apply(tStart, tEnd uint32) error
}

// OperatorFunc adapts a plain function to Operator.
type OperatorFunc func(tStart, tEnd uint32) error

func (f OperatorFunc) Apply(tStart, tEnd uint32) error { return f(tStart, tEnd) }

// View exposes the live state that gets snapshotted between legs.
// GetData returns the buffers that make up one checkpoint in the
// order the scheduler's save/load calls must preserve; GetData must
// always report the same shapes for the lifetime of a sweep, matching
// the "dtype/size are stable" invariant from spec §3.
//
// View[T] is intentionally narrower than Python's Checkpoint: dtype is
// carried in the type parameter instead of a runtime property, so a
// View is only ever used with the matching storage.Tier[T].
type View[T storage.Element] interface {
	// Buffers returns descriptors for the live data, freshly
	// allocated or reused across calls — the driver copies through
	// them immediately via Save/Load and does not retain slices
	// across driver steps.
	Buffers() []storage.Buffer[T]
}
