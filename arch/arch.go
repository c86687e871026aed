// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package arch describes a multilevel storage architecture: an ordered
// vector of tiers, each with a capacity and a read/write cost, used by
// the H-Revolve planner to cost its dynamic-programming tables.
package arch

import "fmt"

// Tier is one level of the Architecture: Size checkpoint slots, a
// write cost W and a read cost R in abstract time units.
type Tier struct {
	Size uint32
	W    float64
	R    float64
}

// Architecture is the ordered vector of tiers passed to the H-Revolve
// planner. Tiers should be listed fast/small first (non-decreasing W
// and R); this is checked but not enforced, matching
// original_source/pyrevolve/schedulers/base.py's Architecture, which
// only warns.
type Architecture struct {
	Tiers []Tier
}

// New builds an Architecture from a slice of tiers. It returns an
// error if the slice is empty; K >= 1 is required by spec.
func New(tiers []Tier) (Architecture, error) {
	if len(tiers) == 0 {
		return Architecture{}, fmt.Errorf("arch: at least one storage tier is required")
	}
	return Architecture{Tiers: tiers}, nil
}

// K is the number of tiers.
func (a Architecture) K() int {
	return len(a.Tiers)
}

// Sorted reports whether W and R are both non-decreasing across
// tiers, i.e. the architecture is laid out fast/small first. A
// non-sorted architecture is legal but loses optimality (spec §3).
func (a Architecture) Sorted() bool {
	for i := 1; i < len(a.Tiers); i++ {
		if a.Tiers[i].W < a.Tiers[i-1].W || a.Tiers[i].R < a.Tiers[i-1].R {
			return false
		}
	}
	return true
}

func (a Architecture) String() string {
	return fmt.Sprintf("%+v", a.Tiers)
}
