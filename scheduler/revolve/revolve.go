// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package revolve implements the classic single-level binomial
// checkpointing schedule (Griewank & Walther's "revolve"). No
// reference source for the binomial split survives in this repo's
// ancestry — original_source/pyrevolve/schedulers/crevolve.py only
// wraps an external C extension that isn't vendored here — so the
// split and the reverse-sweep recursion below are built from the
// published recurrence rather than transcribed from a prior
// implementation.
package revolve

import (
	"fmt"

	"github.com/NHR-FAU/revolve-go/action"
)

// Scheduler produces the action sequence for one (checkpoints,
// timesteps) pair. The whole sequence is computed up front at
// construction time and then walked by Next; Classic Revolve's
// textbook description is online (O(1) state per step), but
// precomputing is simpler to get right and N is always bounded in
// practice, so the memory cost is acceptable.
type Scheduler struct {
	n, c    uint32
	actions []action.Action
	cursor  int
}

// New validates (checkpoints, timesteps) and builds the schedule.
// checkpoints == 0 is rejected here per the "c=0 is illegal" rule;
// timesteps == 0 describes an empty sweep and is rejected too.
func New(checkpoints, timesteps uint32) (*Scheduler, error) {
	if checkpoints == 0 {
		return nil, fmt.Errorf("revolve: checkpoints must be >= 1")
	}
	if timesteps == 0 {
		return nil, fmt.Errorf("revolve: timesteps must be >= 1")
	}

	s := &Scheduler{n: timesteps, c: checkpoints}
	s.build()
	return s, nil
}

// Next returns the next action in the schedule. Once the sequence is
// exhausted it keeps returning Terminate, matching the driver's
// expectation that a scheduler never runs dry mid-sweep.
func (s *Scheduler) Next() action.Action {
	if s.cursor >= len(s.actions) {
		return action.Action{Kind: action.Terminate}
	}
	a := s.actions[s.cursor]
	s.cursor++
	return a
}

func (s *Scheduler) emit(a action.Action) {
	s.actions = append(s.actions, a)
}

// Timesteps returns the N this schedule was built for, the
// denominator driver.Revolver.Ratio divides by.
func (s *Scheduler) Timesteps() uint32 { return s.n }

// build lays out the full schedule: a forward sweep that takes
// min(c, n-1) snapshots at binomially-optimal spacing, then a reverse
// sweep that recomputes each gap between snapshots from the right.
func (s *Scheduler) build() {
	n, c := s.n, s.c

	if n == 1 {
		s.emit(action.Action{Kind: action.LastForward, OldCapo: 0, Capo: 1})
		s.emit(action.Action{Kind: action.ReverseStart, Capo: 0})
		s.emit(action.Action{Kind: action.Terminate})
		return
	}

	var positions []uint32
	capo := uint32(0)
	slot := uint32(0)
	for slot < c && capo < n-1 {
		s.emit(action.Action{Kind: action.TakeShot, Capo: capo, Ckp: slot})
		positions = append(positions, capo)

		remaining := n - capo
		free := c - slot
		step := optimalStep(remaining, free)

		old := capo
		capo += step
		s.emit(action.Action{Kind: action.Advance, OldCapo: old, Capo: capo})
		slot++
	}

	s.emit(action.Action{Kind: action.LastForward, OldCapo: capo, Capo: n})
	s.emit(action.Action{Kind: action.ReverseStart, Capo: n - 1})

	if k := len(positions); k > 0 {
		pool := newSlotPool(c-uint32(k), uint32(k))
		hi := n - 1
		for i := k - 1; i >= 0; i-- {
			lo := positions[i]
			s.reverseGap(lo, hi, uint32(i), pool)
			pool.push(uint32(i))
			hi = lo
		}
	}

	s.emit(action.Action{Kind: action.Terminate})
}

// reverseGap emits Reverse actions for every step in [lo, hi), given
// that the live state at lo is recoverable from loSlot. It peels the
// rightmost unresolved piece off on each iteration: either a single
// brute-force recompute step (when no spare slot is free) or a proper
// bisection that takes a fresh snapshot at the midpoint and recurses
// into the half beyond it before returning to finish the left half in
// the same loop.
func (s *Scheduler) reverseGap(lo, hi, loSlot uint32, pool *slotPool) {
	for hi > lo+1 {
		if pool.empty() {
			s.emit(action.Action{Kind: action.Restore, Capo: lo, Ckp: loSlot})
			s.emit(action.Action{Kind: action.Advance, OldCapo: lo, Capo: hi - 1})
			s.emit(action.Action{Kind: action.Reverse, Capo: hi - 1})
			hi--
			continue
		}

		mid := lo + (hi-lo)/2
		s.emit(action.Action{Kind: action.Restore, Capo: lo, Ckp: loSlot})
		s.emit(action.Action{Kind: action.Advance, OldCapo: lo, Capo: mid})

		midSlot := pool.pop()
		s.emit(action.Action{Kind: action.TakeShot, Capo: mid, Ckp: midSlot})
		s.reverseGap(mid, hi, midSlot, pool)
		pool.push(midSlot)

		hi = mid
	}

	s.emit(action.Action{Kind: action.Restore, Capo: lo, Ckp: loSlot})
	s.emit(action.Action{Kind: action.Reverse, Capo: lo})
}

// optimalStep picks how far to advance, with `free` checkpoints left
// (including the one just taken), before the forward sweep is
// expected to place its next snapshot. t is the smallest recomputation
// depth for which binom(free+t, t) can still cover the remaining
// length; step is the largest prefix a (free-1)-checkpoint, (t-1)-deep
// sub-schedule can absorb, per the binomial split spec §4.2 names. When
// fewer free slots than remaining steps are left, step is further capped
// at remaining-free so every remaining slot still gets its own position
// before the last step.
func optimalStep(remaining, free uint32) uint32 {
	t := 0
	for binom(int(free)+t, t) < uint64(remaining) {
		t++
	}
	if t == 0 {
		if remaining <= 1 {
			return 0
		}
		return remaining - 1
	}

	step := binom(int(free)-1+t-1, t-1)
	if step < 1 {
		step = 1
	}
	if step > uint64(remaining-1) {
		step = uint64(remaining - 1)
	}
	if free < remaining && step > uint64(remaining-free) {
		step = uint64(remaining - free)
	}
	return uint32(step)
}

// binom computes C(n,k) via the standard integer-exact running
// product; n grows only until the loop above's threshold is crossed,
// so it stays well within uint64 range for any realistic step count.
func binom(n, k int) uint64 {
	if k < 0 || n < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	var result uint64 = 1
	for i := 0; i < k; i++ {
		result = result * uint64(n-i) / uint64(i+1)
	}
	return result
}

// slotPool is a LIFO of free checkpoint slot indices, used by
// reverseGap to hand out and reclaim storage while recomputing.
type slotPool struct {
	free []uint32
}

func newSlotPool(spareCount, base uint32) *slotPool {
	p := &slotPool{free: make([]uint32, 0, spareCount)}
	for i := uint32(0); i < spareCount; i++ {
		p.free = append(p.free, base+i)
	}
	return p
}

func (p *slotPool) empty() bool { return len(p.free) == 0 }

func (p *slotPool) pop() uint32 {
	n := len(p.free) - 1
	v := p.free[n]
	p.free = p.free[:n]
	return v
}

func (p *slotPool) push(v uint32) {
	p.free = append(p.free, v)
}
