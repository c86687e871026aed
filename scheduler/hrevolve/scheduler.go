// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hrevolve

import (
	"fmt"

	"github.com/NHR-FAU/revolve-go/action"
	"github.com/NHR-FAU/revolve-go/arch"
)

// Scheduler walks the flattened H-Revolve operation sequence for one
// run, translating each abstract (level, capo) op into the Action the
// driver dispatches, and layering in the runtime Discard-injection
// rule from hrevolve.py's HRevolve.__check_for_cpdel_condition.
//
// Unlike Classic Revolve, H-Revolve never needs an externally chosen
// slot key: its cmem budget at each level is consumed and released in
// strict last-in-first-out order by construction, so every Write here
// becomes a storage.Tier.Push, every Read a Peek and every Discard a
// Pop — the driver drives one stack per tier and Ckp is left unset.
type Scheduler struct {
	ops []rawOp
	idx int

	capo uint32

	haveLast           bool
	lastKind           action.Kind
	lastStorageIndex   uint32
	lastCapoRead       int
	lastStorageIdxRead int

	timesteps uint32
	tables    hoptTables
	top       int
	topSize   int
}

// New builds the H-Revolve schedule for processing timesteps forward
// steps against architecture, with uf/ub the abstract per-step
// forward/backward costs used to weigh the DP tables (spec §4.3).
func New(timesteps uint32, architecture arch.Architecture, uf, ub float64) (*Scheduler, error) {
	if timesteps == 0 {
		return nil, fmt.Errorf("hrevolve: timesteps must be >= 1")
	}
	if architecture.K() == 0 {
		return nil, fmt.Errorf("hrevolve: architecture must have at least one storage tier")
	}

	tables := getHoptTable(int(timesteps), architecture, uf, ub)
	top := architecture.K() - 1
	topSize := int(architecture.Tiers[top].Size)
	// A chain of l forward steps has l+1 adjoint steps, so timesteps
	// adjoint steps need l = timesteps-1.
	ops := hrevolve(int(timesteps)-1, top, topSize, architecture, uf, ub, tables)

	return &Scheduler{
		ops:                ops,
		lastCapoRead:       -1,
		lastStorageIdxRead: -1,
		timesteps:          timesteps,
		tables:             tables,
		top:                top,
		topSize:            topSize,
	}, nil
}

// Timesteps returns the N this schedule was built for, the
// denominator driver.Revolver.Ratio divides by.
func (s *Scheduler) Timesteps() uint32 { return s.timesteps }

// Makespan returns the DP-modeled optimal cost for this schedule:
// opt[K-1][timesteps][topSize], the table entry for a chain of
// timesteps forward steps. The op sequence New builds covers
// timesteps-1 forward steps (timesteps adjoint steps), so this entry
// is one chain step longer than the sequence. Spec property 6 requires
// this to be monotonically non-decreasing in timesteps for a fixed architecture,
// and non-increasing when a tier is added.
func (s *Scheduler) Makespan() float64 {
	return s.tables.opt[s.top][s.timesteps][s.topSize]
}

// Next returns the next action in the schedule, transparently
// injecting the Discard actions the runtime condition below calls
// for. Once the sequence (plus any pending injection) is exhausted it
// keeps returning Terminate.
func (s *Scheduler) Next() action.Action {
	if s.haveLast && s.checkCpdelCondition() {
		a := action.Action{
			Kind:         action.Discard,
			Capo:         uint32(s.lastCapoRead),
			OldCapo:      uint32(s.lastCapoRead),
			StorageIndex: uint32(s.lastStorageIdxRead),
		}
		s.lastCapoRead = -1
		s.lastStorageIdxRead = -1
		s.recordLast(a)
		return a
	}

	if s.idx >= len(s.ops) {
		return action.Action{Kind: action.Terminate}
	}

	raw := s.ops[s.idx]
	s.idx++
	a := s.translate(raw)
	s.recordLast(a)
	return a
}

func (s *Scheduler) recordLast(a action.Action) {
	s.haveLast = true
	s.lastKind = a.Kind
	s.lastStorageIndex = a.StorageIndex
}

// checkCpdelCondition mirrors hrevolve.py's
// __check_for_cpdel_condition: a checkpoint just read and then
// immediately reversed at the same capo must be discarded; so must a
// checkpoint just read and then re-taken at a different storage tier.
// Both cases are skipped if the next queued operation is already an
// explicit Discard.
func (s *Scheduler) checkCpdelCondition() bool {
	ret := false
	switch s.lastKind {
	case action.Reverse:
		if int(s.capo) == s.lastCapoRead {
			ret = true
		}
	case action.TakeShot:
		if int(s.capo) == s.lastCapoRead && s.lastStorageIdxRead != int(s.lastStorageIndex) {
			ret = true
		}
	case action.Restore:
		s.lastCapoRead = int(s.capo)
		s.lastStorageIdxRead = int(s.lastStorageIndex)
	}

	if ret && s.idx < len(s.ops) && s.ops[s.idx].kind == rawDiscard {
		ret = false
	}
	return ret
}

func (s *Scheduler) translate(raw rawOp) action.Action {
	switch raw.kind {
	case rawForwards:
		old := uint32(raw.from)
		to := uint32(raw.to) + 1
		s.capo = to
		return action.Action{Kind: action.Advance, OldCapo: old, Capo: to}

	case rawBackward:
		c := uint32(raw.from)
		s.capo = c
		return action.Action{Kind: action.Reverse, Capo: c, OldCapo: c}

	case rawWrite:
		level, capo := uint32(raw.from), uint32(raw.to)
		s.capo = capo
		return action.Action{Kind: action.TakeShot, Capo: capo, OldCapo: capo, StorageIndex: level}

	case rawRead:
		level, capo := uint32(raw.from), uint32(raw.to)
		s.capo = capo
		return action.Action{Kind: action.Restore, Capo: capo, OldCapo: capo, StorageIndex: level}

	case rawDiscard:
		level, capo := uint32(raw.from), uint32(raw.to)
		s.capo = capo
		return action.Action{Kind: action.Discard, Capo: capo, OldCapo: capo, StorageIndex: level}
	}

	panic("hrevolve: unreachable op kind")
}
