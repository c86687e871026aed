// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package driver implements the state machine that pulls actions from
// a scheduler and dispatches them against a user's forward/reverse
// operators and a storage tier stack. Grounded on
// original_source/pyrevolve/pyrevolve.py's Revolver
// (apply_forward/apply_reverse loop shape), generalized to the
// multi-tier, multi-action dispatch tables spec §4.4 describes for
// both Classic Revolve and H-Revolve.
package driver

import (
	"fmt"

	"github.com/NHR-FAU/revolve-go/action"
	"github.com/NHR-FAU/revolve-go/checkpoint"
	"github.com/NHR-FAU/revolve-go/storage"
)

// Scheduler is the contract both scheduler/revolve.Scheduler and
// scheduler/hrevolve.Scheduler satisfy.
type Scheduler interface {
	Next() action.Action

	// Timesteps returns the N the schedule was built for, the
	// denominator Revolver.Ratio divides by.
	Timesteps() uint32
}

// Recorder wraps one operator/storage call with timing and count
// bookkeeping, keyed by (section, action). A nil Recorder passed to
// NewSingleLevel or NewMultiLevel is replaced with one that just runs
// fn.
type Recorder interface {
	Time(section, act string, fn func() error) error
}

type noopRecorder struct{}

func (noopRecorder) Time(_, _ string, fn func() error) error { return fn() }

// Revolver drives one sweep. A single implementation serves both
// Classic Revolve (one tier, explicit Save/Load keys via Action.Ckp)
// and H-Revolve (one tier per storage level, Push/Peek/Pop) — the two
// constructors below only differ in which addressing mode and tier set
// they configure, since the action vocabulary already distinguishes
// every behavior the dispatch tables in spec §4.4 require.
type Revolver[T storage.Element] struct {
	sched Scheduler
	tiers []storage.Tier[T]
	fwd   checkpoint.Operator
	rev   checkpoint.Operator
	view  checkpoint.View[T]
	keyed bool
	rec   Recorder

	pending       *action.Action
	forwardsSteps uint32
}

// NewSingleLevel builds a Revolver for a Classic Revolve schedule
// against one storage tier, addressed by the explicit slot key the
// scheduler hands back in each Action.
func NewSingleLevel[T storage.Element](sched Scheduler, tier storage.Tier[T], fwd, rev checkpoint.Operator, view checkpoint.View[T], rec Recorder) *Revolver[T] {
	if rec == nil {
		rec = noopRecorder{}
	}
	return &Revolver[T]{sched: sched, tiers: []storage.Tier[T]{tier}, fwd: fwd, rev: rev, view: view, keyed: true, rec: rec}
}

// NewMultiLevel builds a Revolver for an H-Revolve schedule against an
// ordered set of storage tiers (one per architecture level), each
// driven as a stack via Push/Peek/Pop and selected per action by
// Action.StorageIndex.
func NewMultiLevel[T storage.Element](sched Scheduler, tiers []storage.Tier[T], fwd, rev checkpoint.Operator, view checkpoint.View[T], rec Recorder) *Revolver[T] {
	if rec == nil {
		rec = noopRecorder{}
	}
	return &Revolver[T]{sched: sched, tiers: tiers, fwd: fwd, rev: rev, view: view, keyed: false, rec: rec}
}

// ApplyForward runs the scheduler until it yields the action that ends
// the forward phase: LastForward for Classic Revolve (the trailing
// forward leg is applied here before returning), or the first Reverse
// for H-Revolve (stashed, unexecuted, for ApplyReverse to dispatch).
func (r *Revolver[T]) ApplyForward() error {
	for {
		a := r.next()
		switch a.Kind {
		case action.Advance:
			if err := r.advance(a); err != nil {
				return err
			}
		case action.TakeShot:
			if err := r.takeShot(a); err != nil {
				return err
			}
		case action.Discard:
			if err := r.discard(a); err != nil {
				return err
			}
		case action.LastForward:
			return r.advance(a)
		case action.Reverse:
			r.pending = &a
			return nil
		default:
			return fmt.Errorf("driver: unexpected action %s in forward phase", a.Kind)
		}
	}
}

// ApplyReverse runs the scheduler from wherever ApplyForward left off
// through to Terminate.
func (r *Revolver[T]) ApplyReverse() error {
	for {
		a := r.next()
		if err := r.dispatchReverse(a); err != nil {
			return err
		}
		if a.Kind == action.Terminate {
			return nil
		}
	}
}

func (r *Revolver[T]) next() action.Action {
	if r.pending != nil {
		a := *r.pending
		r.pending = nil
		return a
	}
	return r.sched.Next()
}

func (r *Revolver[T]) dispatchReverse(a action.Action) error {
	switch a.Kind {
	case action.ReverseStart:
		return r.rec.Time("reverse", "seed", func() error { return r.rev.Apply(a.Capo, a.Capo+1) })
	case action.Advance:
		return r.advance(a)
	case action.TakeShot:
		return r.takeShot(a)
	case action.Restore:
		return r.restore(a)
	case action.Discard:
		return r.discard(a)
	case action.Reverse:
		if err := r.rec.Time("forward", "recompute", func() error { return r.fwd.Apply(a.Capo, a.Capo+1) }); err != nil {
			return err
		}
		return r.rec.Time("reverse", "step", func() error { return r.rev.Apply(a.Capo, a.Capo+1) })
	case action.Terminate:
		return nil
	default:
		return fmt.Errorf("driver: unexpected action %s in reverse phase", a.Kind)
	}
}

func (r *Revolver[T]) advance(a action.Action) error {
	r.forwardsSteps += a.Capo - a.OldCapo
	return r.rec.Time("forward", "advance", func() error { return r.fwd.Apply(a.OldCapo, a.Capo) })
}

// Ratio returns the recomputation factor: total forward unit-steps
// dispatched through Advance and LastForward actions (the initial sweep
// plus every reverse-phase recompute) divided by the scheduler's
// timesteps. The single forward step each Reverse action runs right
// before its adjoint step is not counted. It is 1.0 when no
// reverse-phase Advance was needed, greater than 1.0 whenever
// checkpoints were too sparse to avoid recomputing some steps.
func (r *Revolver[T]) Ratio() float64 {
	return float64(r.forwardsSteps) / float64(r.sched.Timesteps())
}

func (r *Revolver[T]) tier(a action.Action) storage.Tier[T] {
	idx := int(a.StorageIndex)
	if idx >= len(r.tiers) {
		idx = 0
	}
	return r.tiers[idx]
}

func (r *Revolver[T]) takeShot(a action.Action) error {
	return r.rec.Time("storage", "save", func() error {
		t := r.tier(a)
		if r.keyed {
			return t.Save(a.Ckp, r.view.Buffers())
		}
		return t.Push(r.view.Buffers())
	})
}

func (r *Revolver[T]) restore(a action.Action) error {
	return r.rec.Time("storage", "load", func() error {
		t := r.tier(a)
		if r.keyed {
			return t.Load(a.Ckp, r.view.Buffers())
		}
		return t.Peek(r.view.Buffers())
	})
}

func (r *Revolver[T]) discard(a action.Action) error {
	if r.keyed {
		return nil
	}
	return r.rec.Time("storage", "discard", func() error {
		return r.tier(a).Pop(r.view.Buffers())
	})
}
