// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package action defines the tagged value a scheduler emits on each
// step and the driver consumes.
package action

// Kind tags the operation an Action describes.
type Kind int

const (
	Advance Kind = iota
	TakeShot
	Restore
	LastForward
	Reverse
	ReverseStart
	Discard
	Terminate
)

var kindNames = map[Kind]string{
	Advance:      "ADVANCE",
	TakeShot:     "TAKESHOT",
	Restore:      "RESTORE",
	LastForward:  "LASTFW",
	Reverse:      "REVERSE",
	ReverseStart: "REVSTART",
	Discard:      "CPDEL",
	Terminate:    "TERMINATE",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Action is the value a Scheduler returns from next(). OldCapo/Capo
// describe the half-open forward interval [OldCapo, Capo) for Advance
// and LastForward; Capo alone is the adjoint step for Reverse and
// ReverseStart. Ckp names the checkpoint slot (set by Classic Revolve,
// left unset by H-Revolve, which drives per-tier stacks) and
// StorageIndex the tier to touch (always 0 for single-level Classic
// Revolve scheduling).
type Action struct {
	Kind         Kind
	OldCapo      uint32
	Capo         uint32
	Ckp          uint32
	StorageIndex uint32
}

// Forward reports whether the action is a forward step (Advance or
// LastForward); it does not inspect the interval bounds.
func (a Action) Forward() bool {
	return a.Kind == Advance || a.Kind == LastForward
}
