// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hrevolve

import (
	"github.com/NHR-FAU/revolve-go/arch"
)

// rawKind tags one abstract operation in an H-Revolve sequence, before
// physical storage slots have been assigned. It covers the six
// operation types hrevolve.py's Operation class produces in five
// kinds: a single-step Forward is a rawForwards with from == to.
type rawKind int

const (
	rawForwards rawKind = iota // advance steps [from, to] inclusive
	rawBackward                // adjoint step at from
	rawWrite                   // snapshot at level=from, local capo=to
	rawRead                    // restore at level=from, local capo=to
	rawDiscard                 // free at level=from, local capo=to
)

type rawOp struct {
	kind     rawKind
	from, to int
}

// shiftOps returns ops with every absolute-position field offset by
// size, matching Operation.shift: Forwards/Backward shift both ends,
// Write/Read/Discard only shift the capo half of their index (the
// level is not a position and never moves).
func shiftOps(ops []rawOp, size int) []rawOp {
	out := make([]rawOp, len(ops))
	for i, o := range ops {
		switch o.kind {
		case rawForwards:
			out[i] = rawOp{kind: o.kind, from: o.from + size, to: o.to + size}
		case rawBackward:
			out[i] = rawOp{kind: o.kind, from: o.from + size}
		default: // rawWrite, rawRead, rawDiscard
			out[i] = rawOp{kind: o.kind, from: o.from, to: o.to + size}
		}
	}
	return out
}

func minFloats(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// hrevolveAux builds the sequence for processing l forward steps when
// level K already holds a checkpoint at its origin (i.e. a Write has
// already happened); ported from hrevolve.py's HRevolve.hrevolve_aux.
func hrevolveAux(l, K, cmem int, ar arch.Architecture, uf, ub float64, t hoptTables) []rawOp {
	cvect := make([]int, ar.K())
	wvect := make([]float64, ar.K())
	rvect := make([]float64, ar.K())
	for i, tier := range ar.Tiers {
		cvect[i] = int(tier.Size)
		wvect[i] = tier.W
		rvect[i] = tier.R
	}

	if cmem == 0 {
		panic("hrevolve: hrevolveAux called with cmem = 0")
	}
	if l == 0 {
		return []rawOp{{kind: rawBackward, from: 0}}
	}
	if l == 1 {
		var seq []rawOp
		if wvect[0]+rvect[0] < rvect[K] {
			seq = append(seq, rawOp{kind: rawWrite, from: 0, to: 0})
		}
		seq = append(seq, rawOp{kind: rawForwards, from: 0, to: 0})
		seq = append(seq, rawOp{kind: rawBackward, from: 1})
		if wvect[0]+rvect[0] < rvect[K] {
			seq = append(seq, rawOp{kind: rawRead, from: 0, to: 0})
		} else {
			seq = append(seq, rawOp{kind: rawRead, from: K, to: 0})
		}
		seq = append(seq, rawOp{kind: rawBackward, from: 0})
		seq = append(seq, rawOp{kind: rawDiscard, from: 0, to: 0})
		return seq
	}
	if K == 0 && cmem == 1 {
		var seq []rawOp
		for index := l - 1; index >= 0; index-- {
			if index != l-1 {
				seq = append(seq, rawOp{kind: rawRead, from: 0, to: 0})
			}
			seq = append(seq, rawOp{kind: rawForwards, from: 0, to: index})
			seq = append(seq, rawOp{kind: rawBackward, from: index + 1})
		}
		seq = append(seq, rawOp{kind: rawRead, from: 0, to: 0})
		seq = append(seq, rawOp{kind: rawBackward, from: 0})
		seq = append(seq, rawOp{kind: rawDiscard, from: 0, to: 0})
		return seq
	}
	if K == 0 {
		vals := make([]float64, l-1)
		for j := 1; j < l; j++ {
			vals[j-1] = float64(j)*uf + t.opt[0][l-j][cmem-1] + rvect[0] + t.optp[0][j-1][cmem]
		}
		if minFloats(vals) < t.optp[0][l][1] {
			jmin := argminLast(vals)
			var seq []rawOp
			seq = append(seq, rawOp{kind: rawForwards, from: 0, to: jmin - 1})
			sub := hrevolve(l-jmin, 0, cmem-1, ar, uf, ub, t)
			seq = append(seq, shiftOps(sub, jmin)...)
			seq = append(seq, rawOp{kind: rawRead, from: 0, to: 0})
			seq = append(seq, hrevolveAux(jmin-1, 0, cmem, ar, uf, ub, t)...)
			return seq
		}
		return hrevolveAux(l, 0, 1, ar, uf, ub, t)
	}

	vals := make([]float64, l-1)
	for j := 1; j < l; j++ {
		vals[j-1] = float64(j)*uf + t.opt[K][l-j][cmem-1] + rvect[K] + t.optp[K][j-1][cmem]
	}
	if minFloats(vals) < t.opt[K-1][l][cvect[K-1]] {
		jmin := argminLast(vals)
		var seq []rawOp
		seq = append(seq, rawOp{kind: rawForwards, from: 0, to: jmin - 1})
		sub := hrevolve(l-jmin, K, cmem-1, ar, uf, ub, t)
		seq = append(seq, shiftOps(sub, jmin)...)
		seq = append(seq, rawOp{kind: rawRead, from: K, to: 0})
		seq = append(seq, hrevolveAux(jmin-1, K, cmem, ar, uf, ub, t)...)
		return seq
	}
	return hrevolve(l, K-1, cvect[K-1], ar, uf, ub, t)
}

// hrevolve builds the sequence for processing l forward steps from a
// cold start (no checkpoint yet at level K); ported from hrevolve.py's
// HRevolve.hrevolve.
func hrevolve(l, K, cmem int, ar arch.Architecture, uf, ub float64, t hoptTables) []rawOp {
	cvect := make([]int, ar.K())
	wvect := make([]float64, ar.K())
	for i, tier := range ar.Tiers {
		cvect[i] = int(tier.Size)
		wvect[i] = tier.W
	}

	if l == 0 {
		return []rawOp{{kind: rawBackward, from: 0}}
	}
	if K == 0 && cmem == 0 {
		panic("hrevolve: no memory available to process a non-empty range")
	}
	if l == 1 {
		return []rawOp{
			{kind: rawWrite, from: 0, to: 0},
			{kind: rawForwards, from: 0, to: 0},
			{kind: rawBackward, from: 1},
			{kind: rawRead, from: 0, to: 0},
			{kind: rawBackward, from: 0},
			{kind: rawDiscard, from: 0, to: 0},
		}
	}
	if K == 0 {
		seq := []rawOp{{kind: rawWrite, from: 0, to: 0}}
		seq = append(seq, hrevolveAux(l, 0, cmem, ar, uf, ub, t)...)
		return seq
	}
	if wvect[K]+t.optp[K][l][cmem] < t.opt[K-1][l][cvect[K-1]] {
		seq := []rawOp{{kind: rawWrite, from: K, to: 0}}
		seq = append(seq, hrevolveAux(l, K, cmem, ar, uf, ub, t)...)
		return seq
	}
	return hrevolve(l, K-1, cvect[K-1], ar, uf, ub, t)
}
