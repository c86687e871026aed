// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hrevolve implements the Herrmann-Pallez multi-level H-Revolve
// scheduler: a dynamic-programming cost table over the storage
// hierarchy followed by a recursive sequence construction, ported from
// original_source/pyrevolve/schedulers/hrevolve.py's get_hopt_table,
// hrevolve and hrevolve_aux (itself adapted by the pyrevolve authors
// from Herrmann & Aupy's reference H-Revolve implementation).
package hrevolve

import (
	"math"

	"github.com/NHR-FAU/revolve-go/arch"
)

// hoptTables holds the two DP tables computed by getHoptTable: opt is
// the optimal makespan to process l forward steps using levels
// [0..k] with m slots free at level k; optp is the same but excludes
// the option of spilling the very first state to a slower level
// (Herrmann & Pallez call this H'Opt in the paper).
type hoptTables struct {
	opt  [][][]float64
	optp [][][]float64
}

// getHoptTable fills opt/optp for l = 0..lmax, following the exact
// recurrence in get_hopt_table: level 0 is solved directly, each
// subsequent level k either reuses level k-1's table unchanged or
// pays to write into level k once, then recurses on the remaining
// length with one fewer slot at level k.
func getHoptTable(lmax int, architecture arch.Architecture, uf, ub float64) hoptTables {
	k := architecture.K()
	cvect := make([]int, k)
	wvect := make([]float64, k)
	rvect := make([]float64, k)
	for i, t := range architecture.Tiers {
		cvect[i] = int(t.Size)
		wvect[i] = t.W
		rvect[i] = t.R
	}

	opt := make([][][]float64, k)
	optp := make([][][]float64, k)
	for i := 0; i < k; i++ {
		opt[i] = make([][]float64, lmax+1)
		optp[i] = make([][]float64, lmax+1)
		for l := 0; l <= lmax; l++ {
			opt[i][l] = make([]float64, cvect[i]+1)
			optp[i][l] = make([]float64, cvect[i]+1)
			for m := range opt[i][l] {
				opt[i][l][m] = math.Inf(1)
				optp[i][l][m] = math.Inf(1)
			}
		}
	}

	for kk := 0; kk < k; kk++ {
		mmax := cvect[kk]
		for m := 0; m <= mmax; m++ {
			opt[kk][0][m] = ub
			optp[kk][0][m] = ub
		}
		for m := 0; m <= mmax; m++ {
			if m == 0 && kk == 0 {
				continue
			}
			optp[kk][1][m] = uf + 2*ub + rvect[0]
			opt[kk][1][m] = wvect[0] + optp[kk][1][m]
		}
	}

	mmax0 := cvect[0]
	for l := 2; l <= lmax; l++ {
		fl := float64(l)
		optp[0][l][1] = (fl+1)*ub + fl*(fl+1)/2*uf + fl*rvect[0]
		opt[0][l][1] = wvect[0] + optp[0][l][1]
	}
	for m := 2; m <= mmax0; m++ {
		for l := 2; l <= lmax; l++ {
			best := optp[0][l][1]
			for j := 1; j < l; j++ {
				v := float64(j)*uf + opt[0][l-j][m-1] + rvect[0] + optp[0][j-1][m]
				if v < best {
					best = v
				}
			}
			optp[0][l][m] = best
			opt[0][l][m] = wvect[0] + optp[0][l][m]
		}
	}

	for kk := 1; kk < k; kk++ {
		mmax := cvect[kk]
		for l := 2; l <= lmax; l++ {
			opt[kk][l][0] = opt[kk-1][l][cvect[kk-1]]
		}
		for m := 1; m <= mmax; m++ {
			for l := 1; l <= lmax; l++ {
				best := opt[kk-1][l][cvect[kk-1]]
				for j := 1; j < l; j++ {
					v := float64(j)*uf + opt[kk][l-j][m-1] + rvect[kk] + optp[kk][j-1][m]
					if v < best {
						best = v
					}
				}
				optp[kk][l][m] = best
				opt[kk][l][m] = math.Min(opt[kk-1][l][cvect[kk-1]], wvect[kk]+optp[kk][l][m])
			}
		}
	}

	return hoptTables{opt: opt, optp: optp}
}

// argminLast returns the 1-based index of the last (not first) minimal
// element of vals, matching hrevolve.py's argmin tie-break rule.
func argminLast(vals []float64) int {
	index := 0
	m := vals[0]
	for i, v := range vals {
		if v <= m {
			index = i
			m = v
		}
	}
	return index + 1
}
