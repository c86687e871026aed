package revolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NHR-FAU/revolve-go/action"
)

// drain runs the scheduler to completion and tallies what the driver
// would observe, stopping the first time Terminate is seen so repeat
// Terminate padding doesn't skew the counts. takeShots counts every
// TakeShot of the sweep; fwdShots only those before LastForward, i.e.
// the ones ApplyForward dispatches.
type tally struct {
	takeShots   int
	fwdShots    int
	restores    int
	reverses    int
	reverseStrt int
	advances    int
	actions     []action.Action
}

func drain(s *Scheduler) tally {
	var tl tally
	forward := true
	for {
		a := s.Next()
		tl.actions = append(tl.actions, a)
		if a.Kind == action.LastForward {
			forward = false
		}
		switch a.Kind {
		case action.TakeShot:
			tl.takeShots++
			if forward {
				tl.fwdShots++
			}
		case action.Restore:
			tl.restores++
		case action.Reverse:
			tl.reverses++
		case action.ReverseStart:
			tl.reverseStrt++
		case action.Advance, action.LastForward:
			tl.advances++
		case action.Terminate:
			return tl
		}
	}
}

func TestNewRejectsZeroCheckpoints(t *testing.T) {
	_, err := New(0, 10)
	assert.Error(t, err)
}

func TestNewRejectsZeroTimesteps(t *testing.T) {
	_, err := New(2, 0)
	assert.Error(t, err)
}

// S1: N=10, C=2 -> save_count=2, with recomputation.
func TestScenarioS1(t *testing.T) {
	s, err := New(2, 10)
	require.NoError(t, err)
	tl := drain(s)

	assert.Equal(t, 2, tl.fwdShots)
	assert.Equal(t, 10, tl.reverses+tl.reverseStrt)
}

// S2: N=10, C=12 (C > N-1) -> save_count=9=N-1, zero recomputation
// (every gap between consecutive checkpoints has width 1, so
// reverseGap never needs to peel off an extra recompute step).
func TestScenarioS2(t *testing.T) {
	s, err := New(12, 10)
	require.NoError(t, err)
	tl := drain(s)

	assert.Equal(t, 9, tl.fwdShots)
	assert.Equal(t, 10, tl.reverses+tl.reverseStrt)

	recomputes := 0
	reversePhase := false
	for _, a := range tl.actions {
		if a.Kind == action.LastForward {
			reversePhase = true
		}
		if reversePhase && a.Kind == action.Advance {
			recomputes++
		}
	}
	assert.Zero(t, recomputes, "no recomputation expected when every step is checkpointed")
}

// S3: N=10, C=4 -> save_count=4, with recomputation.
func TestScenarioS3(t *testing.T) {
	s, err := New(4, 10)
	require.NoError(t, err)
	tl := drain(s)

	assert.Equal(t, 4, tl.fwdShots)
	assert.Equal(t, 10, tl.reverses+tl.reverseStrt)

	recomputes := 0
	reversePhase := false
	for _, a := range tl.actions {
		if a.Kind == action.LastForward {
			reversePhase = true
		}
		if reversePhase && a.Kind == action.Advance {
			recomputes++
		}
	}
	assert.Positive(t, recomputes)
}

// Invariant 2: TakeShot count during the forward sweep equals
// min(C, N-1), across a spread of (N,C) pairs.
func TestTakeShotCountMatchesMinCNMinus1(t *testing.T) {
	cases := []struct{ n, c uint32 }{
		{5, 1}, {5, 3}, {5, 10}, {20, 1}, {20, 5}, {20, 19}, {20, 40}, {1, 3},
	}
	for _, tc := range cases {
		s, err := New(tc.c, tc.n)
		require.NoError(t, err)
		tl := drain(s)

		want := tc.c
		if tc.n-1 < want {
			want = tc.n - 1
		}
		assert.Equal(t, int(want), tl.fwdShots, "n=%d c=%d", tc.n, tc.c)
	}
}

// Invariant 3: total adjoint steps (Reverse actions plus the single
// ReverseStart) equals N.
func TestReverseStepCountEqualsN(t *testing.T) {
	for _, n := range []uint32{1, 2, 3, 7, 16, 33} {
		s, err := New(3, n)
		require.NoError(t, err)
		tl := drain(s)
		assert.Equal(t, int(n), tl.reverses+tl.reverseStrt, "n=%d", n)
	}
}

// Invariant 4: every TakeShot must eventually be consumed by a
// matching Restore before the slot's index can be reused, so the
// total Restore count is never less than the TakeShot count.
func TestLoadCountAtLeastSaveCount(t *testing.T) {
	for _, tc := range []struct{ n, c uint32 }{{10, 2}, {10, 4}, {30, 5}, {100, 8}} {
		s, err := New(tc.c, tc.n)
		require.NoError(t, err)
		tl := drain(s)
		assert.GreaterOrEqual(t, tl.restores, tl.takeShots, "n=%d c=%d", tc.n, tc.c)
	}
}

// Single-timestep sweeps skip straight to the synthetic reverse leg.
func TestSingleTimestep(t *testing.T) {
	s, err := New(4, 1)
	require.NoError(t, err)

	assert.Equal(t, action.LastForward, s.Next().Kind)
	assert.Equal(t, action.ReverseStart, s.Next().Kind)
	term := s.Next()
	assert.Equal(t, action.Terminate, term.Kind)
	// Further calls keep returning Terminate.
	assert.Equal(t, action.Terminate, s.Next().Kind)
}

// Every checkpoint slot index handed out stays within [0, C).
func TestSlotIndicesInRange(t *testing.T) {
	s, err := New(3, 25)
	require.NoError(t, err)
	tl := drain(s)

	for _, a := range tl.actions {
		if a.Kind == action.TakeShot || a.Kind == action.Restore {
			assert.Less(t, a.Ckp, uint32(3))
		}
	}
}

func TestBinom(t *testing.T) {
	assert.Equal(t, uint64(1), binom(5, 0))
	assert.Equal(t, uint64(5), binom(5, 1))
	assert.Equal(t, uint64(10), binom(5, 2))
	assert.Equal(t, uint64(1), binom(0, 0))
	assert.Equal(t, uint64(0), binom(2, 5))
}
