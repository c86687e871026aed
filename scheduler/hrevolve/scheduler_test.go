package hrevolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NHR-FAU/revolve-go/action"
	"github.com/NHR-FAU/revolve-go/arch"
)

type tally struct {
	takeShots int
	restores  int
	discards  int
	reverses  int
	advances  int
	actions   []action.Action
}

func drain(t *testing.T, s *Scheduler, limit int) tally {
	t.Helper()
	var tl tally
	for i := 0; i < limit; i++ {
		a := s.Next()
		tl.actions = append(tl.actions, a)
		switch a.Kind {
		case action.TakeShot:
			tl.takeShots++
		case action.Restore:
			tl.restores++
		case action.Discard:
			tl.discards++
		case action.Reverse:
			tl.reverses++
		case action.Advance:
			tl.advances++
		case action.Terminate:
			return tl
		}
	}
	t.Fatalf("schedule did not terminate within %d actions", limit)
	return tl
}

func singleTier(capacity uint32) arch.Architecture {
	a, err := arch.New([]arch.Tier{{Size: capacity, W: 1, R: 1}})
	if err != nil {
		panic(err)
	}
	return a
}

func TestNewRejectsZeroTimesteps(t *testing.T) {
	_, err := New(0, singleTier(4), 1, 1)
	assert.Error(t, err)
}

func TestNewRejectsEmptyArchitecture(t *testing.T) {
	_, err := New(10, arch.Architecture{}, 1, 1)
	assert.Error(t, err)
}

// Invariant 3: total adjoint (Reverse) steps equals the timestep count,
// across a range of single-tier capacities.
func TestReverseStepCountEqualsN(t *testing.T) {
	for _, n := range []uint32{1, 2, 3, 7, 16} {
		for _, c := range []uint32{1, 2, 5} {
			s, err := New(n, singleTier(c), 1, 1)
			require.NoError(t, err)
			tl := drain(t, s, 100000)
			assert.Equal(t, int(n), tl.reverses, "n=%d c=%d", n, c)
		}
	}
}

// Invariant 4: every checkpoint written is read back at least once
// before it is discarded, so load_count >= save_count. A checkpoint
// can be read several times (with one slot, the same snapshot is
// re-read before every recomputed step).
func TestRestoreCountAtLeastTakeShots(t *testing.T) {
	for _, n := range []uint32{5, 10, 20} {
		for _, c := range []uint32{1, 2, 4} {
			s, err := New(n, singleTier(c), 1, 1)
			require.NoError(t, err)
			tl := drain(t, s, 100000)
			assert.GreaterOrEqual(t, tl.restores, tl.takeShots, "n=%d c=%d", n, c)
		}
	}
}

// Every TakeShot must eventually be freed by a Discard (explicit or
// runtime-injected), or the per-tier Push/Pop stacks the driver keeps
// would leak or underflow entries.
func TestEveryShotIsEventuallyDiscarded(t *testing.T) {
	for _, n := range []uint32{4, 9, 15} {
		for _, c := range []uint32{1, 3, 6} {
			s, err := New(n, singleTier(c), 1, 1)
			require.NoError(t, err)
			tl := drain(t, s, 100000)
			assert.Equal(t, tl.takeShots, tl.discards, "n=%d c=%d", n, c)
		}
	}
}

// A single-tier architecture only ever addresses storage index 0, and
// Ckp is left unset throughout — H-Revolve drives a per-tier stack via
// Push/Peek/Pop rather than an explicit slot key.
func TestSingleTierStorageAddressing(t *testing.T) {
	s, err := New(30, singleTier(4), 1, 1)
	require.NoError(t, err)
	tl := drain(t, s, 100000)

	for _, a := range tl.actions {
		if a.Kind == action.TakeShot || a.Kind == action.Restore || a.Kind == action.Discard {
			assert.Zero(t, a.StorageIndex)
			assert.Zero(t, a.Ckp)
		}
	}
}

// A two-level architecture must still terminate cleanly and process
// exactly n adjoint steps; the second, larger/slower tier only changes
// which actions carry StorageIndex == 1.
func TestTwoLevelArchitectureRuns(t *testing.T) {
	a, err := arch.New([]arch.Tier{
		{Size: 2, W: 1, R: 1},
		{Size: 8, W: 4, R: 4},
	})
	require.NoError(t, err)

	s, err := New(25, a, 1, 1)
	require.NoError(t, err)
	tl := drain(t, s, 100000)

	assert.Equal(t, 25, tl.reverses)
	assert.Equal(t, tl.takeShots, tl.discards)

	sawSecondTier := false
	for _, act := range tl.actions {
		if act.StorageIndex == 1 {
			sawSecondTier = true
		}
	}
	assert.True(t, sawSecondTier, "expected the slower tier to be used at all for a run this long with only 2 slots on the fast tier")
}

func TestArgminLastTieBreak(t *testing.T) {
	assert.Equal(t, 3, argminLast([]float64{5, 1, 1, 2}))
	assert.Equal(t, 1, argminLast([]float64{1, 2, 3}))
}

// Timesteps reports the N the schedule was built against, the
// denominator driver.Revolver.Ratio divides by.
func TestTimesteps(t *testing.T) {
	s, err := New(17, singleTier(4), 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 17, s.Timesteps())
}

// Scenario S5: two tiers (size=2, w=0, r=0) and (size=10, w=2, r=2),
// N=10. Makespan must match the DP table's own opt[1][10][10] entry,
// and the schedule must still emit exactly N Reverse actions.
func TestMakespanMatchesS5Scenario(t *testing.T) {
	a, err := arch.New([]arch.Tier{
		{Size: 2, W: 0, R: 0},
		{Size: 10, W: 2, R: 2},
	})
	require.NoError(t, err)

	s, err := New(10, a, 1, 1)
	require.NoError(t, err)

	want := getHoptTable(10, a, 1, 1).opt[1][10][10]
	assert.Equal(t, want, s.Makespan())

	tl := drain(t, s, 100000)
	assert.Equal(t, 10, tl.reverses)
}

// Property 6 (first half): for a fixed architecture, makespan must be
// non-decreasing as timesteps grows — processing more steps can never
// become cheaper.
func TestMakespanMonotonicInTimesteps(t *testing.T) {
	a := singleTier(4)
	prev := -1.0
	for n := uint32(1); n <= 20; n++ {
		s, err := New(n, a, 1, 1)
		require.NoError(t, err)
		m := s.Makespan()
		assert.GreaterOrEqualf(t, m, prev, "makespan decreased going from fewer to %d timesteps", n)
		prev = m
	}
}

// Property 6 (second half): for fixed N, adding a (cheap) tier can
// only decrease or preserve the modeled makespan, never increase it.
func TestMakespanNonIncreasingWhenTierAdded(t *testing.T) {
	const n = 12

	one := singleTier(3)
	sOne, err := New(n, one, 1, 1)
	require.NoError(t, err)

	two, err := arch.New([]arch.Tier{
		{Size: 3, W: 1, R: 1},
		{Size: 10, W: 5, R: 5},
	})
	require.NoError(t, err)
	sTwo, err := New(n, two, 1, 1)
	require.NoError(t, err)

	assert.LessOrEqual(t, sTwo.Makespan(), sOne.Makespan())
}
