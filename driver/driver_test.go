package driver_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NHR-FAU/revolve-go/arch"
	"github.com/NHR-FAU/revolve-go/checkpoint"
	"github.com/NHR-FAU/revolve-go/driver"
	"github.com/NHR-FAU/revolve-go/scheduler/hrevolve"
	"github.com/NHR-FAU/revolve-go/scheduler/revolve"
	"github.com/NHR-FAU/revolve-go/storage"
)

// linearView models one scalar live value, persisted in a one-element
// slice so Load can overwrite it in place rather than handing the
// driver a fresh copy each call.
type linearView struct {
	data []float64
}

func newLinearView() *linearView { return &linearView{data: []float64{0}} }

func (v *linearView) Buffers() []storage.Buffer[float64] {
	return []storage.Buffer[float64]{{Shape: []int{1}, Data: v.data}}
}

// revCall records one adjoint step along with the live value observed
// at call time, so the test can check it was seeded correctly.
type revCall struct {
	tStart uint32
	seen   float64
}

func newOps(v *linearView) (checkpoint.Operator, checkpoint.Operator, *[]revCall) {
	var calls []revCall
	fwd := checkpoint.OperatorFunc(func(tStart, tEnd uint32) error {
		v.data[0] = float64(tEnd)
		return nil
	})
	rev := checkpoint.OperatorFunc(func(tStart, tEnd uint32) error {
		calls = append(calls, revCall{tStart: tStart, seen: v.data[0]})
		return nil
	})
	return fwd, rev, &calls
}

func TestSingleLevelRoundTrip(t *testing.T) {
	const n, c = 12, 3

	sched, err := revolve.New(c, n)
	require.NoError(t, err)

	view := newLinearView()
	fwd, rev, calls := newOps(view)
	tier := storage.NewMemory[float64](c, 1)

	d := driver.NewSingleLevel[float64](sched, tier, fwd, rev, view, nil)
	require.NoError(t, d.ApplyForward())
	require.NoError(t, d.ApplyReverse())

	assertFullAdjointSweep(t, *calls, n)
}

// Classic Revolve with checkpoints == timesteps needs no recomputation
// at all: the reverse sweep dispatches no Advance, so the ratio is
// exactly 1.0.
func TestRatioIsOneWhenCheckpointsCoverEveryStep(t *testing.T) {
	const n = 8

	sched, err := revolve.New(n, n)
	require.NoError(t, err)

	view := newLinearView()
	fwd, rev, _ := newOps(view)
	tier := storage.NewMemory[float64](n, 1)

	d := driver.NewSingleLevel[float64](sched, tier, fwd, rev, view, nil)
	require.NoError(t, d.ApplyForward())
	require.NoError(t, d.ApplyReverse())

	assert.Equal(t, 1.0, d.Ratio())
}

// With far fewer checkpoints than timesteps, Classic Revolve must
// recompute some steps more than once, so the ratio exceeds 1.0.
func TestRatioExceedsOneWhenCheckpointsAreSparse(t *testing.T) {
	const n, c = 40, 2

	sched, err := revolve.New(c, n)
	require.NoError(t, err)

	view := newLinearView()
	fwd, rev, _ := newOps(view)
	tier := storage.NewMemory[float64](c, 1)

	d := driver.NewSingleLevel[float64](sched, tier, fwd, rev, view, nil)
	require.NoError(t, d.ApplyForward())
	require.NoError(t, d.ApplyReverse())

	assert.Greater(t, d.Ratio(), 1.0)
}

func TestMultiLevelRoundTrip(t *testing.T) {
	const n = 14

	a, err := arch.New([]arch.Tier{
		{Size: 2, W: 1, R: 1},
		{Size: 6, W: 4, R: 4},
	})
	require.NoError(t, err)

	sched, err := hrevolve.New(n, a, 1, 1)
	require.NoError(t, err)

	view := newLinearView()
	fwd, rev, calls := newOps(view)
	tiers := []storage.Tier[float64]{
		storage.NewMemory[float64](a.Tiers[0].Size, 1),
		storage.NewMemory[float64](a.Tiers[1].Size, 1),
	}

	d := driver.NewMultiLevel[float64](sched, tiers, fwd, rev, view, nil)
	require.NoError(t, d.ApplyForward())
	require.NoError(t, d.ApplyReverse())

	assertFullAdjointSweep(t, *calls, n)
}

// assertFullAdjointSweep checks invariant 3 (exactly n adjoint steps,
// one per timestep) and that each step's live value was correctly
// seeded to tStart+1 — the post-step state the reverse operator needs
// — before the reverse operator ran.
func assertFullAdjointSweep(t *testing.T, calls []revCall, n uint32) {
	t.Helper()
	require.Len(t, calls, int(n))

	seen := make([]uint32, len(calls))
	for i, c := range calls {
		assert.Equal(t, float64(c.tStart)+1, c.seen, "tStart=%d", c.tStart)
		seen[i] = c.tStart
	}

	sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
	for i, v := range seen {
		assert.Equal(t, uint32(i), v)
	}
}
