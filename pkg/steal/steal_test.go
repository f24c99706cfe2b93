package steal_test

import (
	"testing"
	"time"

	"github.com/cuemby/xlb/pkg/steal"
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/workqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanHalvesCounts(t *testing.T) {
	counts := []workqueue.TypeCount{
		{WorkType: 1, Count: 10, AvgBytes: 100},
		{WorkType: 2, Count: 1, AvgBytes: 100},
	}
	shares := steal.Plan(counts, 1<<30)
	require.Len(t, shares, 2)
	assert.Equal(t, 5, shares[0].Count)
	assert.Equal(t, 1, shares[1].Count)
}

func TestPlanRespectsBudget(t *testing.T) {
	counts := []workqueue.TypeCount{
		{WorkType: 1, Count: 10, AvgBytes: 100},
	}
	shares := steal.Plan(counts, 250)
	require.Len(t, shares, 1)
	assert.Equal(t, 2, shares[0].Count)
}

func TestPeerSelectorExcludesSelf(t *testing.T) {
	sel := steal.NewPeerSelector(1, 3, 42)
	for i := 0; i < 50; i++ {
		peer, ok := sel.Pick()
		require.True(t, ok)
		assert.NotEqual(t, int64(1), peer)
	}
}

func TestPeerSelectorNoPeers(t *testing.T) {
	sel := steal.NewPeerSelector(0, 1, 1)
	_, ok := sel.Pick()
	assert.False(t, ok)
}

func TestIdleDetector(t *testing.T) {
	d := steal.NewIdleDetector(10 * time.Millisecond)
	assert.False(t, d.ShouldSteal(time.Now()))
	assert.True(t, d.ShouldSteal(time.Now().Add(20*time.Millisecond)))
	d.NoteWork()
	assert.False(t, d.ShouldSteal(time.Now()))
}

// TestScenarioSteal end-to-end: WorkQueue reports counts, Plan halves them,
// and StealableUntargeted produces exactly that many units, none targeted.
func TestScenarioStealEndToEnd(t *testing.T) {
	q := workqueue.New()
	for i := 0; i < 6; i++ {
		q.Put(&types.WorkUnit{ID: int64(i), WorkType: 3, Target: workqueue.AnyTarget, Payload: make([]byte, 40)})
	}
	q.Put(&types.WorkUnit{ID: 99, WorkType: 3, Target: 7, Payload: make([]byte, 40)})

	counts := q.UntargetedCounts()
	require.Len(t, counts, 1)
	assert.Equal(t, 6, counts[0].Count)

	shares := steal.Plan(counts, 1<<30)
	require.Len(t, shares, 1)
	assert.Equal(t, 3, shares[0].Count)

	stolen := q.StealableUntargeted(shares[0].WorkType, shares[0].Count)
	assert.Len(t, stolen, 3)
	assert.Equal(t, 4, q.CountQueued(3)) // 3 untargeted left + the 1 targeted
}
