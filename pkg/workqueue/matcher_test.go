package workqueue_test

import (
	"testing"

	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/workqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutThenGetMatches(t *testing.T) {
	m := workqueue.NewMatcher()
	w := &types.WorkUnit{ID: 1, WorkType: 5, Target: workqueue.AnyTarget, Parallelism: 1}
	outcome, ranks, err := m.Put(w)
	require.NoError(t, err)
	assert.Equal(t, workqueue.PutQueued, outcome)
	assert.Nil(t, ranks)

	got, ok := m.Get(42, 5)
	require.True(t, ok)
	assert.Equal(t, int64(1), got.ID)
}

func TestGetThenPutRedirects(t *testing.T) {
	m := workqueue.NewMatcher()
	_, ok := m.Get(42, 5)
	assert.False(t, ok)

	w := &types.WorkUnit{ID: 2, WorkType: 5, Target: workqueue.AnyTarget, Parallelism: 1}
	outcome, ranks, err := m.Put(w)
	require.NoError(t, err)
	assert.Equal(t, workqueue.PutRedirect, outcome)
	assert.Equal(t, []int64{42}, ranks)
}

func TestTargetedPutOnlyMatchesTarget(t *testing.T) {
	m := workqueue.NewMatcher()
	_, ok := m.Get(1, 5)
	assert.False(t, ok)

	w := &types.WorkUnit{ID: 3, WorkType: 5, Target: 99, Parallelism: 1}
	outcome, _, err := m.Put(w)
	require.NoError(t, err)
	assert.Equal(t, workqueue.PutQueued, outcome)

	_, ok = m.Get(1, 5)
	assert.False(t, ok)

	got, ok := m.Get(99, 5)
	require.True(t, ok)
	assert.Equal(t, int64(3), got.ID)
}

func TestIGetMissReturnsImmediately(t *testing.T) {
	m := workqueue.NewMatcher()
	_, ok := m.IGet(1, 5)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Requests.CountParked(5))
}

// TestScenarioS4ParallelTask: a parallelism=4 task does not match with only
// 2 parked workers; once 2 more park, all 4 release together with the
// matching rank list.
func TestScenarioS4ParallelTask(t *testing.T) {
	m := workqueue.NewMatcher()
	const typ = int32(7)

	_, ok := m.Get(1, typ)
	assert.False(t, ok)
	_, ok = m.Get(2, typ)
	assert.False(t, ok)

	w := &types.WorkUnit{ID: 9, WorkType: typ, Target: workqueue.AnyTarget, Parallelism: 4}
	outcome, ranks, err := m.Put(w)
	require.NoError(t, err)
	assert.Equal(t, workqueue.PutQueued, outcome)
	assert.Nil(t, ranks)

	_, ok = m.Get(3, typ)
	assert.False(t, ok)
	_, matchedRanks, matched := m.RetryParallel(typ)
	assert.False(t, matched)
	_ = matchedRanks

	_, ok = m.Get(4, typ)
	assert.False(t, ok)
	matchedWork, matchedRanks, matched := m.RetryParallel(typ)
	require.True(t, matched)
	assert.Equal(t, int64(9), matchedWork.ID)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4}, matchedRanks)
}

func TestPriorityOrdering(t *testing.T) {
	m := workqueue.NewMatcher()
	low := &types.WorkUnit{ID: 1, WorkType: 1, Target: workqueue.AnyTarget, Priority: 1, Timestamp: 1}
	high := &types.WorkUnit{ID: 2, WorkType: 1, Target: workqueue.AnyTarget, Priority: 5, Timestamp: 2}
	_, _, err := m.Put(low)
	require.NoError(t, err)
	_, _, err = m.Put(high)
	require.NoError(t, err)

	got, ok := m.Get(1, 1)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.ID)
}
