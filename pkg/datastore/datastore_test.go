package datastore_test

import (
	"testing"

	"github.com/cuemby/xlb/pkg/codec"
	"github.com/cuemby/xlb/pkg/datastore"
	"github.com/cuemby/xlb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packInt(t *testing.T, v int64) []byte {
	t.Helper()
	b, err := codec.Pack(types.TypeInteger, types.Value{Type: types.TypeInteger, Integer: v})
	require.NoError(t, err)
	return b
}

// TestScenarioS1SimpleStoreRetrieve: create id 101 INTEGER (r=1,w=1); store
// 42; retrieve => 42, length 8. After retrieve with decr_self.read=1,
// refcounts are (0,1); after Refcount_incr(write=-1) the datum is
// destroyed; a subsequent retrieve yields NotFound.
func TestScenarioS1SimpleStoreRetrieve(t *testing.T) {
	s := datastore.New(0, 1, false)
	id, err := s.Create(101, types.TypeInteger, types.TypeNone, types.TypeNone, "x", 1, 1, false)
	require.NoError(t, err)
	require.EqualValues(t, 101, id)

	_, err = s.Store(id, nil, types.TypeInteger, packInt(t, 42), datastore.RefcountDelta{})
	require.NoError(t, err)

	typ, raw, err := s.Retrieve(id, nil, datastore.RetrievePlan{DecrSelfRead: 1})
	require.NoError(t, err)
	assert.Equal(t, types.TypeInteger, typ)
	assert.Len(t, raw, 8)
	v, err := codec.Unpack(typ, raw)
	require.NoError(t, err)
	assert.EqualValues(t, 42, v.Integer)

	_, err = s.RefcountIncr(id, 0, -1, false)
	require.NoError(t, err)

	_, _, err = s.Retrieve(id, nil, datastore.RetrievePlan{})
	require.Error(t, err)
}

// TestScenarioS2ContainerSubscription: create container id 7 INTEGER
// keys/REF vals; Subscribe(7,"k1") on rank 3; store (7,"k1",REF=101) from
// rank 5; a close-style notification for "k1" arrives at rank 3.
func TestScenarioS2ContainerSubscription(t *testing.T) {
	s := datastore.New(0, 1, false)
	id, err := s.Create(7, types.TypeContainer, types.TypeInteger, types.TypeRef, "c", 1, 1, false)
	require.NoError(t, err)

	notSub, err := s.Subscribe(id, []byte("k1"), 3)
	require.NoError(t, err)
	assert.False(t, notSub)

	refBytes, err := codec.Pack(types.TypeRef, types.Value{Type: types.TypeRef, Ref: 101})
	require.NoError(t, err)
	notifs, err := s.Store(id, []byte("k1"), types.TypeRef, refBytes, datastore.RefcountDelta{})
	require.NoError(t, err)

	require.Len(t, notifs, 1)
	assert.Equal(t, types.KindSubscript, notifs[0].Kind)
	assert.EqualValues(t, 3, notifs[0].Rank)
	assert.Equal(t, "k1", string(notifs[0].Subscript))
}

// TestScenarioS3InsertAtomicRace: two Insert_atomic calls on the same
// subscript; exactly one reports created=true. The winner's Store
// succeeds; the loser's later Store is Rejected.
func TestScenarioS3InsertAtomicRace(t *testing.T) {
	s := datastore.New(0, 1, false)
	id, err := s.Create(7, types.TypeContainer, types.TypeInteger, types.TypeInteger, "c", 1, 1, false)
	require.NoError(t, err)

	createdA, presentA, err := s.InsertAtomic(id, []byte("k2"))
	require.NoError(t, err)
	createdB, presentB, err := s.InsertAtomic(id, []byte("k2"))
	require.NoError(t, err)

	assert.True(t, createdA)
	assert.False(t, presentA)
	assert.False(t, createdB)
	assert.False(t, presentB)

	_, err = s.Store(id, []byte("k2"), types.TypeInteger, packInt(t, 7), datastore.RefcountDelta{})
	require.NoError(t, err)

	_, err = s.Store(id, []byte("k2"), types.TypeInteger, packInt(t, 8), datastore.RefcountDelta{})
	assert.Error(t, err)
}

func TestDoubleDeclareRejected(t *testing.T) {
	s := datastore.New(0, 1, false)
	_, err := s.Create(1, types.TypeInteger, types.TypeNone, types.TypeNone, "x", 1, 1, false)
	require.NoError(t, err)
	_, err = s.Create(1, types.TypeInteger, types.TypeNone, types.TypeNone, "x", 1, 1, false)
	assert.Error(t, err)
}

func TestRefcountNeverNegative(t *testing.T) {
	s := datastore.New(0, 1, false)
	id, err := s.Create(datastore.NullID, types.TypeInteger, types.TypeNone, types.TypeNone, "x", 1, 1, false)
	require.NoError(t, err)
	_, err = s.RefcountIncr(id, -5, 0, false)
	assert.Error(t, err)
}

func TestLockUnlock(t *testing.T) {
	s := datastore.New(0, 1, false)
	id, err := s.Create(datastore.NullID, types.TypeInteger, types.TypeNone, types.TypeNone, "x", 1, 1, false)
	require.NoError(t, err)

	acquired, err := s.Lock(id, 1)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired2, err := s.Lock(id, 2)
	require.NoError(t, err)
	assert.False(t, acquired2)

	require.NoError(t, s.Unlock(id, 1))
	acquired3, err := s.Lock(id, 2)
	require.NoError(t, err)
	assert.True(t, acquired3)
}
