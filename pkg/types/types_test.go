package types_test

import (
	"testing"

	"github.com/cuemby/xlb/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestContainerReserveThenFill(t *testing.T) {
	c := types.NewContainer(types.TypeString, types.TypeInteger)
	e, created := c.Reserve([]byte("k1"))
	assert.True(t, created)
	assert.False(t, e.Filled)

	e2, created2 := c.Reserve([]byte("k1"))
	assert.False(t, created2)
	assert.Same(t, e, e2)

	e.Value = types.Value{Type: types.TypeInteger, Integer: 42}
	e.Filled = true

	got, ok := c.Lookup([]byte("k1"))
	assert.True(t, ok)
	assert.True(t, got.Filled)
	assert.EqualValues(t, 42, got.Value.Integer)
	assert.Equal(t, 1, c.Len())
}

func TestMultisetAppend(t *testing.T) {
	m := types.NewMultiset(types.TypeString)
	m.Append(types.Value{Type: types.TypeString, Bytes: []byte("a")})
	m.Append(types.Value{Type: types.TypeString, Bytes: []byte("b")})
	assert.Len(t, m.Elems, 2)
}

func TestValueReferands(t *testing.T) {
	v := types.Value{
		Type: types.TypeStruct,
		Struct: &types.StructValue{
			Tag: 1,
			Fields: []types.StructField{
				{Type: types.TypeRef, Value: types.Value{Type: types.TypeRef, Ref: 7}},
				{Type: types.TypeFileRef, Value: types.Value{Type: types.TypeFileRef, FileRef: types.FileRefValue{ID1: 8, ID2: 9}}},
			},
		},
	}
	assert.ElementsMatch(t, []int64{7, 8, 9}, v.Referands())
}

func TestDatumFreeable(t *testing.T) {
	d := types.NewDatum(1, types.TypeInteger, "x", false)
	assert.True(t, d.Freeable())

	d.ReadRefcount = 1
	assert.False(t, d.Freeable())

	d.ReadRefcount = 0
	d.Permanent = true
	assert.False(t, d.Freeable())
}

func TestWorkUnitHelpers(t *testing.T) {
	w := &types.WorkUnit{Target: -1, Parallelism: 1}
	assert.True(t, w.Untargeted())
	assert.False(t, w.Parallel())

	w.Parallelism = 4
	assert.True(t, w.Parallel())
}
