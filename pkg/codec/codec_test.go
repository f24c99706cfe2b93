package codec_test

import (
	"testing"

	"github.com/cuemby/xlb/pkg/codec"
	"github.com/cuemby/xlb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, typ types.ValueType, v types.Value) types.Value {
	t.Helper()
	b, err := codec.Pack(typ, v)
	require.NoError(t, err)
	got, err := codec.Unpack(typ, b)
	require.NoError(t, err)
	return got
}

func TestPackUnpackPrimitives(t *testing.T) {
	i := roundTrip(t, types.TypeInteger, types.Value{Type: types.TypeInteger, Integer: -42})
	assert.EqualValues(t, -42, i.Integer)

	f := roundTrip(t, types.TypeFloat, types.Value{Type: types.TypeFloat, Float: 3.5})
	assert.InDelta(t, 3.5, f.Float, 0)

	s := roundTrip(t, types.TypeString, types.Value{Type: types.TypeString, Bytes: []byte("hello")})
	assert.Equal(t, "hello", string(s.Bytes))

	blob := roundTrip(t, types.TypeBlob, types.Value{Type: types.TypeBlob, Bytes: []byte{1, 2, 3}})
	assert.Equal(t, []byte{1, 2, 3}, blob.Bytes)

	ref := roundTrip(t, types.TypeRef, types.Value{Type: types.TypeRef, Ref: 99})
	assert.EqualValues(t, 99, ref.Ref)

	fr := roundTrip(t, types.TypeFileRef, types.Value{Type: types.TypeFileRef, FileRef: types.FileRefValue{ID1: 1, ID2: 2, Flag: true}})
	assert.Equal(t, types.FileRefValue{ID1: 1, ID2: 2, Flag: true}, fr.FileRef)
}

func TestPackUnpackStruct(t *testing.T) {
	s := types.Value{Type: types.TypeStruct, Struct: &types.StructValue{
		Tag: 7,
		Fields: []types.StructField{
			{Type: types.TypeInteger, Value: types.Value{Type: types.TypeInteger, Integer: 1}},
			{Type: types.TypeString, Value: types.Value{Type: types.TypeString, Bytes: []byte("x")}},
		},
	}}
	got := roundTrip(t, types.TypeStruct, s)
	require.NotNil(t, got.Struct)
	assert.EqualValues(t, 7, got.Struct.Tag)
	require.Len(t, got.Struct.Fields, 2)
	assert.EqualValues(t, 1, got.Struct.Fields[0].Value.Integer)
	assert.Equal(t, "x", string(got.Struct.Fields[1].Value.Bytes))
}

func TestPackUnpackContainer(t *testing.T) {
	c := types.NewContainer(types.TypeString, types.TypeInteger)
	e1, _ := c.Reserve([]byte("a"))
	e1.Filled = true
	e1.Value = types.Value{Type: types.TypeInteger, Integer: 10}
	c.Reserve([]byte("b")) // left unfilled - reservation sentinel

	got := roundTrip(t, types.TypeContainer, types.Value{Type: types.TypeContainer, Container: c})
	require.NotNil(t, got.Container)
	assert.Equal(t, 2, got.Container.Len())

	ea, ok := got.Container.Lookup([]byte("a"))
	require.True(t, ok)
	assert.True(t, ea.Filled)
	assert.EqualValues(t, 10, ea.Value.Integer)

	eb, ok := got.Container.Lookup([]byte("b"))
	require.True(t, ok)
	assert.False(t, eb.Filled)
}

func TestPackUnpackMultiset(t *testing.T) {
	m := types.NewMultiset(types.TypeString)
	m.Append(types.Value{Type: types.TypeString, Bytes: []byte("one")})
	m.Append(types.Value{Type: types.TypeString, Bytes: []byte("two")})

	got := roundTrip(t, types.TypeMultiset, types.Value{Type: types.TypeMultiset, Multiset: m})
	require.NotNil(t, got.Multiset)
	require.Len(t, got.Multiset.Elems, 2)
	assert.Equal(t, "one", string(got.Multiset.Elems[0].Bytes))
	assert.Equal(t, "two", string(got.Multiset.Elems[1].Bytes))
}

func TestUnpackShortBuffer(t *testing.T) {
	_, err := codec.Unpack(types.TypeInteger, []byte{1, 2})
	assert.Error(t, err)

	_, err = codec.Unpack(types.TypeContainer, []byte{1})
	assert.Error(t, err)
}
