package varint_test

import (
	"bytes"
	"testing"

	"github.com/cuemby/xlb/pkg/varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, ^uint64(0)}
	for _, v := range cases {
		buf := make([]byte, varint.MaxLen)
		n := varint.PutUvarint(buf, v)
		got, m, err := varint.Uvarint(buf[:n])
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, n, m)
	}
}

func TestUvarintShortBuffer(t *testing.T) {
	_, _, err := varint.Uvarint(nil)
	assert.Error(t, err)
}

func TestPutUvarintPadded(t *testing.T) {
	buf := make([]byte, varint.MaxLen)
	n := varint.PutUvarintPadded(buf, 4096)
	assert.Equal(t, varint.MaxLen, n)
	got, m, err := varint.Uvarint(buf)
	require.NoError(t, err)
	assert.EqualValues(t, 4096, got)
	assert.Equal(t, varint.MaxLen, m)
}

func TestReadUvarint(t *testing.T) {
	buf := varint.AppendUvarint(nil, 123456)
	v, err := varint.ReadUvarint(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.EqualValues(t, 123456, v)
}
