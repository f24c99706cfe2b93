package transport_test

import (
	"testing"

	"github.com/cuemby/xlb/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutHeaderRoundTrip(t *testing.T) {
	h := transport.PutHeader{
		Type: 3, Priority: 1, Putter: 4, Answer: 5, Target: -1,
		Length: 5, Parallelism: 1, HasInline: true, Inline: []byte("hello"),
	}
	got, err := transport.DecodePutHeader(transport.EncodePutHeader(h))
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestPutHeaderNoInline(t *testing.T) {
	h := transport.PutHeader{Type: 3, Target: -1, Length: 0, Parallelism: 1}
	got, err := transport.DecodePutHeader(transport.EncodePutHeader(h))
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestGetResponseRoundTrip(t *testing.T) {
	g := transport.GetResponse{Code: 1, Length: 8, AnswerRank: 2, Type: 1, PayloadSource: 3, Parallelism: 1}
	got, err := transport.DecodeGetResponse(transport.EncodeGetResponse(g))
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestStoreHeaderRoundTrip(t *testing.T) {
	h := transport.StoreHeader{ID: 101, Type: 1, ReadDecr: 0, WriteDecr: 0, SubLen: 0}
	got, err := transport.DecodeStoreHeader(transport.EncodeStoreHeader(h))
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestRetrieveHeaderRoundTrip(t *testing.T) {
	h := transport.RetrieveHeader{
		ID:   7,
		Refc: transport.RetrievePlan{DecrSelfRead: 1, DecrSelfWrite: 0, IncrReferandsRead: 2},
		Sub:  []byte("k1"),
	}
	got, err := transport.DecodeRetrieveHeader(transport.EncodeRetrieveHeader(h))
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestSyncHeaderRoundTrip(t *testing.T) {
	h := transport.SyncHeader{
		Mode: transport.SyncModeSteal,
		StealCounts: []transport.StealCount{
			{WorkType: 1, Count: 4},
			{WorkType: 2, Count: 1},
		},
	}
	got, err := transport.DecodeSyncHeader(transport.EncodeSyncHeader(h))
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestSyncHeaderRequestModeNoCounts(t *testing.T) {
	h := transport.SyncHeader{Mode: transport.SyncModeRequest}
	got, err := transport.DecodeSyncHeader(transport.EncodeSyncHeader(h))
	require.NoError(t, err)
	assert.Equal(t, transport.SyncModeRequest, got.Mode)
	assert.Empty(t, got.StealCounts)
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "PUT", transport.TagPut.String())
	assert.Equal(t, "SYNC_REQUEST", transport.TagSyncRequest.String())
}
