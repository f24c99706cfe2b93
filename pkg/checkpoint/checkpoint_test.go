package checkpoint_test

import (
	"fmt"
	"testing"

	"github.com/cuemby/xlb/pkg/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBlockSize = 256 // small block size to exercise boundary-straddling writes

func TestLogRoundTrip(t *testing.T) {
	backend := checkpoint.NewMemBackend()
	require.NoError(t, checkpoint.WriteHeader(backend, testBlockSize, 2))

	w := checkpoint.NewWriter(backend, testBlockSize, 2, 0, checkpoint.FlushPolicy{Mode: checkpoint.AlwaysFlush})
	var want [][]byte
	for i := 0; i < 40; i++ {
		body := []byte(fmt.Sprintf("record-%03d-payload", i))
		want = append(want, body)
		_, err := w.WriteRecord(body, false)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r := checkpoint.OpenReader(backend, testBlockSize, 2, 0)
	var got [][]byte
	for {
		body, ok, err := r.ReadRecord()
		if err != nil {
			break
		}
		if ok {
			got = append(got, body)
		}
	}
	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i], got[i])
	}
	assert.Equal(t, len(want), r.Stats().Valid)
	assert.Equal(t, 0, r.Stats().Invalid)
}

func TestLogStride(t *testing.T) {
	backend := checkpoint.NewMemBackend()
	const ranks = 4
	require.NoError(t, checkpoint.WriteHeader(backend, testBlockSize, ranks))

	for rank := int32(0); rank < ranks; rank++ {
		w := checkpoint.NewWriter(backend, testBlockSize, ranks, rank, checkpoint.FlushPolicy{Mode: checkpoint.AlwaysFlush})
		for i := 0; i < 20; i++ {
			_, err := w.WriteRecord([]byte(fmt.Sprintf("r%d-%d", rank, i)), false)
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())
	}

	for rank := int32(0); rank < ranks; rank++ {
		r := checkpoint.OpenReader(backend, testBlockSize, ranks, rank)
		count := 0
		for {
			body, ok, err := r.ReadRecord()
			if err != nil {
				break
			}
			if ok {
				assert.Equal(t, fmt.Sprintf("r%d-%d", rank, count), string(body))
				count++
			}
		}
		assert.Equal(t, 20, count)
	}
}

func TestLogResync(t *testing.T) {
	backend := checkpoint.NewMemBackend()
	require.NoError(t, checkpoint.WriteHeader(backend, testBlockSize, 1))

	w := checkpoint.NewWriter(backend, testBlockSize, 1, 0, checkpoint.FlushPolicy{Mode: checkpoint.AlwaysFlush})
	locs := make([]checkpoint.RecordLocation, 0, 30)
	for i := 0; i < 30; i++ {
		loc, err := w.WriteRecord([]byte(fmt.Sprintf("item-%02d", i)), false)
		require.NoError(t, err)
		locs = append(locs, loc)
	}
	require.NoError(t, w.Close())

	// Corrupt the body of record 15.
	badLoc := locs[15]
	backend.Corrupt(offsetForTest(testBlockSize, 1, 0, badLoc.Offset), 2)

	r := checkpoint.OpenReader(backend, testBlockSize, 1, 0)
	var gotValid []string
	invalidSeen := 0
	for {
		body, ok, err := r.ReadRecord()
		if err != nil {
			break
		}
		if ok {
			gotValid = append(gotValid, string(body))
		} else {
			invalidSeen++
		}
	}
	assert.Equal(t, 1, invalidSeen)
	assert.Equal(t, 29, len(gotValid))
	assert.Equal(t, 29, r.Stats().Valid)
	assert.Equal(t, 1, r.Stats().Invalid)
}

// offsetForTest re-derives the physical file offset of a logical position,
// mirroring the unexported geometry math, so the test can corrupt bytes
// without reaching into package internals.
func offsetForTest(blockSize int64, ranks, rank int32, logical int64) int64 {
	cpb := blockSize - 1
	db := logical / cpb
	intra := logical % cpb
	physBlock := 1 + db*int64(ranks) + int64(rank)
	return physBlock*blockSize + 1 + intra
}

func TestIndexInlineVsOutOfLine(t *testing.T) {
	backend := checkpoint.NewMemBackend()
	require.NoError(t, checkpoint.WriteHeader(backend, testBlockSize, 1))
	w := checkpoint.NewWriter(backend, testBlockSize, 1, 0, checkpoint.FlushPolicy{Mode: checkpoint.AlwaysFlush})
	ix := checkpoint.NewIndex(8)
	l := checkpoint.NewLog(w, ix)

	require.NoError(t, l.Put("small", []byte("tiny"), false))
	require.NoError(t, l.Put("big", []byte("this value exceeds the inline threshold"), false))

	v, ok, err := l.Get(backend, testBlockSize, 1, "small")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tiny", string(v))

	v, ok, err = l.Get(backend, testBlockSize, 1, "big")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "this value exceeds the inline threshold", string(v))
}

func TestScenarioS5CheckpointResync(t *testing.T) {
	backend := checkpoint.NewMemBackend()
	require.NoError(t, checkpoint.WriteHeader(backend, checkpoint.DefaultBlockSize, 1))
	w := checkpoint.NewWriter(backend, checkpoint.DefaultBlockSize, 1, 0, checkpoint.FlushPolicy{Mode: checkpoint.AlwaysFlush})

	locs := make([]checkpoint.RecordLocation, 0, 1000)
	for i := 0; i < 1000; i++ {
		loc, err := w.WriteRecord([]byte(fmt.Sprintf("value-%04d", i)), false)
		require.NoError(t, err)
		locs = append(locs, loc)
	}
	require.NoError(t, w.Close())

	target := locs[499]
	backend.Corrupt(offsetForTest(checkpoint.DefaultBlockSize, 1, 0, target.Offset)+2, 4)

	r := checkpoint.OpenReader(backend, checkpoint.DefaultBlockSize, 1, 0)
	validCount := 0
	for {
		_, ok, err := r.ReadRecord()
		if err != nil {
			break
		}
		if ok {
			validCount++
		}
	}
	assert.Equal(t, 999, r.Stats().Valid)
	assert.Equal(t, 1, r.Stats().Invalid)
	assert.Equal(t, 999, validCount)
}
