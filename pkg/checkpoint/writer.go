package checkpoint

import (
	"time"

	"github.com/cuemby/xlb/pkg/varint"
)

// FlushMode selects when a Writer forces durability (spec §4.6 "Flush
// policies").
type FlushMode int

const (
	NoFlush FlushMode = iota
	PeriodicFlush
	AlwaysFlush
)

// FlushPolicy configures a Writer's automatic flush behavior. Interval is
// only meaningful for PeriodicFlush.
type FlushPolicy struct {
	Mode     FlushMode
	Interval time.Duration
}

// RecordLocation addresses a written value by rank-relative logical offset,
// which the Reader can re-derive the physical position from without
// storing raw file offsets in the index.
type RecordLocation struct {
	Rank   int32
	Offset int64
	Length int64
}

// Writer appends records to one rank's stripe of a shared checkpoint file.
// It assumes it is the sole writer for its rank; callers must not share a
// Writer across goroutines (matches the single-threaded server event loop
// of spec §5).
type Writer struct {
	backend Backend
	geo     geometry
	rank    int32
	policy  FlushPolicy

	curLogical  int64
	lastFlush   time.Time
	recordCount int
}

// NewWriter creates a Writer for rank, within a log of the given block size
// and rank count. The caller is responsible for having written (or
// verified) the block 0 header via WriteHeader.
func NewWriter(backend Backend, blockSize int64, ranks, rank int32, policy FlushPolicy) *Writer {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Writer{
		backend:   backend,
		geo:       geometry{blockSize: blockSize, ranks: ranks},
		rank:      rank,
		policy:    policy,
		lastFlush: time.Time{},
	}
}

// WriteHeader writes block 0's {block_size, ranks} header. Call once, from
// whichever rank is responsible for initializing the file (conventionally
// rank 0 or the master server).
func WriteHeader(backend Backend, blockSize int64, ranks int32) error {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if _, err := backend.WriteAt([]byte{BlockMagic}, 0); err != nil {
		return err
	}
	hdr := make([]byte, headerBlockSize)
	byteOrder.PutUint32(hdr[0:4], uint32(blockSize))
	byteOrder.PutUint32(hdr[4:8], uint32(ranks))
	if _, err := backend.WriteAt(hdr, 1); err != nil {
		return err
	}
	return backend.Sync()
}

// writeLogical writes data to the rank's stream starting at curLogical,
// emitting the block magic byte whenever a write begins a new block —
// including when a single call straddles a block boundary.
func (w *Writer) writeLogical(data []byte) error {
	cpb := w.geo.contentPerBlock()
	for len(data) > 0 {
		db := w.curLogical / cpb
		intra := w.curLogical % cpb
		if intra == 0 {
			if _, err := w.backend.WriteAt([]byte{BlockMagic}, w.geo.blockStartOffset(w.rank, db)); err != nil {
				return err
			}
		}
		avail := cpb - intra
		n := int64(len(data))
		if n > avail {
			n = avail
		}
		off := w.geo.offsetOf(w.rank, w.curLogical)
		if _, err := w.backend.WriteAt(data[:n], off); err != nil {
			return err
		}
		data = data[n:]
		w.curLogical += n
	}
	return nil
}

// WriteRecord appends body as one record and returns its location for
// indexing. persist forces an immediate Sync regardless of policy (the
// spec's per-call PERSIST_FLUSH).
func (w *Writer) WriteRecord(body []byte, persist bool) (RecordLocation, error) {
	lenBuf := varint.AppendUvarint(nil, uint64(len(body)))
	crc := crc32Of(lenBuf, body)

	header := make([]byte, 0, 8+len(lenBuf))
	header = appendUint32BE(header, SyncMarker)
	header = appendUint32BE(header, crc)
	header = append(header, lenBuf...)

	if err := w.writeLogical(header); err != nil {
		return RecordLocation{}, err
	}
	bodyOffset := w.curLogical
	if err := w.writeLogical(body); err != nil {
		return RecordLocation{}, err
	}
	w.recordCount++

	if persist || w.policy.Mode == AlwaysFlush || w.duePeriodic() {
		if err := w.Flush(); err != nil {
			return RecordLocation{}, err
		}
	}
	return RecordLocation{Rank: w.rank, Offset: bodyOffset, Length: int64(len(body))}, nil
}

func (w *Writer) duePeriodic() bool {
	if w.policy.Mode != PeriodicFlush {
		return false
	}
	return time.Since(w.lastFlush) >= w.policy.Interval
}

// Flush forces the backend to persist all writes so far.
func (w *Writer) Flush() error {
	w.lastFlush = time.Now()
	return w.backend.Sync()
}

// Close writes the zero-length end-of-rank marker if the current block has
// room for it, then flushes. Per spec §9 (Open question), a reader cannot
// distinguish a clean close without room for the marker from a crash —
// that ambiguity is preserved deliberately, not patched over.
func (w *Writer) Close() error {
	cpb := w.geo.contentPerBlock()
	intra := w.curLogical % cpb
	lenBuf := varint.AppendUvarint(nil, 0)
	need := int64(4 + 4 + len(lenBuf))
	if cpb-intra >= need {
		if _, err := w.WriteRecord(nil, false); err != nil {
			return err
		}
	}
	return w.Flush()
}

// RecordCount returns the number of records written so far (diagnostic use
// only; not part of the on-disk format).
func (w *Writer) RecordCount() int { return w.recordCount }
