package checkpoint

import (
	"encoding/binary"
	"io"

	"github.com/cuemby/xlb/pkg/varint"
)

// Stats tallies valid and invalid records seen by a Reader (spec §8,
// scenario S5: "stats report valid=999, invalid=1").
type Stats struct {
	Valid   int
	Invalid int
}

// Reader reads back one rank's stripe of the checkpoint log, resynchronizing
// past corrupted records (spec §4.6 "Read path").
type Reader struct {
	backend Backend
	geo     geometry
	rank    int32

	curLogical int64
	stats      Stats
	done       bool
}

// ReadHeader reads and validates block 0's header, returning the block size
// and rank count it declares.
func ReadHeader(backend Backend) (blockSize int64, ranks int32, err error) {
	magic := make([]byte, 1)
	if _, err := backend.ReadAt(magic, 0); err != nil {
		return 0, 0, err
	}
	if magic[0] != BlockMagic {
		return 0, 0, errInvalidHeader
	}
	hdr := make([]byte, headerBlockSize)
	if _, err := backend.ReadAt(hdr, 1); err != nil {
		return 0, 0, err
	}
	return int64(byteOrder.Uint32(hdr[0:4])), int32(byteOrder.Uint32(hdr[4:8])), nil
}

// OpenReader selects rank's stripe for reading, starting at its first
// owned block (spec §4.6 "Open... Select rank: seek to that rank's first
// owned block").
func OpenReader(backend Backend, blockSize int64, ranks, rank int32) *Reader {
	return &Reader{
		backend: backend,
		geo:     geometry{blockSize: blockSize, ranks: ranks},
		rank:    rank,
	}
}

// readLogicalAt reads n bytes starting at logical offset start, following
// the same block-boundary-skipping geometry as the writer, without
// mutating reader state.
func (r *Reader) readLogicalAt(start int64, n int) ([]byte, error) {
	cpb := r.geo.contentPerBlock()
	out := make([]byte, 0, n)
	pos := start
	for len(out) < n {
		intra := pos % cpb
		avail := cpb - intra
		want := int64(n - len(out))
		if want > avail {
			want = avail
		}
		off := r.geo.offsetOf(r.rank, pos)
		chunk := make([]byte, want)
		read, err := r.backend.ReadAt(chunk, off)
		out = append(out, chunk[:read]...)
		if err != nil {
			return out, err
		}
		pos += want
	}
	return out, nil
}

func (r *Reader) readLogical(n int) ([]byte, error) {
	buf, err := r.readLogicalAt(r.curLogical, n)
	if err != nil {
		return buf, io.EOF
	}
	r.curLogical += int64(n)
	return buf, nil
}

type logicalByteReader struct{ r *Reader }

func (b logicalByteReader) ReadByte() (byte, error) {
	buf, err := b.r.readLogical(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadRecord returns the next record's body. ok is false when the record
// failed its CRC or length check (it was reported INVALID and the reader
// has already resynchronized); the caller should call ReadRecord again to
// fetch the next record. io.EOF signals a clean end of this rank's stream
// (either the explicit end-of-rank marker or running out of written data,
// which the spec deliberately leaves indistinguishable — see §9).
func (r *Reader) ReadRecord() (body []byte, ok bool, err error) {
	if r.done {
		return nil, false, io.EOF
	}
	recStart := r.curLogical

	markerBuf, err := r.readLogical(4)
	if err == io.EOF {
		r.done = true
		return nil, false, io.EOF
	}
	if err != nil {
		return nil, false, err
	}
	marker := binary.BigEndian.Uint32(markerBuf)
	if marker != SyncMarker {
		return r.invalidAndResync(recStart)
	}

	crcBuf, err := r.readLogical(4)
	if err != nil {
		return r.invalidAndResync(recStart)
	}
	wantCRC := binary.BigEndian.Uint32(crcBuf)

	lenStart := r.curLogical
	length, err := varint.ReadUvarint(logicalByteReader{r})
	if err != nil {
		return r.invalidAndResync(recStart)
	}
	if length > MaxRecordLen {
		return r.invalidAndResync(recStart)
	}
	lenBufLen := r.curLogical - lenStart
	lenBuf, err := r.rereadLogicalRange(lenStart, lenBufLen)
	if err != nil {
		return r.invalidAndResync(recStart)
	}

	bodyBuf, err := r.readLogical(int(length))
	if err != nil {
		return r.invalidAndResync(recStart)
	}

	gotCRC := crc32Of(lenBuf, bodyBuf)
	if gotCRC != wantCRC {
		return r.invalidAndResync(recStart)
	}

	if length == 0 {
		r.done = true
		return nil, true, io.EOF
	}
	r.stats.Valid++
	return bodyBuf, true, nil
}

// rereadLogicalRange re-fetches bytes already consumed, needed because the
// varint length was read one byte at a time via logicalByteReader without
// retaining the raw bytes.
func (r *Reader) rereadLogicalRange(start, n int64) ([]byte, error) {
	return r.readLogicalAt(start, int(n))
}

// invalidAndResync reports the record starting at recStart as INVALID and
// scans forward for the next sync marker (spec §4.6 "Read path" resync).
func (r *Reader) invalidAndResync(recStart int64) ([]byte, bool, error) {
	r.stats.Invalid++
	found, err := r.resync(recStart)
	if err != nil {
		return nil, false, err
	}
	if !found {
		r.done = true
		return nil, false, io.EOF
	}
	return nil, false, nil
}

// resync seeks back to the byte after the prior sync marker's start and
// advances byte by byte, maintaining a big-endian 4-byte window, until the
// sync marker reappears (spec §4.6).
func (r *Reader) resync(recStart int64) (bool, error) {
	pos := recStart + 1
	var window [4]byte
	filled := 0
	for {
		r.curLogical = pos
		b, err := r.readLogical(1)
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		window[0], window[1], window[2], window[3] = window[1], window[2], window[3], b[0]
		filled++
		pos++
		if filled >= 4 && binary.BigEndian.Uint32(window[:]) == SyncMarker {
			r.curLogical = pos - 4
			return true, nil
		}
	}
}

// Stats returns the running valid/invalid record counts.
func (r *Reader) Stats() Stats { return r.stats }

var errInvalidHeader = &headerError{"invalid block 0 header"}

type headerError struct{ msg string }

func (e *headerError) Error() string { return e.msg }
