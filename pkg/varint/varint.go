// Package varint implements the self-delimited integer encoding used
// throughout the wire and checkpoint-log formats: record lengths, key
// lengths, value lengths and container/multiset element counts are all
// framed this way. It is a thin, intention-revealing wrapper over
// encoding/binary's unsigned LEB128 so call sites at the codec and
// checkpoint layers read as "varint", not "binary.Uvarint".
package varint

import (
	"encoding/binary"
	"io"

	"github.com/cuemby/xlb/pkg/xlberr"
)

// MaxLen is the maximum number of bytes a varint-encoded uint64 can occupy.
const MaxLen = binary.MaxVarintLen64

// PutUvarint encodes v into buf (which must have capacity MaxLen) and
// returns the number of bytes written.
func PutUvarint(buf []byte, v uint64) int {
	return binary.PutUvarint(buf, v)
}

// AppendUvarint appends the varint encoding of v to buf and returns the
// extended slice.
func AppendUvarint(buf []byte, v uint64) []byte {
	return binary.AppendUvarint(buf, v)
}

// Uvarint decodes a uint64 from the start of buf, returning the value and
// the number of bytes consumed. A non-positive n signals a decode error per
// binary.Uvarint's convention, translated here into an xlberr.Error so
// callers can treat it uniformly with the rest of the codec.
func Uvarint(buf []byte) (uint64, int, error) {
	v, n := binary.Uvarint(buf)
	if n == 0 {
		return 0, 0, xlberr.New("varint.Uvarint", xlberr.Error, xlberr.BufferTooSmall, "buffer too short for varint")
	}
	if n < 0 {
		return 0, 0, xlberr.New("varint.Uvarint", xlberr.Error, xlberr.Invalid, "varint overflows 64 bits")
	}
	return v, n, nil
}

// PutUvarintPadded encodes v into buf using exactly MaxLen bytes, forcing
// the continuation bit on every byte but the last. A normal Uvarint/ReadUvarint
// decodes it identically to a minimal encoding; the padding exists so a
// writer can reserve a fixed-width header, serialize a variable-length body
// after it, and later patch the header in place with the real length
// without shifting the body (used by container/multiset framing, §4.7).
func PutUvarintPadded(buf []byte, v uint64) int {
	for i := 0; i < MaxLen-1; i++ {
		buf[i] = byte(v&0x7f) | 0x80
		v >>= 7
	}
	buf[MaxLen-1] = byte(v & 0x7f)
	return MaxLen
}

// ReadUvarint decodes a varint from r one byte at a time, matching the
// semantics of binary.ReadUvarint but surfacing io.EOF distinctly from a
// malformed encoding so checkpoint resync can distinguish "ran out of
// bytes" from "garbage".
func ReadUvarint(r io.ByteReader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, err
	}
	return v, nil
}
