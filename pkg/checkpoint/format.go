// Package checkpoint implements the append-only, rank-striped,
// CRC-protected checkpoint log of spec §4.6: every rank writes only to the
// blocks it owns within one shared file, and a reader can resynchronize
// past a corrupted record without losing the rest of the log.
//
// The on-disk layout follows §4.6/§6 exactly: block 0 carries a
// `{u32 block_size, u32 ranks}` header (big-endian, per the spec's
// `bufwrite_uint32` rule); every subsequent block opens with a one-byte
// magic (0x42); every record opens with a big-endian 0x5F1C0B73 sync
// marker, a big-endian CRC32, a varint body length, and the body itself,
// with the CRC computed over `varint(length) ‖ body`.
//
// Framing technique is grounded on grailbio/base's recordio writerv2
// (packed varint headers, block-indexed item locations); the block-striped
// ownership and resync-by-byte-scan are this package's own translation of
// §4.6's C-derived design into Go.
package checkpoint

import "encoding/binary"

// BlockMagic opens every data block (block index > 0).
const BlockMagic byte = 0x42

// SyncMarker opens every record, big-endian encoded.
const SyncMarker uint32 = 0x5F1C0B73

// DefaultBlockSize is the default fixed block size (spec §4.6, glossary).
const DefaultBlockSize int64 = 4 * 1024 * 1024

// MaxRecordLen bounds a decoded record length; a larger value is treated as
// corruption and triggers resync (spec §4.6 "ADLB_XPT_MAX").
const MaxRecordLen = 64 << 20

// headerBlockSize is the payload length of block 0's header.
const headerBlockSize = 8

var byteOrder = binary.BigEndian
