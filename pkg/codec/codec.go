// Package codec implements the typed value wire format of spec §4.7:
// Pack/Unpack primitive and compound values to a length-prefixed byte form.
// Primitives use little-endian fixed widths (INTEGER written verbatim,
// native byte order, per the spec's explicit carve-out). Containers and
// multisets are framed with a total-body-length header padded to a maximum
// varint width, so a streaming writer can reserve the header, serialize the
// body, and patch the real length back in without shifting already-written
// bytes.
package codec

import (
	"encoding/binary"
	"math"

	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/varint"
	"github.com/cuemby/xlb/pkg/xlberr"
)

// nativeEndian is the byte order used for INTEGER, which the spec calls out
// as written "verbatim" (native width and order) rather than the
// little-endian form used by every other fixed-width primitive.
var nativeEndian = binary.NativeEndian

func mathFloatBits(f float64) uint64     { return math.Float64bits(f) }
func mathFloatFromBits(b uint64) float64 { return math.Float64frombits(b) }

// Pack serializes v (which must have v.Type == typ) to its wire form.
func Pack(typ types.ValueType, v types.Value) ([]byte, error) {
	switch typ {
	case types.TypeInteger:
		buf := make([]byte, 8)
		nativeEndian.PutUint64(buf, uint64(v.Integer))
		return buf, nil
	case types.TypeFloat:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, mathFloatBits(v.Float))
		return buf, nil
	case types.TypeString, types.TypeBlob:
		return packBytes(v.Bytes), nil
	case types.TypeRef:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v.Ref))
		return buf, nil
	case types.TypeFileRef:
		buf := make([]byte, 17)
		binary.LittleEndian.PutUint64(buf[0:8], uint64(v.FileRef.ID1))
		binary.LittleEndian.PutUint64(buf[8:16], uint64(v.FileRef.ID2))
		if v.FileRef.Flag {
			buf[16] = 1
		}
		return buf, nil
	case types.TypeStruct:
		return packStruct(v.Struct)
	case types.TypeContainer:
		return packContainer(v.Container)
	case types.TypeMultiset:
		return packMultiset(v.Multiset)
	default:
		return nil, xlberr.New("codec.Pack", xlberr.Error, xlberr.Type, "unknown value type")
	}
}

// Unpack deserializes buf into a Value of the given type.
func Unpack(typ types.ValueType, buf []byte) (types.Value, error) {
	switch typ {
	case types.TypeInteger:
		if len(buf) < 8 {
			return types.Value{}, shortBuf("codec.Unpack")
		}
		return types.Value{Type: typ, Integer: int64(nativeEndian.Uint64(buf))}, nil
	case types.TypeFloat:
		if len(buf) < 8 {
			return types.Value{}, shortBuf("codec.Unpack")
		}
		return types.Value{Type: typ, Float: mathFloatFromBits(binary.LittleEndian.Uint64(buf))}, nil
	case types.TypeString, types.TypeBlob:
		b, _, err := unpackBytes(buf)
		if err != nil {
			return types.Value{}, err
		}
		return types.Value{Type: typ, Bytes: b}, nil
	case types.TypeRef:
		if len(buf) < 8 {
			return types.Value{}, shortBuf("codec.Unpack")
		}
		return types.Value{Type: typ, Ref: int64(binary.LittleEndian.Uint64(buf))}, nil
	case types.TypeFileRef:
		if len(buf) < 17 {
			return types.Value{}, shortBuf("codec.Unpack")
		}
		return types.Value{Type: typ, FileRef: types.FileRefValue{
			ID1:  int64(binary.LittleEndian.Uint64(buf[0:8])),
			ID2:  int64(binary.LittleEndian.Uint64(buf[8:16])),
			Flag: buf[16] != 0,
		}}, nil
	case types.TypeStruct:
		s, err := unpackStruct(buf)
		if err != nil {
			return types.Value{}, err
		}
		return types.Value{Type: typ, Struct: s}, nil
	case types.TypeContainer:
		c, err := unpackContainer(buf)
		if err != nil {
			return types.Value{}, err
		}
		return types.Value{Type: typ, Container: c}, nil
	case types.TypeMultiset:
		m, err := unpackMultiset(buf)
		if err != nil {
			return types.Value{}, err
		}
		return types.Value{Type: typ, Multiset: m}, nil
	default:
		return types.Value{}, xlberr.New("codec.Unpack", xlberr.Error, xlberr.Type, "unknown value type")
	}
}

func shortBuf(op string) error {
	return xlberr.New(op, xlberr.Error, xlberr.BufferTooSmall, "buffer too short")
}

func packBytes(b []byte) []byte {
	out := varint.AppendUvarint(nil, uint64(len(b)))
	return append(out, b...)
}

func unpackBytes(buf []byte) ([]byte, int, error) {
	n, k, err := varint.Uvarint(buf)
	if err != nil {
		return nil, 0, err
	}
	end := k + int(n)
	if end > len(buf) {
		return nil, 0, shortBuf("codec.unpackBytes")
	}
	out := make([]byte, n)
	copy(out, buf[k:end])
	return out, end, nil
}
