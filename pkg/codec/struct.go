package codec

import (
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/varint"
)

// packStruct encodes: varint tag, varint nfields, { varint field_type,
// varint val_len, val_bytes }*.
func packStruct(s *types.StructValue) ([]byte, error) {
	if s == nil {
		s = &types.StructValue{}
	}
	out := varint.AppendUvarint(nil, uint64(s.Tag))
	out = varint.AppendUvarint(out, uint64(len(s.Fields)))
	for _, f := range s.Fields {
		fb, err := Pack(f.Type, f.Value)
		if err != nil {
			return nil, err
		}
		out = varint.AppendUvarint(out, uint64(f.Type))
		out = varint.AppendUvarint(out, uint64(len(fb)))
		out = append(out, fb...)
	}
	return out, nil
}

func unpackStruct(buf []byte) (*types.StructValue, error) {
	tag, k, err := varint.Uvarint(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[k:]
	n, k, err := varint.Uvarint(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[k:]

	s := &types.StructValue{Tag: int64(tag)}
	for i := uint64(0); i < n; i++ {
		ft, k, err := varint.Uvarint(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[k:]
		fl, k, err := varint.Uvarint(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[k:]
		if uint64(len(buf)) < fl {
			return nil, shortBuf("codec.unpackStruct")
		}
		fv, err := Unpack(types.ValueType(ft), buf[:fl])
		if err != nil {
			return nil, err
		}
		s.Fields = append(s.Fields, types.StructField{Type: types.ValueType(ft), Value: fv})
		buf = buf[fl:]
	}
	return s, nil
}
