package codec

import (
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/varint"
)

// packMultiset mirrors packContainer without keys: padded-varint total
// length, then varint elem_type, varint nelems, { varint val_len, val_bytes }*.
func packMultiset(m *types.Multiset) ([]byte, error) {
	if m == nil {
		m = types.NewMultiset(types.TypeNone)
	}
	body := varint.AppendUvarint(nil, uint64(m.ElemType))
	body = varint.AppendUvarint(body, uint64(len(m.Elems)))
	for _, e := range m.Elems {
		eb, err := Pack(m.ElemType, e)
		if err != nil {
			return nil, err
		}
		body = varint.AppendUvarint(body, uint64(len(eb)))
		body = append(body, eb...)
	}
	return wrapPadded(body), nil
}

func unpackMultiset(buf []byte) (*types.Multiset, error) {
	body, err := unwrapPadded(buf)
	if err != nil {
		return nil, err
	}
	et, k, err := varint.Uvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[k:]
	n, k, err := varint.Uvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[k:]

	m := types.NewMultiset(types.ValueType(et))
	for i := uint64(0); i < n; i++ {
		valLen, k, err := varint.Uvarint(body)
		if err != nil {
			return nil, err
		}
		body = body[k:]
		if uint64(len(body)) < valLen {
			return nil, shortBuf("codec.unpackMultiset")
		}
		v, err := Unpack(m.ElemType, body[:valLen])
		if err != nil {
			return nil, err
		}
		m.Append(v)
		body = body[valLen:]
	}
	return m, nil
}
