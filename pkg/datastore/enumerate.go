package datastore

import (
	"github.com/cuemby/xlb/pkg/codec"
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/varint"
)

func sliceRange(total, offset, count int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if count >= 0 && offset+count < total {
		end = offset + count
	}
	return offset, end
}

func enumerateContainer(c *types.Container, offset, count int) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	start, end := sliceRange(c.Len(), offset, count)
	var out []byte
	for i := start; i < end; i++ {
		e := c.Entries[i]
		out = varint.AppendUvarint(out, uint64(len(e.Key)))
		out = append(out, e.Key...)
		if !e.Filled {
			out = varint.AppendUvarint(out, 0)
			continue
		}
		vb, err := codec.Pack(c.ValType, e.Value)
		if err != nil {
			return nil, err
		}
		out = varint.AppendUvarint(out, uint64(len(vb)))
		out = append(out, vb...)
	}
	return out, nil
}

func enumerateMultiset(m *types.Multiset, offset, count int) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	start, end := sliceRange(len(m.Elems), offset, count)
	var out []byte
	for i := start; i < end; i++ {
		vb, err := codec.Pack(m.ElemType, m.Elems[i])
		if err != nil {
			return nil, err
		}
		out = varint.AppendUvarint(out, uint64(len(vb)))
		out = append(out, vb...)
	}
	return out, nil
}
