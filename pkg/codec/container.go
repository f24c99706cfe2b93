package codec

import (
	"github.com/cuemby/xlb/pkg/types"
	"github.com/cuemby/xlb/pkg/varint"
)

// packContainer wraps the container body in a padded-varint total-length
// header (spec §4.7) so a streaming writer could reserve the header,
// append the body, then patch the header with the real length in place.
// Body: varint key_type, varint val_type, varint nelems,
// { varint key_len, key_bytes, varint val_len, val_bytes }*. A reserved but
// unfilled entry (types.ContainerEntry.Filled == false) serializes as its
// key followed by a zero-length value.
func packContainer(c *types.Container) ([]byte, error) {
	if c == nil {
		c = types.NewContainer(types.TypeNone, types.TypeNone)
	}
	body := varint.AppendUvarint(nil, uint64(c.KeyType))
	body = varint.AppendUvarint(body, uint64(c.ValType))
	body = varint.AppendUvarint(body, uint64(c.Len()))
	for _, e := range c.Entries {
		body = varint.AppendUvarint(body, uint64(len(e.Key)))
		body = append(body, e.Key...)
		if !e.Filled {
			body = varint.AppendUvarint(body, 0)
			continue
		}
		vb, err := Pack(c.ValType, e.Value)
		if err != nil {
			return nil, err
		}
		body = varint.AppendUvarint(body, uint64(len(vb)))
		body = append(body, vb...)
	}
	return wrapPadded(body), nil
}

func unpackContainer(buf []byte) (*types.Container, error) {
	body, err := unwrapPadded(buf)
	if err != nil {
		return nil, err
	}
	kt, k, err := varint.Uvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[k:]
	vt, k, err := varint.Uvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[k:]
	n, k, err := varint.Uvarint(body)
	if err != nil {
		return nil, err
	}
	body = body[k:]

	c := types.NewContainer(types.ValueType(kt), types.ValueType(vt))
	for i := uint64(0); i < n; i++ {
		keyLen, k, err := varint.Uvarint(body)
		if err != nil {
			return nil, err
		}
		body = body[k:]
		if uint64(len(body)) < keyLen {
			return nil, shortBuf("codec.unpackContainer")
		}
		key := body[:keyLen]
		body = body[keyLen:]

		valLen, k, err := varint.Uvarint(body)
		if err != nil {
			return nil, err
		}
		body = body[k:]
		if uint64(len(body)) < valLen {
			return nil, shortBuf("codec.unpackContainer")
		}
		entry, _ := c.Reserve(key)
		if valLen > 0 {
			v, err := Unpack(c.ValType, body[:valLen])
			if err != nil {
				return nil, err
			}
			entry.Value = v
			entry.Filled = true
		}
		body = body[valLen:]
	}
	return c, nil
}

// wrapPadded prefixes body with a fixed-MaxLen padded varint carrying its
// length.
func wrapPadded(body []byte) []byte {
	header := make([]byte, varint.MaxLen)
	varint.PutUvarintPadded(header, uint64(len(body)))
	return append(header, body...)
}

func unwrapPadded(buf []byte) ([]byte, error) {
	if len(buf) < varint.MaxLen {
		return nil, shortBuf("codec.unwrapPadded")
	}
	n, _, err := varint.Uvarint(buf[:varint.MaxLen])
	if err != nil {
		return nil, err
	}
	body := buf[varint.MaxLen:]
	if uint64(len(body)) < n {
		return nil, shortBuf("codec.unwrapPadded")
	}
	return body[:n], nil
}
