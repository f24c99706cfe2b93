package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cuemby/xlb/pkg/varint"
)

// EncodePutHeader serializes h per spec §6's put_hdr, with all i32 fields
// big-endian (spec §6: "32-bit integers appear big-endian when written by
// bufwrite_uint32").
func EncodePutHeader(h PutHeader) []byte {
	buf := new(bytes.Buffer)
	for _, v := range []int32{h.Type, h.Priority, h.Putter, h.Answer, h.Target, h.Length, h.Parallelism} {
		binary.Write(buf, binary.BigEndian, v)
	}
	if h.HasInline {
		buf.WriteByte(1)
		buf.Write(h.Inline)
	} else {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// DecodePutHeader parses the wire form written by EncodePutHeader.
func DecodePutHeader(b []byte) (PutHeader, error) {
	r := bytes.NewReader(b)
	var h PutHeader
	fields := []*int32{&h.Type, &h.Priority, &h.Putter, &h.Answer, &h.Target, &h.Length, &h.Parallelism}
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return PutHeader{}, fmt.Errorf("transport: decode put_hdr: %w", err)
		}
	}
	flag, err := r.ReadByte()
	if err != nil {
		return PutHeader{}, fmt.Errorf("transport: decode put_hdr inline flag: %w", err)
	}
	if flag != 0 {
		h.HasInline = true
		h.Inline = make([]byte, h.Length)
		if _, err := r.Read(h.Inline); err != nil {
			return PutHeader{}, fmt.Errorf("transport: decode put_hdr inline bytes: %w", err)
		}
	}
	return h, nil
}

// EncodeGetResponse serializes g per spec §6's get_response.
func EncodeGetResponse(g GetResponse) []byte {
	buf := new(bytes.Buffer)
	for _, v := range []int32{g.Code, g.Length, g.AnswerRank, g.Type, g.PayloadSource, g.Parallelism} {
		binary.Write(buf, binary.BigEndian, v)
	}
	return buf.Bytes()
}

// DecodeGetResponse parses the wire form written by EncodeGetResponse.
func DecodeGetResponse(b []byte) (GetResponse, error) {
	r := bytes.NewReader(b)
	var g GetResponse
	fields := []*int32{&g.Code, &g.Length, &g.AnswerRank, &g.Type, &g.PayloadSource, &g.Parallelism}
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return GetResponse{}, fmt.Errorf("transport: decode get_response: %w", err)
		}
	}
	return g, nil
}

// EncodeStoreHeader serializes h per spec §6's store_hdr.
func EncodeStoreHeader(h StoreHeader) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	for _, v := range []int32{h.Type, h.ReadDecr, h.WriteDecr, h.SubLen} {
		binary.Write(buf, binary.BigEndian, v)
	}
	return buf.Bytes()
}

// DecodeStoreHeader parses the wire form written by EncodeStoreHeader.
func DecodeStoreHeader(b []byte) (StoreHeader, error) {
	r := bytes.NewReader(b)
	var h StoreHeader
	if err := binary.Read(r, binary.BigEndian, &h.ID); err != nil {
		return StoreHeader{}, fmt.Errorf("transport: decode store_hdr id: %w", err)
	}
	fields := []*int32{&h.Type, &h.ReadDecr, &h.WriteDecr, &h.SubLen}
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return StoreHeader{}, fmt.Errorf("transport: decode store_hdr: %w", err)
		}
	}
	return h, nil
}

// EncodeRetrieveHeader serializes h per spec §6's retrieve_hdr.
func EncodeRetrieveHeader(h RetrieveHeader) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	for _, v := range []int32{h.Refc.DecrSelfRead, h.Refc.DecrSelfWrite, h.Refc.IncrReferandsRead, int32(len(h.Sub))} {
		binary.Write(buf, binary.BigEndian, v)
	}
	buf.Write(h.Sub)
	return buf.Bytes()
}

// DecodeRetrieveHeader parses the wire form written by EncodeRetrieveHeader.
func DecodeRetrieveHeader(b []byte) (RetrieveHeader, error) {
	r := bytes.NewReader(b)
	var h RetrieveHeader
	if err := binary.Read(r, binary.BigEndian, &h.ID); err != nil {
		return RetrieveHeader{}, fmt.Errorf("transport: decode retrieve_hdr id: %w", err)
	}
	var subLen int32
	fields := []*int32{&h.Refc.DecrSelfRead, &h.Refc.DecrSelfWrite, &h.Refc.IncrReferandsRead, &subLen}
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return RetrieveHeader{}, fmt.Errorf("transport: decode retrieve_hdr: %w", err)
		}
	}
	h.Sub = make([]byte, subLen)
	if subLen > 0 {
		if _, err := r.Read(h.Sub); err != nil {
			return RetrieveHeader{}, fmt.Errorf("transport: decode retrieve_hdr sub: %w", err)
		}
	}
	return h, nil
}

// EncodeSyncHeader serializes h per spec §6's sync_hdr, using the varint
// package for the steal_counts array length (this array has no fixed
// upper bound, unlike the other messages' fixed i32 fields).
func EncodeSyncHeader(h SyncHeader) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, int32(h.Mode))
	buf.Write(varint.AppendUvarint(nil, uint64(len(h.StealCounts))))
	for _, sc := range h.StealCounts {
		binary.Write(buf, binary.BigEndian, sc.WorkType)
		binary.Write(buf, binary.BigEndian, sc.Count)
	}
	return buf.Bytes()
}

// DecodeSyncHeader parses the wire form written by EncodeSyncHeader.
func DecodeSyncHeader(b []byte) (SyncHeader, error) {
	var mode int32
	if len(b) < 4 {
		return SyncHeader{}, fmt.Errorf("transport: sync_hdr too short")
	}
	mode = int32(binary.BigEndian.Uint32(b[:4]))
	n, consumed, err := varint.Uvarint(b[4:])
	if err != nil {
		return SyncHeader{}, fmt.Errorf("transport: decode sync_hdr count: %w", err)
	}
	rest := b[4+consumed:]
	h := SyncHeader{Mode: SyncMode(mode), StealCounts: make([]StealCount, 0, n)}
	for i := uint64(0); i < n; i++ {
		if len(rest) < 8 {
			return SyncHeader{}, fmt.Errorf("transport: sync_hdr truncated steal_counts")
		}
		h.StealCounts = append(h.StealCounts, StealCount{
			WorkType: int32(binary.BigEndian.Uint32(rest[:4])),
			Count:    int32(binary.BigEndian.Uint32(rest[4:8])),
		})
		rest = rest[8:]
	}
	return h, nil
}
