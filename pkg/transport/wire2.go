package transport

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// writeBool and readBool give the bool fields in messages2.go's structs the
// same one-byte-flag wire shape PutHeader's HasInline already uses.
func writeBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func readBool(r *bytes.Reader) (bool, error) {
	v, err := r.ReadByte()
	return v != 0, err
}

// writeBlob and readBlob give variable-length byte fields (subscripts,
// symbols, payloads) an int32-length prefix, consistent with PutHeader's
// Length field.
func writeBlob(buf *bytes.Buffer, b []byte) {
	binary.Write(buf, binary.BigEndian, int32(len(b)))
	buf.Write(b)
}

func readBlob(r *bytes.Reader) ([]byte, error) {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func EncodeCreateRequest(h CreateRequest) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.IDHint)
	for _, v := range []int32{h.Type, h.KeyType, h.ValType, h.ReadRefcount, h.WriteRefcount} {
		binary.Write(buf, binary.BigEndian, v)
	}
	writeBool(buf, h.Permanent)
	writeBlob(buf, h.Symbol)
	return buf.Bytes()
}

func DecodeCreateRequest(b []byte) (CreateRequest, error) {
	r := bytes.NewReader(b)
	var h CreateRequest
	if err := binary.Read(r, binary.BigEndian, &h.IDHint); err != nil {
		return CreateRequest{}, fmt.Errorf("transport: decode create_request id: %w", err)
	}
	fields := []*int32{&h.Type, &h.KeyType, &h.ValType, &h.ReadRefcount, &h.WriteRefcount}
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return CreateRequest{}, fmt.Errorf("transport: decode create_request: %w", err)
		}
	}
	var err error
	if h.Permanent, err = readBool(r); err != nil {
		return CreateRequest{}, fmt.Errorf("transport: decode create_request permanent: %w", err)
	}
	if h.Symbol, err = readBlob(r); err != nil {
		return CreateRequest{}, fmt.Errorf("transport: decode create_request symbol: %w", err)
	}
	return h, nil
}

func EncodeCreateResponse(h CreateResponse) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	return buf.Bytes()
}

func DecodeCreateResponse(b []byte) (CreateResponse, error) {
	var h CreateResponse
	err := binary.Read(bytes.NewReader(b), binary.BigEndian, &h.ID)
	return h, err
}

func EncodeSubscriptNotification(h SubscriptNotification) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	writeBlob(buf, h.Sub)
	return buf.Bytes()
}

func DecodeSubscriptNotification(b []byte) (SubscriptNotification, error) {
	r := bytes.NewReader(b)
	var h SubscriptNotification
	if err := binary.Read(r, binary.BigEndian, &h.ID); err != nil {
		return SubscriptNotification{}, fmt.Errorf("transport: decode subscript_notification id: %w", err)
	}
	var err error
	if h.Sub, err = readBlob(r); err != nil {
		return SubscriptNotification{}, fmt.Errorf("transport: decode subscript_notification sub: %w", err)
	}
	return h, nil
}

func EncodeStoreSubRequest(h StoreSubRequest) []byte {
	buf := new(bytes.Buffer)
	writeBlob(buf, h.Sub)
	return buf.Bytes()
}

func DecodeStoreSubRequest(b []byte) (StoreSubRequest, error) {
	r := bytes.NewReader(b)
	sub, err := readBlob(r)
	return StoreSubRequest{Sub: sub}, err
}

func EncodeSubscribeRequest(h SubscribeRequest) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	binary.Write(buf, binary.BigEndian, h.Rank)
	writeBlob(buf, h.Sub)
	return buf.Bytes()
}

func DecodeSubscribeRequest(b []byte) (SubscribeRequest, error) {
	r := bytes.NewReader(b)
	var h SubscribeRequest
	if err := binary.Read(r, binary.BigEndian, &h.ID); err != nil {
		return SubscribeRequest{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &h.Rank); err != nil {
		return SubscribeRequest{}, err
	}
	var err error
	h.Sub, err = readBlob(r)
	return h, err
}

func EncodeSubscribeResponse(h SubscribeResponse) []byte {
	buf := new(bytes.Buffer)
	writeBool(buf, h.AlreadyClosed)
	return buf.Bytes()
}

func DecodeSubscribeResponse(b []byte) (SubscribeResponse, error) {
	v, err := readBool(bytes.NewReader(b))
	return SubscribeResponse{AlreadyClosed: v}, err
}

func EncodeRefcountIncrRequest(h RefcountIncrRequest) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	binary.Write(buf, binary.BigEndian, h.ReadDelta)
	binary.Write(buf, binary.BigEndian, h.WriteDelta)
	writeBool(buf, h.Scavenge)
	return buf.Bytes()
}

func DecodeRefcountIncrRequest(b []byte) (RefcountIncrRequest, error) {
	r := bytes.NewReader(b)
	var h RefcountIncrRequest
	if err := binary.Read(r, binary.BigEndian, &h.ID); err != nil {
		return RefcountIncrRequest{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &h.ReadDelta); err != nil {
		return RefcountIncrRequest{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &h.WriteDelta); err != nil {
		return RefcountIncrRequest{}, err
	}
	var err error
	h.Scavenge, err = readBool(r)
	return h, err
}

func EncodeInsertAtomicRequest(h InsertAtomicRequest) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	writeBlob(buf, h.Sub)
	return buf.Bytes()
}

func DecodeInsertAtomicRequest(b []byte) (InsertAtomicRequest, error) {
	r := bytes.NewReader(b)
	var h InsertAtomicRequest
	if err := binary.Read(r, binary.BigEndian, &h.ID); err != nil {
		return InsertAtomicRequest{}, err
	}
	var err error
	h.Sub, err = readBlob(r)
	return h, err
}

func EncodeInsertAtomicResponse(h InsertAtomicResponse) []byte {
	buf := new(bytes.Buffer)
	writeBool(buf, h.Created)
	writeBool(buf, h.Present)
	return buf.Bytes()
}

func DecodeInsertAtomicResponse(b []byte) (InsertAtomicResponse, error) {
	r := bytes.NewReader(b)
	created, err := readBool(r)
	if err != nil {
		return InsertAtomicResponse{}, err
	}
	present, err := readBool(r)
	return InsertAtomicResponse{Created: created, Present: present}, err
}

func EncodeUniqueResponse(h UniqueResponse) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	return buf.Bytes()
}

func DecodeUniqueResponse(b []byte) (UniqueResponse, error) {
	var h UniqueResponse
	err := binary.Read(bytes.NewReader(b), binary.BigEndian, &h.ID)
	return h, err
}

func EncodeTypeOfRequest(h TypeOfRequest) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	return buf.Bytes()
}

func DecodeTypeOfRequest(b []byte) (TypeOfRequest, error) {
	var h TypeOfRequest
	err := binary.Read(bytes.NewReader(b), binary.BigEndian, &h.ID)
	return h, err
}

func EncodeTypeOfResponse(h TypeOfResponse) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.Type)
	return buf.Bytes()
}

func DecodeTypeOfResponse(b []byte) (TypeOfResponse, error) {
	var h TypeOfResponse
	err := binary.Read(bytes.NewReader(b), binary.BigEndian, &h.Type)
	return h, err
}

func EncodeContainerTypeOfRequest(h ContainerTypeOfRequest) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	return buf.Bytes()
}

func DecodeContainerTypeOfRequest(b []byte) (ContainerTypeOfRequest, error) {
	var h ContainerTypeOfRequest
	err := binary.Read(bytes.NewReader(b), binary.BigEndian, &h.ID)
	return h, err
}

func EncodeContainerTypeOfResponse(h ContainerTypeOfResponse) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.KeyType)
	binary.Write(buf, binary.BigEndian, h.ValType)
	return buf.Bytes()
}

func DecodeContainerTypeOfResponse(b []byte) (ContainerTypeOfResponse, error) {
	r := bytes.NewReader(b)
	var h ContainerTypeOfResponse
	if err := binary.Read(r, binary.BigEndian, &h.KeyType); err != nil {
		return ContainerTypeOfResponse{}, err
	}
	err := binary.Read(r, binary.BigEndian, &h.ValType)
	return h, err
}

func EncodeContainerReferenceRequest(h ContainerReferenceRequest) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ContainerID)
	writeBlob(buf, h.Sub)
	binary.Write(buf, binary.BigEndian, h.ReferandID)
	binary.Write(buf, binary.BigEndian, h.ReferandType)
	return buf.Bytes()
}

func DecodeContainerReferenceRequest(b []byte) (ContainerReferenceRequest, error) {
	r := bytes.NewReader(b)
	var h ContainerReferenceRequest
	if err := binary.Read(r, binary.BigEndian, &h.ContainerID); err != nil {
		return ContainerReferenceRequest{}, err
	}
	var err error
	if h.Sub, err = readBlob(r); err != nil {
		return ContainerReferenceRequest{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &h.ReferandID); err != nil {
		return ContainerReferenceRequest{}, err
	}
	err = binary.Read(r, binary.BigEndian, &h.ReferandType)
	return h, err
}

func EncodeContainerSizeRequest(h ContainerSizeRequest) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	return buf.Bytes()
}

func DecodeContainerSizeRequest(b []byte) (ContainerSizeRequest, error) {
	var h ContainerSizeRequest
	err := binary.Read(bytes.NewReader(b), binary.BigEndian, &h.ID)
	return h, err
}

func EncodeContainerSizeResponse(h ContainerSizeResponse) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.Size)
	return buf.Bytes()
}

func DecodeContainerSizeResponse(b []byte) (ContainerSizeResponse, error) {
	var h ContainerSizeResponse
	err := binary.Read(bytes.NewReader(b), binary.BigEndian, &h.Size)
	return h, err
}

func EncodeLockRequest(h LockRequest) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	binary.Write(buf, binary.BigEndian, h.Rank)
	return buf.Bytes()
}

func DecodeLockRequest(b []byte) (LockRequest, error) {
	r := bytes.NewReader(b)
	var h LockRequest
	if err := binary.Read(r, binary.BigEndian, &h.ID); err != nil {
		return LockRequest{}, err
	}
	err := binary.Read(r, binary.BigEndian, &h.Rank)
	return h, err
}

func EncodeLockResponse(h LockResponse) []byte {
	buf := new(bytes.Buffer)
	writeBool(buf, h.Acquired)
	return buf.Bytes()
}

func DecodeLockResponse(b []byte) (LockResponse, error) {
	v, err := readBool(bytes.NewReader(b))
	return LockResponse{Acquired: v}, err
}

func EncodeUnlockRequest(h UnlockRequest) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	binary.Write(buf, binary.BigEndian, h.Rank)
	return buf.Bytes()
}

func DecodeUnlockRequest(b []byte) (UnlockRequest, error) {
	r := bytes.NewReader(b)
	var h UnlockRequest
	if err := binary.Read(r, binary.BigEndian, &h.ID); err != nil {
		return UnlockRequest{}, err
	}
	err := binary.Read(r, binary.BigEndian, &h.Rank)
	return h, err
}

func EncodeEnumerateRequest(h EnumerateRequest) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	binary.Write(buf, binary.BigEndian, h.Offset)
	binary.Write(buf, binary.BigEndian, h.Count)
	return buf.Bytes()
}

func DecodeEnumerateRequest(b []byte) (EnumerateRequest, error) {
	r := bytes.NewReader(b)
	var h EnumerateRequest
	if err := binary.Read(r, binary.BigEndian, &h.ID); err != nil {
		return EnumerateRequest{}, err
	}
	if err := binary.Read(r, binary.BigEndian, &h.Offset); err != nil {
		return EnumerateRequest{}, err
	}
	err := binary.Read(r, binary.BigEndian, &h.Count)
	return h, err
}

func EncodeGetRequest(h GetRequest) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.Rank)
	binary.Write(buf, binary.BigEndian, h.WorkType)
	return buf.Bytes()
}

func DecodeGetRequest(b []byte) (GetRequest, error) {
	r := bytes.NewReader(b)
	var h GetRequest
	if err := binary.Read(r, binary.BigEndian, &h.Rank); err != nil {
		return GetRequest{}, err
	}
	err := binary.Read(r, binary.BigEndian, &h.WorkType)
	return h, err
}

func EncodeResponse(h Response) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.Code)
	writeBlob(buf, h.Payload)
	return buf.Bytes()
}

func DecodeResponse(b []byte) (Response, error) {
	r := bytes.NewReader(b)
	var h Response
	if err := binary.Read(r, binary.BigEndian, &h.Code); err != nil {
		return Response{}, err
	}
	var err error
	h.Payload, err = readBlob(r)
	return h, err
}

func EncodeWorkUnitMessage(h WorkUnitMessage) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.ID)
	for _, v := range []int32{h.WorkType, h.Putter, h.Answer, h.Parallelism} {
		binary.Write(buf, binary.BigEndian, v)
	}
	writeBlob(buf, h.Payload)
	return buf.Bytes()
}

func DecodeWorkUnitMessage(b []byte) (WorkUnitMessage, error) {
	r := bytes.NewReader(b)
	var h WorkUnitMessage
	if err := binary.Read(r, binary.BigEndian, &h.ID); err != nil {
		return WorkUnitMessage{}, err
	}
	fields := []*int32{&h.WorkType, &h.Putter, &h.Answer, &h.Parallelism}
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return WorkUnitMessage{}, err
		}
	}
	var err error
	h.Payload, err = readBlob(r)
	return h, err
}

func EncodeFailMessage(h FailMessage) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, h.Code)
	return buf.Bytes()
}

func DecodeFailMessage(b []byte) (FailMessage, error) {
	var h FailMessage
	err := binary.Read(bytes.NewReader(b), binary.BigEndian, &h.Code)
	return h, err
}
