package transport

// Message bodies for the tags spec §6 covers only by naming ("a fixed
// message body per incoming tag") without spelling out a struct literal —
// CREATE, SUBSCRIBE, REFCOUNT_INCR, INSERT_ATOMIC, UNIQUE, TYPEOF,
// CONTAINER_TYPEOF, CONTAINER_REFERENCE, CONTAINER_SIZE, LOCK, UNLOCK,
// ENUMERATE, GET/IGET, and their RESPONSE/WORKUNIT/FAIL answers. These
// follow the same field-order-matches-the-handler-call convention as
// messages.go's five explicit structs, and are encoded with the same
// binary.Write-based codec style (see wire2.go).

// CreateRequest is the payload of a CREATE message: requests a new datum,
// letting the caller pin its own id (IDHint != 0) or ask the server to
// assign one (spec §4.1's Create).
type CreateRequest struct {
	IDHint        int64
	Type          int32
	KeyType       int32
	ValType       int32
	ReadRefcount  int32
	WriteRefcount int32
	Permanent     bool
	Symbol        []byte
}

// CreateResponse answers a CreateRequest with the assigned id.
type CreateResponse struct {
	ID int64
}

// SubscriptNotification is the payload delivered for a KindSubscript
// notification (spec §4.2: "close <id>[ <sub>]"): the container id plus the
// subscript that was just filled, so a listener watching several keys of
// one container can tell which one fired.
type SubscriptNotification struct {
	ID  int64
	Sub []byte
}

// StoreSubRequest is the payload of a STORE_SUB message, sent immediately
// before a STORE_HEADER/STORE_PAYLOAD pair whose target is a container
// subscript rather than the datum itself.
type StoreSubRequest struct {
	Sub []byte
}

// SubscribeRequest is the payload of a SUBSCRIBE message.
type SubscribeRequest struct {
	ID   int64
	Rank int32
	Sub  []byte
}

// SubscribeResponse answers a SubscribeRequest (spec §4.1: Subscribe
// reports whether the target was already closed instead of registering a
// listener).
type SubscribeResponse struct {
	AlreadyClosed bool
}

// RefcountIncrRequest is the payload of a REFCOUNT_INCR message.
type RefcountIncrRequest struct {
	ID         int64
	ReadDelta  int32
	WriteDelta int32
	Scavenge   bool
}

// InsertAtomicRequest is the payload of an INSERT_ATOMIC message.
type InsertAtomicRequest struct {
	ID  int64
	Sub []byte
}

// InsertAtomicResponse answers an InsertAtomicRequest.
type InsertAtomicResponse struct {
	Created bool
	Present bool
}

// UniqueResponse answers a UNIQUE message with a fresh id from the server's
// id sequence.
type UniqueResponse struct {
	ID int64
}

// TypeOfRequest is the payload of a TYPEOF message.
type TypeOfRequest struct {
	ID int64
}

// TypeOfResponse answers a TypeOfRequest.
type TypeOfResponse struct {
	Type int32
}

// ContainerTypeOfRequest is the payload of a CONTAINER_TYPEOF message.
type ContainerTypeOfRequest struct {
	ID int64
}

// ContainerTypeOfResponse answers a ContainerTypeOfRequest.
type ContainerTypeOfResponse struct {
	KeyType int32
	ValType int32
}

// ContainerReferenceRequest is the payload of a CONTAINER_REFERENCE
// message: ReferandID is a datum the caller already created, to be filled
// in once container[Sub] resolves (spec §4.1's container-reference
// promise).
type ContainerReferenceRequest struct {
	ContainerID  int64
	Sub          []byte
	ReferandID   int64
	ReferandType int32
}

// ContainerSizeRequest is the payload of a CONTAINER_SIZE message.
type ContainerSizeRequest struct {
	ID int64
}

// ContainerSizeResponse answers a ContainerSizeRequest.
type ContainerSizeResponse struct {
	Size int32
}

// LockRequest is the payload of a LOCK message.
type LockRequest struct {
	ID   int64
	Rank int32
}

// LockResponse answers a LockRequest.
type LockResponse struct {
	Acquired bool
}

// UnlockRequest is the payload of an UNLOCK message.
type UnlockRequest struct {
	ID   int64
	Rank int32
}

// EnumerateRequest is the payload of an ENUMERATE message.
type EnumerateRequest struct {
	ID     int64
	Offset int32
	Count  int32
}

// GetRequest is the payload of GET and IGET messages.
type GetRequest struct {
	Rank     int32
	WorkType int32
}

// Response is the generic outgoing envelope (tag RESPONSE) for calls whose
// only answer is a status code plus a small trailing value: the code is an
// xlberr.Kind, and Payload holds whatever fixed-shape struct that call's
// response mirrors (e.g. a TypeOfResponse), already encoded by its own
// codec. Using one wire shape for every simple reply mirrors spec §6's
// note that RESPONSE "covers any call with no payload of its own".
type Response struct {
	Code    int32
	Payload []byte
}

// WorkUnitMessage is the payload of a WORKUNIT message answering a GET or
// IGET: the matched work descriptor plus its payload, inlined regardless
// of size since, by the time a unit is matched, the putter has already
// delivered it to the server (spec §4.3).
type WorkUnitMessage struct {
	ID          int64
	WorkType    int32
	Putter      int32
	Answer      int32
	Parallelism int32
	Payload     []byte
}

// FailMessage is the payload of a FAIL message: GET/IGET's "no match, and
// none will ever come" terminal response (spec §4.3).
type FailMessage struct {
	Code int32
}
