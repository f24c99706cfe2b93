// Package transport implements the wire transport contract of spec §6: a
// small tagged-message protocol over point-to-point connections between the
// fixed set of N ranks, plus a framed-TCP realization of it (Transport,
// below). Every exported method that blocks takes a context.Context,
// matching the teacher's convention in
// _examples/cuemby-warren/pkg/api/server.go's gRPC handlers, even though the
// wire format itself is this package's own rather than protobuf's — gRPC's
// request/response model cannot express the probe/non-blocking-receive
// primitives spec §6 requires, so it was dropped in favor of a direct framed
// socket (see DESIGN.md).
package transport

import "strconv"

// Tag is the small (<=128-valued) message-kind enumeration of spec §6,
// partitioned into tags incoming to a server and tags outgoing from one.
type Tag uint8

// Incoming-to-server tags.
const (
	TagPut Tag = iota + 1
	TagGet
	TagIGet
	TagCreate
	TagStoreHeader
	TagStoreSub
	TagStorePayload
	TagRetrieve
	TagEnumerate
	TagSubscribe
	TagRefcountIncr
	TagInsertAtomic
	TagUnique
	TagTypeOf
	TagContainerTypeOf
	TagContainerReference
	TagContainerSize
	TagLock
	TagUnlock
	TagSyncRequest
	TagCheckIdle
	TagShutdownWorker
	TagShutdownServer
)

// Outgoing-from-server tags.
const (
	TagResponse Tag = iota + 100
	TagResponsePut
	TagResponseGet
	TagSyncResponse
	TagWorkUnit
	TagFail
)

// String names a tag for log lines; unrecognized values print their numeric
// form rather than panicking, since new tags may be added faster than this
// table.
func (t Tag) String() string {
	switch t {
	case TagPut:
		return "PUT"
	case TagGet:
		return "GET"
	case TagIGet:
		return "IGET"
	case TagCreate:
		return "CREATE"
	case TagStoreHeader:
		return "STORE_HEADER"
	case TagStoreSub:
		return "STORE_SUB"
	case TagStorePayload:
		return "STORE_PAYLOAD"
	case TagRetrieve:
		return "RETRIEVE"
	case TagEnumerate:
		return "ENUMERATE"
	case TagSubscribe:
		return "SUBSCRIBE"
	case TagRefcountIncr:
		return "REFCOUNT_INCR"
	case TagInsertAtomic:
		return "INSERT_ATOMIC"
	case TagUnique:
		return "UNIQUE"
	case TagTypeOf:
		return "TYPEOF"
	case TagContainerTypeOf:
		return "CONTAINER_TYPEOF"
	case TagContainerReference:
		return "CONTAINER_REFERENCE"
	case TagContainerSize:
		return "CONTAINER_SIZE"
	case TagLock:
		return "LOCK"
	case TagUnlock:
		return "UNLOCK"
	case TagSyncRequest:
		return "SYNC_REQUEST"
	case TagCheckIdle:
		return "CHECK_IDLE"
	case TagShutdownWorker:
		return "SHUTDOWN_WORKER"
	case TagShutdownServer:
		return "SHUTDOWN_SERVER"
	case TagResponse:
		return "RESPONSE"
	case TagResponsePut:
		return "RESPONSE_PUT"
	case TagResponseGet:
		return "RESPONSE_GET"
	case TagSyncResponse:
		return "SYNC_RESPONSE"
	case TagWorkUnit:
		return "WORKUNIT"
	case TagFail:
		return "FAIL"
	default:
		return "TAG(" + strconv.Itoa(int(t)) + ")"
	}
}
